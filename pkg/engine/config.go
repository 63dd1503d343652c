package engine

import "maps"

// Type is the abbreviation family of a syntax.
type Type int

const (
	TypeMarkup Type = iota
	TypeStylesheet
)

func (t Type) String() string {
	if t == TypeStylesheet {
		return "stylesheet"
	}
	return "markup"
}

// Scope is the stylesheet location an abbreviation is typed in.
type Scope string

const (
	ScopeNone     Scope = ""
	ScopeGlobal   Scope = "@@global"
	ScopeSection  Scope = "@@section"
	ScopeProperty Scope = "@@property"
	ScopeValue    Scope = "@@value"
)

// Context describes where an abbreviation is being typed. For markup Name is
// the enclosing element, for stylesheets Scope is set.
type Context struct {
	Name  string
	Scope Scope
	// Inline is set for stylesheet abbreviations inside a markup style attribute.
	Inline bool
}

type FieldMode int

const (
	// FieldTabstop renders `${1:placeholder}` tab-stops.
	FieldTabstop FieldMode = iota
	// FieldPreview renders placeholders as plain text.
	FieldPreview
)

type Options struct {
	Indent string
	// SelfClosingStyle is one of "html", "xhtml" or "xml".
	SelfClosingStyle string
	// AttributeQuotes is "double" or "single".
	AttributeQuotes string
	// JSXPrefix must precede abbreviations typed in JSX, usually "<".
	JSXPrefix string
	// KnownSnippetsOnly limits typing detection to abbreviations that look intentional.
	KnownSnippetsOnly bool
	Snippets          map[string]string
}

// Config is an immutable activation config. Use With to derive variants.
type Config struct {
	Syntax  string
	Type    Type
	JSX     bool
	Context *Context
	Field   FieldMode
	Options Options
}

type ConfigOption func(*Config)

func WithField(mode FieldMode) ConfigOption {
	return func(c *Config) { c.Field = mode }
}

func WithContext(ctx *Context) ConfigOption {
	return func(c *Config) { c.Context = ctx }
}

func WithIndent(indent string) ConfigOption {
	return func(c *Config) { c.Options.Indent = indent }
}

// With returns a copy of c with opts applied. The receiver is never modified.
func (c *Config) With(opts ...ConfigOption) *Config {
	cp := *c
	if c.Context != nil {
		ctx := *c.Context
		cp.Context = &ctx
	}
	cp.Options.Snippets = maps.Clone(c.Options.Snippets)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Preview returns the config used to render previews.
func (c *Config) Preview() *Config {
	return c.With(WithField(FieldPreview))
}

func (c *Config) IsStylesheet() bool {
	return c != nil && c.Type == TypeStylesheet
}

// JSXPrefix returns the prefix required before a JSX abbreviation, or "".
func (c *Config) JSXPrefix() string {
	if c == nil || !c.JSX {
		return ""
	}
	return c.Options.JSXPrefix
}

// Scope returns the stylesheet scope, or ScopeNone.
func (c *Config) Scope() Scope {
	if c == nil || c.Context == nil {
		return ScopeNone
	}
	return c.Context.Scope
}

// IndentOrDefault returns the configured indent or a tab.
func (c *Config) IndentOrDefault() string {
	if c.Options.Indent == "" {
		return "\t"
	}
	return c.Options.Indent
}
