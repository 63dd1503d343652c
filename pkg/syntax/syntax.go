// Package syntax maps editor documents to Emmet dialects and decides where in
// a document abbreviations may be typed.
package syntax

import (
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/engine"
)

var ErrUnknownSyntax = errors.Base("unknown syntax")

var (
	Markup     = []string{"html", "xml", "xsl", "jsx", "haml", "jade", "pug", "slim"}
	Stylesheet = []string{"css", "scss", "sass", "less", "sss", "stylus", "postcss"}
	// XML dialects keep attribute and tag case and close every element.
	XML = []string{"xml", "xsl", "jsx"}
	// HTML dialects are written as tags, so tag context applies to them.
	HTML = []string{"html", "xml", "xsl", "jsx"}
)

var languageIDs = map[string]string{
	"html":            "html",
	"xhtml":           "html",
	"vue":             "html",
	"svelte":          "html",
	"xml":             "xml",
	"xsl":             "xsl",
	"javascriptreact": "jsx",
	"typescriptreact": "jsx",
	"jsx":             "jsx",
	"haml":            "haml",
	"jade":            "jade",
	"pug":             "pug",
	"slim":            "slim",
	"css":             "css",
	"scss":            "scss",
	"sass":            "sass",
	"less":            "less",
	"sss":             "sss",
	"stylus":          "stylus",
	"postcss":         "postcss",
}

var extensions = map[string]string{
	".html":    "html",
	".htm":     "html",
	".xhtml":   "html",
	".vue":     "html",
	".svelte":  "html",
	".xml":     "xml",
	".xsl":     "xsl",
	".xslt":    "xsl",
	".jsx":     "jsx",
	".tsx":     "jsx",
	".haml":    "haml",
	".jade":    "jade",
	".pug":     "pug",
	".slim":    "slim",
	".css":     "css",
	".scss":    "scss",
	".sass":    "sass",
	".less":    "less",
	".sss":     "sss",
	".styl":    "stylus",
	".pcss":    "postcss",
	".postcss": "postcss",
}

func IsSupported(name string) bool {
	return slices.Contains(Markup, name) || slices.Contains(Stylesheet, name)
}

func IsJSX(name string) bool {
	return name == "jsx"
}

func IsXML(name string) bool {
	return slices.Contains(XML, name)
}

func IsHTML(name string) bool {
	return slices.Contains(HTML, name)
}

// IsCSS reports dialects with brace-delimited sections.
func IsCSS(name string) bool {
	return name == "css" || name == "scss" || name == "less"
}

// TypeOf returns the abbreviation family of a dialect.
func TypeOf(name string) engine.Type {
	if slices.Contains(Stylesheet, name) {
		return engine.TypeStylesheet
	}
	return engine.TypeMarkup
}

// New returns the base config for a dialect.
func New(name string, opts engine.Options) (*engine.Config, error) {
	if !IsSupported(name) {
		return nil, errors.Errorf("%q: %w", name, ErrUnknownSyntax)
	}
	return &engine.Config{
		Syntax:  name,
		Type:    TypeOf(name),
		JSX:     IsJSX(name),
		Options: opts,
	}, nil
}

// FromLanguageID maps an LSP language identifier to a dialect.
func FromLanguageID(id string) (string, bool) {
	name, ok := languageIDs[strings.ToLower(id)]
	return name, ok
}

// FromExtension maps a file name to a dialect by extension.
func FromExtension(path string) (string, bool) {
	name, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return name, ok
}

// Patterns maps doublestar globs to dialects.
type Patterns map[string]string

// Match returns the dialect of the most specific pattern matching path.
// Longer patterns win, ties break alphabetically.
func (p Patterns) Match(path string) (string, bool) {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	path = filepath.ToSlash(path)
	for _, k := range keys {
		if !matchPattern(k, path) {
			continue
		}
		if name := p[k]; IsSupported(name) {
			return name, true
		}
	}
	return "", false
}

// matchPattern also tries absolute paths as relative ones so that `**/x`
// matches `/x`.
func matchPattern(pattern, path string) bool {
	if ok, err := doublestar.Match(pattern, path); err == nil && ok {
		return true
	}
	rel := strings.TrimPrefix(path, "/")
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}

// Validate reports every malformed pattern and unknown dialect.
func (p Patterns) Validate() []error {
	var errs []error
	for k, v := range p {
		if !doublestar.ValidatePattern(k) {
			errs = append(errs, errors.Errorf("syntax pattern %q: %w", k, doublestar.ErrBadPattern))
		}
		if !IsSupported(v) {
			errs = append(errs, errors.Errorf("syntax pattern %q maps to %q: %w", k, v, ErrUnknownSyntax))
		}
	}
	return errs
}

// Detect resolves the dialect of a document from its language id, then
// patterns on its path, then its extension.
func Detect(languageID, path string, patterns Patterns) (string, bool) {
	if name, ok := FromLanguageID(languageID); ok {
		return name, true
	}
	if name, ok := patterns.Match(path); ok {
		return name, true
	}
	return FromExtension(path)
}
