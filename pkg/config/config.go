// Package config loads emmetls settings from YAML, HCL or TOML files.
package config

import (
	"bytes"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/syntax"
	"github.com/walteh/emmetls/pkg/tracker"
)

var (
	ErrUnsupportedFormat = errors.Base("unsupported config format")
	ErrInvalidSetting    = errors.Base("invalid setting")
)

// AutoMarkSetting is `true`, `false`, "markup" or "stylesheet".
type AutoMarkSetting string

func (a *AutoMarkSetting) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("auto_mark must be a boolean or a string: %w", ErrInvalidSetting)
	}
	*a = AutoMarkSetting(value.Value)
	return nil
}

func (a *AutoMarkSetting) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case bool:
		*a = AutoMarkSetting(strconv.FormatBool(x))
	case string:
		*a = AutoMarkSetting(x)
	default:
		return errors.Errorf("auto_mark must be a boolean or a string, got %T: %w", v, ErrInvalidSetting)
	}
	return nil
}

func ParseAutoMark(s string) (tracker.AutoMark, error) {
	switch strings.ToLower(s) {
	case "", "true", "all":
		return tracker.AutoMarkAll, nil
	case "false", "off":
		return tracker.AutoMarkOff, nil
	case "markup":
		return tracker.AutoMarkMarkup, nil
	case "stylesheet":
		return tracker.AutoMarkStylesheet, nil
	}
	return tracker.AutoMarkOff, errors.Errorf("auto_mark %q: %w", s, ErrInvalidSetting)
}

type SnippetSettings struct {
	Markup     map[string]string `yaml:"markup,omitempty" toml:"markup" hcl:"markup,optional"`
	Stylesheet map[string]string `yaml:"stylesheet,omitempty" toml:"stylesheet" hcl:"stylesheet,optional"`
}

type Settings struct {
	AutoMark            AutoMarkSetting `yaml:"auto_mark" toml:"auto_mark" hcl:"auto_mark,optional"`
	AbbreviationPreview bool            `yaml:"abbreviation_preview" toml:"abbreviation_preview" hcl:"abbreviation_preview,optional"`
	JSXPrefix           string          `yaml:"jsx_prefix" toml:"jsx_prefix" hcl:"jsx_prefix,optional"`
	// KnownSnippetsOnly lists markup syntaxes where typing detection only
	// picks up known tags and snippets.
	KnownSnippetsOnly []string `yaml:"known_snippets_only" toml:"known_snippets_only" hcl:"known_snippets_only,optional"`
	MarkupStyle       string   `yaml:"markup_style" toml:"markup_style" hcl:"markup_style,optional"`
	AttributeQuotes   string   `yaml:"attribute_quotes" toml:"attribute_quotes" hcl:"attribute_quotes,optional"`
	// SyntaxPatterns maps doublestar globs to syntaxes.
	SyntaxPatterns  map[string]string `yaml:"syntax_patterns" toml:"syntax_patterns" hcl:"syntax_patterns,optional"`
	Snippets        *SnippetSettings  `yaml:"snippets" toml:"snippets" hcl:"snippets,block"`
	Indent          string            `yaml:"indent" toml:"indent" hcl:"indent,optional"`
	UseEditorConfig bool              `yaml:"use_editorconfig" toml:"use_editorconfig" hcl:"use_editorconfig,optional"`
}

func Defaults() *Settings {
	return &Settings{
		AutoMark:            "true",
		AbbreviationPreview: true,
		JSXPrefix:           "<",
		MarkupStyle:         "html",
		AttributeQuotes:     "double",
		Indent:              "\t",
	}
}

// Load reads settings from path. The format follows the extension. Keys
// missing from the file keep their defaults.
func Load(fs afero.Fs, path string) (*Settings, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	s := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(s); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), s)
		if err != nil {
			return nil, errors.Errorf("parsing TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("parsing TOML: unknown keys %v: %w", undecoded, ErrInvalidSetting)
		}
	case ".hcl":
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}
		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{},
		}
		if diags := gohcl.DecodeBody(file.Body, ctx, s); diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	default:
		return nil, errors.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", path, err)
	}
	return s, nil
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var err error

	if _, e := ParseAutoMark(string(s.AutoMark)); e != nil {
		err = multierr.Append(err, e)
	}
	if !slices.Contains([]string{"html", "xhtml", "xml"}, s.MarkupStyle) {
		err = multierr.Append(err, errors.Errorf("markup_style %q: %w", s.MarkupStyle, ErrInvalidSetting))
	}
	if !slices.Contains([]string{"double", "single"}, s.AttributeQuotes) {
		err = multierr.Append(err, errors.Errorf("attribute_quotes %q: %w", s.AttributeQuotes, ErrInvalidSetting))
	}
	for _, name := range s.KnownSnippetsOnly {
		if syntax.TypeOf(name) != engine.TypeMarkup || !syntax.IsSupported(name) {
			err = multierr.Append(err, errors.Errorf("known_snippets_only %q is not a markup syntax: %w", name, ErrInvalidSetting))
		}
	}
	if strings.TrimSpace(s.JSXPrefix) != s.JSXPrefix {
		err = multierr.Append(err, errors.Errorf("jsx_prefix %q has surrounding whitespace: %w", s.JSXPrefix, ErrInvalidSetting))
	}
	if strings.Trim(s.Indent, " \t") != "" {
		err = multierr.Append(err, errors.Errorf("indent %q must be spaces or tabs: %w", s.Indent, ErrInvalidSetting))
	}

	return multierr.Combine(append([]error{err}, syntax.Patterns(s.SyntaxPatterns).Validate()...)...)
}

func (s *Settings) AutoMarkMode() tracker.AutoMark {
	m, err := ParseAutoMark(string(s.AutoMark))
	if err != nil {
		return tracker.AutoMarkOff
	}
	return m
}

// DetectSyntax resolves the syntax of a document with the configured
// patterns.
func (s *Settings) DetectSyntax(languageID, path string) (string, bool) {
	return syntax.Detect(languageID, path, syntax.Patterns(s.SyntaxPatterns))
}

// EngineConfig builds the base config for a document of the given syntax.
func (s *Settings) EngineConfig(syntaxName, path string) (*engine.Config, error) {
	typ := syntax.TypeOf(syntaxName)
	return syntax.New(syntaxName, engine.Options{
		Indent:            s.IndentFor(path),
		SelfClosingStyle:  s.MarkupStyle,
		AttributeQuotes:   s.AttributeQuotes,
		JSXPrefix:         s.JSXPrefix,
		KnownSnippetsOnly: typ == engine.TypeMarkup && slices.Contains(s.KnownSnippetsOnly, syntaxName),
		Snippets:          s.snippets(typ),
	})
}

func (s *Settings) snippets(typ engine.Type) map[string]string {
	if s.Snippets == nil {
		return nil
	}
	if typ == engine.TypeStylesheet {
		return s.Snippets.Stylesheet
	}
	return s.Snippets.Markup
}
