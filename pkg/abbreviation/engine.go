package abbreviation

import (
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/engine"
)

var _ engine.Engine = (*Engine)(nil)

// Engine is the participle-backed abbreviation engine.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Validate(text string, cfg *engine.Config) (*engine.Validation, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	if cfg.IsStylesheet() {
		if _, err := ParseStylesheet(text); err != nil {
			return nil, err
		}
		return &engine.Validation{}, nil
	}

	tree, err := ParseMarkup(text)
	if err != nil {
		return nil, err
	}

	v := &engine.Validation{Simple: cfg.JSXPrefix() == "" && tree.Simple()}
	if v.Simple {
		if word := engine.SimpleWord(text); word != "" {
			v.Matched = engine.IsKnownName(word, cfg) || isKnownPrefix(word, cfg)
		}
	}
	return v, nil
}

func (e *Engine) Expand(text string, cfg *engine.Config) (string, error) {
	if cfg == nil {
		return "", errors.New("nil config")
	}

	if cfg.IsStylesheet() {
		props, err := ParseStylesheet(text)
		if err != nil {
			return "", err
		}
		return RenderStylesheet(props, cfg), nil
	}

	tree, err := ParseMarkup(text)
	if err != nil {
		return "", err
	}
	return Render(tree, cfg), nil
}

func (e *Engine) Extract(line string, pos int, opts engine.ExtractOptions) (*engine.Extracted, bool) {
	return Extract(line, pos, opts)
}

// isKnownPrefix reports whether word starts a known tag or snippet name, so a
// half-typed `d` is treated like `div`.
func isKnownPrefix(word string, cfg *engine.Config) bool {
	if engine.HasKnownTagPrefix(word) {
		return true
	}
	for name := range cfg.Options.Snippets {
		if strings.HasPrefix(name, word) {
			return true
		}
	}
	for name := range builtinSnippets {
		if strings.HasPrefix(name, word) {
			return true
		}
	}
	return false
}
