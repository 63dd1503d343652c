package syntax

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/tracker"
)

// Source supplies the base config of an editor, before the location is
// taken into account.
type Source interface {
	BaseConfig(ctx context.Context, id tracker.EditorID) (*engine.Config, bool)
}

type SourceFunc func(ctx context.Context, id tracker.EditorID) (*engine.Config, bool)

func (f SourceFunc) BaseConfig(ctx context.Context, id tracker.EditorID) (*engine.Config, bool) {
	return f(ctx, id)
}

// Static serves cfg for every editor.
func Static(cfg *engine.Config) Source {
	return SourceFunc(func(context.Context, tracker.EditorID) (*engine.Config, bool) {
		return cfg, cfg != nil
	})
}

var _ tracker.Resolver = (*Resolver)(nil)

type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

func (r *Resolver) Resolve(ctx context.Context, id tracker.EditorID, buf tracker.Buffer, pos int) (*engine.Config, bool) {
	base, ok := r.source.BaseConfig(ctx, id)
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("editor", string(id)).Msg("no syntax for editor")
		return nil, false
	}

	text := buf.Substring(position.Region{Start: 0, End: buf.Size()})
	cfg, ok := Activate(base, text, pos)
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("editor", string(id)).Str("syntax", base.Syntax).Int("pos", pos).Msg("abbreviations not allowed here")
	}
	return cfg, ok
}

// Activate narrows base to what may be typed at pos in text.
func Activate(base *engine.Config, text string, pos int) (*engine.Config, bool) {
	switch {
	case IsHTML(base.Syntax):
		loc := LocateMarkup(text, pos, !IsXML(base.Syntax))
		switch {
		case loc.InlineStyle:
			return inlineStyle(base), true
		case !loc.Allowed && IsJSX(base.Syntax):
			return base.With(engine.WithContext(nil)), true
		case !loc.Allowed:
			return nil, false
		case loc.Element == "":
			return base.With(engine.WithContext(nil)), true
		}
		return base.With(engine.WithContext(&engine.Context{Name: loc.Element})), true

	case IsCSS(base.Syntax):
		ctx, ok := CSSContext(text, pos)
		if !ok {
			return nil, false
		}
		return base.With(engine.WithContext(ctx)), true
	}
	return base.With(), true
}

func inlineStyle(base *engine.Config) *engine.Config {
	return base.With(func(c *engine.Config) {
		c.Syntax = "css"
		c.Type = engine.TypeStylesheet
		c.JSX = false
		c.Context = &engine.Context{Scope: engine.ScopeProperty, Inline: true}
	})
}
