package tracker

import (
	"context"

	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/position"
)

// EditorID identifies one open editor. The LSP host uses document URIs.
type EditorID string

// Buffer is the read side of an editor document. Offsets are rune offsets.
type Buffer interface {
	Size() int
	Substring(r position.Region) string
	Caret() int
	// Line returns the line holding pt, without its line break.
	Line(pt int) position.Region
}

// MarkerReader is implemented by buffers that keep the tracked region as an
// annotation that survives undo.
type MarkerReader interface {
	AbbreviationMarker() (position.Region, bool)
}

// Resolver returns the activation config at pos. It reports false when
// abbreviations are not allowed there.
type Resolver interface {
	Resolve(ctx context.Context, id EditorID, buf Buffer, pos int) (*engine.Config, bool)
}

// AutoMark limits which abbreviation types typing detection may pick up.
type AutoMark int

const (
	AutoMarkAll AutoMark = iota
	AutoMarkOff
	AutoMarkMarkup
	AutoMarkStylesheet
)

func (m AutoMark) allows(t engine.Type) bool {
	switch m {
	case AutoMarkAll:
		return true
	case AutoMarkMarkup:
		return t == engine.TypeMarkup
	case AutoMarkStylesheet:
		return t == engine.TypeStylesheet
	}
	return false
}

func (m AutoMark) String() string {
	switch m {
	case AutoMarkOff:
		return "off"
	case AutoMarkMarkup:
		return "markup"
	case AutoMarkStylesheet:
		return "stylesheet"
	}
	return "all"
}
