// Package engine defines the contract between the abbreviation tracker and
// whatever parses and expands Emmet abbreviations.
package engine

import (
	"fmt"
	"strings"
)

// Engine parses, expands and extracts abbreviations. Implementations must be
// synchronous and free of side effects.
type Engine interface {
	// Validate parses text with cfg. A malformed abbreviation yields a *SyntaxError.
	Validate(text string, cfg *Config) (*Validation, error)
	// Expand renders text as a snippet. With FieldPreview the output has no tab-stops.
	Expand(text string, cfg *Config) (string, error)
	// Extract finds the abbreviation that ends at or around pos in line.
	Extract(line string, pos int, opts ExtractOptions) (*Extracted, bool)
}

// Validation is the outcome of a successful parse.
type Validation struct {
	// Simple is a lone element with no children, such as `div` or `foo`.
	Simple bool
	// Matched is a simple abbreviation naming a known tag or snippet.
	Matched bool
}

// SyntaxError is a positioned parse failure. Pos is a rune offset into the
// parsed text.
type SyntaxError struct {
	Message string
	Pos     int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at %d", e.Message, e.Pos)
}

// FirstLine returns the first line of the message.
func (e *SyntaxError) FirstLine() string {
	msg, _, _ := strings.Cut(e.Message, "\n")
	return msg
}

// Pointer renders a caret under the failing column, e.g. "---^".
func (e *SyntaxError) Pointer() string {
	return strings.Repeat("-", max(e.Pos, 0)) + "^"
}

type ExtractOptions struct {
	Type Type
	// LookAhead allows the scan to step over closing brackets and quotes right of pos.
	LookAhead bool
	// Prefix must precede the abbreviation, e.g. "<" for JSX.
	Prefix string
}

// Extracted is an abbreviation located in a line. Start includes the prefix,
// Location is where the abbreviation text itself begins.
type Extracted struct {
	Abbreviation string
	Start        int
	End          int
	Location     int
}
