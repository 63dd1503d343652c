package tracker

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

var (
	ErrNoTracker            = errors.Base("no active abbreviation tracker")
	ErrRegionEmptyNonForced = errors.Base("empty region on a non-forced tracker")
	ErrMultilineRejected    = errors.Base("abbreviation spans multiple lines")
	ErrRegionOutOfBounds    = errors.Base("region outside of buffer")
	ErrEmptyPreview         = errors.Base("stylesheet abbreviation has no match")
	ErrNothingToExpand      = errors.Base("nothing to expand")
	ErrNoActivationContext  = errors.Base("abbreviations are not allowed here")
	ErrParse                = errors.Base("abbreviation parse error")
)

// ParseError is the engine's syntax error as seen by callers. It matches
// ErrParse with errors.Is.
type ParseError struct {
	Message string
	Pos     int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %d", e.Message, e.Pos)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}
