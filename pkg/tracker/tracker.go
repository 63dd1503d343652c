// Package tracker follows Emmet abbreviations while they are typed. The
// Controller keeps at most one live Tracker per editor and decides, edit by
// edit, whether the text under it is still an abbreviation.
package tracker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/position"
)

type StateKind int

const (
	KindValid StateKind = iota
	KindError
	KindEmpty
)

func (k StateKind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindEmpty:
		return "empty"
	}
	return "valid"
}

// State is one of ValidState, ErrorState or EmptyState.
type State interface {
	isState()
	Kind() StateKind
}

type ValidState struct {
	Simple  bool
	Matched bool
	// Preview is the expansion with placeholders rendered as text.
	Preview string
	// Candidate is false for words that only look like abbreviations by accident.
	Candidate bool
}

type ErrorState struct {
	Message string
	Pos     int
	Pointer string
}

// EmptyState is an empty forced tracker.
type EmptyState struct{}

func (ValidState) isState() {}
func (ErrorState) isState() {}
func (EmptyState) isState() {}

func (ValidState) Kind() StateKind { return KindValid }
func (ErrorState) Kind() StateKind { return KindError }
func (EmptyState) Kind() StateKind { return KindEmpty }

type Tracker struct {
	ID     string
	Region position.Region
	// Offset is the prefix length at the start of Region, e.g. `<` in JSX.
	Offset int
	// Forced trackers survive parse errors and empty text.
	Forced bool
	Config *engine.Config

	Abbreviation string
	State        State

	LastPos    int
	LastLength int
	Line       position.Region
}

func newTracker(region position.Region, offset int, forced bool, cfg *engine.Config) *Tracker {
	return &Tracker{
		ID:     uuid.NewString(),
		Region: region,
		Offset: offset,
		Forced: forced,
		Config: cfg,
		// the caret sits at the end of a freshly captured abbreviation
		LastPos: region.End,
	}
}

// Clone returns a copy that shares only the immutable config.
func (t *Tracker) Clone() *Tracker {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// AbbreviationRegion is Region without the prefix.
func (t *Tracker) AbbreviationRegion() position.Region {
	return position.Region{Start: min(t.Region.Start+t.Offset, t.Region.End), End: t.Region.End}
}

// Revalidate reads the tracked text from buf and recomputes State. Syntax
// errors leave the tracker in ErrorState and return a *ParseError. Any other
// error means the tracker must be disposed.
func (t *Tracker) Revalidate(buf Buffer, eng engine.Engine) (err error) {
	size := buf.Size()
	if !t.Region.Valid(size) {
		return errors.Errorf("tracker %s in buffer of %d: %w", t.Region, size, ErrRegionOutOfBounds)
	}

	t.LastLength = size
	t.Line = buf.Line(t.Region.Start)

	text := buf.Substring(t.Region)
	if runes := []rune(text); t.Offset > 0 {
		text = string(runes[min(t.Offset, len(runes)):])
	}
	t.Abbreviation = text

	if text == "" {
		if !t.Forced {
			return ErrRegionEmptyNonForced
		}
		t.State = EmptyState{}
		return nil
	}

	if strings.ContainsAny(text, "\r\n") {
		return ErrMultilineRejected
	}

	defer func() {
		if r := recover(); r != nil {
			t.State = ErrorState{Message: fmt.Sprint(r)}
			err = &ParseError{Message: fmt.Sprint(r)}
		}
	}()

	v, verr := eng.Validate(text, t.Config)
	if verr != nil {
		return t.fail(verr)
	}

	preview, perr := eng.Expand(text, t.Config.Preview())
	if perr != nil {
		return t.fail(perr)
	}

	if t.Config.IsStylesheet() && preview == "" && !t.Forced {
		return ErrEmptyPreview
	}

	t.State = ValidState{
		Simple:    v.Simple,
		Matched:   v.Matched,
		Preview:   preview,
		Candidate: engine.IsValidCandidate(text, t.Config),
	}
	return nil
}

func (t *Tracker) fail(err error) error {
	var serr *engine.SyntaxError
	if errors.As(err, &serr) {
		t.State = ErrorState{Message: serr.FirstLine(), Pos: serr.Pos, Pointer: serr.Pointer()}
		return &ParseError{Message: serr.FirstLine(), Pos: serr.Pos}
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	t.State = ErrorState{Message: msg}
	return &ParseError{Message: msg}
}

// ShiftAndRevalidate moves the region for an edit of delta runes made with
// the caret at caretBeforeEdit, then revalidates.
func (t *Tracker) ShiftAndRevalidate(delta, caretBeforeEdit int, buf Buffer, eng engine.Engine) error {
	t.Region = updateRegion(t.Region, delta, caretBeforeEdit)
	return t.Revalidate(buf, eng)
}

func updateRegion(r position.Region, delta, pos int) position.Region {
	switch {
	case delta < 0 && pos == r.Start:
		return r.Shift(delta)
	case delta < 0 && r.Start < pos && pos <= r.End:
		return r.Extend(delta)
	case delta > 0 && r.Contains(pos):
		return r.Extend(delta)
	}
	return r
}
