package tracker

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/boundary"
	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/position"
)

type editorState struct {
	active *Tracker
	stored *Tracker
	// grace lets the stored tracker outlive the edit that applies its expansion
	grace bool

	lastPos      int
	knownLastPos bool
}

// Controller owns the tracker state of every editor. Calls are serialized
// by a single mutex.
type Controller struct {
	mu       sync.Mutex
	eng      engine.Engine
	resolver Resolver
	autoMark AutoMark
	editors  map[EditorID]*editorState
}

type Option func(*Controller)

// WithAutoMark limits typing detection. Explicit activation ignores it.
func WithAutoMark(m AutoMark) Option {
	return func(c *Controller) { c.autoMark = m }
}

func New(eng engine.Engine, resolver Resolver, opts ...Option) *Controller {
	c := &Controller{
		eng:      eng,
		resolver: resolver,
		autoMark: AutoMarkAll,
		editors:  make(map[EditorID]*editorState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAutoMark changes typing detection for subsequent edits.
func (c *Controller) SetAutoMark(m AutoMark) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoMark = m
}

type StartOptions struct {
	Offset int
	Forced bool
	// Config is resolved at the region start when nil.
	Config *engine.Config
}

type StopOptions struct {
	// Force drops the stored tracker instead of replacing it.
	Force bool
}

// Expansion is the snippet that replaces Region.
type Expansion struct {
	Region  position.Region
	Snippet string
	Tracker *Tracker
}

func (c *Controller) state(id EditorID) *editorState {
	st, ok := c.editors[id]
	if !ok {
		st = &editorState{}
		c.editors[id] = st
	}
	return st
}

func (c *Controller) ActiveTracker(id EditorID) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.editors[id]; ok {
		return st.active.Clone()
	}
	return nil
}

func (c *Controller) StoredTracker(id EditorID) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.editors[id]; ok {
		return st.stored.Clone()
	}
	return nil
}

// StartTracking tracks [start, end] explicitly, replacing any live tracker.
func (c *Controller) StartTracking(ctx context.Context, id EditorID, buf Buffer, start, end int, opts StartOptions) (*Tracker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(id)
	t, err := c.start(ctx, id, st, buf, position.Region{Start: start, End: end}, opts)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// StopTracking disposes the live tracker and returns it, or nil when there
// is none.
func (c *Controller) StopTracking(ctx context.Context, id EditorID, opts StopOptions) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.editors[id]
	if !ok || st.active == nil {
		zerolog.Ctx(ctx).Debug().Str("editor", string(id)).Msg("stop tracking without a tracker")
		return nil
	}
	return c.stop(ctx, id, st, opts.Force).Clone()
}

// HandleContentChange reacts to an edit. The caret of buf must already be
// past the edit.
func (c *Controller) HandleContentChange(ctx context.Context, id EditorID, buf Buffer) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(id)
	caret := buf.Caret()
	prev, known := st.lastPos, st.knownLastPos
	st.lastPos, st.knownLastPos = caret, true

	t := st.active
	if t == nil {
		c.evictStored(ctx, id, st, buf)
		if known && prev == caret-1 {
			return c.typing(ctx, id, st, buf, caret).Clone()
		}
		return nil
	}

	editPos := t.LastPos
	if !t.Region.Contains(editPos) || buf.Line(caret).Start != t.Line.Start {
		zerolog.Ctx(ctx).Debug().
			Str("editor", string(id)).
			Stringer("region", t.Region).
			Int("edit", editPos).
			Msg("edit outside of tracker")
		c.stop(ctx, id, st, false)
		return nil
	}

	delta := buf.Size() - t.LastLength
	next := t.Clone()
	err := next.ShiftAndRevalidate(delta, editPos, buf, c.eng)
	if !c.keep(next, err, buf, caret) {
		zerolog.Ctx(ctx).Debug().
			Str("editor", string(id)).
			Stringer("region", next.Region).
			Int("delta", delta).
			Err(err).
			Msg("tracker invalidated")
		c.stop(ctx, id, st, false)
		return nil
	}

	next.LastPos = caret
	st.active = next

	zerolog.Ctx(ctx).Debug().
		Str("editor", string(id)).
		Stringer("region", next.Region).
		Int("delta", delta).
		Stringer("state", next.State.Kind()).
		Msg("tracker updated")

	return next.Clone()
}

// HandleSelectionChange records a caret move. With no live tracker a moved
// caret may restore the stored one.
func (c *Controller) HandleSelectionChange(ctx context.Context, id EditorID, buf Buffer) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(id)
	caret := buf.Caret()
	moved := !st.knownLastPos || st.lastPos != caret
	st.lastPos, st.knownLastPos = caret, true

	if st.active == nil && moved {
		c.restore(ctx, id, st, buf, caret)
	}
	if st.active == nil {
		return nil
	}
	st.active.LastPos = caret
	return st.active.Clone()
}

// HandleUndo rebuilds a tracker after an undo from the buffer's marker, or
// from the stored tracker when the buffer keeps no marker.
func (c *Controller) HandleUndo(ctx context.Context, id EditorID, buf Buffer) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(id)
	st.lastPos, st.knownLastPos = buf.Caret(), true

	var span position.Region
	found := false
	if mr, ok := buf.(MarkerReader); ok {
		span, found = mr.AbbreviationMarker()
	}
	if !found && st.stored != nil {
		span, found = st.stored.Region, true
	}
	if !found || span.Empty() {
		return nil
	}

	var opts StartOptions
	if s := st.stored; s != nil && s.Region == span {
		opts = StartOptions{Offset: s.Offset, Forced: s.Forced, Config: s.Config}
	}

	// the replaced tracker is stored like any other disposal
	if st.active != nil {
		c.stop(ctx, id, st, false)
	}

	t, err := c.start(ctx, id, st, buf, span, opts)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("editor", string(id)).Stringer("span", span).Msg("undo did not restore a tracker")
		return nil
	}
	return t.Clone()
}

// SuggestTracker returns the live tracker under the caret, or captures the
// abbreviation left of it. With force an empty forced tracker is started
// when nothing is found.
func (c *Controller) SuggestTracker(ctx context.Context, id EditorID, buf Buffer, force bool) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(id)
	caret := buf.Caret()

	if t := st.active; t != nil {
		if t.Region.Contains(caret) {
			return t.Clone()
		}
		c.stop(ctx, id, st, false)
	}

	cfg, ok := c.resolver.Resolve(ctx, id, buf, caret)
	if !ok || (!force && !c.autoMark.allows(cfg.Type)) {
		return nil
	}

	line := buf.Line(caret)
	text := buf.Substring(line)
	opts := engine.ExtractOptions{
		Type:      cfg.Type,
		LookAhead: !cfg.IsStylesheet(),
		Prefix:    cfg.JSXPrefix(),
	}

	ex, found := c.eng.Extract(text, caret-line.Start, opts)
	if !found && opts.Prefix != "" {
		opts.Prefix = ""
		ex, found = c.eng.Extract(text, caret-line.Start, opts)
	}

	if found {
		region := position.Region{Start: line.Start + ex.Start, End: line.Start + ex.End}
		t, err := c.start(ctx, id, st, buf, region, StartOptions{Offset: ex.Location - ex.Start, Config: cfg})
		if err == nil {
			return t.Clone()
		}
		zerolog.Ctx(ctx).Debug().Err(err).Str("abbreviation", ex.Abbreviation).Msg("extracted abbreviation rejected")
	}

	if !force {
		return nil
	}
	t, err := c.start(ctx, id, st, buf, position.Point(caret), StartOptions{Forced: true, Config: cfg})
	if err != nil {
		return nil
	}
	return t.Clone()
}

// EnterAbbreviationMode toggles a forced tracker over sel. It returns nil
// when it turned a forced tracker off.
func (c *Controller) EnterAbbreviationMode(ctx context.Context, id EditorID, buf Buffer, sel position.Region) *Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(id)
	if st.active != nil {
		if prev := c.stop(ctx, id, st, true); prev.Forced {
			return nil
		}
	}

	t, err := c.start(ctx, id, st, buf, sel, StartOptions{Forced: true})
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Stringer("selection", sel).Msg("cannot enter abbreviation mode")
		return nil
	}
	return t.Clone()
}

// Expand renders the live tracker and stops it. The stored copy survives the
// edit that inserts the snippet so that undo can bring it back.
func (c *Controller) Expand(ctx context.Context, id EditorID, buf Buffer, opts ...engine.ConfigOption) (*Expansion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.editors[id]
	if !ok || st.active == nil {
		return nil, ErrNoTracker
	}
	t := st.active
	if caret := buf.Caret(); !t.Region.Contains(caret) {
		return nil, errors.Errorf("caret %d outside of %s: %w", caret, t.Region, ErrNoTracker)
	}

	switch s := t.State.(type) {
	case ErrorState:
		return nil, &ParseError{Message: s.Message, Pos: s.Pos}
	case EmptyState:
		return nil, ErrNothingToExpand
	case ValidState:
	}

	snippet, err := c.eng.Expand(t.Abbreviation, t.Config.With(opts...))
	if err != nil {
		return nil, errors.Errorf("expanding %q: %w", t.Abbreviation, err)
	}
	if snippet == "" {
		return nil, ErrNothingToExpand
	}

	c.stop(ctx, id, st, false)
	st.grace = true

	zerolog.Ctx(ctx).Debug().Str("editor", string(id)).Stringer("region", t.Region).Msg("abbreviation expanded")

	return &Expansion{Region: t.Region, Snippet: snippet, Tracker: t.Clone()}, nil
}

// Dispose forgets everything about the editor.
func (c *Controller) Dispose(id EditorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.editors, id)
}

func (c *Controller) start(ctx context.Context, id EditorID, st *editorState, buf Buffer, region position.Region, opts StartOptions) (*Tracker, error) {
	cfg := opts.Config
	if cfg == nil {
		var ok bool
		if cfg, ok = c.resolver.Resolve(ctx, id, buf, region.Start); !ok {
			st.active = nil
			return nil, ErrNoActivationContext
		}
	}

	t, err := c.create(buf, region, opts.Offset, opts.Forced, cfg)
	if err != nil {
		st.active = nil
		return nil, err
	}
	st.active = t

	zerolog.Ctx(ctx).Debug().
		Str("editor", string(id)).
		Stringer("region", t.Region).
		Bool("forced", t.Forced).
		Stringer("state", t.State.Kind()).
		Msg("tracker started")

	return t, nil
}

func (c *Controller) create(buf Buffer, region position.Region, offset int, forced bool, cfg *engine.Config) (*Tracker, error) {
	if region.Start > region.End || (region.Empty() && !forced) {
		return nil, ErrRegionEmptyNonForced
	}
	if !buf.Line(region.Start).ContainsRegion(region) {
		return nil, ErrMultilineRejected
	}

	t := newTracker(region, offset, forced, cfg)
	if err := t.Revalidate(buf, c.eng); err != nil && !errors.Is(err, ErrParse) {
		return nil, err
	}
	return t, nil
}

func (c *Controller) stop(ctx context.Context, id EditorID, st *editorState, force bool) *Tracker {
	t := st.active
	st.active = nil
	st.grace = false
	if force || t.Forced {
		st.stored = nil
	} else {
		st.stored = t
	}

	zerolog.Ctx(ctx).Debug().
		Str("editor", string(id)).
		Stringer("region", t.Region).
		Bool("stored", st.stored != nil).
		Msg("tracker stopped")

	return t
}

// keep decides whether a revalidated tracker stays live. Non-forced trackers
// are dropped when the text just typed broke the abbreviation.
func (c *Controller) keep(t *Tracker, err error, buf Buffer, caret int) bool {
	if err == nil {
		return true
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		return false
	}
	if t.Forced {
		return true
	}
	if t.Region.End == caret {
		return false
	}

	text := []rune(buf.Substring(t.Region))
	if strings.Contains(string(text), "</") {
		return false
	}

	start := t.Region.Start + t.Offset
	target := t.Region.End
	for target > start && boundary.IsClosingBracket(text[target-t.Region.Start-1]) {
		target--
	}
	return target != caret
}

// typing starts a tracker when the rune just typed opens an abbreviation.
func (c *Controller) typing(ctx context.Context, id EditorID, st *editorState, buf Buffer, caret int) *Tracker {
	cfg, ok := c.resolver.Resolve(ctx, id, buf, caret)
	if !ok || !c.autoMark.allows(cfg.Type) {
		return nil
	}

	line := buf.Line(caret)
	prefix := buf.Substring(position.Region{Start: max(line.Start, caret-2), End: caret})

	start, offset := -1, 0
	if jsx := cfg.JSXPrefix(); jsx != "" {
		if !boundary.IsJSXAbbreviationStart(prefix, jsx) {
			return nil
		}
		start, offset = caret-2, len([]rune(jsx))
	} else if boundary.IsWordBoundaryStart(boundary.SplitPrefix(prefix)) {
		start = caret - 1
	}
	if start < 0 {
		return nil
	}

	if cfg.IsStylesheet() && cfg.Scope() != engine.ScopeValue && !boundary.IsStylesheetWordBoundary(prefix) {
		return nil
	}

	next := buf.Substring(position.Region{Start: caret, End: min(caret+1, buf.Size())})
	end := caret + boundary.ExtendForPairedCloser(prefix, next)

	t, err := c.start(ctx, id, st, buf, position.Region{Start: start, End: end}, StartOptions{Offset: offset, Config: cfg})
	if err != nil {
		return nil
	}
	if t.State.Kind() == KindError {
		st.active = nil
		return nil
	}

	if cfg.Scope() == engine.ScopeSection {
		if v, ok := t.State.(ValidState); ok && isUnresolvedProperty(t.Abbreviation, v.Preview) {
			st.active = nil
			return nil
		}
	}
	return t
}

// isUnresolvedProperty matches previews like `a: ;` that the engine produces
// for words it does not know, typically selectors.
func isUnresolvedProperty(abbr, preview string) bool {
	rest, ok := strings.CutPrefix(preview, abbr)
	if !ok {
		return false
	}
	rest, ok = strings.CutPrefix(rest, ":")
	if !ok {
		return false
	}
	rest = strings.TrimRight(strings.TrimSpace(rest), ";")
	return rest == ""
}

// evictStored drops the stored tracker once an edit changed its text.
func (c *Controller) evictStored(ctx context.Context, id EditorID, st *editorState, buf Buffer) {
	s := st.stored
	if s == nil {
		return
	}
	if st.grace {
		st.grace = false
		return
	}
	if r := s.AbbreviationRegion(); r.Valid(buf.Size()) && buf.Substring(r) == s.Abbreviation {
		return
	}
	st.stored = nil
	zerolog.Ctx(ctx).Debug().Str("editor", string(id)).Stringer("region", s.Region).Msg("stored tracker evicted")
}

// restore reactivates the stored tracker when the caret lands on its
// unchanged text.
func (c *Controller) restore(ctx context.Context, id EditorID, st *editorState, buf Buffer, caret int) {
	s := st.stored
	if s == nil || !s.Region.Contains(caret) {
		return
	}
	r := s.AbbreviationRegion()
	if !r.Valid(buf.Size()) || buf.Substring(r) != s.Abbreviation {
		return
	}
	if s.Config.IsStylesheet() {
		after := []rune(buf.Substring(position.Region{Start: r.End, End: min(r.End+1, buf.Size())}))
		ch := boundary.NoRune
		if len(after) > 0 {
			ch = after[0]
		}
		if !boundary.IsBoundChar(ch) {
			return
		}
	}

	t := s.Clone()
	t.Line = buf.Line(t.Region.Start)
	t.LastLength = buf.Size()
	st.active = t

	zerolog.Ctx(ctx).Debug().Str("editor", string(id)).Stringer("region", t.Region).Msg("tracker restored")
}
