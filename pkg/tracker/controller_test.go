package tracker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/abbreviation"
	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/textbuf"
)

type staticResolver struct {
	cfg *engine.Config
}

func (r staticResolver) Resolve(ctx context.Context, id EditorID, buf Buffer, pos int) (*engine.Config, bool) {
	return r.cfg, r.cfg != nil
}

type session struct {
	t    *testing.T
	ctx  context.Context
	ctrl *Controller
	buf  *textbuf.Buffer
	id   EditorID
}

func newSession(t *testing.T, cfg *engine.Config, text string, caret int, opts ...Option) *session {
	t.Helper()

	ctx := zerolog.New(zerolog.TestWriter{T: t}).With().Str("test", t.Name()).Logger().WithContext(context.Background())

	s := &session{
		t:    t,
		ctx:  ctx,
		ctrl: New(abbreviation.New(), staticResolver{cfg: cfg}, opts...),
		buf:  textbuf.New(text),
		id:   EditorID("file:///test"),
	}
	s.moveTo(caret)
	return s
}

func (s *session) typeText(text string) *Tracker {
	var last *Tracker
	for _, r := range text {
		s.buf.Insert(string(r))
		last = s.ctrl.HandleContentChange(s.ctx, s.id, s.buf)
	}
	return last
}

func (s *session) backspace(n int) *Tracker {
	s.buf.Backspace(n)
	return s.ctrl.HandleContentChange(s.ctx, s.id, s.buf)
}

func (s *session) moveTo(pt int) *Tracker {
	s.buf.SetCaret(pt)
	return s.ctrl.HandleSelectionChange(s.ctx, s.id, s.buf)
}

func (s *session) start(start, end int, opts StartOptions) *Tracker {
	s.t.Helper()
	tr, err := s.ctrl.StartTracking(s.ctx, s.id, s.buf, start, end, opts)
	require.NoError(s.t, err)
	require.NotNil(s.t, tr)
	return tr
}

func TestTypingStartsTracker(t *testing.T) {
	s := newSession(t, htmlConfig(), "", 0)

	tr := s.typeText("d")
	require.NotNil(t, tr)
	assert.Equal(t, position.Region{Start: 0, End: 1}, tr.Region)
	assert.Equal(t, "d", tr.Abbreviation)
	assert.Equal(t, ValidState{Simple: true, Matched: true, Preview: "<d></d>", Candidate: true}, tr.State)

	id := tr.ID
	tr = s.typeText("iv")
	require.NotNil(t, tr)
	assert.Equal(t, position.Region{Start: 0, End: 3}, tr.Region)
	assert.Equal(t, "div", tr.Abbreviation)
	assert.Equal(t, id, tr.ID)

	v, ok := tr.State.(ValidState)
	require.True(t, ok)
	assert.True(t, v.Simple)
	assert.True(t, v.Matched)
	assert.Equal(t, "<div></div>", v.Preview)
}

func TestTypingNeedsWordBoundary(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		caret int
		typed string
		track bool
	}{
		{name: "after_space", text: "hello ", caret: 6, typed: "p", track: true},
		{name: "after_tag", text: "<div>", caret: 5, typed: "p", track: true},
		{name: "mid_word", text: "hello", caret: 5, typed: "p", track: false},
		{name: "digit_start", text: " ", caret: 1, typed: "1", track: false},
		{name: "class_start", text: " ", caret: 1, typed: ".", track: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, htmlConfig(), tt.text, tt.caret)
			tr := s.typeText(tt.typed)
			assert.Equal(t, tt.track, tr != nil)
		})
	}
}

func TestTypingRequiresAdjacentCaret(t *testing.T) {
	s := newSession(t, htmlConfig(), "x ", 2)

	// a paste moves the caret by more than one rune
	s.buf.Insert("ul")
	assert.Nil(t, s.ctrl.HandleContentChange(s.ctx, s.id, s.buf))
}

func TestTypingRespectsAutoMark(t *testing.T) {
	s := newSession(t, htmlConfig(), "", 0, WithAutoMark(AutoMarkStylesheet))
	assert.Nil(t, s.typeText("d"))

	s.ctrl.SetAutoMark(AutoMarkMarkup)
	assert.NotNil(t, s.typeText(" p"))
}

func TestTypingExtendsOverPairedCloser(t *testing.T) {
	s := newSession(t, htmlConfig(), "", 0)

	// the editor inserts both brackets and leaves the caret between them
	s.buf.Insert("()")
	s.buf.SetCaret(1)
	tr := s.ctrl.HandleContentChange(s.ctx, s.id, s.buf)

	require.NotNil(t, tr)
	assert.Equal(t, position.Region{Start: 0, End: 2}, tr.Region)
	assert.Equal(t, "()", tr.Abbreviation)
}

func TestTypingJSXNeedsPrefix(t *testing.T) {
	cfg := &engine.Config{Syntax: "jsx", Type: engine.TypeMarkup, JSX: true, Options: engine.Options{JSXPrefix: "<"}}
	s := newSession(t, cfg, "", 0)

	assert.Nil(t, s.typeText("<"))

	tr := s.typeText("d")
	require.NotNil(t, tr)
	assert.Equal(t, position.Region{Start: 0, End: 2}, tr.Region)
	assert.Equal(t, 1, tr.Offset)
	assert.Equal(t, "d", tr.Abbreviation)

	s2 := newSession(t, cfg, " ", 1)
	assert.Nil(t, s2.typeText("d"))
}

func TestTypingStylesheet(t *testing.T) {
	section := &engine.Config{Syntax: "css", Type: engine.TypeStylesheet, Context: &engine.Context{Scope: engine.ScopeSection}}

	t.Run("unknown_word_in_section_is_dropped", func(t *testing.T) {
		s := newSession(t, section, "", 0)
		assert.Nil(t, s.typeText("a"))
	})

	t.Run("property_is_tracked", func(t *testing.T) {
		s := newSession(t, section, "", 0)
		tr := s.typeText("m10")
		require.NotNil(t, tr)
		assert.Equal(t, "m10", tr.Abbreviation)
		v, ok := tr.State.(ValidState)
		require.True(t, ok)
		assert.Equal(t, "margin: 10px;", v.Preview)
		assert.False(t, v.Simple)
	})

	t.Run("class_start_is_not_a_property", func(t *testing.T) {
		s := newSession(t, section, "", 0)
		assert.Nil(t, s.typeText("."))
	})
}

func TestLeftEdgeDeletionShiftsRegion(t *testing.T) {
	s := newSession(t, htmlConfig(), "12 div", 6)
	s.start(3, 6, StartOptions{})

	s.moveTo(3)
	tr := s.backspace(2)

	require.NotNil(t, tr)
	assert.Equal(t, "1div", s.buf.String())
	assert.Equal(t, position.Region{Start: 1, End: 4}, tr.Region)
	assert.Equal(t, "div", tr.Abbreviation)
}

func TestInteriorInsertionGrowsRegion(t *testing.T) {
	s := newSession(t, htmlConfig(), "ul>li", 5)
	s.start(0, 5, StartOptions{})

	s.moveTo(2)
	s.buf.Insert("+p")
	tr := s.ctrl.HandleContentChange(s.ctx, s.id, s.buf)

	require.NotNil(t, tr)
	assert.Equal(t, position.Region{Start: 0, End: 7}, tr.Region)
	assert.Equal(t, "ul+p>li", tr.Abbreviation)
}

func TestForcedTrackerKeepsParseError(t *testing.T) {
	s := newSession(t, htmlConfig(), "div[", 4)

	tr := s.start(0, 4, StartOptions{Forced: true})
	assert.Equal(t, KindError, tr.State.Kind())

	tr = s.typeText("x")
	require.NotNil(t, tr)
	assert.Equal(t, KindError, tr.State.Kind())
	assert.Equal(t, "div[x", tr.Abbreviation)
	assert.True(t, tr.Forced)
}

func TestTrailingInvalidCharacterDisposes(t *testing.T) {
	t.Run("line_break", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "", 0)
		require.NotNil(t, s.typeText("div#"))

		assert.Nil(t, s.typeText("\n"))
		assert.Nil(t, s.ctrl.ActiveTracker(s.id))
	})

	t.Run("invalid_character", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "", 0)
		require.NotNil(t, s.typeText("div"))

		assert.Nil(t, s.typeText("%"))

		stored := s.ctrl.StoredTracker(s.id)
		require.NotNil(t, stored)
		assert.Equal(t, "div", stored.Abbreviation)
	})

	t.Run("error_before_caret_is_kept", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "", 0)
		require.NotNil(t, s.typeText("ul"))

		// the error sits at the first `>` while the caret is at the end
		s.moveTo(2)
		s.buf.Insert(">>")
		s.buf.SetCaret(3)
		tr := s.ctrl.HandleContentChange(s.ctx, s.id, s.buf)

		require.NotNil(t, tr)
		assert.Equal(t, KindError, tr.State.Kind())
	})
}

func TestEditOutsideRegionDisposes(t *testing.T) {
	s := newSession(t, htmlConfig(), "div x", 3)
	s.start(0, 3, StartOptions{})

	s.moveTo(5)
	assert.Nil(t, s.typeText("y"))
	assert.Nil(t, s.ctrl.ActiveTracker(s.id))
	require.NotNil(t, s.ctrl.StoredTracker(s.id))
}

func TestStopTracking(t *testing.T) {
	s := newSession(t, htmlConfig(), "div", 3)

	assert.Nil(t, s.ctrl.StopTracking(s.ctx, s.id, StopOptions{}))

	s.start(0, 3, StartOptions{})
	stopped := s.ctrl.StopTracking(s.ctx, s.id, StopOptions{})
	require.NotNil(t, stopped)
	assert.Nil(t, s.ctrl.ActiveTracker(s.id))
	assert.Equal(t, stopped.ID, s.ctrl.StoredTracker(s.id).ID)

	s.start(0, 3, StartOptions{})
	require.NotNil(t, s.ctrl.StopTracking(s.ctx, s.id, StopOptions{Force: true}))
	assert.Nil(t, s.ctrl.StoredTracker(s.id))
}

func TestSelectionRestoresStoredTracker(t *testing.T) {
	s := newSession(t, htmlConfig(), "div xyz", 3)
	started := s.start(0, 3, StartOptions{})
	s.ctrl.StopTracking(s.ctx, s.id, StopOptions{})

	assert.Nil(t, s.moveTo(6))

	tr := s.moveTo(2)
	require.NotNil(t, tr)
	assert.Equal(t, started.ID, tr.ID)
	assert.Equal(t, position.Region{Start: 0, End: 3}, tr.Region)
	assert.Equal(t, 2, tr.LastPos)
}

func TestSelectionDoesNotRestoreChangedText(t *testing.T) {
	s := newSession(t, htmlConfig(), "div xyz", 3)
	s.start(0, 3, StartOptions{})
	s.ctrl.StopTracking(s.ctx, s.id, StopOptions{})

	s.moveTo(7)
	s.typeText("!")
	s.buf.Replace(position.Region{Start: 0, End: 1}, "D")
	s.ctrl.HandleContentChange(s.ctx, s.id, s.buf)
	assert.Nil(t, s.ctrl.StoredTracker(s.id))

	assert.Nil(t, s.moveTo(2))
}

func TestUndoRestoresTracker(t *testing.T) {
	t.Run("from_marker", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "ul>li", 5)
		original := s.start(0, 5, StartOptions{})
		s.ctrl.StopTracking(s.ctx, s.id, StopOptions{Force: true})

		s.buf.SetAbbreviationMarker(&position.Region{Start: 0, End: 5})
		tr := s.ctrl.HandleUndo(s.ctx, s.id, s.buf)

		require.NotNil(t, tr)
		assert.NotEqual(t, original.ID, tr.ID)
		assert.Equal(t, original.Region, tr.Region)
		assert.Equal(t, original.State, tr.State)
	})

	t.Run("after_expand", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "ul>li", 5)
		original := s.start(0, 5, StartOptions{})

		exp, err := s.ctrl.Expand(s.ctx, s.id, s.buf)
		require.NoError(t, err)
		assert.Equal(t, "<ul>\n\t<li>${1}</li>\n</ul>", exp.Snippet)

		s.buf.SetAbbreviationMarker(&exp.Region)
		s.buf.Replace(exp.Region, exp.Snippet)
		s.buf.SetAbbreviationMarker(nil)
		assert.Nil(t, s.ctrl.HandleContentChange(s.ctx, s.id, s.buf))
		require.NotNil(t, s.ctrl.StoredTracker(s.id))

		require.True(t, s.buf.Undo())
		assert.Nil(t, s.ctrl.HandleContentChange(s.ctx, s.id, s.buf))
		require.NotNil(t, s.ctrl.StoredTracker(s.id))

		tr := s.ctrl.HandleUndo(s.ctx, s.id, s.buf)
		require.NotNil(t, tr)
		assert.Equal(t, original.Region, tr.Region)
		assert.Equal(t, original.State, tr.State)
		assert.Equal(t, "ul>li", tr.Abbreviation)
	})

	t.Run("marker_reuses_stored_options", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "<div", 4)
		cfg := htmlConfig()
		original := s.start(0, 4, StartOptions{Offset: 1, Config: cfg})
		s.ctrl.StopTracking(s.ctx, s.id, StopOptions{})
		require.NotNil(t, s.ctrl.StoredTracker(s.id))

		s.buf.SetAbbreviationMarker(&position.Region{Start: 0, End: 4})
		tr := s.ctrl.HandleUndo(s.ctx, s.id, s.buf)

		require.NotNil(t, tr)
		assert.NotEqual(t, original.ID, tr.ID)
		assert.Same(t, cfg, tr.Config)
		assert.Equal(t, 1, tr.Offset)
		assert.Equal(t, "div", tr.Abbreviation)
	})

	t.Run("failed_restore_stores_live_tracker", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "ul\nli", 2)
		live := s.start(0, 2, StartOptions{})

		s.buf.SetAbbreviationMarker(&position.Region{Start: 0, End: 5})
		assert.Nil(t, s.ctrl.HandleUndo(s.ctx, s.id, s.buf))

		assert.Nil(t, s.ctrl.ActiveTracker(s.id))
		stored := s.ctrl.StoredTracker(s.id)
		require.NotNil(t, stored)
		assert.Equal(t, live.ID, stored.ID)
	})

	t.Run("nothing_to_restore", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "ul>li", 5)
		assert.Nil(t, s.ctrl.HandleUndo(s.ctx, s.id, s.buf))
	})
}

func TestSuggestTracker(t *testing.T) {
	t.Run("extracts_left_of_caret", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "hello ul>li", 11)
		tr := s.ctrl.SuggestTracker(s.ctx, s.id, s.buf, false)
		require.NotNil(t, tr)
		assert.Equal(t, position.Region{Start: 6, End: 11}, tr.Region)
		assert.Equal(t, "ul>li", tr.Abbreviation)
		assert.False(t, tr.Forced)
	})

	t.Run("forced_empty_when_nothing_found", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "hello ", 6)
		assert.Nil(t, s.ctrl.SuggestTracker(s.ctx, s.id, s.buf, false))

		tr := s.ctrl.SuggestTracker(s.ctx, s.id, s.buf, true)
		require.NotNil(t, tr)
		assert.True(t, tr.Forced)
		assert.Equal(t, position.Point(6), tr.Region)
		assert.Equal(t, EmptyState{}, tr.State)
	})

	t.Run("jsx_prefix", func(t *testing.T) {
		cfg := &engine.Config{Syntax: "jsx", Type: engine.TypeMarkup, JSX: true, Options: engine.Options{JSXPrefix: "<"}}
		s := newSession(t, cfg, "x <div", 6)
		tr := s.ctrl.SuggestTracker(s.ctx, s.id, s.buf, false)
		require.NotNil(t, tr)
		assert.Equal(t, position.Region{Start: 2, End: 6}, tr.Region)
		assert.Equal(t, 1, tr.Offset)
		assert.Equal(t, "div", tr.Abbreviation)
	})

	t.Run("stops_tracker_elsewhere", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "div span", 3)
		first := s.start(0, 3, StartOptions{})

		s.moveTo(8)
		tr := s.ctrl.SuggestTracker(s.ctx, s.id, s.buf, false)
		require.NotNil(t, tr)
		assert.NotEqual(t, first.ID, tr.ID)
		assert.Equal(t, "span", tr.Abbreviation)
		assert.Equal(t, first.ID, s.ctrl.StoredTracker(s.id).ID)
	})
}

func TestEnterAbbreviationModeToggles(t *testing.T) {
	s := newSession(t, htmlConfig(), "ab ", 3)

	tr := s.ctrl.EnterAbbreviationMode(s.ctx, s.id, s.buf, position.Point(3))
	require.NotNil(t, tr)
	assert.True(t, tr.Forced)
	assert.Equal(t, EmptyState{}, tr.State)

	tr = s.typeText("d")
	require.NotNil(t, tr)
	assert.Equal(t, position.Region{Start: 3, End: 4}, tr.Region)

	tr = s.backspace(1)
	require.NotNil(t, tr)
	assert.Equal(t, EmptyState{}, tr.State)
	assert.Equal(t, position.Point(3), tr.Region)

	assert.Nil(t, s.ctrl.EnterAbbreviationMode(s.ctx, s.id, s.buf, position.Point(3)))
	assert.Nil(t, s.ctrl.ActiveTracker(s.id))
	assert.Nil(t, s.ctrl.StoredTracker(s.id))
}

func TestExpandErrors(t *testing.T) {
	t.Run("no_tracker", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "div", 3)
		_, err := s.ctrl.Expand(s.ctx, s.id, s.buf)
		require.ErrorIs(t, err, ErrNoTracker)
	})

	t.Run("caret_outside", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "div  ", 3)
		s.start(0, 3, StartOptions{})
		s.moveTo(5)
		_, err := s.ctrl.Expand(s.ctx, s.id, s.buf)
		require.ErrorIs(t, err, ErrNoTracker)
	})

	t.Run("parse_error", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "div[", 4)
		s.start(0, 4, StartOptions{Forced: true})
		_, err := s.ctrl.Expand(s.ctx, s.id, s.buf)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.True(t, errors.Is(err, ErrParse))
	})

	t.Run("empty", func(t *testing.T) {
		s := newSession(t, htmlConfig(), "", 0)
		s.start(0, 0, StartOptions{Forced: true})
		_, err := s.ctrl.Expand(s.ctx, s.id, s.buf)
		require.ErrorIs(t, err, ErrNothingToExpand)
	})
}

func TestExpandWithOptions(t *testing.T) {
	s := newSession(t, htmlConfig(), "ul>li", 5)
	s.start(0, 5, StartOptions{})

	exp, err := s.ctrl.Expand(s.ctx, s.id, s.buf, engine.WithIndent("  "), engine.WithField(engine.FieldPreview))
	require.NoError(t, err)
	assert.Equal(t, "<ul>\n  <li></li>\n</ul>", exp.Snippet)
	assert.Equal(t, position.Region{Start: 0, End: 5}, exp.Region)
	assert.Nil(t, s.ctrl.ActiveTracker(s.id))
}

func TestDisposeForgetsEditor(t *testing.T) {
	s := newSession(t, htmlConfig(), "div", 3)
	s.start(0, 3, StartOptions{})
	s.ctrl.StopTracking(s.ctx, s.id, StopOptions{})

	s.ctrl.Dispose(s.id)
	assert.Nil(t, s.ctrl.ActiveTracker(s.id))
	assert.Nil(t, s.ctrl.StoredTracker(s.id))
}

func TestCandidateFlag(t *testing.T) {
	cfg := htmlConfig()
	cfg.Options.KnownSnippetsOnly = true

	s := newSession(t, cfg, "", 0)
	tr := s.typeText("foo")
	require.NotNil(t, tr)
	v, ok := tr.State.(ValidState)
	require.True(t, ok)
	assert.False(t, v.Candidate)

	tr = s.typeText(".x")
	require.NotNil(t, tr)
	v, ok = tr.State.(ValidState)
	require.True(t, ok)
	assert.True(t, v.Candidate)
}
