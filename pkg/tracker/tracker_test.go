package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/abbreviation"
	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/textbuf"
)

func htmlConfig() *engine.Config {
	return &engine.Config{Syntax: "html", Type: engine.TypeMarkup}
}

func TestRevalidate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		region   position.Region
		offset   int
		forced   bool
		err      error
		expected StateKind
	}{
		{name: "valid", text: "ul>li", region: position.Region{Start: 0, End: 5}, expected: KindValid},
		{name: "prefix_stripped", text: "<div", region: position.Region{Start: 0, End: 4}, offset: 1, expected: KindValid},
		{name: "empty_non_forced", text: "abc", region: position.Point(1), err: ErrRegionEmptyNonForced},
		{name: "empty_forced", text: "abc", region: position.Point(1), forced: true, expected: KindEmpty},
		{name: "multiline", text: "ul\nli", region: position.Region{Start: 0, End: 5}, err: ErrMultilineRejected},
		{name: "multiline_forced", text: "ul\nli", region: position.Region{Start: 0, End: 5}, forced: true, err: ErrMultilineRejected},
		{name: "out_of_bounds", text: "ul", region: position.Region{Start: 0, End: 9}, err: ErrRegionOutOfBounds},
		{name: "syntax_error", text: "ul>>li", region: position.Region{Start: 0, End: 6}, err: ErrParse, expected: KindError},
	}

	eng := abbreviation.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker(tt.region, tt.offset, tt.forced, htmlConfig())
			err := tr.Revalidate(textbuf.New(tt.text), eng)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				if tt.expected == KindError {
					assert.Equal(t, KindError, tr.State.Kind())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tr.State.Kind())
		})
	}
}

func TestRevalidateIsIdempotent(t *testing.T) {
	buf := textbuf.New("x ul>li.item")
	tr := newTracker(position.Region{Start: 2, End: 12}, 0, false, htmlConfig())

	eng := abbreviation.New()
	require.NoError(t, tr.Revalidate(buf, eng))
	first := tr.Clone()

	require.NoError(t, tr.Revalidate(buf, eng))
	assert.Equal(t, first.State, tr.State)
	assert.Equal(t, first.Abbreviation, tr.Abbreviation)
	assert.Equal(t, first.Region, tr.Region)
}

func TestRevalidateSyntaxErrorFromEngine(t *testing.T) {
	cfg := htmlConfig()
	eng := &MockEngine{}
	eng.On("Validate", "div%", cfg).Return(nil, &engine.SyntaxError{Message: "Unexpected character\nat the end", Pos: 3})

	tr := newTracker(position.Region{Start: 0, End: 4}, 0, false, cfg)
	err := tr.Revalidate(textbuf.New("div%"), eng)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.True(t, errors.Is(err, ErrParse))
	assert.Equal(t, 3, perr.Pos)
	assert.Equal(t, ErrorState{Message: "Unexpected character", Pos: 3, Pointer: "---^"}, tr.State)
	eng.AssertExpectations(t)
}

func TestRevalidateRecoversEnginePanic(t *testing.T) {
	cfg := htmlConfig()
	eng := &MockEngine{}
	eng.On("Validate", "div", cfg).Panic("boom")

	tr := newTracker(position.Region{Start: 0, End: 3}, 0, false, cfg)
	err := tr.Revalidate(textbuf.New("div"), eng)

	require.ErrorIs(t, err, ErrParse)
	assert.Equal(t, ErrorState{Message: "boom"}, tr.State)
}

func TestRevalidateEmptyStylesheetPreview(t *testing.T) {
	cfg := &engine.Config{Syntax: "css", Type: engine.TypeStylesheet}
	eng := &MockEngine{}
	eng.On("Validate", "zz", cfg).Return(&engine.Validation{}, nil)
	eng.On("Expand", "zz", mock.Anything).Return("", nil)

	tr := newTracker(position.Region{Start: 0, End: 2}, 0, false, cfg)
	require.ErrorIs(t, tr.Revalidate(textbuf.New("zz"), eng), ErrEmptyPreview)

	forced := newTracker(position.Region{Start: 0, End: 2}, 0, true, cfg)
	require.NoError(t, forced.Revalidate(textbuf.New("zz"), eng))
	assert.Equal(t, KindValid, forced.State.Kind())
}

func TestUpdateRegion(t *testing.T) {
	r := position.Region{Start: 4, End: 8}

	tests := []struct {
		name     string
		delta    int
		pos      int
		expected position.Region
	}{
		{name: "delete_at_start_shifts", delta: -2, pos: 4, expected: position.Region{Start: 2, End: 6}},
		{name: "delete_inside_shrinks", delta: -1, pos: 6, expected: position.Region{Start: 4, End: 7}},
		{name: "delete_at_end_shrinks", delta: -1, pos: 8, expected: position.Region{Start: 4, End: 7}},
		{name: "insert_at_start_grows", delta: 3, pos: 4, expected: position.Region{Start: 4, End: 11}},
		{name: "insert_at_end_grows", delta: 1, pos: 8, expected: position.Region{Start: 4, End: 9}},
		{name: "insert_outside_noop", delta: 1, pos: 9, expected: r},
		{name: "delete_outside_noop", delta: -1, pos: 2, expected: r},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, updateRegion(r, tt.delta, tt.pos))
		})
	}
}
