package replay

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/report"
	"github.com/walteh/emmetls/pkg/tracker"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).With().Str("test", t.Name()).Logger().WithContext(context.Background())
}

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(`
text: "x "
caret: 2
steps:
  - type: ul>li
  - backspace: 2
  - move: 0
  - enter: [0, 1]
  - capture: true
  - expand: true
  - undo: true
  - stop: true
`))
	require.NoError(t, err)
	assert.Equal(t, "html", s.Syntax)
	assert.Equal(t, 2, s.Caret)
	require.Len(t, s.Steps, 8)
	assert.Equal(t, `type "ul>li"`, s.Steps[0].String())
	assert.Equal(t, "backspace 2", s.Steps[1].String())
	assert.Equal(t, "enter abbreviation mode [0 1]", s.Steps[3].String())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("steps:\n  - paste: x\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	s := &Script{
		Syntax:   "cobol",
		AutoMark: "sometimes",
		Text:     "ab",
		Caret:    5,
		Steps: []Step{
			{},
			{Expand: true, Undo: true},
			{Enter: []int{1}},
		},
	}

	err := s.Validate()
	require.ErrorIs(t, err, ErrInvalidScript)
	assert.Contains(t, err.Error(), "6 errors occurred")

	s = &Script{Syntax: "css", Steps: []Step{{Suggest: true}}}
	require.NoError(t, s.Validate())
}

func TestSessionTypingExpandUndo(t *testing.T) {
	ctx := testContext(t)
	typed := "ul>li"
	sess, err := NewSession(ctx, &Script{Syntax: "html"}, nil)
	require.NoError(t, err)

	tr, err := sess.Apply(ctx, Step{Type: &typed})
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "ul>li", tr.Abbreviation)
	marker, ok := sess.Buffer.AbbreviationMarker()
	require.True(t, ok)
	assert.Equal(t, position.Region{Start: 0, End: 5}, marker)

	tr, err = sess.Apply(ctx, Step{Expand: true})
	require.NoError(t, err)
	assert.Nil(t, tr)
	assert.Equal(t, "<ul>\n\t<li></li>\n</ul>", sess.Buffer.String())

	tr, err = sess.Apply(ctx, Step{Undo: true})
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "ul>li", sess.Buffer.String())
	assert.Equal(t, "ul>li", tr.Abbreviation)
	assert.Equal(t, position.Region{Start: 0, End: 5}, tr.Region)

	tr, err = sess.Apply(ctx, Step{Stop: true})
	require.NoError(t, err)
	assert.Nil(t, tr)
	assert.Nil(t, sess.Controller.StoredTracker(editor))
}

func TestSessionTracksFirstTypedAbbreviation(t *testing.T) {
	tests := []struct {
		name   string
		script *Script
		typed  string
		want   position.Region
	}{
		{name: "empty_buffer", script: &Script{Syntax: "html"}, typed: "div", want: position.Region{Start: 0, End: 3}},
		{name: "after_text", script: &Script{Syntax: "html", Text: "<p> ", Caret: 4}, typed: "ul>li", want: position.Region{Start: 4, End: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			sess, err := NewSession(ctx, tt.script, nil)
			require.NoError(t, err)

			tr, err := sess.Apply(ctx, Step{Type: &tt.typed})
			require.NoError(t, err)
			require.NotNil(t, tr)
			assert.Equal(t, tt.typed, tr.Abbreviation)
			assert.Equal(t, tt.want, tr.Region)
		})
	}
}

func TestSessionEnterAbbreviationMode(t *testing.T) {
	ctx := testContext(t)
	sess, err := NewSession(ctx, &Script{Syntax: "html", Text: "a div", Caret: 5}, nil)
	require.NoError(t, err)

	tr, err := sess.Apply(ctx, Step{Enter: []int{2, 5}})
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.True(t, tr.Forced)
	assert.Equal(t, "div", tr.Abbreviation)

	tr, err = sess.Apply(ctx, Step{Enter: []int{2, 5}})
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestSessionAutoMarkOverride(t *testing.T) {
	ctx := testContext(t)
	typed := "div"
	sess, err := NewSession(ctx, &Script{Syntax: "html", AutoMark: "false"}, nil)
	require.NoError(t, err)

	tr, err := sess.Apply(ctx, Step{Type: &typed})
	require.NoError(t, err)
	assert.Nil(t, tr)

	tr, err = sess.Apply(ctx, Step{Capture: true})
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "div", tr.Abbreviation)
}

func TestRun(t *testing.T) {
	ctx := testContext(t)
	script, err := Load(strings.NewReader(`
syntax: html
steps:
  - undo: true
  - expand: true
  - type: "ul>li"
  - expand: true
`))
	require.NoError(t, err)

	var out bytes.Buffer
	sess, err := Run(ctx, script, nil, report.NewPrinter(&out, false))
	require.NoError(t, err)
	assert.Equal(t, "<ul>\n\t<li></li>\n</ul>", sess.Buffer.String())

	got := out.String()
	assert.Contains(t, got, "1. undo\n  nothing to undo\n")
	assert.Contains(t, got, tracker.ErrNoTracker.Error())
	assert.Contains(t, got, `3. type "ul>li"`)
	assert.Contains(t, got, `valid "ul>li" [0:5]`)
	assert.Contains(t, got, "    \t<li></li>\n")
	assert.Contains(t, got, "4. expand\n  no abbreviation\n")
}
