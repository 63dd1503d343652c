// Package replay drives the tracker with a scripted editing session. It is
// used to reproduce tracker behaviour outside of an editor.
package replay

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/emmetls/pkg/abbreviation"
	"github.com/walteh/emmetls/pkg/config"
	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/report"
	"github.com/walteh/emmetls/pkg/syntax"
	"github.com/walteh/emmetls/pkg/textbuf"
	"github.com/walteh/emmetls/pkg/tracker"
)

var ErrInvalidScript = errors.Base("invalid replay script")

const editor = tracker.EditorID("replay")

// Step is one editor action. Exactly one field is set.
type Step struct {
	Type      *string `yaml:"type,omitempty"`
	Backspace int     `yaml:"backspace,omitempty"`
	Move      *int    `yaml:"move,omitempty"`
	Select    []int   `yaml:"select,omitempty"`
	Enter     []int   `yaml:"enter,omitempty"`
	Suggest   bool    `yaml:"suggest,omitempty"`
	Capture   bool    `yaml:"capture,omitempty"`
	Expand    bool    `yaml:"expand,omitempty"`
	Undo      bool    `yaml:"undo,omitempty"`
	Stop      bool    `yaml:"stop,omitempty"`
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Type != nil, s.Backspace > 0, s.Move != nil, s.Select != nil, s.Enter != nil, s.Suggest, s.Capture, s.Expand, s.Undo, s.Stop} {
		if set {
			n++
		}
	}
	return n
}

func (s Step) String() string {
	switch {
	case s.Type != nil:
		return fmt.Sprintf("type %q", *s.Type)
	case s.Backspace > 0:
		return fmt.Sprintf("backspace %d", s.Backspace)
	case s.Move != nil:
		return fmt.Sprintf("move %d", *s.Move)
	case s.Select != nil:
		return fmt.Sprintf("select %v", s.Select)
	case s.Enter != nil:
		return fmt.Sprintf("enter abbreviation mode %v", s.Enter)
	case s.Suggest:
		return "suggest"
	case s.Capture:
		return "capture"
	case s.Expand:
		return "expand"
	case s.Undo:
		return "undo"
	case s.Stop:
		return "stop"
	}
	return "noop"
}

type Script struct {
	Syntax   string `yaml:"syntax"`
	Text     string `yaml:"text"`
	Caret    int    `yaml:"caret"`
	AutoMark string `yaml:"auto_mark"`
	Steps    []Step `yaml:"steps"`
}

func Load(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Errorf("decoding replay script: %w", err)
	}
	if s.Syntax == "" {
		s.Syntax = "html"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every malformed step at once.
func (s *Script) Validate() error {
	var result *multierror.Error
	if !syntax.IsSupported(s.Syntax) {
		result = multierror.Append(result, errors.Errorf("syntax %q: %w", s.Syntax, syntax.ErrUnknownSyntax))
	}
	if _, err := config.ParseAutoMark(s.AutoMark); err != nil {
		result = multierror.Append(result, err)
	}
	if s.Caret < 0 || s.Caret > len([]rune(s.Text)) {
		result = multierror.Append(result, errors.Errorf("caret %d outside of text", s.Caret))
	}
	for i, step := range s.Steps {
		if n := step.actions(); n != 1 {
			result = multierror.Append(result, errors.Errorf("step %d: expected one action, got %d", i+1, n))
		}
		for _, r := range [][]int{step.Select, step.Enter} {
			if r != nil && len(r) != 2 {
				result = multierror.Append(result, errors.Errorf("step %d: a region needs a start and an end", i+1))
			}
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return errors.Errorf("%w: %s", ErrInvalidScript, err.Error())
	}
	return nil
}

// Session is a buffer and a controller wired the way an editor would be.
type Session struct {
	Buffer     *textbuf.Buffer
	Controller *tracker.Controller
	Config     *engine.Config
}

// NewSession opens the script's text with the caret in place, the way an
// editor reports a freshly activated view.
func NewSession(ctx context.Context, s *Script, settings *config.Settings) (*Session, error) {
	if settings == nil {
		settings = config.Defaults()
	}
	cfg, err := settings.EngineConfig(s.Syntax, "")
	if err != nil {
		return nil, err
	}
	mode := settings.AutoMarkMode()
	if s.AutoMark != "" {
		if mode, err = config.ParseAutoMark(s.AutoMark); err != nil {
			return nil, err
		}
	}

	eng := abbreviation.New()
	buf := textbuf.New(s.Text)
	buf.SetCaret(s.Caret)

	sess := &Session{
		Buffer:     buf,
		Controller: tracker.New(eng, syntax.NewResolver(syntax.Static(cfg)), tracker.WithAutoMark(mode)),
		Config:     cfg,
	}
	sess.Controller.HandleSelectionChange(ctx, editor, buf)
	return sess, nil
}

// Apply performs step and returns the live tracker afterwards.
func (s *Session) Apply(ctx context.Context, step Step) (*tracker.Tracker, error) {
	buf, ctrl := s.Buffer, s.Controller

	switch {
	case step.Type != nil:
		for _, r := range *step.Type {
			buf.Insert(string(r))
			ctrl.HandleContentChange(ctx, editor, buf)
			s.mark()
		}
	case step.Backspace > 0:
		for i := 0; i < step.Backspace; i++ {
			buf.Backspace(1)
			ctrl.HandleContentChange(ctx, editor, buf)
			s.mark()
		}
	case step.Move != nil:
		buf.SetCaret(*step.Move)
		ctrl.HandleSelectionChange(ctx, editor, buf)
	case step.Select != nil:
		buf.SetCaret(step.Select[1])
		ctrl.HandleSelectionChange(ctx, editor, buf)
	case step.Enter != nil:
		sel := position.NewRegion(step.Enter[0], step.Enter[1])
		buf.SetCaret(sel.End)
		ctrl.HandleSelectionChange(ctx, editor, buf)
		ctrl.EnterAbbreviationMode(ctx, editor, buf, sel)
	case step.Suggest || step.Capture:
		ctrl.SuggestTracker(ctx, editor, buf, step.Capture)
	case step.Expand:
		exp, err := ctrl.Expand(ctx, editor, buf, engine.WithField(engine.FieldPreview))
		if err != nil {
			return nil, errors.Errorf("expand: %w", err)
		}
		buf.Replace(exp.Region, exp.Snippet)
		ctrl.HandleContentChange(ctx, editor, buf)
	case step.Undo:
		if !buf.Undo() {
			return nil, errors.New("nothing to undo")
		}
		ctrl.HandleContentChange(ctx, editor, buf)
		ctrl.HandleUndo(ctx, editor, buf)
	case step.Stop:
		ctrl.StopTracking(ctx, editor, tracker.StopOptions{Force: true})
		buf.SetAbbreviationMarker(nil)
	}

	s.mark()
	return ctrl.ActiveTracker(editor), nil
}

// mark keeps the buffer marker on the live tracker so that undo can find it.
func (s *Session) mark() {
	if t := s.Controller.ActiveTracker(editor); t != nil {
		r := t.Region
		s.Buffer.SetAbbreviationMarker(&r)
	}
}

// Run replays every step and prints the tracker after each one. A failing
// step is printed and does not stop the replay.
func Run(ctx context.Context, script *Script, settings *config.Settings, p *report.Printer) (*Session, error) {
	sess, err := NewSession(ctx, script, settings)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)

	for i, step := range script.Steps {
		p.Heading("%d. %s", i+1, step)
		t, err := sess.Apply(ctx, step)
		if err != nil {
			logger.Debug().Err(err).Int("step", i+1).Msg("step failed")
			p.Text("  " + err.Error())
			continue
		}
		p.Tracker(t)
	}

	p.Heading("text")
	p.Text(sess.Buffer.String())
	return sess, nil
}
