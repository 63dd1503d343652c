package lsp

import (
	"context"

	"github.com/walteh/emmetls/pkg/lsp/protocol"
	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/tracker"
)

const diagnosticSource = "emmet"

// publish pushes the live tracker of doc, marks its region in the buffer
// and reports its syntax error, if any, as a diagnostic.
func (s *Server) publish(ctx context.Context, doc *Document) {
	t := s.controller.ActiveTracker(doc.EditorID())
	if t != nil {
		r := t.Region
		doc.SetAbbreviationMarker(&r)
	}

	s.notify(ctx, protocol.MethodAbbreviationState, s.stateParams(doc, t))
	s.notify(ctx, protocol.MethodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     doc.Version,
		Diagnostics: diagnostics(doc, t),
	})
}

func (s *Server) stateParams(doc *Document, t *tracker.Tracker) *protocol.AbbreviationStateParams {
	return &protocol.AbbreviationStateParams{URI: doc.URI, Tracker: trackerState(doc, t, s.Settings().AbbreviationPreview)}
}

func trackerState(doc *Document, t *tracker.Tracker, preview bool) *protocol.TrackerState {
	if t == nil {
		return nil
	}
	ts := &protocol.TrackerState{
		ID:           t.ID,
		Range:        doc.Range(t.Region),
		Kind:         t.State.Kind().String(),
		Abbreviation: t.Abbreviation,
		Forced:       t.Forced,
	}
	switch st := t.State.(type) {
	case tracker.ValidState:
		ts.Simple = st.Simple
		ts.Matched = st.Matched
		if preview {
			ts.Preview = st.Preview
		}
	case tracker.ErrorState:
		ts.Error = &protocol.AbbreviationError{Message: st.Message, Pos: st.Pos, Pointer: st.Pointer}
	}
	return ts
}

func diagnostics(doc *Document, t *tracker.Tracker) []protocol.Diagnostic {
	if t == nil {
		return []protocol.Diagnostic{}
	}
	st, ok := t.State.(tracker.ErrorState)
	if !ok {
		return []protocol.Diagnostic{}
	}
	at := min(t.Region.Start+t.Offset+st.Pos, t.Region.End)
	r := position.Region{Start: at, End: min(at+1, t.Region.End)}
	if r.Empty() && at > t.Region.Start {
		r.Start--
	}
	return []protocol.Diagnostic{{
		Range:    doc.Range(r),
		Severity: protocol.SeverityError,
		Source:   diagnosticSource,
		Message:  st.Message,
	}}
}
