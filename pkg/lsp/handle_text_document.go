package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"

	"github.com/walteh/emmetls/pkg/lsp/protocol"
	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/tracker"
)

func documentNotFound(uri protocol.DocumentURI) *jrpc2.Error {
	return &jrpc2.Error{Code: -32602, Message: "document not open: " + string(uri)}
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := newDocument(params.TextDocument)
	s.configure(ctx, doc)
	s.documents.Store(doc)

	zerolog.Ctx(ctx).Debug().
		Str("uri", string(doc.URI)).
		Str("syntax", doc.Syntax).
		Int("size", doc.Size()).
		Msg("document opened")
	return nil
}

// DidChange applies the edits in order. The caret is assumed to sit at one
// end of each edited range. When it does not, the edit is treated as a caret
// move followed by typing at the end of the range.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return documentNotFound(params.TextDocument.URI)
	}
	doc.Version = params.TextDocument.Version
	id := doc.EditorID()

	for _, change := range params.ContentChanges {
		if change.Range == nil {
			s.controller.StopTracking(ctx, id, tracker.StopOptions{})
			doc.Replace(position.Region{Start: 0, End: doc.Size()}, change.Text)
			doc.caretKnown = false
			continue
		}

		region := doc.Region(*change.Range)
		if caret := doc.Caret(); !doc.caretKnown || (caret != region.Start && caret != region.End) {
			doc.SetCaret(region.End)
			doc.caretKnown = true
			s.controller.HandleSelectionChange(ctx, id, doc)
		}
		doc.Replace(region, change.Text)
		s.controller.HandleContentChange(ctx, id, doc)
	}

	s.publish(ctx, doc)
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil
	}
	s.controller.Dispose(doc.EditorID())
	s.documents.Delete(doc.URI)
	s.notify(ctx, protocol.MethodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) DidChangeSelection(ctx context.Context, params *protocol.SelectionChangeParams) error {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return documentNotFound(params.TextDocument.URI)
	}
	s.moveCaret(ctx, doc, params.Position)
	s.publish(ctx, doc)
	return nil
}

// moveCaret reports a caret move to the controller when pos is not where
// the caret already is.
func (s *Server) moveCaret(ctx context.Context, doc *Document, pos protocol.Position) {
	off := doc.Offset(pos)
	if doc.caretKnown && doc.Caret() == off {
		return
	}
	doc.SetCaret(off)
	doc.caretKnown = true
	s.controller.HandleSelectionChange(ctx, doc.EditorID(), doc)
}
