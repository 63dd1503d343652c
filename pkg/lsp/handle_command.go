package lsp

import (
	"context"
	"encoding/json"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/lsp/protocol"
	"github.com/walteh/emmetls/pkg/position"
	"github.com/walteh/emmetls/pkg/tracker"
)

const (
	CommandEnterAbbreviation   = "emmet.enterAbbreviation"
	CommandClearAbbreviation   = "emmet.clearAbbreviation"
	CommandCaptureAbbreviation = "emmet.captureAbbreviation"
	CommandExpandAbbreviation  = "emmet.expandAbbreviation"
	CommandUndo                = "emmet.undo"
)

var Commands = []string{
	CommandEnterAbbreviation,
	CommandClearAbbreviation,
	CommandCaptureAbbreviation,
	CommandExpandAbbreviation,
	CommandUndo,
}

func invalidParams(msg string) *jrpc2.Error {
	return &jrpc2.Error{Code: -32602, Message: msg}
}

// ExecuteCommand runs one of Commands. Every command takes a single
// CommandArguments. emmet.expandAbbreviation returns the WorkspaceEdit to
// apply, the others return the resulting abbreviation state.
func (s *Server) ExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (any, error) {
	if len(params.Arguments) != 1 {
		return nil, invalidParams(params.Command + " takes exactly one argument")
	}
	var args protocol.CommandArguments
	if err := json.Unmarshal(params.Arguments[0], &args); err != nil {
		return nil, invalidParams(err.Error())
	}
	doc, ok := s.documents.Get(args.TextDocument.URI)
	if !ok {
		return nil, documentNotFound(args.TextDocument.URI)
	}
	id := doc.EditorID()

	zerolog.Ctx(ctx).Debug().Str("command", params.Command).Str("uri", string(doc.URI)).Msg("executing command")

	switch params.Command {
	case CommandEnterAbbreviation:
		sel := position.Point(doc.Offset(args.Position))
		if args.Range != nil {
			sel = doc.Region(*args.Range)
		}
		s.moveCaret(ctx, doc, args.Position)
		s.controller.EnterAbbreviationMode(ctx, id, doc, sel)
	case CommandClearAbbreviation:
		s.controller.StopTracking(ctx, id, tracker.StopOptions{Force: true})
		doc.SetAbbreviationMarker(nil)
	case CommandCaptureAbbreviation:
		s.moveCaret(ctx, doc, args.Position)
		s.controller.SuggestTracker(ctx, id, doc, true)
	case CommandExpandAbbreviation:
		return s.expand(ctx, doc, args.Position)
	case CommandUndo:
		s.moveCaret(ctx, doc, args.Position)
		s.controller.HandleUndo(ctx, id, doc)
	default:
		return nil, &jrpc2.Error{Code: -32601, Message: "unknown command " + params.Command}
	}

	s.publish(ctx, doc)
	return s.stateParams(doc, s.controller.ActiveTracker(id)), nil
}

// expand renders the live tracker as plain text. Clients without snippet
// support apply the returned edit as is.
func (s *Server) expand(ctx context.Context, doc *Document, pos protocol.Position) (*protocol.WorkspaceEdit, error) {
	s.moveCaret(ctx, doc, pos)

	exp, err := s.controller.Expand(ctx, doc.EditorID(), doc, engine.WithField(engine.FieldPreview))
	if err != nil {
		if errors.Is(err, tracker.ErrNoTracker) || errors.Is(err, tracker.ErrNothingToExpand) || errors.Is(err, tracker.ErrParse) {
			return nil, invalidParams(err.Error())
		}
		return nil, errors.Errorf("expanding abbreviation: %w", err)
	}
	s.publish(ctx, doc)

	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentURI][]protocol.TextEdit{
			doc.URI: {{Range: doc.Range(exp.Region), NewText: exp.Snippet}},
		},
	}, nil
}
