package lsp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/lsp/protocol"
	"github.com/walteh/emmetls/pkg/tracker"
)

// Completion offers the abbreviation under the caret as a snippet. An
// explicit invocation captures the abbreviation left of the caret even
// when typing did not mark it.
func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	list := &protocol.CompletionList{IsIncomplete: true, Items: []protocol.CompletionItem{}}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, documentNotFound(params.TextDocument.URI)
	}
	s.moveCaret(ctx, doc, params.Position)

	force := params.Context != nil && params.Context.TriggerKind == protocol.CompletionInvoked
	t := s.controller.SuggestTracker(ctx, doc.EditorID(), doc, force)
	s.publish(ctx, doc)
	if t == nil {
		return list, nil
	}

	valid, ok := t.State.(tracker.ValidState)
	if !ok || (!force && !t.Forced && !valid.Candidate) {
		return list, nil
	}

	snippet, err := s.engine.Expand(t.Abbreviation, t.Config.With(engine.WithField(engine.FieldTabstop)))
	if err != nil || snippet == "" {
		zerolog.Ctx(ctx).Debug().Err(err).Str("abbreviation", t.Abbreviation).Msg("no completion for abbreviation")
		return list, nil
	}

	item := protocol.CompletionItem{
		Label:            t.Abbreviation,
		Kind:             protocol.SnippetCompletion,
		Detail:           "Emmet Abbreviation",
		FilterText:       doc.Substring(t.Region),
		Preselect:        true,
		InsertTextFormat: protocol.SnippetFormat,
		TextEdit:         &protocol.TextEdit{Range: doc.Range(t.Region), NewText: snippet},
	}
	if s.Settings().AbbreviationPreview {
		item.Documentation = &protocol.MarkupContent{Kind: protocol.Markdown, Value: codeBlock(doc.Syntax, valid.Preview)}
	}
	list.Items = append(list.Items, item)
	return list, nil
}

// Hover previews the abbreviation under the position, or explains why it
// does not parse.
func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, documentNotFound(params.TextDocument.URI)
	}

	t := s.controller.ActiveTracker(doc.EditorID())
	if t == nil || !t.Region.Contains(doc.Offset(params.Position)) {
		return nil, nil
	}

	var value string
	switch st := t.State.(type) {
	case tracker.ValidState:
		if !s.Settings().AbbreviationPreview {
			return nil, nil
		}
		value = codeBlock(doc.Syntax, st.Preview)
	case tracker.ErrorState:
		value = fmt.Sprintf("Invalid abbreviation: %s\n\n```\n%s\n%s\n```", st.Message, t.Abbreviation, st.Pointer)
	default:
		return nil, nil
	}

	r := doc.Range(t.Region)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: value},
		Range:    &r,
	}, nil
}

func codeBlock(lang, body string) string {
	fence := "```"
	for strings.Contains(body, fence) {
		fence += "`"
	}
	return fence + lang + "\n" + body + "\n" + fence
}
