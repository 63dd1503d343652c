package lsp

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/emmetls/pkg/lsp/protocol"
)

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	logger := zerolog.Ctx(ctx)
	if params.ClientInfo != nil {
		logger.Info().Str("client", params.ClientInfo.Name).Str("client_version", params.ClientInfo.Version).Msg("initializing")
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.SyncIncremental,
			},
			CompletionProvider: &protocol.CompletionOptions{},
			HoverProvider:      true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: Commands,
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: serverName, Version: s.version},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	s.initialized = true
	zerolog.Ctx(ctx).Debug().Str("server_id", s.id).Msg("client initialized")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown = true
	s.documents.Range(func(doc *Document) bool {
		s.controller.Dispose(doc.EditorID())
		return true
	})
	return nil
}
