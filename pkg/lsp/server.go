// Package lsp serves the abbreviation tracker over the Language Server
// Protocol. Completion offers the tracked abbreviation, hover previews it
// and the emmet.* commands drive it explicitly.
package lsp

import (
	"context"
	"io"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/walteh/emmetls/pkg/abbreviation"
	"github.com/walteh/emmetls/pkg/config"
	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/lsp/protocol"
	"github.com/walteh/emmetls/pkg/syntax"
	"github.com/walteh/emmetls/pkg/tracker"
)

const serverName = "emmetls"

// Server represents an LSP server instance
type Server struct {
	id        string
	version   string
	documents *DocumentManager

	engine     engine.Engine
	controller *tracker.Controller

	mu       sync.RWMutex
	settings *config.Settings

	notifier      protocol.Notifier
	clientLogging bool

	initialized bool
	shutdown    bool
}

type ServerOpt func(*Server)

func WithSettings(s *config.Settings) ServerOpt {
	return func(srv *Server) { srv.settings = s }
}

// WithClientLogging forwards server logs to the client as window/logMessage.
func WithClientLogging(enabled bool) ServerOpt {
	return func(srv *Server) { srv.clientLogging = enabled }
}

// WithNotifier replaces the connection used for server pushes.
func WithNotifier(n protocol.Notifier) ServerOpt {
	return func(srv *Server) { srv.notifier = n }
}

func WithVersion(v string) ServerOpt {
	return func(srv *Server) { srv.version = v }
}

func NewServer(ctx context.Context, opts ...ServerOpt) *Server {
	s := &Server{
		id:        xid.New().String(),
		documents: NewDocumentManager(),
		engine:    abbreviation.New(),
		settings:  config.Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.controller = tracker.New(s.engine, syntax.NewResolver(s), tracker.WithAutoMark(s.settings.AutoMarkMode()))

	zerolog.Ctx(ctx).Debug().Str("server_id", s.id).Stringer("auto_mark", s.settings.AutoMarkMode()).Msg("server created")
	return s
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

func (s *Server) Controller() *tracker.Controller {
	return s.controller
}

func (s *Server) Settings() *config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

var _ syntax.Source = (*Server)(nil)

// BaseConfig returns the config computed for the document when it was
// opened or when the settings last changed.
func (s *Server) BaseConfig(ctx context.Context, id tracker.EditorID) (*engine.Config, bool) {
	doc, ok := s.documents.GetByID(id)
	if !ok || doc.Config == nil {
		return nil, false
	}
	return doc.Config, true
}

// UpdateSettings swaps the settings and reconfigures every open document.
func (s *Server) UpdateSettings(ctx context.Context, settings *config.Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	s.controller.SetAutoMark(settings.AutoMarkMode())
	s.documents.Range(func(doc *Document) bool {
		s.configure(ctx, doc)
		return true
	})
	zerolog.Ctx(ctx).Info().Stringer("auto_mark", settings.AutoMarkMode()).Msg("settings updated")
}

// configure picks the syntax and engine config of doc from the settings.
func (s *Server) configure(ctx context.Context, doc *Document) {
	settings := s.Settings()
	logger := zerolog.Ctx(ctx).With().Str("uri", string(doc.URI)).Str("language_id", doc.LanguageID).Logger()

	name, ok := settings.DetectSyntax(doc.LanguageID, doc.Path())
	if !ok {
		logger.Debug().Msg("no emmet syntax for document")
		doc.Syntax, doc.Config = "", nil
		return
	}
	cfg, err := settings.EngineConfig(name, doc.Path())
	if err != nil {
		logger.Warn().Err(err).Str("syntax", name).Msg("cannot configure document")
		doc.Syntax, doc.Config = "", nil
		return
	}
	doc.Syntax, doc.Config = name, cfg
	logger.Debug().Str("syntax", name).Msg("document configured")
}

func (s *Server) notify(ctx context.Context, method string, params any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, method, params); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("method", method).Msg("notification dropped")
	}
}

// Instance is a running jrpc2 server bound to a Server.
type Instance struct {
	rpc *jrpc2.Server
}

func (s *Server) handlers() handler.Map {
	return handler.Map{
		protocol.MethodInitialize:         protocol.NewHandler(s.Initialize),
		protocol.MethodInitialized:        protocol.NewEmptyResultHandler(s.Initialized),
		protocol.MethodShutdown:           protocol.NewEmptyHandler(s.Shutdown),
		protocol.MethodDidOpen:            protocol.NewEmptyResultHandler(s.DidOpen),
		protocol.MethodDidChange:          protocol.NewEmptyResultHandler(s.DidChange),
		protocol.MethodDidClose:           protocol.NewEmptyResultHandler(s.DidClose),
		protocol.MethodDidChangeSelection: protocol.NewEmptyResultHandler(s.DidChangeSelection),
		protocol.MethodCompletion:         protocol.NewHandler(s.Completion),
		protocol.MethodHover:              protocol.NewHandler(s.Hover),
		protocol.MethodExecuteCommand:     protocol.NewHandler(s.ExecuteCommand),
	}
}

// BuildServerInstance wires the handlers into a jrpc2 server. Requests are
// handled one at a time since every edit depends on the previous one.
func (s *Server) BuildServerInstance(ctx context.Context) *Instance {
	inst := &Instance{}
	methods := s.handlers()
	methods[protocol.MethodExit] = protocol.NewEmptyHandler(func(ctx context.Context) error {
		zerolog.Ctx(ctx).Info().Bool("after_shutdown", s.shutdown).Msg("exit requested")
		go inst.Stop()
		return nil
	})

	opts := &jrpc2.ServerOptions{
		AllowPush:   true,
		Concurrency: 1,
		RPCLog:      protocol.NewRPCLogger(ctx),
		NewContext: func() context.Context {
			if s.clientLogging && inst.rpc != nil {
				return protocol.ApplyClientToZerolog(ctx, inst.rpc)
			}
			return ctx
		},
	}
	inst.rpc = jrpc2.NewServer(methods, opts)
	if s.notifier == nil {
		s.notifier = inst.rpc
	}
	return inst
}

func (i *Instance) Start(ch channel.Channel) {
	i.rpc.Start(ch)
}

// StartAndWait serves LSP framed messages on r and w until the client exits.
func (i *Instance) StartAndWait(r io.Reader, w io.WriteCloser) error {
	i.rpc.Start(channel.LSP(r, w))
	return i.Wait()
}

func (i *Instance) Wait() error {
	return i.rpc.Wait()
}

func (i *Instance) Stop() {
	i.rpc.Stop()
}
