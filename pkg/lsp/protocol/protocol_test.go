package protocol_test

import (
	"context"
	"testing"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/walteh/emmetls/pkg/lsp/protocol"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, method string, params any) error {
	args := m.Called(ctx, method, params)
	return args.Error(0)
}

func TestParseMessageTypeFromZerolog(t *testing.T) {
	tests := []struct {
		level string
		want  protocol.MessageType
	}{
		{"error", protocol.Error},
		{"fatal", protocol.Error},
		{"warn", protocol.Warning},
		{"info", protocol.Info},
		{"debug", protocol.Debug},
		{"trace", protocol.Log},
		{"", protocol.Log},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, protocol.ParseMessageTypeFromZerolog(tt.level))
		})
	}
}

func TestLogWriter(t *testing.T) {
	ctx := context.Background()
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, protocol.MethodLogMessage, &protocol.LogMessageParams{
		Type:    protocol.Warning,
		Message: `tracker invalidated delta=2 editor="file:///a.html"`,
	}).Return(nil).Once()

	logger := zerolog.New(protocol.NewLogWriter(ctx, n)).With().Timestamp().Logger()
	logger.Warn().Str("editor", "file:///a.html").Int("delta", 2).Msg("tracker invalidated")

	n.AssertExpectations(t)
}

func TestLogWriterSkipsGarbage(t *testing.T) {
	n := &mockNotifier{}
	w := protocol.NewLogWriter(context.Background(), n)

	written, err := w.Write([]byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, len("not json"), written)
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyClientToZerolog(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.InfoLevel).WithContext(context.Background())
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, protocol.MethodLogMessage, mock.MatchedBy(func(p *protocol.LogMessageParams) bool {
		return p.Type == protocol.Info && assert.Contains(t, p.Message, "hello")
	})).Return(nil).Once()

	ctx = protocol.ApplyClientToZerolog(ctx, n)
	zerolog.Ctx(ctx).Debug().Msg("below the level")
	zerolog.Ctx(ctx).Info().Msg("hello")

	n.AssertExpectations(t)
}

func TestHandlers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = zerolog.New(zerolog.NewTestWriter(t)).With().Str("test", t.Name()).Logger().WithContext(ctx)

	var closed protocol.DocumentURI
	srv := jrpc2.NewServer(handler.Map{
		protocol.MethodHover: protocol.NewHandler(func(ctx context.Context, p *protocol.HoverParams) (*protocol.Hover, error) {
			return &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.PlainText, Value: string(p.TextDocument.URI)}}, nil
		}),
		protocol.MethodDidClose: protocol.NewEmptyResultHandler(func(ctx context.Context, p *protocol.DidCloseTextDocumentParams) error {
			closed = p.TextDocument.URI
			return nil
		}),
		protocol.MethodShutdown: protocol.NewEmptyHandler(func(ctx context.Context) error {
			return nil
		}),
	}, &jrpc2.ServerOptions{
		Concurrency: 1,
		NewContext:  func() context.Context { return ctx },
		RPCLog:      protocol.NewRPCLogger(ctx),
	})

	cch, sch := channel.Direct()
	srv.Start(sch)
	cli := jrpc2.NewClient(cch, nil)
	defer cli.Close()

	var hover protocol.Hover
	err := protocol.Call(ctx, cli, protocol.MethodHover, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{TextDocument: protocol.TextDocumentIdentifier{URI: "file:///x.html"}},
	}, &hover)
	require.NoError(t, err)
	assert.Equal(t, "file:///x.html", hover.Contents.Value)

	require.NoError(t, protocol.Call(ctx, cli, protocol.MethodDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///x.html"},
	}, nil))
	assert.Equal(t, protocol.DocumentURI("file:///x.html"), closed)

	require.NoError(t, protocol.Call(ctx, cli, protocol.MethodShutdown, nil, nil))

	_, err = cli.Call(ctx, protocol.MethodHover, []int{1, 2})
	var rpcErr *jrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.EqualValues(t, -32700, rpcErr.Code)
}
