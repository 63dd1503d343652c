package protocol

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"

	"github.com/walteh/emmetls/pkg/debug"
)

// ApplyClientToZerolog routes every event logged through ctx to the client
// as window/logMessage, at the level ctx already logs at.
func ApplyClientToZerolog(ctx context.Context, client Notifier) context.Context {
	writer := &LogWriter{client: client, ctx: ctx}
	level := zerolog.Ctx(ctx).GetLevel()

	return zerolog.New(writer).With().
		Str("lsp_role", "server").
		Logger().
		Level(level).
		Hook(debug.TimeHook{}).
		Hook(debug.CallerHook{}).
		WithContext(ctx)
}

// LogWriter turns zerolog JSON events into window/logMessage notifications.
type LogWriter struct {
	mu     sync.Mutex
	client Notifier
	ctx    context.Context
}

func NewLogWriter(ctx context.Context, client Notifier) *LogWriter {
	return &LogWriter{client: client, ctx: ctx}
}

func (w *LogWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var entry map[string]interface{}
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil
	}

	level := ParseMessageTypeFromZerolog(extractField(entry, zerolog.LevelFieldName, "info"))
	msg := extractField(entry, zerolog.MessageFieldName, "")
	caller := extractField(entry, "caller", "")
	delete(entry, zerolog.TimestampFieldName)
	delete(entry, "time")

	if w.client == nil {
		return len(p), nil
	}
	params := &LogMessageParams{Type: level, Message: formatLogMessage(msg, caller, entry)}
	if err := w.client.Notify(w.ctx, MethodLogMessage, params); err != nil {
		return len(p), err
	}
	return len(p), nil
}

func formatLogMessage(msg, caller string, fields map[string]interface{}) string {
	var sb strings.Builder
	if caller != "" {
		sb.WriteString("[" + caller + "] ")
	}
	sb.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(fields[k])
		if err != nil {
			continue
		}
		sb.WriteString(" " + k + "=" + string(v))
	}
	return sb.String()
}

func extractField(entry map[string]interface{}, key, defaultValue string) string {
	if v, ok := entry[key].(string); ok {
		delete(entry, key)
		return v
	}
	return defaultValue
}

// ParseMessageTypeFromZerolog converts a zerolog level to an LSP MessageType.
func ParseMessageTypeFromZerolog(level string) MessageType {
	switch level {
	case "error", "fatal", "panic":
		return Error
	case "warn":
		return Warning
	case "info":
		return Info
	case "debug":
		return Debug
	default:
		return Log
	}
}

var _ jrpc2.RPCLogger = (*RPCLogger)(nil)

// RPCLogger traces requests and responses at trace level.
type RPCLogger struct {
	logger zerolog.Logger
}

func NewRPCLogger(ctx context.Context) *RPCLogger {
	return &RPCLogger{logger: *zerolog.Ctx(ctx)}
}

func (l *RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	l.logger.Trace().
		Str("rpc_method", req.Method()).
		Str("rpc_id", req.ID()).
		Bool("notification", req.IsNotification()).
		Msg("rpc request")
}

func (l *RPCLogger) LogResponse(ctx context.Context, rsp *jrpc2.Response) {
	ev := l.logger.Trace().Str("rpc_id", rsp.ID())
	if err := rsp.Error(); err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("rpc response")
}
