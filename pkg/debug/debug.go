// Package debug holds the zerolog plumbing shared by the server and the CLI.
package debug

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

const module = "github.com/walteh/emmetls/"

// skipFrames reads the frames an event asked to skip with CallerSkipFrame.
func skipFrames(e *zerolog.Event) int {
	field := reflect.ValueOf(e).Elem().FieldByName("skipFrame")
	if field.IsValid() {
		return int(field.Int())
	}
	return 0
}

// TimeHook stamps events with millisecond precision.
type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = "2006-01-02T15:04:05.000Z07:00"
	}
	e.Str("time", time.Now().Format(format))
}

// CallerHook adds the calling package, file and line as "caller".
type CallerHook struct {
	WithColor bool
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(skipFrames(e) + 3)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	pkg, _ := SplitFuncName(fn.Name())
	e.Str("caller", FormatCaller(strings.TrimPrefix(pkg, module), file, line, c.WithColor))
}

// SplitFuncName splits a runtime function name into its package path and
// function, with methods rendered as `(T).M`.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := max(strings.LastIndexByte(name, '/'), 0)
	firstDot := strings.IndexByte(name[lastSlash:], '.')
	if firstDot < 0 {
		return name, ""
	}
	firstDot += lastSlash

	pkg, function = name[:firstDot], name[firstDot+1:]
	if before, after, ok := strings.Cut(pkg, ".("); ok {
		pkg = before
		function = "(" + after + "." + function
	}
	return pkg, function
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := path[strings.LastIndexByte(path, '/')+1:]
	if !colorize {
		return fmt.Sprintf("%s:%s:%d", pkg, file, line)
	}
	sep := color.New(color.Faint).Sprint(":")
	return pkg + sep + color.New(color.Bold).Sprint(file) + sep + color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
}

// NewConsoleLogger writes human readable events to w, the way the CLI logs
// to stderr.
func NewConsoleLogger(w io.Writer, level zerolog.Level, colorize bool) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:           w,
		NoColor:       !colorize,
		TimeFormat:    "15:04:05.000",
		PartsOrder:    []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, "caller", zerolog.MessageFieldName},
		FieldsExclude: []string{"caller"},
	}
	return zerolog.New(out).
		Level(level).
		With().Timestamp().Logger().
		Hook(CallerHook{WithColor: colorize})
}
