package debug

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFuncName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		pkg      string
		function string
	}{
		{name: "function", input: "github.com/walteh/emmetls/pkg/tracker.newTracker", pkg: "github.com/walteh/emmetls/pkg/tracker", function: "newTracker"},
		{name: "method", input: "github.com/walteh/emmetls/pkg/tracker.(*Controller).Expand", pkg: "github.com/walteh/emmetls/pkg/tracker", function: "(*Controller).Expand"},
		{name: "closure", input: "main.main.func1", pkg: "main", function: "main.func1"},
		{name: "no_dot", input: "weird", pkg: "weird", function: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, fn := SplitFuncName(tt.input)
			assert.Equal(t, tt.pkg, pkg)
			assert.Equal(t, tt.function, fn)
		})
	}
}

func TestFormatCaller(t *testing.T) {
	assert.Equal(t, "pkg/tracker:controller.go:42", FormatCaller("pkg/tracker", "/src/pkg/tracker/controller.go", 42, false))
	assert.Equal(t, "main:main.go:1", FormatCaller("main", "main.go", 1, false))
}

func TestHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(TimeHook{Format: "2006"}).Hook(CallerHook{})

	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Len(t, entry["time"], 4)
	assert.Contains(t, entry["caller"], "debug_test.go:")
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, zerolog.InfoLevel, false)

	logger.Debug().Msg("hidden")
	logger.Info().Str("editor", "a").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "editor=a")
}
