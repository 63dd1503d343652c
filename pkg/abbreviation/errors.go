package abbreviation

import (
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/engine"
)

// newSyntaxError converts a participle failure into a positioned engine error.
func newSyntaxError(text string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return syntaxErrorAt(text, perr.Position().Offset, describe(perr.Message()))
	}
	return errors.Errorf("parsing abbreviation: %w", err)
}

// syntaxErrorAt builds a SyntaxError at a byte offset of text.
func syntaxErrorAt(text string, byteOffset int, msg string) *engine.SyntaxError {
	byteOffset = min(max(byteOffset, 0), len(text))
	return &engine.SyntaxError{
		Message: msg,
		Pos:     utf8.RuneCountInString(text[:byteOffset]),
	}
}

func describe(msg string) string {
	switch {
	case strings.HasPrefix(msg, "invalid input text"):
		return "Unexpected character"
	case strings.Contains(msg, `unexpected token "<EOF>"`):
		return "Unexpected end of abbreviation: " + msg
	}
	return msg
}
