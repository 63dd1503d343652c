package config

import (
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
)

const defaultIndentSize = 4

// IndentFor returns the indent used when expanding in the file at path.
// With use_editorconfig the closest .editorconfig wins over the indent
// setting.
func (s *Settings) IndentFor(path string) string {
	if !s.UseEditorConfig || path == "" {
		return s.Indent
	}
	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil {
		return s.Indent
	}
	return indentFromDefinition(def, s.Indent)
}

func indentFromDefinition(def *editorconfig.Definition, fallback string) string {
	switch def.IndentStyle {
	case editorconfig.IndentStyleTab:
		return "\t"
	case editorconfig.IndentStyleSpaces:
		n, err := strconv.Atoi(def.IndentSize)
		if err != nil || n <= 0 {
			n = def.TabWidth
		}
		if n <= 0 {
			n = defaultIndentSize
		}
		return strings.Repeat(" ", n)
	}
	return fallback
}
