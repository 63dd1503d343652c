// Package abbreviation is a reduced Emmet engine: it parses the core markup
// operators (child, sibling, climb-up, grouping, repeat, id, class, attributes
// and text) and a property-value stylesheet form, and renders both to snippets.
package abbreviation

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// MarkupRules lexes markup abbreviations. Attribute sets get their own state
	// so that spaces and quotes are legal inside `[...]` only.
	MarkupRules = lexer.Rules{
		"Root": {
			{Name: "Text", Pattern: `\{[^}]*\}`, Action: nil},
			{Name: "AttrOpen", Pattern: `\[`, Action: lexer.Push("Attrs")},
			{Name: "Op", Pattern: `\^+|[>+]`, Action: nil},
			{Name: "Punct", Pattern: `[.#*/()]`, Action: nil},
			{Name: "Ident", Pattern: `[\w!@$:\-]+`, Action: nil},
		},
		"Attrs": {
			{Name: "whitespace", Pattern: `\s+`, Action: nil},
			{Name: "AttrValue", Pattern: `"[^"]*"|'[^']*'|\{[^}]*\}`, Action: nil},
			{Name: "Eq", Pattern: `=`, Action: nil},
			{Name: "AttrClose", Pattern: `\]`, Action: lexer.Pop()},
			{Name: "AttrName", Pattern: `[^\s="'\[\]{}]+`, Action: nil},
		},
	}

	MarkupLexer = lexer.MustStateful(MarkupRules)

	// StylesheetLexer lexes stylesheet abbreviations such as `m10-20+p5!`.
	StylesheetLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Color", Pattern: `#[0-9a-fA-F]*`},
		{Name: "Number", Pattern: `\d*\.?\d+[a-zA-Z%]*`},
		{Name: "Word", Pattern: `@?[a-zA-Z]+`},
		{Name: "Punct", Pattern: `[:!+\-]`},
	})

	markupParser = participle.MustBuild[markupSequence](
		participle.Lexer(MarkupLexer),
		participle.Elide("whitespace"),
		participle.UseLookahead(2),
	)

	stylesheetParser = participle.MustBuild[stylesheetAbbreviation](
		participle.Lexer(StylesheetLexer),
		participle.UseLookahead(2),
	)
)
