package syntax

import (
	"strings"
	"unicode"

	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/position"
)

type cssTokenType int

const (
	cssSelector cssTokenType = iota
	cssPropertyName
	cssPropertyValue
	cssBlockEnd
)

type cssToken struct {
	typ    cssTokenType
	region position.Region
}

// scanCSS calls fn for every token of text in order until fn returns false.
// Offsets are rune offsets.
func scanCSS(text []rune, fn func(cssToken) bool) {
	depth := 0
	start := -1
	sawColon := false

	emit := func(typ cssTokenType, end int) bool {
		if start < 0 {
			return true
		}
		e := end
		for e > start && unicode.IsSpace(text[e-1]) {
			e--
		}
		tok := cssToken{typ: typ, region: position.Region{Start: start, End: e}}
		start = -1
		return fn(tok)
	}

	pending := func() cssTokenType {
		switch {
		case sawColon:
			return cssPropertyValue
		case depth == 0:
			return cssSelector
		}
		return cssPropertyName
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			end := commentEnd(text, i+2)
			if end < 0 {
				return
			}
			i = end + 1
			continue
		case ch == '"' || ch == '\'':
			if start < 0 {
				start = i
			}
			for i++; i < len(text) && text[i] != ch; i++ {
				if text[i] == '\\' {
					i++
				}
			}
			continue
		case unicode.IsSpace(ch):
			continue
		}

		switch ch {
		case '{':
			if !emit(cssSelector, i) {
				return
			}
			depth++
			sawColon = false
		case '}':
			if !emit(pending(), i) {
				return
			}
			sawColon = false
			if depth > 0 {
				depth--
			}
			if !fn(cssToken{typ: cssBlockEnd, region: position.Region{Start: i, End: i + 1}}) {
				return
			}
		case ':':
			// `a:hover` at the top level and nested `&:hover {` are selectors
			if depth == 0 || sawColon || startsSection(text, i) {
				if start < 0 {
					start = i
				}
				continue
			}
			if !emit(cssPropertyName, i) {
				return
			}
			sawColon = true
		case ';':
			if !emit(pending(), i) {
				return
			}
			sawColon = false
		default:
			if start < 0 {
				start = i
			}
		}
	}
	emit(pending(), len(text))
}

// startsSection reports whether the text after the colon at i opens a block
// before it ends a declaration.
func startsSection(text []rune, i int) bool {
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '{':
			return true
		case ';', '}':
			return false
		}
	}
	return false
}

// commentEnd returns the offset of the `*/` closing a comment, or -1.
func commentEnd(text []rune, from int) int {
	for i := from; i+1 < len(text); i++ {
		if text[i] == '*' && text[i+1] == '/' {
			return i
		}
	}
	return -1
}

// CSSContext returns the stylesheet scope at pos, or false when
// abbreviations are not allowed there.
func CSSContext(text string, pos int) (*engine.Context, bool) {
	runes := []rune(text)
	if pos < 0 || pos > len(runes) {
		return nil, false
	}

	var (
		current *cssToken
		stack   []cssToken
	)

	scanCSS(runes, func(tok cssToken) bool {
		if tok.region.Start >= pos {
			return false
		}
		if tok.region.Start < pos && pos <= tok.region.End {
			current = &tok
			return false
		}
		switch tok.typ {
		case cssSelector, cssPropertyName:
			stack = append(stack, tok)
		case cssPropertyValue, cssBlockEnd:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
		return true
	})

	if current == nil {
		return nil, false
	}

	value := string(runes[current.region.Start:current.region.End])

	if current.typ == cssSelector && strings.HasPrefix(value, "@media") &&
		inMediaExpression(value, pos-current.region.Start) {
		return &engine.Context{Scope: engine.ScopeProperty}, true
	}

	if current.typ != cssPropertyName && current.typ != cssPropertyValue &&
		!typingBeforeSelector(runes, pos, current) {
		return nil, false
	}

	var parent *cssToken
	if len(stack) > 0 {
		parent = &stack[len(stack)-1]
	}

	switch current.typ {
	case cssPropertyValue:
		prefix := runes[pos-1]
		if !strings.ContainsRune("!#", prefix) && !strings.ContainsRune("!#", []rune(value)[0]) {
			return nil, false
		}
		ctx := &engine.Context{Scope: engine.ScopeValue}
		if parent != nil && parent.typ == cssPropertyName {
			ctx.Name = string(runes[parent.region.Start:parent.region.End])
		}
		return ctx, true
	case cssSelector, cssPropertyName:
		if parent == nil {
			return &engine.Context{Scope: engine.ScopeSection}, true
		}
	}
	return &engine.Context{Scope: engine.ScopeGlobal}, true
}

// typingBeforeSelector allows the first character of a selector that sits
// on its own line.
func typingBeforeSelector(text []rune, pos int, tok *cssToken) bool {
	if tok.typ != cssSelector || tok.region.Start != pos-1 {
		return false
	}
	line, _, _ := strings.Cut(string(text[tok.region.Start:tok.region.End]), "\n")
	return len([]rune(strings.TrimSpace(line))) == 1
}

func inMediaExpression(selector string, pos int) bool {
	depth := 0
	for i, ch := range []rune(selector) {
		if i >= pos {
			break
		}
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth > 0
}
