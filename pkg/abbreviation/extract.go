package abbreviation

import (
	"regexp"
	"strings"

	"github.com/walteh/emmetls/pkg/engine"
)

var reHTMLTag = regexp.MustCompile(`^</?[A-Za-z][\w:.-]*(\s[^<>]*)?/?>$`)

// Extract finds the abbreviation that ends at pos in line. Positions are rune
// offsets into line.
func Extract(line string, pos int, opts engine.ExtractOptions) (*engine.Extracted, bool) {
	runes := []rune(line)
	pos = min(max(pos, 0), len(runes))

	if opts.LookAhead {
		pos = offsetPastAutoClosed(runes, pos, opts.Type)
	}

	start := startOffset(runes, pos, []rune(opts.Prefix))
	if start < 0 {
		return nil, false
	}

	cur, balanced := scanBack(runes, pos, start, opts.Type)
	if !balanced || cur == pos {
		return nil, false
	}

	abbr := strings.TrimLeft(string(runes[cur:pos]), "*+>^")
	n := len([]rune(abbr))
	if n == 0 {
		return nil, false
	}

	res := &engine.Extracted{
		Abbreviation: abbr,
		Location:     pos - n,
		Start:        pos - n,
		End:          pos,
	}
	if opts.Prefix != "" {
		res.Start = start - len([]rune(opts.Prefix))
	}
	return res, true
}

// scanBack walks left from pos while the runes form an abbreviation and
// returns where it stopped. Bracket contents are skipped as a whole, `{...}`
// text may hold anything.
func scanBack(runes []rune, pos, start int, typ engine.Type) (int, bool) {
	cur := pos
	var stack []rune
	for cur > start {
		ch := runes[cur-1]
		if inText(stack) {
			if ch == '}' {
				stack = append(stack, ch)
				cur--
				continue
			}
			if ch != '{' {
				cur--
				continue
			}
		}
		switch {
		case isCloseBrace(ch, typ):
			stack = append(stack, ch)
		case isOpenBrace(ch, typ):
			if len(stack) == 0 || stack[len(stack)-1] != bracePair(ch) {
				return cur, len(stack) == 0
			}
			stack = stack[:len(stack)-1]
		case len(stack) > 0 && stack[len(stack)-1] == ']':
		case ch == '>' && isHTMLTagEnd(runes, cur):
			return cur, len(stack) == 0
		case !isAbbreviationChar(ch):
			return cur, len(stack) == 0
		}
		cur--
	}
	return cur, len(stack) == 0
}

func inText(stack []rune) bool {
	for _, r := range stack {
		if r == '}' {
			return true
		}
	}
	return false
}

// offsetPastAutoClosed moves pos over a quote and closing brackets inserted by
// the editor's auto-pairing.
func offsetPastAutoClosed(runes []rune, pos int, typ engine.Type) int {
	if pos < len(runes) && (runes[pos] == '"' || runes[pos] == '\'') {
		pos++
	}
	for pos < len(runes) && isCloseBrace(runes[pos], typ) {
		pos++
	}
	return pos
}

// startOffset returns the offset right after the nearest prefix before pos,
// skipping bracketed sections, or -1 when no prefix exists. Without a prefix
// the scan may reach the line start.
func startOffset(runes []rune, pos int, prefix []rune) int {
	if len(prefix) == 0 {
		return 0
	}
	cur := pos
	for cur > 0 {
		if skipPair(runes, &cur, ']', '[') || skipPair(runes, &cur, '}', '{') {
			continue
		}
		if hasPrefixAt(runes, cur, prefix) {
			return cur
		}
		cur--
	}
	return -1
}

func skipPair(runes []rune, cur *int, closeCh, openCh rune) bool {
	if *cur == 0 || runes[*cur-1] != closeCh {
		return false
	}
	depth := 0
	for i := *cur - 1; i >= 0; i-- {
		switch runes[i] {
		case closeCh:
			depth++
		case openCh:
			depth--
			if depth == 0 {
				*cur = i
				return true
			}
		}
	}
	return false
}

func hasPrefixAt(runes []rune, end int, prefix []rune) bool {
	if end < len(prefix) {
		return false
	}
	return string(runes[end-len(prefix):end]) == string(prefix)
}

// isHTMLTagEnd reports whether the `>` right before end closes an HTML tag.
func isHTMLTagEnd(runes []rune, end int) bool {
	for i := end - 2; i >= 0; i-- {
		switch runes[i] {
		case '<':
			return reHTMLTag.MatchString(string(runes[i:end]))
		case '>':
			return false
		}
	}
	return false
}

func isAbbreviationChar(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	}
	return strings.ContainsRune("#.*:$-_!@%^+>/", ch)
}

func isCloseBrace(ch rune, typ engine.Type) bool {
	return ch == ']' || ch == ')' || (typ == engine.TypeMarkup && ch == '}')
}

func isOpenBrace(ch rune, typ engine.Type) bool {
	return ch == '[' || ch == '(' || (typ == engine.TypeMarkup && ch == '{')
}

func bracePair(open rune) rune {
	switch open {
	case '[':
		return ']'
	case '(':
		return ')'
	}
	return '}'
}
