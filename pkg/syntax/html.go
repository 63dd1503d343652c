package syntax

import (
	"slices"
	"strings"
	"unicode"
)

var voidElements = []string{
	"img", "meta", "link", "br", "base", "hr", "area", "wbr", "col", "embed",
	"input", "param", "source", "track",
}

// MarkupLocation describes a caret position in a markup document.
type MarkupLocation struct {
	// Allowed is false inside tags and comments.
	Allowed bool
	// InlineStyle is set inside the quoted value of a style attribute.
	InlineStyle bool
	// Element is the innermost open element, or "".
	Element string
}

type openElement struct {
	name  string
	start int
}

// LocateMarkup scans text up to pos. With html set, void elements never
// open a scope.
func LocateMarkup(text string, pos int, html bool) MarkupLocation {
	runes := []rune(text)
	pos = min(max(pos, 0), len(runes))

	var stack []openElement
	for i := 0; i < pos; i++ {
		if runes[i] != '<' {
			continue
		}

		if hasAt(runes, i, "<!--") {
			end := indexAt(runes, i+4, "-->")
			if end < 0 || pos < end+3 {
				return MarkupLocation{}
			}
			i = end + 2
			continue
		}

		if i+1 >= len(runes) {
			// a lone `<` just typed
			if pos > i {
				return MarkupLocation{}
			}
			break
		}
		next := runes[i+1]
		if next != '/' && !unicode.IsLetter(next) {
			continue
		}

		tag := scanTag(runes, i, pos)
		if tag.end < 0 || pos <= tag.end {
			return MarkupLocation{Allowed: tag.inStyle, InlineStyle: tag.inStyle}
		}
		i = tag.end

		switch {
		case tag.closing:
			for n := len(stack) - 1; n >= 0; n-- {
				if stack[n].name == tag.name {
					stack = stack[:n]
					break
				}
			}
		case tag.selfClosing, html && slices.Contains(voidElements, strings.ToLower(tag.name)):
		default:
			stack = append(stack, openElement{name: tag.name, start: i})
		}
	}

	loc := MarkupLocation{Allowed: true}
	if len(stack) > 0 {
		loc.Element = stack[len(stack)-1].name
	}
	return loc
}

type scannedTag struct {
	name        string
	closing     bool
	selfClosing bool
	// end is the offset of the closing `>`, or -1.
	end     int
	inStyle bool
}

func scanTag(runes []rune, start, pos int) scannedTag {
	tag := scannedTag{end: -1}
	j := start + 1
	if runes[j] == '/' {
		tag.closing = true
		j++
	}
	nameStart := j
	for j < len(runes) && isNameRune(runes[j]) {
		j++
	}
	tag.name = string(runes[nameStart:j])

	attr := ""
	inName := false
	for ; j < len(runes); j++ {
		ch := runes[j]
		switch {
		case ch == '>':
			tag.end = j
			tag.selfClosing = j > start && runes[j-1] == '/'
			return tag
		case ch == '"' || ch == '\'':
			k := j + 1
			for k < len(runes) && runes[k] != ch {
				k++
			}
			if strings.EqualFold(attr, "style") && pos > j && pos <= k {
				tag.inStyle = true
			}
			j = k
			attr = ""
		case ch == '=':
			inName = false
		case isNameRune(ch):
			if !inName {
				attr = ""
				inName = true
			}
			attr += string(ch)
		default:
			inName = false
		}
	}
	return tag
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(":_.-", r)
}

func hasAt(runes []rune, i int, s string) bool {
	for k, r := range []rune(s) {
		if i+k >= len(runes) || runes[i+k] != r {
			return false
		}
	}
	return true
}

func indexAt(runes []rune, from int, s string) int {
	for i := from; i < len(runes); i++ {
		if hasAt(runes, i, s) {
			return i
		}
	}
	return -1
}
