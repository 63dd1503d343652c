// Package boundary decides whether the characters right before the caret can
// start an abbreviation. All functions are pure.
package boundary

import "unicode"

// NoRune stands for a missing character, e.g. before the start of a line.
const NoRune rune = -1

var pairs = map[rune]rune{
	'{': '}',
	'[': ']',
	'(': ')',
}

var pairsEnd = map[rune]rune{
	'}': '{',
	']': '[',
	')': '(',
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isBound(r rune, markup bool) bool {
	if r == NoRune || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ';', '"', '\'', '(', ')', '{', '}':
		return true
	case '>':
		return markup
	}
	return false
}

func isMarkupStart(r rune) bool {
	if isASCIILetter(r) {
		return true
	}
	switch r {
	case '.', '#', '!', '@', '[', '(':
		return true
	}
	return false
}

func isJSXStart(r rune) bool {
	if isASCIILetter(r) {
		return true
	}
	switch r {
	case '.', '#', '[', '(':
		return true
	}
	return false
}

func isStylesheetStart(r rune) bool {
	return isASCIILetter(r) || r == '!' || r == '@'
}

// IsWordBoundaryStart reports whether prev, the character just typed, starts
// a markup abbreviation given prevPrev, the character before it.
func IsWordBoundaryStart(prev, prevPrev rune) bool {
	return isBound(prevPrev, true) && isMarkupStart(prev)
}

// IsJSXAbbreviationStart reports whether the two-character prefix is exactly
// jsxPrefix followed by a JSX start character.
func IsJSXAbbreviationStart(prefix string, jsxPrefix string) bool {
	rs := []rune(prefix)
	px := []rune(jsxPrefix)
	if len(rs) != 2 || len(px) != 1 {
		return false
	}
	return rs[0] == px[0] && isJSXStart(rs[1])
}

// IsStylesheetWordBoundary reports whether the prefix (at most two characters
// ending at the caret) starts a stylesheet abbreviation.
func IsStylesheetWordBoundary(prefix string) bool {
	prev, prevPrev := SplitPrefix(prefix)
	if prev == NoRune {
		return false
	}
	return isBound(prevPrev, false) && isStylesheetStart(prev)
}

// SplitPrefix returns the last and second-to-last characters of prefix,
// using NoRune for missing ones.
func SplitPrefix(prefix string) (prev, prevPrev rune) {
	rs := []rune(prefix)
	prev, prevPrev = NoRune, NoRune
	if n := len(rs); n > 0 {
		prev = rs[n-1]
		if n > 1 {
			prevPrev = rs[n-2]
		}
	}
	return prev, prevPrev
}

// PairedCloser returns the closing bracket for an opening one.
func PairedCloser(ch rune) (rune, bool) {
	c, ok := pairs[ch]
	return c, ok
}

// IsClosingBracket reports whether r closes a bracket pair.
func IsClosingBracket(r rune) bool {
	_, ok := pairsEnd[r]
	return ok
}

// ExtendForPairedCloser returns 1 when the prefix ends with an opening bracket
// and next starts with its closer, which the editor most likely auto-inserted.
func ExtendForPairedCloser(prefix string, next string) int {
	last, _ := SplitPrefix(prefix)
	closer, ok := PairedCloser(last)
	if !ok {
		return 0
	}
	for _, r := range next {
		if r == closer {
			return 1
		}
		break
	}
	return 0
}

// IsBoundChar reports whether r terminates an abbreviation on its right side.
// An absent character counts as a bound.
func IsBoundChar(r rune) bool {
	if r == NoRune || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '>', ';', '"', '\'':
		return true
	}
	return false
}
