package engine

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var knownTags = []string{
	"a", "abbr", "acronym", "address", "applet", "area", "article", "aside", "audio",
	"b", "base", "basefont", "bdi", "bdo", "bgsound", "big", "blink", "blockquote", "body", "br", "button",
	"canvas", "caption", "center", "cite", "code", "col", "colgroup", "command", "content",
	"data", "datalist", "dd", "del", "details", "dfn", "dialog", "dir", "div", "dl", "dt",
	"element", "em", "embed",
	"fieldset", "figcaption", "figure", "font", "footer", "form", "frame", "frameset",
	"h1", "h2", "h3", "h4", "h5", "h6", "head", "header", "hgroup", "hr", "html",
	"i", "iframe", "image", "img", "input", "ins", "isindex",
	"kbd", "keygen",
	"label", "legend", "li", "link", "listing",
	"main", "map", "mark", "marquee", "menu", "menuitem", "meta", "meter", "multicol",
	"nav", "nextid", "nobr", "noembed", "noframes", "noscript",
	"object", "ol", "optgroup", "option", "output",
	"p", "param", "picture", "plaintext", "pre", "progress",
	"q",
	"rb", "rp", "rt", "rtc", "ruby",
	"s", "samp", "script", "section", "select", "shadow", "slot", "small", "source", "spacer", "span",
	"strike", "strong", "style", "sub", "summary", "sup",
	"table", "tbody", "td", "template", "textarea", "tfoot", "th", "thead", "time", "title", "tr", "track",
	"tt", "u", "ul", "var", "video", "wbr", "xmp",
}

// VoidTags never get a closing tag in HTML output.
var VoidTags = []string{
	"img", "meta", "link", "br", "base", "hr", "area", "wbr", "col", "embed",
	"input", "param", "source", "track",
}

var (
	reComplexAbbr = regexp.MustCompile(`[.#>^+*\[\(\{/]`)
	reSimpleWord  = regexp.MustCompile(`^([\w!-]+)\.?$`)
)

// IsKnownTag reports whether name is a known HTML element.
func IsKnownTag(name string) bool {
	_, found := slices.BinarySearch(sortedKnownTags, name)
	return found
}

var sortedKnownTags = func() []string {
	s := slices.Clone(knownTags)
	slices.Sort(s)
	return s
}()

// SimpleWord returns the bare element name of a simple abbreviation such as
// `div` or `div.`, or "" when text is not a single word.
func SimpleWord(text string) string {
	m := reSimpleWord.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsKnownName reports whether name is a known tag or a snippet in cfg.
func IsKnownName(name string, cfg *Config) bool {
	if IsKnownTag(name) {
		return true
	}
	if cfg != nil {
		_, ok := cfg.Options.Snippets[name]
		return ok
	}
	return false
}

// IsValidCandidate reports whether text looks like an intended abbreviation.
// Outside KnownSnippetsOnly markup syntaxes everything qualifies.
func IsValidCandidate(text string, cfg *Config) bool {
	if reComplexAbbr.MatchString(text) {
		return true
	}
	if cfg == nil || cfg.Type != TypeMarkup || !cfg.Options.KnownSnippetsOnly {
		return true
	}
	if text == "" {
		return false
	}
	first := []rune(text)[0]
	return strings.Contains(text, "-") ||
		unicode.IsUpper(first) ||
		IsKnownName(text, cfg) ||
		strings.HasPrefix(text, "lorem")
}

// HasKnownTagPrefix reports whether some known HTML element starts with prefix.
func HasKnownTagPrefix(prefix string) bool {
	i, _ := slices.BinarySearch(sortedKnownTags, prefix)
	return i < len(sortedKnownTags) && strings.HasPrefix(sortedKnownTags[i], prefix)
}
