package abbreviation

import (
	"regexp"
	"strings"

	"github.com/walteh/emmetls/pkg/engine"
)

type stylesheetAbbreviation struct {
	Properties []*stylesheetProperty `@@ ( "+" @@ )* "+"?`
}

type stylesheetProperty struct {
	Name      string             `( ( @Word | @"!" )`
	Values    []*stylesheetValue `  ( ":"? @@+ )? | @@+ )`
	Important bool               `@"!"?`
}

type stylesheetValue struct {
	Dashes  []string `@"-"*`
	Color   *string  `( @Color`
	Number  *string  `| @Number`
	Keyword *string  `| @Word )`
}

var propertySnippets = map[string]string{
	"m": "margin", "mt": "margin-top", "mr": "margin-right", "mb": "margin-bottom", "ml": "margin-left",
	"p": "padding", "pt": "padding-top", "pr": "padding-right", "pb": "padding-bottom", "pl": "padding-left",
	"w": "width", "h": "height", "maw": "max-width", "mah": "max-height", "miw": "min-width", "mih": "min-height",
	"c": "color", "bg": "background", "bgc": "background-color", "bgi": "background-image",
	"bd": "border", "bdrs": "border-radius", "d": "display", "pos": "position",
	"t": "top", "r": "right", "b": "bottom", "l": "left", "z": "z-index",
	"fz": "font-size", "fw": "font-weight", "ff": "font-family", "lh": "line-height", "ta": "text-align",
	"td": "text-decoration", "tt": "text-transform", "op": "opacity", "ov": "overflow", "cur": "cursor",
	"fl": "float", "cl": "clear", "bxz": "box-sizing", "va": "vertical-align", "jc": "justify-content",
	"ai": "align-items", "fxd": "flex-direction", "g": "gap", "trs": "transition", "trf": "transform",
}

var keywordSnippets = map[string]map[string]string{
	"display":         {"b": "block", "i": "inline", "ib": "inline-block", "f": "flex", "if": "inline-flex", "g": "grid", "n": "none", "t": "table"},
	"position":        {"a": "absolute", "r": "relative", "f": "fixed", "s": "static", "st": "sticky"},
	"text-align":      {"l": "left", "r": "right", "c": "center", "j": "justify"},
	"float":           {"l": "left", "r": "right", "n": "none"},
	"clear":           {"l": "left", "r": "right", "b": "both", "n": "none"},
	"cursor":          {"p": "pointer", "d": "default", "t": "text", "m": "move"},
	"font-weight":     {"b": "bold", "n": "normal", "l": "lighter"},
	"overflow":        {"h": "hidden", "a": "auto", "s": "scroll", "v": "visible"},
	"box-sizing":      {"bb": "border-box", "cb": "content-box"},
	"text-decoration": {"n": "none", "u": "underline", "lt": "line-through"},
	"text-transform":  {"u": "uppercase", "l": "lowercase", "c": "capitalize", "n": "none"},
	"justify-content": {"c": "center", "fs": "flex-start", "fe": "flex-end", "sb": "space-between", "sa": "space-around"},
	"align-items":     {"c": "center", "fs": "flex-start", "fe": "flex-end", "s": "stretch", "b": "baseline"},
	"flex-direction":  {"r": "row", "c": "column", "rr": "row-reverse", "cr": "column-reverse"},
}

var globalKeywords = map[string]string{"a": "auto", "n": "none", "i": "inherit", "t": "transparent"}

var atRuleSnippets = map[string]string{
	"@m":  "@media ${1:screen} {\n\t${2}\n}",
	"@i":  "@import url(${1});",
	"@ff": "@font-face {\n\tfont-family: ${1};\n\tsrc: url(${2});\n}",
	"@kf": "@keyframes ${1:identifier} {\n\t${2}\n}",
}

var unitAliases = map[string]string{"p": "%", "e": "em", "x": "ex", "r": "rem"}

var unitless = map[string]bool{"z-index": true, "opacity": true, "line-height": true, "font-weight": true}

var reNumberParts = regexp.MustCompile(`^(\d*\.?\d+)([a-zA-Z%]*)$`)

// ParseStylesheet parses a stylesheet abbreviation.
func ParseStylesheet(text string) ([]*stylesheetProperty, error) {
	abbr, err := stylesheetParser.ParseString("", text)
	if err != nil {
		return nil, newSyntaxError(text, err)
	}
	return abbr.Properties, nil
}

// RenderStylesheet expands parsed stylesheet properties. Value scope only
// resolves colors and `!important`, anything else yields "".
func RenderStylesheet(props []*stylesheetProperty, cfg *engine.Config) string {
	r := &renderer{cfg: cfg}
	if cfg.Scope() == engine.ScopeValue {
		return r.cssValueScope(props)
	}
	lines := make([]string, 0, len(props))
	for _, p := range props {
		lines = append(lines, r.cssProperty(p))
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) cssValueScope(props []*stylesheetProperty) string {
	if len(props) != 1 {
		return ""
	}
	p := props[0]
	switch {
	case p.Name == "!" && len(p.Values) == 0:
		return "!important"
	case p.Name == "" && len(p.Values) == 1 && p.Values[0].Color != nil:
		return expandColor(*p.Values[0].Color)
	}
	return ""
}

func (r *renderer) cssProperty(p *stylesheetProperty) string {
	if p.Name == "!" {
		return "!important"
	}
	if snippet, ok := atRuleSnippets[p.Name]; ok && len(p.Values) == 0 {
		return r.fields(snippet)
	}
	if snippet, ok := r.cfg.Options.Snippets[p.Name]; ok && len(p.Values) == 0 {
		return r.fields(snippet)
	}

	name := p.Name
	if full, ok := propertySnippets[name]; ok {
		name = full
	}

	values := make([]string, 0, len(p.Values))
	for i, v := range p.Values {
		values = append(values, r.cssValue(name, v, i == 0))
	}

	value := strings.Join(values, " ")
	if value == "" {
		value = r.nextField("")
	}
	if p.Important {
		value += " !important"
	}
	if name == "" {
		return value
	}
	return name + ": " + value + ";"
}

func (r *renderer) cssValue(property string, v *stylesheetValue, first bool) string {
	sign := ""
	dashes := len(v.Dashes)
	if !first && dashes > 0 {
		// the first dash between values is a separator
		dashes--
	}
	if dashes > 0 {
		sign = "-"
	}

	switch {
	case v.Color != nil:
		return expandColor(*v.Color)
	case v.Keyword != nil:
		kw := *v.Keyword
		if full, ok := keywordSnippets[property][kw]; ok {
			return full
		}
		if full, ok := globalKeywords[kw]; ok {
			return full
		}
		return kw
	case v.Number != nil:
		return sign + cssNumber(property, *v.Number)
	}
	return ""
}

func cssNumber(property, raw string) string {
	m := reNumberParts.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	num, unit := m[1], m[2]
	if full, ok := unitAliases[unit]; ok {
		unit = full
	}
	if unit == "" && num != "0" && !unitless[property] {
		if strings.Contains(num, ".") {
			unit = "em"
		} else {
			unit = "px"
		}
	}
	return num + unit
}

// expandColor normalizes `#f` to `#fff` and `#e0` to `#e0e0e0`.
func expandColor(c string) string {
	hex := strings.TrimPrefix(c, "#")
	switch len(hex) {
	case 0:
		return "#000"
	case 1:
		return "#" + strings.Repeat(hex, 3)
	case 2:
		return "#" + strings.Repeat(hex, 3)
	}
	return "#" + hex
}
