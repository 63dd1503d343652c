package abbreviation

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/walteh/emmetls/pkg/engine"
)

var (
	reNumbering = regexp.MustCompile(`\$+`)
	reField     = regexp.MustCompile(`\$\{(\d+)(?::([^}]*))?\}`)
	reLorem     = regexp.MustCompile(`^lorem(\d*)$`)
)

// builtinSnippets are markup snippets that expand to literal text.
var builtinSnippets = map[string]string{
	"!": "<!DOCTYPE html>\n<html lang=\"${1:en}\">\n<head>\n\t<meta charset=\"UTF-8\">\n" +
		"\t<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n" +
		"\t<title>${2:Document}</title>\n</head>\n<body>\n\t${3}\n</body>\n</html>",
	"!!!": "<!DOCTYPE html>",
	"c":   "<!-- ${1} -->",
}

// defaultAttributes are added to bare elements, mirroring common Emmet snippets.
var defaultAttributes = map[string][]Attribute{
	"a":      {{Name: "href"}},
	"img":    {{Name: "src"}, {Name: "alt"}},
	"input":  {{Name: "type", Value: "text"}},
	"link":   {{Name: "rel", Value: "stylesheet"}, {Name: "href"}},
	"form":   {{Name: "action"}},
	"label":  {{Name: "for"}},
	"iframe": {{Name: "src"}, {Name: "frameborder", Value: "0"}},
	"script": {{Name: "src"}},
}

var loremWords = strings.Fields(`lorem ipsum dolor sit amet consectetur adipisicing elit
	quasi nobis deserunt facere tempora possimus quam eius voluptate recusandae
	magnam dignissimos ratione harum illo officiis minima reprehenderit sequi sint
	nihil explicabo autem natus veritatis perferendis accusamus repellendus`)

const maxSnippetDepth = 4

type renderer struct {
	cfg   *engine.Config
	field int
	depth int
	out   strings.Builder
}

// Render turns a parsed markup tree into snippet text.
func Render(tree *Tree, cfg *engine.Config) string {
	r := &renderer{cfg: cfg}
	r.nodes(r.expandRepeats(tree.Children, "", 0), "")
	return strings.TrimSuffix(r.out.String(), "\n")
}

func (r *renderer) nextField(placeholder string) string {
	if r.cfg.Field == engine.FieldPreview {
		return placeholder
	}
	r.field++
	if placeholder == "" {
		return "${" + strconv.Itoa(r.field) + "}"
	}
	return "${" + strconv.Itoa(r.field) + ":" + placeholder + "}"
}

// expandRepeats clones repeated nodes and resolves `$` numbering and implicit
// names. Nodes without their own repeat inherit the index of the nearest
// repeated ancestor.
func (r *renderer) expandRepeats(nodes []*Node, parentName string, index int) []*Node {
	var out []*Node
	for _, n := range nodes {
		count := max(n.Repeat, 1)
		for i := 1; i <= count; i++ {
			c := n.clone()
			idx := index
			if n.Repeat > 0 {
				idx = i
			}
			if idx > 0 {
				c.number(idx)
			}
			if !c.Group && c.Name == "" && !c.textOnly() {
				c.Name = implicitName(parentName)
			}
			name := c.Name
			if c.Group {
				name = parentName
			}
			c.Children = r.expandRepeats(n.Children, name, idx)
			out = append(out, c)
		}
	}
	return out
}

func (r *renderer) nodes(nodes []*Node, indent string) {
	for _, n := range nodes {
		r.node(n, indent)
	}
}

func (r *renderer) node(n *Node, indent string) {
	if n.Group {
		r.nodes(n.Children, indent)
		return
	}

	if n.textOnly() {
		r.out.WriteString(indent + n.Text + "\n")
		r.nodes(n.Children, indent)
		return
	}

	if text, ok := r.snippet(n); ok {
		for _, line := range strings.Split(text, "\n") {
			r.out.WriteString(indent + line + "\n")
		}
		return
	}

	if m := reLorem.FindStringSubmatch(n.Name); m != nil && !n.hasDecoration() {
		r.out.WriteString(indent + lorem(m[1]) + "\n")
		return
	}

	open := "<" + n.Name + r.attributes(n)

	if r.isVoid(n) {
		r.out.WriteString(indent + open + r.selfClosing() + "\n")
		return
	}

	closeTag := "</" + n.Name + ">"
	if len(n.Children) == 0 {
		body := n.Text
		if !n.HasText {
			body = r.nextField("")
		}
		r.out.WriteString(indent + open + ">" + body + closeTag + "\n")
		return
	}

	r.out.WriteString(indent + open + ">" + n.Text + "\n")
	r.nodes(n.Children, indent+r.cfg.IndentOrDefault())
	r.out.WriteString(indent + closeTag + "\n")
}

func (r *renderer) snippet(n *Node) (string, bool) {
	if n.hasDecoration() || len(n.Children) > 0 {
		return "", false
	}
	if text, ok := r.cfg.Options.Snippets[n.Name]; ok {
		if !strings.Contains(text, "<") && r.depth < maxSnippetDepth {
			if tree, err := ParseMarkup(text); err == nil {
				sub := &renderer{cfg: r.cfg, field: r.field, depth: r.depth + 1}
				sub.nodes(sub.expandRepeats(tree.Children, "", 0), "")
				r.field = sub.field
				return strings.TrimSuffix(sub.out.String(), "\n"), true
			}
		}
		return r.fields(text), true
	}
	if text, ok := builtinSnippets[n.Name]; ok {
		return r.fields(text), true
	}
	return "", false
}

// fields renumbers snippet tab-stops after the ones already emitted, or strips
// them in preview mode.
func (r *renderer) fields(text string) string {
	base := r.field
	return reField.ReplaceAllStringFunc(text, func(m string) string {
		sub := reField.FindStringSubmatch(m)
		idx, _ := strconv.Atoi(sub[1])
		if r.cfg.Field == engine.FieldPreview {
			return sub[2]
		}
		r.field = max(r.field, base+idx)
		if sub[2] == "" {
			return "${" + strconv.Itoa(base+idx) + "}"
		}
		return "${" + strconv.Itoa(base+idx) + ":" + sub[2] + "}"
	})
}

func (r *renderer) attributes(n *Node) string {
	var attrs []Attribute
	if n.ID != "" {
		attrs = append(attrs, Attribute{Name: "id", Value: n.ID})
	}
	if len(n.Classes) > 0 {
		attrs = append(attrs, Attribute{Name: "class", Value: strings.Join(n.Classes, " ")})
	}
	attrs = append(attrs, n.Attributes...)
	if len(n.Attributes) == 0 && n.ID == "" && len(n.Classes) == 0 {
		attrs = append(attrs, defaultAttributes[n.Name]...)
	}

	var sb strings.Builder
	for _, a := range attrs {
		name := a.Name
		if r.cfg.JSX {
			switch name {
			case "class":
				name = "className"
			case "for":
				name = "htmlFor"
			}
		}
		sb.WriteString(" " + name)
		switch {
		case a.Boolean:
			if r.selfClosingStyle() != "html" && !r.cfg.JSX {
				sb.WriteString("=" + r.quote(name))
			}
		case a.Expression && r.cfg.JSX:
			sb.WriteString("={" + a.Value + "}")
		case a.Value == "":
			sb.WriteString("=" + r.quote(r.nextField("")))
		default:
			sb.WriteString("=" + r.quote(a.Value))
		}
	}
	return sb.String()
}

func (r *renderer) quote(v string) string {
	if r.cfg.Options.AttributeQuotes == "single" {
		return "'" + v + "'"
	}
	return `"` + v + `"`
}

func (r *renderer) selfClosingStyle() string {
	if r.cfg.Options.SelfClosingStyle == "" {
		if r.cfg.Syntax == "xml" || r.cfg.Syntax == "xsl" {
			return "xml"
		}
		return "html"
	}
	return r.cfg.Options.SelfClosingStyle
}

func (r *renderer) selfClosing() string {
	if r.cfg.JSX {
		return " />"
	}
	switch r.selfClosingStyle() {
	case "xhtml":
		return " />"
	case "xml":
		return "/>"
	}
	return ">"
}

func (r *renderer) isVoid(n *Node) bool {
	if n.SelfClose {
		return true
	}
	if r.selfClosingStyle() == "xml" && !r.cfg.JSX {
		return false
	}
	return len(n.Children) == 0 && !n.HasText && slices.Contains(engine.VoidTags, n.Name)
}

func implicitName(parent string) string {
	switch parent {
	case "ul", "ol":
		return "li"
	case "table", "tbody", "thead", "tfoot":
		return "tr"
	case "tr":
		return "td"
	case "select", "optgroup":
		return "option"
	case "span", "a", "b", "i", "em", "strong", "p", "label":
		return "span"
	}
	return "div"
}

func lorem(count string) string {
	n := 30
	if count != "" {
		n, _ = strconv.Atoi(count)
	}
	if n <= 0 {
		return ""
	}
	words := make([]string, n)
	for i := range words {
		words[i] = loremWords[i%len(loremWords)]
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ") + "."
}

func (n *Node) textOnly() bool {
	return n.Name == "" && n.HasText && !n.hasDecoration()
}

func (n *Node) hasDecoration() bool {
	return n.ID != "" || len(n.Classes) > 0 || len(n.Attributes) > 0
}

func (n *Node) clone() *Node {
	c := *n
	c.Classes = slices.Clone(n.Classes)
	c.Attributes = slices.Clone(n.Attributes)
	c.Children = nil
	return &c
}

// number replaces `$` runs with the zero-padded repeat index.
func (n *Node) number(i int) {
	repl := func(s string) string {
		return reNumbering.ReplaceAllStringFunc(s, func(m string) string {
			v := strconv.Itoa(i)
			if pad := len(m) - len(v); pad > 0 {
				v = strings.Repeat("0", pad) + v
			}
			return v
		})
	}
	n.Name = repl(n.Name)
	n.ID = repl(n.ID)
	n.Text = repl(n.Text)
	for j := range n.Classes {
		n.Classes[j] = repl(n.Classes[j])
	}
	for j := range n.Attributes {
		n.Attributes[j].Value = repl(n.Attributes[j].Value)
	}
}
