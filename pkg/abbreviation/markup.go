package abbreviation

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"gitlab.com/tozd/go/errors"
)

type markupSequence struct {
	Pos   lexer.Position
	Head  *markupItem   `@@`
	Steps []*markupStep `@@*`
}

type markupStep struct {
	Pos  lexer.Position
	Op   string      `@Op`
	Item *markupItem `@@?`
}

type markupItem struct {
	Group   *markupGroup   `  @@`
	Element *markupElement `| @@`
}

type markupGroup struct {
	Body   *markupSequence `"(" @@? ")"`
	Repeat *markupRepeat   `@@?`
}

type markupElement struct {
	Pos       lexer.Position
	Name      string        `( @Ident`
	Parts     []*markupPart `  @@* | @@+ )`
	Repeat    *markupRepeat `@@?`
	SelfClose bool          `@"/"?`
}

type markupPart struct {
	Prefix string        `(  @( "#" | "." )`
	Name   string        `   @Ident?`
	Attrs  []*markupAttr `| "[" @@* "]"`
	Text   *string       `| @Text )`
}

type markupAttr struct {
	Name  string  `@AttrName`
	Value *string `( "=" @( AttrValue | AttrName )? )?`
}

type markupRepeat struct {
	Pos   lexer.Position
	Count string `"*" @Ident?`
}

// Attribute is a rendered attribute. An empty Value on a non-boolean
// attribute becomes a field.
type Attribute struct {
	Name    string
	Value   string
	Boolean bool
	// Expression marks `{...}` values, rendered without quotes in JSX.
	Expression bool
}

// Node is a markup element in the abbreviation tree.
type Node struct {
	Name       string
	ID         string
	Classes    []string
	Attributes []Attribute
	Text       string
	HasText    bool
	Repeat     int
	SelfClose  bool
	// Group nodes render only their children.
	Group    bool
	Children []*Node
}

// Tree is the parsed form of a markup abbreviation.
type Tree struct {
	Children []*Node
}

// Simple reports whether the tree is a single leaf that looks like a plain
// element name, or is empty.
func (t *Tree) Simple() bool {
	if len(t.Children) == 0 {
		return true
	}
	if len(t.Children) != 1 || len(t.Children[0].Children) != 0 {
		return false
	}
	first := t.Children[0]
	if first.Group {
		return false
	}
	return first.Name == "" || isLetter(first.Name[0])
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// ParseMarkup parses a markup abbreviation into a tree.
func ParseMarkup(text string) (*Tree, error) {
	seq, err := markupParser.ParseString("", text)
	if err != nil {
		return nil, newSyntaxError(text, err)
	}

	b := &treeBuilder{text: text}
	tree := &Tree{}
	root := &Node{Group: true}
	if err := b.sequence(root, seq); err != nil {
		return nil, err
	}
	tree.Children = root.Children
	return tree, nil
}

type treeBuilder struct {
	text string
}

func (b *treeBuilder) sequence(root *Node, seq *markupSequence) error {
	stack := []*Node{root}
	parent := root

	prev, err := b.item(parent, seq.Head)
	if err != nil {
		return err
	}

	for i, step := range seq.Steps {
		if step.Item == nil && i != len(seq.Steps)-1 {
			return syntaxErrorAt(b.text, step.Pos.Offset, "Unexpected operator "+strconv.Quote(step.Op))
		}

		switch {
		case step.Op == ">":
			if prev != nil && !prev.Group {
				stack = append(stack, prev)
				parent = prev
			}
		case step.Op == "+":
		case strings.HasPrefix(step.Op, "^"):
			for range step.Op {
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
				}
			}
			parent = stack[len(stack)-1]
		}

		if step.Item == nil {
			continue
		}
		if prev, err = b.item(parent, step.Item); err != nil {
			return err
		}
	}
	return nil
}

func (b *treeBuilder) item(parent *Node, item *markupItem) (*Node, error) {
	var node *Node
	var err error
	switch {
	case item.Group != nil:
		node, err = b.group(item.Group)
	case item.Element != nil:
		node, err = b.element(item.Element)
	default:
		return nil, errors.New("empty abbreviation item")
	}
	if err != nil {
		return nil, err
	}
	parent.Children = append(parent.Children, node)
	return node, nil
}

func (b *treeBuilder) group(g *markupGroup) (*Node, error) {
	node := &Node{Group: true}
	if g.Body != nil {
		if err := b.sequence(node, g.Body); err != nil {
			return nil, err
		}
	}
	repeat, err := b.repeat(g.Repeat)
	if err != nil {
		return nil, err
	}
	node.Repeat = repeat
	return node, nil
}

func (b *treeBuilder) element(el *markupElement) (*Node, error) {
	node := &Node{Name: el.Name, SelfClose: el.SelfClose}
	for _, part := range el.Parts {
		switch {
		case part.Prefix == "#":
			node.ID = part.Name
		case part.Prefix == ".":
			if part.Name != "" {
				node.Classes = append(node.Classes, part.Name)
			}
		case part.Text != nil:
			node.Text += strings.TrimSuffix(strings.TrimPrefix(*part.Text, "{"), "}")
			node.HasText = true
		default:
			for _, attr := range part.Attrs {
				node.Attributes = append(node.Attributes, convertAttr(attr))
			}
		}
	}
	repeat, err := b.repeat(el.Repeat)
	if err != nil {
		return nil, err
	}
	node.Repeat = repeat
	return node, nil
}

func (b *treeBuilder) repeat(r *markupRepeat) (int, error) {
	if r == nil {
		return 0, nil
	}
	if r.Count == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(r.Count)
	if err != nil || n < 1 {
		return 0, syntaxErrorAt(b.text, r.Pos.Offset+1, "Invalid repeat count "+strconv.Quote(r.Count))
	}
	return n, nil
}

func convertAttr(a *markupAttr) Attribute {
	attr := Attribute{Name: a.Name}
	if a.Value == nil {
		attr.Boolean = true
		return attr
	}
	v := *a.Value
	switch {
	case len(v) >= 2 && (v[0] == '"' || v[0] == '\''):
		attr.Value = v[1 : len(v)-1]
	case len(v) >= 2 && v[0] == '{':
		attr.Value = v[1 : len(v)-1]
		attr.Expression = true
	default:
		attr.Value = v
	}
	return attr
}
