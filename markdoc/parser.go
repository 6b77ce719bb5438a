package markdoc

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse builds an AST from a token stream. Parse never fails; structural
// problems are recorded in Node.Errors and reported by Validate.
func Parse(tokens []*Token) *Node {
	doc := &Node{Type: NodeDocument, Line: 1}
	b := &treeBuilder{stack: []*Node{doc}}
	for _, t := range tokens {
		b.token(t)
	}
	b.unwind(doc)
	return doc
}

type treeBuilder struct {
	stack  []*Node
	inline int // number of open inline scopes
}

func (b *treeBuilder) top() *Node {
	return b.stack[len(b.stack)-1]
}

func (b *treeBuilder) append(n *Node) {
	n.Inline = b.inline > 0
	b.top().AppendChild(n)
}

func (b *treeBuilder) push(n *Node) {
	b.append(n)
	b.stack = append(b.stack, n)
}

// unwind pops the stack down to (excluding) scope. Tags still open at that
// point never saw their closing tag.
func (b *treeBuilder) unwind(scope *Node) {
	for len(b.stack) > 0 && b.top() != scope {
		n := b.top()
		if n.Type == NodeTag {
			n.Errors = append(n.Errors, &Error{
				ID:      "missing-closing",
				Level:   LevelCritical,
				Message: fmt.Sprintf("Node '%s' is missing closing", n.Tag),
				Line:    n.Line,
			})
		}
		b.stack = b.stack[:len(b.stack)-1]
	}
}

func (b *treeBuilder) token(t *Token) {
	switch t.Type {
	case TokenInline:
		n := &Node{Type: NodeInline, Line: t.Line}
		b.push(n)
		b.inline++
		for _, c := range t.Children {
			b.token(c)
		}
		b.unwind(n)
		b.inline--
		b.stack = b.stack[:len(b.stack)-1]

	case TokenTagOpen:
		b.push(b.tagNode(t))

	case TokenTag:
		b.append(b.tagNode(t))

	case TokenTagClose:
		b.closeTag(t)

	case TokenAnnotation:
		b.annotate(t)

	case TokenText:
		b.append(&Node{Type: NodeText, Attributes: Attrs{{Name: "content", Value: t.Content}}, Line: t.Line})

	case TokenVariable, TokenFunction:
		b.append(&Node{Type: NodeText, Attributes: Attrs{{Name: "content", Value: t.Meta.Value}}, Line: t.Line, Raw: t.Meta.Raw})

	case TokenSoftbreak:
		b.append(&Node{Type: NodeSoftbreak, Line: t.Line})

	case TokenHardbreak:
		b.append(&Node{Type: NodeHardbreak, Line: t.Line})

	case TokenCodeInline:
		b.append(&Node{Type: NodeCode, Attributes: Attrs{{Name: "content", Value: t.Content}}, Line: t.Line})

	case TokenFence, TokenCodeBlock:
		attrs := Attrs{{Name: "content", Value: t.Content}}
		if lang, _, _ := strings.Cut(t.Info, " "); lang != "" {
			attrs.Set("language", lang)
		}
		b.append(&Node{Type: NodeFence, Attributes: attrs, Line: t.Line})

	case TokenImage:
		b.append(&Node{Type: NodeImage, Attributes: t.Attrs.Clone(), Line: t.Line})

	case TokenHR:
		b.append(&Node{Type: NodeHR, Line: t.Line})

	case TokenHTMLBlock, TokenHTMLInline:
		b.append(&Node{Type: NodeHTML, Attributes: Attrs{{Name: "content", Value: t.Content}}, Line: t.Line})

	case TokenComment:
		b.append(&Node{Type: NodeComment, Attributes: Attrs{{Name: "content", Value: t.Content}}, Line: t.Line})

	case TokenError:
		n := &Node{Type: NodeError, Line: t.Line, Raw: t.Content}
		if t.Meta != nil && t.Meta.Err != nil {
			n.Errors = append(n.Errors, t.Meta.Err)
		}
		b.append(n)

	case TokenFrontMatter:
		b.stack[0].Attributes.Set("frontmatter", t.Data)

	default:
		switch {
		case strings.HasSuffix(t.Type, "_open"):
			b.push(b.blockNode(t))
		case strings.HasSuffix(t.Type, "_close"):
			b.closeBlock(nodeTypeOf(strings.TrimSuffix(t.Type, "_close")))
		}
	}
}

func (b *treeBuilder) tagNode(t *Token) *Node {
	return &Node{
		Type:       NodeTag,
		Tag:        t.Meta.Tag,
		Attributes: t.Meta.Attributes.Clone(),
		Line:       t.Line,
		Raw:        t.Meta.Raw,
	}
}

func (b *treeBuilder) closeTag(t *Token) {
	n := b.top()
	if n.Type == NodeTag && n.Tag == t.Meta.Tag {
		n.CloseRaw = t.Meta.Raw
		b.stack = b.stack[:len(b.stack)-1]
		return
	}
	found := ""
	if n.Type == NodeTag {
		found = n.Tag
	}
	b.append(&Node{
		Type: NodeError,
		Line: t.Line,
		Raw:  t.Meta.Raw,
		Errors: []*Error{{
			ID:      "mismatched-tag",
			Level:   LevelCritical,
			Message: fmt.Sprintf("Closing tag '%s' doesn't match opening tag '%s'", t.Meta.Tag, found),
			Line:    t.Line,
		}},
	})
}

// closeBlock pops the stack up to and including the nearest node of type typ.
// Markdown structure is always balanced, so a missing match is ignored.
func (b *treeBuilder) closeBlock(typ NodeType) {
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].Type == typ {
			b.unwind(b.stack[i])
			b.stack = b.stack[:len(b.stack)-1]
			return
		}
		if b.stack[i].Type == NodeInline {
			return
		}
	}
}

// annotate merges annotation attributes into the enclosing block.
func (b *treeBuilder) annotate(t *Token) {
	target := b.top()
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].Type == NodeInline {
			target = b.stack[i-1]
			break
		}
	}
	for _, attr := range t.Meta.Attributes {
		if attr.Name == "class" {
			if existing, ok := target.Attributes.Get("class"); ok {
				if s, ok := existing.(string); ok && s != "" {
					target.Attributes.Set("class", s+" "+fmt.Sprint(attr.Value))
					continue
				}
			}
		}
		target.Attributes.Set(attr.Name, attr.Value)
	}
}

func (b *treeBuilder) blockNode(t *Token) *Node {
	typ := strings.TrimSuffix(t.Type, "_open")
	n := &Node{Type: nodeTypeOf(typ), Attributes: t.Attrs.Clone(), Line: t.Line}
	switch typ {
	case "heading":
		level, _ := strconv.Atoi(strings.TrimPrefix(t.Tag, "h"))
		n.Attributes.Set("level", level)
	case "ordered_list":
		n.Attributes.Set("ordered", true)
	case "bullet_list":
		n.Attributes.Set("ordered", false)
	}
	return n
}

func nodeTypeOf(typ string) NodeType {
	switch typ {
	case "bullet_list", "ordered_list":
		return NodeList
	case "list_item":
		return NodeItem
	default:
		return NodeType(typ)
	}
}
