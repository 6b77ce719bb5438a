package markdoc

import (
	"fmt"
	"sort"
	"strings"
)

// NodeType is the kind of an AST node.
type NodeType string

const (
	NodeDocument   NodeType = "document"
	NodeParagraph  NodeType = "paragraph"
	NodeHeading    NodeType = "heading"
	NodeInline     NodeType = "inline"
	NodeText       NodeType = "text"
	NodeSoftbreak  NodeType = "softbreak"
	NodeHardbreak  NodeType = "hardbreak"
	NodeTag        NodeType = "tag"
	NodeBlockquote NodeType = "blockquote"
	NodeList       NodeType = "list"
	NodeItem       NodeType = "item"
	NodeFence      NodeType = "fence"
	NodeCode       NodeType = "code"
	NodeLink       NodeType = "link"
	NodeImage      NodeType = "image"
	NodeEm         NodeType = "em"
	NodeStrong     NodeType = "strong"
	NodeStrike     NodeType = "s"
	NodeHR         NodeType = "hr"
	NodeTable      NodeType = "table"
	NodeThead      NodeType = "thead"
	NodeTbody      NodeType = "tbody"
	NodeTr         NodeType = "tr"
	NodeTh         NodeType = "th"
	NodeTd         NodeType = "td"
	NodeHTML       NodeType = "html"
	NodeComment    NodeType = "comment"
	NodeError      NodeType = "error"
)

// Node is a Markdoc AST node. Attribute values may hold unresolved variables
// and function calls; they are resolved against a Config during Transform.
type Node struct {
	Type NodeType

	// Tag is the tag name for NodeTag nodes.
	Tag string

	Attributes Attrs
	Children   []*Node

	// Inline is set for nodes that appear inside a paragraph-level scope.
	Inline bool

	Line   int
	Errors []*Error

	// Raw and CloseRaw hold the source text of the opening and closing tag.
	Raw      string
	CloseRaw string
}

func NewNode(typ NodeType, attrs Attrs, children ...*Node) *Node {
	return &Node{Type: typ, Attributes: attrs, Children: children}
}

// AppendChild adds c to the end of n's children.
func (n *Node) AppendChild(c *Node) {
	n.Children = append(n.Children, c)
}

// Walk visits n and its descendants in document order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Transform converts the node into a render tree using the schema the config
// defines for it.
func (n *Node) Transform(cfg *Config) (any, error) {
	schema := cfg.schemaFor(n)
	if schema != nil && schema.Transform != nil {
		out, err := schema.Transform(n, cfg)
		if err != nil {
			return nil, newTransformError(n, err)
		}
		return out, nil
	}

	children, err := n.TransformChildren(cfg)
	if err != nil {
		return nil, err
	}
	if schema == nil || schema.Render == "" {
		return children, nil
	}
	attrs, err := n.TransformAttributes(cfg)
	if err != nil {
		return nil, newTransformError(n, err)
	}
	return &Tag{Name: schema.Render, Attributes: attrs, Children: children}, nil
}

// TransformChildren transforms every child, flattening fragment results into a
// single list.
func (n *Node) TransformChildren(cfg *Config) ([]any, error) {
	out := make([]any, 0, len(n.Children))
	for _, c := range n.Children {
		v, err := c.Transform(cfg)
		if err != nil {
			return nil, err
		}
		out = appendFlat(out, v)
	}
	return out, nil
}

func appendFlat(out []any, v any) []any {
	switch val := v.(type) {
	case nil:
		return out
	case []any:
		for _, item := range val {
			out = appendFlat(out, item)
		}
		return out
	default:
		return append(out, v)
	}
}

// ResolveAttributes returns every attribute of the node with variables and
// function calls resolved. Schema declarations are not applied.
func (n *Node) ResolveAttributes(cfg *Config) (Attrs, error) {
	return ResolveAttrs(n.Attributes, cfg)
}

// TransformAttributes resolves the node's attributes and applies the schema:
// undeclared attributes are dropped unless the schema passes them through,
// defaults are filled in, omitted attributes are removed and RenderAs renames.
func (n *Node) TransformAttributes(cfg *Config) (Attrs, error) {
	attrs, err := n.ResolveAttributes(cfg)
	if err != nil {
		return nil, err
	}
	schema := cfg.schemaFor(n)
	if schema == nil {
		return attrs, nil
	}

	var out Attrs
	for _, attr := range attrs {
		spec, declared := schema.attribute(attr.Name)
		if !declared && !schema.PassThrough {
			continue
		}
		if spec.Omit || attr.Value == nil {
			continue
		}
		name := attr.Name
		if spec.RenderAs != "" {
			name = spec.RenderAs
		}
		out.Set(name, attrValue(attr.Name, attr.Value))
	}

	names := make([]string, 0, len(schema.Attributes))
	for name := range schema.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := schema.Attributes[name]
		if spec.Default == nil || spec.Omit || attrs.Has(name) {
			continue
		}
		renderName := name
		if spec.RenderAs != "" {
			renderName = spec.RenderAs
		}
		out.Set(renderName, spec.Default)
	}
	return out, nil
}

// attrValue flattens class objects ({a: true, b: false}) into "a".
func attrValue(name string, v any) any {
	if name != "class" {
		return v
	}
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	var classes []string
	for k, on := range m {
		if truthy(on) {
			classes = append(classes, k)
		}
	}
	sort.Strings(classes)
	return strings.Join(classes, " ")
}

func (n *Node) String() string {
	if n.Type == NodeTag {
		return fmt.Sprintf("tag(%s)", n.Tag)
	}
	return string(n.Type)
}

// Transform converts an AST to a render tree. A nil config uses the built-in
// nodes, tags and functions only.
func Transform(n *Node, cfg *Config) (any, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	return n.Transform(cfg)
}
