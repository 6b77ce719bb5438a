package markdoc

import (
	"fmt"
	"maps"
)

// DefaultMaxDepth bounds nested transforms when Config.MaxDepth is zero.
const DefaultMaxDepth = 32

// Type is the declared type of a tag attribute.
type Type int

const (
	TypeAny Type = iota
	TypeString
	TypeNumber
	TypeBoolean
	TypeArray
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeNumber:
		return "Number"
	case TypeBoolean:
		return "Boolean"
	case TypeArray:
		return "Array"
	case TypeObject:
		return "Object"
	default:
		return "Any"
	}
}

// Matches reports whether a resolved value has the type. Nil matches any type.
func (t Type) Matches(v any) bool {
	if v == nil || t == TypeAny {
		return true
	}
	switch v.(type) {
	case string:
		return t == TypeString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return t == TypeNumber
	case bool:
		return t == TypeBoolean
	case []any:
		return t == TypeArray
	case map[string]any, Attrs:
		return t == TypeObject
	}
	return false
}

// AttributeSpec declares a tag or node attribute.
type AttributeSpec struct {
	Type     Type
	Required bool
	Default  any

	// Single lets an array attribute take one bare value in place of a list.
	Single bool

	// RenderAs renames the attribute in the output.
	RenderAs string

	// Omit keeps the attribute out of the rendered element.
	Omit bool
}

func (s AttributeSpec) accepts(v any) bool {
	if s.Single && s.Type == TypeArray {
		return true
	}
	return s.Type.Matches(v)
}

// Schema describes how a node type or tag is transformed.
type Schema struct {
	// Render is the element name emitted by the default transform. An empty
	// Render makes the node a fragment of its children.
	Render string

	Attributes map[string]AttributeSpec

	// PassThrough keeps attributes the schema does not declare.
	PassThrough bool

	SelfClosing bool

	// Transform replaces the default transform.
	Transform func(n *Node, cfg *Config) (any, error)

	// Validate adds schema specific findings.
	Validate func(n *Node, cfg *Config) []*Error
}

var globalAttributes = map[string]AttributeSpec{
	"class": {Type: TypeAny},
	"id":    {Type: TypeString},
}

func (s *Schema) attribute(name string) (AttributeSpec, bool) {
	if spec, ok := s.Attributes[name]; ok {
		return spec, true
	}
	spec, ok := globalAttributes[name]
	return spec, ok
}

// FunctionSpec is a function callable from {% fn(...) %} or attribute values.
// Positional parameters are keyed "0", "1", ... in Params.
type FunctionSpec struct {
	Transform func(params Attrs, cfg *Config) (any, error)
}

// Config is the environment a document is transformed in. Nodes, Tags and
// Functions extend or override the built-ins.
type Config struct {
	Nodes     map[NodeType]*Schema
	Tags      map[string]*Schema
	Variables map[string]any
	Functions map[string]FunctionSpec
	Partials  map[string]*Node

	// MaxDepth limits nested transforms through Enter. Zero means
	// DefaultMaxDepth.
	MaxDepth int

	depth int
}

// Enter returns a copy of the config one nesting level deeper. It fails with
// ErrMaxDepth once the limit is reached.
func (c *Config) Enter() (*Config, error) {
	limit := c.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	if c.depth+1 > limit {
		return nil, fmt.Errorf("%w (%d)", ErrMaxDepth, limit)
	}
	child := *c
	child.depth++
	return &child, nil
}

// Depth is the number of Enter calls the config is nested in.
func (c *Config) Depth() int {
	return c.depth
}

// WithVariables returns a copy of the config with vars merged over the
// existing variables.
func (c *Config) WithVariables(vars map[string]any) *Config {
	child := *c
	merged := make(map[string]any, len(c.Variables)+len(vars))
	maps.Copy(merged, c.Variables)
	maps.Copy(merged, vars)
	child.Variables = merged
	return &child
}

// LookupTag returns the schema of a tag, checking the config before the
// built-ins.
func (c *Config) LookupTag(name string) (*Schema, bool) {
	if s, ok := c.Tags[name]; ok && s != nil {
		return s, true
	}
	s, ok := builtinTags[name]
	return s, ok
}

// LookupNode returns the schema of a node type, checking the config before the
// built-ins.
func (c *Config) LookupNode(t NodeType) (*Schema, bool) {
	if s, ok := c.Nodes[t]; ok && s != nil {
		return s, true
	}
	s, ok := builtinNodes[t]
	return s, ok
}

func (c *Config) function(name string) (FunctionSpec, bool) {
	if f, ok := c.Functions[name]; ok && f.Transform != nil {
		return f, true
	}
	f, ok := builtinFunctions[name]
	return f, ok
}

func (c *Config) schemaFor(n *Node) *Schema {
	if n.Type == NodeTag {
		s, _ := c.LookupTag(n.Tag)
		return s
	}
	s, _ := c.LookupNode(n.Type)
	return s
}
