package markdoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strconv"
)

var (
	builtinNodes     map[NodeType]*Schema
	builtinTags      map[string]*Schema
	builtinFunctions map[string]FunctionSpec
)

// The tables refer back to Config lookups, so they are built in init to avoid
// an initialization cycle.
func init() {
	builtinNodes = map[NodeType]*Schema{
		NodeDocument: {
			Render:     "article",
			Attributes: map[string]AttributeSpec{"frontmatter": {Omit: true}},
		},
		NodeParagraph:  {Render: "p"},
		NodeHeading:    {Transform: transformHeading, Attributes: map[string]AttributeSpec{"level": {Type: TypeNumber, Required: true, Omit: true}}},
		NodeText:       {Transform: transformText, Attributes: map[string]AttributeSpec{"content": {Required: true}}},
		NodeSoftbreak:  {Transform: func(*Node, *Config) (any, error) { return " ", nil }},
		NodeHardbreak:  {Render: "br"},
		NodeBlockquote: {Render: "blockquote"},
		NodeList: {
			Transform: transformList,
			Attributes: map[string]AttributeSpec{
				"ordered": {Type: TypeBoolean, Omit: true},
				"start":   {Type: TypeNumber},
			},
		},
		NodeItem: {Render: "li"},
		NodeFence: {
			Transform: transformFence,
			Attributes: map[string]AttributeSpec{
				"content":  {Type: TypeString, Omit: true},
				"language": {Type: TypeString, RenderAs: "data-language"},
			},
		},
		NodeCode: {Transform: transformCode, Attributes: map[string]AttributeSpec{"content": {Type: TypeString, Omit: true}}},
		NodeLink: {
			Render: "a",
			Attributes: map[string]AttributeSpec{
				"href":  {Type: TypeString, Required: true},
				"title": {Type: TypeString},
			},
		},
		NodeImage: {
			Render: "img",
			Attributes: map[string]AttributeSpec{
				"src":   {Type: TypeString, Required: true},
				"alt":   {Type: TypeString},
				"title": {Type: TypeString},
			},
		},
		NodeEm:      {Render: "em"},
		NodeStrong:  {Render: "strong"},
		NodeStrike:  {Render: "s"},
		NodeHR:      {Render: "hr"},
		NodeTable:   {Render: "table"},
		NodeThead:   {Render: "thead"},
		NodeTbody:   {Render: "tbody"},
		NodeTr:      {Render: "tr"},
		NodeTh:      {Render: "th", Attributes: map[string]AttributeSpec{"align": {Type: TypeString}, "width": {Type: TypeNumber}}},
		NodeTd:      {Render: "td", Attributes: map[string]AttributeSpec{"align": {Type: TypeString}, "colspan": {Type: TypeNumber}, "rowspan": {Type: TypeNumber}}},
		NodeHTML:    {Transform: transformHTML},
		NodeComment: {Transform: func(*Node, *Config) (any, error) { return nil, nil }},
		NodeError:   {Transform: func(*Node, *Config) (any, error) { return nil, nil }},
	}

	builtinTags = map[string]*Schema{
		"if": {
			Attributes: map[string]AttributeSpec{"primary": {Required: true}},
			Transform:  transformIf,
		},
		"else": {
			SelfClosing: true,
			Attributes:  map[string]AttributeSpec{"primary": {}},
			Transform:   func(*Node, *Config) (any, error) { return nil, nil },
		},
		"partial": {
			SelfClosing: true,
			Attributes: map[string]AttributeSpec{
				"file":      {Type: TypeString, Required: true},
				"variables": {Type: TypeObject},
			},
			Transform: transformPartial,
			Validate:  validatePartial,
		},
	}

	builtinFunctions = map[string]FunctionSpec{
		"and": {Transform: func(params Attrs, _ *Config) (any, error) {
			for _, v := range positional(params) {
				if !truthy(v) {
					return false, nil
				}
			}
			return true, nil
		}},
		"or": {Transform: func(params Attrs, _ *Config) (any, error) {
			for _, v := range positional(params) {
				if truthy(v) {
					return true, nil
				}
			}
			return false, nil
		}},
		"not": {Transform: func(params Attrs, _ *Config) (any, error) {
			args := positional(params)
			if len(args) == 0 {
				return true, nil
			}
			return !truthy(args[0]), nil
		}},
		"equals": {Transform: func(params Attrs, _ *Config) (any, error) {
			args := positional(params)
			for i := 1; i < len(args); i++ {
				if !looseEqual(args[0], args[i]) {
					return false, nil
				}
			}
			return true, nil
		}},
		"default": {Transform: func(params Attrs, _ *Config) (any, error) {
			args := positional(params)
			for _, v := range args {
				if v != nil {
					return v, nil
				}
			}
			return nil, nil
		}},
		"debug": {Transform: func(params Attrs, _ *Config) (any, error) {
			args := positional(params)
			if len(args) == 0 {
				return "", nil
			}
			b, err := json.MarshalIndent(args[0], "", "  ")
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}},
	}
}

// positional returns the values of the numerically keyed parameters in order.
func positional(params Attrs) []any {
	type arg struct {
		idx int
		val any
	}
	var args []arg
	for _, p := range params {
		if i, err := strconv.Atoi(p.Name); err == nil && i >= 0 {
			args = append(args, arg{i, p.Value})
		}
	}
	sort.Slice(args, func(a, b int) bool { return args[a].idx < args[b].idx })
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.val
	}
	return out
}

func looseEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func transformText(n *Node, cfg *Config) (any, error) {
	v, _ := n.Attributes.Get("content")
	return ResolveValue(v, cfg)
}

func transformHTML(n *Node, _ *Config) (any, error) {
	v, _ := n.Attributes.Get("content")
	s, _ := v.(string)
	return Raw(s), nil
}

func transformHeading(n *Node, cfg *Config) (any, error) {
	attrs, err := n.TransformAttributes(cfg)
	if err != nil {
		return nil, err
	}
	children, err := n.TransformChildren(cfg)
	if err != nil {
		return nil, err
	}
	level, _ := n.Attributes.Get("level")
	return &Tag{Name: fmt.Sprintf("h%v", level), Attributes: attrs, Children: children}, nil
}

func transformList(n *Node, cfg *Config) (any, error) {
	attrs, err := n.TransformAttributes(cfg)
	if err != nil {
		return nil, err
	}
	children, err := n.TransformChildren(cfg)
	if err != nil {
		return nil, err
	}
	name := "ul"
	if ordered, _ := n.Attributes.Get("ordered"); ordered == true {
		name = "ol"
	}
	return &Tag{Name: name, Attributes: attrs, Children: children}, nil
}

func transformFence(n *Node, cfg *Config) (any, error) {
	attrs, err := n.TransformAttributes(cfg)
	if err != nil {
		return nil, err
	}
	content, _ := n.Attributes.Get("content")
	return &Tag{Name: "pre", Attributes: attrs, Children: []any{content}}, nil
}

func transformCode(n *Node, cfg *Config) (any, error) {
	attrs, err := n.TransformAttributes(cfg)
	if err != nil {
		return nil, err
	}
	content, _ := n.Attributes.Get("content")
	return &Tag{Name: "code", Attributes: attrs, Children: []any{content}}, nil
}

// transformIf renders the first branch whose condition holds. Branches are
// separated by {% else /%} or {% else condition /%} children.
func transformIf(n *Node, cfg *Config) (any, error) {
	attrs, err := n.ResolveAttributes(cfg)
	if err != nil {
		return nil, err
	}
	cond, _ := attrs.Get("primary")
	branch := &Node{Type: NodeInline}
	taken := truthy(cond)
	for _, c := range n.Children {
		if c.Type != NodeTag || c.Tag != "else" {
			branch.Children = append(branch.Children, c)
			continue
		}
		if taken {
			break
		}
		elseAttrs, err := c.ResolveAttributes(cfg)
		if err != nil {
			return nil, newTransformError(c, err)
		}
		branch.Children = nil
		taken = true
		if v, ok := elseAttrs.Get("primary"); ok {
			taken = truthy(v)
		}
	}
	if !taken {
		return nil, nil
	}
	return branch.TransformChildren(cfg)
}

// transformPartial renders a preloaded partial. The partial's front matter
// supplies default variables, the caller's variables and the tag's
// "variables" attribute override them.
func transformPartial(n *Node, cfg *Config) (any, error) {
	attrs, err := n.ResolveAttributes(cfg)
	if err != nil {
		return nil, err
	}
	file, _ := attrs.Get("file")
	name, _ := file.(string)
	partial, ok := cfg.Partials[name]
	if !ok || partial == nil {
		return nil, nil
	}

	scoped, err := cfg.Enter()
	if err != nil {
		return nil, fmt.Errorf("partial %s: %w", name, err)
	}
	vars := map[string]any{}
	if fm, ok := partial.Attributes.Get("frontmatter"); ok {
		if m, ok := fm.(map[string]any); ok {
			maps.Copy(vars, m)
		}
	}
	maps.Copy(vars, cfg.Variables)
	if v, ok := attrs.Get("variables"); ok {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, errors.New("partial variables must be an object")
		}
		maps.Copy(vars, m)
	}
	scoped = scoped.WithVariables(vars)

	out, err := partial.TransformChildren(scoped)
	if err != nil {
		return nil, fmt.Errorf("partial %s: %w", name, err)
	}
	return out, nil
}

func validatePartial(n *Node, cfg *Config) []*Error {
	file, _ := n.Attributes.Get("file")
	name, ok := file.(string)
	if !ok {
		return nil
	}
	if _, ok := cfg.Partials[name]; !ok {
		return []*Error{{
			ID:      "attribute-value-invalid",
			Level:   LevelError,
			Message: fmt.Sprintf("Partial `%s` not found. The 'file' attribute must be set in `config.partials`", name),
			Line:    n.Line,
		}}
	}
	return nil
}
