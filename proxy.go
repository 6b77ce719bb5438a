package mdoc

import (
	"errors"
	"maps"
	"slices"

	"github.com/dpotapov/go-mdoc/markdoc"
)

// ProxyTag is the schema of the tag Reconcile rewrites raw HTML into. It
// renders an element named by the "name" attribute carrying the "attrs"
// attributes in their original order.
func ProxyTag() *markdoc.Schema {
	return &markdoc.Schema{
		Attributes: map[string]markdoc.AttributeSpec{
			"name":  {Type: markdoc.TypeString, Required: true},
			"attrs": {Type: markdoc.TypeObject},
		},
		Transform: transformProxy,
	}
}

func transformProxy(n *markdoc.Node, cfg *markdoc.Config) (any, error) {
	attrs, err := n.ResolveAttributes(cfg)
	if err != nil {
		return nil, err
	}
	v, _ := attrs.Get("name")
	name, _ := v.(string)
	if name == "" {
		return nil, errors.New("html tag without element name")
	}
	var elAttrs markdoc.Attrs
	v, _ = attrs.Get("attrs")
	switch a := v.(type) {
	case markdoc.Attrs:
		elAttrs = a.Clone()
	case map[string]any:
		elAttrs = attrsFromMap(a)
	}
	children, err := n.TransformChildren(cfg)
	if err != nil {
		return nil, err
	}
	return markdoc.NewTag(name, elAttrs, children), nil
}

// attrsFromMap orders map attributes by name, so output is stable.
func attrsFromMap(m map[string]any) markdoc.Attrs {
	out := make(markdoc.Attrs, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, markdoc.Attr{Name: k, Value: m[k]})
	}
	return out
}
