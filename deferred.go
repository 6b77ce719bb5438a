package mdoc

import "github.com/dpotapov/go-mdoc/markdoc"

// DeferredTags returns tags that are written back as their own source, so a
// template engine running after Markdoc can expand them. Children are still
// transformed:
//
//	{% raw-include "nav.njk" %}*x*{% /raw-include %}
//
// renders as
//
//	{% raw-include "nav.njk" %}<em>x</em>{% /raw-include %}
func DeferredTags(names []string) map[string]*markdoc.Schema {
	out := make(map[string]*markdoc.Schema, len(names))
	for _, name := range names {
		out[name] = &markdoc.Schema{
			PassThrough: true,
			Transform:   transformDeferred,
		}
	}
	return out
}

func transformDeferred(n *markdoc.Node, cfg *markdoc.Config) (any, error) {
	children, err := n.TransformChildren(cfg)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(children)+2)
	out = append(out, markdoc.Raw(n.Raw))
	out = append(out, children...)
	if n.CloseRaw != "" {
		out = append(out, markdoc.Raw(n.CloseRaw))
	}
	return out, nil
}
