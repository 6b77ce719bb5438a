package mdoc

import (
	"fmt"
	"strings"

	"github.com/dpotapov/go-mdoc/htmlstream"
	"github.com/dpotapov/go-mdoc/markdoc"

	"golang.org/x/net/html"
)

// DefaultProxyName is the tag name raw HTML elements are rewritten to.
const DefaultProxyName = "html-tag"

// Reconcile rewrites every raw HTML token into balanced tag_open/text/tag_close
// tokens of the proxy tag, so the tree builder sees HTML elements as ordinary
// Markdoc tags. Each proxy open token has two attributes: "name", the element
// name, and "attrs", the element attributes as markdoc.Attrs of strings.
//
// One HTML parser serves the whole token list, so an element may open in one
// raw HTML token and close in a later one. The children of inline tokens are
// reconciled recursively, each list with its own parser. All other tokens are
// passed through as is.
func Reconcile(tokens []*markdoc.Token, proxyName string) ([]*markdoc.Token, error) {
	if !markdoc.IsIdentifier(proxyName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyName, proxyName)
	}
	return reconcile(tokens, proxyName), nil
}

func reconcile(tokens []*markdoc.Token, proxyName string) []*markdoc.Token {
	out := make([]*markdoc.Token, 0, len(tokens))
	line := 0

	p := htmlstream.NewParser(htmlstream.Funcs{
		OnOpenTag: func(name string, attrs []html.Attribute) {
			out = append(out, &markdoc.Token{
				Type:    markdoc.TokenTagOpen,
				Nesting: 1,
				Line:    line,
				Meta: &markdoc.TagMeta{
					Tag: proxyName,
					Attributes: markdoc.Attrs{
						{Name: "name", Value: name},
						{Name: "attrs", Value: elementAttrs(attrs)},
					},
				},
			})
		},
		OnText: func(text string) {
			if strings.TrimSpace(text) == "" {
				return
			}
			out = append(out, &markdoc.Token{Type: markdoc.TokenText, Content: text, Line: line})
		},
		OnCloseTag: func(string) {
			out = append(out, &markdoc.Token{
				Type:    markdoc.TokenTagClose,
				Nesting: -1,
				Line:    line,
				Meta:    &markdoc.TagMeta{Tag: proxyName},
			})
		},
	})

	for _, t := range tokens {
		if t.IsHTML() {
			line = t.Line
			p.Write(t.Content)
			continue
		}
		if t.Type == markdoc.TokenInline {
			t.Children = reconcile(t.Children, proxyName)
		}
		out = append(out, t)
	}
	p.End()

	return out
}

// elementAttrs copies attributes so later parser events cannot alias them.
func elementAttrs(attrs []html.Attribute) markdoc.Attrs {
	out := make(markdoc.Attrs, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, markdoc.Attr{Name: a.Key, Value: a.Val})
	}
	return out
}
