package markdoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Tag is an element of the render tree.
type Tag struct {
	// Name is the element name. An empty name renders the children only.
	Name       string
	Attributes Attrs
	Children   []any
}

func NewTag(name string, attrs Attrs, children []any) *Tag {
	return &Tag{Name: name, Attributes: attrs, Children: children}
}

// Raw is markup that is written to the output without escaping.
type Raw string

var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement reports whether the element has no closing tag.
func IsVoidElement(name string) bool {
	return voidElements[strings.ToLower(name)]
}

// RenderHTML renders a render tree (the result of Transform) as HTML.
func RenderHTML(v any) string {
	var sb strings.Builder
	renderHTML(&sb, v)
	return sb.String()
}

func renderHTML(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
	case string:
		sb.WriteString(html.EscapeString(val))
	case Raw:
		sb.WriteString(string(val))
	case []any:
		for _, c := range val {
			renderHTML(sb, c)
		}
	case *Tag:
		if val == nil {
			return
		}
		if val.Name == "" {
			renderHTML(sb, val.Children)
			return
		}
		sb.WriteByte('<')
		sb.WriteString(val.Name)
		for _, attr := range val.Attributes {
			renderAttr(sb, attr)
		}
		sb.WriteByte('>')
		if IsVoidElement(val.Name) {
			return
		}
		renderHTML(sb, val.Children)
		sb.WriteString("</")
		sb.WriteString(val.Name)
		sb.WriteByte('>')
	default:
		sb.WriteString(html.EscapeString(fmt.Sprint(val)))
	}
}

func renderAttr(sb *strings.Builder, attr Attr) {
	switch val := attr.Value.(type) {
	case nil:
		return
	case bool:
		if !val {
			return
		}
		sb.WriteByte(' ')
		sb.WriteString(attr.Name)
		return
	case string:
		writeAttr(sb, attr.Name, val)
	case Raw:
		writeAttr(sb, attr.Name, string(val))
	default:
		writeAttr(sb, attr.Name, fmt.Sprint(val))
	}
}

func writeAttr(sb *strings.Builder, name, value string) {
	sb.WriteByte(' ')
	sb.WriteString(name)
	sb.WriteString(`="`)
	sb.WriteString(html.EscapeString(value))
	sb.WriteByte('"')
}
