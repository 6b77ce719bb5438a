package markdoc

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// DumpXML renders an AST as indented XML, for debugging and error context.
// Elements are named after node types; tag nodes carry a "tag" attribute.
func DumpXML(n *Node) string {
	if n == nil {
		return ""
	}
	doc := etree.NewDocument()
	dumpNode(&doc.Element, n)
	doc.Indent(2)
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}

func dumpNode(parent *etree.Element, n *Node) {
	el := parent.CreateElement(string(n.Type))
	if n.Tag != "" {
		el.CreateAttr("tag", n.Tag)
	}
	if n.Line > 0 {
		el.CreateAttr("line", strconv.Itoa(n.Line))
	}
	for _, attr := range n.Attributes {
		el.CreateAttr(attr.Name, dumpValue(attr.Value))
	}
	for _, e := range n.Errors {
		errEl := el.CreateElement("error")
		errEl.CreateAttr("id", e.ID)
		errEl.CreateAttr("level", e.Level)
		errEl.SetText(e.Message)
	}
	for _, c := range n.Children {
		dumpNode(el, c)
	}
}

func dumpValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case Attrs:
		return dumpValue(val.Map())
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
