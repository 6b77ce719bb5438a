package mdoc

import (
	"maps"

	"github.com/dpotapov/go-mdoc/markdoc"
)

const (
	tString = markdoc.TypeString
	tNumber = markdoc.TypeNumber
	tBool   = markdoc.TypeBoolean
)

type attrTypes map[string]markdoc.Type

var commonAttributes = attrTypes{
	"class":           tString,
	"id":              tString,
	"style":           tString,
	"title":           tString,
	"lang":            tString,
	"dir":             tString,
	"hidden":          tBool,
	"tabindex":        tNumber,
	"accesskey":       tString,
	"draggable":       tBool,
	"contenteditable": tBool,
	"spellcheck":      tBool,
	"translate":       tBool,
}

var formAttributes = attrTypes{
	"autofocus": tBool,
	"disabled":  tBool,
	"form":      tString,
	"name":      tString,
}

var inputAttributes = merge(formAttributes, attrTypes{
	"autocomplete": tString,
	"placeholder":  tString,
	"readonly":     tBool,
	"required":     tBool,
})

// elementAttributes lists the element specific attributes of every HTML
// element exposed as a tag.
var elementAttributes = map[string]attrTypes{
	// Main root and metadata
	"html":  {"xmlns": tString},
	"head":  nil,
	"title": nil,
	"base":  {"href": tString, "target": tString},
	"link": {
		"href": tString, "rel": tString, "type": tString, "media": tString, "sizes": tString,
		"crossorigin": tString, "integrity": tString, "referrerpolicy": tString, "as": tString,
		"hreflang": tString, "imagesizes": tString, "imagesrcset": tString,
	},
	"meta":  {"name": tString, "content": tString, "charset": tString, "http-equiv": tString, "property": tString},
	"style": {"media": tString, "type": tString},
	"body":  nil,

	// Content sectioning
	"address": nil, "article": nil, "aside": nil, "footer": nil, "header": nil,
	"h1": nil, "h2": nil, "h3": nil, "h4": nil, "h5": nil, "h6": nil,
	"hgroup": nil, "main": nil, "nav": nil, "section": nil,

	// Text content
	"blockquote": {"cite": tString},
	"dd":         nil, "div": nil, "dl": nil, "dt": nil, "figcaption": nil, "figure": nil, "hr": nil,
	"li":         {"value": tNumber},
	"ol":         {"reversed": tBool, "start": tNumber, "type": tString},
	"p":          nil, "pre": nil, "ul": nil,

	// Inline text semantics
	"a": {
		"href": tString, "target": tString, "rel": tString, "download": tString, "ping": tString,
		"referrerpolicy": tString, "shape": tString, "coords": tString, "name": tString,
		"hreflang": tString, "type": tString, "text": tString,
	},
	"abbr": nil, "b": nil, "bdi": nil, "bdo": nil, "br": nil, "cite": nil, "code": nil,
	"data": {"value": tString},
	"dfn":  nil, "em": nil, "i": nil, "kbd": nil, "mark": nil,
	"q":    {"cite": tString},
	"rp":   nil, "rt": nil, "ruby": nil, "s": nil, "samp": nil, "small": nil, "span": nil,
	"strong": nil, "sub": nil, "sup": nil,
	"time": {"datetime": tString},
	"u":    nil, "var": nil, "wbr": nil,

	// Image and multimedia
	"area": {
		"alt": tString, "coords": tString, "download": tString, "href": tString, "hreflang": tString,
		"ping": tString, "referrerpolicy": tString, "rel": tString, "shape": tString, "target": tString,
	},
	"audio": {
		"autoplay": tBool, "controls": tBool, "crossorigin": tString, "loop": tBool,
		"muted": tBool, "preload": tString, "src": tString,
	},
	"img": {
		"src": tString, "alt": tString, "width": tNumber, "height": tNumber, "loading": tString,
		"referrerpolicy": tString, "crossorigin": tString, "srcset": tString, "sizes": tString,
		"usemap": tString, "ismap": tBool,
	},
	"map":   {"name": tString},
	"track": {"default": tBool, "kind": tString, "label": tString, "src": tString, "srclang": tString},
	"video": {
		"autoplay": tBool, "controls": tBool, "crossorigin": tString, "height": tNumber, "loop": tBool,
		"muted": tBool, "poster": tString, "preload": tString, "src": tString, "width": tNumber,
	},

	// Embedded content
	"embed": {"height": tNumber, "src": tString, "type": tString, "width": tNumber},
	"iframe": {
		"allow": tString, "allowfullscreen": tBool, "height": tNumber, "loading": tString, "name": tString,
		"referrerpolicy": tString, "sandbox": tString, "src": tString, "srcdoc": tString, "width": tNumber,
	},
	"object": {
		"data": tString, "form": tString, "height": tNumber, "name": tString, "type": tString,
		"usemap": tString, "width": tNumber,
	},
	"param":   {"name": tString, "value": tString},
	"picture": nil,
	"source":  {"media": tString, "sizes": tString, "src": tString, "srcset": tString, "type": tString},

	// Scripting
	"canvas":   {"height": tNumber, "width": tNumber},
	"noscript": nil,
	"script": {
		"async": tBool, "crossorigin": tString, "defer": tBool, "integrity": tString,
		"nomodule": tBool, "referrerpolicy": tString, "src": tString, "type": tString,
	},

	// Demarcating edits
	"del": {"cite": tString, "datetime": tString},
	"ins": {"cite": tString, "datetime": tString},

	// Table content
	"caption":  nil,
	"col":      {"span": tNumber},
	"colgroup": {"span": tNumber},
	"table":    nil, "tbody": nil, "tfoot": nil, "thead": nil, "tr": nil,
	"td":       {"colspan": tNumber, "headers": tString, "rowspan": tNumber},
	"th":       {"abbr": tString, "colspan": tNumber, "headers": tString, "rowspan": tNumber, "scope": tString},

	// Forms
	"button": merge(formAttributes, attrTypes{
		"formaction": tString, "formenctype": tString, "formmethod": tString,
		"formnovalidate": tBool, "formtarget": tString, "type": tString, "value": tString,
	}),
	"datalist": nil,
	"fieldset": {"disabled": tBool, "form": tString, "name": tString},
	"form": {
		"accept-charset": tString, "action": tString, "autocomplete": tString, "enctype": tString,
		"method": tString, "name": tString, "novalidate": tBool, "rel": tString, "target": tString,
	},
	"input": merge(inputAttributes, attrTypes{
		"accept": tString, "alt": tString, "checked": tBool, "dirname": tString,
		"formaction": tString, "formenctype": tString, "formmethod": tString, "formnovalidate": tBool,
		"formtarget": tString, "height": tNumber, "list": tString, "max": tString, "maxlength": tNumber,
		"min": tString, "minlength": tNumber, "multiple": tBool, "pattern": tString, "size": tNumber,
		"src": tString, "step": tString, "type": tString, "value": tString, "width": tNumber,
	}),
	"label":  {"for": tString, "form": tString},
	"legend": nil,
	"meter": {
		"form": tString, "high": tNumber, "low": tNumber, "max": tNumber,
		"min": tNumber, "optimum": tNumber, "value": tNumber,
	},
	"optgroup": {"disabled": tBool, "label": tString},
	"option":   {"disabled": tBool, "label": tString, "selected": tBool, "value": tString},
	"output":   {"for": tString, "form": tString, "name": tString},
	"progress": {"max": tNumber, "value": tNumber},
	"select":   merge(inputAttributes, attrTypes{"multiple": tBool, "size": tNumber}),
	"textarea": merge(inputAttributes, attrTypes{
		"cols": tNumber, "dirname": tString, "maxlength": tNumber, "minlength": tNumber,
		"rows": tNumber, "wrap": tString,
	}),

	// Interactive elements and web components
	"details":  {"open": tBool},
	"dialog":   {"open": tBool},
	"menu":     nil,
	"summary":  nil,
	"slot":     {"name": tString},
	"template": nil,
}

// requiredAttributes marks the attributes an element cannot be rendered
// without.
var requiredAttributes = map[string][]string{
	"a":        {"href"},
	"data":     {"value"},
	"img":      {"src"},
	"map":      {"name"},
	"track":    {"src"},
	"embed":    {"src"},
	"param":    {"name"},
	"meter":    {"value"},
	"optgroup": {"label"},
}

func merge(sets ...attrTypes) attrTypes {
	out := attrTypes{}
	for _, s := range sets {
		maps.Copy(out, s)
	}
	return out
}

// ElementTags returns a tag for every known HTML element, so documents can
// write {% div .note %}...{% /div %}. Every attribute is passed through to the
// element; the declared ones are type checked by Validate.
func ElementTags() map[string]*markdoc.Schema {
	out := make(map[string]*markdoc.Schema, len(elementAttributes))
	for name, own := range elementAttributes {
		all := merge(commonAttributes, own)
		specs := make(map[string]markdoc.AttributeSpec, len(all))
		for attr, typ := range all {
			specs[attr] = markdoc.AttributeSpec{Type: typ}
		}
		for _, attr := range requiredAttributes[name] {
			spec := specs[attr]
			spec.Required = true
			specs[attr] = spec
		}
		out[name] = &markdoc.Schema{
			Render:      name,
			Attributes:  specs,
			PassThrough: true,
			SelfClosing: markdoc.IsVoidElement(name),
		}
	}
	return out
}
