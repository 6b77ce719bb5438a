package htmlstream

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var voidElements = set(
	"area", "base", "basefont", "br", "col", "command", "embed", "frame", "hr",
	"image", "img", "input", "isindex", "keygen", "link", "meta", "param",
	"source", "track", "wbr",
)

var foreignElements = set("svg", "math")

var rawTextElements = set(
	"script", "style", "textarea", "title", "xmp", "iframe", "noembed", "noframes",
)

// escapableRawText elements decode character references in their content.
var escapableRawText = set("textarea", "title")

var (
	formTags         = set("input", "option", "optgroup", "select", "button", "datalist", "textarea")
	pTag             = set("p")
	tableSectionTags = set("thead", "tbody")
	ddtTags          = set("dd", "dt")
	rtpTags          = set("rt", "rp")
)

// openImpliesClose maps a start tag to the open elements it closes.
var openImpliesClose = map[string]map[string]bool{
	"tr":         set("tr", "th", "td"),
	"th":         set("th"),
	"td":         set("thead", "th", "td"),
	"body":       set("head", "link", "script"),
	"li":         set("li"),
	"p":          pTag,
	"h1":         pTag,
	"h2":         pTag,
	"h3":         pTag,
	"h4":         pTag,
	"h5":         pTag,
	"h6":         pTag,
	"select":     formTags,
	"input":      formTags,
	"output":     formTags,
	"button":     formTags,
	"datalist":   formTags,
	"textarea":   formTags,
	"option":     set("option"),
	"optgroup":   set("optgroup", "option"),
	"dd":         ddtTags,
	"dt":         ddtTags,
	"address":    pTag,
	"article":    pTag,
	"aside":      pTag,
	"blockquote": pTag,
	"details":    pTag,
	"div":        pTag,
	"dl":         pTag,
	"fieldset":   pTag,
	"figcaption": pTag,
	"figure":     pTag,
	"footer":     pTag,
	"form":       pTag,
	"header":     pTag,
	"hr":         pTag,
	"main":       pTag,
	"nav":        pTag,
	"ol":         pTag,
	"pre":        pTag,
	"section":    pTag,
	"table":      pTag,
	"ul":         pTag,
	"rt":         rtpTags,
	"rp":         rtpTags,
	"tbody":      tableSectionTags,
	"tfoot":      tableSectionTags,
}
