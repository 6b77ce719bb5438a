package markdoc

import "strings"

// Token types produced by the Tokenizer. The vocabulary mirrors markdown-it,
// which is what Markdoc documents are tokenized into.
const (
	TokenInline      = "inline"
	TokenText        = "text"
	TokenSoftbreak   = "softbreak"
	TokenHardbreak   = "hardbreak"
	TokenHTMLBlock   = "html_block"
	TokenHTMLInline  = "html_inline"
	TokenTagOpen     = "tag_open"
	TokenTagClose    = "tag_close"
	TokenTag         = "tag"
	TokenAnnotation  = "annotation"
	TokenVariable    = "variable"
	TokenFunction    = "function"
	TokenComment     = "comment"
	TokenError       = "error"
	TokenFrontMatter = "front_matter"
	TokenFence       = "fence"
	TokenCodeBlock   = "code_block"
	TokenCodeInline  = "code_inline"
	TokenImage       = "image"
	TokenHR          = "hr"
)

// Token is the unit exchanged between the Tokenizer, the HTML reconciliation
// pass and Parse.
type Token struct {
	Type string

	// Nesting is 1 for opening tokens, -1 for closing tokens and 0 otherwise.
	Nesting int

	// Tag is the HTML element name of markdown tokens ("p", "h2", "em").
	Tag string

	Content string

	// Info is the info string of fenced code blocks.
	Info string

	// Children holds the inline tokens of an "inline" token.
	Children []*Token

	// Meta is set for tag, annotation, variable and function tokens.
	Meta *TagMeta

	// Attrs carries link href/title, image src/alt, ordered list start, etc.
	Attrs Attrs

	// Data holds decoded front matter.
	Data map[string]any

	// Line is the 1-based source line the token starts on, 0 if unknown.
	Line int
}

// TagMeta describes a {% ... %} tag.
type TagMeta struct {
	// Tag is the tag name, or the proxy name for reconciled HTML elements.
	Tag string

	Attributes Attrs

	// Value is set for variable and function interpolations.
	Value any

	// Raw is the original source text of the tag, if any.
	Raw string

	// Err is set for error tokens.
	Err *Error
}

// IsHTML reports whether the token carries raw HTML. Every raw HTML token type
// starts with "html".
func (t *Token) IsHTML() bool {
	return strings.HasPrefix(t.Type, "html")
}
