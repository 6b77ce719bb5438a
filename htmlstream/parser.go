// Package htmlstream is a streaming, callback driven HTML parser. Input may be
// written in arbitrary chunks; the element stack is kept between writes, so an
// element opened in one chunk can be closed in a later one.
//
// Tree construction follows the forgiving rules of htmlparser2 rather than the
// HTML5 algorithm: there is no implicit html/head/body, elements are closed by
// name and a handful of tags implicitly close their open siblings.
package htmlstream

import (
	"strings"

	"golang.org/x/net/html"
)

// Handler receives parser events. Events are delivered synchronously from Write
// and End, in document order.
type Handler interface {
	OpenTag(name string, attrs []html.Attribute)
	Text(text string)
	CloseTag(name string)
}

// Funcs adapts plain functions to a Handler. Nil fields ignore the event.
type Funcs struct {
	OnOpenTag  func(name string, attrs []html.Attribute)
	OnText     func(text string)
	OnCloseTag func(name string)
}

func (f Funcs) OpenTag(name string, attrs []html.Attribute) {
	if f.OnOpenTag != nil {
		f.OnOpenTag(name, attrs)
	}
}

func (f Funcs) Text(text string) {
	if f.OnText != nil {
		f.OnText(text)
	}
}

func (f Funcs) CloseTag(name string) {
	if f.OnCloseTag != nil {
		f.OnCloseTag(name)
	}
}

// Parser is not safe for concurrent use. A Parser must not be reused after End.
type Parser struct {
	h Handler

	// pending is input held back because it ends inside a tag, or inside the
	// text of a raw text element whose end tag has not arrived yet.
	pending string

	// stack of open element names, innermost last.
	stack []string
}

func NewParser(h Handler) *Parser {
	return &Parser{h: h}
}

// Write feeds a chunk of HTML to the parser.
func (p *Parser) Write(chunk string) {
	data := p.pending + chunk
	p.pending = ""

	for data != "" {
		if raw := p.rawTextElement(); raw != "" {
			rest, ok := p.consumeRawText(data, raw)
			if !ok {
				p.pending = data
				return
			}
			data = rest
			continue
		}

		complete, held := splitPartialTag(data)
		if held == "" {
			complete, held = splitPartialEntity(complete)
		}
		rest := p.tokenize(complete)
		if rest == "" {
			p.pending = held
			return
		}
		data = rest + held
	}
}

// End flushes buffered input and closes every element that is still open.
// A tag left incomplete at the end of the input is dropped.
func (p *Parser) End() {
	if p.pending != "" {
		if raw := p.rawTextElement(); raw != "" {
			p.text(decodeRawText(raw, p.pending))
		} else if p.pending[0] == '&' {
			p.tokenize(p.pending)
		}
		p.pending = ""
	}
	for len(p.stack) > 0 {
		p.pop()
	}
}

// tokenize runs the HTML tokenizer over data. If a raw text element is opened
// and not closed within data, the remainder after its start tag is returned.
func (p *Parser) tokenize(data string) string {
	r := strings.NewReader(data)
	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.TextToken:
			p.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			p.openTag(tok.Data, dedupAttrs(tok.Attr), tt == html.SelfClosingTagToken)
			if raw := p.rawTextElement(); raw != "" {
				// The tokenizer switches to raw text after the start tag. Take
				// over so the end tag may arrive in a later chunk.
				return data[len(data)-r.Len()-len(z.Buffered()):]
			}
		case html.EndTagToken:
			tok := z.Token()
			p.closeTag(tok.Data)
		case html.CommentToken, html.DoctypeToken:
		}
	}
}

// consumeRawText emits the text of the raw text element raw up to its end tag
// and returns the input that follows. It reports false if the end tag is not in
// data yet.
func (p *Parser) consumeRawText(data, raw string) (string, bool) {
	i := indexEndTag(data, raw)
	if i < 0 {
		return "", false
	}
	p.text(decodeRawText(raw, data[:i]))
	rest := data[i+2+len(raw):]
	end := strings.IndexByte(rest, '>')
	if end < 0 {
		return "", false
	}
	p.closeTag(raw)
	return rest[end+1:], true
}

func (p *Parser) text(s string) {
	if s == "" {
		return
	}
	p.h.Text(s)
}

func (p *Parser) openTag(name string, attrs []html.Attribute, selfClosing bool) {
	if closes, ok := openImpliesClose[name]; ok {
		for len(p.stack) > 0 && closes[p.top()] {
			p.pop()
		}
	}

	p.h.OpenTag(name, attrs)

	switch {
	case voidElements[name]:
		p.h.CloseTag(name)
	case selfClosing && (foreignElements[name] || p.inForeignContent()):
		p.h.CloseTag(name)
	default:
		p.stack = append(p.stack, name)
	}
}

func (p *Parser) closeTag(name string) {
	if voidElements[name] {
		if name == "br" {
			p.h.OpenTag("br", nil)
			p.h.CloseTag("br")
		}
		return
	}
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i] == name {
			for len(p.stack) > i {
				p.pop()
			}
			return
		}
	}
	if name == "p" {
		p.h.OpenTag("p", nil)
		p.h.CloseTag("p")
	}
}

func (p *Parser) top() string {
	return p.stack[len(p.stack)-1]
}

func (p *Parser) pop() {
	name := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	p.h.CloseTag(name)
}

func (p *Parser) inForeignContent() bool {
	for _, name := range p.stack {
		if foreignElements[name] {
			return true
		}
	}
	return false
}

func (p *Parser) rawTextElement() string {
	if len(p.stack) == 0 {
		return ""
	}
	if top := p.top(); rawTextElements[top] {
		return top
	}
	return ""
}

// splitPartialTag splits data before a trailing tag, comment or declaration
// that has not been terminated yet.
func splitPartialTag(data string) (complete, held string) {
	i := strings.LastIndexByte(data, '<')
	if i < 0 || strings.IndexByte(data[i:], '>') >= 0 {
		return data, ""
	}
	if i+1 == len(data) {
		return data[:i], data[i:]
	}
	switch c := data[i+1]; {
	case c == '/' || c == '!' || c == '?' || isASCIILetter(c):
		return data[:i], data[i:]
	}
	return data, ""
}

// maxEntityLen bounds the held back tail of a character reference.
const maxEntityLen = 32

// splitPartialEntity splits data before a trailing character reference that
// has no terminating semicolon yet.
func splitPartialEntity(data string) (complete, held string) {
	i := strings.LastIndexByte(data, '&')
	if i < 0 || len(data)-i > maxEntityLen {
		return data, ""
	}
	for j := i + 1; j < len(data); j++ {
		c := data[j]
		if !isASCIILetter(c) && (c < '0' || c > '9') && !(c == '#' && j == i+1) {
			return data, ""
		}
	}
	return data[:i], data[i:]
}

func indexEndTag(data, name string) int {
	lower := strings.ToLower(data)
	needle := "</" + name
	from := 0
	for {
		i := strings.Index(lower[from:], needle)
		if i < 0 {
			return -1
		}
		i += from
		after := i + len(needle)
		if after >= len(lower) {
			return -1
		}
		switch lower[after] {
		case '>', ' ', '\t', '\n', '\r', '\f', '/':
			return i
		}
		from = after
	}
}

func decodeRawText(name, s string) string {
	if escapableRawText[name] {
		return html.UnescapeString(s)
	}
	return s
}

// dedupAttrs keeps the first occurrence of every attribute name.
func dedupAttrs(attrs []html.Attribute) []html.Attribute {
	if len(attrs) < 2 {
		return attrs
	}
	seen := make(map[string]bool, len(attrs))
	out := attrs[:0:0]
	for _, a := range attrs {
		if seen[a.Key] {
			continue
		}
		seen[a.Key] = true
		out = append(out, a)
	}
	return out
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
