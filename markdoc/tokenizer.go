package markdoc

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
)

// TokenizerOptions controls how raw HTML and comments are tokenized.
type TokenizerOptions struct {
	// HTML keeps raw HTML as html_block/html_inline tokens. When false raw HTML
	// is tokenized as literal text.
	HTML bool

	// AllowComments turns <!-- ... --> into comment tokens.
	AllowComments bool
}

// Tokenizer turns Markdoc source into a flat token stream. A Tokenizer is safe
// for concurrent use.
type Tokenizer struct {
	opts TokenizerOptions
	md   goldmark.Markdown
}

func NewTokenizer(opts TokenizerOptions) *Tokenizer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			meta.Meta,
		),
		goldmark.WithParserOptions(
			parser.WithBlockParsers(util.Prioritized(tagBlockParser{}, 850)),
			parser.WithInlineParsers(util.Prioritized(tagInlineParser{}, 450)),
		),
	)
	return &Tokenizer{opts: opts, md: md}
}

// Tokenize never fails: syntax problems inside {% %} become error tokens.
func (t *Tokenizer) Tokenize(src string) []*Token {
	source := []byte(src)
	pc := parser.NewContext()
	doc := t.md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))

	st := &tokenizeState{
		opts:  t.opts,
		src:   source,
		lines: lineStarts(source),
	}
	if data, err := meta.TryGet(pc); err != nil {
		st.out = append(st.out, &Token{
			Type: TokenError,
			Meta: &TagMeta{Err: &Error{ID: "frontmatter", Level: LevelError, Message: err.Error(), Line: 1}},
			Line: 1,
		})
	} else if len(data) > 0 {
		st.out = append(st.out, &Token{Type: TokenFrontMatter, Data: normalizeMap(data), Line: 1})
	}
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		st.block(c)
	}
	return st.out
}

type tokenizeState struct {
	opts  TokenizerOptions
	src   []byte
	lines []int
	out   []*Token
}

func (st *tokenizeState) push(typ, tag string, nesting int, n ast.Node) *Token {
	tok := &Token{Type: typ, Tag: tag, Nesting: nesting, Line: st.lineOf(n)}
	st.out = append(st.out, tok)
	return tok
}

func (st *tokenizeState) wrap(typ, tag string, n ast.Node, body func()) *Token {
	open := st.push(typ+"_open", tag, 1, n)
	body()
	st.push(typ+"_close", tag, -1, n)
	return open
}

func (st *tokenizeState) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Paragraph:
		st.wrap("paragraph", "p", n, func() { st.out = append(st.out, st.inline(n)) })
	case *ast.TextBlock:
		st.out = append(st.out, st.inline(n))
	case *ast.Heading:
		tag := "h" + strconv.Itoa(n.Level)
		st.wrap("heading", tag, n, func() { st.out = append(st.out, st.inline(n)) })
	case *ast.ThematicBreak:
		st.push(TokenHR, "hr", 0, n)
	case *ast.CodeBlock:
		tok := st.push(TokenCodeBlock, "code", 0, n)
		tok.Content = st.linesText(n.Lines())
	case *ast.FencedCodeBlock:
		tok := st.push(TokenFence, "code", 0, n)
		tok.Content = st.linesText(n.Lines())
		if n.Info != nil {
			tok.Info = strings.TrimSpace(string(n.Info.Segment.Value(st.src)))
		}
	case *ast.Blockquote:
		st.wrap("blockquote", "blockquote", n, func() { st.children(n) })
	case *ast.List:
		if n.IsOrdered() {
			open := st.wrap("ordered_list", "ol", n, func() { st.children(n) })
			if n.Start != 1 {
				open.Attrs.Set("start", n.Start)
			}
			return
		}
		st.wrap("bullet_list", "ul", n, func() { st.children(n) })
	case *ast.ListItem:
		st.wrap("list_item", "li", n, func() { st.children(n) })
	case *ast.HTMLBlock:
		var buf bytes.Buffer
		buf.WriteString(st.linesText(n.Lines()))
		if n.HasClosure() {
			buf.Write(n.ClosureLine.Value(st.src))
		}
		st.html(buf.String(), TokenHTMLBlock, n)
	case *tagBlock:
		tok := st.tagToken(n.raw, n.offset)
		switch tok.Type {
		case TokenTagOpen, TokenTagClose, TokenTag, TokenAnnotation:
			st.out = append(st.out, tok)
		default:
			st.wrap("paragraph", "p", n, func() {
				st.out = append(st.out, &Token{Type: TokenInline, Children: []*Token{tok}, Line: tok.Line})
			})
		}
	case *east.Table:
		st.wrap("table", "table", n, func() {
			var rows []ast.Node
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if h, ok := c.(*east.TableHeader); ok {
					st.wrap("thead", "thead", h, func() {
						st.wrap("tr", "tr", h, func() { st.cells(h, "th") })
					})
					continue
				}
				rows = append(rows, c)
			}
			if len(rows) == 0 {
				return
			}
			st.wrap("tbody", "tbody", rows[0], func() {
				for _, r := range rows {
					st.wrap("tr", "tr", r, func() { st.cells(r, "td") })
				}
			})
		})
	default:
		// Unknown block extensions are rendered through their children.
		st.children(n)
	}
}

func (st *tokenizeState) children(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		st.block(c)
	}
}

func (st *tokenizeState) cells(row ast.Node, tag string) {
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cell, ok := c.(*east.TableCell)
		if !ok {
			continue
		}
		open := st.wrap(tag, tag, cell, func() { st.out = append(st.out, st.inline(cell)) })
		if cell.Alignment != east.AlignNone {
			open.Attrs.Set("align", cell.Alignment.String())
		}
	}
}

// html emits raw HTML, a comment, or literal text depending on the options.
func (st *tokenizeState) html(content, typ string, n ast.Node) {
	line := st.lineOf(n)
	if st.opts.AllowComments {
		trimmed := strings.TrimSpace(content)
		if strings.HasPrefix(trimmed, "<!--") && strings.HasSuffix(trimmed, "-->") {
			body := strings.TrimSpace(trimmed[4 : len(trimmed)-3])
			st.out = append(st.out, &Token{Type: TokenComment, Content: body, Line: line})
			return
		}
	}
	if st.opts.HTML {
		st.out = append(st.out, &Token{Type: typ, Content: content, Line: line})
		return
	}
	text := &Token{Type: TokenText, Content: content, Line: line}
	if typ == TokenHTMLInline {
		st.out = append(st.out, text)
		return
	}
	st.wrap("paragraph", "p", n, func() {
		st.out = append(st.out, &Token{Type: TokenInline, Children: []*Token{text}, Line: line})
	})
}

// inline collects the inline children of n into an "inline" token.
func (st *tokenizeState) inline(n ast.Node) *Token {
	saved := st.out
	st.out = nil
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		st.inlineNode(c)
	}
	tok := &Token{Type: TokenInline, Children: st.out, Line: st.lineOf(n)}
	st.out = saved
	return tok
}

func (st *tokenizeState) inlineNode(n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		content := n.Segment.Value(st.src)
		if !n.IsRaw() {
			content = util.UnescapePunctuations(content)
		}
		if len(content) > 0 {
			tok := st.push(TokenText, "", 0, n)
			tok.Content = html.UnescapeString(string(content))
		}
		if n.HardLineBreak() {
			st.push(TokenHardbreak, "br", 0, n)
		} else if n.SoftLineBreak() {
			st.push(TokenSoftbreak, "br", 0, n)
		}
	case *ast.String:
		tok := st.push(TokenText, "", 0, n)
		tok.Content = string(n.Value)
	case *ast.CodeSpan:
		tok := st.push(TokenCodeInline, "code", 0, n)
		tok.Content = st.plainText(n)
	case *ast.Emphasis:
		typ, tag := "em", "em"
		if n.Level == 2 {
			typ, tag = "strong", "strong"
		}
		st.wrap(typ, tag, n, func() { st.inlineChildren(n) })
	case *east.Strikethrough:
		st.wrap("s", "s", n, func() { st.inlineChildren(n) })
	case *ast.Link:
		open := st.wrap("link", "a", n, func() { st.inlineChildren(n) })
		open.Attrs.Set("href", string(n.Destination))
		if len(n.Title) > 0 {
			open.Attrs.Set("title", string(n.Title))
		}
	case *ast.AutoLink:
		url := string(n.URL(st.src))
		label := string(n.Label(st.src))
		if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
			url = "mailto:" + url
		}
		open := st.wrap("link", "a", n, func() {
			tok := st.push(TokenText, "", 0, n)
			tok.Content = label
		})
		open.Attrs.Set("href", url)
	case *ast.Image:
		tok := st.push(TokenImage, "img", 0, n)
		tok.Attrs.Set("src", string(n.Destination))
		tok.Attrs.Set("alt", st.plainText(n))
		if len(n.Title) > 0 {
			tok.Attrs.Set("title", string(n.Title))
		}
	case *ast.RawHTML:
		var buf bytes.Buffer
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(st.src))
		}
		st.html(buf.String(), TokenHTMLInline, n)
	case *tagInline:
		st.out = append(st.out, st.tagToken(n.raw, n.offset))
	default:
		st.inlineChildren(n)
	}
}

func (st *tokenizeState) inlineChildren(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		st.inlineNode(c)
	}
}

func (st *tokenizeState) tagToken(raw string, offset int) *Token {
	line := st.lineAt(offset)
	tok, err := parseTag(raw)
	if err != nil {
		return &Token{
			Type:    TokenError,
			Content: raw,
			Meta: &TagMeta{Raw: raw, Err: &Error{
				ID:      "syntax-error",
				Level:   LevelCritical,
				Message: fmt.Sprintf("invalid tag %s: %s", raw, err),
				Line:    line,
			}},
			Line: line,
		}
	}
	tok.Line = line
	return tok
}

func (st *tokenizeState) linesText(lines *text.Segments) string {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(st.src))
	}
	return buf.String()
}

func (st *tokenizeState) plainText(n ast.Node) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				buf.Write(c.Segment.Value(st.src))
			case *ast.String:
				buf.Write(c.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return buf.String()
}

func (st *tokenizeState) lineOf(n ast.Node) int {
	off := startOffset(n)
	if off < 0 {
		return 0
	}
	return st.lineAt(off)
}

func (st *tokenizeState) lineAt(offset int) int {
	if offset < 0 {
		return 0
	}
	// lines[i] is the offset of the first byte of line i+1.
	return sort.SearchInts(st.lines, offset+1)
}

func startOffset(n ast.Node) int {
	switch n := n.(type) {
	case *tagBlock:
		return n.offset
	case *tagInline:
		return n.offset
	case *ast.Text:
		return n.Segment.Start
	case *ast.RawHTML:
		if n.Segments.Len() > 0 {
			return n.Segments.At(0).Start
		}
	}
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := startOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// normalizeMap converts the map[any]any values produced by the YAML decoder
// into map[string]any, so they can be addressed by variable paths.
func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case map[string]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
