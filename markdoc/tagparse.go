package markdoc

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var (
	kindTagBlock  = ast.NewNodeKind("MarkdocTagBlock")
	kindTagInline = ast.NewNodeKind("MarkdocTagInline")
)

// tagBlock is a line that holds nothing but a single {% ... %} tag.
type tagBlock struct {
	ast.BaseBlock
	raw    string
	offset int
}

func (n *tagBlock) Kind() ast.NodeKind { return kindTagBlock }

func (n *tagBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Raw": n.raw}, nil)
}

// tagInline is a {% ... %} tag inside a paragraph or heading.
type tagInline struct {
	ast.BaseInline
	raw    string
	offset int
}

func (n *tagInline) Kind() ast.NodeKind { return kindTagInline }

func (n *tagInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Raw": n.raw}, nil)
}

type tagBlockParser struct{}

var _ parser.BlockParser = tagBlockParser{}

func (tagBlockParser) Trigger() []byte { return []byte{'{'} }

func (tagBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) {
		return nil, parser.NoChildren
	}
	rest := bytes.TrimRight(line[pos:], " \t\r\n")
	if !bytes.HasPrefix(rest, []byte(tagOpenDelim)) {
		return nil, parser.NoChildren
	}
	end := findTagEnd(rest)
	if end < 0 || end+len(tagCloseDelim) != len(rest) {
		return nil, parser.NoChildren
	}
	node := &tagBlock{raw: string(rest), offset: segment.Start + pos}
	reader.Advance(segment.Len() - 1)
	return node, parser.NoChildren
}

func (tagBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	return parser.Close
}

func (tagBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (tagBlockParser) CanInterruptParagraph() bool { return true }

func (tagBlockParser) CanAcceptIndentedLine() bool { return false }

type tagInlineParser struct{}

var _ parser.InlineParser = tagInlineParser{}

func (tagInlineParser) Trigger() []byte { return []byte{'{'} }

func (tagInlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	if !bytes.HasPrefix(line, []byte(tagOpenDelim)) {
		return nil
	}
	end := findTagEnd(line)
	if end < 0 {
		return nil
	}
	n := end + len(tagCloseDelim)
	node := &tagInline{raw: string(line[:n]), offset: segment.Start}
	block.Advance(n)
	return node
}
