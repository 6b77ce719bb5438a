package markdoc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// summarize renders tokens as "type[:content]" lines, inline children indented.
func summarize(tokens []*Token) []string {
	var out []string
	var walk func([]*Token, string)
	walk = func(tokens []*Token, indent string) {
		for _, t := range tokens {
			s := indent + t.Type
			switch {
			case t.Meta != nil && t.Meta.Tag != "":
				s += ":" + t.Meta.Tag
			case t.Content != "":
				s += ":" + t.Content
			}
			out = append(out, s)
			walk(t.Children, indent+"  ")
		}
	}
	walk(tokens, "")
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		opts TokenizerOptions
		src  string
		want []string
	}{
		{
			name: "paragraph with inline tag",
			opts: TokenizerOptions{HTML: true},
			src:  `Some <b>bold</b> text {% myShortcode "hi" %}`,
			want: []string{
				"paragraph_open",
				"inline",
				"  text:Some ",
				"  html_inline:<b>",
				"  text:bold",
				"  html_inline:</b>",
				"  text: text ",
				"  tag_open:myShortcode",
				"paragraph_close",
			},
		},
		{
			name: "html disabled",
			opts: TokenizerOptions{},
			src:  `a <b>x</b>`,
			want: []string{
				"paragraph_open",
				"inline",
				"  text:a ",
				"  text:<b>",
				"  text:x",
				"  text:</b>",
				"paragraph_close",
			},
		},
		{
			name: "block tags",
			opts: TokenizerOptions{HTML: true},
			src:  "{% callout %}\nInside\n{% /callout %}\n",
			want: []string{
				"tag_open:callout",
				"paragraph_open",
				"inline",
				"  text:Inside",
				"paragraph_close",
				"tag_close:callout",
			},
		},
		{
			name: "heading and emphasis",
			opts: TokenizerOptions{HTML: true},
			src:  "# Title *em*\n",
			want: []string{
				"heading_open",
				"inline",
				"  text:Title ",
				"  em_open",
				"  text:em",
				"  em_close",
				"heading_close",
			},
		},
		{
			name: "comment",
			opts: TokenizerOptions{HTML: true, AllowComments: true},
			src:  "<!-- note -->\n",
			want: []string{"comment:note"},
		},
		{
			name: "block variable",
			opts: TokenizerOptions{HTML: true},
			src:  "{% $title %}\n",
			want: []string{
				"paragraph_open",
				"inline",
				"  variable",
				"paragraph_close",
			},
		},
		{
			name: "invalid tag",
			opts: TokenizerOptions{HTML: true},
			src:  "x {% 1bad %}\n",
			want: []string{
				"paragraph_open",
				"inline",
				"  text:x ",
				"  error:{% 1bad %}",
				"paragraph_close",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarize(NewTokenizer(tt.opts).Tokenize(tt.src))
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("Tokenize() diff (-got +want):\n%s", diff)
			}
		})
	}
}

func TestTokenizeFrontMatter(t *testing.T) {
	src := "---\ntitle: Hello\ntags: [a, b]\n---\nBody\n"
	tokens := NewTokenizer(TokenizerOptions{}).Tokenize(src)
	if len(tokens) == 0 || tokens[0].Type != TokenFrontMatter {
		t.Fatalf("Tokenize() first token = %v, want front matter", summarize(tokens))
	}
	want := map[string]any{"title": "Hello", "tags": []any{"a", "b"}}
	if diff := cmp.Diff(tokens[0].Data, want); diff != "" {
		t.Errorf("front matter diff (-got +want):\n%s", diff)
	}
}

func TestTokenizeLines(t *testing.T) {
	src := "first\n\n{% note %}\nsecond\n{% /note %}\n"
	var lines []string
	for _, tok := range NewTokenizer(TokenizerOptions{}).Tokenize(src) {
		if tok.Type == TokenTagOpen || tok.Type == TokenTagClose || tok.Type == TokenInline {
			lines = append(lines, fmt.Sprintf("%s@%d", tok.Type, tok.Line))
		}
	}
	want := []string{"inline@1", "tag_open@3", "inline@4", "tag_close@5"}
	if diff := cmp.Diff(lines, want); diff != "" {
		t.Errorf("lines diff (-got +want):\n%s", diff)
	}
}

func TestTokenizeLinks(t *testing.T) {
	tokens := NewTokenizer(TokenizerOptions{}).Tokenize(`[go](https://go.dev "Go") ![logo](/l.png)`)
	var attrs []string
	for _, tok := range tokens {
		for _, c := range tok.Children {
			for _, a := range c.Attrs {
				attrs = append(attrs, c.Type+" "+a.Name+"="+fmt.Sprint(a.Value))
			}
		}
	}
	want := []string{
		"link_open href=https://go.dev",
		"link_open title=Go",
		"image src=/l.png",
		"image alt=logo",
	}
	if diff := cmp.Diff(attrs, want); diff != "" {
		t.Errorf("attrs diff (-got +want):\n%s", diff)
	}
	if got := strings.Join(summarize(tokens), "|"); !strings.Contains(got, "link_close") {
		t.Errorf("Tokenize() = %s, want a closed link", got)
	}
}
