package markdoc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func renderSource(t *testing.T, src string, cfg *Config) string {
	t.Helper()
	out, err := Transform(parseSource(src), cfg)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	return RenderHTML(out)
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name string
		src  string
		cfg  *Config
		want string
	}{
		{
			name: "heading",
			src:  "# Hi\n",
			want: "<article><h1>Hi</h1></article>",
		},
		{
			name: "inline formatting",
			src:  "a *b* **c** ~~d~~\n",
			want: "<article><p>a <em>b</em> <strong>c</strong> <s>d</s></p></article>",
		},
		{
			name: "bullet list",
			src:  "- x\n- y\n",
			want: "<article><ul><li>x</li><li>y</li></ul></article>",
		},
		{
			name: "ordered list with start",
			src:  "3. x\n4. y\n",
			want: `<article><ol start="3"><li>x</li><li>y</li></ol></article>`,
		},
		{
			name: "fence",
			src:  "```go\nx := 1\n```\n",
			want: "<article><pre data-language=\"go\">x := 1\n</pre></article>",
		},
		{
			name: "code span is escaped",
			src:  "`a<b`\n",
			want: "<article><p><code>a&lt;b</code></p></article>",
		},
		{
			name: "link and image",
			src:  "[go](https://go.dev) ![a](/x.png)\n",
			want: `<article><p><a href="https://go.dev">go</a> <img src="/x.png" alt="a"></p></article>`,
		},
		{
			name: "thematic break",
			src:  "a\n\n***\n",
			want: "<article><p>a</p><hr></article>",
		},
		{
			name: "variable is escaped",
			src:  "Hello {% $name %}!\n",
			cfg:  &Config{Variables: map[string]any{"name": "<Ann>"}},
			want: "<article><p>Hello &lt;Ann&gt;!</p></article>",
		},
		{
			name: "variable path",
			src:  "{% $page.title %} {% $missing.deep %}\n",
			cfg:  &Config{Variables: map[string]any{"page": map[string]any{"title": "T"}}},
			want: "<article><p>T </p></article>",
		},
		{
			name: "annotation on heading",
			src:  "# Title {% .big #top %}\n",
			want: `<article><h1 id="top" class="big">Title </h1></article>`,
		},
		{
			name: "custom tag with default attribute",
			src:  "{% callout %}\nHi\n{% /callout %}\n",
			cfg: &Config{Tags: map[string]*Schema{
				"callout": {Render: "aside", Attributes: map[string]AttributeSpec{
					"kind": {Type: TypeString, Default: "note"},
				}},
			}},
			want: `<article><aside kind="note"><p>Hi</p></aside></article>`,
		},
		{
			name: "undeclared attributes are dropped",
			src:  "{% callout kind=\"warn\" extra=1 %}\nHi\n{% /callout %}\n",
			cfg: &Config{Tags: map[string]*Schema{
				"callout": {Render: "aside", Attributes: map[string]AttributeSpec{
					"kind": {Type: TypeString, RenderAs: "data-kind"},
				}},
			}},
			want: `<article><aside data-kind="warn"><p>Hi</p></aside></article>`,
		},
		{
			name: "unknown tag renders children",
			src:  "{% mystery %}\nHi\n{% /mystery %}\n",
			want: "<article><p>Hi</p></article>",
		},
		{
			name: "document render override",
			src:  "Hi\n",
			cfg:  &Config{Nodes: map[NodeType]*Schema{NodeDocument: {}}},
			want: "<p>Hi</p>",
		},
		{
			name: "comments are not rendered",
			src:  "<!-- hidden -->\n\nshown\n",
			want: "<article><p>shown</p></article>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderSource(t, tt.src, tt.cfg)
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("render diff (-got +want):\n%s", diff)
			}
		})
	}
}

func TestTransformError(t *testing.T) {
	boom := errors.New("boom")
	cfg := &Config{Tags: map[string]*Schema{
		"fail": {SelfClosing: true, Transform: func(*Node, *Config) (any, error) { return nil, boom }},
	}}
	_, err := Transform(parseSource("text\n\n{% fail /%}\n"), cfg)
	if !errors.Is(err, boom) {
		t.Fatalf("Transform() error = %v, want %v", err, boom)
	}
	var te *TransformError
	if !errors.As(err, &te) {
		t.Fatalf("Transform() error = %T, want *TransformError", err)
	}
	if te.Node().Tag != "fail" || te.Node().Line != 3 {
		t.Errorf("TransformError node = %s at line %d", te.Node(), te.Node().Line)
	}
	if te.Error() != "line 3: fail: boom" {
		t.Errorf("Error() = %q", te.Error())
	}
}

func TestConfigEnter(t *testing.T) {
	cfg := &Config{MaxDepth: 2}
	c1, err := cfg.Enter()
	if err != nil {
		t.Fatal(err)
	}
	c2, err := c1.Enter()
	if err != nil {
		t.Fatal(err)
	}
	if c2.Depth() != 2 || cfg.Depth() != 0 {
		t.Errorf("Depth() = %d, %d; want 2, 0", c2.Depth(), cfg.Depth())
	}
	if _, err := c2.Enter(); !errors.Is(err, ErrMaxDepth) {
		t.Errorf("Enter() error = %v, want ErrMaxDepth", err)
	}
}

func TestWithVariables(t *testing.T) {
	base := &Config{Variables: map[string]any{"a": 1, "b": 1}}
	got := base.WithVariables(map[string]any{"b": 2})
	if diff := cmp.Diff(got.Variables, map[string]any{"a": 1, "b": 2}); diff != "" {
		t.Errorf("Variables diff (-got +want):\n%s", diff)
	}
	if base.Variables["b"] != 1 {
		t.Error("WithVariables modified the receiver")
	}
}
