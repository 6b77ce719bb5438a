package mdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/dpotapov/go-mdoc/markdoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	versionErr error
	filters    map[string]Func
	shortcodes map[string]Func
	paired     map[string]Func

	checked    string
	formats    []string
	extensions []string
	ext        Extension
}

func (h *fakeHost) VersionCheck(constraint string) error {
	h.checked = constraint
	return h.versionErr
}

func (h *fakeHost) Filters() map[string]Func          { return h.filters }
func (h *fakeHost) Shortcodes() map[string]Func       { return h.shortcodes }
func (h *fakeHost) PairedShortcodes() map[string]Func { return h.paired }

func (h *fakeHost) AddTemplateFormats(formats ...string) {
	h.formats = append(h.formats, formats...)
}

func (h *fakeHost) AddExtension(exts []string, ext Extension) {
	h.extensions = exts
	h.ext = ext
}

func render(t *testing.T, p *Plugin, src string, data map[string]any) string {
	t.Helper()
	fn, err := p.Compile(src, "test.mdoc")
	require.NoError(t, err)
	out, err := fn(context.Background(), data)
	require.NoError(t, err)
	return out
}

func TestRegister(t *testing.T) {
	host := &fakeHost{
		shortcodes: map[string]Func{
			"myShortcode": func(args ...any) (any, error) {
				return fmt.Sprintf("<i>%v</i>", args[0]), nil
			},
		},
	}
	_, err := Register(context.Background(), host, Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, HostVersionConstraint, host.checked)
	assert.Equal(t, []string{"mdoc"}, host.formats)
	assert.Equal(t, []string{"mdoc", "markdoc", "markdoc.md"}, host.extensions)

	fn, err := host.ext.Compile(`Some <b>bold</b> text {% myShortcode "hi" %}`, "index.mdoc")
	require.NoError(t, err)
	out, err := fn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>Some <b>bold</b> text <i>hi</i></p>", out)
}

func TestRegisterVersionMismatch(t *testing.T) {
	host := &fakeHost{versionErr: errors.New("host 2.0.0 does not satisfy >=3.0.0-alpha.1")}
	_, err := Register(context.Background(), host, Options{}, nil)
	require.Error(t, err)
	assert.Empty(t, host.formats)
}

func TestRegisterConfigError(t *testing.T) {
	host := &fakeHost{}
	_, err := Register(context.Background(), host, Options{IncludeTags: IncludeTags{HTMLTagProxy: "not valid"}}, nil)
	require.ErrorIs(t, err, ErrInvalidProxyName)
	assert.Empty(t, host.formats)
}

func TestPluginCompile(t *testing.T) {
	reg := Registry{
		Filters: map[string]Func{
			"upper": func(args ...any) (any, error) { return fmt.Sprintf("%v!", args[0]), nil },
		},
		PairedShortcodes: map[string]Func{
			"card": func(args ...any) (any, error) {
				return fmt.Sprintf("<section>%v</section>", args[0]), nil
			},
		},
	}
	tests := []struct {
		name string
		opts Options
		src  string
		data map[string]any
		want string
	}{
		{
			name: "document render tag",
			opts: Options{DocumentRenderTag: "main"},
			src:  "Hi\n",
			want: "<main><p>Hi</p></main>",
		},
		{
			name: "variables and filters",
			src:  "{% upper($page.title) %}\n",
			data: map[string]any{"page": map[string]any{"title": "Home"}},
			want: "<p>Home!</p>",
		},
		{
			name: "transform variables override data",
			opts: Options{Transform: TransformOptions{Variables: map[string]any{"site": "Fixed"}}},
			src:  "{% $site %}\n",
			data: map[string]any{"site": "Data"},
			want: "<p>Fixed</p>",
		},
		{
			name: "html disabled",
			opts: Options{HTML: new(bool)},
			src:  "a <b>x</b>\n",
			want: "<p>a &lt;b&gt;x&lt;/b&gt;</p>",
		},
		{
			name: "custom proxy name",
			opts: Options{IncludeTags: IncludeTags{HTMLTagProxy: "el"}},
			src:  "<div class=\"x\">y</div>\n",
			want: `<div class="x">y</div>`,
		},
		{
			name: "proxy disabled keeps text only",
			opts: Options{IncludeTags: IncludeTags{HTMLTagProxy: false}},
			src:  "<div>y</div>\n",
			want: "y",
		},
		{
			name: "html element tags",
			opts: Options{IncludeTags: IncludeTags{HTMLElements: true}},
			src:  "{% span .note data-x=\"1\" %}hi{% /span %}\n",
			want: `<p><span data-x="1" class="note">hi</span></p>`,
		},
		{
			name: "deferred tags",
			opts: Options{DeferTags: []string{"later"}},
			src:  "{% later \"x\" %}*a*{% /later %}\n",
			want: `<p>{% later "x" %}<em>a</em>{% /later %}</p>`,
		},
		{
			name: "paired shortcode",
			src:  "{% card %}\nBody\n{% /card %}\n",
			want: "<section><p>Body</p></section>",
		},
		{
			name: "comments",
			opts: Options{AllowComments: true},
			src:  "<!-- x -->\n\nshown\n",
			want: "<p>shown</p>",
		},
		{
			name: "user tag overrides",
			opts: Options{Transform: TransformOptions{Tags: map[string]*markdoc.Schema{
				"card": {Render: "aside"},
			}}},
			src:  "{% card %}\nBody\n{% /card %}\n",
			want: "<aside><p>Body</p></aside>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(context.Background(), reg, tt.opts, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, render(t, p, tt.src, tt.data))
		})
	}
}

func TestPluginPartials(t *testing.T) {
	fsys := fstest.MapFS{
		"partials/hello.mdoc": {Data: []byte("---\nname: World\n---\nHello {% $name %}\n")},
	}
	user := markdoc.Parse(markdoc.NewTokenizer(markdoc.TokenizerOptions{}).Tokenize("User partial\n"))

	p, err := New(context.Background(), Registry{}, Options{
		UsePartials: SourceSpecs{{FS: fsys, Patterns: Patterns{"partials/*.mdoc"}, StripPrefix: "partials"}},
		Transform:   TransformOptions{Partials: map[string]any{"user.mdoc": user}},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "<p>Hello World</p>", render(t, p, `{% partial file="hello.mdoc" /%}`, nil))
	assert.Equal(t, "<p>Hello Ann</p>", render(t, p, `{% partial file="hello.mdoc" variables={name: "Ann"} /%}`, nil))
	assert.Equal(t, "<p>User partial</p>", render(t, p, `{% partial file="user.mdoc" /%}`, nil))
}

func TestPluginPartialTypeError(t *testing.T) {
	_, err := New(context.Background(), Registry{}, Options{
		Transform: TransformOptions{Partials: map[string]any{"bad.mdoc": "raw text"}},
	}, nil)
	var pe *PartialTypeError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.mdoc", pe.Key)
}

func TestPluginValidationWarnings(t *testing.T) {
	var logs bytes.Buffer
	p, err := New(context.Background(), Registry{}, Options{}, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	out := render(t, p, "{% unknown %}\nkept\n{% /unknown %}\n", nil)
	assert.Equal(t, "<p>kept</p>", out)
	assert.Contains(t, logs.String(), "Validate document")
	assert.Contains(t, logs.String(), "Undefined tag")
}

func TestPluginProxyDisabledQuiet(t *testing.T) {
	var logs bytes.Buffer
	p, err := New(context.Background(), Registry{}, Options{IncludeTags: IncludeTags{HTMLTagProxy: false}},
		slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	assert.Equal(t, "<p>a y</p>", render(t, p, "a <b>y</b>\n", nil))
	assert.NotContains(t, logs.String(), "Validate document")

	render(t, p, "{% nope /%}\n", nil)
	assert.Contains(t, logs.String(), "Undefined tag: 'nope'")
}

func TestPluginScalarPrimary(t *testing.T) {
	var logs bytes.Buffer
	reg := Registry{Shortcodes: map[string]Func{
		"sc": func(args ...any) (any, error) { return fmt.Sprintf("%v", args), nil },
	}}
	p, err := New(context.Background(), reg, Options{}, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	assert.Equal(t, "<p>x [a]</p>", render(t, p, "x {% sc \"a\" %}\n", nil))
	assert.Equal(t, "<p>x [a b]</p>", render(t, p, "x {% sc [\"a\", \"b\"] %}\n", nil))
	assert.NotContains(t, logs.String(), "Validate document")
}

func TestPluginRenderError(t *testing.T) {
	reg := Registry{Shortcodes: map[string]Func{
		"fail": func(...any) (any, error) { return nil, errors.New("boom") },
	}}
	p, err := New(context.Background(), reg, Options{}, nil)
	require.NoError(t, err)

	fn, err := p.Compile("{% fail /%}\n", "pages/bad.mdoc")
	require.NoError(t, err)
	_, err = fn(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pages/bad.mdoc")
	assert.Contains(t, err.Error(), "boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fn(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPluginMaxDepth(t *testing.T) {
	reg := Registry{PairedShortcodes: map[string]Func{
		"loop": func(...any) (any, error) { return "{% loop %}x{% /loop %}", nil },
	}}
	p, err := New(context.Background(), reg, Options{MaxDepth: 3}, nil)
	require.NoError(t, err)

	fn, err := p.Compile("{% loop %}x{% /loop %}\n", "loop.mdoc")
	require.NoError(t, err)
	_, err = fn(context.Background(), nil)
	assert.ErrorIs(t, err, markdoc.ErrMaxDepth)
}

func TestPluginDebug(t *testing.T) {
	var logs bytes.Buffer
	noop := func(...any) (any, error) { return nil, nil }
	p, err := New(context.Background(), Registry{Shortcodes: map[string]Func{"year": noop}}, Options{Debug: true},
		slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	assert.Len(t, p.Entries(), 2)
	assert.Contains(t, logs.String(), "Adapter entry")
	assert.Contains(t, logs.String(), "kind=self-closing-tag")
	assert.Contains(t, logs.String(), "Registered tags")
}
