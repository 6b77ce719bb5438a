package mdoc

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dpotapov/go-mdoc/markdoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordArgs returns a Func that stores its arguments and returns result.
func recordArgs(got *[]any, result any) Func {
	return func(args ...any) (any, error) {
		*got = args
		return result, nil
	}
}

func transformDoc(t *testing.T, src string, cfg *markdoc.Config) (string, error) {
	t.Helper()
	tokens := markdoc.NewTokenizer(markdoc.TokenizerOptions{HTML: true}).Tokenize(src)
	tokens, err := Reconcile(tokens, DefaultProxyName)
	require.NoError(t, err)
	if cfg.Nodes == nil {
		cfg.Nodes = map[markdoc.NodeType]*markdoc.Schema{markdoc.NodeDocument: {}}
	}
	out, err := markdoc.Transform(markdoc.Parse(tokens), cfg)
	if err != nil {
		return "", err
	}
	return markdoc.RenderHTML(out), nil
}

func TestEntries(t *testing.T) {
	noop := func(...any) (any, error) { return nil, nil }
	entries := Entries(Registry{
		Filters:          map[string]Func{"upper": noop, "slug": noop},
		Shortcodes:       map[string]Func{"slug": noop, "year": noop},
		PairedShortcodes: map[string]Func{"box": noop},
	})

	var got []string
	for _, e := range entries {
		got = append(got, e.Kind.String()+" "+e.Name)
	}
	assert.Equal(t, []string{
		"function slug",
		"function upper",
		"function year",
		"self-closing-tag slug",
		"self-closing-tag year",
		"paired-tag box",
	}, got)
	assert.Equal(t, "EntryKind(7)", EntryKind(7).String())
}

func TestShortcodeArgs(t *testing.T) {
	tests := []struct {
		name  string
		attrs markdoc.Attrs
		lead  []any
		want  []any
	}{
		{
			name:  "scalar primary",
			attrs: markdoc.Attrs{{Name: "primary", Value: "hi"}},
			want:  []any{"hi"},
		},
		{
			name:  "list primary is spread",
			attrs: markdoc.Attrs{{Name: "primary", Value: []any{"a", 2}}},
			want:  []any{"a", 2},
		},
		{
			name: "named attributes lead",
			attrs: markdoc.Attrs{
				{Name: "primary", Value: []any{"Ann"}},
				{Name: "lang", Value: "en"},
			},
			want: []any{map[string]any{"lang": "en"}, "Ann"},
		},
		{
			name:  "no attributes",
			attrs: nil,
			want:  []any{},
		},
		{
			name:  "paired content first",
			attrs: markdoc.Attrs{{Name: "primary", Value: "x"}},
			lead:  []any{"<p>c</p>"},
			want:  []any{"<p>c</p>", "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shortcodeArgs(tt.attrs, tt.lead...)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParamValues(t *testing.T) {
	params := markdoc.Attrs{
		{Name: "10", Value: "k"},
		{Name: "named", Value: "n"},
		{Name: "2", Value: "c"},
		{Name: "0", Value: "a"},
		{Name: "01", Value: "not an index"},
	}
	assert.Equal(t, []any{"a", "c", "k", "n", "not an index"}, paramValues(params))
}

func TestFiltersToFunctions(t *testing.T) {
	var got []any
	fns := FiltersToFunctions(map[string]Func{
		"upper": func(args ...any) (any, error) {
			got = args
			return strings.ToUpper(fmt.Sprint(args[0])), nil
		},
	})
	out, err := transformDoc(t, `{% upper("go", 2) %}`+"\n", &markdoc.Config{Functions: fns})
	require.NoError(t, err)
	assert.Equal(t, "<p>GO</p>", out)
	assert.Equal(t, []any{"go", 2}, got)
}

func TestFunctionError(t *testing.T) {
	boom := errors.New("boom")
	fns := ShortcodesToFunctions(map[string]Func{
		"fail": func(...any) (any, error) { return nil, boom },
	})
	_, err := transformDoc(t, `{% fail() %}`+"\n", &markdoc.Config{Functions: fns})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "shortcode fail")
}

func TestShortcodesToTags(t *testing.T) {
	var got []any
	tags := ShortcodesToTags(map[string]Func{
		"user": recordArgs(&got, "<i>user</i>"),
	})

	tests := []struct {
		src      string
		wantArgs []any
	}{
		{`{% user "Ann" /%}`, []any{"Ann"}},
		{`{% user ["Ann", "Lee"] /%}`, []any{"Ann", "Lee"}},
		{`{% user ["Ann"] lang="en" /%}`, []any{map[string]any{"lang": "en"}, "Ann"}},
		{`{% user $name /%}`, []any{"Zoe"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out, err := transformDoc(t, tt.src+"\n", &markdoc.Config{
				Tags:      tags,
				Variables: map[string]any{"name": "Zoe"},
			})
			require.NoError(t, err)
			assert.Equal(t, "<i>user</i>", out)
			assert.Equal(t, tt.wantArgs, got)
		})
	}
}

func TestShortcodeNonStringResult(t *testing.T) {
	tags := ShortcodesToTags(map[string]Func{
		"count": func(...any) (any, error) { return 3, nil },
	})
	out, err := transformDoc(t, "n={% count /%}\n", &markdoc.Config{Tags: tags})
	require.NoError(t, err)
	assert.Equal(t, "<p>n=3</p>", out)
}

func TestPairedShortcodesToTags(t *testing.T) {
	var got []any
	paired := PairedShortcodesToTags(map[string]Func{
		"box": func(args ...any) (any, error) {
			got = args
			return fmt.Sprintf("<div class=\"box\">%s</div>", args[0]), nil
		},
	}, DefaultProxyName)
	tags := map[string]*markdoc.Schema{DefaultProxyName: ProxyTag()}
	for k, v := range paired {
		tags[k] = v
	}

	out, err := transformDoc(t, "{% box \"title\" %}\nHello *you*\n{% /box %}\n", &markdoc.Config{Tags: tags})
	require.NoError(t, err)
	assert.Equal(t, `<div class="box"><p>Hello <em>you</em></p></div>`, out)
	assert.Equal(t, []any{"<p>Hello <em>you</em></p>", "title"}, got)
}

func TestPairedShortcodeOutputIsMarkdoc(t *testing.T) {
	paired := PairedShortcodesToTags(map[string]Func{
		"wrap": func(args ...any) (any, error) {
			return "{% $greeting %} " + fmt.Sprint(args[0]), nil
		},
	}, DefaultProxyName)
	out, err := transformDoc(t, "{% wrap %}x{% /wrap %}\n", &markdoc.Config{
		Tags:      paired,
		Variables: map[string]any{"greeting": "hey"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<p><p>hey x</p></p>", out)
}

func TestPairedShortcodeRecursion(t *testing.T) {
	paired := PairedShortcodesToTags(map[string]Func{
		"again": func(args ...any) (any, error) {
			return "{% again %}x{% /again %}", nil
		},
	}, DefaultProxyName)
	_, err := transformDoc(t, "{% again %}x{% /again %}\n", &markdoc.Config{Tags: paired, MaxDepth: 5})
	require.ErrorIs(t, err, markdoc.ErrMaxDepth)
}

func TestPairedShortcodeError(t *testing.T) {
	boom := errors.New("boom")
	paired := PairedShortcodesToTags(map[string]Func{
		"bad": func(...any) (any, error) { return nil, boom },
	}, DefaultProxyName)
	_, err := transformDoc(t, "{% bad %}\nx\n{% /bad %}\n", &markdoc.Config{Tags: paired})
	require.ErrorIs(t, err, boom)

	var te *markdoc.TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "bad", te.Node().Tag)
}
