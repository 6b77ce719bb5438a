package mdoc

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/dpotapov/go-mdoc/markdoc"
)

// Func is a user defined filter or shortcode. Paired shortcodes receive the
// rendered inner content as their first argument.
type Func func(args ...any) (any, error)

// Registry holds the user callables exposed to documents.
type Registry struct {
	Filters          map[string]Func
	Shortcodes       map[string]Func
	PairedShortcodes map[string]Func
}

// EntryKind is the shape a user callable is exposed as.
type EntryKind int

const (
	FunctionEntry EntryKind = iota
	SelfClosingTagEntry
	PairedTagEntry
)

func (k EntryKind) String() string {
	switch k {
	case FunctionEntry:
		return "function"
	case SelfClosingTagEntry:
		return "self-closing-tag"
	case PairedTagEntry:
		return "paired-tag"
	default:
		return "EntryKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Entry maps one callable name to the way it is exposed.
type Entry struct {
	Name string
	Kind EntryKind
	Fn   Func
}

// Entries lists every adapter entry of the registry, sorted by kind and name.
// Shortcodes are exposed both as functions and as self-closing tags; a shortcode
// shadows a filter of the same name.
func Entries(r Registry) []Entry {
	functions := make(map[string]Func, len(r.Filters)+len(r.Shortcodes))
	for name, fn := range r.Filters {
		functions[name] = fn
	}
	for name, fn := range r.Shortcodes {
		functions[name] = fn
	}

	var out []Entry
	for name, fn := range functions {
		out = append(out, Entry{Name: name, Kind: FunctionEntry, Fn: fn})
	}
	for name, fn := range r.Shortcodes {
		out = append(out, Entry{Name: name, Kind: SelfClosingTagEntry, Fn: fn})
	}
	for name, fn := range r.PairedShortcodes {
		out = append(out, Entry{Name: name, Kind: PairedTagEntry, Fn: fn})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// FiltersToFunctions exposes filters as Markdoc functions: fn(a, b) calls the
// filter with a and b.
func FiltersToFunctions(filters map[string]Func) map[string]markdoc.FunctionSpec {
	return toFunctions("filter", filters)
}

// ShortcodesToFunctions exposes shortcodes as Markdoc functions.
func ShortcodesToFunctions(shortcodes map[string]Func) map[string]markdoc.FunctionSpec {
	return toFunctions("shortcode", shortcodes)
}

func toFunctions(kind string, fns map[string]Func) map[string]markdoc.FunctionSpec {
	out := make(map[string]markdoc.FunctionSpec, len(fns))
	for name, fn := range fns {
		out[name] = markdoc.FunctionSpec{
			Transform: func(params markdoc.Attrs, _ *markdoc.Config) (any, error) {
				v, err := fn(paramValues(params)...)
				if err != nil {
					return nil, fmt.Errorf("%s %s: %w", kind, name, err)
				}
				return v, nil
			},
		}
	}
	return out
}

// ShortcodesToTags exposes shortcodes as self-closing tags. The "primary"
// attribute is spread into positional arguments, any other attributes are
// passed as a leading map argument:
//
//	{% user "Ann" %}             user("Ann")
//	{% user ["Ann", "Lee"] %}    user("Ann", "Lee")
//	{% user ["Ann"] lang="en" %} user(map[lang:en], "Ann")
//
// A string result is inserted as raw markup.
func ShortcodesToTags(shortcodes map[string]Func) map[string]*markdoc.Schema {
	out := make(map[string]*markdoc.Schema, len(shortcodes))
	for name, fn := range shortcodes {
		out[name] = &markdoc.Schema{
			SelfClosing: true,
			PassThrough: true,
			Attributes:  primaryAttribute(),
			Transform: func(n *markdoc.Node, cfg *markdoc.Config) (any, error) {
				attrs, err := n.ResolveAttributes(cfg)
				if err != nil {
					return nil, err
				}
				v, err := fn(shortcodeArgs(attrs)...)
				if err != nil {
					return nil, fmt.Errorf("shortcode %s: %w", name, err)
				}
				if s, ok := v.(string); ok {
					return markdoc.Raw(s), nil
				}
				return v, nil
			},
		}
	}
	return out
}

// PairedShortcodesToTags exposes paired shortcodes as tags with children. The
// transformed children are rendered to HTML and passed as the first argument,
// followed by the same arguments ShortcodesToTags passes. A string result is
// tokenized as HTML enabled Markdoc, reconciled with proxyName, parsed and
// transformed one level deeper in the same config.
func PairedShortcodesToTags(paired map[string]Func, proxyName string) map[string]*markdoc.Schema {
	out := make(map[string]*markdoc.Schema, len(paired))
	for name, fn := range paired {
		out[name] = &markdoc.Schema{
			PassThrough: true,
			Attributes:  primaryAttribute(),
			Transform: func(n *markdoc.Node, cfg *markdoc.Config) (any, error) {
				attrs, err := n.ResolveAttributes(cfg)
				if err != nil {
					return nil, err
				}
				children, err := n.TransformChildren(cfg)
				if err != nil {
					return nil, err
				}
				content := markdoc.RenderHTML(children)

				v, err := fn(shortcodeArgs(attrs, content)...)
				if err != nil {
					return nil, fmt.Errorf("paired shortcode %s: %w", name, err)
				}
				s, ok := v.(string)
				if !ok {
					return v, nil
				}

				nested, err := cfg.Enter()
				if err != nil {
					return nil, fmt.Errorf("paired shortcode %s: %w", name, err)
				}
				tokens := markdoc.NewTokenizer(markdoc.TokenizerOptions{HTML: true}).Tokenize(s)
				tokens, err = Reconcile(tokens, proxyName)
				if err != nil {
					return nil, err
				}
				result, err := markdoc.Parse(tokens).TransformChildren(nested)
				if err != nil {
					return nil, fmt.Errorf("paired shortcode %s output: %w", name, err)
				}
				return result, nil
			},
		}
	}
	return out
}

func primaryAttribute() map[string]markdoc.AttributeSpec {
	return map[string]markdoc.AttributeSpec{
		"primary": {Type: markdoc.TypeArray, Single: true},
	}
}

// shortcodeArgs builds the argument list of a shortcode call: lead, then the
// non-primary attributes as a map if there are any, then primary, spread if it
// is a list.
func shortcodeArgs(attrs markdoc.Attrs, lead ...any) []any {
	args := slices.Clone(lead)

	rest := map[string]any{}
	for _, a := range attrs {
		if a.Name != "primary" {
			rest[a.Name] = a.Value
		}
	}
	if len(rest) > 0 {
		args = append(args, rest)
	}

	primary, ok := attrs.Get("primary")
	if !ok {
		return args
	}
	if list, isList := primary.([]any); isList {
		return append(args, list...)
	}
	return append(args, primary)
}

// paramValues orders function parameters the way positional arguments are
// encoded: integer keys ascending, then named keys in the order written.
func paramValues(params markdoc.Attrs) []any {
	var indexed, named []markdoc.Attr
	for _, p := range params {
		if isIndex(p.Name) {
			indexed = append(indexed, p)
		} else {
			named = append(named, p)
		}
	}
	slices.SortStableFunc(indexed, func(a, b markdoc.Attr) int {
		x, _ := strconv.ParseUint(a.Name, 10, 32)
		y, _ := strconv.ParseUint(b.Name, 10, 32)
		return cmp.Compare(x, y)
	})

	out := make([]any, 0, len(params))
	for _, p := range indexed {
		out = append(out, p.Value)
	}
	for _, p := range named {
		out = append(out, p.Value)
	}
	return out
}

func isIndex(s string) bool {
	n, err := strconv.ParseUint(s, 10, 32)
	return err == nil && strconv.FormatUint(n, 10) == s
}
