package markdoc

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Resolvable is an attribute value computed at transform time.
type Resolvable interface {
	Resolve(cfg *Config) (any, error)
}

// Variable is a $path reference to Config.Variables, e.g. $page.title or
// $items[0]. The path is evaluated by the expression engine, so map keys,
// struct fields and indexes all work.
type Variable struct {
	Path string

	once sync.Once
	prog *vm.Program
	err  error
}

var _ Resolvable = (*Variable)(nil)

func NewVariable(path string) *Variable {
	return &Variable{Path: path}
}

// Resolve returns the value the path points to, or nil if any part of the path
// is undefined.
func (v *Variable) Resolve(cfg *Config) (any, error) {
	v.once.Do(func() {
		v.prog, v.err = expr.Compile(v.Path, expr.AllowUndefinedVariables())
	})
	if v.err != nil {
		return nil, fmt.Errorf("variable $%s: %w", v.Path, v.err)
	}
	env := cfg.Variables
	if env == nil {
		env = map[string]any{}
	}
	out, err := expr.Run(v.prog, env)
	if err != nil {
		// Fetching through a nil or missing intermediate value.
		return nil, nil
	}
	return out, nil
}

func (v *Variable) String() string {
	return "$" + v.Path
}

// Function is a call like fn($a, 1, key="v"). Positional parameters are keyed
// "0", "1", ... in the order they appear.
type Function struct {
	Name       string
	Parameters Attrs
}

var _ Resolvable = (*Function)(nil)

// Resolve resolves the parameters and invokes the function registered in the
// config. Undefined functions resolve to nil; Validate reports them.
func (f *Function) Resolve(cfg *Config) (any, error) {
	spec, ok := cfg.function(f.Name)
	if !ok {
		return nil, nil
	}
	params, err := ResolveAttrs(f.Parameters, cfg)
	if err != nil {
		return nil, err
	}
	out, err := spec.Transform(params, cfg)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", f.Name, err)
	}
	return out, nil
}

func (f *Function) String() string {
	return f.Name + "()"
}

// ResolveValue resolves variables and function calls anywhere inside v.
func ResolveValue(v any, cfg *Config) (any, error) {
	switch val := v.(type) {
	case Resolvable:
		return val.Resolve(cfg)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			r, err := ResolveValue(item, cfg)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			r, err := ResolveValue(item, cfg)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case Attrs:
		return ResolveAttrs(val, cfg)
	default:
		return v, nil
	}
}

// ResolveAttrs resolves every attribute value, keeping the order.
func ResolveAttrs(attrs Attrs, cfg *Config) (Attrs, error) {
	if attrs == nil {
		return nil, nil
	}
	out := make(Attrs, 0, len(attrs))
	for _, attr := range attrs {
		v, err := ResolveValue(attr.Value, cfg)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		out = append(out, Attr{Name: attr.Name, Value: v})
	}
	return out, nil
}

// truthy follows Markdoc: only false and undefined/null are falsy.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
