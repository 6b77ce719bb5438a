package markdoc

import (
	"fmt"
	"sort"
)

// Validate checks a document against the config and returns every finding in
// document order. Validation never modifies the tree.
func Validate(doc *Node, cfg *Config) []ValidateError {
	if cfg == nil {
		cfg = &Config{}
	}
	var out []ValidateError
	report := func(n *Node, e *Error) {
		found := *e
		if found.Line == 0 {
			found.Line = n.Line
		}
		out = append(out, ValidateError{Type: string(n.Type), Tag: n.Tag, Line: found.Line, Err: &found})
	}

	doc.Walk(func(n *Node) bool {
		schema := cfg.schemaFor(n)

		for _, e := range n.Errors {
			if e.ID == "missing-closing" && schema != nil && schema.SelfClosing {
				continue
			}
			report(n, e)
		}

		if n.Type == NodeTag {
			if schema == nil {
				report(n, &Error{
					ID:      "tag-undefined",
					Level:   LevelCritical,
					Message: fmt.Sprintf("Undefined tag: '%s'", n.Tag),
				})
			} else {
				for _, e := range validateTag(n, schema) {
					report(n, e)
				}
			}
		}

		for _, attr := range n.Attributes {
			for _, name := range undefinedFunctions(attr.Value, cfg) {
				report(n, &Error{
					ID:      "function-undefined",
					Level:   LevelCritical,
					Message: fmt.Sprintf("Undefined function: '%s'", name),
				})
			}
		}

		if schema != nil && schema.Validate != nil {
			for _, e := range schema.Validate(n, cfg) {
				report(n, e)
			}
		}
		return true
	})
	return out
}

func validateTag(n *Node, schema *Schema) []*Error {
	var errs []*Error
	if schema.SelfClosing && len(n.Children) > 0 {
		errs = append(errs, &Error{
			ID:      "tag-selfclosing-has-children",
			Level:   LevelCritical,
			Message: fmt.Sprintf("'%s' tag should be self-closing", n.Tag),
		})
	}

	for _, attr := range n.Attributes {
		spec, declared := schema.attribute(attr.Name)
		if !declared {
			if !schema.PassThrough {
				errs = append(errs, &Error{
					ID:      "attribute-undefined",
					Level:   LevelError,
					Message: fmt.Sprintf("Invalid attribute: '%s'", attr.Name),
				})
			}
			continue
		}
		if _, ok := attr.Value.(Resolvable); ok {
			continue
		}
		if !spec.accepts(attr.Value) {
			errs = append(errs, &Error{
				ID:      "attribute-type-invalid",
				Level:   LevelError,
				Message: fmt.Sprintf("Attribute '%s' must be type of '%s'", attr.Name, spec.Type),
			})
		}
	}

	names := make([]string, 0, len(schema.Attributes))
	for name, spec := range schema.Attributes {
		if spec.Required && !n.Attributes.Has(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		errs = append(errs, &Error{
			ID:      "attribute-missing-required",
			Level:   LevelError,
			Message: fmt.Sprintf("Missing required attribute: '%s'", name),
		})
	}
	return errs
}

func undefinedFunctions(v any, cfg *Config) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case *Function:
			if _, ok := cfg.function(val.Name); !ok {
				out = append(out, val.Name)
			}
			for _, p := range val.Parameters {
				walk(p.Value)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		case map[string]any:
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(val[k])
			}
		}
	}
	walk(v)
	return out
}
