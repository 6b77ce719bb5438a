package markdoc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func errorIDs(findings []ValidateError) []string {
	var ids []string
	for _, f := range findings {
		ids = append(ids, f.Err.ID)
	}
	return ids
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Tags: map[string]*Schema{
			"strict": {SelfClosing: true, Attributes: map[string]AttributeSpec{"n": {Type: TypeNumber}}},
			"loose":  {SelfClosing: true, PassThrough: true},
			"list":   {SelfClosing: true, Attributes: map[string]AttributeSpec{"primary": {Type: TypeArray}}},
			"many":   {SelfClosing: true, Attributes: map[string]AttributeSpec{"primary": {Type: TypeArray, Single: true}}},
		},
		Partials: map[string]*Node{"known.md": NewNode(NodeDocument, nil)},
	}
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"valid", "{% if true %}\nx\n{% /if %}\n", nil},
		{"undefined tag", "{% foo %}\nx\n{% /foo %}\n", []string{"tag-undefined"}},
		{"missing closing", "{% if true %}\nx\n", []string{"missing-closing"}},
		{"mismatched closing", "{% if true %}\n{% /foo %}\n", []string{"missing-closing", "mismatched-tag"}},
		{"undefined attribute", "{% strict foo=1 /%}\n", []string{"attribute-undefined"}},
		{"pass through attribute", "{% loose foo=1 /%}\n", nil},
		{"invalid type", "{% strict n=\"x\" /%}\n", []string{"attribute-type-invalid"}},
		{"scalar for array", "{% list \"x\" /%}\n", []string{"attribute-type-invalid"}},
		{"scalar for single array", "{% many \"x\" /%}\n", nil},
		{"list for single array", "{% many [\"x\", 2] /%}\n", nil},
		{"variables are not type checked", "{% strict n=$x /%}\n", nil},
		{"missing required", "{% partial /%}\n", []string{"attribute-missing-required"}},
		{"unknown partial", "{% partial file=\"none.md\" /%}\n", []string{"attribute-value-invalid"}},
		{"known partial", "{% partial file=\"known.md\" /%}\n", nil},
		{"undefined function", "{% if nope() %}\nx\n{% /if %}\n", []string{"function-undefined"}},
		{"self-closing with children", "{% else %}\nx\n{% /else %}\n", []string{"tag-selfclosing-has-children"}},
		{"unclosed self-closing schema", "a {% strict %}\n", nil},
		{"syntax error", "a {% 1bad %}\n", []string{"syntax-error"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorIDs(Validate(parseSource(tt.src), cfg))
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("Validate() diff (-got +want):\n%s", diff)
			}
		})
	}
}

func TestValidateLeavesTreeUnchanged(t *testing.T) {
	doc := parseSource("{% if true %}\nx\n")
	before := DumpXML(doc)
	for i := 0; i < 2; i++ {
		if got := len(Validate(doc, nil)); got != 1 {
			t.Fatalf("Validate() returned %d findings, want 1", got)
		}
	}
	if diff := cmp.Diff(DumpXML(doc), before); diff != "" {
		t.Errorf("tree changed (-got +want):\n%s", diff)
	}
}

func TestValidateErrorLine(t *testing.T) {
	findings := Validate(parseSource("ok\n\n{% foo /%}\n"), nil)
	if len(findings) != 1 {
		t.Fatalf("Validate() = %v, want one finding", findings)
	}
	if got, want := findings[0].Error(), "line 3: foo: Undefined tag: 'foo'"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
