package markdoc

// Attr is a single named value. The value is one of the scalar types, []any,
// map[string]any, Attrs, or an unresolved Variable or Function.
type Attr struct {
	Name  string
	Value any
}

// Attrs is an ordered attribute list. HTML attribute order is significant for
// the output, so attributes are never stored in a plain map.
type Attrs []Attr

// Get returns the value of the first attribute with the given name.
func (a Attrs) Get(name string) (any, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return nil, false
}

// Has reports whether an attribute with the given name exists.
func (a Attrs) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set replaces the value of an existing attribute, or appends a new one.
func (a *Attrs) Set(name string, value any) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attr{Name: name, Value: value})
}

// Delete removes all attributes with the given name.
func (a *Attrs) Delete(name string) {
	out := (*a)[:0]
	for _, attr := range *a {
		if attr.Name != name {
			out = append(out, attr)
		}
	}
	*a = out
}

// Names returns attribute names in order.
func (a Attrs) Names() []string {
	names := make([]string, len(a))
	for i, attr := range a {
		names[i] = attr.Name
	}
	return names
}

// Map copies the attributes into a map. Order is lost.
func (a Attrs) Map() map[string]any {
	m := make(map[string]any, len(a))
	for _, attr := range a {
		m[attr.Name] = attr.Value
	}
	return m
}

// Clone returns a shallow copy.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	copy(out, a)
	return out
}
