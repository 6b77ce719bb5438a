package markdoc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	tagOpenDelim  = "{%"
	tagCloseDelim = "%}"
)

// findTagEnd returns the index of the closing "%}" of a tag that starts at
// src[0], skipping over quoted strings. It returns -1 if the tag is not closed
// on the same line.
func findTagEnd(src []byte) int {
	inString := false
	for i := 2; i+1 < len(src); i++ {
		c := src[i]
		if c == '\n' {
			return -1
		}
		if inString {
			if c == '\\' {
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if c == '%' && src[i+1] == '}' {
			return i
		}
	}
	return -1
}

// parseTag turns the full text of a tag, delimiters included, into a token.
func parseTag(raw string) (*Token, error) {
	if !strings.HasPrefix(raw, tagOpenDelim) || !strings.HasSuffix(raw, tagCloseDelim) || len(raw) < 4 {
		return nil, fmt.Errorf("malformed tag %q", raw)
	}
	inner := strings.TrimSpace(raw[2 : len(raw)-2])
	if inner == "" {
		return nil, fmt.Errorf("empty tag")
	}

	s := &tagScanner{src: inner}

	// Close tag: {% /name %}
	if s.peek() == '/' {
		s.pos++
		name := s.ident(true)
		if name == "" {
			return nil, fmt.Errorf("expected tag name after '/'")
		}
		s.skipSpace()
		if !s.eof() {
			return nil, fmt.Errorf("unexpected %q in closing tag", s.rest())
		}
		return &Token{Type: TokenTagClose, Nesting: -1, Meta: &TagMeta{Tag: name, Raw: raw}}, nil
	}

	selfClosing := false
	if strings.HasSuffix(inner, "/") {
		selfClosing = true
		s.src = strings.TrimSpace(inner[:len(inner)-1])
	}

	// Interpolations: {% $var %} and {% fn(...) %}
	if s.peek() == '$' || s.isCall() {
		v, err := s.value()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if !s.eof() {
			return nil, fmt.Errorf("unexpected %q after value", s.rest())
		}
		typ := TokenVariable
		if _, ok := v.(*Function); ok {
			typ = TokenFunction
		}
		return &Token{Type: typ, Meta: &TagMeta{Value: v, Raw: raw}}, nil
	}

	// Annotation: {% .cls #id key=value %}
	if s.peek() == '.' || s.peek() == '#' || s.isAssign() {
		attrs, err := s.attributes(false)
		if err != nil {
			return nil, err
		}
		return &Token{Type: TokenAnnotation, Meta: &TagMeta{Attributes: attrs, Raw: raw}}, nil
	}

	name := s.ident(true)
	if name == "" {
		return nil, fmt.Errorf("invalid tag name in %q", raw)
	}
	if !s.eof() && !isSpace(s.peek()) {
		return nil, fmt.Errorf("unexpected %q after tag name %q", s.rest(), name)
	}
	attrs, err := s.attributes(true)
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", name, err)
	}

	tok := &Token{Type: TokenTagOpen, Nesting: 1, Meta: &TagMeta{Tag: name, Attributes: attrs, Raw: raw}}
	if selfClosing {
		tok.Type = TokenTag
		tok.Nesting = 0
	}
	return tok, nil
}

// tagScanner is a cursor over the inside of a tag.
type tagScanner struct {
	src string
	pos int
}

func (s *tagScanner) eof() bool    { return s.pos >= len(s.src) }
func (s *tagScanner) rest() string { return s.src[s.pos:] }

func (s *tagScanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *tagScanner) skipSpace() {
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

// ident reads an identifier. Tag names may contain '-', variable names may not.
func (s *tagScanner) ident(allowDash bool) string {
	start := s.pos
	for !s.eof() {
		c := s.src[s.pos]
		if isLetter(c) || c == '_' || (s.pos > start && (isDigit(c) || (allowDash && c == '-'))) {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

// isCall reports whether the cursor is at "name(".
func (s *tagScanner) isCall() bool {
	save := s.pos
	defer func() { s.pos = save }()
	if s.ident(false) == "" {
		return false
	}
	return s.peek() == '('
}

// isAssign reports whether the cursor is at "key=".
func (s *tagScanner) isAssign() bool {
	save := s.pos
	defer func() { s.pos = save }()
	if s.ident(true) == "" {
		return false
	}
	return s.peek() == '='
}

// attributes reads the attribute list of a tag. When allowPrimary is set, a
// leading bare value becomes the "primary" attribute.
func (s *tagScanner) attributes(allowPrimary bool) (Attrs, error) {
	var attrs Attrs
	var classes []string
	first := true
	for {
		s.skipSpace()
		if s.eof() {
			break
		}
		switch c := s.peek(); {
		case c == '.':
			s.pos++
			cls := s.ident(true)
			if cls == "" {
				return nil, fmt.Errorf("expected class name after '.'")
			}
			classes = append(classes, cls)
		case c == '#':
			s.pos++
			id := s.ident(true)
			if id == "" {
				return nil, fmt.Errorf("expected id after '#'")
			}
			attrs.Set("id", id)
		case s.isAssign():
			key := s.ident(true)
			s.pos++ // '='
			v, err := s.value()
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", key, err)
			}
			attrs.Set(key, v)
		case allowPrimary && first:
			v, err := s.value()
			if err != nil {
				return nil, fmt.Errorf("primary attribute: %w", err)
			}
			attrs.Set("primary", v)
		default:
			return nil, fmt.Errorf("unexpected %q", s.rest())
		}
		first = false
	}
	if len(classes) > 0 {
		if existing, ok := attrs.Get("class"); ok {
			if str, ok := existing.(string); ok && str != "" {
				classes = append([]string{str}, classes...)
			}
		}
		attrs.Set("class", strings.Join(classes, " "))
	}
	return attrs, nil
}

func (s *tagScanner) value() (any, error) {
	s.skipSpace()
	if s.eof() {
		return nil, fmt.Errorf("expected value")
	}
	c := s.peek()
	switch {
	case c == '"':
		return s.str()
	case c == '[':
		return s.array()
	case c == '{':
		return s.object()
	case c == '$':
		return s.variable()
	case c == '-' || isDigit(c):
		return s.number()
	case isLetter(c) || c == '_':
		start := s.pos
		name := s.ident(false)
		if s.peek() == '(' {
			return s.call(name)
		}
		switch name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		s.pos = start
		return nil, fmt.Errorf("unexpected identifier %q", name)
	}
	return nil, fmt.Errorf("unexpected %q", s.rest())
}

func (s *tagScanner) str() (string, error) {
	start := s.pos
	s.pos++ // opening quote
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '"':
			s.pos++
			var out string
			if err := json.Unmarshal([]byte(s.src[start:s.pos]), &out); err != nil {
				return "", fmt.Errorf("invalid string %s: %w", s.src[start:s.pos], err)
			}
			return out, nil
		}
		s.pos++
	}
	return "", fmt.Errorf("unterminated string")
}

func (s *tagScanner) number() (any, error) {
	start := s.pos
	if s.peek() == '-' {
		s.pos++
	}
	isFloat := false
	for !s.eof() {
		c := s.src[s.pos]
		if isDigit(c) {
			s.pos++
			continue
		}
		if c == '.' && !isFloat {
			isFloat = true
			s.pos++
			continue
		}
		break
	}
	lit := s.src[start:s.pos]
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", lit)
		}
		return f, nil
	}
	n, err := strconv.Atoi(lit)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", lit)
	}
	return n, nil
}

func (s *tagScanner) array() ([]any, error) {
	s.pos++ // '['
	out := []any{}
	for {
		s.skipSpace()
		if s.peek() == ']' {
			s.pos++
			return out, nil
		}
		v, err := s.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
		case ']':
		default:
			return nil, fmt.Errorf("expected ',' or ']' in array")
		}
	}
}

func (s *tagScanner) object() (map[string]any, error) {
	s.pos++ // '{'
	out := map[string]any{}
	for {
		s.skipSpace()
		if s.peek() == '}' {
			s.pos++
			return out, nil
		}
		var key string
		if s.peek() == '"' {
			k, err := s.str()
			if err != nil {
				return nil, err
			}
			key = k
		} else {
			key = s.ident(true)
			if key == "" {
				return nil, fmt.Errorf("expected object key")
			}
		}
		s.skipSpace()
		if s.peek() != ':' {
			return nil, fmt.Errorf("expected ':' after key %q", key)
		}
		s.pos++
		v, err := s.value()
		if err != nil {
			return nil, err
		}
		out[key] = v
		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
		case '}':
		default:
			return nil, fmt.Errorf("expected ',' or '}' in object")
		}
	}
}

// variable reads $name(.name|[index])* and keeps the path source as written.
func (s *tagScanner) variable() (*Variable, error) {
	s.pos++ // '$'
	start := s.pos
	if s.ident(false) == "" {
		return nil, fmt.Errorf("expected variable name after '$'")
	}
	for !s.eof() {
		switch s.peek() {
		case '.':
			s.pos++
			if s.ident(false) == "" {
				return nil, fmt.Errorf("expected name after '.' in variable")
			}
		case '[':
			s.pos++
			s.skipSpace()
			var err error
			if s.peek() == '"' {
				_, err = s.str()
			} else {
				_, err = s.number()
			}
			if err != nil {
				return nil, err
			}
			s.skipSpace()
			if s.peek() != ']' {
				return nil, fmt.Errorf("expected ']' in variable")
			}
			s.pos++
		default:
			return NewVariable(s.src[start:s.pos]), nil
		}
	}
	return NewVariable(s.src[start:s.pos]), nil
}

func (s *tagScanner) call(name string) (*Function, error) {
	s.pos++ // '('
	fn := &Function{Name: name}
	index := 0
	for {
		s.skipSpace()
		if s.eof() {
			return nil, fmt.Errorf("unterminated call to %s", name)
		}
		if s.peek() == ')' {
			s.pos++
			return fn, nil
		}
		if s.isAssign() {
			key := s.ident(true)
			s.pos++ // '='
			v, err := s.value()
			if err != nil {
				return nil, err
			}
			fn.Parameters.Set(key, v)
		} else {
			v, err := s.value()
			if err != nil {
				return nil, err
			}
			fn.Parameters = append(fn.Parameters, Attr{Name: strconv.Itoa(index), Value: v})
			index++
		}
		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
		case ')':
		default:
			return nil, fmt.Errorf("expected ',' or ')' in call to %s", name)
		}
	}
}

func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// IsIdentifier reports whether s is a valid tag name.
func IsIdentifier(s string) bool {
	if s == "" || !isLetter(s[0]) && s[0] != '_' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isLetter(c) && !isDigit(c) && c != '_' && c != '-' {
			return false
		}
	}
	return true
}
