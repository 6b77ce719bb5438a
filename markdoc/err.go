package markdoc

import (
	"errors"
	"fmt"
)

// ErrMaxDepth is returned when nested transforms (partials, paired shortcodes
// re-parsing their own output) exceed Config.MaxDepth.
var ErrMaxDepth = errors.New("markdoc: maximum transform depth exceeded")

// Error levels.
const (
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelCritical = "critical"
)

// Error is a syntax or validation finding attached to a node or token.
type Error struct {
	ID      string
	Level   string
	Message string
	Line    int
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ValidateError is a finding reported by Validate.
type ValidateError struct {
	Type string // node type
	Tag  string // tag name for tag nodes
	Line int
	Err  *Error
}

func (e ValidateError) Error() string {
	name := e.Type
	if e.Tag != "" {
		name = e.Tag
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, name, e.Err.Message)
	}
	return name + ": " + e.Err.Message
}

// TransformError wraps an error raised while transforming a node.
type TransformError struct {
	node *Node
	err  error
}

func newTransformError(n *Node, err error) error {
	var te *TransformError
	if errors.As(err, &te) {
		return err
	}
	return &TransformError{node: n, err: err}
}

func (e *TransformError) Error() string {
	name := string(e.node.Type)
	if e.node.Tag != "" {
		name = e.node.Tag
	}
	if e.node.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.node.Line, name, e.err.Error())
	}
	return name + ": " + e.err.Error()
}

func (e *TransformError) Unwrap() error {
	return e.err
}

// Node returns the node that failed to transform.
func (e *TransformError) Node() *Node {
	return e.node
}

// Context returns an XML dump of the failing node, for error reporting.
func (e *TransformError) Context() string {
	return DumpXML(e.node)
}
