package mdoc

import (
	"errors"
	"fmt"
)

// ErrConfig is the root of every configuration error returned by New,
// Register and Reconcile.
var ErrConfig = errors.New("mdoc: invalid configuration")

// ErrInvalidProxyName is returned for an HTML proxy tag name that is not a
// valid tag identifier.
var ErrInvalidProxyName = fmt.Errorf("%w: invalid html tag proxy name", ErrConfig)

// PartialTypeError reports a user supplied partial that is not a parsed AST.
type PartialTypeError struct {
	Key   string
	Value any
}

func (e *PartialTypeError) Error() string {
	return fmt.Sprintf("mdoc: partial %q is %T, expected *markdoc.Node", e.Key, e.Value)
}

func (e *PartialTypeError) Unwrap() error {
	return ErrConfig
}
