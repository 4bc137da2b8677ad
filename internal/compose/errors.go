package compose

import (
	"errors"
	"fmt"
)

// ErrCompositionRejected marks operations refused before any network call.
var ErrCompositionRejected = errors.New("composition rejected")

// CompositionError names the parameter that failed validation.
type CompositionError struct {
	Op     Operation
	Field  string
	Value  string
	Reason string
}

func (e *CompositionError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s %q: %s", e.Op, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Field, e.Reason)
}

func (e *CompositionError) Unwrap() error { return ErrCompositionRejected }

func reject(op Operation, field, value, reason string) error {
	return &CompositionError{Op: op, Field: field, Value: value, Reason: reason}
}
