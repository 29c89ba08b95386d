package studio

import (
	"errors"
	"fmt"
)

// ErrValidation marks parameters rejected before any network call.
var ErrValidation = errors.New("invalid parameters")

// ValidationError describes a rejected field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
