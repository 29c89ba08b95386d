package library

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrAmbiguous = errors.New("ambiguous reference")
)

// NotFoundError reports a reference with no cached notebook.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return "notebook not found: no active notebook"
	}
	return fmt.Sprintf("notebook not found: %s", e.Ref)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AmbiguousReferenceError reports a prefix shared by several notebooks.
type AmbiguousReferenceError struct {
	Ref     string
	Matches int
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("ambiguous notebook reference %q: %d matches", e.Ref, e.Matches)
}

func (e *AmbiguousReferenceError) Unwrap() error {
	return ErrAmbiguous
}
