package api

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteService marks failures reported by, or on the way to, the remote service.
	ErrRemoteService = errors.New("remote service error")
	ErrNotFound      = errors.New("not found")
)

// RemoteServiceError wraps a failed remote operation.
type RemoteServiceError struct {
	Op  string
	Err error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrRemoteService and the underlying cause, so
// errors.Is works for batchexecute.ErrUnauthorized too.
func (e *RemoteServiceError) Unwrap() []error {
	return []error{ErrRemoteService, e.Err}
}

func remoteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteServiceError{Op: op, Err: err}
}

// NotFoundError wraps ErrNotFound with context
type NotFoundError struct {
	ResourceType string
	ID           string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
