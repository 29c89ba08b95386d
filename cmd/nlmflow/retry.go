package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tmc/nlmflow/internal/batchexecute"
)

const maxAttempts = 3

// committedError marks a failure that happened after a command changed
// remote state. Such a command is never run again automatically.
type committedError struct {
	err error
}

func (e *committedError) Error() string { return e.err.Error() }
func (e *committedError) Unwrap() error { return e.err }

func committed(err error) error {
	if err == nil {
		return nil
	}
	return &committedError{err: err}
}

// runWithReauth runs cmd and, when the remote rejects the credentials,
// re-authenticates and runs it again. It stops as soon as
// re-authentication fails or cmd reports a committed failure.
func runWithReauth(ctx context.Context, stderr io.Writer, cmd, reauth func(context.Context) error) error {
	var err error
	for i := 0; i < maxAttempts; i++ {
		if i > 1 {
			fmt.Fprintln(stderr, "nlmflow: attempting again to obtain login information")
		}
		err = cmd(ctx)
		if err == nil {
			return nil
		}
		var ce *committedError
		if !errors.Is(err, batchexecute.ErrUnauthorized) || errors.As(err, &ce) {
			return err
		}
		if i == maxAttempts-1 {
			break
		}
		fmt.Fprintln(stderr, "nlmflow: credentials rejected, launching browser to log in again")
		if rerr := reauth(ctx); rerr != nil {
			return fmt.Errorf("%w (re-authentication failed: %v)", err, rerr)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
}
