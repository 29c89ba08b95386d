package generation

import (
	"errors"
	"fmt"
	"time"

	"github.com/tmc/nlmflow/internal/studio"
)

var (
	ErrTimeout           = errors.New("generation timed out")
	ErrFailed            = errors.New("generation failed")
	ErrAlreadyDownloaded = errors.New("artifact already downloaded")
)

// TimeoutError reports a task that did not complete within its budget.
// The remote task may still be running.
type TimeoutError struct {
	Type    studio.Type
	TaskID  string
	Timeout time.Duration
	Polls   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s generation %s not complete after %v (%d polls)", e.Type, e.TaskID, e.Timeout, e.Polls)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// FailedError reports a task the remote service marked as failed.
type FailedError struct {
	Type    studio.Type
	TaskID  string
	Message string
}

func (e *FailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s generation %s failed", e.Type, e.TaskID)
	}
	return fmt.Sprintf("%s generation %s failed: %s", e.Type, e.TaskID, e.Message)
}

func (e *FailedError) Unwrap() error {
	return ErrFailed
}
