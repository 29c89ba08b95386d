package generation

import (
	"time"

	"github.com/tmc/nlmflow/internal/studio"
)

// State is the local lifecycle state of a Task.
type State int

const (
	Submitted State = iota
	Polling
	Complete
	TimedOut
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Polling:
		return "polling"
	case Complete:
		return "complete"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s >= Complete
}

// Task is one artifact generation request.
type Task struct {
	NotebookID  string
	Type        studio.Type
	TaskID      string
	Params      studio.Params
	State       State
	StartedAt   time.Time
	CompletedAt *time.Time
	Polls       int

	err        error
	downloaded string
}

// Err returns the reason a task ended in TimedOut, Failed or Cancelled.
func (t *Task) Err() error {
	return t.err
}

// Downloaded returns the path the artifact was saved to, if any.
func (t *Task) Downloaded() string {
	return t.downloaded
}

func (t *Task) finish(s State, at time.Time, err error) {
	t.State = s
	t.err = err
	if s == Complete {
		t.CompletedAt = &at
	}
}
