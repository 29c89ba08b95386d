// Package generation drives artifact generation tasks from submission
// through polling to download.
package generation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tmc/nlmflow/internal/studio"
)

// Remote is the part of the remote service the orchestrator needs.
type Remote interface {
	SubmitGeneration(ctx context.Context, notebookID string, p studio.Params) (studio.Submission, error)
	PollGeneration(ctx context.Context, notebookID, taskID string) (studio.Status, error)
	DownloadArtifact(ctx context.Context, notebookID, taskID string, t studio.Type, dest string) (string, error)
}

// Orchestrator submits generation requests and waits for them.
type Orchestrator struct {
	remote Remote
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock replaces the time source and the sleep between polls.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.now = now
		o.sleep = sleep
	}
}

// New returns an orchestrator backed by remote.
func New(remote Remote, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		remote: remote,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Submit sends a generation request. Synchronous artifact types come
// back already Complete.
func (o *Orchestrator) Submit(ctx context.Context, notebookID string, p studio.Params) (*Task, error) {
	if notebookID == "" {
		return nil, &studio.ValidationError{Field: "notebook", Reason: "required"}
	}
	if p == nil {
		return nil, &studio.ValidationError{Field: "params", Reason: "required"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec, ok := studio.Lookup(p.Type())
	if !ok {
		return nil, &studio.ValidationError{Field: "type", Value: string(p.Type()), Reason: "unknown artifact type"}
	}
	sub, err := o.remote.SubmitGeneration(ctx, notebookID, p)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", p.Type(), err)
	}
	now := o.now()
	t := &Task{
		NotebookID: notebookID,
		Type:       p.Type(),
		TaskID:     sub.TaskID,
		Params:     p,
		State:      Submitted,
		StartedAt:  now,
	}
	if spec.Synchronous || sub.Complete {
		t.finish(Complete, now, nil)
	}
	o.logger.Debug("generation submitted", "type", t.Type, "task", t.TaskID, "state", t.State)
	return t, nil
}

// Await polls the remote service every interval until t reaches a
// terminal state. The outcome is recorded on t; the returned error only
// reports invalid arguments. If ctx ends first the task becomes
// Cancelled and the remote task is left running.
func (o *Orchestrator) Await(ctx context.Context, t *Task, timeout, interval time.Duration) error {
	if t == nil {
		return &studio.ValidationError{Field: "task", Reason: "required"}
	}
	if timeout <= 0 || interval <= 0 {
		return &studio.ValidationError{Field: "timing", Value: fmt.Sprintf("%v/%v", timeout, interval), Reason: "timeout and interval must be positive"}
	}
	if t.State.Terminal() {
		return nil
	}
	start := o.now()
	for {
		if err := ctx.Err(); err != nil {
			t.finish(Cancelled, o.now(), err)
			return nil
		}
		t.State = Polling
		st, err := o.remote.PollGeneration(ctx, t.NotebookID, t.TaskID)
		t.Polls++
		if err != nil {
			if ctx.Err() != nil {
				t.finish(Cancelled, o.now(), ctx.Err())
				return nil
			}
			t.finish(Failed, o.now(), fmt.Errorf("poll %s: %w", t.TaskID, err))
			return nil
		}
		o.logger.Debug("generation polled", "type", t.Type, "task", t.TaskID, "phase", st.Phase, "poll", t.Polls)
		switch st.Phase {
		case studio.PhaseComplete:
			t.finish(Complete, o.now(), nil)
			return nil
		case studio.PhaseFailed:
			t.finish(Failed, o.now(), &FailedError{Type: t.Type, TaskID: t.TaskID, Message: st.Message})
			return nil
		}
		if o.now().Sub(start) >= timeout {
			t.finish(TimedOut, o.now(), &TimeoutError{Type: t.Type, TaskID: t.TaskID, Timeout: timeout, Polls: t.Polls})
			return nil
		}
		if err := o.sleep(ctx, interval); err != nil {
			t.finish(Cancelled, o.now(), err)
			return nil
		}
	}
}

// Download saves the artifact of a Complete task to dest and returns the
// written path. A task can be downloaded once.
func (o *Orchestrator) Download(ctx context.Context, t *Task, dest string) (string, error) {
	if t == nil || t.State != Complete {
		state := "nil"
		if t != nil {
			state = t.State.String()
		}
		return "", &studio.ValidationError{Field: "task", Value: state, Reason: "download requires a complete task"}
	}
	if t.downloaded != "" {
		return "", fmt.Errorf("%s to %s: %w", t.Type, t.downloaded, ErrAlreadyDownloaded)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := o.remote.DownloadArtifact(ctx, t.NotebookID, t.TaskID, t.Type, dest)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", t.Type, err)
	}
	t.downloaded = path
	o.logger.Debug("artifact downloaded", "type", t.Type, "path", path)
	return path, nil
}

// Request describes a full submit, wait and download cycle.
type Request struct {
	NotebookID   string
	Params       studio.Params
	Timeout      time.Duration
	PollInterval time.Duration
	// Dest is the download path. Empty skips the download.
	Dest string
}

// Generate runs one artifact through its whole lifecycle. The task is
// returned whenever it was submitted, even if a later step failed.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Task, error) {
	t, err := o.Submit(ctx, req.NotebookID, req.Params)
	if err != nil {
		return nil, err
	}
	if err := o.Await(ctx, t, req.Timeout, req.PollInterval); err != nil {
		return t, err
	}
	if t.State != Complete {
		return t, t.Err()
	}
	if req.Dest == "" {
		return t, nil
	}
	if _, err := o.Download(ctx, t, req.Dest); err != nil {
		return t, err
	}
	return t, nil
}
