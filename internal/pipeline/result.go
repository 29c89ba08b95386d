package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/nlmflow/internal/notes"
)

// ErrPartialFailure is matched by every PartialFailureError.
var ErrPartialFailure = errors.New("partial failure")

// Stage names.
const (
	StageLibrary   = "library"
	StageSources   = "sources"
	StageQuestions = "questions"
	StageArtifacts = "artifacts"
	StageNote      = "note"
)

// ItemError is the failure of one item in a batch stage.
type ItemError struct {
	Item string
	Err  error
}

// PartialFailureError reports the failed items of a stage whose other
// items were still attempted.
type PartialFailureError struct {
	Stage    string
	OK       int
	Failures []ItemError
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Item, f.Err)
	}
	return fmt.Sprintf("%s: %d of %d failed: %s", e.Stage, len(e.Failures), e.OK+len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes ErrPartialFailure and the item errors.
func (e *PartialFailureError) Unwrap() []error {
	errs := []error{ErrPartialFailure}
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Count is the outcome tally of one stage.
type Count struct {
	OK     int
	Failed int
}

func (c Count) String() string {
	return fmt.Sprintf("%d ok, %d failed", c.OK, c.Failed)
}

// Result summarizes a pipeline run.
type Result struct {
	RunID        string
	NotebookID   string
	NotebookName string

	Sources   Count
	Questions Count
	Artifacts Count

	Pairs     []notes.QA
	Downloads []string
	// Skipped lists requested artifact types that are not in the catalog.
	Skipped  []string
	NotePath string

	// Failures holds one error per stage that had failures.
	Failures []*PartialFailureError
}

// Err joins the stage failures, or returns nil for a clean run.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// stage collects item outcomes for one stage.
type stage struct {
	name     string
	count    *Count
	failures []ItemError
}

func (s *stage) ok() { s.count.OK++ }

func (s *stage) fail(item string, err error) {
	s.count.Failed++
	s.failures = append(s.failures, ItemError{Item: item, Err: err})
}

// close records the stage error on r when any item failed.
func (s *stage) close(r *Result) {
	if len(s.failures) == 0 {
		return
	}
	r.Failures = append(r.Failures, &PartialFailureError{Stage: s.name, OK: s.count.OK, Failures: s.failures})
}
