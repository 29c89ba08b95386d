package studio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Phase is the remote service's view of a generation task.
type Phase int

const (
	PhaseInProgress Phase = iota
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInProgress:
		return "in_progress"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Status is one poll result.
type Status struct {
	Phase   Phase
	Message string
}

// Submission is the remote service's answer to a generation request.
// Synchronous types report Complete immediately.
type Submission struct {
	TaskID   string
	Complete bool
}

// Artifact is one generated artifact as listed by the remote service.
type Artifact struct {
	ID    string
	Type  Type
	Title string
	Phase Phase
}

// Download formats accepted by quiz and flashcards.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Extension returns the file extension for t downloaded in format.
// Only quiz and flashcards honor format; other types use their own
// extension.
func Extension(t Type, format string) string {
	spec, ok := Lookup(t)
	if !ok {
		return "bin"
	}
	if t == Quiz || t == Flashcards {
		switch strings.ToLower(format) {
		case FormatMarkdown, "md":
			return "md"
		case FormatHTML:
			return "html"
		}
	}
	return spec.Extension
}

// OutputPath returns the default download path for an artifact of t
// generated in notebookID.
func OutputPath(dir, notebookID string, t Type, format string) string {
	short := notebookID
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", short, t, Extension(t, format)))
}
