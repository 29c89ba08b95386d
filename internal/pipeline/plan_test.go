package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	data := `name: Physics
sources:
  - https://example.com/a
  - notes.pdf
questions:
  - What is force?
artifacts: [quiz, audio]
note: /vault
html: true
language: es
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan() error = %v", err)
	}
	want := Plan{
		Name:      "Physics",
		Sources:   []string{"https://example.com/a", "notes.pdf"},
		Questions: []string{"What is force?"},
		Artifacts: []string{"quiz", "audio"},
		Note:      "/vault",
		HTML:      true,
		Language:  "es",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadPlan() mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePlanErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown field", "name: x\nsources: [a]\nvault: y\n", "field vault not found"},
		{"missing name", "sources: [a]\n", "name is required"},
		{"missing sources", "name: x\nsources: ['  ']\n", "at least one source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlan([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParsePlan() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadPlanMissing(t *testing.T) {
	if _, err := LoadPlan(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadPlan() expected error")
	}
}
