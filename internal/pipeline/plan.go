package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan describes one pipeline run.
type Plan struct {
	Name      string   `yaml:"name"`
	Sources   []string `yaml:"sources"`
	Questions []string `yaml:"questions,omitempty"`
	Artifacts []string `yaml:"artifacts,omitempty"`
	// Note is the vault directory for the run note. Empty skips the note.
	Note string `yaml:"note,omitempty"`
	// HTML also renders the note as HTML.
	HTML bool `yaml:"html,omitempty"`
	// Language overrides the configured output language.
	Language string `yaml:"language,omitempty"`
	// Instructions are passed to every artifact type that accepts them.
	Instructions string `yaml:"instructions,omitempty"`
}

// LoadPlan reads a YAML plan file.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a YAML plan, rejecting unknown fields.
func ParsePlan(data []byte) (Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return p, p.Validate()
}

// Validate checks that the plan names a notebook and at least one source.
func (p Plan) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(nonEmpty(p.Sources)) == 0 {
		errs = append(errs, errors.New("at least one source is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid plan: %w", errors.Join(errs...))
	}
	return nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
