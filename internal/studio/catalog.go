// Package studio describes the artifact types the remote studio can
// generate and shapes the parameters each of them accepts.
package studio

import (
	"fmt"
	"slices"
	"strings"
)

// Type names an artifact type.
type Type string

const (
	Audio       Type = "audio"
	Video       Type = "video"
	Quiz        Type = "quiz"
	Flashcards  Type = "flashcards"
	Report      Type = "report"
	SlideDeck   Type = "slide_deck"
	Infographic Type = "infographic"
	DataTable   Type = "data_table"
	MindMap     Type = "mind_map"
)

// Choice is a named option with a closed domain and a default.
type Choice struct {
	Name    string
	Values  []string
	Default string
}

// Pick returns v when it is in the domain and the default otherwise.
func (c Choice) Pick(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if slices.Contains(c.Values, v) {
		return v
	}
	return c.Default
}

// Spec is the static description of one artifact type.
type Spec struct {
	Type                Type
	AcceptsLanguage     bool
	AcceptsInstructions bool
	Extension           string
	Choices             []Choice
	// Synchronous types complete in the submitting call.
	Synchronous bool
}

// Choice returns the named choice declared by the type.
func (s Spec) Choice(name string) (Choice, bool) {
	for _, c := range s.Choices {
		if c.Name == name {
			return c, true
		}
	}
	return Choice{}, false
}

var (
	difficulty = Choice{"difficulty", []string{"easy", "medium", "hard"}, "medium"}
	quantity   = Choice{"quantity", []string{"fewer", "standard"}, "standard"}
)

var catalog = []Spec{
	{
		Type: Audio, AcceptsLanguage: true, AcceptsInstructions: true, Extension: "mp3",
		Choices: []Choice{
			{"format", []string{"deep_dive", "brief", "critique", "debate"}, "deep_dive"},
			{"length", []string{"short", "default", "long"}, "default"},
		},
	},
	{
		Type: Video, AcceptsLanguage: true, AcceptsInstructions: true, Extension: "mp4",
		Choices: []Choice{
			{"format", []string{"explainer", "brief"}, "explainer"},
			{"style", []string{"auto", "classic", "whiteboard", "kawaii", "anime", "watercolor"}, "auto"},
		},
	},
	{Type: Quiz, AcceptsInstructions: true, Extension: "json", Choices: []Choice{difficulty, quantity}},
	{Type: Flashcards, AcceptsInstructions: true, Extension: "json", Choices: []Choice{difficulty, quantity}},
	{
		// Instructions travel as customPrompt.
		Type: Report, AcceptsLanguage: true, AcceptsInstructions: true, Extension: "md",
		Choices: []Choice{
			{"format", []string{"briefing", "study_guide", "blog", "custom"}, "study_guide"},
		},
	},
	{
		Type: SlideDeck, AcceptsLanguage: true, AcceptsInstructions: true, Extension: "pdf",
		Choices: []Choice{
			{"format", []string{"detailed_deck", "presenter_slides"}, "detailed_deck"},
			{"length", []string{"default", "short"}, "default"},
		},
	},
	{
		Type: Infographic, AcceptsLanguage: true, AcceptsInstructions: true, Extension: "png",
		Choices: []Choice{
			{"orientation", []string{"landscape", "portrait", "square"}, "landscape"},
			{"detail", []string{"concise", "standard", "detailed"}, "standard"},
		},
	},
	{Type: DataTable, AcceptsLanguage: true, AcceptsInstructions: true, Extension: "csv"},
	{Type: MindMap, Extension: "json", Synchronous: true},
}

// Catalog returns the specs of every supported artifact type.
func Catalog() []Spec {
	return slices.Clone(catalog)
}

// Types returns the supported artifact type names.
func Types() []Type {
	out := make([]Type, len(catalog))
	for i, s := range catalog {
		out[i] = s.Type
	}
	return out
}

// Lookup returns the spec for t.
func Lookup(t Type) (Spec, bool) {
	for _, s := range catalog {
		if s.Type == t {
			return s, true
		}
	}
	return Spec{}, false
}

// ParseType maps a user-supplied name to a Type. Dashes are accepted in
// place of underscores.
func ParseType(s string) (Type, error) {
	t := Type(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, ok := Lookup(t); !ok {
		return "", &ValidationError{Field: "type", Value: s, Reason: fmt.Sprintf("unknown artifact type (want one of %s)", joinTypes())}
	}
	return t, nil
}

func joinTypes() string {
	names := make([]string, 0, len(catalog))
	for _, t := range Types() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
