package studio

import (
	"slices"
	"strings"
)

// Options is the generic option set a caller may supply for any type.
// Build keeps only the fields the requested type declares.
type Options struct {
	SourceIDs    []string
	Language     string
	Instructions string

	Format     string
	Style      string
	Length     string
	Difficulty string
	Quantity   string
}

// Params is the type-specific parameter set for one generation request.
// The concrete types below are the only implementations.
type Params interface {
	Type() Type
	// Values returns the parameters keyed by their schema names, omitting
	// optional fields that are unset.
	Values() map[string]any
	params()
}

type AudioParams struct {
	SourceIDs    []string
	Language     string
	Instructions string
	Format       string
	Length       string
}

type VideoParams struct {
	SourceIDs    []string
	Language     string
	Instructions string
	Format       string
	Style        string
}

type QuizParams struct {
	SourceIDs    []string
	Instructions string
	Difficulty   string
	Quantity     string
}

type FlashcardsParams struct {
	SourceIDs    []string
	Instructions string
	Difficulty   string
	Quantity     string
}

type ReportParams struct {
	SourceIDs    []string
	Language     string
	CustomPrompt string
	Format       string
}

type SlideDeckParams struct {
	SourceIDs    []string
	Language     string
	Instructions string
	Format       string
	Length       string
}

type InfographicParams struct {
	SourceIDs    []string
	Language     string
	Instructions string
	Orientation  string
	Detail       string
}

type DataTableParams struct {
	SourceIDs    []string
	Language     string
	Instructions string
}

type MindMapParams struct {
	SourceIDs []string
}

// Build shapes o into the parameter set for t. Options the type does not
// declare are dropped, and unrecognized choices fall back to the type's
// default. The only error is an unknown type.
func Build(t Type, o Options) (Params, error) {
	spec, ok := Lookup(t)
	if !ok {
		return nil, &ValidationError{Field: "type", Value: string(t), Reason: "unknown artifact type"}
	}
	pick := func(name, v string) string {
		c, _ := spec.Choice(name)
		return c.Pick(v)
	}
	ids := cleanIDs(o.SourceIDs)
	lang := strings.TrimSpace(o.Language)
	instr := strings.TrimSpace(o.Instructions)

	switch t {
	case Audio:
		return AudioParams{ids, lang, instr, pick("format", o.Format), pick("length", o.Length)}, nil
	case Video:
		return VideoParams{ids, lang, instr, pick("format", o.Format), pick("style", o.Style)}, nil
	case Quiz:
		return QuizParams{ids, instr, pick("difficulty", o.Difficulty), pick("quantity", o.Quantity)}, nil
	case Flashcards:
		return FlashcardsParams{ids, instr, pick("difficulty", o.Difficulty), pick("quantity", o.Quantity)}, nil
	case Report:
		return ReportParams{ids, lang, instr, pick("format", o.Format)}, nil
	case SlideDeck:
		return SlideDeckParams{ids, lang, instr, pick("format", o.Format), pick("length", o.Length)}, nil
	case Infographic:
		return InfographicParams{ids, lang, instr, pick("orientation", o.Format), pick("detail", o.Style)}, nil
	case DataTable:
		return DataTableParams{ids, lang, instr}, nil
	case MindMap:
		return MindMapParams{ids}, nil
	}
	return nil, &ValidationError{Field: "type", Value: string(t), Reason: "unknown artifact type"}
}

// Keys returns every parameter name the type may emit.
func (s Spec) Keys() []string {
	keys := []string{"sourceIds"}
	if s.AcceptsLanguage {
		keys = append(keys, "language")
	}
	if s.AcceptsInstructions {
		if s.Type == Report {
			keys = append(keys, "customPrompt")
		} else {
			keys = append(keys, "instructions")
		}
	}
	for _, c := range s.Choices {
		keys = append(keys, c.Name)
	}
	return keys
}

func cleanIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

type values map[string]any

func (v values) opt(key, s string) values {
	if s != "" {
		v[key] = s
	}
	return v
}

func (v values) ids(ids []string) values {
	if len(ids) > 0 {
		v["sourceIds"] = slices.Clone(ids)
	}
	return v
}

func (AudioParams) Type() Type       { return Audio }
func (VideoParams) Type() Type       { return Video }
func (QuizParams) Type() Type        { return Quiz }
func (FlashcardsParams) Type() Type  { return Flashcards }
func (ReportParams) Type() Type      { return Report }
func (SlideDeckParams) Type() Type   { return SlideDeck }
func (InfographicParams) Type() Type { return Infographic }
func (DataTableParams) Type() Type   { return DataTable }
func (MindMapParams) Type() Type     { return MindMap }

func (AudioParams) params()       {}
func (VideoParams) params()       {}
func (QuizParams) params()        {}
func (FlashcardsParams) params()  {}
func (ReportParams) params()      {}
func (SlideDeckParams) params()   {}
func (InfographicParams) params() {}
func (DataTableParams) params()   {}
func (MindMapParams) params()     {}

func (p AudioParams) Values() map[string]any {
	return values{"format": p.Format, "length": p.Length}.
		ids(p.SourceIDs).opt("language", p.Language).opt("instructions", p.Instructions)
}

func (p VideoParams) Values() map[string]any {
	return values{"format": p.Format, "style": p.Style}.
		ids(p.SourceIDs).opt("language", p.Language).opt("instructions", p.Instructions)
}

func (p QuizParams) Values() map[string]any {
	return values{"difficulty": p.Difficulty, "quantity": p.Quantity}.
		ids(p.SourceIDs).opt("instructions", p.Instructions)
}

func (p FlashcardsParams) Values() map[string]any {
	return values{"difficulty": p.Difficulty, "quantity": p.Quantity}.
		ids(p.SourceIDs).opt("instructions", p.Instructions)
}

func (p ReportParams) Values() map[string]any {
	return values{"format": p.Format}.
		ids(p.SourceIDs).opt("language", p.Language).opt("customPrompt", p.CustomPrompt)
}

func (p SlideDeckParams) Values() map[string]any {
	return values{"format": p.Format, "length": p.Length}.
		ids(p.SourceIDs).opt("language", p.Language).opt("instructions", p.Instructions)
}

func (p InfographicParams) Values() map[string]any {
	return values{"orientation": p.Orientation, "detail": p.Detail}.
		ids(p.SourceIDs).opt("language", p.Language).opt("instructions", p.Instructions)
}

func (p DataTableParams) Values() map[string]any {
	return values{}.ids(p.SourceIDs).opt("language", p.Language).opt("instructions", p.Instructions)
}

func (p MindMapParams) Values() map[string]any {
	return values{}.ids(p.SourceIDs)
}

// SourceIDs returns the source restriction of p, if any.
func SourceIDs(p Params) []string {
	if ids, ok := p.Values()["sourceIds"].([]string); ok {
		return ids
	}
	return nil
}
