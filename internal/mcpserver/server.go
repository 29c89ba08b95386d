// Package mcpserver exposes the notebook library and the artifact
// catalog as Model Context Protocol tools.
//
// The tools only read and update the local library; none of them
// contacts the remote service.
package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tmc/nlmflow/internal/library"
	"github.com/tmc/nlmflow/internal/studio"
)

// Notebook is a library entry as returned by the tools.
type Notebook struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	SourcesCount int      `json:"sources_count"`
	UseCount     int      `json:"use_count"`
	Tags         []string `json:"tags,omitempty"`
	Active       bool     `json:"active"`
}

func notebook(e *library.Entry, lib *library.Library) Notebook {
	return Notebook{
		ID:           e.ID,
		Name:         e.Name,
		URL:          e.URL(),
		SourcesCount: e.SourcesCount,
		UseCount:     e.UseCount,
		Tags:         e.Tags,
		Active:       lib.ActiveID == e.ID,
	}
}

type ListInput struct {
	Query string `json:"query,omitempty" jsonschema:"case-insensitive substring filter on the notebook name"`
}

type ListOutput struct {
	Notebooks []Notebook `json:"notebooks"`
}

type RefInput struct {
	Ref string `json:"ref" jsonschema:"notebook id, id prefix, notebook URL, or 'active'"`
}

type TypeInfo struct {
	Type         string              `json:"type"`
	Extension    string              `json:"extension"`
	Language     bool                `json:"language"`
	Instructions bool                `json:"instructions"`
	Synchronous  bool                `json:"synchronous"`
	Choices      map[string][]string `json:"choices,omitempty"`
	Defaults     map[string]string   `json:"defaults,omitempty"`
}

type TypesOutput struct {
	Types []TypeInfo `json:"types"`
}

type BuildInput struct {
	Type         string   `json:"type" jsonschema:"artifact type"`
	SourceIDs    []string `json:"source_ids,omitempty"`
	Language     string   `json:"language,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Format       string   `json:"format,omitempty"`
	Style        string   `json:"style,omitempty"`
	Length       string   `json:"length,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	Quantity     string   `json:"quantity,omitempty"`
}

type BuildOutput struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

type handlers struct {
	store    *library.Store
	language string
	now      func() time.Time
}

func (h *handlers) list(ctx context.Context, req *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, ListOutput, error) {
	lib, err := h.store.Load()
	if err != nil {
		return nil, ListOutput{}, err
	}
	q := strings.ToLower(strings.TrimSpace(in.Query))
	out := ListOutput{Notebooks: []Notebook{}}
	for _, e := range lib.Entries() {
		if q != "" && !strings.Contains(strings.ToLower(e.Name), q) {
			continue
		}
		out.Notebooks = append(out.Notebooks, notebook(e, lib))
	}
	return nil, out, nil
}

func (h *handlers) lookup(lib *library.Library, ref string) (*library.Entry, error) {
	id, err := library.ResolveOrActive(ref, lib)
	if err != nil {
		return nil, err
	}
	e, ok := lib.Lookup(id)
	if !ok {
		return nil, &library.NotFoundError{Ref: ref}
	}
	return e, nil
}

func (h *handlers) resolve(ctx context.Context, req *mcp.CallToolRequest, in RefInput) (*mcp.CallToolResult, Notebook, error) {
	lib, err := h.store.Load()
	if err != nil {
		return nil, Notebook{}, err
	}
	e, err := h.lookup(lib, in.Ref)
	if err != nil {
		return nil, Notebook{}, err
	}
	return nil, notebook(e, lib), nil
}

func (h *handlers) activate(ctx context.Context, req *mcp.CallToolRequest, in RefInput) (*mcp.CallToolResult, Notebook, error) {
	var out Notebook
	_, err := h.store.Update(func(lib *library.Library) error {
		e, err := h.lookup(lib, in.Ref)
		if err != nil {
			return err
		}
		if err := lib.Activate(e.ID, h.now()); err != nil {
			return err
		}
		out = notebook(e, lib)
		return nil
	})
	if err != nil {
		return nil, Notebook{}, err
	}
	return nil, out, nil
}

func (h *handlers) types(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, TypesOutput, error) {
	var out TypesOutput
	for _, s := range studio.Catalog() {
		info := TypeInfo{
			Type:         string(s.Type),
			Extension:    s.Extension,
			Language:     s.AcceptsLanguage,
			Instructions: s.AcceptsInstructions,
			Synchronous:  s.Synchronous,
		}
		for _, c := range s.Choices {
			if info.Choices == nil {
				info.Choices = make(map[string][]string)
				info.Defaults = make(map[string]string)
			}
			info.Choices[c.Name] = c.Values
			info.Defaults[c.Name] = c.Default
		}
		out.Types = append(out.Types, info)
	}
	return nil, out, nil
}

func (h *handlers) build(ctx context.Context, req *mcp.CallToolRequest, in BuildInput) (*mcp.CallToolResult, BuildOutput, error) {
	t, err := studio.ParseType(in.Type)
	if err != nil {
		return nil, BuildOutput{}, err
	}
	lang := in.Language
	if lang == "" {
		lang = h.language
	}
	p, err := studio.Build(t, studio.Options{
		SourceIDs:    in.SourceIDs,
		Language:     lang,
		Instructions: in.Instructions,
		Format:       in.Format,
		Style:        in.Style,
		Length:       in.Length,
		Difficulty:   in.Difficulty,
		Quantity:     in.Quantity,
	})
	if err != nil {
		return nil, BuildOutput{}, err
	}
	return nil, BuildOutput{Type: string(t), Parameters: p.Values()}, nil
}

// NewServer returns an MCP server with the library and catalog tools
// registered. language is the default output language for build_parameters.
func NewServer(store *library.Store, language, version string) *mcp.Server {
	h := &handlers{store: store, language: language, now: time.Now}
	s := mcp.NewServer(&mcp.Implementation{Name: "nlmflow", Version: version}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_notebooks",
		Description: "List cached notebooks ordered by name.",
	}, h.list)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "resolve_notebook",
		Description: "Resolve a notebook id prefix, URL or 'active' to a cached notebook.",
	}, h.resolve)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "activate_notebook",
		Description: "Make a cached notebook the active one.",
	}, h.activate)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "artifact_types",
		Description: "Describe the artifact types that can be generated and their options.",
	}, h.types)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "build_parameters",
		Description: "Show the parameters a generation request for a type would send.",
	}, h.build)
	return s
}

// Run serves the tools over stdin and stdout until ctx ends or the
// client disconnects.
func Run(ctx context.Context, store *library.Store, language, version string) error {
	if err := NewServer(store, language, version).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
