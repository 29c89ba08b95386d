package api

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/nlmflow/internal/library"
	"github.com/tmc/nlmflow/internal/rpc"
)

// Notebook is a notebook as the remote service lists it.
type Notebook struct {
	ID    string
	Title string
	Emoji string
	// SourcesCount is 0 when the listing omits the sources.
	SourcesCount int
	Sources      []Source
	CreatedAt    time.Time
}

// Entry converts n into a cache entry observed at now.
func (n Notebook) Entry(now time.Time) library.Entry {
	return library.NewEntry(n.ID, n.Title, n.SourcesCount, now)
}

// Entries converts a listing into cache entries.
func Entries(nbs []Notebook, now time.Time) []library.Entry {
	out := make([]library.Entry, 0, len(nbs))
	for _, n := range nbs {
		out = append(out, n.Entry(now))
	}
	return out
}

// parseProject decodes [title, [sources...], id, emoji, null, [created...]].
func parseProject(v []interface{}) (Notebook, bool) {
	n := Notebook{
		Title: stringAt(v, 0),
		ID:    stringAt(v, 2),
		Emoji: stringAt(v, 3),
	}
	if n.ID == "" {
		return n, false
	}
	for _, raw := range arrayAt(v, 1) {
		if src, ok := parseSource(raw); ok {
			n.Sources = append(n.Sources, src)
		}
	}
	n.SourcesCount = len(n.Sources)
	if ts, ok := timestampAt(arrayAt(v, 5), 0); ok {
		n.CreatedAt = ts
	}
	return n, true
}

// ListNotebooks returns the notebooks of the signed-in account.
func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	resp, err := c.call(ctx, "list notebooks", rpc.Call{
		ID:   rpc.RPCListRecentlyViewedProjects,
		Args: []interface{}{nil, 1, nil, []int{2}},
	})
	if err != nil {
		return nil, err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return nil, remoteErr("list notebooks", err)
	}
	// A bare status such as [16] is an empty account.
	if _, isCode := intAt(data, 0); isCode {
		return []Notebook{}, nil
	}
	notebooks := []Notebook{}
	seen := make(map[string]bool)
	for _, raw := range arrayAt(data, 0) {
		p, _ := raw.([]interface{})
		n, ok := parseProject(p)
		if !ok {
			c.dump("list notebooks", raw)
			continue
		}
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		notebooks = append(notebooks, n)
	}
	return notebooks, nil
}

// Listing adapts ListNotebooks to library.Store.Sync.
func (c *Client) Listing(now func() time.Time) library.ListFunc {
	return func(ctx context.Context) ([]library.Entry, error) {
		nbs, err := c.ListNotebooks(ctx)
		if err != nil {
			return nil, err
		}
		return Entries(nbs, now()), nil
	}
}

// CreateNotebook creates an empty notebook named title.
func (c *Client) CreateNotebook(ctx context.Context, title string) (Notebook, error) {
	if title == "" {
		return Notebook{}, fmt.Errorf("create notebook: title required")
	}
	resp, err := c.call(ctx, "create notebook", rpc.Call{
		ID:   rpc.RPCCreateProject,
		Args: []interface{}{title, ""},
	})
	if err != nil {
		return Notebook{}, err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return Notebook{}, remoteErr("create notebook", err)
	}
	n, ok := parseProject(data)
	if !ok {
		c.dump("create notebook", data)
		return Notebook{}, remoteErr("create notebook", fmt.Errorf("no notebook id in response"))
	}
	if n.Title == "" {
		n.Title = title
	}
	return n, nil
}

// GetNotebook fetches one notebook with its sources.
func (c *Client) GetNotebook(ctx context.Context, id string) (Notebook, error) {
	resp, err := c.call(ctx, "get notebook", rpc.Call{
		ID:         rpc.RPCGetProject,
		Args:       []interface{}{id, nil, []int{2}},
		NotebookID: id,
	})
	if err != nil {
		return Notebook{}, err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return Notebook{}, remoteErr("get notebook", err)
	}
	n, ok := parseProject(arrayAt(data, 0))
	if !ok {
		return Notebook{}, &NotFoundError{ResourceType: "notebook", ID: id}
	}
	return n, nil
}

// DeleteNotebook deletes the notebook id.
func (c *Client) DeleteNotebook(ctx context.Context, id string) error {
	_, err := c.call(ctx, "delete notebook", rpc.Call{
		ID:   rpc.RPCDeleteProjects,
		Args: []interface{}{[]string{id}, []int{2}},
	})
	return err
}
