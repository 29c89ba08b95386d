package api

import (
	"context"
	"fmt"

	"github.com/tmc/nlmflow/internal/rpc"
	"github.com/tmc/nlmflow/internal/studio"
)

// Artifact type codes on the wire.
var artifactCodes = map[studio.Type]int{
	studio.Audio:       1,
	studio.Report:      2,
	studio.Video:       3,
	studio.Quiz:        4,
	studio.MindMap:     5,
	studio.Flashcards:  6,
	studio.Infographic: 7,
	studio.SlideDeck:   8,
	studio.DataTable:   9,
}

// Artifact status codes on the wire.
const (
	statusInProgress = 1
	statusComplete   = 3
	statusFailed     = 4
)

func artifactType(code int) studio.Type {
	for t, c := range artifactCodes {
		if c == code {
			return t
		}
	}
	return ""
}

func phase(code int) studio.Phase {
	switch code {
	case statusComplete:
		return studio.PhaseComplete
	case statusFailed:
		return studio.PhaseFailed
	}
	return studio.PhaseInProgress
}

// artifactOptions lays out p positionally in the order of the type's
// schema keys, omitting sourceIds which travel separately.
func artifactOptions(p studio.Params) []interface{} {
	spec, _ := studio.Lookup(p.Type())
	vals := p.Values()
	var opts []interface{}
	for _, k := range spec.Keys() {
		if k == "sourceIds" {
			continue
		}
		opts = append(opts, vals[k])
	}
	return opts
}

// artifact is the decoded form of
// [id, title, typeCode, [[["sourceId"]]...], statusCode, message, downloadURL, inlineContent].
type artifact struct {
	studio.Artifact
	Message string
	URL     string
	Content string
}

func parseArtifact(v []interface{}) (artifact, bool) {
	a := artifact{
		Artifact: studio.Artifact{
			ID:    stringAt(v, 0),
			Title: stringAt(v, 1),
		},
		Message: stringAt(v, 5),
		URL:     stringAt(v, 6),
		Content: stringAt(v, 7),
	}
	if code, ok := intAt(v, 2); ok {
		a.Type = artifactType(code)
	}
	code, _ := intAt(v, 4)
	a.Phase = phase(code)
	return a, a.ID != ""
}

// SubmitGeneration starts generating the artifact described by p. Mind
// maps are generated synchronously and come back complete.
func (c *Client) SubmitGeneration(ctx context.Context, notebookID string, p studio.Params) (studio.Submission, error) {
	if p.Type() == studio.MindMap {
		return c.generateMindMap(ctx, notebookID, studio.SourceIDs(p))
	}
	code, ok := artifactCodes[p.Type()]
	if !ok {
		return studio.Submission{}, fmt.Errorf("submit generation: unsupported type %q", p.Type())
	}
	resp, err := c.call(ctx, "submit "+string(p.Type()), rpc.Call{
		ID:         rpc.RPCCreateArtifact,
		NotebookID: notebookID,
		Args: []interface{}{
			[]int{2},
			notebookID,
			[]interface{}{nil, nil, code, sourceRefs(studio.SourceIDs(p)), artifactOptions(p)},
		},
	})
	if err != nil {
		return studio.Submission{}, err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return studio.Submission{}, remoteErr("submit generation", err)
	}
	a, ok := parseArtifact(arrayAt(data, 0))
	if !ok {
		c.dump("submit generation", data)
		return studio.Submission{}, remoteErr("submit generation", fmt.Errorf("no artifact id in response"))
	}
	if a.Phase == studio.PhaseFailed {
		return studio.Submission{}, remoteErr("submit generation", fmt.Errorf("rejected: %s", a.Message))
	}
	return studio.Submission{TaskID: a.ID, Complete: a.Phase == studio.PhaseComplete}, nil
}

func (c *Client) generateMindMap(ctx context.Context, notebookID string, sourceIDs []string) (studio.Submission, error) {
	if sourceIDs == nil {
		sourceIDs = []string{}
	}
	resp, err := c.call(ctx, "generate mind map", rpc.Call{
		ID:         rpc.RPCGenerateMagicView,
		NotebookID: notebookID,
		Args:       []interface{}{notebookID, sourceIDs},
	})
	if err != nil {
		return studio.Submission{}, err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return studio.Submission{}, remoteErr("generate mind map", err)
	}
	id := firstString(data)
	if id == "" {
		c.dump("generate mind map", data)
		return studio.Submission{}, remoteErr("generate mind map", fmt.Errorf("no artifact id in response"))
	}
	return studio.Submission{TaskID: id, Complete: true}, nil
}

func (c *Client) getArtifact(ctx context.Context, notebookID, id string, format string) (artifact, error) {
	args := []interface{}{id}
	if format != "" && format != studio.FormatJSON {
		args = append(args, format)
	}
	resp, err := c.call(ctx, "get artifact", rpc.Call{
		ID:         rpc.RPCGetArtifact,
		NotebookID: notebookID,
		Args:       args,
	})
	if err != nil {
		return artifact{}, err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return artifact{}, remoteErr("get artifact", err)
	}
	a, ok := parseArtifact(arrayAt(data, 0))
	if !ok {
		return artifact{}, &NotFoundError{ResourceType: "artifact", ID: id}
	}
	return a, nil
}

// PollGeneration reports the state of a generation task.
func (c *Client) PollGeneration(ctx context.Context, notebookID, taskID string) (studio.Status, error) {
	a, err := c.getArtifact(ctx, notebookID, taskID, "")
	if err != nil {
		return studio.Status{}, err
	}
	return studio.Status{Phase: a.Phase, Message: a.Message}, nil
}

// ListArtifacts lists every artifact of a notebook, following page tokens.
func (c *Client) ListArtifacts(ctx context.Context, notebookID string) ([]studio.Artifact, error) {
	const pageSize = 50
	var (
		out   []studio.Artifact
		token string
	)
	for page := 0; page < 100; page++ {
		resp, err := c.call(ctx, "list artifacts", rpc.Call{
			ID:         rpc.RPCListArtifacts,
			NotebookID: notebookID,
			Args:       []interface{}{notebookID, pageSize, token},
		})
		if err != nil {
			return nil, err
		}
		data, err := decodeArray(resp)
		if err != nil {
			return nil, remoteErr("list artifacts", err)
		}
		for _, raw := range arrayAt(data, 0) {
			v, _ := raw.([]interface{})
			if a, ok := parseArtifact(v); ok {
				out = append(out, a.Artifact)
			}
		}
		token = stringAt(data, 1)
		if token == "" {
			break
		}
	}
	return out, nil
}

// DeleteArtifact deletes a generated artifact.
func (c *Client) DeleteArtifact(ctx context.Context, notebookID, id string) error {
	_, err := c.call(ctx, "delete artifact", rpc.Call{
		ID:         rpc.RPCDeleteArtifact,
		NotebookID: notebookID,
		Args:       []interface{}{[]int{2}, id},
	})
	return err
}
