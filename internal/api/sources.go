package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/nlmflow/internal/rpc"
	"github.com/tmc/nlmflow/internal/sources"
)

// Source is a source attached to a notebook.
type Source struct {
	ID    string
	Title string
}

// youTubeSourceType is the numeric source type the service expects for videos.
const youTubeSourceType = 4

// parseSource decodes [["id"], title, ...].
func parseSource(raw interface{}) (Source, bool) {
	v, _ := raw.([]interface{})
	s := Source{ID: firstString(at(v, 0)), Title: stringAt(v, 1)}
	return s, s.ID != ""
}

// ListSources lists the sources of a notebook.
func (c *Client) ListSources(ctx context.Context, notebookID string) ([]Source, error) {
	n, err := c.GetNotebook(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	return n.Sources, nil
}

// AddSource attaches src to a notebook and returns the new source id.
// The payload is chosen by the detected kind.
func (c *Client) AddSource(ctx context.Context, notebookID string, src sources.Source) (string, error) {
	var payload []interface{}
	switch src.Kind {
	case sources.Video:
		payload = []interface{}{nil, nil, src.ID, nil, youTubeSourceType}
	case sources.Drive, sources.Link:
		payload = []interface{}{nil, nil, []string{src.Value}}
	case sources.File:
		p, err := filePayload(src.Value)
		if err != nil {
			return "", err
		}
		payload = p
	default:
		title := src.Title
		if title == "" {
			title = sources.TextTitle(src.Value)
		}
		payload = textPayload(title, src.Value)
	}

	resp, err := c.call(ctx, "add "+src.Kind.String()+" source", rpc.Call{
		ID:         rpc.RPCAddSources,
		NotebookID: notebookID,
		Args:       []interface{}{[]interface{}{payload}, notebookID},
	})
	if err != nil {
		return "", err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return "", remoteErr("add source", err)
	}
	id := firstString(data)
	if id == "" {
		c.dump("add source", data)
		return "", remoteErr("add source", fmt.Errorf("no source id in response"))
	}
	return id, nil
}

func textPayload(title, content string) []interface{} {
	return []interface{}{nil, []string{title, content}, nil, 2}
}

// filePayload reads a local file. Text-like content is sent as a text
// source; anything else is sent base64 encoded with its MIME type.
func filePayload(path string) ([]interface{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	name := filepath.Base(path)
	ct := detectMIMEType(content, name)
	if strings.HasPrefix(ct, "text/") || ct == "application/json" {
		return textPayload(name, string(content)), nil
	}
	return []interface{}{base64.StdEncoding.EncodeToString(content), name, ct, "base64"}, nil
}

func detectMIMEType(content []byte, filename string) string {
	trimmed := bytes.TrimSpace(content)
	if bytes.HasPrefix(trimmed, []byte("{")) || bytes.HasPrefix(trimmed, []byte("[")) {
		return "application/json"
	}
	detected := http.DetectContentType(content)
	if detected != "application/octet-stream" && !strings.HasPrefix(detected, "text/plain") {
		return detected
	}
	if ext := filepath.Ext(filename); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return detected
}
