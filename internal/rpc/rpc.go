// Package rpc names the NotebookLM batchexecute endpoints and scopes
// calls to a notebook.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/nlmflow/internal/batchexecute"
)

// RPC endpoint IDs for NotebookLM services
const (
	// Notebook operations
	RPCListRecentlyViewedProjects = "wXbhsf" // ListRecentlyViewedProjects
	RPCCreateProject              = "CCqFvf" // CreateProject
	RPCGetProject                 = "rLM1Ne" // GetProject
	RPCDeleteProjects             = "WWINqb" // DeleteProjects
	RPCMutateProject              = "s0tc2d" // MutateProject

	// Source operations
	RPCAddSources   = "izAoDd" // AddSources
	RPCActOnSources = "yyryJe" // ActOnSources

	// Chat
	RPCGenerateFreeFormStreamed = "BD"     // GenerateFreeFormStreamed
	RPCGetConversationHistory   = "hPTbtc" // GetConversationHistory

	// Studio artifacts
	RPCCreateArtifact    = "xpWGLf" // CreateArtifact
	RPCGetArtifact       = "BnLyuf" // GetArtifact
	RPCListArtifacts     = "LfTXoe" // ListArtifacts
	RPCDeleteArtifact    = "WxBZtb" // DeleteArtifact
	RPCGenerateMagicView = "uK8f7c" // GenerateMagicView (mind map)
)

// Host and App identify the NotebookLM batchexecute endpoint.
const (
	Host = "notebooklm.google.com"
	App  = "LabsTailwindUi"
)

// Call represents a NotebookLM RPC call
type Call struct {
	ID         string        // RPC endpoint ID
	Args       []interface{} // Arguments for the call
	NotebookID string        // Optional notebook ID for context
}

// Client handles NotebookLM RPC communication
type Client struct {
	client *batchexecute.Client
}

// Config returns the batchexecute configuration used for NotebookLM.
func Config(authToken, cookies string) batchexecute.Config {
	return batchexecute.Config{
		Host:      Host,
		App:       App,
		AuthToken: authToken,
		Cookies:   cookies,
		Headers: map[string]string{
			"origin":          "https://" + Host,
			"referer":         "https://" + Host + "/",
			"x-same-domain":   "1",
			"accept":          "*/*",
			"accept-language": "en-US,en;q=0.9",
			"cache-control":   "no-cache",
			"pragma":          "no-cache",
		},
		URLParams: map[string]string{
			"bl": "boq_labs-tailwind-frontend_20241114.01_p0",
			"hl": "en",
		},
	}
}

// New creates a new NotebookLM RPC client
func New(authToken, cookies string, options ...batchexecute.Option) *Client {
	return NewWithConfig(Config(authToken, cookies), options...)
}

// NewWithConfig creates a client for an explicit endpoint configuration.
func NewWithConfig(config batchexecute.Config, options ...batchexecute.Option) *Client {
	return &Client{client: batchexecute.NewClient(config, options...)}
}

// SourcePath is the page a call is issued from.
func SourcePath(notebookID string) string {
	if notebookID == "" {
		return "/"
	}
	return "/notebook/" + notebookID
}

// Do executes a NotebookLM RPC call
func (c *Client) Do(ctx context.Context, call Call) (json.RawMessage, error) {
	resp, err := c.client.Do(ctx, batchexecute.RPC{
		ID:        call.ID,
		Args:      call.Args,
		Index:     "generic",
		URLParams: map[string]string{"source-path": SourcePath(call.NotebookID)},
	})
	if err != nil {
		return nil, fmt.Errorf("execute rpc %s: %w", call.ID, err)
	}
	return resp.Data, nil
}
