package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/tmc/nlmflow/internal/batchexecute"
	"github.com/tmc/nlmflow/internal/rpc"
)

// Client handles NotebookLM API interactions.
type Client struct {
	rpc        *rpc.Client
	httpClient *http.Client
	cookies    string
	logger     *slog.Logger
	debug      bool

	host    string
	useHTTP bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for RPCs and downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDebug dumps payloads that fail to parse.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithHost points the client at another batchexecute host. useHTTP
// selects plain HTTP, for local test servers.
func WithHost(host string, useHTTP bool) Option {
	return func(c *Client) {
		c.host = host
		c.useHTTP = useHTTP
	}
}

// New creates a new NotebookLM API client.
func New(authToken, cookies string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		cookies:    cookies,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		host:       rpc.Host,
	}
	for _, opt := range opts {
		opt(c)
	}
	cfg := rpc.Config(authToken, cookies)
	cfg.Host = c.host
	cfg.UseHTTP = c.useHTTP
	c.rpc = rpc.NewWithConfig(cfg,
		batchexecute.WithHTTPClient(c.httpClient),
		batchexecute.WithLogger(c.logger),
	)
	return c
}

func (c *Client) call(ctx context.Context, op string, call rpc.Call) (json.RawMessage, error) {
	resp, err := c.rpc.Do(ctx, call)
	if err != nil {
		return nil, remoteErr(op, err)
	}
	return resp, nil
}

// dump logs a payload the client could not make sense of.
func (c *Client) dump(op string, v interface{}) {
	if !c.debug {
		return
	}
	c.logger.Debug("unexpected response", "op", op, "payload", spew.Sdump(v))
}
