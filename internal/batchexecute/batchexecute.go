// Package batchexecute implements the Google batchexecute RPC protocol
// used by the NotebookLM web application.
package batchexecute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrUnauthorized represent an unauthorized request.
var ErrUnauthorized = errors.New("unauthorized")

// RPC represents a single RPC call
type RPC struct {
	ID        string            // RPC endpoint ID
	Args      []interface{}     // Arguments for the call
	Index     string            // "generic" or numeric index
	URLParams map[string]string // Request-specific URL parameters
}

// Response represents a decoded RPC response
type Response struct {
	Index int             `json:"index"`
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
}

// HTTPError reports a non-200 reply.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("batchexecute error: %s (status: %d)", e.Message, e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// Config holds the configuration for batch execute
type Config struct {
	Host      string
	App       string
	AuthToken string
	Cookies   string
	Headers   map[string]string
	URLParams map[string]string
	UseHTTP   bool

	// Retry configuration
	MaxRetries    int           // Maximum number of retry attempts (default: 3)
	RetryDelay    time.Duration // Initial delay between retries (default: 1s)
	RetryMaxDelay time.Duration // Maximum delay between retries (default: 10s)
}

// Client handles batchexecute operations
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	reqid      *ReqIDGenerator
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithReqIDGenerator sets the request ID generator
func WithReqIDGenerator(reqid *ReqIDGenerator) Option {
	return func(c *Client) {
		c.reqid = reqid
	}
}

// NewClient creates a new batchexecute client
func NewClient(config Config, opts ...Option) *Client {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 1 * time.Second
	}
	if config.RetryMaxDelay == 0 {
		config.RetryMaxDelay = 10 * time.Second
	}
	c := &Client{
		config:     config,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		reqid:      NewReqIDGenerator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	cfg := c.config
	cfg.Headers = cloneMap(c.config.Headers)
	cfg.URLParams = cloneMap(c.config.URLParams)
	return cfg
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Do executes a single RPC call
func (c *Client) Do(ctx context.Context, rpc RPC) (*Response, error) {
	return c.Execute(ctx, []RPC{rpc})
}

func buildRPCData(rpc RPC) []interface{} {
	argsJSON, _ := json.Marshal(rpc.Args)
	index := rpc.Index
	if index == "" {
		index = "generic"
	}
	return []interface{}{rpc.ID, string(argsJSON), nil, index}
}

// Execute performs the batch execute request and returns the first response.
func (c *Client) Execute(ctx context.Context, rpcs []RPC) (*Response, error) {
	if len(rpcs) == 0 {
		return nil, fmt.Errorf("no rpcs")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u := &url.URL{
		Scheme: "https",
		Host:   c.config.Host,
		Path:   fmt.Sprintf("/_/%s/data/batchexecute", c.config.App),
	}
	if c.config.UseHTTP {
		u.Scheme = "http"
	}

	ids := make([]string, len(rpcs))
	for i, r := range rpcs {
		ids[i] = r.ID
	}
	q := u.Query()
	q.Set("rpcids", strings.Join(ids, ","))
	for k, v := range c.config.URLParams {
		q.Set(k, v)
	}
	for k, v := range rpcs[0].URLParams {
		q.Set(k, v)
	}
	q.Set("_reqid", c.reqid.Next())
	u.RawQuery = q.Encode()

	var envelope []interface{}
	for _, rpc := range rpcs {
		envelope = append(envelope, buildRPCData(rpc))
	}
	reqBody, err := json.Marshal([]interface{}{envelope})
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	form := url.Values{}
	form.Set("f.req", string(reqBody))
	form.Set("at", c.config.AuthToken)
	encoded := form.Encode()

	c.logger.Debug("batchexecute request",
		"url", u.String(),
		"rpcids", q.Get("rpcids"),
		"at", maskSensitiveValue(c.config.AuthToken),
		"cookie", maskCookieValues(c.config.Cookies),
		"body", string(reqBody),
	)

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt)
			c.logger.Debug("retrying request", "attempt", attempt, "max", c.config.MaxRetries, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded;charset=UTF-8")
		for k, v := range c.config.Headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("cookie", c.config.Cookies)

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("execute request: %w", err)
			if isRetryableError(err) && attempt < c.config.MaxRetries {
				continue
			}
			return nil, lastErr
		}
		if isRetryableStatus(resp.StatusCode) && attempt < c.config.MaxRetries {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			resp = nil
			continue
		}
		break
	}
	if resp == nil {
		return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("batchexecute response", "status", resp.Status, "bytes", len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("request failed: %s", resp.Status),
		}
	}

	responses, err := decodeResponse(string(body))
	if err != nil {
		c.logger.Debug("decode failed", "err", err, "raw", string(body))
		return nil, fmt.Errorf("decode response: %w", err)
	}

	first := &responses[0]
	if apiError, isError := IsErrorResponse(first); isError {
		return nil, apiError
	}
	return first, nil
}

func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.config.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > c.config.RetryMaxDelay {
		delay = c.config.RetryMaxDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// decodeResponse decodes the batchexecute response
func decodeResponse(raw string) ([]Response, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), ")]}'"))
	if raw == "" {
		return nil, fmt.Errorf("empty response after trimming prefix")
	}
	if isDigit(rune(raw[0])) {
		return parseChunkedResponse(strings.NewReader(raw))
	}

	var envelopes [][]interface{}
	if err := json.Unmarshal([]byte(raw), &envelopes); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return extractResponses(envelopes)
}

// extractResponses picks the "wrb.fr" envelopes out of a decoded reply.
// Format: ["wrb.fr", "rpcId", "<json payload>", null, null, [code], "generic"]
func extractResponses(envelopes [][]interface{}) ([]Response, error) {
	var result []Response
	for _, rpcData := range envelopes {
		if len(rpcData) < 3 {
			continue
		}
		if kind, _ := rpcData[0].(string); kind != "wrb.fr" {
			continue
		}
		id, _ := rpcData[1].(string)
		resp := Response{ID: id}

		switch payload := rpcData[2].(type) {
		case string:
			resp.Data = json.RawMessage(payload)
		case nil:
			// Errors carry a status array at position 5 and no payload.
			if len(rpcData) > 5 && rpcData[5] != nil {
				b, _ := json.Marshal(rpcData[5])
				resp.Data = b
			}
		default:
			b, _ := json.Marshal(payload)
			resp.Data = b
		}

		if len(rpcData) > 6 {
			if indexStr, ok := rpcData[6].(string); ok && indexStr != "generic" {
				resp.Index, _ = strconv.Atoi(indexStr)
			}
		}
		result = append(result, resp)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no valid responses found")
	}
	return result, nil
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// maskSensitiveValue masks sensitive values like tokens for debug output
func maskSensitiveValue(value string) string {
	switch {
	case len(value) <= 8:
		return strings.Repeat("*", len(value))
	case len(value) <= 16:
		return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
	default:
		return value[:3] + strings.Repeat("*", len(value)-6) + value[len(value)-3:]
	}
}

// maskCookieValues masks cookie values in cookie header for debug output
func maskCookieValues(cookies string) string {
	var masked []string
	for _, part := range strings.Split(cookies, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, value, found := strings.Cut(part, "="); found {
			masked = append(masked, name+"="+maskSensitiveValue(value))
		} else {
			masked = append(masked, part)
		}
	}
	return strings.Join(masked, "; ")
}

// ReqIDGenerator generates sequential request IDs
type ReqIDGenerator struct {
	base     int // Initial 4-digit number
	sequence int // Current sequence number
	mu       sync.Mutex
}

// NewReqIDGenerator creates a new request ID generator
func NewReqIDGenerator() *ReqIDGenerator {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &ReqIDGenerator{base: r.Intn(9000) + 1000}
}

// Next returns the next request ID in sequence
func (g *ReqIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	reqid := g.base + (g.sequence * 100000)
	g.sequence++
	return strconv.Itoa(reqid)
}

// Reset resets the sequence counter but keeps the same base
func (g *ReqIDGenerator) Reset() {
	g.mu.Lock()
	g.sequence = 0
	g.mu.Unlock()
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"i/o timeout",
		"TLS handshake timeout",
		"EOF",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"temporary failure",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// isRetryableStatus checks if an HTTP status code is retryable
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
