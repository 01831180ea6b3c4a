// Package remote talks to the fruit log backend: a thin REST client plus the
// Controller that loads the log collection from a backend which may be asleep.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fruity/internal/logging"
	"fruity/internal/types"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	logsPath        = "/api/logs"
	maxResponseSize = 16 << 20
	defaultTimeout  = 15 * time.Second
)

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(NormalizeBaseURL(raw))
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid API URL %q: missing host", raw)
	}
	return nil
}

// Client issues single requests against the REST contract. It never retries;
// retry policy belongs to the Controller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *Metrics
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithClientMetrics records per-request metrics.
func WithClientMetrics(m *Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    NormalizeBaseURL(baseURL),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchLogs performs GET {base}/api/logs and returns the hydrated collection.
func (c *Client) FetchLogs(ctx context.Context) ([]types.LogEntry, error) {
	start := time.Now()
	body, err := c.do(ctx, http.MethodGet, c.baseURL+logsPath, nil)
	if err != nil {
		c.metrics.observeFetch(fetchOutcome(err), time.Since(start))
		return nil, err
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsArray() {
		c.metrics.observeFetch("malformed", time.Since(start))
		return nil, fmt.Errorf("GET %s: %w: expected a JSON array", c.baseURL+logsPath, ErrMalformedResponse)
	}

	var logs []types.LogEntry
	if err := json.Unmarshal(body, &logs); err != nil {
		c.metrics.observeFetch("malformed", time.Since(start))
		return nil, fmt.Errorf("GET %s: %w: %v", c.baseURL+logsPath, ErrMalformedResponse, err)
	}
	c.metrics.observeFetch("success", time.Since(start))
	return types.HydrateAll(logs), nil
}

// CreateLog performs POST {base}/api/logs. The backend echoes the stored
// entry; an empty 2xx body yields a zero LogEntry.
func (c *Client) CreateLog(ctx context.Context, entry types.NewLogEntry) (types.LogEntry, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return types.LogEntry{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+logsPath, payload)
	if err != nil {
		c.metrics.observeMutation("create", err)
		return types.LogEntry{}, err
	}
	c.metrics.observeMutation("create", nil)

	var created types.LogEntry
	if gjson.ValidBytes(body) && gjson.ParseBytes(body).IsObject() {
		if err := json.Unmarshal(body, &created); err != nil {
			return types.LogEntry{}, fmt.Errorf("failed to parse created entry: %w", err)
		}
		created.Hydrate()
	}
	return created, nil
}

// DeleteLog performs DELETE {base}/api/logs/{id}.
func (c *Client) DeleteLog(ctx context.Context, id types.LogID) error {
	if id == "" {
		return fmt.Errorf("log id required")
	}
	_, err := c.do(ctx, http.MethodDelete, c.baseURL+logsPath+"/"+url.PathEscape(string(id)), nil)
	c.metrics.observeMutation("delete", err)
	return err
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	reqID := uuid.NewString()
	log := logging.WithRequestID(logging.CategoryAPI, reqID, "method", method)

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug("%s %s", method, target)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("%s %s failed after %v: %v", method, target, time.Since(start), err)
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, URL: target, Code: resp.StatusCode}
		if gjson.ValidBytes(body) {
			se.Message = gjson.GetBytes(body, "error").String()
		}
		log.Warn("%s %s -> %d in %v", method, target, resp.StatusCode, time.Since(start))
		return nil, se
	}

	log.Debug("%s %s -> %d in %v (%d bytes)", method, target, resp.StatusCode, time.Since(start), len(body))
	return body, nil
}
