package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/roach88/mops/internal/record"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 4 << 10

// Client is a typed client for the Remote Service collection API.
//
// Client instances are safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
	requestID  func() string
	lists      singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit limits the client to rps requests per second with the given
// burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRequestIDs overrides the request id generator (tests).
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) { c.requestID = gen }
}

// NewClient creates a client for the service at baseURL, e.g.
// "http://localhost:8080". An empty baseURL yields a client whose every call
// fails with ErrNoRemote.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        slog.Default(),
		requestID:  newRequestID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List fetches a whole collection. Concurrent List calls for the same key
// share one request. The shared request is detached from every caller's
// context; a caller whose ctx ends stops waiting without failing the others.
//
// A shared request may have started before the caller's latest write. Use
// ListFresh when the result must reflect such a write.
func (c *Client) List(ctx context.Context, key string) ([]record.Record, error) {
	ch := c.lists.DoChan(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), key)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("GET %s: %w", collectionPath(key), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Callers own their copy; the shared result is never handed out.
		shared := res.Val.([]record.Record)
		out := make([]record.Record, len(shared))
		for i, r := range shared {
			out[i] = record.New(r.ID, r.Fields)
		}
		return out, nil
	}
}

// ListFresh fetches a whole collection with a request of its own, never
// joining one already in flight.
func (c *Client) ListFresh(ctx context.Context, key string) ([]record.Record, error) {
	return c.fetch(ctx, key)
}

func (c *Client) fetch(ctx context.Context, key string) ([]record.Record, error) {
	var records []record.Record
	if err := c.do(ctx, http.MethodGet, collectionPath(key), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Create posts fields as a new record and returns the record the service stored.
func (c *Client) Create(ctx context.Context, key string, fields map[string]any) (record.Record, error) {
	var created record.Record
	if err := c.do(ctx, http.MethodPost, collectionPath(key), fieldsBody(fields), &created); err != nil {
		return record.Record{}, err
	}
	return created, nil
}

// Update sends a partial field set for the record with the given id.
func (c *Client) Update(ctx context.Context, key string, id record.ID, partial map[string]any) (record.Record, error) {
	var updated record.Record
	if err := c.do(ctx, http.MethodPut, recordPath(key, id), fieldsBody(partial), &updated); err != nil {
		return record.Record{}, err
	}
	return updated, nil
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, key string, id record.ID) error {
	return c.do(ctx, http.MethodDelete, recordPath(key, id), nil, nil)
}

// do performs one request and decodes a 2xx JSON body into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c.baseURL == "" {
		return ErrNoRemote
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: rate limit: %w", method, path, err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	reqID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("remote request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("remote request", "method", method, "path", path, "request_id", reqID, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// fieldsBody never sends JSON null for an empty field set.
func fieldsBody(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return fields
}

func collectionPath(key string) string {
	return "/collections/" + url.PathEscape(key)
}

func recordPath(key string, id record.ID) string {
	return collectionPath(key) + "/" + url.PathEscape(id.String())
}
