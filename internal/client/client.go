// Package client implements the authenticated HTTP layer of the JusticIA
// client: a request wrapper with timeout and cancellation, a typed error
// taxonomy with user-safe sanitization, a retry-with-backoff driver and a
// long-lived streaming channel for the chat endpoint.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"justicia-client/internal/auth"
)

const (
	// DefaultRequestTimeout bounds ordinary REST calls.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultStreamTimeout bounds streaming chat calls; the first token can
	// be delayed by backend warm-up, so it is deliberately generous.
	DefaultStreamTimeout = 300 * time.Second
)

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	StreamTimeout  time.Duration
}

// Client issues authenticated requests against the JusticIA backend. All
// failures come back as *Error. Safe for concurrent use; unrelated requests
// may be in flight simultaneously.
type Client struct {
	http           *resty.Client
	tokens         auth.TokenSource
	unauthorized   *auth.UnauthorizedBroadcaster
	requestTimeout time.Duration
	streamTimeout  time.Duration
}

func New(cfg Config, tokens auth.TokenSource, unauthorized *auth.UnauthorizedBroadcaster) *Client {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	streamTimeout := cfg.StreamTimeout
	if streamTimeout <= 0 {
		streamTimeout = DefaultStreamTimeout
	}
	if tokens == nil {
		tokens = auth.AnonymousTokenSource{}
	}

	// No client-wide timeout: every request carries its own context
	// deadline, and stream bodies outlive the response headers.
	httpClient := resty.New().SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))

	return &Client{
		http:           httpClient,
		tokens:         tokens,
		unauthorized:   unauthorized,
		requestTimeout: requestTimeout,
		streamTimeout:  streamTimeout,
	}
}

// RequestOptions configures a single call. Zero values take defaults.
type RequestOptions struct {
	Body        any
	QueryParams map[string]string
	Headers     map[string]string
	Timeout     time.Duration
	// Result, when non-nil, receives the JSON-decoded response body.
	Result any
}

// Request performs an authenticated call. The request is aborted by whichever
// fires first: the per-request timeout or the caller's context. Non-2xx
// responses, transport failures and aborts all surface as *Error.
func (c *Client) Request(ctx context.Context, method, path string, opts RequestOptions) (*resty.Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.newRequest(ctx, opts.Headers)
	if opts.Body != nil {
		req.SetBody(opts.Body)
	}
	if opts.QueryParams != nil {
		req.SetQueryParams(opts.QueryParams)
	}
	if opts.Result != nil {
		req.SetResult(opts.Result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, c.transportError(err, path)
	}

	if resp.IsError() {
		return nil, c.statusError(resp.StatusCode(), resp.Body(), path)
	}

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, headers map[string]string) *resty.Request {
	req := c.http.R().SetContext(ctx)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		// Token lookup failure is not fatal: proceed unauthenticated and
		// let the backend decide.
		slog.Warn("could not obtain session token", "error", err)
	} else if token != "" {
		req.SetAuthToken(token)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}
	return req
}

// transportError classifies a failure that produced no HTTP response.
func (c *Client) transportError(err error, path string) *Error {
	kind := KindNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	} else if errors.Is(err, context.Canceled) {
		kind = KindCancelled
	}

	slog.Error("request failed before a response was received",
		"endpoint", path,
		"kind", kind,
		"error", err,
	)
	return NewError(kind, 0, err.Error(), map[string]any{"endpoint": path})
}

// statusError builds the typed error for a non-2xx response, firing the
// unauthorized broadcast on 401.
func (c *Client) statusError(status int, body []byte, path string) *Error {
	message := parseErrorMessage(body, status)

	slog.Error("request returned error status",
		"endpoint", path,
		"status", status,
		"message", message,
	)

	if status == 401 && c.unauthorized != nil {
		c.unauthorized.Notify()
	}

	return NewError(kindFromStatus(status), status, message, map[string]any{
		"endpoint": path,
		"status":   status,
	})
}

// parseErrorMessage extracts a human message from a JSON error body, checking
// message, then detail, then error; falls back to the raw text, then to a
// generic "Error <status>".
func parseErrorMessage(body []byte, status int) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, field := range []string{"message", "detail", "error"} {
			if value, ok := payload[field].(string); ok && value != "" {
				return value
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("Error %d", status)
}
