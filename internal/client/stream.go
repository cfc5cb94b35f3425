package client

import (
	"context"
	"io"
	"net/http"
)

// maxErrorBodyBytes bounds how much of an error response is read at stream
// open time.
const maxErrorBodyBytes = 64 * 1024

// Stream is a live streaming response. The body is consumed incrementally by
// the caller; the stream timeout stays armed over body reads and is only
// released by Close, because receiving the response headers does not mean
// the data has been consumed.
type Stream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

// Body returns the raw response body for incremental reading.
func (s *Stream) Body() io.Reader {
	return s.body
}

// Close releases the timeout timer and the underlying connection. Must be
// called exactly once when the caller is done reading or aborts.
func (s *Stream) Close() error {
	defer s.cancel()
	return s.body.Close()
}

// OpenStream POSTs payload to path and hands back the live response without
// parsing it. Open-time failures (transport, abort, non-200 status) are
// classified and typed exactly like ordinary requests; failures while
// reading the body afterwards belong to the caller.
func (c *Client) OpenStream(ctx context.Context, path string, payload any) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.streamTimeout)

	req := c.newRequest(ctx, map[string]string{
		"Accept":       "text/event-stream",
		"Content-Type": "application/json",
	})
	req.SetBody(payload)
	req.SetDoNotParseResponse(true)

	resp, err := req.Post(path)
	if err != nil {
		cancel()
		return nil, c.transportError(err, path)
	}

	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
		_ = body.Close()
		cancel()
		return nil, c.statusError(resp.StatusCode(), errorBody, path)
	}

	return &Stream{body: body, cancel: cancel}, nil
}
