package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"justicia-client/pkg/api"
)

// ReadEvents consumes a server-sent-event body line by line, invoking the
// callback for every event until the stream ends, a done event arrives, the
// callback errors, or the context is cancelled. Lines that are not valid
// JSON are delivered as plain token events.
func ReadEvents(ctx context.Context, body io.Reader, callback func(api.StreamEvent) error) error {
	scanner := bufio.NewScanner(body)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return NewError(Classify(err, 0), 0, err.Error(), nil)
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// SSE framing: "data: {...}". Some servers omit the space.
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimSpace(after)
		}

		var event api.StreamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			event = api.StreamEvent{Type: api.StreamEventToken, Content: line}
		}

		if err := callback(event); err != nil {
			return err
		}

		if event.Type == api.StreamEventDone {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return NewError(Classify(ctxErr, 0), 0, ctxErr.Error(), nil)
		}
		return NewError(KindNetwork, 0, fmt.Sprintf("stream read failed: %v", err), nil)
	}
	return nil
}

// ChatResult is the accumulated outcome of a chat stream.
type ChatResult struct {
	Answer  string
	Sources []api.StreamSource
}

// ReadChatStream accumulates token events into a complete answer. A stream
// error event aborts with a server-kind error.
func ReadChatStream(ctx context.Context, body io.Reader) (*ChatResult, error) {
	var answer strings.Builder
	var sources []api.StreamSource

	err := ReadEvents(ctx, body, func(event api.StreamEvent) error {
		switch event.Type {
		case api.StreamEventToken:
			answer.WriteString(event.Content)
		case api.StreamEventSources:
			sources = event.Sources
		case api.StreamEventError:
			return NewError(KindServer, 0, event.Error, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ChatResult{Answer: answer.String(), Sources: sources}, nil
}
