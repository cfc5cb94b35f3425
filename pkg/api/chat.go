package api

// ChatStreamRequest is the payload for the streaming chat-completion endpoint.
// Context carries the formatted prior exchanges used to prime the answer.
type ChatStreamRequest struct {
	Message        string `json:"message"`
	Context        string `json:"context,omitempty"`
	ConversationId string `json:"conversation_id,omitempty"`
}

// StreamEventType discriminates the events on the SSE chat stream.
type StreamEventType string

const (
	StreamEventToken   StreamEventType = "token"
	StreamEventSources StreamEventType = "sources"
	StreamEventDone    StreamEventType = "done"
	StreamEventError   StreamEventType = "error"
)

// StreamEvent is one SSE `data:` payload on the chat stream.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
	Sources []StreamSource  `json:"sources,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type StreamSource struct {
	CaseNumber string  `json:"case_number"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}
