package client

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
)

// Kind is the closed set of failure categories the rest of the client
// switches over. Every error that crosses the client boundary carries one.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindCancelled  Kind = "cancelled"
	KindServer     Kind = "server"
	KindClient     Kind = "client"
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not-found"
	KindUnknown    Kind = "unknown"
)

// Error is the typed error returned by the HTTP client, the streaming
// channel, the retry driver and the search orchestrator. UserMessage is safe
// to display; OriginalMessage is for diagnostic logging only.
type Error struct {
	Kind            Kind
	Status          int
	UserMessage     string
	OriginalMessage string
	Context         map[string]any
}

func (e *Error) Error() string {
	if e.OriginalMessage != "" {
		return e.OriginalMessage
	}
	return e.UserMessage
}

// NewError builds an Error with a sanitized user message.
func NewError(kind Kind, status int, message string, context map[string]any) *Error {
	return &Error{
		Kind:            kind,
		Status:          status,
		UserMessage:     Sanitize(message, kind),
		OriginalMessage: message,
		Context:         context,
	}
}

// Classify maps an arbitrary error plus an optional HTTP status to a Kind.
// Precedence: already-typed errors keep their kind, then cancellation
// (deadline vs explicit cancel), then transport failures, then status codes.
func Classify(err error, status int) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}

	if status == 0 {
		if err != nil {
			return KindNetwork
		}
		return KindUnknown
	}

	return kindFromStatus(status)
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 400 && status < 500:
		return KindClient
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

const maxSafeMessageLength = 200

// leakPatterns match messages that expose internals (stack traces, exception
// class names, file paths, low-level library errors) and must never reach
// the UI.
var leakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`goroutine \d+`),
	regexp.MustCompile(`\bat .+\(.+:\d+`),
	regexp.MustCompile(`\w+(Exception|Traceback)\b`),
	regexp.MustCompile(`panic:`),
	regexp.MustCompile(`[\w./-]+\.(go|py|js|ts):\d+`),
	regexp.MustCompile(`(^|\s)/[\w./-]{2,}`),
	regexp.MustCompile(`dial tcp|connection refused|connection reset|no such host|broken pipe`),
	regexp.MustCompile(`ECONN\w+|ETIMEDOUT|ENOTFOUND`),
	regexp.MustCompile(`tls:|x509:|EOF$`),
	regexp.MustCompile(`SQLSTATE|pq:|gorm:`),
}

var userMessages = map[Kind]string{
	KindNetwork:    "Error de conexión. Verifique su conexión a internet e intente nuevamente.",
	KindTimeout:    "La solicitud tardó demasiado en responder. Intente nuevamente.",
	KindCancelled:  "La operación fue cancelada.",
	KindServer:     "Error en el servidor. Intente nuevamente más tarde.",
	KindClient:     "No se pudo procesar la solicitud.",
	KindValidation: "Los datos proporcionados no son válidos.",
	KindAuth:       "Su sesión ha expirado o no tiene autorización. Inicie sesión nuevamente.",
	KindNotFound:   "El recurso solicitado no existe.",
	KindUnknown:    "Ocurrió un error inesperado. Intente nuevamente.",
}

// Sanitize returns a message safe to show to an end user. Messages that are
// empty, overlong, or that match a leak pattern are replaced by the canned
// per-kind message. Pure and idempotent.
func Sanitize(message string, kind Kind) string {
	canned, ok := userMessages[kind]
	if !ok {
		canned = userMessages[KindUnknown]
	}

	message = strings.TrimSpace(message)
	if message == "" || len(message) > maxSafeMessageLength {
		return canned
	}

	for _, pattern := range leakPatterns {
		if pattern.MatchString(message) {
			return canned
		}
	}

	return message
}
