package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justicia-client/internal/auth"
	"justicia-client/pkg/api"
)

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) (*Client, *auth.UnauthorizedBroadcaster) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	unauthorized := auth.NewUnauthorizedBroadcaster()
	c := New(Config{
		BaseURL:        server.URL,
		RequestTimeout: timeout,
		StreamTimeout:  timeout,
	}, &auth.StaticTokenSource{BearerToken: "token-abc", Claims: auth.Claims{Id: "u1"}}, unauthorized)
	return c, unauthorized
}

func TestRequestDecodesResult(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"users":[{"id":"u1","name":"Ana","email":"ana@pjn.mx","role":"admin","active":true}],"total":1}`))
	})
	c, _ := newTestClient(t, handler, time.Second)

	var result api.ListUsersResponse
	_, err := c.Request(context.Background(), http.MethodGet, "/api/usuarios", RequestOptions{Result: &result})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, "Ana", result.Users[0].Name)
}

func TestRequestParsesErrorBodies(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		body        string
		contentType string
		wantKind    Kind
		wantMessage string
	}{
		{"message field", 422, `{"message":"la contraseña es muy corta"}`, "application/json", KindValidation, "la contraseña es muy corta"},
		{"detail field", 404, `{"detail":"expediente no encontrado"}`, "application/json", KindNotFound, "expediente no encontrado"},
		{"error field", 400, `{"error":"parámetro inválido"}`, "application/json", KindClient, "parámetro inválido"},
		{"plain text", 500, `algo salió mal`, "text/plain", KindServer, "algo salió mal"},
		{"empty body", 503, ``, "text/plain", KindServer, "Error 503"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			c, _ := newTestClient(t, handler, time.Second)

			_, err := c.Request(context.Background(), http.MethodGet, "/x", RequestOptions{})
			var typed *Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, tc.wantKind, typed.Kind)
			assert.Equal(t, tc.status, typed.Status)
			assert.Equal(t, tc.wantMessage, typed.OriginalMessage)
		})
	}
}

func TestRequestNotifiesOnUnauthorized(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token inválido o expirado"}`))
	})
	c, unauthorized := newTestClient(t, handler, time.Second)

	notified := 0
	unsubscribe := unauthorized.Subscribe(func() { notified++ })
	defer unsubscribe()

	_, err := c.Request(context.Background(), http.MethodGet, "/x", RequestOptions{})
	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindAuth, typed.Kind)
	assert.Equal(t, 1, notified)

	// Other statuses do not fire the broadcast.
	c500, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), time.Second)
	_, _ = c500.Request(context.Background(), http.MethodGet, "/x", RequestOptions{})
	assert.Equal(t, 1, notified)
}

func TestRequestTimeoutIsTimeoutKind(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	c, _ := newTestClient(t, handler, 50*time.Millisecond)

	_, err := c.Request(context.Background(), http.MethodGet, "/slow", RequestOptions{})
	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindTimeout, typed.Kind)
}

func TestRequestExternalCancelIsCancelledKind(t *testing.T) {
	started := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})
	c, _ := newTestClient(t, handler, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.Request(ctx, http.MethodGet, "/slow", RequestOptions{})
	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindCancelled, typed.Kind)
}

func TestRequestNetworkErrorIsNetworkKind(t *testing.T) {
	unauthorized := auth.NewUnauthorizedBroadcaster()
	// Nothing listens on this address.
	c := New(Config{BaseURL: "http://127.0.0.1:1", RequestTimeout: time.Second}, nil, unauthorized)

	_, err := c.Request(context.Background(), http.MethodGet, "/x", RequestOptions{})
	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindNetwork, typed.Kind)
	// The raw dial error never reaches the user message.
	assert.Equal(t, userMessages[KindNetwork], typed.UserMessage)
}

func TestParseErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "mensaje", parseErrorMessage([]byte(`{"message":"mensaje","detail":"detalle"}`), 500))
	assert.Equal(t, "detalle", parseErrorMessage([]byte(`{"detail":"detalle"}`), 500))
	assert.Equal(t, "crudo", parseErrorMessage([]byte(`crudo`), 500))
	assert.Equal(t, "Error 502", parseErrorMessage(nil, 502))
	assert.Equal(t, "Error 500", parseErrorMessage([]byte("  \n"), 500))
}
