// Package mockapi is a development and test double of the JusticIA backend:
// the REST surface plus the SSE chat endpoint, with scripted warm-up (503)
// and auth (401) behavior for exercising the client's failure paths.
package mockapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"justicia-client/pkg/api"
)

const defaultAnswer = "De acuerdo con los expedientes consultados, la jurisprudencia aplicable " +
	"establece que el plazo para interponer el recurso es de quince días hábiles contados a " +
	"partir de la notificación."

// Backend holds the mock's scripted state. Safe for concurrent use.
type Backend struct {
	mu              sync.Mutex
	users           map[string]api.User
	bitacora        []api.BitacoraEntry
	warmupRemaining int
	requiredToken   string
	streamDelay     time.Duration
	answer          string
}

func New() *Backend {
	b := &Backend{
		users:  make(map[string]api.User),
		answer: defaultAnswer,
	}
	b.seed()
	return b
}

func (b *Backend) seed() {
	admin := api.User{Id: uuid.NewString(), Name: "Admin", Email: "admin@justicia.local", Role: "admin", Active: true}
	b.users[admin.Id] = admin
	b.bitacora = []api.BitacoraEntry{
		{Id: uuid.NewString(), UserId: admin.Id, UserName: admin.Name, Action: "login", Module: "auth", Timestamp: time.Now().Add(-time.Hour)},
		{Id: uuid.NewString(), UserId: admin.Id, UserName: admin.Name, Action: "consulta", Module: "chat", Timestamp: time.Now()},
	}
}

// SetWarmupFailures makes the next n search calls return 503.
func (b *Backend) SetWarmupFailures(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warmupRemaining = n
}

// RequireToken rejects requests without the given bearer token with 401.
func (b *Backend) RequireToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requiredToken = token
}

// SetAnswer overrides the canned chat answer.
func (b *Backend) SetAnswer(answer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answer = answer
}

// SetStreamDelay inserts a pause between streamed tokens.
func (b *Backend) SetStreamDelay(delay time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamDelay = delay
}

// Router builds the full mock backend handler.
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(b.authMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", RestHandler(b.login))
		r.Post("/auth/change-password", RestHandler(b.changePassword))
		r.Post("/auth/reset-password", RestHandler(b.resetPassword))

		r.Route("/usuarios", func(r chi.Router) {
			r.Get("/", RestHandler(b.listUsers))
			r.Post("/", RestHandler(b.createUser))
			r.Put("/{id}", RestHandler(b.updateUser))
			r.Delete("/{id}", RestHandler(b.deleteUser))
		})

		r.Get("/bitacora", RestHandler(b.listBitacora))
		r.Post("/casos/resumen", RestHandler(b.generateSummary))
		r.Post("/similares/buscar", RestHandler(b.searchSimilarCases))
		r.Post("/chat/stream", b.streamChat)
	})

	return r
}

func (b *Backend) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		required := b.requiredToken
		b.mu.Unlock()

		if required != "" && r.URL.Path != "/api/auth/login" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token != required {
				writeJSONError(w, http.StatusUnauthorized, "token inválido o expirado")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(r *http.Request) (any, error) {
	req, err := ParseRequest[api.LoginRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Email == "" || req.Password == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "correo y contraseña son requeridos")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, user := range b.users {
		if user.Email == req.Email {
			return api.LoginResponse{Token: "mock-token", ExpiresIn: 3600, User: user}, nil
		}
	}
	return nil, CodedErrorf(http.StatusUnauthorized, "credenciales inválidas")
}

func (b *Backend) changePassword(r *http.Request) (any, error) {
	req, err := ParseRequest[api.ChangePasswordRequest](r)
	if err != nil {
		return nil, err
	}
	if len(req.NewPassword) < 8 {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "la contraseña debe tener al menos 8 caracteres")
	}
	return nil, nil
}

func (b *Backend) resetPassword(r *http.Request) (any, error) {
	if _, err := ParseRequest[api.ResetPasswordRequest](r); err != nil {
		return nil, err
	}
	return nil, nil
}

func (b *Backend) listUsers(r *http.Request) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	users := make([]api.User, 0, len(b.users))
	for _, user := range b.users {
		users = append(users, user)
	}
	return api.ListUsersResponse{Users: users, Total: len(users)}, nil
}

func (b *Backend) createUser(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateUserRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Email == "" || req.Name == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "nombre y correo son requeridos")
	}

	user := api.User{Id: uuid.NewString(), Name: req.Name, Email: req.Email, Role: req.Role, Active: true}
	b.mu.Lock()
	b.users[user.Id] = user
	b.mu.Unlock()
	return user, nil
}

func (b *Backend) updateUser(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")
	req, err := ParseRequest[api.UpdateUserRequest](r)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	user, ok := b.users[id]
	if !ok {
		return nil, CodedErrorf(http.StatusNotFound, "usuario no encontrado")
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	b.users[id] = user
	return user, nil
}

func (b *Backend) deleteUser(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[id]; !ok {
		return nil, CodedErrorf(http.StatusNotFound, "usuario no encontrado")
	}
	delete(b.users, id)
	return nil, nil
}

func (b *Backend) listBitacora(r *http.Request) (any, error) {
	query, err := ParseQueryParams[api.BitacoraQuery](r)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]api.BitacoraEntry, 0, len(b.bitacora))
	for _, entry := range b.bitacora {
		if query.UserId != "" && entry.UserId != query.UserId {
			continue
		}
		if query.Module != "" && entry.Module != query.Module {
			continue
		}
		entries = append(entries, entry)
	}
	total := len(entries)
	if query.Limit > 0 && len(entries) > query.Limit {
		entries = entries[:query.Limit]
	}
	return api.BitacoraResponse{Entries: entries, Total: total}, nil
}

func (b *Backend) generateSummary(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SummaryRequest](r)
	if err != nil {
		return nil, err
	}
	if req.CaseNumber == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "el número de expediente es requerido")
	}
	return api.SummaryResponse{
		CaseNumber: req.CaseNumber,
		Summary:    fmt.Sprintf("Resumen del expediente %s: se admite la demanda y se ordena el emplazamiento.", req.CaseNumber),
	}, nil
}

func (b *Backend) searchSimilarCases(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SimilarCaseRequest](r)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if b.warmupRemaining > 0 {
		b.warmupRemaining--
		b.mu.Unlock()
		return nil, CodedErrorf(http.StatusServiceUnavailable, "el modelo de similitud se está inicializando")
	}
	b.mu.Unlock()

	score := 0.92
	raw, _ := json.Marshal(map[string]any{
		"results": []map[string]any{
			{
				"case_id": "caso-001",
				"score":   score,
				"document": map[string]any{
					"title":       "Amparo directo en materia laboral",
					"case_number": "123/2024",
					"court":       "Segundo Tribunal Colegiado",
					"date":        "2024-03-11",
				},
				"highlights": []string{"plazo de quince días", ""},
			},
			// Malformed entries: the client must tolerate these.
			{"case_id": "caso-002", "score": nil, "document": nil},
			{"case_id": "", "score": 0.5},
		},
		"total": 3,
	})

	var resp api.SimilarCaseSearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(resp.Results) > req.Limit {
		resp.Results = resp.Results[:req.Limit]
	}
	return resp, nil
}

func (b *Backend) streamChat(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.ChatStreamRequest](r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "unable to parse request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "el mensaje no puede estar vacío")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	b.mu.Lock()
	answer := b.answer
	delay := b.streamDelay
	b.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(event api.StreamEvent) bool {
		payload, err := json.Marshal(event)
		if err != nil {
			slog.Error("error encoding stream event", "error", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for _, word := range strings.SplitAfter(answer, " ") {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		if !writeEvent(api.StreamEvent{Type: api.StreamEventToken, Content: word}) {
			return
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	writeEvent(api.StreamEvent{Type: api.StreamEventSources, Sources: []api.StreamSource{
		{CaseNumber: "123/2024", Title: "Amparo directo en materia laboral", Score: 0.92},
	}})
	writeEvent(api.StreamEvent{Type: api.StreamEventDone})
}
