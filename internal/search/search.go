// Package search orchestrates similar-case lookups: input validation ahead
// of any network call, at most one in-flight search, warm-up (503) retries
// and defensive normalization of the backend response.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"justicia-client/internal/client"
	"justicia-client/pkg/api"
)

const (
	// warmupRetries is how many extra attempts a 503 earns. The backend
	// returns 503 while the similarity model is warming up, which is a
	// domain condition distinct from a generic 5xx.
	warmupRetries = 2
	warmupDelay   = 5 * time.Second

	minDescriptionLength = 10
	maxQueryLength       = 1000
)

// caseNumberPattern matches expediente references like "123/2024" or
// "TOCA-45/2023".
var caseNumberPattern = regexp.MustCompile(`^[A-ZÑ]*-?\d{1,6}/\d{4}$`)

// Params is a validated search request.
type Params struct {
	Mode      api.SearchMode `validate:"required,oneof=description case_number"`
	Query     string         `validate:"required"`
	Limit     int            `validate:"required,min=1,max=100"`
	Threshold float64        `validate:"min=0,max=1"`
}

// Orchestrator runs similar-case searches against the backend. Starting a
// new search cancels the previous one; the superseded search fails with a
// cancelled-kind error that callers must treat as silent.
type Orchestrator struct {
	client   *client.Client
	validate *validator.Validate

	mu             sync.Mutex
	cancelInFlight context.CancelFunc
	generation     uint64

	// warmupDelay is a field so tests can shrink it.
	warmupDelay time.Duration
}

func NewOrchestrator(c *client.Client) *Orchestrator {
	return &Orchestrator{
		client:      c,
		validate:    validator.New(),
		warmupDelay: warmupDelay,
	}
}

// Search validates params, supersedes any in-flight search, and returns the
// normalized results.
func (o *Orchestrator) Search(ctx context.Context, params Params) ([]api.SimilarCase, error) {
	if err := o.validateParams(params); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	if o.cancelInFlight != nil {
		o.cancelInFlight()
	}
	o.generation++
	generation := o.generation
	o.cancelInFlight = cancel
	o.mu.Unlock()
	defer o.clearInFlight(cancel, generation)

	req := api.SimilarCaseRequest{
		Mode:      params.Mode,
		Query:     params.Query,
		Limit:     params.Limit,
		Threshold: params.Threshold,
	}

	resp, err := o.searchWithWarmupRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	return adaptResults(resp), nil
}

// clearInFlight releases the handle only if it still belongs to this search;
// a newer search may already have replaced it.
func (o *Orchestrator) clearInFlight(cancel context.CancelFunc, generation uint64) {
	cancel()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == generation {
		o.cancelInFlight = nil
	}
}

func (o *Orchestrator) validateParams(params Params) error {
	if err := o.validate.Struct(params); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return validationError(fieldMessage(fieldErrors[0]))
		}
		return validationError("Los parámetros de búsqueda no son válidos.")
	}

	if len(params.Query) > maxQueryLength {
		return validationError("La consulta es demasiado larga.")
	}

	switch params.Mode {
	case api.SearchModeDescription:
		if len(params.Query) < minDescriptionLength {
			return validationError(fmt.Sprintf("La descripción debe tener al menos %d caracteres.", minDescriptionLength))
		}
	case api.SearchModeCaseNumber:
		if !caseNumberPattern.MatchString(params.Query) {
			return validationError("El número de expediente no tiene un formato válido (ej. 123/2024).")
		}
	}
	return nil
}

func fieldMessage(fieldError validator.FieldError) string {
	switch fieldError.Field() {
	case "Mode":
		return "Seleccione un modo de búsqueda válido."
	case "Query":
		return "Ingrese un texto de búsqueda."
	case "Limit":
		return "El límite de resultados debe estar entre 1 y 100."
	case "Threshold":
		return "El umbral de similitud debe estar entre 0.0 y 1.0."
	default:
		return "Los parámetros de búsqueda no son válidos."
	}
}

func validationError(message string) *client.Error {
	return &client.Error{
		Kind:            client.KindValidation,
		UserMessage:     message,
		OriginalMessage: message,
	}
}

// searchWithWarmupRetry retries only on 503, with a fixed delay. All other
// failures propagate on first occurrence.
func (o *Orchestrator) searchWithWarmupRetry(ctx context.Context, req api.SimilarCaseRequest) (*api.SimilarCaseSearchResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := o.client.SearchSimilarCases(ctx, req)
		if err == nil {
			return resp, nil
		}

		var typed *client.Error
		if !errors.As(err, &typed) || typed.Status != http.StatusServiceUnavailable || attempt >= warmupRetries {
			return nil, err
		}

		slog.Info("search backend warming up, retrying",
			"attempt", attempt+1,
			"delay", o.warmupDelay,
		)

		timer := time.NewTimer(o.warmupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, client.NewError(client.Classify(ctx.Err(), 0), 0, ctx.Err().Error(), nil)
		case <-timer.C:
		}
	}
}

// adaptResults normalizes the backend shape, dropping malformed entries
// instead of failing the whole response.
func adaptResults(resp *api.SimilarCaseSearchResponse) []api.SimilarCase {
	if resp == nil {
		return nil
	}

	results := make([]api.SimilarCase, 0, len(resp.Results))
	for _, raw := range resp.Results {
		if raw.CaseId == "" {
			continue
		}

		normalized := api.SimilarCase{CaseId: raw.CaseId}
		if raw.Score != nil {
			normalized.Score = *raw.Score
		}
		if raw.Document != nil {
			normalized.Title = raw.Document.Title
			normalized.CaseNumber = raw.Document.CaseNumber
			normalized.Court = raw.Document.Court
			normalized.Date = raw.Document.Date
		}
		for _, highlight := range raw.Highlights {
			if highlight != "" {
				normalized.Highlights = append(normalized.Highlights, highlight)
			}
		}
		results = append(results, normalized)
	}
	return results
}
