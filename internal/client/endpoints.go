package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"justicia-client/pkg/api"
)

// Typed wrappers for the backend surface the client consumes: auth, user
// administration, bitácora queries, case summaries, similarity search and
// the streaming chat endpoint.

func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	var result api.LoginResponse
	_, err := c.Request(ctx, http.MethodPost, "/api/auth/login", RequestOptions{
		Body:   req,
		Result: &result,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ChangePassword(ctx context.Context, req api.ChangePasswordRequest) error {
	_, err := c.Request(ctx, http.MethodPost, "/api/auth/change-password", RequestOptions{Body: req})
	return err
}

func (c *Client) ResetPassword(ctx context.Context, req api.ResetPasswordRequest) error {
	_, err := c.Request(ctx, http.MethodPost, "/api/auth/reset-password", RequestOptions{Body: req})
	return err
}

// ListUsers is retried under the generic policy: transient network, timeout
// and 5xx failures recover transparently.
func (c *Client) ListUsers(ctx context.Context) (*api.ListUsersResponse, error) {
	return RunWithRetry(ctx, func(ctx context.Context) (*api.ListUsersResponse, error) {
		var result api.ListUsersResponse
		_, err := c.Request(ctx, http.MethodGet, "/api/usuarios", RequestOptions{Result: &result})
		if err != nil {
			return nil, err
		}
		return &result, nil
	}, RetryOptions{Context: map[string]any{"endpoint": "/api/usuarios"}})
}

func (c *Client) CreateUser(ctx context.Context, req api.CreateUserRequest) (*api.User, error) {
	var result api.User
	_, err := c.Request(ctx, http.MethodPost, "/api/usuarios", RequestOptions{
		Body:   req,
		Result: &result,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, req api.UpdateUserRequest) (*api.User, error) {
	var result api.User
	_, err := c.Request(ctx, http.MethodPut, "/api/usuarios/"+url.PathEscape(id), RequestOptions{
		Body:   req,
		Result: &result,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.Request(ctx, http.MethodDelete, "/api/usuarios/"+url.PathEscape(id), RequestOptions{})
	return err
}

func (c *Client) ListBitacora(ctx context.Context, query api.BitacoraQuery) (*api.BitacoraResponse, error) {
	params := map[string]string{}
	if query.UserId != "" {
		params["user_id"] = query.UserId
	}
	if query.Module != "" {
		params["module"] = query.Module
	}
	if query.From != "" {
		params["from"] = query.From
	}
	if query.To != "" {
		params["to"] = query.To
	}
	if query.Limit > 0 {
		params["limit"] = strconv.Itoa(query.Limit)
	}
	if query.Offset > 0 {
		params["offset"] = strconv.Itoa(query.Offset)
	}

	return RunWithRetry(ctx, func(ctx context.Context) (*api.BitacoraResponse, error) {
		var result api.BitacoraResponse
		_, err := c.Request(ctx, http.MethodGet, "/api/bitacora", RequestOptions{
			QueryParams: params,
			Result:      &result,
		})
		if err != nil {
			return nil, err
		}
		return &result, nil
	}, RetryOptions{Context: map[string]any{"endpoint": "/api/bitacora"}})
}

func (c *Client) GenerateSummary(ctx context.Context, req api.SummaryRequest) (*api.SummaryResponse, error) {
	var result api.SummaryResponse
	_, err := c.Request(ctx, http.MethodPost, "/api/casos/resumen", RequestOptions{
		Body:   req,
		Result: &result,
		// Summaries run an LLM pass; give them more room than plain CRUD.
		Timeout: c.streamTimeout / 2,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchSimilarCases issues a single raw search call. Validation, 503
// warm-up retries and response normalization live in the search orchestrator.
func (c *Client) SearchSimilarCases(ctx context.Context, req api.SimilarCaseRequest) (*api.SimilarCaseSearchResponse, error) {
	var result api.SimilarCaseSearchResponse
	_, err := c.Request(ctx, http.MethodPost, "/api/similares/buscar", RequestOptions{
		Body:   req,
		Result: &result,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// StreamChat opens the streaming chat-completion endpoint. The caller reads
// events from the returned stream and must Close it.
func (c *Client) StreamChat(ctx context.Context, req api.ChatStreamRequest) (*Stream, error) {
	if req.Message == "" {
		return nil, NewError(KindValidation, 0, "el mensaje no puede estar vacío", map[string]any{
			"endpoint": "/api/chat/stream",
		})
	}
	stream, err := c.OpenStream(ctx, "/api/chat/stream", req)
	if err != nil {
		return nil, fmt.Errorf("opening chat stream: %w", err)
	}
	return stream, nil
}
