// Package auth defines the session-provider boundary. Token issuance and
// rotation happen elsewhere; the client only reads the current token and the
// identity claims attached to it.
package auth

import "context"

// Claims are the identity fields the session provider exposes.
type Claims struct {
	Id    string
	Name  string
	Email string
	Role  string
}

// TokenSource supplies the current bearer token and identity. A missing token
// (empty string, nil error) is valid: the request proceeds unauthenticated
// and the backend decides.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Identity() Claims
}

// StaticTokenSource wraps a fixed token and claims, used by the CLI and tests.
type StaticTokenSource struct {
	BearerToken string
	Claims      Claims
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	return s.BearerToken, nil
}

func (s *StaticTokenSource) Identity() Claims {
	return s.Claims
}

// AnonymousTokenSource is a TokenSource with no token and no identity.
type AnonymousTokenSource struct{}

func (AnonymousTokenSource) Token(ctx context.Context) (string, error) { return "", nil }
func (AnonymousTokenSource) Identity() Claims                          { return Claims{} }
