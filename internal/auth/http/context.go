// Package http provides the HTTP handlers and middleware for sender login, recipient
// verification, lock administration and the audit trail.
package http

import (
	"context"

	authDomain "github.com/allisson/sealdrop/internal/auth/domain"
)

type principalKey struct{}

type bearerTokenKey struct{}

// WithPrincipal stores an authenticated sender or administrator in the context.
// This is called by AuthenticationMiddleware after the JWT is validated.
func WithPrincipal(ctx context.Context, principal *authDomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipal retrieves the authenticated principal from the context.
// Returns (principal, true) if present, or (nil, false) if no principal was set.
func GetPrincipal(ctx context.Context) (*authDomain.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*authDomain.Principal)
	return principal, ok
}

// WithBearerToken stores the raw recipient auth token in the context. The token is opaque here;
// the download broker resolves it against the transfer being accessed.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// GetBearerToken retrieves the recipient auth token from the context.
func GetBearerToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerTokenKey{}).(string)
	return token, ok
}
