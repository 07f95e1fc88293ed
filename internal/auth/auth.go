// Package auth resolves the owning user identity for each request.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/holteng/minne/internal/apperr"
)

// Provider resolves an opaque owner identity from a request, or reports
// that the request is unauthenticated.
type Provider interface {
	Resolve(r *http.Request) (string, error)
}

type contextKey struct{}

// OwnerFromContext returns the owner identity injected by Middleware.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(contextKey{}).(string)
	return owner, ok && owner != ""
}

// WithOwner returns a context carrying the owner identity. Exported for
// tests and for the MCP server, which runs outside the HTTP stack.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, contextKey{}, owner)
}

// Disabled is a Provider for local single-user deployments: every request
// resolves to a fixed owner.
type Disabled struct {
	Owner string
}

func (d Disabled) Resolve(*http.Request) (string, error) {
	owner := d.Owner
	if owner == "" {
		owner = "local"
	}
	return owner, nil
}

// StaticToken is a Provider that accepts a single bearer token and maps
// it to a configured owner.
type StaticToken struct {
	Token string
	Owner string
}

func (s StaticToken) Resolve(r *http.Request) (string, error) {
	if bearerToken(r) != s.Token || s.Token == "" {
		return "", apperr.ErrUnauthorized
	}
	return s.Owner, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// Middleware resolves the owner identity through the provider and injects
// it into the request context. Unresolved requests get a 401 before any
// resource access.
func Middleware(p Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := p.Resolve(r)
			if err != nil || owner == "" {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}
