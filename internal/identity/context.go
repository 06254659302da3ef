// Package identity carries the client-supplied user identity through request
// context. There is no real authentication: the role gates which dashboard
// responds and the email is only a filter key, never a credential.
package identity

import (
	"context"
	"net/http"
	"strings"
)

// Role selects which dashboard a user sees.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleNone    Role = "none"
)

// ParseRole normalizes a client-supplied role string.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "doctor":
		return RoleDoctor
	case "patient":
		return RolePatient
	default:
		return RoleNone
	}
}

// Identity is the unverified user identity for a request.
type Identity struct {
	Role  Role
	Email string
}

type ctxKey string

const identityKey ctxKey = "portal.identity"

// WithIdentity stores the identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the identity if present.
func FromContext(ctx context.Context) (Identity, bool) {
	val := ctx.Value(identityKey)
	if val == nil {
		return Identity{Role: RoleNone}, false
	}
	id, ok := val.(Identity)
	return id, ok && id.Role != RoleNone
}

// Middleware reads the identity headers into context. Values are trusted as
// sent; they only shape derived views.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			Role:  ParseRole(r.Header.Get("X-User-Role")),
			Email: strings.TrimSpace(r.Header.Get("X-User-Email")),
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRole rejects requests whose identity role does not match.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok || id.Role != role {
				http.Error(w, "role not permitted", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
