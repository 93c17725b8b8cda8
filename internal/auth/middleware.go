package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopflow/storefront/internal/domain"
)

type contextKey struct{}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(Identity)
	return identity, ok
}

// ContextWithIdentity returns ctx carrying the identity. Exported for
// handler tests and for composing custom middleware.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

type Middleware struct {
	issuer *TokenIssuer
}

func NewMiddleware(issuer *TokenIssuer) *Middleware {
	return &Middleware{issuer: issuer}
}

// RequireUser rejects requests without a valid bearer token and stores the
// resolved identity in the request context.
func (m *Middleware) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.resolve(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		next(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	}
}

// RequireAdmin additionally requires the admin role.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.resolve(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		if identity.Role != domain.RoleAdmin {
			writeAuthError(w, http.StatusForbidden, "admin privileges required")
			return
		}

		next(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	}
}

func (m *Middleware) resolve(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Identity{}, ErrInvalidToken
	}

	return m.issuer.Verify(token)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
