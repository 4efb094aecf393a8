package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/digitalstore/internal/user"
)

type contextKey struct{}

var principalKey contextKey

// Principal is the resolved caller identity handed to downstream handlers.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   user.Role
}

// PrincipalFromContext returns the principal set by the Authenticator
// middleware, or false when the request was not authenticated.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// ContextWithPrincipal attaches a resolved principal to the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func respondForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Authenticator validates the bearer token and stores the principal in the
// request context.
func (m *TokenManager) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondUnauthorized(w, ErrMissingToken.Error())
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			respondUnauthorized(w, "invalid authorization format, use: Bearer <token>")
			return
		}

		claims, err := m.Validate(parts[1])
		if err != nil {
			respondUnauthorized(w, ErrInvalidToken.Error())
			return
		}

		principal := &Principal{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}

		ctx := ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route on the principal holding one of the given roles.
//
// The role comes from the token claims, so a demotion takes effect only once
// the old token expires. Status transitions in the order service additionally
// re-resolve the actor from the store before acting.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				respondUnauthorized(w, ErrMissingToken.Error())
				return
			}

			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			respondForbidden(w, "insufficient role")
		})
	}
}
