package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"picturegram-sync/internal/identity"
	"picturegram-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// Authenticator resolves an access token to a principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

// AuthMiddleware creates a middleware for JWT authentication. The resolved
// principal is stored in the request context.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || token == "" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Rejected access token")
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	p, _ := identity.FromContext(ctx)
	return p.ID
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
