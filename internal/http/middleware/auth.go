package middlewarex

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"payrelay/internal/http/handlers"
)

// BearerAuth admits requests carrying "Authorization: Bearer <token>". An
// empty token leaves the routes open, for local development.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				handlers.WriteError(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
				return
			}
			got := strings.TrimPrefix(auth, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				handlers.WriteError(w, http.StatusUnauthorized, "invalid token", "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
