package api

import (
	"net/http"
	"strings"

	"github.com/dishaguide/disha/internal/auth"
)

// RequireAuth verifies the bearer token and stashes the caller's identity in
// the request context. Missing or invalid credentials get a 401.
func RequireAuth(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "missing bearer token")
				return
			}
			id, err := verifier.Verify(r.Context(), header[len(prefix):])
			if err != nil {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// identity pulls the verified caller out of the context. The auth middleware
// guarantees it is present on every protected route.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
