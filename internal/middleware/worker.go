package middleware

import (
	"crypto/subtle"
	"net/http"
)

// WorkerAuth guards the dispatcher boundary with a shared worker credential.
// An empty configured token disables the check, matching the open poll
// endpoint of the original mock-worker setup.
func WorkerAuth(workerToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if workerToken == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(workerToken)) != 1 {
				http.Error(w, "invalid worker credential", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
