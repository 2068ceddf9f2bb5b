// internal/api/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/newthinker/sigfuse/internal/api/response"
	"github.com/newthinker/sigfuse/internal/core"
)

// APIKeyAuth accepts the key in X-API-Key or as a bearer token.
// An empty apiKey disables authentication.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		want := []byte(apiKey)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			if got == "" {
				got, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				response.Error(w, core.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
