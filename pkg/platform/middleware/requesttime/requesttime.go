// Package requesttime pins one timestamp per request so the enrollee row, its
// history entry and its audit entries all carry the same instant.
package requesttime

import (
	"net/http"
	"time"

	"cinregistry/pkg/requestcontext"
)

// Middleware stores the request start time, in UTC and truncated to the
// microsecond precision Postgres keeps.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), now)))
	})
}
