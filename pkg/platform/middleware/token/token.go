// Package token guards operational endpoints, such as the metrics scrape,
// with a static shared token.
package token

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	dErrors "cinregistry/pkg/domain-errors"
	"cinregistry/pkg/platform/httputil"
	"cinregistry/pkg/requestcontext"
)

// Header carries the shared token.
const Header = "X-Ops-Token"

// Require rejects requests whose token does not match expected. expected may
// be a bcrypt hash of the token or the token itself. An empty expected token
// leaves the endpoint open.
func Require(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		match := matcher(expected)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !match(r.Header.Get(Header)) {
				ctx := r.Context()
				logger.WarnContext(ctx, "ops token mismatch",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "ops token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func matcher(expected string) func(got string) bool {
	if _, err := bcrypt.Cost([]byte(expected)); err == nil {
		hash := []byte(expected)
		return func(got string) bool {
			return got != "" && bcrypt.CompareHashAndPassword(hash, []byte(got)) == nil
		}
	}
	return func(got string) bool {
		return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
	}
}
