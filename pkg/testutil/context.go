package testutil

import (
	"net/http"
	"time"

	id "cinregistry/pkg/domain"
	"cinregistry/pkg/requestcontext"
)

// WithActor puts the acting user on the request context, as the auth
// middleware does for a valid bearer token.
func WithActor(req *http.Request, actor id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), actor))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// ActorMiddleware injects the user returned by actor on every request. Tests
// switch actors between requests by changing what the func returns.
func ActorMiddleware(actor func() id.UserID, now time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = WithActor(r, actor())
			if !now.IsZero() {
				r = WithRequestTime(r, now)
			}
			next.ServeHTTP(w, r)
		})
	}
}
