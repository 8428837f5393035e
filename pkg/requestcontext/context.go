// Package requestcontext carries the acting user, request id and request time
// through a context. Middleware writes them; services and stores read them.
// It has no net/http dependency so workers and tests can set the same values.
package requestcontext

import (
	"context"
	"time"

	id "cinregistry/pkg/domain"
)

type key int

const (
	userKey key = iota
	requestIDKey
	timeKey
)

// UserID returns the acting user, or the nil ID for anonymous and system calls.
func UserID(ctx context.Context) id.UserID {
	u, _ := ctx.Value(userKey).(id.UserID)
	return u
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now returns the request time, or the wall clock in UTC when none was set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey, t)
}
