// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets values; services read them without importing net/http.
// Tests inject values directly:
//
//	ctx = requestcontext.WithAccountantID(ctx, accountantID)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "taxtrail/pkg/domain"
)

type (
	accountantIDKey struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyAccountantID = accountantIDKey{}
	ContextKeyRequestID    = requestIDKey{}
	ContextKeyRequestTime  = requestTimeKey{}
)

// AccountantID retrieves the authenticated accountant ID from the context.
// Returns the zero value if not set.
func AccountantID(ctx context.Context) id.AccountantID {
	if aid, ok := ctx.Value(ContextKeyAccountantID).(id.AccountantID); ok {
		return aid
	}
	return id.AccountantID{}
}

// WithAccountantID injects an accountant ID into the context.
func WithAccountantID(ctx context.Context, aid id.AccountantID) context.Context {
	return context.WithValue(ctx, ContextKeyAccountantID, aid)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI, tests that don't care).
// A single time per request keeps completion and escalation math consistent
// across every client evaluated in one query.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware, the sweep worker (consistent time per batch), and tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
