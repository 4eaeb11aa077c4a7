// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// The hosting platform authenticates the caller and serializes operations; the
// core only ever sees three ambient facts per invocation: the sender address,
// the request id, and the trusted timestamp. Middleware sets them, services
// read them, and tests inject fixed values.
//
// Usage in services (read values):
//
//	sender := requestcontext.Sender(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithSender(ctx, sender)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	senderKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeySender      = senderKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Sender retrieves the authenticated caller address from the context.
// Returns "" if not set.
func Sender(ctx context.Context) string {
	if sender, ok := ctx.Value(ContextKeySender).(string); ok {
		return sender
	}
	return ""
}

// WithSender injects the caller address into the context.
func WithSender(ctx context.Context, sender string) context.Context {
	return context.WithValue(ctx, ContextKeySender, sender)
}

// RequestID retrieves the request id from the context. Returns "" if not set.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a request id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the trusted request timestamp, falling back to the wall clock
// when no middleware captured one. Services must use this instead of
// time.Now so tests can pin time.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed timestamp into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
