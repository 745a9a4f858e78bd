package reqsvc

import (
	"context"
)

type contextKey struct {
	name string
}

var (
	targetKey    = &contextKey{"target"}
	requestIDKey = &contextKey{"request_id"}
)

// TargetFromContext returns the target of the call in progress.
// It is set by Service.Send.
func TargetFromContext(ctx context.Context) (Target, bool) {
	t, ok := ctx.Value(targetKey).(Target)
	return t, ok
}

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id stored with WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withTarget(ctx context.Context, target Target) context.Context {
	return context.WithValue(ctx, targetKey, target)
}
