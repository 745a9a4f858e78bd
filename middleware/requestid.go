package middleware

import (
	"context"

	"github.com/broady/reqsvc"
	"github.com/google/uuid"
)

// RequestID returns an interceptor that stores a random UUID as the request
// id of each call whose context does not carry one yet. The HTTP transport
// forwards it in the X-Request-Id header.
func RequestID() reqsvc.Interceptor {
	return func(ctx context.Context, target reqsvc.Target, req *reqsvc.Request, next reqsvc.Handler) (*reqsvc.Response, error) {
		if reqsvc.RequestIDFromContext(ctx) == "" {
			ctx = reqsvc.WithRequestID(ctx, uuid.NewString())
		}
		return next(ctx, target, req)
	}
}
