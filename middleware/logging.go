package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/broady/reqsvc"
)

// LoggingInterceptor creates an interceptor that logs calls using slog.
// It logs the start and end of each call, including duration and status.
func LoggingInterceptor(logger *slog.Logger) reqsvc.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, target reqsvc.Target, req *reqsvc.Request, next reqsvc.Handler) (*reqsvc.Response, error) {
		start := time.Now()
		attrs := []any{slog.String("target", string(target))}
		if id := reqsvc.RequestIDFromContext(ctx); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		logger.InfoContext(ctx, "request started", attrs...)

		res, err := next(ctx, target, req)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))

		if err != nil {
			var reqErr *reqsvc.RequestError
			if errors.As(err, &reqErr) && reqErr.Status != 0 {
				attrs = append(attrs, slog.Int("status", reqErr.Status))
			}
			attrs = append(attrs, slog.Any("error", err))
			logger.ErrorContext(ctx, "request failed", attrs...)
		} else {
			if res != nil {
				attrs = append(attrs, slog.Int("status", res.Status))
			}
			logger.InfoContext(ctx, "request completed", attrs...)
		}

		return res, err
	}
}
