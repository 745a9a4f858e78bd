package reqsvc

import (
	"context"
)

// Handler performs a call for a target. It is the transport a Service
// dispatches to.
//
// A handler is expected to resolve the target with ResolveAction against its
// own endpoint, perform the call and return a *RequestError on failure.
type Handler func(ctx context.Context, target Target, req *Request) (*Response, error)

// Interceptor wraps a Handler.
//
//	func timing(ctx context.Context, target reqsvc.Target, req *reqsvc.Request, next reqsvc.Handler) (*reqsvc.Response, error) {
//	    start := time.Now()
//	    res, err := next(ctx, target, req)
//	    log.Printf("%s took %v", target, time.Since(start))
//	    return res, err
//	}
//
// Interceptors can:
//   - Inspect or replace the request before calling next
//   - Inspect or replace the response after calling next
//   - Short-circuit by returning an error without calling next
//   - Add values to the context
type Interceptor func(ctx context.Context, target Target, req *Request, next Handler) (*Response, error)

// Chain wraps h with the interceptors. The first interceptor is the
// outermost one (runs first).
func Chain(h Handler, interceptors ...Interceptor) Handler {
	chain := chainInterceptors(interceptors)
	if chain == nil || h == nil {
		return h
	}
	return func(ctx context.Context, target Target, req *Request) (*Response, error) {
		return chain(ctx, target, req, h)
	}
}

// chainInterceptors combines multiple interceptors into a single one.
func chainInterceptors(interceptors []Interceptor) Interceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx context.Context, target Target, req *Request, handler Handler) (*Response, error) {
		// Chain: i[0] -> i[1] -> ... -> handler
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chain
			chain = func(ctx context.Context, target Target, req *Request) (*Response, error) {
				return current(ctx, target, req, next)
			}
		}
		return chain(ctx, target, req)
	}
}
