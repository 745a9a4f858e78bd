package reqsvc

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Service routes calls to the handler it currently holds.
//
// The handler can be replaced at any time with Use. A call runs to
// completion on the handler that was installed when it started; ordering
// between a replacement and calls already in flight is unspecified.
//
//	svc := reqsvc.NewService(httptransport.New("https://api.example.com").Handle)
//	res, err := svc.Send(ctx, "GET /items/:id", &reqsvc.Request{
//	    Params: reqsvc.Values{"id": 1},
//	})
type Service struct {
	handler atomic.Pointer[Handler]
	schema  *Schema
	logger  *slog.Logger
}

// NewService returns a Service dispatching to h. h may be nil and set later
// with Use.
func NewService(h Handler) *Service {
	s := &Service{}
	s.Use(h)
	return s
}

// WithSchema attaches the catalogue of declared operations. Entry and
// QueryEntry warn about aliases bound to undeclared targets.
func (s *Service) WithSchema(schema *Schema) *Service {
	s.schema = schema
	return s
}

// WithLogger sets the logger used for alias warnings.
// If not set, slog.Default() will be used.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Use replaces the handler. Calls already in flight are not affected.
func (s *Service) Use(h Handler) {
	if h == nil {
		s.handler.Store(nil)
		return
	}
	s.handler.Store(&h)
}

// Send dispatches req to target through the current handler and returns
// the handler's outcome unchanged.
//
// It returns ErrMissingHandler if no handler is installed. req may be nil.
func (s *Service) Send(ctx context.Context, target Target, req *Request) (*Response, error) {
	h := s.handler.Load()
	if h == nil {
		return nil, ErrMissingHandler
	}
	return (*h)(withTarget(ctx, target), target, req)
}

// EntryFunc calls the target an alias is bound to.
type EntryFunc func(ctx context.Context, req *Request) (*Response, error)

// QueryFunc calls the target an alias is bound to with query params only.
type QueryFunc func(ctx context.Context, query Values) (*Response, error)

// Entry maps alias names to calls.
type Entry map[string]EntryFunc

// QueryEntry maps alias names to query-only calls.
type QueryEntry map[string]QueryFunc

// Entry returns a call per alias. Calling
//
//	api := svc.Entry(reqsvc.AliasMap{"getItem": "GET /items/:id"})
//	api["getItem"](ctx, &reqsvc.Request{Params: reqsvc.Values{"id": 1}})
//
// is equivalent to
//
//	svc.Send(ctx, "GET /items/:id", &reqsvc.Request{Params: reqsvc.Values{"id": 1}})
//
// The aliases are copied; later changes to the map have no effect.
func (s *Service) Entry(aliases AliasMap) Entry {
	s.checkAliases(aliases)
	api := make(Entry, len(aliases))
	for name, target := range aliases {
		target := target // per-iteration copy; go directive is below 1.22
		api[name] = func(ctx context.Context, req *Request) (*Response, error) {
			return s.Send(ctx, target, req)
		}
	}
	return api
}

// QueryEntry is like Entry, with each call accepting only query params.
// It suits operations fully controlled by the query string:
//
//	api := svc.QueryEntry(reqsvc.AliasMap{"search": "GET /w"})
//	api["search"](ctx, reqsvc.Values{"search": "example"})
//
// is equivalent to
//
//	svc.Send(ctx, "GET /w", &reqsvc.Request{Query: reqsvc.Values{"search": "example"}})
func (s *Service) QueryEntry(aliases AliasMap) QueryEntry {
	s.checkAliases(aliases)
	api := make(QueryEntry, len(aliases))
	for name, target := range aliases {
		target := target // per-iteration copy; go directive is below 1.22
		api[name] = func(ctx context.Context, query Values) (*Response, error) {
			return s.Send(ctx, target, &Request{Query: query})
		}
	}
	return api
}

func (s *Service) checkAliases(aliases AliasMap) {
	if s.schema == nil {
		return
	}
	for name, target := range aliases {
		if _, ok := s.schema.Lookup(target); ok {
			continue
		}
		logger := s.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("alias bound to undeclared target",
			slog.String("alias", name),
			slog.String("target", string(target)))
	}
}
