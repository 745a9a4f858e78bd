// Package httptransport implements a reqsvc.Handler on top of net/http.
//
//	t := httptransport.New("https://api.example.com/v1").
//	    WithHeader("Authorization", "Bearer "+token)
//	svc := reqsvc.NewService(t.Handle)
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/broady/reqsvc"
)

const (
	// DefaultMaxBodySize is the default limit of response bytes read.
	DefaultMaxBodySize = 1 << 22

	// RequestIDHeader carries the request id stored in the context.
	RequestIDHeader = "X-Request-Id"

	applicationJSON = "application/json"
)

// Doer is the subset of *http.Client used by the transport.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Transport performs calls against a fixed endpoint.
type Transport struct {
	endpoint    string
	client      Doer
	logger      *slog.Logger
	headers     map[string]string
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	logBody     bool
}

// New returns a Transport resolving targets against endpoint.
func New(endpoint string) *Transport {
	return &Transport{
		endpoint:    endpoint,
		client:      http.DefaultClient,
		headers:     make(map[string]string),
		maxBodySize: DefaultMaxBodySize,
	}
}

// WithClient sets the client performing the calls.
func (t *Transport) WithClient(c Doer) *Transport {
	t.client = c
	return t
}

// WithLogger sets a custom logger for the transport.
// If not set, slog.Default() will be used.
func (t *Transport) WithLogger(logger *slog.Logger) *Transport {
	t.logger = logger
	return t
}

// WithHeader adds a header sent with every call. Request headers take
// precedence.
func (t *Transport) WithHeader(key, value string) *Transport {
	t.headers[key] = value
	return t
}

// WithUserAgent sets the User-Agent header unless the request sets one.
func (t *Transport) WithUserAgent(ua string) *Transport {
	t.userAgent = ua
	return t
}

// WithTimeout bounds each call. Zero means no timeout besides the context's.
func (t *Transport) WithTimeout(d time.Duration) *Transport {
	t.timeout = d
	return t
}

// WithMaxBodySize sets the maximum number of response bytes read. A larger
// body fails the call. Default is DefaultMaxBodySize.
func (t *Transport) WithMaxBodySize(size int64) *Transport {
	t.maxBodySize = size
	return t
}

// WithBodyLogging enables debug logging of request and response bodies.
func (t *Transport) WithBodyLogging(enabled bool) *Transport {
	t.logBody = enabled
	return t
}

// Endpoint returns the endpoint targets are resolved against.
func (t *Transport) Endpoint() string {
	return t.endpoint
}

func (t *Transport) log() *slog.Logger {
	if t.logger == nil {
		return slog.Default()
	}
	return t.logger
}

// Handle implements reqsvc.Handler.
//
// A response status outside 2xx is returned as a *reqsvc.RequestError
// carrying the status, the reason phrase and the decoded body as Data.
// Network failures are returned as a *reqsvc.RequestError wrapping the
// original error.
func (t *Transport) Handle(ctx context.Context, target reqsvc.Target, req *reqsvc.Request) (*reqsvc.Response, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	httpReq, err := NewRequest(ctx, t.endpoint, target, req)
	if err != nil {
		return nil, reqsvc.NewRequestError(err)
	}
	for k, v := range t.headers {
		if httpReq.Header.Get(k) == "" {
			httpReq.Header.Set(k, v)
		}
	}
	if t.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if t.logBody && req != nil && req.Body != nil {
		t.log().DebugContext(ctx, "httptransport: request body",
			slog.String("target", string(target)),
			slog.Any("body", req.Body))
	}

	httpRes, err := t.client.Do(httpReq)
	if err != nil {
		return nil, reqsvc.NewRequestError(err)
	}
	defer httpRes.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpRes.Body, t.maxBodySize+1))
	if err != nil {
		return nil, reqsvc.NewRequestError(err)
	}
	if int64(len(data)) > t.maxBodySize {
		return nil, reqsvc.NewRequestError(reqsvc.ErrorParams{
			Message:    "response body too large",
			Status:     httpRes.StatusCode,
			StatusText: reqsvc.StatusText(httpRes),
		})
	}
	t.log().DebugContext(ctx, "httptransport: response",
		slog.String("target", string(target)),
		slog.String("method", httpReq.Method),
		slog.String("url", httpReq.URL.String()),
		slog.Int("status", httpRes.StatusCode),
		slog.Int("body_length", len(data)))
	if t.logBody {
		t.log().DebugContext(ctx, "httptransport: response body",
			slog.String("target", string(target)),
			slog.String("body", string(data)))
	}

	res := &reqsvc.Response{
		OK:         httpRes.StatusCode >= 200 && httpRes.StatusCode < 300,
		Status:     httpRes.StatusCode,
		StatusText: reqsvc.StatusText(httpRes),
		Headers:    httpRes.Header,
		Body:       decodeBody(httpRes.Header.Get("Content-Type"), data),
	}
	if !res.OK {
		return nil, reqsvc.NewRequestError(reqsvc.ErrorParams{
			Status:     res.Status,
			StatusText: res.StatusText,
			Data:       res.Body,
		})
	}
	return res, nil
}

// NewRequest builds the *http.Request for a call to target.
//
// The method defaults to GET. Headers are converted with
// reqsvc.StringValues. A body of type []byte, string or io.Reader is sent
// as is; any other body is encoded as JSON.
func NewRequest(ctx context.Context, endpoint string, target reqsvc.Target, req *reqsvc.Request) (*http.Request, error) {
	action := reqsvc.ResolveAction(req, target, endpoint)
	method := action.Method
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType string
	)
	if req != nil && req.Body != nil {
		switch b := req.Body.(type) {
		case []byte:
			body = bytes.NewReader(b)
		case string:
			body = strings.NewReader(b)
		case io.Reader:
			body = b
		default:
			data, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			body = bytes.NewReader(data)
			contentType = applicationJSON
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, action.URL, body)
	if err != nil {
		return nil, err
	}
	if req != nil {
		for k, v := range reqsvc.StringValues(req.Headers) {
			httpReq.Header.Set(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if id := reqsvc.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(RequestIDHeader, id)
	}
	return httpReq, nil
}

// decodeBody decodes JSON bodies, returns text bodies as strings and any
// other body as raw bytes. Empty bodies are nil.
func decodeBody(contentType string, data []byte) any {
	if len(data) == 0 {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}
	switch {
	case mediaType == applicationJSON || strings.HasSuffix(mediaType, "+json"):
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return string(data)
		}
		return v
	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/xml",
		mediaType == "application/x-www-form-urlencoded":
		return string(data)
	}
	return data
}
