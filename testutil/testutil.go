// Package testutil provides test doubles and assertion helpers for code
// built on reqsvc. It imports reqsvc, so tests of reqsvc itself must use the
// reqsvc_test package to depend on it.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/broady/reqsvc"
	"github.com/go-chi/chi/v5"
)

// Call is a call recorded by Transport.
type Call struct {
	Target    reqsvc.Target
	Request   *reqsvc.Request
	RequestID string
}

// Transport is a reqsvc.Handler double. It records every call and answers
// with the scripted response of the call's target, or with Fallback.
type Transport struct {
	mu        sync.Mutex
	calls     []Call
	responses map[reqsvc.Target]reply

	// Fallback answers targets without a scripted reply. If nil, such
	// calls return a 200 response with an empty body.
	Fallback reqsvc.Handler
}

type reply struct {
	res *reqsvc.Response
	err error
}

// NewTransport returns an empty Transport.
func NewTransport() *Transport {
	return &Transport{responses: make(map[reqsvc.Target]reply)}
}

// Respond scripts a successful response with the given status and body.
func (t *Transport) Respond(target reqsvc.Target, status int, body any) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[target] = reply{res: &reqsvc.Response{
		OK:         status >= 200 && status < 300,
		Status:     status,
		StatusText: http.StatusText(status),
		Headers:    http.Header{},
		Body:       body,
	}}
	return t
}

// Fail scripts an error for target.
func (t *Transport) Fail(target reqsvc.Target, err error) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[target] = reply{err: err}
	return t
}

// Handle implements reqsvc.Handler.
func (t *Transport) Handle(ctx context.Context, target reqsvc.Target, req *reqsvc.Request) (*reqsvc.Response, error) {
	t.mu.Lock()
	t.calls = append(t.calls, Call{
		Target:    target,
		Request:   req,
		RequestID: reqsvc.RequestIDFromContext(ctx),
	})
	r, ok := t.responses[target]
	fallback := t.Fallback
	t.mu.Unlock()

	if ok {
		return r.res, r.err
	}
	if fallback != nil {
		return fallback(ctx, target, req)
	}
	return &reqsvc.Response{OK: true, Status: http.StatusOK, StatusText: "OK", Headers: http.Header{}}, nil
}

// Calls returns a copy of the recorded calls.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// LastCall returns the most recent call. It fails the test if there is none.
func (t *Transport) LastCall(tb testing.TB) Call {
	tb.Helper()
	calls := t.Calls()
	if len(calls) == 0 {
		tb.Fatal("expected at least one call, got none")
	}
	return calls[len(calls)-1]
}

// Echo is the body returned by the server of NewServer.
type Echo struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query"`
	Headers map[string]string   `json:"headers"`
	Body    json.RawMessage     `json:"body,omitempty"`
}

// NewServer starts an HTTP server that echoes every request as an Echo JSON
// document. Requests to /status/{code} are answered with that status code
// and a JSON body {"status": code}. The server is closed when the test ends.
func NewServer(tb testing.TB) *httptest.Server {
	tb.Helper()

	r := chi.NewRouter()
	r.HandleFunc("/status/{code}", func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(chi.URLParam(r, "code"))
		if err != nil || code < 100 || code > 999 {
			http.Error(w, "invalid status code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]int{"status": code})
	})
	r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		echo := Echo{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.Query(),
			Headers: make(map[string]string, len(r.Header)),
		}
		for k := range r.Header {
			echo.Headers[k] = r.Header.Get(k)
		}
		if r.Body != nil {
			var raw json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&raw); err == nil {
				echo.Body = raw
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echo)
	})

	srv := httptest.NewServer(r)
	tb.Cleanup(srv.Close)
	return srv
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(tb testing.TB, res *reqsvc.Response, expectedStatus int) {
	tb.Helper()
	if res == nil {
		tb.Fatalf("expected status %d, got nil response", expectedStatus)
	}
	if res.Status != expectedStatus {
		tb.Errorf("expected status %d, got %d\nBody: %v", expectedStatus, res.Status, res.Body)
	}
}

// AssertRequestError checks that err is a *reqsvc.RequestError with the
// expected status and returns it.
func AssertRequestError(tb testing.TB, err error, expectedStatus int) *reqsvc.RequestError {
	tb.Helper()
	var reqErr *reqsvc.RequestError
	if !errors.As(err, &reqErr) {
		tb.Fatalf("expected *reqsvc.RequestError, got %T: %v", err, err)
	}
	if reqErr.Status != expectedStatus {
		tb.Errorf("expected error status %d, got %d (message: %s)", expectedStatus, reqErr.Status, reqErr.Message)
	}
	return reqErr
}

// DecodeEcho decodes the body of a response from the server of NewServer.
func DecodeEcho(tb testing.TB, res *reqsvc.Response) Echo {
	tb.Helper()
	data, err := json.Marshal(res.Body)
	if err != nil {
		tb.Fatalf("failed to encode response body: %v", err)
	}
	var echo Echo
	if err := json.Unmarshal(data, &echo); err != nil {
		tb.Fatalf("failed to decode echo: %v\nBody: %s", err, data)
	}
	return echo
}
