package reqsvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Empty represents an operation without a meaningful request or response.
// The zero value is nil, which serializes to JSON null.
type Empty *struct{}

// Response is what a handler returns for a successful call.
//
// Body holds whatever the handler produced: decoded JSON, a string, raw
// bytes or an already typed value.
type Response struct {
	OK         bool        `json:"ok"`
	Status     int         `json:"status"`
	StatusText string      `json:"statusText,omitempty"`
	Headers    http.Header `json:"headers,omitempty"`
	Body       any         `json:"body,omitempty"`
}

// DecodeBody converts the body of res into a T.
//
// A body that already is a T is returned as is. Byte and string bodies are
// parsed as JSON unless T is itself a string or []byte. Any other body is
// re-encoded through JSON, which turns decoded maps into structs.
func DecodeBody[T any](res *Response) (T, error) {
	var out T
	if res == nil || res.Body == nil {
		return out, nil
	}
	if v, ok := res.Body.(T); ok {
		return v, nil
	}

	switch p := any(&out).(type) {
	case *string:
		if body, ok := res.Body.([]byte); ok {
			*p = string(body)
			return out, nil
		}
	case *[]byte:
		if body, ok := res.Body.(string); ok {
			*p = []byte(body)
			return out, nil
		}
	}

	var data []byte
	switch body := res.Body.(type) {
	case []byte:
		data = body
	case string:
		data = []byte(body)
	case json.RawMessage:
		data = body
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return out, fmt.Errorf("encode response body: %w", err)
		}
		data = encoded
	}

	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode response body: %w", err)
	}
	return out, nil
}

// StatusText returns the reason phrase of res, e.g. "Not Found".
func StatusText(res *http.Response) string {
	code := strconv.Itoa(res.StatusCode)
	if text, ok := strings.CutPrefix(res.Status, code+" "); ok {
		return text
	}
	if res.Status != "" && res.Status != code {
		return res.Status
	}
	return http.StatusText(res.StatusCode)
}
