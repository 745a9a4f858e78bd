package reqsvc

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDecodeBody(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		got, err := DecodeBody[*item](nil)
		if err != nil || got != nil {
			t.Errorf("expected (nil, nil), got (%v, %v)", got, err)
		}
	})

	t.Run("typed body", func(t *testing.T) {
		want := &item{ID: 1}
		got, err := DecodeBody[*item](&Response{Body: want})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Error("expected the same pointer")
		}
	})

	t.Run("decoded json map", func(t *testing.T) {
		got, err := DecodeBody[item](&Response{Body: map[string]any{"id": float64(2), "name": "b"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(item{ID: 2, Name: "b"}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("json bytes", func(t *testing.T) {
		got, err := DecodeBody[[]item](&Response{Body: []byte(`[{"id":3}]`)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]item{{ID: 3}}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("json string", func(t *testing.T) {
		got, err := DecodeBody[map[string]int](&Response{Body: `{"a":1}`})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["a"] != 1 {
			t.Errorf("expected a=1, got %v", got)
		}
	})

	t.Run("raw message", func(t *testing.T) {
		got, err := DecodeBody[item](&Response{Body: json.RawMessage(`{"id":4}`)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != 4 {
			t.Errorf("expected id 4, got %d", got.ID)
		}
	})

	t.Run("bytes as string", func(t *testing.T) {
		got, err := DecodeBody[string](&Response{Body: []byte("<html>")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "<html>" {
			t.Errorf("expected <html>, got %q", got)
		}
	})

	t.Run("string as bytes", func(t *testing.T) {
		got, err := DecodeBody[[]byte](&Response{Body: "raw"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != "raw" {
			t.Errorf("expected raw, got %q", got)
		}
	})

	t.Run("empty bytes", func(t *testing.T) {
		got, err := DecodeBody[*item](&Response{Body: []byte{}})
		if err != nil || got != nil {
			t.Errorf("expected (nil, nil), got (%v, %v)", got, err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := DecodeBody[item](&Response{Body: "not json"}); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("mismatched shape", func(t *testing.T) {
		if _, err := DecodeBody[item](&Response{Body: []any{1, 2}}); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name string
		res  *http.Response
		want string
	}{
		{"standard", &http.Response{StatusCode: 404, Status: "404 Not Found"}, "Not Found"},
		{"custom phrase", &http.Response{StatusCode: 200, Status: "200 Fine"}, "Fine"},
		{"no status line", &http.Response{StatusCode: 503}, "Service Unavailable"},
		{"code only", &http.Response{StatusCode: 418, Status: "418"}, "I'm a teapot"},
		{"unusual status line", &http.Response{StatusCode: 500, Status: "oops"}, "oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusText(tt.res); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
