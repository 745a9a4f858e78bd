package reqsvc

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestStringValues(t *testing.T) {
	if StringValues(nil) != nil {
		t.Error("expected nil for nil values")
	}

	got := StringValues(Values{
		"Accept":  "application/json",
		"X-Count": 3,
		"X-Flag":  true,
		"X-List":  []string{"a", "b"},
		"X-Nil":   nil,
		"X-Ptr":   (*int)(nil),
	})
	want := map[string]string{
		"Accept":  "application/json",
		"X-Count": "3",
		"X-Flag":  "true",
		"X-List":  `["a","b"]`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StringValues mismatch (-want +got):\n%s", diff)
	}
}

type color int

func (c color) String() string { return [...]string{"red", "green"}[c] }

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{12, "12"},
		{int64(-4), "-4"},
		{1.5, "1.5"},
		{float64(100), "100"},
		{float32(0.25), "0.25"},
		{true, "true"},
		{[]byte("b"), "b"},
		{color(1), "green"},
		{uint8(7), "7"},
		{2 * time.Second, "2s"},
	}
	for _, tt := range tests {
		if got := stringify(tt.in); got != tt.want {
			t.Errorf("stringify(%#v) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		in   any
		want []string
	}{
		{"a", []string{"a"}},
		{[]string{"a", "b"}, []string{"a", "b"}},
		{[]int{1, 2}, []string{"1", "2"}},
		{[]any{"x", nil, 3}, []string{"x", "3"}},
		{[2]bool{true, false}, []string{"true", "false"}},
		{[]byte("raw"), []string{"raw"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, expand(tt.in)); diff != "" {
			t.Errorf("expand(%#v) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
