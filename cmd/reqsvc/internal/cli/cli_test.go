package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/broady/reqsvc"
	"github.com/broady/reqsvc/config"
	"github.com/broady/reqsvc/testutil"
	"github.com/google/go-cmp/cmp"
)

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    reqsvc.Values
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: nil},
		{name: "single", pairs: []string{"id=12"}, want: reqsvc.Values{"id": "12"}},
		{name: "value with equals", pairs: []string{"q=a=b"}, want: reqsvc.Values{"q": "a=b"}},
		{name: "empty value", pairs: []string{"q="}, want: reqsvc.Values{"q": ""}},
		{
			name:  "repeated key",
			pairs: []string{"tag=a", "tag=b", "tag=c", "x=1"},
			want:  reqsvc.Values{"tag": []string{"a", "b", "c"}, "x": "1"},
		},
		{name: "missing equals", pairs: []string{"id"}, wantErr: true},
		{name: "missing key", pairs: []string{"=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePairs(tt.pairs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePairs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseBody(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{`{"a":1}`, map[string]any{"a": float64(1)}},
		{`[1,2]`, []any{float64(1), float64(2)}},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseBody(tt.in)); diff != "" {
			t.Errorf("ParseBody(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reqsvc.yaml")
	data := []byte("endpoint: https://from-file.example\ntimeout: 2s\naliases:\n  item: GET /items/:id\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REQSVC_USER_AGENT", "cli-test")

	cfg, err := LoadConfig(Options{Config: path, Endpoint: "https://flag.example", RequestID: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Endpoint != "https://flag.example" {
		t.Errorf("expected endpoint flag to win, got %q", cfg.Endpoint)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("expected timeout 2s, got %v", cfg.Timeout)
	}
	if cfg.UserAgent != "cli-test" {
		t.Errorf("expected user agent from env, got %q", cfg.UserAgent)
	}
	if !cfg.RequestID {
		t.Error("expected request id to be enabled")
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(Options{Config: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestNewService(t *testing.T) {
	srv := testutil.NewServer(t)
	cfg := &config.Config{
		Endpoint:  srv.URL + "/api",
		UserAgent: "reqsvc-test",
		RequestID: true,
		Headers:   map[string]string{"X-Token": "secret"},
	}
	var logs bytes.Buffer
	svc := NewService(cfg, NewLogger(&logs, cfg, true))

	res, err := svc.Send(context.Background(), "GET /items/:id", &reqsvc.Request{
		Params: reqsvc.Values{"id": 7},
		Query:  reqsvc.Values{"tag": []string{"a", "b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	echo := testutil.DecodeEcho(t, res)
	if echo.Path != "/api/items/7" {
		t.Errorf("expected path /api/items/7, got %s", echo.Path)
	}
	if diff := cmp.Diff([]string{"a", "b"}, echo.Query["tag"]); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	if echo.Headers["User-Agent"] != "reqsvc-test" {
		t.Errorf("expected User-Agent reqsvc-test, got %q", echo.Headers["User-Agent"])
	}
	if echo.Headers["X-Token"] != "secret" {
		t.Errorf("expected X-Token header, got %q", echo.Headers["X-Token"])
	}
	if echo.Headers["X-Request-Id"] == "" {
		t.Error("expected X-Request-Id header to be set")
	}
	if !bytes.Contains(logs.Bytes(), []byte("request completed")) {
		t.Errorf("expected completion log, got %s", logs.String())
	}
}

func TestPrintBody(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello\n"},
		{"bytes", []byte("raw"), "raw"},
		{"json", map[string]any{"a": 1}, "{\n  \"a\": 1\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := PrintBody(&buf, tt.body); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestPrintAliases(t *testing.T) {
	var buf bytes.Buffer
	PrintAliases(&buf,
		reqsvc.AliasMap{"section": "GET /:section", "item": "GET /items/:id"},
		reqsvc.AliasMap{"search": "GET /w"})

	want := "item\tGET /items/:id\nsearch?\tGET /w\nsection\tGET /:section\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}
