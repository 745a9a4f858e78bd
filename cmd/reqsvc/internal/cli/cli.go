// Package cli holds the helpers shared by the reqsvc commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/broady/reqsvc"
	"github.com/broady/reqsvc/config"
	"github.com/broady/reqsvc/httptransport"
	"github.com/broady/reqsvc/middleware"
)

// ParsePairs parses "key=value" arguments. A key given more than once
// collects its values into a []string, in order.
func ParsePairs(pairs []string) (reqsvc.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(reqsvc.Values, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid pair %q: expected key=value", pair)
		}
		switch prev := out[key].(type) {
		case nil:
			out[key] = value
		case string:
			out[key] = []string{prev, value}
		case []string:
			out[key] = append(prev, value)
		}
	}
	return out, nil
}

// ParseBody decodes s as JSON, falling back to the raw string.
// An empty s is no body.
func ParseBody(s string) any {
	if s == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// Options are the flags shared by the commands that perform calls.
type Options struct {
	Config    string
	Endpoint  string
	Verbose   bool
	RequestID bool
}

// LoadConfig reads the config file if any, applies the environment and
// the endpoint flag, and validates the result.
func LoadConfig(opts Options) (*config.Config, error) {
	cfg := &config.Config{}
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(config.DefaultEnvPrefix); err != nil {
		return nil, err
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = opts.Endpoint
	}
	if opts.RequestID {
		cfg.RequestID = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewLogger returns a text logger on w at the configured level.
func NewLogger(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewService wires the HTTP transport and the interceptors described by cfg.
func NewService(cfg *config.Config, logger *slog.Logger) *reqsvc.Service {
	t := httptransport.New(cfg.Endpoint).
		WithLogger(logger).
		WithTimeout(cfg.Timeout).
		WithBodyLogging(logger.Enabled(context.Background(), slog.LevelDebug))
	if cfg.UserAgent != "" {
		t.WithUserAgent(cfg.UserAgent)
	}
	for k, v := range cfg.Headers {
		t.WithHeader(k, v)
	}

	interceptors := []reqsvc.Interceptor{middleware.LoggingInterceptor(logger)}
	if cfg.RequestID {
		interceptors = append([]reqsvc.Interceptor{middleware.RequestID()}, interceptors...)
	}
	return reqsvc.NewService(reqsvc.Chain(t.Handle, interceptors...))
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintBody writes a response body: strings and bytes verbatim, anything
// else as JSON.
func PrintBody(w io.Writer, body any) error {
	switch b := body.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, b)
		return err
	case []byte:
		_, err := w.Write(b)
		return err
	}
	return PrintJSON(w, body)
}

// PrintAliases lists aliases sorted by name, one "name\ttarget" per line.
// Query aliases are marked with a "?" suffix.
func PrintAliases(w io.Writer, aliases, queryAliases reqsvc.AliasMap) {
	type line struct{ name, target string }
	var lines []line
	for name, target := range aliases {
		lines = append(lines, line{name, string(target)})
	}
	for name, target := range queryAliases {
		lines = append(lines, line{name + "?", string(target)})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].name < lines[j].name })
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%s\n", l.name, l.target)
	}
}
