package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/broady/reqsvc"
	"github.com/broady/reqsvc/cmd/reqsvc/internal/cli"
)

type CLI struct {
	Config    string `help:"Path to a YAML or TOML config file." short:"c" type:"path" env:"REQSVC_CONFIG"`
	Endpoint  string `help:"Endpoint targets are resolved against." short:"e"`
	Verbose   bool   `help:"Log at debug level." short:"v"`
	RequestID bool   `help:"Send a random X-Request-Id with each call." name:"request-id"`

	Version VersionCmd `cmd:"" help:"Print version information."`
	Resolve ResolveCmd `cmd:"" help:"Print the method and URL a target resolves to."`
	Send    SendCmd    `cmd:"" help:"Send a request to a target."`
	Call    CallCmd    `cmd:"" help:"Call an alias declared in the config file."`
	Aliases AliasesCmd `cmd:"" help:"List the aliases declared in the config file."`
}

func (c *CLI) options() cli.Options {
	return cli.Options{
		Config:    c.Config,
		Endpoint:  c.Endpoint,
		Verbose:   c.Verbose,
		RequestID: c.RequestID,
	}
}

// RequestFlags describe the request sent to a target.
type RequestFlags struct {
	Method  string   `help:"Method overriding the target's." short:"X"`
	URL     string   `help:"URL overriding the target's location." name:"url"`
	Params  []string `help:"Path param as key=value." short:"P" name:"param"`
	Query   []string `help:"Query param as key=value. Repeat a key for multiple values." short:"q"`
	Headers []string `help:"Header as key=value." short:"H" name:"header"`
	Body    string   `help:"Request body. Valid JSON is sent as JSON."`
}

func (f *RequestFlags) request() (*reqsvc.Request, error) {
	params, err := cli.ParsePairs(f.Params)
	if err != nil {
		return nil, fmt.Errorf("--param: %w", err)
	}
	query, err := cli.ParsePairs(f.Query)
	if err != nil {
		return nil, fmt.Errorf("--query: %w", err)
	}
	headers, err := cli.ParsePairs(f.Headers)
	if err != nil {
		return nil, fmt.Errorf("--header: %w", err)
	}
	return &reqsvc.Request{
		Method:  f.Method,
		URL:     f.URL,
		Params:  params,
		Query:   query,
		Headers: headers,
		Body:    cli.ParseBody(f.Body),
	}, nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

type ResolveCmd struct {
	Target       string `arg:"" help:"Target, e.g. \"GET /items/:id\"."`
	RequestFlags `embed:""`
}

func (c *ResolveCmd) Run(root *CLI) error {
	cfg, err := cli.LoadConfig(root.options())
	if err != nil {
		return err
	}
	req, err := c.request()
	if err != nil {
		return err
	}
	action := reqsvc.ResolveAction(req, reqsvc.Target(c.Target), cfg.Endpoint)
	return cli.PrintJSON(os.Stdout, action)
}

type SendCmd struct {
	Target       string `arg:"" help:"Target, e.g. \"GET /items/:id\"."`
	Include      bool   `help:"Print the status line before the body." short:"i"`
	RequestFlags `embed:""`
}

func (c *SendCmd) Run(ctx context.Context, root *CLI) error {
	cfg, err := cli.LoadConfig(root.options())
	if err != nil {
		return err
	}
	req, err := c.request()
	if err != nil {
		return err
	}
	svc := cli.NewService(cfg, cli.NewLogger(os.Stderr, cfg, root.Verbose))
	res, err := svc.Send(ctx, reqsvc.Target(c.Target), req)
	if err != nil {
		return err
	}
	return printResponse(res, c.Include)
}

type CallCmd struct {
	Alias        string `arg:"" help:"Alias name."`
	Include      bool   `help:"Print the status line before the body." short:"i"`
	RequestFlags `embed:""`
}

func (c *CallCmd) Run(ctx context.Context, root *CLI) error {
	cfg, err := cli.LoadConfig(root.options())
	if err != nil {
		return err
	}
	svc := cli.NewService(cfg, cli.NewLogger(os.Stderr, cfg, root.Verbose))

	var res *reqsvc.Response
	if call, ok := svc.QueryEntry(cfg.QueryAliasMap())[c.Alias]; ok {
		query, err := cli.ParsePairs(c.Query)
		if err != nil {
			return fmt.Errorf("--query: %w", err)
		}
		res, err = call(ctx, query)
		if err != nil {
			return err
		}
	} else if call, ok := svc.Entry(cfg.AliasMap())[c.Alias]; ok {
		req, err := c.request()
		if err != nil {
			return err
		}
		res, err = call(ctx, req)
		if err != nil {
			return err
		}
	} else {
		return fmt.Errorf("unknown alias %q", c.Alias)
	}
	return printResponse(res, c.Include)
}

type AliasesCmd struct{}

func (c *AliasesCmd) Run(root *CLI) error {
	cfg, err := cli.LoadConfig(root.options())
	if err != nil {
		return err
	}
	cli.PrintAliases(os.Stdout, cfg.AliasMap(), cfg.QueryAliasMap())
	return nil
}

func printResponse(res *reqsvc.Response, include bool) error {
	if res == nil {
		return nil
	}
	if include {
		fmt.Println(res.StatusText)
	}
	return cli.PrintBody(os.Stdout, res.Body)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := &CLI{}
	kctx := kong.Parse(root,
		kong.Name("reqsvc"),
		kong.Description("Resolve and send requests described by targets such as \"GET /items/:id\"."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(root),
	)
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
