package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gojs9/gojs9/js9"
)

func main() {
	app := &cli.App{
		Name:      "js9msg",
		Usage:     "send a command to a JS9 display and print the result",
		ArgsUsage: "COMMAND [ARG...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host (and optionally port) of the JS9 back-end helper.",
			},
			&cli.StringFlag{
				Name:  "display",
				Usage: "The JS9 display id to send the command to.",
			},
			&cli.StringFlag{
				Name:  "transport",
				Usage: "How to reach the helper. One of [auto,http,socket].",
			},
			&cli.StringFlag{
				Name:  "timeout",
				Usage: "Duration to wait for the helper's reply.",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path of the YAML file supplying flag defaults.",
				Value: defaultConfigPath(),
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("no command given, usage: js9msg COMMAND [ARG...]")
	}

	cfg, err := loadConfig(ctx.String("config"))
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	host := ctx.String("host")
	if host == "" {
		host = cfg.Host
	}
	display := ctx.String("display")
	if display == "" {
		display = cfg.Display
	}
	transportName := ctx.String("transport")
	if transportName == "" {
		transportName = cfg.Transport
	}
	timeoutStr := ctx.String("timeout")
	if timeoutStr == "" {
		timeoutStr = cfg.Timeout
	}

	kind, err := parseTransport(transportName)
	if err != nil {
		return err
	}

	opts := []js9.Option{js9.WithTransportKind(kind)}
	if display != "" {
		opts = append(opts, js9.WithDisplay(display))
	}
	if timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		opts = append(opts, js9.WithCallTimeout(timeout))
	}

	client, err := js9.New(host, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	args := make([]any, ctx.NArg()-1)
	for i, raw := range ctx.Args().Tail() {
		args[i] = parseArg(raw)
	}

	res, err := client.Invoke(ctx.Context, ctx.Args().First(), args...)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func parseTransport(name string) (js9.TransportKind, error) {
	switch name {
	case "", "auto":
		return js9.TransportAuto, nil
	case "http":
		return js9.TransportHTTP, nil
	case "socket":
		return js9.TransportSocket, nil
	default:
		return 0, fmt.Errorf("unsupported transport %q", name)
	}
}

// parseArg reads an argument as the JSON it looks like, so numbers, bools,
// arrays and objects go over the wire typed. Anything that does not parse
// is a plain string.
func parseArg(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// printResult writes string results bare, the way the helper's plain-text
// responses read, and everything else as indented JSON.
func printResult(res js9.Result) {
	if res.IsNull() {
		return
	}
	if s := res.Str(); s != "" {
		fmt.Println(s)
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, res.Raw(), "", "  "); err != nil {
		fmt.Println(string(res.Raw()))
		return
	}
	fmt.Println(buf.String())
}
