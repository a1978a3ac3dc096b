// Command jsondb-client sends one request to a jsondb server and prints the
// exchange.
//
// The request is built from -t, -k and -v, or read from a JSON or YAML file
// with -in.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/jsondb/internal/client"
	"github.com/maruel/jsondb/internal/protocol"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(os.Stdout, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "jsondb-client: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("jsondb-client", flag.ContinueOnError)
	addr := fs.String("addr", client.DefaultAddr, "Server address")
	typ := fs.String("t", "", "Request type: get, set, delete or exit")
	key := fs.String("k", "", "Key")
	val := fs.String("v", "", "Value, sent as a string (set only)")
	in := fs.String("in", "", "Read the request from a JSON or YAML file instead")
	schema := fs.Bool("schema", false, "Print the JSON Schema of requests and responses and exit")
	timeout := fs.Duration("timeout", 0, "Give up after this long (0 means never)")
	verbose := fs.Bool("verbose", false, "Log connection details")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unknown arguments: %v", fs.Args())
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	if *schema {
		data, err := protocol.SchemaJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	payload, err := buildRequest(*typ, *key, *val, *in)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	c := client.New(*addr)
	slog.DebugContext(ctx, "Connecting", "addr", c.Addr)
	start := time.Now()
	fmt.Fprintln(w, "Client started!")
	resp, err := c.Send(ctx, payload)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Exchange done", "duration", time.Since(start))
	_, err = fmt.Fprintf(w, "Sent: %s\nReceived: %s\n", payload, resp)
	return err
}

// buildRequest returns the request payload from either a file or flags.
func buildRequest(typ, key, val, in string) ([]byte, error) {
	switch {
	case in != "" && typ != "":
		return nil, errors.New("use either -in or -t, not both")
	case in != "":
		return client.LoadRequestFile(in)
	case typ != "":
		return client.FlagRequest(typ, key, val), nil
	default:
		return nil, errors.New("-t or -in is required")
	}
}
