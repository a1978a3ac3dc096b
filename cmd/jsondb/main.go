// Package main is the entry point for the jsondb server.
//
// jsondb keeps a single JSON document in memory, mirrors it to
// <data-dir>/db.json after every change, and answers get/set/delete requests
// sent as length-prefixed JSON frames over TCP. Configuration is read from
// CLI flags, a .env file in the data directory, and server_config.json.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/jsondb/internal/client"
	"github.com/maruel/jsondb/internal/config"
	"github.com/maruel/jsondb/internal/server"
	"github.com/maruel/jsondb/internal/server/ratelimit"
	"github.com/maruel/jsondb/internal/storage"
	"github.com/maruel/jsondb/internal/storage/git"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "jsondb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	addr := flag.String("addr", client.DefaultAddr, "Address to listen on (e.g., localhost:23456, :23456, 0.0.0.0:23456)")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	workers := flag.Int("workers", 0, "Concurrent requests; overrides server_config.json (0 means one per CPU)")
	history := flag.Bool("history", false, "Commit every change to a git repository in the data directory; overrides server_config.json")
	showLog := flag.Bool("log", false, "Print the document's revision history and exit")
	logN := flag.Int("n", 20, "Number of revisions printed by -log")
	at := flag.String("at", "", "Print the document at this revision (commit hash or HEAD) and exit")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}
	if *showLog && *at != "" {
		return errors.New("-log and -at are mutually exclusive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(ll))

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}
	serverCfg, err := config.Load(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", config.FileName, err)
	}

	// Override with .env file values if not explicitly set via flags
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["addr"] {
		if v := env["ADDR"]; v != "" {
			*addr = v
		}
	}
	if !set["log-level"] {
		if v := env["LOG_LEVEL"]; v != "" {
			*logLevel = v
		}
	}
	if set["workers"] {
		if *workers < 0 {
			return errors.New("-workers must be non-negative")
		}
		serverCfg.Workers = *workers
	}
	if set["history"] {
		serverCfg.History = *history
	}

	// ":23456" becomes "localhost:23456"
	listenAddr := *addr
	if strings.HasPrefix(listenAddr, ":") {
		listenAddr = "localhost" + listenAddr
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	switch {
	case *showLog:
		return printHistory(ctx, os.Stdout, *dataDir, *logN)
	case *at != "":
		return printAt(ctx, os.Stdout, *dataDir, *at)
	}

	opts := &storage.Options{}
	if serverCfg.History {
		name, email, err := serverCfg.Author()
		if err != nil {
			return err
		}
		repo, err := git.Open(ctx, *dataDir, git.Author{Name: name, Email: email})
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		n, err := repo.CommitCount(ctx)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "History enabled", "dir", repo.Dir(), "commits", n)
		opts.Recorder = repo
	}
	engine := storage.Open(filepath.Join(*dataDir, docFile), opts)

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	srvCfg := &server.Config{Workers: serverCfg.Workers}
	if serverCfg.RatePerMin > 0 {
		l := ratelimit.New(serverCfg.RatePerMin, serverCfg.RateBurst)
		defer l.Close()
		srvCfg.Limiter = l
		slog.InfoContext(ctx, "Rate limiting enabled", "per_min", serverCfg.RatePerMin, "burst", serverCfg.RateBurst)
	}
	buildVersion, _, _, _ := getBuildInfo()
	slog.InfoContext(ctx, "Starting server", "addr", listenAddr, "data", engine.Path(), "version", buildVersion)
	start := time.Now()
	if err := server.New(engine, srvCfg).ListenAndServe(ctx, listenAddr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.InfoContext(ctx, "Server exited", "uptime", time.Since(start).Round(time.Second))
	return nil
}

// newLogger returns a tint logger writing to stderr at level ll.
func newLogger(ll *slog.LevelVar) *slog.Logger {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if skipAttr(a.Value.Any()) {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// skipAttr reports whether a log attribute holds a zero value.
func skipAttr(val any) bool {
	switch t := val.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case uint64:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case time.Time:
		return t.IsZero()
	case time.Duration:
		return t == 0
	case nil:
		return true
	}
	return false
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("jsondb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
