// # cmd/crateview/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crateview/internal/config"
	"crateview/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./crateview.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single scrape and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("crateview v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config; a missing file falls back to defaults so the common
	// `crateview path/to/crate` invocation needs no config at all.
	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath != "./crateview.toml" {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}

	if flag.NArg() > 0 {
		cfg.Crates = flag.Args()
	}

	ctx := context.Background()

	if cfg.Tracing.Endpoint != "" {
		shutdown, err := observability.InitTracing(ctx, cfg.Tracing.Endpoint)
		if err != nil {
			slog.Error("failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				slog.Warn("trace flush failed", "error", err)
			}
		}()
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	var obs *ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obs = NewObservabilityServer(cfg.Metrics.Addr, app)
		if err := obs.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			os.Exit(1)
		}
		defer obs.Stop(ctx)
	}

	if err := app.ScrapeAll(ctx); err != nil {
		slog.Error("scrape failed", "error", err)
		os.Exit(1)
	}

	if *once {
		return
	}

	if err := app.StartWatcher(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	slog.Info("watching for changes", "crates", cfg.Crates)

	cw := config.NewWatcher(*configPath, func(newCfg *config.Config) {
		if flag.NArg() > 0 {
			newCfg.Crates = flag.Args()
		}
		app.Reconfigure(newCfg)
		if err := app.ScrapeAll(ctx); err != nil {
			slog.Error("re-scrape after config reload failed", "error", err)
		}
	})
	if err := cw.Start(ctx); err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	} else {
		defer cw.Stop()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")
}
