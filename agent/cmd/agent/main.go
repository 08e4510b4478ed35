package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidianstack/statsrelay/agent/internal/config"
	"github.com/obsidianstack/statsrelay/agent/internal/runner"
	"github.com/obsidianstack/statsrelay/agent/internal/scraper"
	"github.com/obsidianstack/statsrelay/agent/internal/selfmetrics"
	"github.com/obsidianstack/statsrelay/agent/internal/shipper"
	"github.com/obsidianstack/statsrelay/pkg/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("statsrelay-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"method", cfg.Collector.Method,
		"sections", len(cfg.Collector.Sections),
		"hosts", cfg.Handler.Hosts,
		"codec", cfg.Handler.Codec,
		"collect_interval", cfg.Agent.CollectInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := selfmetrics.New()

	pub, err := shipper.New(cfg.Handler, metrics)
	if err != nil {
		slog.Error("failed to build publisher", "err", err)
		os.Exit(1)
	}
	defer pub.Close()

	col, err := scraper.New(cfg.Collector, func(m types.Metric) { pub.Process(ctx, m) }, metrics)
	if err != nil {
		slog.Error("failed to build collector", "err", err)
		os.Exit(1)
	}

	// Watch config file for hot-reload (logs only; components are not rebuilt).
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded, restart to apply",
				"sections", len(updated.Collector.Sections),
				"hosts", len(updated.Handler.Hosts))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	if cfg.Agent.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics)
		srv := &http.Server{Addr: cfg.Agent.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("self-metrics listener stopped", "addr", cfg.Agent.MetricsListen, "err", err)
			}
		}()
		defer srv.Close()
		slog.Info("self-metrics listening", "addr", cfg.Agent.MetricsListen)
	}

	runner.New(col, pub, cfg.Agent.CollectInterval, cfg.Agent.FlushInterval).Run(ctx)
	slog.Info("statsrelay-agent shut down")
}
