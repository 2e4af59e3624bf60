package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/gateway"
	"github.com/oculairmedia/context-gateway/internal/telemetry"
)

// runServe is the default command: load config, wire the pipeline,
// serve until SIGINT/SIGTERM.
func runServe() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := gateway.NewServer(cfg)

	tracer, err := telemetry.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		srv.SetTracer(tracer)
	}

	// Reloads re-apply runtime toggles; listener and upstream URLs
	// need a restart.
	go func() {
		if err := config.Watch(ctx, cfgPath, srv.ApplyConfig); err != nil {
			slog.Warn("config watcher unavailable", "error", err)
		}
	}()

	serveErr := srv.Start(ctx)
	stop()

	srv.Tracker().Close()
	if tracer != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracer.Shutdown(flushCtx); err != nil {
			slog.Warn("trace flush failed", "error", err)
		}
		cancel()
	}

	if serveErr != nil {
		slog.Error("gateway exited", "error", serveErr)
		os.Exit(1)
	}
	slog.Info("gateway stopped")
}
