package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/dictx/internal/config"
	"github.com/JonMunkholm/dictx/internal/core"
	"github.com/JonMunkholm/dictx/internal/logging"
	"github.com/JonMunkholm/dictx/internal/metrics"
	"github.com/JonMunkholm/dictx/internal/store/backend"
	"github.com/JonMunkholm/dictx/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Database.Driver,
		"default_format", cfg.Codec.DefaultFormat,
		"run_max_concurrent", cfg.Run.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg.Database, slog.Default())
	if err != nil {
		slog.Error("failed to open dictionary store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	opts, err := core.OptionsFromConfig(cfg)
	if err != nil {
		slog.Error("invalid codec options", "error", err)
		os.Exit(1)
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = metrics.New(prometheus.DefaultRegisterer)
	}
	service := core.NewService(store, opts, slog.Default())

	if tables, err := service.ListTables(ctx); err != nil {
		slog.Warn("could not read dictionary", "error", err)
	} else {
		slog.Info("dictionary loaded", "tables", len(tables))
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active runs to complete (with timeout)
		status := service.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
