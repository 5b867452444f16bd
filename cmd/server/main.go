package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/passgap/internal/config"
	"github.com/JonMunkholm/passgap/internal/core"
	"github.com/JonMunkholm/passgap/internal/history"
	"github.com/JonMunkholm/passgap/internal/logging"
	"github.com/JonMunkholm/passgap/internal/web"
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
	slog.Debug("configuration", "config", cfg.String())

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_file_size", cfg.Upload.MaxFileSize,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"session_ttl", cfg.Session.TTL,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history", cfg.History.Driver(),
	)

	ctx := context.Background()
	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		slog.Error("failed to open history store", "driver", cfg.History.Driver(), "error", err)
		os.Exit(1)
	}

	// A nil store leaves history disabled.
	var runs core.RunStore
	if store != nil {
		runs = store
		slog.Info("comparison history enabled", "driver", store.Driver())
	}

	service := core.NewService(core.ServiceConfig{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		SessionTTL:    cfg.Session.TTL,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	}, runs)

	server := web.NewServer(service, cfg)

	// Background jobs stop when jobCtx is cancelled
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSessionJanitor(jobCtx, cfg.Session.SweepInterval)
	go service.StartHistoryPruner(jobCtx, core.PruneConfig{
		RetentionDays: cfg.History.RetentionDays,
		CheckInterval: cfg.History.PruneInterval,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for slot loads to complete", "active", status.Active)
			if err := service.WaitForLoads(shutdownCtx); err != nil {
				slog.Warn("slot loads did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		closeStore(store)
		os.Exit(1)
	}

	<-done
	closeStore(store)
	slog.Info("server stopped")
}

func closeStore(store history.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		slog.Error("close history store", "error", err)
	}
}
