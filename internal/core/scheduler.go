package core

// scheduler.go runs the two background maintenance jobs:
//
//  1. The session janitor drops sessions idle past the session TTL, which
//     releases the exports they held in memory.
//  2. The history pruner deletes comparison runs older than the retention
//     window when a RunStore is configured.
//
// Both run until their context is cancelled. A failed cycle is logged and
// the next tick tries again.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the session janitor runs.
const DefaultSweepInterval = 5 * time.Minute

// PruneConfig holds history retention settings.
type PruneConfig struct {
	RetentionDays int           // Days of runs to keep (default: 90)
	CheckInterval time.Duration // How often to prune (default: 24h)
}

// StartSessionJanitor sweeps idle sessions every interval until ctx ends.
func (s *Service) StartSessionJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session janitor started",
		"interval", interval.String(),
		"ttl", s.cfg.SessionTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			if removed := s.SweepSessions(); removed > 0 {
				slog.Info("expired sessions swept",
					"removed", removed,
					"remaining", s.SessionCount(),
				)
			}
		}
	}
}

// StartHistoryPruner deletes old comparison runs. It runs once immediately,
// then every CheckInterval. It returns at once when history is disabled.
func (s *Service) StartHistoryPruner(ctx context.Context, cfg PruneConfig) {
	if s.runs == nil {
		return
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}

	slog.Info("history pruner started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval.String(),
	)

	s.pruneHistory(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history pruner stopped")
			return
		case <-ticker.C:
			s.pruneHistory(ctx, cfg)
		}
	}
}

// pruneHistory performs one prune cycle.
func (s *Service) pruneHistory(ctx context.Context, cfg PruneConfig) {
	start := time.Now()
	before := s.now().UTC().AddDate(0, 0, -cfg.RetentionDays)

	deleted, err := s.runs.Prune(ctx, before)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}

	slog.Info("history pruned",
		"runs_deleted", deleted,
		"before", before.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
