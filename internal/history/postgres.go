package history

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/passgap/internal/config"
	"github.com/JonMunkholm/passgap/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps comparison runs in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool using cfg, verifies it and applies
// migrations over a separate database/sql connection.
func NewPostgresStore(ctx context.Context, cfg config.HistoryConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runPostgresMigrations(stdlib.OpenDB(*poolConfig.ConnConfig)); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Driver implements Store.
func (s *PostgresStore) Driver() string { return config.DriverPostgres }

// Record inserts run.
func (s *PostgresStore) Record(ctx context.Context, run core.ComparisonRun) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("record run: invalid id %q: %w", run.ID, err)
	}

	const query = `
		INSERT INTO comparison_runs (id, session_id, strict, source_a, source_b, missing, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := s.pool.Exec(ctx, query,
		id, run.SessionID, run.Strict, run.SourceA, run.SourceB, run.Missing, run.IPAddress, run.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]core.ComparisonRun, error) {
	const query = `
		SELECT id, session_id, strict, source_a, source_b, missing, ip_address, created_at
		FROM comparison_runs
		ORDER BY created_at DESC, id
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ComparisonRun, error) {
		var (
			run core.ComparisonRun
			id  uuid.UUID
		)
		err := row.Scan(&id, &run.SessionID, &run.Strict, &run.SourceA, &run.SourceB,
			&run.Missing, &run.IPAddress, &run.CreatedAt)
		run.ID = id.String()
		run.CreatedAt = run.CreatedAt.UTC()
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs created before the cutoff.
func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comparison_runs WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
