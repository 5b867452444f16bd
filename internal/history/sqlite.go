package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JonMunkholm/passgap/internal/config"
	"github.com/JonMunkholm/passgap/internal/core"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps comparison runs in an SQLite file. Writes go through a
// single connection to avoid "database is locked" errors; reads use a small
// pool. Timestamps are stored as Unix milliseconds.
type SQLiteStore struct {
	writer *sql.DB
	reader *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path with WAL
// mode and applies migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	return openSQLite(dsn)
}

func openSQLite(dsn string) (*SQLiteStore, error) {
	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := reader.Ping(); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	if err := runSQLiteMigrations(writer); err != nil {
		reader.Close()
		writer.Close()
		return nil, err
	}

	return &SQLiteStore{writer: writer, reader: reader}, nil
}

// Driver implements Store.
func (s *SQLiteStore) Driver() string { return config.DriverSQLite }

// Record inserts run.
func (s *SQLiteStore) Record(ctx context.Context, run core.ComparisonRun) error {
	const query = `
		INSERT INTO comparison_runs (id, session_id, strict, source_a, source_b, missing, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	strict := 0
	if run.Strict {
		strict = 1
	}

	if _, err := s.writer.ExecContext(ctx, query,
		run.ID, run.SessionID, strict, run.SourceA, run.SourceB, run.Missing, run.IPAddress, run.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]core.ComparisonRun, error) {
	const query = `
		SELECT id, session_id, strict, source_a, source_b, missing, ip_address, created_at
		FROM comparison_runs
		ORDER BY created_at DESC, id
		LIMIT ?`

	rows, err := s.reader.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	runs := make([]core.ComparisonRun, 0)
	for rows.Next() {
		var (
			run       core.ComparisonRun
			strict    int
			createdAt int64
		)
		if err := rows.Scan(&run.ID, &run.SessionID, &strict, &run.SourceA, &run.SourceB,
			&run.Missing, &run.IPAddress, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Strict = strict != 0
		run.CreatedAt = time.UnixMilli(createdAt).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs created before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.writer.ExecContext(ctx, `DELETE FROM comparison_runs WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return n, nil
}

// Close closes both connections. Returns the first error encountered.
func (s *SQLiteStore) Close() error {
	var firstErr error

	if err := s.reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if err := s.writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}
