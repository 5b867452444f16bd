// Package history persists comparison run metadata.
//
// Only counts, mode, session id and client IP are stored. Credential data
// from the compared exports never reaches the database. Two backends are
// available: PostgreSQL through pgx and an embedded SQLite file. Both apply
// their schema with golang-migrate on open.
package history

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/passgap/internal/config"
	"github.com/JonMunkholm/passgap/internal/core"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 20

// MaxRecentLimit caps how many runs Recent returns.
const MaxRecentLimit = 500

// Store is a core.RunStore that owns a database connection.
type Store interface {
	core.RunStore
	Driver() string
	Close() error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// Open connects the backend selected by cfg and applies migrations.
// It returns a nil Store and no error when history is disabled.
func Open(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	switch cfg.Driver() {
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg)
	case config.DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver())
	}
}

// clampLimit applies the default and maximum to a requested limit.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}
