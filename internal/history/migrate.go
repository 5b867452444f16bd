package history

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// runSQLiteMigrations applies the embedded SQLite migrations to db.
// Already-applied migrations are skipped.
func runSQLiteMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}
	m, err := newMigrator("migrations/sqlite", "sqlite", driver)
	if err != nil {
		return err
	}
	return up(m)
}

// runPostgresMigrations applies the embedded Postgres migrations and closes
// db when done.
func runPostgresMigrations(db *sql.DB) error {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create postgres migration driver: %w", err)
	}
	m, err := newMigrator("migrations/postgres", "pgx5", driver)
	if err != nil {
		_ = driver.Close()
		return err
	}
	defer m.Close()

	return up(m)
}

func newMigrator(dir, name string, driver database.Driver) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
