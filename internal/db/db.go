package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect opens the database and verifies it answers within timeout.
func Connect(driver, dsn string, timeout time.Duration) (*sqlx.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	if driver == DriverSQLite {
		// One writer at a time anyway, and in-memory databases live on a single connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Warn("failed to close database handle after ping error", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return db, nil
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(db *sqlx.DB) error {
	ctx := context.Background()

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := migrationDriver(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to create migrate driver instance: %w", err)
	}
	// sqlite3's Close closes db itself; the postgres driver only holds a pool connection
	if db.DriverName() == DriverPostgres {
		defer func() {
			if err := driver.Close(); err != nil {
				slog.Warn("failed to release migration connection", "error", err)
			}
		}()
	}

	m, err := migrate.NewWithInstance("iofs", source, db.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// migrationDriver wraps db for golang-migrate. Postgres gets a dedicated
// connection so that closing the driver leaves db open.
func migrationDriver(ctx context.Context, db *sqlx.DB) (database.Driver, error) {
	switch db.DriverName() {
	case DriverSQLite:
		return sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	case DriverPostgres:
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve migration connection: %w", err)
		}
		driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			conn.Close()
			return nil, err
		}
		return driver, nil
	default:
		return nil, fmt.Errorf("no migration driver for %q", db.DriverName())
	}
}
