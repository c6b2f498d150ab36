// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// New creates an in-memory SQLite database and applies migrations
func New(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Connect(db.DriverSQLite, "file::memory:?_foreign_keys=on", 5*time.Second)
	require.NoError(t, err, "Failed to connect to in-memory DB")

	require.NoError(t, db.RunMigrations(database), "Failed to apply migrations")

	t.Cleanup(func() {
		database.Close()
	})
	return database
}
