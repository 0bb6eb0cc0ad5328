// Package sqldbtest opens throwaway databases for tests.
package sqldbtest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
)

// New returns a migrated in-memory SQLite service that is closed when the test
// ends.
func New(tb testing.TB) sqldb.Service {
	tb.Helper()

	db, err := sqldb.New(context.Background(), sqldb.Config{
		Driver: sqldb.DriverSQLite,
		URL:    ":memory:",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		tb.Fatalf("opening test database: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}
