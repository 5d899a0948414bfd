// Package testing provides testing utilities and helpers for the paperdesk project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/paperdesk/internal/database"
)

// NewTestDB creates a migrated SQLite database in the test's temp directory.
// The database is closed automatically when the test finishes.
//
// Supported schema names:
//   - "market_cache" - applies market_cache_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileCache,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}
