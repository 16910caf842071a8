// Package testing provides testing utilities and helpers shared by the
// repository, tracker and handler tests.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/portfolio-analytics/internal/database"
)

// NewTestDB creates a SQLite database in a per-test temporary directory and
// applies the schema registered for name (e.g. "portfolio").
// The database is closed automatically when the test finishes.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	// Temporary files (not :memory:) so every pooled connection sees the same data
	path := filepath.Join(t.TempDir(), "test_"+name+".db")

	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	return db
}
