// Package testing provides testing utilities and helpers for quarterbook.
package testing

import (
	"os"
	"testing"

	"github.com/rgeorgiou/quarterbook/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a temporary-file SQLite database for testing with the
// core schema applied. Returns the database instance and a cleanup function
// that closes the connection and removes the file. Using temporary files
// (rather than :memory:) keeps each test's database isolated across the
// connection pool.
func NewTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_core_*.db")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    "core",
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Migrate silently skips when the schemas directory cannot be located;
	// fail loudly here instead of letting every query error later.
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='investments'").Scan(&n); err != nil || n == 0 {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Core schema not applied to test database (err=%v)", err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
		if err := os.Remove(tmpPath); err != nil {
			t.Logf("Warning: Failed to remove temporary database file %s: %v", tmpPath, err)
		}
	}
}

// MustExec executes a statement against the test database and fails the test
// on error. Useful for seeding fixture rows.
func MustExec(t *testing.T, db *database.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("Failed to execute %q: %v", query, err)
	}
}
