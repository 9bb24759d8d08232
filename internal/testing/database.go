package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/teranos/pmcal/db"
)

// CreateTestDB creates a migrated SQLite test database in a temp directory.
// A file is used rather than :memory: so every pooled connection sees the
// same database, which the concurrency tests depend on.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pmcal_test.db")
	testDB, err := db.OpenWithMigrations(path, nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}
