package testsupport

import (
	"io/fs"
	"sort"
	"testing"

	"agrisite-api/migrations"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB opens a private in-memory SQLite database with every embedded up migration
// applied. The database is closed when the test finishes.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// Use a non-shared in-memory database for complete test isolation.
	db, err := sqlx.Connect("sqlite3", "file::memory:")
	if err != nil {
		t.Fatalf("Failed to connect to sqlite test database: %v", err)
	}
	// Every new connection would see an empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	files, err := fs.Glob(migrations.FS, "sqlite/*.up.sql")
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	sort.Strings(files)
	for _, name := range files {
		schema, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			t.Fatalf("Failed to read migration %s: %v", name, err)
		}
		db.MustExec(string(schema))
	}
	return db
}
