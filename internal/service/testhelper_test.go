package service

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/shelfwatch/shelfwatch/internal/database/migrations"
	"github.com/shelfwatch/shelfwatch/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestDB creates an in-memory SQLite database with migrations
// applied, cleaned up when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupIngestion wires an ingestion service over a fresh test database.
func setupIngestion(t *testing.T) (*IngestionService, *sql.DB, *repository.Repositories) {
	t.Helper()
	db := setupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewIngestionService(db, repos, testLogger()), db, repos
}

// countRows counts rows in a table, optionally filtered.
func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

// insertProduct inserts a product row directly, returning its id.
func insertProduct(t *testing.T, db *sql.DB, url string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`
		INSERT INTO products (url, name, created_at, updated_at)
		VALUES (?, 'Seed Product', datetime('now'), datetime('now'))
		RETURNING id
	`, url).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}
	return id
}
