package repository

import (
	"database/sql"
	"testing"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/shelfwatch/shelfwatch/internal/database/migrations"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Create in-memory database
	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	// Run migrations
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Clean up when test completes
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// InsertTestProduct is a helper to insert a product directly, returning its id.
func InsertTestProduct(t *testing.T, db *sql.DB, url string) int64 {
	t.Helper()
	query := `
		INSERT INTO products (url, name, created_at, updated_at)
		VALUES (?, 'Test Product', datetime('now'), datetime('now'))
		RETURNING id
	`
	var id int64
	if err := db.QueryRow(query, url).Scan(&id); err != nil {
		t.Fatalf("failed to insert test product: %v", err)
	}
	return id
}

// InsertTestVariant is a helper to insert a variant directly, returning its id.
// Pass an empty sku for a sku-less variant.
func InsertTestVariant(t *testing.T, db *sql.DB, productID int64, sku, attributes string) int64 {
	t.Helper()
	var skuVal interface{}
	if sku != "" {
		skuVal = sku
	}
	query := `
		INSERT INTO variants (product_id, sku, attributes, current_stock_status, created_at, updated_at)
		VALUES (?, ?, ?, 'unknown', datetime('now'), datetime('now'))
		RETURNING id
	`
	var id int64
	if err := db.QueryRow(query, productID, skuVal, attributes).Scan(&id); err != nil {
		t.Fatalf("failed to insert test variant: %v", err)
	}
	return id
}

// InsertTestTrackedItem is a helper to insert a tracked item directly.
func InsertTestTrackedItem(t *testing.T, db *sql.DB, userID string, productID int64) {
	t.Helper()
	query := `
		INSERT INTO tracked_items (user_id, product_id, created_at)
		VALUES (?, ?, datetime('now'))
	`
	if _, err := db.Exec(query, userID, productID); err != nil {
		t.Fatalf("failed to insert test tracked item: %v", err)
	}
}

// InsertTestCheckRun is a helper to insert a check run directly.
func InsertTestCheckRun(t *testing.T, db *sql.DB, id string, productID int64, status string) {
	t.Helper()
	query := `
		INSERT INTO check_runs (id, product_id, trigger_source, status, started_at)
		VALUES (?, ?, 'manual', ?, datetime('now'))
	`
	if _, err := db.Exec(query, id, productID, status); err != nil {
		t.Fatalf("failed to insert test check run: %v", err)
	}
}
