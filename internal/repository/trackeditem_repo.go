package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// SQLiteTrackedItemRepository implements TrackedItemRepository for SQLite.
type SQLiteTrackedItemRepository struct {
	db Querier
}

// NewSQLiteTrackedItemRepository creates a new SQLite tracked item repository.
func NewSQLiteTrackedItemRepository(db *sql.DB) *SQLiteTrackedItemRepository {
	return &SQLiteTrackedItemRepository{db: db}
}

func (r *SQLiteTrackedItemRepository) Create(ctx context.Context, item *models.TrackedItem) error {
	query := `
		INSERT INTO tracked_items (user_id, product_id, variant_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	var variantID sql.NullInt64
	if item.VariantID != nil {
		variantID = sql.NullInt64{Int64: *item.VariantID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		item.UserID,
		item.ProductID,
		variantID,
		item.CreatedAt.Format(time.RFC3339),
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create tracked item: %w", err)
	}
	return nil
}

func (r *SQLiteTrackedItemRepository) GetByUserID(ctx context.Context, userID string) ([]*models.TrackedItem, error) {
	query := `
		SELECT id, user_id, product_id, variant_id, created_at
		FROM tracked_items WHERE user_id = ? ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked items: %w", err)
	}
	defer rows.Close()

	var items []*models.TrackedItem
	for rows.Next() {
		item, err := scanTrackedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteTrackedItemRepository) GetByUserAndProduct(ctx context.Context, userID string, productID int64) (*models.TrackedItem, error) {
	query := `
		SELECT id, user_id, product_id, variant_id, created_at
		FROM tracked_items WHERE user_id = ? AND product_id = ?
	`
	row := r.db.QueryRowContext(ctx, query, userID, productID)

	var item models.TrackedItem
	var variantID sql.NullInt64
	var createdAt string

	err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &variantID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tracked item: %w", err)
	}

	if variantID.Valid {
		item.VariantID = &variantID.Int64
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &item, nil
}

func (r *SQLiteTrackedItemRepository) DistinctProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT product_id FROM tracked_items ORDER BY product_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked product ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteTrackedItemRepository) CountByProductID(ctx context.Context, productID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracked_items WHERE product_id = ?", productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracked items: %w", err)
	}
	return count, nil
}

func (r *SQLiteTrackedItemRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tracked_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete tracked item: %w", err)
	}
	return nil
}

func scanTrackedItem(rows *sql.Rows) (*models.TrackedItem, error) {
	var item models.TrackedItem
	var variantID sql.NullInt64
	var createdAt string

	if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &variantID, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan tracked item: %w", err)
	}

	if variantID.Valid {
		item.VariantID = &variantID.Int64
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &item, nil
}
