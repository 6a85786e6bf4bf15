package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// SQLiteVariantRepository implements VariantRepository for SQLite.
type SQLiteVariantRepository struct {
	db Querier
}

// NewSQLiteVariantRepository creates a new SQLite variant repository.
func NewSQLiteVariantRepository(db *sql.DB) *SQLiteVariantRepository {
	return &SQLiteVariantRepository{db: db}
}

func (r *SQLiteVariantRepository) WithTx(tx *sql.Tx) VariantRepository {
	return &SQLiteVariantRepository{db: tx}
}

func (r *SQLiteVariantRepository) Create(ctx context.Context, variant *models.Variant) error {
	query := `
		INSERT INTO variants (product_id, sku, attributes, current_price, currency,
			current_stock_status, is_available, image_url, metadata, last_checked_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		variant.ProductID,
		nullStringPtr(variant.SKU),
		variant.Attributes,
		nullDecimal(variant.CurrentPrice),
		nullString(variant.Currency),
		variant.CurrentStockStatus,
		nullBool(variant.IsAvailable),
		nullString(variant.ImageURL),
		nullString(variant.Metadata),
		nullTime(variant.LastCheckedAt),
		variant.CreatedAt.Format(time.RFC3339),
		variant.UpdatedAt.Format(time.RFC3339),
	).Scan(&variant.ID)
	if err != nil {
		return fmt.Errorf("failed to create variant: %w", err)
	}
	return nil
}

const variantColumns = `id, product_id, sku, attributes, current_price, currency,
	current_stock_status, is_available, image_url, metadata, last_checked_at,
	created_at, updated_at`

func (r *SQLiteVariantRepository) GetByID(ctx context.Context, id int64) (*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE id = ?`
	return r.scanVariant(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteVariantRepository) GetByProductID(ctx context.Context, productID int64) ([]*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE product_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []*models.Variant
	for rows.Next() {
		variant, err := r.scanVariantFromRows(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}
	return variants, rows.Err()
}

func (r *SQLiteVariantRepository) GetBySKU(ctx context.Context, productID int64, sku string) (*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE product_id = ? AND sku = ?`
	return r.scanVariant(r.db.QueryRowContext(ctx, query, productID, sku))
}

func (r *SQLiteVariantRepository) GetByAttributes(ctx context.Context, productID int64, attributes string) (*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE product_id = ? AND attributes = ? ORDER BY id ASC LIMIT 1`
	return r.scanVariant(r.db.QueryRowContext(ctx, query, productID, attributes))
}

func (r *SQLiteVariantRepository) Update(ctx context.Context, variant *models.Variant) error {
	query := `
		UPDATE variants SET sku = ?, attributes = ?, current_price = ?, currency = ?,
			current_stock_status = ?, is_available = ?, image_url = ?, metadata = ?,
			last_checked_at = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		nullStringPtr(variant.SKU),
		variant.Attributes,
		nullDecimal(variant.CurrentPrice),
		nullString(variant.Currency),
		variant.CurrentStockStatus,
		nullBool(variant.IsAvailable),
		nullString(variant.ImageURL),
		nullString(variant.Metadata),
		nullTime(variant.LastCheckedAt),
		time.Now().UTC().Format(time.RFC3339),
		variant.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}
	return nil
}

func (r *SQLiteVariantRepository) scanVariant(row *sql.Row) (*models.Variant, error) {
	var variant models.Variant
	var sku, currentPrice, currency, imageURL, metadata, lastCheckedAt sql.NullString
	var isAvailable sql.NullInt64
	var stockStatus string
	var createdAt, updatedAt string

	err := row.Scan(
		&variant.ID, &variant.ProductID, &sku, &variant.Attributes, &currentPrice,
		&currency, &stockStatus, &isAvailable, &imageURL, &metadata, &lastCheckedAt,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan variant: %w", err)
	}

	if sku.Valid {
		variant.SKU = &sku.String
	}
	variant.CurrentPrice = scanDecimal(currentPrice)
	variant.Currency = currency.String
	variant.CurrentStockStatus = models.StockStatus(stockStatus)
	variant.IsAvailable = boolPtr(isAvailable)
	variant.ImageURL = imageURL.String
	variant.Metadata = metadata.String
	variant.LastCheckedAt = parseTimePtr(lastCheckedAt)
	variant.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	variant.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &variant, nil
}

func (r *SQLiteVariantRepository) scanVariantFromRows(rows *sql.Rows) (*models.Variant, error) {
	var variant models.Variant
	var sku, currentPrice, currency, imageURL, metadata, lastCheckedAt sql.NullString
	var isAvailable sql.NullInt64
	var stockStatus string
	var createdAt, updatedAt string

	err := rows.Scan(
		&variant.ID, &variant.ProductID, &sku, &variant.Attributes, &currentPrice,
		&currency, &stockStatus, &isAvailable, &imageURL, &metadata, &lastCheckedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan variant: %w", err)
	}

	if sku.Valid {
		variant.SKU = &sku.String
	}
	variant.CurrentPrice = scanDecimal(currentPrice)
	variant.Currency = currency.String
	variant.CurrentStockStatus = models.StockStatus(stockStatus)
	variant.IsAvailable = boolPtr(isAvailable)
	variant.ImageURL = imageURL.String
	variant.Metadata = metadata.String
	variant.LastCheckedAt = parseTimePtr(lastCheckedAt)
	variant.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	variant.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &variant, nil
}
