package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// SQLiteProductRepository implements ProductRepository for SQLite.
type SQLiteProductRepository struct {
	db Querier
}

// NewSQLiteProductRepository creates a new SQLite product repository.
func NewSQLiteProductRepository(db *sql.DB) *SQLiteProductRepository {
	return &SQLiteProductRepository{db: db}
}

func (r *SQLiteProductRepository) WithTx(tx *sql.Tx) ProductRepository {
	return &SQLiteProductRepository{db: tx}
}

func (r *SQLiteProductRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (url, canonical_url, name, description, vendor, image_url,
			metadata, last_checked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		product.URL,
		nullStringPtr(product.CanonicalURL),
		nullString(product.Name),
		nullString(product.Description),
		nullString(product.Vendor),
		nullString(product.ImageURL),
		nullString(product.Metadata),
		nullTime(product.LastCheckedAt),
		product.CreatedAt.Format(time.RFC3339),
		product.UpdatedAt.Format(time.RFC3339),
	).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

const productColumns = `id, url, canonical_url, name, description, vendor, image_url,
	metadata, last_checked_at, created_at, updated_at`

func (r *SQLiteProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return r.scanProduct(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteProductRepository) GetByURL(ctx context.Context, url string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE url = ?`
	return r.scanProduct(r.db.QueryRowContext(ctx, query, url))
}

func (r *SQLiteProductRepository) GetByCanonicalURL(ctx context.Context, url string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE canonical_url = ? ORDER BY id ASC LIMIT 1`
	return r.scanProduct(r.db.QueryRowContext(ctx, query, url))
}

func (r *SQLiteProductRepository) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products SET canonical_url = ?, name = ?, description = ?, vendor = ?,
			image_url = ?, metadata = ?, last_checked_at = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		nullStringPtr(product.CanonicalURL),
		nullString(product.Name),
		nullString(product.Description),
		nullString(product.Vendor),
		nullString(product.ImageURL),
		nullString(product.Metadata),
		nullTime(product.LastCheckedAt),
		time.Now().UTC().Format(time.RFC3339),
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *SQLiteProductRepository) UpdateLastChecked(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE products SET last_checked_at = ?, updated_at = ? WHERE id = ?",
		at.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update last checked: %w", err)
	}
	return nil
}

func (r *SQLiteProductRepository) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := r.scanProductFromRows(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *SQLiteProductRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (r *SQLiteProductRepository) scanProduct(row *sql.Row) (*models.Product, error) {
	var product models.Product
	var canonicalURL, name, description, vendor, imageURL, metadata, lastCheckedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&product.ID, &product.URL, &canonicalURL, &name, &description, &vendor,
		&imageURL, &metadata, &lastCheckedAt, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if canonicalURL.Valid {
		product.CanonicalURL = &canonicalURL.String
	}
	product.Name = name.String
	product.Description = description.String
	product.Vendor = vendor.String
	product.ImageURL = imageURL.String
	product.Metadata = metadata.String
	product.LastCheckedAt = parseTimePtr(lastCheckedAt)
	product.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	product.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &product, nil
}

func (r *SQLiteProductRepository) scanProductFromRows(rows *sql.Rows) (*models.Product, error) {
	var product models.Product
	var canonicalURL, name, description, vendor, imageURL, metadata, lastCheckedAt sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(
		&product.ID, &product.URL, &canonicalURL, &name, &description, &vendor,
		&imageURL, &metadata, &lastCheckedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if canonicalURL.Valid {
		product.CanonicalURL = &canonicalURL.String
	}
	product.Name = name.String
	product.Description = description.String
	product.Vendor = vendor.String
	product.ImageURL = imageURL.String
	product.Metadata = metadata.String
	product.LastCheckedAt = parseTimePtr(lastCheckedAt)
	product.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	product.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &product, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullDecimal renders a decimal for storage as TEXT, preserving the
// exact observed representation.
func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func scanDecimal(ns sql.NullString) decimal.NullDecimal {
	if !ns.Valid {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func nullBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	v := int64(0)
	if *b {
		v = 1
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func boolPtr(ni sql.NullInt64) *bool {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64 == 1
	return &v
}
