package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// SQLitePriceHistoryRepository implements PriceHistoryRepository for SQLite.
type SQLitePriceHistoryRepository struct {
	db Querier
}

// NewSQLitePriceHistoryRepository creates a new SQLite price history repository.
func NewSQLitePriceHistoryRepository(db *sql.DB) *SQLitePriceHistoryRepository {
	return &SQLitePriceHistoryRepository{db: db}
}

func (r *SQLitePriceHistoryRepository) WithTx(tx *sql.Tx) PriceHistoryRepository {
	return &SQLitePriceHistoryRepository{db: tx}
}

func (r *SQLitePriceHistoryRepository) Append(ctx context.Context, entry *models.PriceHistory) error {
	query := `
		INSERT INTO price_history (variant_id, price, currency, raw, metadata, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.VariantID,
		nullDecimal(entry.Price),
		nullString(entry.Currency),
		nullString(entry.Raw),
		nullString(entry.Metadata),
		entry.RecordedAt.Format(time.RFC3339),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append price history: %w", err)
	}
	return nil
}

func (r *SQLitePriceHistoryRepository) GetByVariantID(ctx context.Context, variantID int64, limit, offset int) ([]*models.PriceHistory, error) {
	query := `
		SELECT id, variant_id, price, currency, raw, metadata, recorded_at
		FROM price_history WHERE variant_id = ?
		ORDER BY recorded_at DESC, id DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, variantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var entries []*models.PriceHistory
	for rows.Next() {
		entry, err := scanPriceHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *SQLitePriceHistoryRepository) LatestByVariantID(ctx context.Context, variantID int64) (*models.PriceHistory, error) {
	query := `
		SELECT id, variant_id, price, currency, raw, metadata, recorded_at
		FROM price_history WHERE variant_id = ?
		ORDER BY recorded_at DESC, id DESC LIMIT 1
	`
	var entry models.PriceHistory
	var price, currency, raw, metadata sql.NullString
	var recordedAt string

	err := r.db.QueryRowContext(ctx, query, variantID).Scan(
		&entry.ID, &entry.VariantID, &price, &currency, &raw, &metadata, &recordedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan price history: %w", err)
	}

	entry.Price = scanDecimal(price)
	entry.Currency = currency.String
	entry.Raw = raw.String
	entry.Metadata = metadata.String
	entry.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
	return &entry, nil
}

func (r *SQLitePriceHistoryRepository) CountByVariantID(ctx context.Context, variantID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM price_history WHERE variant_id = ?", variantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count price history: %w", err)
	}
	return count, nil
}

func scanPriceHistory(rows *sql.Rows) (*models.PriceHistory, error) {
	var entry models.PriceHistory
	var price, currency, raw, metadata sql.NullString
	var recordedAt string

	err := rows.Scan(&entry.ID, &entry.VariantID, &price, &currency, &raw, &metadata, &recordedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan price history: %w", err)
	}

	entry.Price = scanDecimal(price)
	entry.Currency = currency.String
	entry.Raw = raw.String
	entry.Metadata = metadata.String
	entry.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
	return &entry, nil
}

// SQLiteStockHistoryRepository implements StockHistoryRepository for SQLite.
type SQLiteStockHistoryRepository struct {
	db Querier
}

// NewSQLiteStockHistoryRepository creates a new SQLite stock history repository.
func NewSQLiteStockHistoryRepository(db *sql.DB) *SQLiteStockHistoryRepository {
	return &SQLiteStockHistoryRepository{db: db}
}

func (r *SQLiteStockHistoryRepository) WithTx(tx *sql.Tx) StockHistoryRepository {
	return &SQLiteStockHistoryRepository{db: tx}
}

func (r *SQLiteStockHistoryRepository) Append(ctx context.Context, entry *models.StockHistory) error {
	query := `
		INSERT INTO stock_history (variant_id, stock_status, is_available, raw, metadata, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.VariantID,
		entry.StockStatus,
		nullBool(entry.IsAvailable),
		nullString(entry.Raw),
		nullString(entry.Metadata),
		entry.RecordedAt.Format(time.RFC3339),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append stock history: %w", err)
	}
	return nil
}

func (r *SQLiteStockHistoryRepository) GetByVariantID(ctx context.Context, variantID int64, limit, offset int) ([]*models.StockHistory, error) {
	query := `
		SELECT id, variant_id, stock_status, is_available, raw, metadata, recorded_at
		FROM stock_history WHERE variant_id = ?
		ORDER BY recorded_at DESC, id DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, variantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock history: %w", err)
	}
	defer rows.Close()

	var entries []*models.StockHistory
	for rows.Next() {
		entry, err := scanStockHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *SQLiteStockHistoryRepository) LatestByVariantID(ctx context.Context, variantID int64) (*models.StockHistory, error) {
	query := `
		SELECT id, variant_id, stock_status, is_available, raw, metadata, recorded_at
		FROM stock_history WHERE variant_id = ?
		ORDER BY recorded_at DESC, id DESC LIMIT 1
	`
	var entry models.StockHistory
	var stockStatus string
	var isAvailable sql.NullInt64
	var raw, metadata sql.NullString
	var recordedAt string

	err := r.db.QueryRowContext(ctx, query, variantID).Scan(
		&entry.ID, &entry.VariantID, &stockStatus, &isAvailable, &raw, &metadata, &recordedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock history: %w", err)
	}

	entry.StockStatus = models.StockStatus(stockStatus)
	entry.IsAvailable = boolPtr(isAvailable)
	entry.Raw = raw.String
	entry.Metadata = metadata.String
	entry.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
	return &entry, nil
}

func (r *SQLiteStockHistoryRepository) CountByVariantID(ctx context.Context, variantID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stock_history WHERE variant_id = ?", variantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stock history: %w", err)
	}
	return count, nil
}

func scanStockHistory(rows *sql.Rows) (*models.StockHistory, error) {
	var entry models.StockHistory
	var stockStatus string
	var isAvailable sql.NullInt64
	var raw, metadata sql.NullString
	var recordedAt string

	err := rows.Scan(&entry.ID, &entry.VariantID, &stockStatus, &isAvailable, &raw, &metadata, &recordedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock history: %w", err)
	}

	entry.StockStatus = models.StockStatus(stockStatus)
	entry.IsAvailable = boolPtr(isAvailable)
	entry.Raw = raw.String
	entry.Metadata = metadata.String
	entry.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
	return &entry, nil
}
