// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// Querier is the subset of database/sql operations shared by *sql.DB and
// *sql.Tx. Repositories are created against the DB and can be rebound to
// a caller-owned transaction via WithTx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ProductRepository defines methods for product data access.
type ProductRepository interface {
	// WithTx returns a copy of the repository bound to tx.
	WithTx(tx *sql.Tx) ProductRepository
	// Create inserts the product and sets its generated ID.
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByURL(ctx context.Context, url string) (*models.Product, error)
	GetByCanonicalURL(ctx context.Context, url string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	UpdateLastChecked(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]*models.Product, error)
	Count(ctx context.Context) (int, error)
}

// VariantRepository defines methods for variant data access.
type VariantRepository interface {
	WithTx(tx *sql.Tx) VariantRepository
	// Create inserts the variant and sets its generated ID.
	Create(ctx context.Context, variant *models.Variant) error
	GetByID(ctx context.Context, id int64) (*models.Variant, error)
	GetByProductID(ctx context.Context, productID int64) ([]*models.Variant, error)
	GetBySKU(ctx context.Context, productID int64, sku string) (*models.Variant, error)
	// GetByAttributes matches on the canonical attributes JSON produced
	// by models.CanonicalAttributes.
	GetByAttributes(ctx context.Context, productID int64, attributes string) (*models.Variant, error)
	Update(ctx context.Context, variant *models.Variant) error
}

// PriceHistoryRepository defines methods for the append-only price log.
type PriceHistoryRepository interface {
	WithTx(tx *sql.Tx) PriceHistoryRepository
	Append(ctx context.Context, entry *models.PriceHistory) error
	GetByVariantID(ctx context.Context, variantID int64, limit, offset int) ([]*models.PriceHistory, error)
	LatestByVariantID(ctx context.Context, variantID int64) (*models.PriceHistory, error)
	CountByVariantID(ctx context.Context, variantID int64) (int, error)
}

// StockHistoryRepository defines methods for the append-only stock log.
type StockHistoryRepository interface {
	WithTx(tx *sql.Tx) StockHistoryRepository
	Append(ctx context.Context, entry *models.StockHistory) error
	GetByVariantID(ctx context.Context, variantID int64, limit, offset int) ([]*models.StockHistory, error)
	LatestByVariantID(ctx context.Context, variantID int64) (*models.StockHistory, error)
	CountByVariantID(ctx context.Context, variantID int64) (int, error)
}

// CheckRunRepository defines methods for check run data access.
type CheckRunRepository interface {
	Create(ctx context.Context, run *models.CheckRun) error
	// Finish closes the run: status, error fields, metadata and
	// finished_at are written; other columns are left untouched.
	Finish(ctx context.Context, run *models.CheckRun) error
	SetSnapshotKey(ctx context.Context, id, key string) error
	GetByID(ctx context.Context, id string) (*models.CheckRun, error)
	GetByProductID(ctx context.Context, productID int64, limit, offset int) ([]*models.CheckRun, error)
	// DeleteOlderThan removes finished runs started before the cutoff and
	// returns the number deleted.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// SchedulerLogRepository defines methods for scheduler sweep logs.
type SchedulerLogRepository interface {
	Create(ctx context.Context, log *models.SchedulerLog) error
	// Finalize writes the end-of-sweep fields: counters, success flag,
	// error summary, metadata and run_finished_at.
	Finalize(ctx context.Context, log *models.SchedulerLog) error
	GetByID(ctx context.Context, id string) (*models.SchedulerLog, error)
	GetLatest(ctx context.Context) (*models.SchedulerLog, error)
	List(ctx context.Context, limit, offset int) ([]*models.SchedulerLog, error)
	// MarkStaleOpenRuns closes rows left open by a previous process,
	// returning the number marked.
	MarkStaleOpenRuns(ctx context.Context) (int64, error)
}

// TrackedItemRepository defines methods for tracked item data access.
// Rows are written by the external API; the core reads them to determine
// the sweep scope.
type TrackedItemRepository interface {
	Create(ctx context.Context, item *models.TrackedItem) error
	GetByUserID(ctx context.Context, userID string) ([]*models.TrackedItem, error)
	GetByUserAndProduct(ctx context.Context, userID string, productID int64) (*models.TrackedItem, error)
	// DistinctProductIDs returns the ids of all products with at least
	// one subscriber, in ascending order.
	DistinctProductIDs(ctx context.Context) ([]int64, error)
	CountByProductID(ctx context.Context, productID int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// Repositories holds all repository instances.
type Repositories struct {
	Product      ProductRepository
	Variant      VariantRepository
	PriceHistory PriceHistoryRepository
	StockHistory StockHistoryRepository
	CheckRun     CheckRunRepository
	SchedulerLog SchedulerLogRepository
	TrackedItem  TrackedItemRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Product:      NewSQLiteProductRepository(db),
		Variant:      NewSQLiteVariantRepository(db),
		PriceHistory: NewSQLitePriceHistoryRepository(db),
		StockHistory: NewSQLiteStockHistoryRepository(db),
		CheckRun:     NewSQLiteCheckRunRepository(db),
		SchedulerLog: NewSQLiteSchedulerLogRepository(db),
		TrackedItem:  NewSQLiteTrackedItemRepository(db),
	}
}
