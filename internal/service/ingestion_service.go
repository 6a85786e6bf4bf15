package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/internal/extract"
	"github.com/shelfwatch/shelfwatch/internal/models"
	"github.com/shelfwatch/shelfwatch/internal/repository"
)

// IngestionService reconciles extracted product shells against the
// stored product/variant rows and appends price and stock history.
// All writes for one shell share a single transaction.
type IngestionService struct {
	db     *sql.DB
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(db *sql.DB, repos *repository.Repositories, logger *slog.Logger) *IngestionService {
	return &IngestionService{
		db:     db,
		repos:  repos,
		logger: logger.With("component", "ingestion"),
	}
}

// IngestResult is the persisted state after reconciling one shell.
type IngestResult struct {
	Product  *models.Product
	Variants []*models.Variant
}

// Ingest upserts the shell's product, reconciles its variants and
// appends history rows for changed values. On any failure the
// transaction is rolled back and prior state is untouched.
func (s *IngestionService) Ingest(ctx context.Context, shell *extract.ProductShell) (*IngestResult, error) {
	if shell == nil || shell.URL == "" {
		return nil, NewError(CodeInvalidInput, "product shell has no URL", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, NewError(CodeIngestionFailed, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	products := s.repos.Product.WithTx(tx)
	variants := s.repos.Variant.WithTx(tx)
	priceLog := s.repos.PriceHistory.WithTx(tx)
	stockLog := s.repos.StockHistory.WithTx(tx)

	product, err := s.upsertProduct(ctx, products, shell)
	if err != nil {
		return nil, NewError(CodeIngestionFailed, "failed to upsert product", err)
	}

	result := &IngestResult{Product: product}
	for _, cand := range incomingVariants(shell) {
		variant, err := s.reconcileVariant(ctx, variants, priceLog, stockLog, product.ID, shell, cand)
		if err != nil {
			return nil, NewError(CodeIngestionFailed, "failed to reconcile variant", err)
		}
		result.Variants = append(result.Variants, variant)
	}

	if err := products.UpdateLastChecked(ctx, product.ID, shell.FetchedAt); err != nil {
		return nil, NewError(CodeIngestionFailed, "failed to stamp product", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, NewError(CodeIngestionFailed, "failed to commit", err)
	}

	s.logger.Debug("shell ingested",
		"url", shell.URL,
		"product_id", product.ID,
		"variants", len(result.Variants),
	)
	return result, nil
}

// upsertProduct finds the product by url (with canonical_url as an
// advisory fallback) and creates or refreshes its identity fields.
func (s *IngestionService) upsertProduct(ctx context.Context, products repository.ProductRepository, shell *extract.ProductShell) (*models.Product, error) {
	canonical := ""
	if shell.FinalURL != "" && shell.FinalURL != shell.URL {
		canonical = shell.FinalURL
	}

	product, err := products.GetByURL(ctx, shell.URL)
	if err != nil {
		return nil, err
	}
	if product == nil && canonical != "" {
		product, err = products.GetByCanonicalURL(ctx, canonical)
		if err != nil {
			return nil, err
		}
	}

	image := ""
	if len(shell.Images) > 0 {
		image = shell.Images[0]
	}

	if product == nil {
		now := time.Now().UTC()
		product = &models.Product{
			URL:         shell.URL,
			Name:        shell.Title,
			Description: shell.Description,
			ImageURL:    image,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if canonical != "" {
			product.CanonicalURL = &canonical
		}
		if err := products.Create(ctx, product); err != nil {
			return nil, err
		}
		return product, nil
	}

	changed := false
	if shell.Title != "" && shell.Title != product.Name {
		product.Name = shell.Title
		changed = true
	}
	if shell.Description != "" && shell.Description != product.Description {
		product.Description = shell.Description
		changed = true
	}
	if image != "" && image != product.ImageURL {
		product.ImageURL = image
		changed = true
	}
	if canonical != "" && (product.CanonicalURL == nil || *product.CanonicalURL != canonical) {
		product.CanonicalURL = &canonical
		changed = true
	}
	if changed {
		product.UpdatedAt = time.Now().UTC()
		if err := products.Update(ctx, product); err != nil {
			return nil, err
		}
	}
	return product, nil
}

// incomingVariants returns the shell's variant candidates, falling back
// to a single synthesized default variant so product-level price/stock
// observations always have a home.
func incomingVariants(shell *extract.ProductShell) []extract.VariantCandidate {
	if len(shell.Variants) > 0 {
		out := make([]extract.VariantCandidate, len(shell.Variants))
		copy(out, shell.Variants)
		for i := range out {
			applyShellFallbacks(&out[i], shell)
		}
		return out
	}

	cand := extract.VariantCandidate{
		Attributes: map[string]string{},
		Stock:      models.StockUnknown,
		Source:     "default",
	}
	applyShellFallbacks(&cand, shell)
	return []extract.VariantCandidate{cand}
}

// applyShellFallbacks fills a candidate's missing price/stock from the
// shell-level observations chosen by the extractor.
func applyShellFallbacks(cand *extract.VariantCandidate, shell *extract.ProductShell) {
	if !cand.Price.Valid && shell.Pricing != nil {
		cand.Price = decimal.NullDecimal{Decimal: shell.Pricing.Price, Valid: true}
		cand.RawPrice = shell.Pricing.Raw
		if cand.Currency == "" {
			cand.Currency = shell.Pricing.Currency
		}
	}
	if (cand.Stock == "" || cand.Stock == models.StockUnknown) && shell.Stock != nil {
		cand.Stock = shell.Stock.Status
	}
	if cand.Stock == "" {
		cand.Stock = models.StockUnknown
	}
}

// reconcileVariant locates the matching variant row (by sku, else by
// canonical attribute map), creates it when absent, appends history on
// change, and writes back current values.
func (s *IngestionService) reconcileVariant(
	ctx context.Context,
	variants repository.VariantRepository,
	priceLog repository.PriceHistoryRepository,
	stockLog repository.StockHistoryRepository,
	productID int64,
	shell *extract.ProductShell,
	cand extract.VariantCandidate,
) (*models.Variant, error) {
	attrs := models.CanonicalAttributes(cand.Attributes)

	var existing *models.Variant
	var err error
	if cand.SKU != nil && *cand.SKU != "" {
		existing, err = variants.GetBySKU(ctx, productID, *cand.SKU)
	} else {
		existing, err = variants.GetByAttributes(ctx, productID, attrs)
	}
	if err != nil {
		return nil, err
	}

	recordedAt := shell.FetchedAt
	checkedAt := recordedAt

	if existing == nil {
		now := time.Now().UTC()
		variant := &models.Variant{
			ProductID:          productID,
			SKU:                cand.SKU,
			Attributes:         attrs,
			CurrentPrice:       cand.Price,
			Currency:           cand.Currency,
			CurrentStockStatus: cand.Stock,
			IsAvailable:        cand.Stock.Availability(),
			ImageURL:           cand.ImageURL,
			LastCheckedAt:      &checkedAt,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := variants.Create(ctx, variant); err != nil {
			return nil, err
		}
		// First observation always opens the audit trail, even for
		// null values.
		if err := s.appendPrice(ctx, priceLog, variant, cand, recordedAt); err != nil {
			return nil, err
		}
		if err := s.appendStock(ctx, stockLog, variant, cand, recordedAt); err != nil {
			return nil, err
		}
		return variant, nil
	}

	priceChanged := !decimalsEqual(existing.CurrentPrice, cand.Price) ||
		(cand.Currency != "" && cand.Currency != existing.Currency)
	stockChanged := existing.CurrentStockStatus != cand.Stock

	existing.CurrentPrice = cand.Price
	if cand.Currency != "" {
		existing.Currency = cand.Currency
	}
	existing.CurrentStockStatus = cand.Stock
	existing.IsAvailable = cand.Stock.Availability()
	if cand.ImageURL != "" {
		existing.ImageURL = cand.ImageURL
	}
	existing.LastCheckedAt = &checkedAt

	if priceChanged {
		if err := s.appendPrice(ctx, priceLog, existing, cand, recordedAt); err != nil {
			return nil, err
		}
	}
	if stockChanged {
		if err := s.appendStock(ctx, stockLog, existing, cand, recordedAt); err != nil {
			return nil, err
		}
	}

	if err := variants.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *IngestionService) appendPrice(ctx context.Context, priceLog repository.PriceHistoryRepository, variant *models.Variant, cand extract.VariantCandidate, recordedAt time.Time) error {
	entry := &models.PriceHistory{
		VariantID:  variant.ID,
		Price:      cand.Price,
		Currency:   variant.Currency,
		Raw:        cand.RawPrice,
		Metadata:   sourceMetadata(cand.Source),
		RecordedAt: recordedAt,
	}
	if cand.Currency != "" {
		entry.Currency = cand.Currency
	}
	if err := priceLog.Append(ctx, entry); err != nil {
		return fmt.Errorf("price history: %w", err)
	}
	return nil
}

func (s *IngestionService) appendStock(ctx context.Context, stockLog repository.StockHistoryRepository, variant *models.Variant, cand extract.VariantCandidate, recordedAt time.Time) error {
	entry := &models.StockHistory{
		VariantID:   variant.ID,
		StockStatus: cand.Stock,
		IsAvailable: cand.Stock.Availability(),
		Metadata:    sourceMetadata(cand.Source),
		RecordedAt:  recordedAt,
	}
	if err := stockLog.Append(ctx, entry); err != nil {
		return fmt.Errorf("stock history: %w", err)
	}
	return nil
}

// sourceMetadata records which strategy produced an observation.
// Sources are free-form diagnostic strings, never load-bearing.
func sourceMetadata(source string) string {
	if source == "" {
		return ""
	}
	return fmt.Sprintf(`{"source":%q}`, source)
}

// decimalsEqual compares two nullable decimals by value.
func decimalsEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}
