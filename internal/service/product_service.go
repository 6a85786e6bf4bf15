package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/models"
	"github.com/shelfwatch/shelfwatch/internal/repository"
)

// ProductService backs the read/registration surface of the HTTP API.
// The pipeline itself never calls it.
type ProductService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repos *repository.Repositories, logger *slog.Logger) *ProductService {
	return &ProductService{
		repos:  repos,
		logger: logger.With("component", "products"),
	}
}

// WatchResult is the outcome of registering a URL for watching.
type WatchResult struct {
	Product *models.Product
	Item    *models.TrackedItem
	// Created reports whether the product row is new; existing
	// products get a fresh subscription only.
	Created bool
}

// Watch registers url for the given user. The product row is created
// minimal (URL only) when unknown; the first check fills in identity.
func (s *ProductService) Watch(ctx context.Context, userID, url string) (*WatchResult, error) {
	if url == "" {
		return nil, NewError(CodeInvalidInput, "url is required", nil)
	}
	if userID == "" {
		return nil, NewError(CodeInvalidInput, "user id is required", nil)
	}

	product, err := s.repos.Product.GetByURL(ctx, url)
	if err != nil {
		return nil, NewError(CodeInternalError, "failed to look up product", err)
	}

	created := false
	if product == nil {
		now := time.Now().UTC()
		product = &models.Product{URL: url, CreatedAt: now, UpdatedAt: now}
		if err := s.repos.Product.Create(ctx, product); err != nil {
			return nil, NewError(CodeInternalError, "failed to create product", err)
		}
		created = true
		s.logger.Info("product registered", "product_id", product.ID, "url", url)
	}

	item, err := s.repos.TrackedItem.GetByUserAndProduct(ctx, userID, product.ID)
	if err != nil {
		return nil, NewError(CodeInternalError, "failed to look up tracked item", err)
	}
	if item == nil {
		item = &models.TrackedItem{
			UserID:    userID,
			ProductID: product.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repos.TrackedItem.Create(ctx, item); err != nil {
			return nil, NewError(CodeInternalError, "failed to create tracked item", err)
		}
	}

	return &WatchResult{Product: product, Item: item, Created: created}, nil
}

// Get returns a product with its variants, or nil when unknown.
func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, []*models.Variant, error) {
	product, err := s.repos.Product.GetByID(ctx, id)
	if err != nil {
		return nil, nil, NewError(CodeInternalError, "failed to load product", err)
	}
	if product == nil {
		return nil, nil, nil
	}
	variants, err := s.repos.Variant.GetByProductID(ctx, id)
	if err != nil {
		return nil, nil, NewError(CodeInternalError, "failed to load variants", err)
	}
	return product, variants, nil
}

// List returns a page of products.
func (s *ProductService) List(ctx context.Context, limit, offset int) ([]*models.Product, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	products, err := s.repos.Product.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, NewError(CodeInternalError, "failed to list products", err)
	}
	total, err := s.repos.Product.Count(ctx)
	if err != nil {
		return nil, 0, NewError(CodeInternalError, "failed to count products", err)
	}
	return products, total, nil
}

// VariantHistory pairs one variant with its observation logs.
type VariantHistory struct {
	Variant *models.Variant
	Prices  []*models.PriceHistory
	Stock   []*models.StockHistory
}

// History returns per-variant price and stock history for a product,
// most recent first, limited per variant.
func (s *ProductService) History(ctx context.Context, productID int64, limit int) ([]*VariantHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	variants, err := s.repos.Variant.GetByProductID(ctx, productID)
	if err != nil {
		return nil, NewError(CodeInternalError, "failed to load variants", err)
	}

	out := make([]*VariantHistory, 0, len(variants))
	for _, v := range variants {
		prices, err := s.repos.PriceHistory.GetByVariantID(ctx, v.ID, limit, 0)
		if err != nil {
			return nil, NewError(CodeInternalError, "failed to load price history", err)
		}
		stock, err := s.repos.StockHistory.GetByVariantID(ctx, v.ID, limit, 0)
		if err != nil {
			return nil, NewError(CodeInternalError, "failed to load stock history", err)
		}
		out = append(out, &VariantHistory{Variant: v, Prices: prices, Stock: stock})
	}
	return out, nil
}

// Checks returns recent check runs for a product, most recent first.
func (s *ProductService) Checks(ctx context.Context, productID int64, limit, offset int) ([]*models.CheckRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := s.repos.CheckRun.GetByProductID(ctx, productID, limit, offset)
	if err != nil {
		return nil, NewError(CodeInternalError, "failed to load check runs", err)
	}
	return runs, nil
}
