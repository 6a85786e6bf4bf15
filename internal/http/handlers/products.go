package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// WatchProductInput registers a product URL for watching.
type WatchProductInput struct {
	Body struct {
		URL    string `json:"url" format:"uri" minLength:"1" doc:"Product page URL to watch" example:"https://shop.example.com/products/widget"`
		UserID string `json:"user_id" minLength:"1" doc:"Subscriber user id issued by the external API" example:"user_2x4Fq"`
	}
}

// WatchProductOutput is the registration response.
type WatchProductOutput struct {
	Body struct {
		Product *models.Product `json:"product"`
		Created bool            `json:"created" doc:"True when the product row is new"`
	}
}

// WatchProduct registers a URL for watching and kicks off an immediate
// background check when the product is new.
func (h *Handlers) WatchProduct(ctx context.Context, input *WatchProductInput) (*WatchProductOutput, error) {
	result, err := h.products.Watch(ctx, input.Body.UserID, input.Body.URL)
	if err != nil {
		return nil, mapServiceError(err)
	}

	if result.Created {
		h.runCheckAsync(result.Product.ID, result.Product.URL)
	}

	out := &WatchProductOutput{}
	out.Body.Product = result.Product
	out.Body.Created = result.Created
	return out, nil
}

// ListProductsInput paginates the product list.
type ListProductsInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// ListProductsOutput is the product list response.
type ListProductsOutput struct {
	Body struct {
		Products []*models.Product `json:"products"`
		Total    int               `json:"total" doc:"Total number of products"`
	}
}

// ListProducts returns a page of observed products.
func (h *Handlers) ListProducts(ctx context.Context, input *ListProductsInput) (*ListProductsOutput, error) {
	products, total, err := h.products.List(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, mapServiceError(err)
	}
	out := &ListProductsOutput{}
	out.Body.Products = products
	out.Body.Total = total
	if out.Body.Products == nil {
		out.Body.Products = []*models.Product{}
	}
	return out, nil
}

// GetProductInput identifies one product.
type GetProductInput struct {
	ID int64 `path:"id" doc:"Product id"`
}

// GetProductOutput is one product with its variants.
type GetProductOutput struct {
	Body struct {
		Product  *models.Product   `json:"product"`
		Variants []*models.Variant `json:"variants"`
	}
}

// GetProduct returns a product and its current variants.
func (h *Handlers) GetProduct(ctx context.Context, input *GetProductInput) (*GetProductOutput, error) {
	product, variants, err := h.products.Get(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err)
	}
	if product == nil {
		return nil, huma.Error404NotFound("product not found")
	}
	out := &GetProductOutput{}
	out.Body.Product = product
	out.Body.Variants = variants
	if out.Body.Variants == nil {
		out.Body.Variants = []*models.Variant{}
	}
	return out, nil
}

// GetProductHistoryInput selects a product's observation history.
type GetProductHistoryInput struct {
	ID    int64 `path:"id" doc:"Product id"`
	Limit int   `query:"limit" default:"100" minimum:"1" maximum:"500" doc:"Max history rows per variant"`
}

// VariantHistoryBody is one variant's price and stock logs.
type VariantHistoryBody struct {
	Variant *models.Variant        `json:"variant"`
	Prices  []*models.PriceHistory `json:"prices"`
	Stock   []*models.StockHistory `json:"stock"`
}

// GetProductHistoryOutput is the history response.
type GetProductHistoryOutput struct {
	Body struct {
		Variants []VariantHistoryBody `json:"variants"`
	}
}

// GetProductHistory returns per-variant price and stock history.
func (h *Handlers) GetProductHistory(ctx context.Context, input *GetProductHistoryInput) (*GetProductHistoryOutput, error) {
	product, _, err := h.products.Get(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err)
	}
	if product == nil {
		return nil, huma.Error404NotFound("product not found")
	}

	history, err := h.products.History(ctx, input.ID, input.Limit)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &GetProductHistoryOutput{}
	out.Body.Variants = make([]VariantHistoryBody, 0, len(history))
	for _, entry := range history {
		body := VariantHistoryBody{Variant: entry.Variant, Prices: entry.Prices, Stock: entry.Stock}
		if body.Prices == nil {
			body.Prices = []*models.PriceHistory{}
		}
		if body.Stock == nil {
			body.Stock = []*models.StockHistory{}
		}
		out.Body.Variants = append(out.Body.Variants, body)
	}
	return out, nil
}

// GetProductChecksInput selects a product's recent check runs.
type GetProductChecksInput struct {
	ID     int64 `path:"id" doc:"Product id"`
	Limit  int   `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int   `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// GetProductChecksOutput lists check runs.
type GetProductChecksOutput struct {
	Body struct {
		Checks []*models.CheckRun `json:"checks"`
	}
}

// GetProductChecks returns recent check runs, most recent first.
func (h *Handlers) GetProductChecks(ctx context.Context, input *GetProductChecksInput) (*GetProductChecksOutput, error) {
	product, _, err := h.products.Get(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err)
	}
	if product == nil {
		return nil, huma.Error404NotFound("product not found")
	}

	checks, err := h.products.Checks(ctx, input.ID, input.Limit, input.Offset)
	if err != nil {
		return nil, mapServiceError(err)
	}
	out := &GetProductChecksOutput{}
	out.Body.Checks = checks
	if out.Body.Checks == nil {
		out.Body.Checks = []*models.CheckRun{}
	}
	return out, nil
}

// RunCheckInput triggers a re-check of one product.
type RunCheckInput struct {
	ID int64 `path:"id" doc:"Product id"`
}

// RunCheckOutput acknowledges the queued check.
type RunCheckOutput struct {
	Body struct {
		Status    string `json:"status" example:"queued"`
		ProductID int64  `json:"product_id"`
	}
}

// RunCheck starts an on-demand check in the background and returns
// immediately; the resulting check run appears in the product's checks.
func (h *Handlers) RunCheck(ctx context.Context, input *RunCheckInput) (*RunCheckOutput, error) {
	product, _, err := h.products.Get(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err)
	}
	if product == nil {
		return nil, huma.Error404NotFound("product not found")
	}

	h.runCheckAsync(product.ID, product.URL)

	out := &RunCheckOutput{}
	out.Body.Status = "queued"
	out.Body.ProductID = product.ID
	return out, nil
}

// runCheckAsync runs one check detached from the request lifecycle.
func (h *Handlers) runCheckAsync(productID int64, url string) {
	go func() {
		if _, err := h.checks.Check(context.Background(), productID, url, models.CheckTriggerManual); err != nil {
			h.logger.Error("background check failed", "product_id", productID, "error", err)
		}
	}()
}
