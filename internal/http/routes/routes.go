// Package routes provides shared route registration for the shelfwatch
// API. Both the main server and the OpenAPI generator use the same
// definitions so the spec stays in sync with the implementation.
package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwatch/shelfwatch/internal/http/handlers"
	"github.com/shelfwatch/shelfwatch/internal/http/mw"
	"github.com/shelfwatch/shelfwatch/internal/version"
)

// Handlers is the full operation surface of the API. Implemented by
// handlers.Handlers for the server and by stubs for spec generation.
type Handlers interface {
	HealthCheck(ctx context.Context, input *struct{}) (*handlers.HealthCheckOutput, error)
	Livez(ctx context.Context, input *struct{}) (*handlers.LivezOutput, error)
	Readyz(ctx context.Context, input *struct{}) (*handlers.ReadyzOutput, error)

	WatchProduct(ctx context.Context, input *handlers.WatchProductInput) (*handlers.WatchProductOutput, error)
	ListProducts(ctx context.Context, input *handlers.ListProductsInput) (*handlers.ListProductsOutput, error)
	GetProduct(ctx context.Context, input *handlers.GetProductInput) (*handlers.GetProductOutput, error)
	GetProductHistory(ctx context.Context, input *handlers.GetProductHistoryInput) (*handlers.GetProductHistoryOutput, error)
	GetProductChecks(ctx context.Context, input *handlers.GetProductChecksInput) (*handlers.GetProductChecksOutput, error)
	RunCheck(ctx context.Context, input *handlers.RunCheckInput) (*handlers.RunCheckOutput, error)

	RunSchedulerNow(ctx context.Context, input *struct{}) (*handlers.RunSchedulerOutput, error)
	GetSchedulerStatus(ctx context.Context, input *struct{}) (*handlers.SchedulerStatusOutput, error)
}

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(baseURL string) huma.Config {
	cfg := huma.DefaultConfig("Shelfwatch API", version.Get().Short())
	cfg.Info.Description = "Watches e-commerce product pages and records price and stock changes per variant."

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Products", Description: "Watched products, variants and observation history"},
		{Name: "Checks", Description: "On-demand product checks"},
		{Name: "Scheduler", Description: "Sweep control and status"},
		{Name: "Health", Description: "System health and status"},
	}

	return cfg
}

// Register registers all API routes with the given Huma API instance.
func Register(api huma.API, h Handlers) {
	// Health
	mw.PublicGet(api, "/api/v1/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithOperationID("healthCheck"))

	// Kubernetes probes (hidden from docs - internal use only)
	mw.HiddenGet(api, "/healthz", h.Livez)
	mw.HiddenGet(api, "/readyz", h.Readyz)

	// Products
	mw.PublicPost(api, "/api/v1/products", h.WatchProduct,
		mw.WithTags("Products"),
		mw.WithSummary("Watch a product URL"),
		mw.WithDescription("Registers a product page for watching. New products are checked immediately in the background."),
		mw.WithOperationID("watchProduct"),
		mw.WithDefaultStatus(http.StatusCreated))
	mw.PublicGet(api, "/api/v1/products", h.ListProducts,
		mw.WithTags("Products"),
		mw.WithSummary("List watched products"),
		mw.WithOperationID("listProducts"))
	mw.PublicGet(api, "/api/v1/products/{id}", h.GetProduct,
		mw.WithTags("Products"),
		mw.WithSummary("Get product with variants"),
		mw.WithOperationID("getProduct"))
	mw.PublicGet(api, "/api/v1/products/{id}/history", h.GetProductHistory,
		mw.WithTags("Products"),
		mw.WithSummary("Get price and stock history"),
		mw.WithOperationID("getProductHistory"))
	mw.PublicGet(api, "/api/v1/products/{id}/checks", h.GetProductChecks,
		mw.WithTags("Checks"),
		mw.WithSummary("List recent check runs"),
		mw.WithOperationID("listProductChecks"))
	mw.PublicPost(api, "/api/v1/products/{id}/check", h.RunCheck,
		mw.WithTags("Checks"),
		mw.WithSummary("Re-check a product now"),
		mw.WithOperationID("runCheck"),
		mw.WithDefaultStatus(http.StatusAccepted))

	// Scheduler
	mw.PublicPost(api, "/api/v1/scheduler/run", h.RunSchedulerNow,
		mw.WithTags("Scheduler"),
		mw.WithSummary("Run a sweep now"),
		mw.WithDescription("Starts a sweep over all tracked products. Fails with 409 when one is already in flight."),
		mw.WithOperationID("runSchedulerNow"),
		mw.WithDefaultStatus(http.StatusAccepted))
	mw.PublicGet(api, "/api/v1/scheduler/status", h.GetSchedulerStatus,
		mw.WithTags("Scheduler"),
		mw.WithSummary("Get scheduler status"),
		mw.WithOperationID("getSchedulerStatus"))
}
