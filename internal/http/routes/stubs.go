package routes

import (
	"context"

	"github.com/shelfwatch/shelfwatch/internal/http/handlers"
)

// StubHandlers returns a Handlers implementation whose methods all
// return nil. Only used for OpenAPI generation, where Huma extracts
// type information from the signatures.
func StubHandlers() Handlers {
	return stubHandlers{}
}

type stubHandlers struct{}

func (stubHandlers) HealthCheck(_ context.Context, _ *struct{}) (*handlers.HealthCheckOutput, error) {
	return nil, nil
}

func (stubHandlers) Livez(_ context.Context, _ *struct{}) (*handlers.LivezOutput, error) {
	return nil, nil
}

func (stubHandlers) Readyz(_ context.Context, _ *struct{}) (*handlers.ReadyzOutput, error) {
	return nil, nil
}

func (stubHandlers) WatchProduct(_ context.Context, _ *handlers.WatchProductInput) (*handlers.WatchProductOutput, error) {
	return nil, nil
}

func (stubHandlers) ListProducts(_ context.Context, _ *handlers.ListProductsInput) (*handlers.ListProductsOutput, error) {
	return nil, nil
}

func (stubHandlers) GetProduct(_ context.Context, _ *handlers.GetProductInput) (*handlers.GetProductOutput, error) {
	return nil, nil
}

func (stubHandlers) GetProductHistory(_ context.Context, _ *handlers.GetProductHistoryInput) (*handlers.GetProductHistoryOutput, error) {
	return nil, nil
}

func (stubHandlers) GetProductChecks(_ context.Context, _ *handlers.GetProductChecksInput) (*handlers.GetProductChecksOutput, error) {
	return nil, nil
}

func (stubHandlers) RunCheck(_ context.Context, _ *handlers.RunCheckInput) (*handlers.RunCheckOutput, error) {
	return nil, nil
}

func (stubHandlers) RunSchedulerNow(_ context.Context, _ *struct{}) (*handlers.RunSchedulerOutput, error) {
	return nil, nil
}

func (stubHandlers) GetSchedulerStatus(_ context.Context, _ *struct{}) (*handlers.SchedulerStatusOutput, error) {
	return nil, nil
}
