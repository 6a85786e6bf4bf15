// Package handlers implements the HTTP observation API: product
// registration, product/history reads, and the manual check and sweep
// triggers the external surface may call.
package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/models"
	"github.com/shelfwatch/shelfwatch/internal/scheduler"
	"github.com/shelfwatch/shelfwatch/internal/service"
	"github.com/shelfwatch/shelfwatch/internal/version"
)

// SweepControl is the scheduler surface the handlers need. Implemented
// by scheduler.Scheduler; nil when the scheduler is disabled.
type SweepControl interface {
	TriggerSweep() error
	Status() scheduler.Status
	LastLog(ctx context.Context) (*models.SchedulerLog, error)
}

// CheckRunner observes one product. Implemented by service.CheckService.
type CheckRunner interface {
	Check(ctx context.Context, productID int64, url string, trigger models.CheckTrigger) (*models.CheckRun, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db        *sql.DB
	products  *service.ProductService
	checks    CheckRunner
	scheduler SweepControl
	logger    *slog.Logger
	startedAt time.Time
}

// New creates the handler set. scheduler may be nil when disabled.
func New(db *sql.DB, products *service.ProductService, checks CheckRunner, sched SweepControl, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:        db,
		products:  products,
		checks:    checks,
		scheduler: sched,
		logger:    logger.With("component", "http"),
		startedAt: time.Now().UTC(),
	}
}

// HealthBody is the health check response payload.
type HealthBody struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Version string `json:"version" example:"1.2.0" doc:"Server version"`
	Uptime  string `json:"uptime" example:"2h15m30s" doc:"Time since the server started"`
}

// HealthCheckOutput is the health check response.
type HealthCheckOutput struct {
	Body HealthBody
}

// HealthCheck reports service health.
func (h *Handlers) HealthCheck(ctx context.Context, _ *struct{}) (*HealthCheckOutput, error) {
	return &HealthCheckOutput{
		Body: HealthBody{
			Status:  "ok",
			Version: version.Get().Short(),
			Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
		},
	}, nil
}

// LivezOutput is the liveness probe response.
type LivezOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Livez is the liveness probe.
func (h *Handlers) Livez(ctx context.Context, _ *struct{}) (*LivezOutput, error) {
	out := &LivezOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// ReadyzOutput is the readiness probe response.
type ReadyzOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Readyz is the readiness probe; it fails while the database is
// unreachable.
func (h *Handlers) Readyz(ctx context.Context, _ *struct{}) (*ReadyzOutput, error) {
	if err := h.db.PingContext(ctx); err != nil {
		return nil, errServiceUnavailable("database not ready", err)
	}
	out := &ReadyzOutput{}
	out.Body.Status = "ok"
	return out, nil
}
