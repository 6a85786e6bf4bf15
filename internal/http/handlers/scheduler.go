package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwatch/shelfwatch/internal/models"
	"github.com/shelfwatch/shelfwatch/internal/scheduler"
)

// RunSchedulerOutput acknowledges a started sweep.
type RunSchedulerOutput struct {
	Body struct {
		Status string `json:"status" example:"started"`
	}
}

// RunSchedulerNow starts a sweep over all tracked products. Returns 409
// when a sweep is already in flight and 503 when the scheduler is
// disabled.
func (h *Handlers) RunSchedulerNow(ctx context.Context, _ *struct{}) (*RunSchedulerOutput, error) {
	if h.scheduler == nil {
		return nil, huma.Error503ServiceUnavailable("scheduler is disabled")
	}
	if err := h.scheduler.TriggerSweep(); err != nil {
		if errors.Is(err, scheduler.ErrSweepInProgress) {
			return nil, huma.Error409Conflict("a sweep is already in progress")
		}
		return nil, huma.Error500InternalServerError("failed to start sweep", err)
	}
	out := &RunSchedulerOutput{}
	out.Body.Status = "started"
	return out, nil
}

// SchedulerStatusOutput is the scheduler state snapshot.
type SchedulerStatusOutput struct {
	Body struct {
		Enabled bool                 `json:"enabled"`
		Status  scheduler.Status     `json:"status"`
		LastLog *models.SchedulerLog `json:"last_log,omitempty" doc:"Most recent sweep summary"`
	}
}

// GetSchedulerStatus returns the scheduler's current state and the most
// recent sweep summary.
func (h *Handlers) GetSchedulerStatus(ctx context.Context, _ *struct{}) (*SchedulerStatusOutput, error) {
	out := &SchedulerStatusOutput{}
	if h.scheduler == nil {
		return out, nil
	}
	out.Body.Enabled = true
	out.Body.Status = h.scheduler.Status()

	lastLog, err := h.scheduler.LastLog(ctx)
	if err != nil {
		h.logger.Warn("failed to load last sweep log", "error", err)
	} else {
		out.Body.LastLog = lastLog
	}
	return out, nil
}
