package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/repository"
)

// CleanupService prunes old check runs and their archived snapshots.
// History tables are never pruned; they are the product's audit trail.
type CleanupService struct {
	checkRuns repository.CheckRunRepository
	snapshots *SnapshotService
	logger    *slog.Logger
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(checkRuns repository.CheckRunRepository, snapshots *SnapshotService, logger *slog.Logger) *CleanupService {
	return &CleanupService{
		checkRuns: checkRuns,
		snapshots: snapshots,
		logger:    logger.With("component", "cleanup"),
	}
}

// CleanupOldCheckRuns deletes finished check runs older than maxAge and
// any snapshots past the same age. Returns the number of runs deleted.
func (s *CleanupService) CleanupOldCheckRuns(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)

	deleted, err := s.checkRuns.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("pruned old check runs", "count", deleted, "max_age", maxAge.String())
	}

	if s.snapshots != nil && s.snapshots.IsEnabled() {
		objects, err := s.snapshots.DeleteOldSnapshots(ctx, maxAge)
		if err != nil {
			s.logger.Warn("snapshot cleanup failed", "error", err)
		} else if objects > 0 {
			s.logger.Info("pruned old snapshots", "count", objects)
		}
	}

	return deleted, nil
}

// RunScheduledCleanup runs cleanup once at startup and then every
// interval until ctx is cancelled. Intended to run in its own goroutine.
func (s *CleanupService) RunScheduledCleanup(ctx context.Context, maxAge, interval time.Duration) {
	if _, err := s.CleanupOldCheckRuns(ctx, maxAge); err != nil {
		s.logger.Error("cleanup failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupOldCheckRuns(ctx, maxAge); err != nil {
				s.logger.Error("cleanup failed", "error", err)
			}
		}
	}
}
