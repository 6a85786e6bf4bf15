package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfwatch/shelfwatch/internal/extract"
	"github.com/shelfwatch/shelfwatch/internal/fetch"
	"github.com/shelfwatch/shelfwatch/internal/models"
	"github.com/shelfwatch/shelfwatch/internal/repository"
)

// PageFetcher retrieves a product page. Implemented by fetch.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) *fetch.Result
}

// ShellExtractor turns a fetch result into a product shell. Implemented
// by extract.Extractor.
type ShellExtractor interface {
	Extract(ctx context.Context, res *fetch.Result) *extract.ProductShell
}

// Ingestor persists a product shell. Implemented by IngestionService.
type Ingestor interface {
	Ingest(ctx context.Context, shell *extract.ProductShell) (*IngestResult, error)
}

// CheckService coordinates one observation of one product: it owns the
// check_runs lifecycle around the fetch → extract → ingest pipeline.
// Both scheduler sweeps and on-demand re-checks go through here.
type CheckService struct {
	checkRuns repository.CheckRunRepository
	fetcher   PageFetcher
	extractor ShellExtractor
	ingestion Ingestor
	snapshots *SnapshotService
	logger    *slog.Logger
}

// NewCheckService creates a new check coordinator. snapshots may be nil
// or disabled; archival is best-effort either way.
func NewCheckService(
	checkRuns repository.CheckRunRepository,
	fetcher PageFetcher,
	extractor ShellExtractor,
	ingestion Ingestor,
	snapshots *SnapshotService,
	logger *slog.Logger,
) *CheckService {
	return &CheckService{
		checkRuns: checkRuns,
		fetcher:   fetcher,
		extractor: extractor,
		ingestion: ingestion,
		snapshots: snapshots,
		logger:    logger.With("component", "check"),
	}
}

// Check observes one product. Exactly one check_runs row is persisted
// per invocation and it is always closed; a failed observation is a
// failed run, not a Go error. The returned error is non-nil only when
// the run row itself could not be written.
func (s *CheckService) Check(ctx context.Context, productID int64, url string, trigger models.CheckTrigger) (*models.CheckRun, error) {
	run := &models.CheckRun{
		ID:        ulid.Make().String(),
		ProductID: productID,
		Trigger:   trigger,
		Status:    models.CheckRunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.checkRuns.Create(ctx, run); err != nil {
		return nil, NewError(CodeInternalError, "failed to create check run", err)
	}

	res := s.fetcher.Fetch(ctx, url)
	meta := models.CheckRunMetadata{
		ModeUsed: models.FetchMode(res.Mode),
		FetchMs:  res.Metadata.HTTPMs,
		RenderMs: res.Metadata.RenderMs,
	}

	if !res.Success {
		run.ErrorCode = res.ErrorCode
		run.ErrorMessage = res.Error
		return run, s.finish(ctx, run, models.CheckRunStatusFailed, meta)
	}

	shell := s.extractor.Extract(ctx, res)
	meta.VariantsFound = len(shell.Variants)
	meta.Notes = shell.Notes

	result, err := s.ingestion.Ingest(ctx, shell)
	if err != nil {
		run.ErrorCode = ErrorCode(err)
		run.ErrorMessage = err.Error()
		return run, s.finish(ctx, run, models.CheckRunStatusFailed, meta)
	}
	meta.VariantsFound = len(result.Variants)

	s.archiveSnapshot(ctx, run, res)

	s.logger.Info("check completed",
		"product_id", productID,
		"run_id", run.ID,
		"mode", res.Mode,
		"variants", meta.VariantsFound,
	)
	return run, s.finish(ctx, run, models.CheckRunStatusSuccess, meta)
}

// finish closes the run row. finished_at is always set.
func (s *CheckService) finish(ctx context.Context, run *models.CheckRun, status models.CheckRunStatus, meta models.CheckRunMetadata) error {
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	if data, err := json.Marshal(meta); err == nil {
		run.MetadataJSON = string(data)
	}
	if err := s.checkRuns.Finish(ctx, run); err != nil {
		return NewError(CodeInternalError, "failed to finish check run", err)
	}
	if status == models.CheckRunStatusFailed {
		s.logger.Warn("check failed",
			"product_id", run.ProductID,
			"run_id", run.ID,
			"code", run.ErrorCode,
			"error", run.ErrorMessage,
		)
	}
	return nil
}

// archiveSnapshot uploads the fetched HTML when storage is configured.
// Failures are logged, never fatal to the run.
func (s *CheckService) archiveSnapshot(ctx context.Context, run *models.CheckRun, res *fetch.Result) {
	if s.snapshots == nil || !s.snapshots.IsEnabled() {
		return
	}
	key, err := s.snapshots.StoreCheckSnapshot(ctx, run.ProductID, run.ID, res.ContentHTML())
	if err != nil {
		s.logger.Warn("snapshot upload failed", "run_id", run.ID, "error", err)
		return
	}
	run.SnapshotKey = key
	if err := s.checkRuns.SetSnapshotKey(ctx, run.ID, key); err != nil {
		s.logger.Warn("failed to record snapshot key", "run_id", run.ID, "error", err)
	}
}
