// Package scheduler drives the periodic sweep over all tracked
// products. One long-lived task owned by main; one sweep at a time.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfwatch/shelfwatch/internal/models"
	"github.com/shelfwatch/shelfwatch/internal/repository"
)

// ErrSweepInProgress is returned when a sweep is requested while one is
// already running.
var ErrSweepInProgress = errors.New("a sweep is already in progress")

// Checker observes a single product. Implemented by service.CheckService.
type Checker interface {
	Check(ctx context.Context, productID int64, url string, trigger models.CheckTrigger) (*models.CheckRun, error)
}

// Scheduler periodically sweeps all tracked products through the check
// coordinator, recording one scheduler_logs row per sweep.
type Scheduler struct {
	products     repository.ProductRepository
	trackedItems repository.TrackedItemRepository
	sweepLogs    repository.SchedulerLogRepository
	checker      Checker
	interval     time.Duration
	logger       *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup

	mu           sync.Mutex
	running      bool
	lastRun      *time.Time
	nextRun      *time.Time
	currentRunID string
}

// New creates a scheduler sweeping every interval.
func New(repos *repository.Repositories, checker Checker, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		products:     repos.Product,
		trackedItems: repos.TrackedItem,
		sweepLogs:    repos.SchedulerLog,
		checker:      checker,
		interval:     interval,
		logger:       logger.With("component", "scheduler"),
		stop:         make(chan struct{}),
	}
}

// Start begins the periodic sweep loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting", "interval", s.interval.String())

	next := time.Now().Add(s.interval)
	s.mu.Lock()
	s.nextRun = &next
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop gracefully stops the scheduler, waiting for an in-flight sweep.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping")
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunNow(ctx); err != nil {
				if errors.Is(err, ErrSweepInProgress) {
					s.logger.Warn("tick skipped, sweep still running")
				} else {
					s.logger.Error("sweep failed", "error", err)
				}
			}
		}
	}
}

// RunNow runs one sweep in the calling goroutine. Returns
// ErrSweepInProgress when one is already active; other errors indicate
// the sweep's own bookkeeping could not be written.
func (s *Scheduler) RunNow(ctx context.Context) (*models.SchedulerLog, error) {
	if !s.tryAcquire() {
		return nil, ErrSweepInProgress
	}
	defer s.release()
	return s.sweep(ctx)
}

// TriggerSweep starts a sweep in the background, for the manual HTTP
// trigger. Returns ErrSweepInProgress when one is already active.
func (s *Scheduler) TriggerSweep() error {
	if !s.tryAcquire() {
		return ErrSweepInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		if _, err := s.sweep(context.Background()); err != nil {
			s.logger.Error("manual sweep failed", "error", err)
		}
	}()
	return nil
}

func (s *Scheduler) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.currentRunID = ""
	s.mu.Unlock()
}

// sweep checks every product with at least one subscriber, sequentially.
// Per-product failures are accumulated and never abort the sweep; only a
// failure to write the scheduler_logs row itself does.
func (s *Scheduler) sweep(ctx context.Context) (*models.SchedulerLog, error) {
	startedAt := time.Now().UTC()
	log := &models.SchedulerLog{
		ID:           ulid.Make().String(),
		RunStartedAt: startedAt,
	}
	if err := s.sweepLogs.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to create scheduler log: %w", err)
	}

	s.mu.Lock()
	s.currentRunID = log.ID
	s.mu.Unlock()

	meta := models.SweepMetadata{DurationsMs: make(map[int64]int64)}
	var sweepErrors []string
	productsChecked := 0
	itemsChecked := 0

	ids, err := s.trackedItems.DistinctProductIDs(ctx)
	if err != nil {
		sweepErrors = append(sweepErrors, fmt.Sprintf("enumerate tracked products: %v", err))
	}
	meta.ProductIDs = ids
	s.logger.Info("sweep started", "run_id", log.ID, "products", len(ids))

	for _, id := range ids {
		select {
		case <-s.stop:
			sweepErrors = append(sweepErrors, "sweep interrupted by shutdown")
			goto finalize
		case <-ctx.Done():
			sweepErrors = append(sweepErrors, fmt.Sprintf("sweep cancelled: %v", ctx.Err()))
			goto finalize
		default:
		}

		checkStart := time.Now()
		if err := s.checkProduct(ctx, id); err != nil {
			sweepErrors = append(sweepErrors, fmt.Sprintf("product %d: %v", id, err))
		} else {
			productsChecked++
			if n, err := s.trackedItems.CountByProductID(ctx, id); err == nil {
				itemsChecked += n
			}
		}
		meta.DurationsMs[id] = time.Since(checkStart).Milliseconds()
	}

finalize:
	meta.Errors = sweepErrors
	finishedAt := time.Now().UTC()
	success := len(sweepErrors) == 0

	log.RunFinishedAt = &finishedAt
	log.ProductsChecked = productsChecked
	log.ItemsChecked = itemsChecked
	log.Success = &success
	log.ErrorSummary = summarizeErrors(sweepErrors)
	if data, err := json.Marshal(meta); err == nil {
		log.MetadataJSON = string(data)
	}

	if err := s.sweepLogs.Finalize(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to finalize scheduler log: %w", err)
	}

	next := startedAt.Add(s.interval)
	s.mu.Lock()
	s.lastRun = &startedAt
	s.nextRun = &next
	s.mu.Unlock()

	s.logger.Info("sweep finished",
		"run_id", log.ID,
		"products_checked", productsChecked,
		"items_checked", itemsChecked,
		"errors", len(sweepErrors),
		"duration", finishedAt.Sub(startedAt).String(),
	)
	return log, nil
}

// checkProduct runs one product through the coordinator. A failed check
// run counts as a sweep error even though the coordinator returned it
// without a Go error.
func (s *Scheduler) checkProduct(ctx context.Context, id int64) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return errors.New("tracked product no longer exists")
	}

	run, err := s.checker.Check(ctx, product.ID, product.URL, models.CheckTriggerScheduled)
	if err != nil {
		return err
	}
	if run.Status == models.CheckRunStatusFailed {
		if run.ErrorCode != "" {
			return fmt.Errorf("%s: %s", run.ErrorCode, run.ErrorMessage)
		}
		return errors.New(run.ErrorMessage)
	}
	return nil
}

// Status is a point-in-time snapshot of scheduler state.
type Status struct {
	Running      bool       `json:"running"`
	Interval     string     `json:"interval"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	CurrentRunID string     `json:"current_run_id,omitempty"`
}

// LastLog returns the most recent sweep log, or nil when none exists.
func (s *Scheduler) LastLog(ctx context.Context) (*models.SchedulerLog, error) {
	return s.sweepLogs.GetLatest(ctx)
}

// Status returns a snapshot of the scheduler's state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:      s.running,
		Interval:     s.interval.String(),
		LastRun:      s.lastRun,
		NextRun:      s.nextRun,
		CurrentRunID: s.currentRunID,
	}
}

// summarizeErrors joins sweep errors into a bounded single line.
func summarizeErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	const maxShown = 5
	shown := errs
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	summary := strings.Join(shown, "; ")
	if len(errs) > maxShown {
		summary += fmt.Sprintf(" (and %d more)", len(errs)-maxShown)
	}
	return summary
}
