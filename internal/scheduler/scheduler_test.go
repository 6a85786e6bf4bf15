package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/shelfwatch/shelfwatch/internal/database/migrations"
	"github.com/shelfwatch/shelfwatch/internal/models"
	"github.com/shelfwatch/shelfwatch/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func insertProduct(t *testing.T, db *sql.DB, url string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`
		INSERT INTO products (url, name, created_at, updated_at)
		VALUES (?, 'Test Product', datetime('now'), datetime('now'))
		RETURNING id
	`, url).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}
	return id
}

func insertTrackedItem(t *testing.T, db *sql.DB, userID string, productID int64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO tracked_items (user_id, product_id, created_at)
		VALUES (?, ?, datetime('now'))
	`, userID, productID)
	if err != nil {
		t.Fatalf("failed to insert tracked item: %v", err)
	}
}

// fakeChecker simulates the check coordinator: every call yields a
// closed run, failing for the configured product ids.
type fakeChecker struct {
	mu      sync.Mutex
	failIDs map[int64]bool
	checked []int64
	trigger models.CheckTrigger
	block   chan struct{} // when non-nil, Check waits on it
}

func (c *fakeChecker) Check(ctx context.Context, productID int64, url string, trigger models.CheckTrigger) (*models.CheckRun, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.checked = append(c.checked, productID)
	c.trigger = trigger
	fail := c.failIDs[productID]
	c.mu.Unlock()

	run := &models.CheckRun{
		ID:        ulid.Make().String(),
		ProductID: productID,
		Trigger:   trigger,
		Status:    models.CheckRunStatusSuccess,
		StartedAt: time.Now().UTC(),
	}
	if fail {
		run.Status = models.CheckRunStatusFailed
		run.ErrorCode = "FETCH_FAILED"
		run.ErrorMessage = "connection refused"
	}
	return run, nil
}

func TestSweepAllSuccess(t *testing.T) {
	db := setupTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	p1 := insertProduct(t, db, "https://shop.example/p/1")
	p2 := insertProduct(t, db, "https://shop.example/p/2")
	insertTrackedItem(t, db, "user-a", p1)
	insertTrackedItem(t, db, "user-b", p1)
	insertTrackedItem(t, db, "user-a", p2)

	checker := &fakeChecker{}
	s := New(repos, checker, 30*time.Minute, testLogger())

	log, err := s.RunNow(ctx)
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	if log.Success == nil || !*log.Success {
		t.Error("expected sweep to be marked successful")
	}
	if log.ProductsChecked != 2 {
		t.Errorf("expected 2 products checked, got %d", log.ProductsChecked)
	}
	if log.ItemsChecked != 3 {
		t.Errorf("expected 3 items checked, got %d", log.ItemsChecked)
	}
	if log.RunFinishedAt == nil {
		t.Error("expected run_finished_at to be set")
	}
	if checker.trigger != models.CheckTriggerScheduled {
		t.Errorf("expected scheduled trigger, got %q", checker.trigger)
	}

	stored, err := repos.SchedulerLog.GetLatest(ctx)
	if err != nil {
		t.Fatalf("failed to load scheduler log: %v", err)
	}
	if stored.ID != log.ID {
		t.Errorf("expected persisted log %s, got %s", log.ID, stored.ID)
	}
}

func TestSweepRecordsPartialFailure(t *testing.T) {
	db := setupTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	p1 := insertProduct(t, db, "https://shop.example/p/1")
	p2 := insertProduct(t, db, "https://down.example/p/2")
	insertTrackedItem(t, db, "user-a", p1)
	insertTrackedItem(t, db, "user-b", p1)
	insertTrackedItem(t, db, "user-a", p2)

	checker := &fakeChecker{failIDs: map[int64]bool{p2: true}}
	s := New(repos, checker, 30*time.Minute, testLogger())

	log, err := s.RunNow(ctx)
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	if log.Success == nil || *log.Success {
		t.Error("expected sweep to be marked unsuccessful")
	}
	// Only the succeeding product and its subscribers count.
	if log.ProductsChecked != 1 {
		t.Errorf("expected 1 product checked, got %d", log.ProductsChecked)
	}
	if log.ItemsChecked != 2 {
		t.Errorf("expected 2 items checked, got %d", log.ItemsChecked)
	}
	if !strings.Contains(log.ErrorSummary, "FETCH_FAILED") {
		t.Errorf("expected error summary to carry the failure code, got %q", log.ErrorSummary)
	}

	var meta models.SweepMetadata
	if err := json.Unmarshal([]byte(log.MetadataJSON), &meta); err != nil {
		t.Fatalf("failed to decode sweep metadata: %v", err)
	}
	if len(meta.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(meta.Errors))
	}
	if len(meta.ProductIDs) != 2 {
		t.Errorf("expected both products in scope, got %v", meta.ProductIDs)
	}
}

func TestSweepWithNoTrackedProducts(t *testing.T) {
	db := setupTestDB(t)
	repos := repository.NewRepositories(db)

	s := New(repos, &fakeChecker{}, time.Hour, testLogger())
	log, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	if log.Success == nil || !*log.Success {
		t.Error("expected empty sweep to succeed")
	}
	if log.ProductsChecked != 0 || log.ItemsChecked != 0 {
		t.Errorf("expected zero counts, got %d/%d", log.ProductsChecked, log.ItemsChecked)
	}
}

func TestSweepRejectsConcurrentRuns(t *testing.T) {
	db := setupTestDB(t)
	repos := repository.NewRepositories(db)

	p1 := insertProduct(t, db, "https://shop.example/p/1")
	insertTrackedItem(t, db, "user-a", p1)

	block := make(chan struct{})
	checker := &fakeChecker{block: block}
	s := New(repos, checker, time.Hour, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		done <- err
	}()

	// Wait until the sweep is inside the blocked check.
	deadline := time.Now().Add(5 * time.Second)
	for !s.Status().Running {
		if time.Now().After(deadline) {
			t.Fatal("sweep never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := s.RunNow(context.Background()); !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("expected ErrSweepInProgress from RunNow, got %v", err)
	}
	if err := s.TriggerSweep(); !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("expected ErrSweepInProgress from TriggerSweep, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("blocked sweep failed: %v", err)
	}

	if s.Status().Running {
		t.Error("expected scheduler to be idle after sweep")
	}
}

func TestStartStop(t *testing.T) {
	db := setupTestDB(t)
	repos := repository.NewRepositories(db)

	s := New(repos, &fakeChecker{}, time.Hour, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)

	status := s.Status()
	if status.NextRun == nil {
		t.Error("expected next run to be scheduled after Start")
	}
	if status.Running {
		t.Error("expected no sweep in flight before the first tick")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestSweepSchedulesNextRunFromStart(t *testing.T) {
	db := setupTestDB(t)
	repos := repository.NewRepositories(db)

	interval := 45 * time.Minute
	s := New(repos, &fakeChecker{}, interval, testLogger())

	if _, err := s.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	status := s.Status()
	if status.LastRun == nil || status.NextRun == nil {
		t.Fatal("expected last and next run to be set")
	}
	if got := status.NextRun.Sub(*status.LastRun); got != interval {
		t.Errorf("expected next run %s after the last start, got %s", interval, got)
	}
}
