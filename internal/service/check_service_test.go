package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/extract"
	"github.com/shelfwatch/shelfwatch/internal/fetch"
	"github.com/shelfwatch/shelfwatch/internal/models"
	"github.com/shelfwatch/shelfwatch/internal/repository"
)

type stubFetcher struct {
	res *fetch.Result
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) *fetch.Result {
	return f.res
}

type stubExtractor struct {
	shell *extract.ProductShell
}

func (e *stubExtractor) Extract(ctx context.Context, res *fetch.Result) *extract.ProductShell {
	return e.shell
}

type stubIngestor struct {
	result *IngestResult
	err    error
	calls  int
}

func (i *stubIngestor) Ingest(ctx context.Context, shell *extract.ProductShell) (*IngestResult, error) {
	i.calls++
	return i.result, i.err
}

func successFetchResult(url string) *fetch.Result {
	return &fetch.Result{
		Success:     true,
		Mode:        fetch.ModeHTTP,
		OriginalURL: url,
		FinalURL:    url,
		StatusCode:  200,
		RawHTML:     "<html><body>ok</body></html>",
		FetchedAt:   time.Now().UTC(),
		Metadata:    fetch.Metadata{HTTPMs: 42},
	}
}

func TestCheckSuccessClosesRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	productID := insertProduct(t, db, "https://shop.example/p/1")
	checkRuns := repository.NewSQLiteCheckRunRepository(db)

	url := "https://shop.example/p/1"
	shell := &extract.ProductShell{URL: url, FinalURL: url, FetchedAt: time.Now().UTC()}
	ingestor := &stubIngestor{result: &IngestResult{
		Product:  &models.Product{ID: productID, URL: url},
		Variants: []*models.Variant{{ID: 1}},
	}}

	svc := NewCheckService(checkRuns, &stubFetcher{res: successFetchResult(url)},
		&stubExtractor{shell: shell}, ingestor, nil, testLogger())

	run, err := svc.Check(ctx, productID, url, models.CheckTriggerManual)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if run.Status != models.CheckRunStatusSuccess {
		t.Errorf("expected success status, got %q", run.Status)
	}
	if ingestor.calls != 1 {
		t.Errorf("expected one ingest call, got %d", ingestor.calls)
	}
	if got := countRows(t, db, "check_runs"); got != 1 {
		t.Fatalf("expected exactly 1 check run row, got %d", got)
	}

	stored, err := checkRuns.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to load run: %v", err)
	}
	if stored.FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}
	if stored.Trigger != models.CheckTriggerManual {
		t.Errorf("expected manual trigger, got %q", stored.Trigger)
	}

	var meta models.CheckRunMetadata
	if err := json.Unmarshal([]byte(stored.MetadataJSON), &meta); err != nil {
		t.Fatalf("failed to decode run metadata: %v", err)
	}
	if meta.ModeUsed != models.FetchModeHTTP {
		t.Errorf("expected http mode in metadata, got %q", meta.ModeUsed)
	}
	if meta.VariantsFound != 1 {
		t.Errorf("expected 1 variant in metadata, got %d", meta.VariantsFound)
	}
	if meta.FetchMs != 42 {
		t.Errorf("expected fetch_ms 42, got %d", meta.FetchMs)
	}
}

func TestCheckFetchFailureClosesRunWithoutIngesting(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	productID := insertProduct(t, db, "https://down.example/p/1")
	checkRuns := repository.NewSQLiteCheckRunRepository(db)

	failed := &fetch.Result{
		Success:     false,
		Mode:        fetch.ModeHTTP,
		OriginalURL: "https://down.example/p/1",
		FetchedAt:   time.Now().UTC(),
		Error:       "context deadline exceeded",
		ErrorCode:   fetch.ErrCodeFetchTimeout,
	}
	ingestor := &stubIngestor{}

	svc := NewCheckService(checkRuns, &stubFetcher{res: failed},
		&stubExtractor{}, ingestor, nil, testLogger())

	run, err := svc.Check(ctx, productID, failed.OriginalURL, models.CheckTriggerScheduled)
	if err != nil {
		t.Fatalf("Check returned unexpected error: %v", err)
	}

	if run.Status != models.CheckRunStatusFailed {
		t.Errorf("expected failed status, got %q", run.Status)
	}
	if run.ErrorCode != fetch.ErrCodeFetchTimeout {
		t.Errorf("expected error code %s, got %q", fetch.ErrCodeFetchTimeout, run.ErrorCode)
	}
	if ingestor.calls != 0 {
		t.Errorf("expected no ingest call on fetch failure, got %d", ingestor.calls)
	}

	stored, err := checkRuns.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to load run: %v", err)
	}
	if stored.FinishedAt == nil {
		t.Error("expected failed run to be closed")
	}
	if stored.ErrorMessage != "context deadline exceeded" {
		t.Errorf("expected error message persisted, got %q", stored.ErrorMessage)
	}

	// No product data written on a failed fetch.
	if got := countRows(t, db, "variants"); got != 0 {
		t.Errorf("expected no variant rows, got %d", got)
	}
}

func TestCheckIngestFailureClosesRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	productID := insertProduct(t, db, "https://shop.example/p/2")
	checkRuns := repository.NewSQLiteCheckRunRepository(db)

	url := "https://shop.example/p/2"
	shell := &extract.ProductShell{URL: url, FinalURL: url, FetchedAt: time.Now().UTC()}
	ingestor := &stubIngestor{err: NewError(CodeIngestionFailed, "failed to commit", nil)}

	svc := NewCheckService(checkRuns, &stubFetcher{res: successFetchResult(url)},
		&stubExtractor{shell: shell}, ingestor, nil, testLogger())

	run, err := svc.Check(ctx, productID, url, models.CheckTriggerManual)
	if err != nil {
		t.Fatalf("Check returned unexpected error: %v", err)
	}

	if run.Status != models.CheckRunStatusFailed {
		t.Errorf("expected failed status, got %q", run.Status)
	}
	if run.ErrorCode != CodeIngestionFailed {
		t.Errorf("expected %s, got %q", CodeIngestionFailed, run.ErrorCode)
	}
	if got := countRows(t, db, "check_runs"); got != 1 {
		t.Errorf("expected exactly 1 check run row, got %d", got)
	}
}
