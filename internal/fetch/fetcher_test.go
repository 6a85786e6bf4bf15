package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/config"
)

const productHTML = `<!DOCTYPE html>
<html><head><title>Desk Lamp</title></head>
<body>
	<h1>Desk Lamp</h1>
	<span class="price">$24.99</span>
	<p>A warm white desk lamp with an adjustable arm and a weighted base.</p>
	<button>Add to Cart</button>
</body></html>`

const spaShellHTML = `<!DOCTYPE html>
<html><head><title>Shop</title></head>
<body>
	<div id="root"></div>
	<script src="/static/js/main.js"></script>
</body></html>`

func testConfig() *config.Config {
	return &config.Config{
		FetchTimeout:        5 * time.Second,
		FetchMaxRedirects:   10,
		FetchUserAgent:      "test-agent",
		DynamicMinTextBytes: 120,
		DynamicScriptRatio:  0.35,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRenderer stands in for the headless browser in tests.
type fakeRenderer struct {
	html          string
	finalURL      string
	consoleErrors []string
	err           error
	calls         int
}

func (f *fakeRenderer) Render(ctx context.Context, url string) (*RenderResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &RenderResult{
		HTML:          f.html,
		FinalURL:      f.finalURL,
		ConsoleErrors: f.consoleErrors,
	}, nil
}

func TestFetcher_StaticSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(productHTML))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(testConfig(), nil, testLogger())
	result := f.Fetch(context.Background(), server.URL+"/product")

	if !result.Success {
		t.Fatalf("Success = false, error = %q (%s)", result.Error, result.ErrorCode)
	}
	if result.Mode != ModeHTTP {
		t.Errorf("Mode = %q, want http", result.Mode)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if !strings.Contains(result.RawHTML, "Desk Lamp") {
		t.Error("RawHTML missing page content")
	}
	if result.RenderedHTML != "" {
		t.Error("RenderedHTML should be empty on the static path")
	}
	if result.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
	if result.Metadata.HTTPMs < 0 {
		t.Errorf("HTTPMs = %d, want >= 0", result.Metadata.HTTPMs)
	}
	if result.Metadata.Headers["Content-Type"] != "text/html" {
		t.Errorf("Content-Type header = %q", result.Metadata.Headers["Content-Type"])
	}
	if result.ContentHTML() != result.RawHTML {
		t.Error("ContentHTML should fall back to RawHTML")
	}
}

func TestFetcher_RecordsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(productHTML))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(testConfig(), nil, testLogger())
	result := f.Fetch(context.Background(), server.URL+"/start")

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.OriginalURL != server.URL+"/start" {
		t.Errorf("OriginalURL = %q", result.OriginalURL)
	}
	if !strings.HasSuffix(result.FinalURL, "/final") {
		t.Errorf("FinalURL = %q, want .../final", result.FinalURL)
	}
	if len(result.Metadata.Redirects) != 1 {
		t.Fatalf("got %d redirects, want 1", len(result.Metadata.Redirects))
	}
	if !strings.HasSuffix(result.Metadata.Redirects[0], "/final") {
		t.Errorf("Redirects[0] = %q, want .../final", result.Metadata.Redirects[0])
	}
}

func TestFetcher_NonOKStatus(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(testConfig(), nil, testLogger())
	result := f.Fetch(context.Background(), server.URL+"/missing")

	if result.Success {
		t.Fatal("Success = true for 404 response")
	}
	if result.ErrorCode != ErrCodeFetchFailed {
		t.Errorf("ErrorCode = %q, want FETCH_FAILED", result.ErrorCode)
	}
	if result.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", result.StatusCode)
	}
	if result.Error == "" {
		t.Error("expected an error message")
	}
}

func TestFetcher_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.Write([]byte(productHTML))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig()
	cfg.FetchTimeout = 200 * time.Millisecond

	f := NewFetcher(cfg, nil, testLogger())
	result := f.Fetch(context.Background(), server.URL+"/slow")

	if result.Success {
		t.Fatal("Success = true for timed-out fetch")
	}
	if result.ErrorCode != ErrCodeFetchTimeout {
		t.Errorf("ErrorCode = %q, want FETCH_TIMEOUT (error: %s)", result.ErrorCode, result.Error)
	}
}

func TestFetcher_ConnectionRefused(t *testing.T) {
	f := NewFetcher(testConfig(), nil, testLogger())
	result := f.Fetch(context.Background(), "http://127.0.0.1:1/nothing")

	if result.Success {
		t.Fatal("Success = true for refused connection")
	}
	if result.ErrorCode != ErrCodeFetchFailed {
		t.Errorf("ErrorCode = %q, want FETCH_FAILED", result.ErrorCode)
	}
}

func TestFetcher_UpgradesToRendered(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/app", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(spaShellHTML))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	renderer := &fakeRenderer{
		html:          productHTML,
		consoleErrors: []string{"TypeError: missing analytics"},
	}
	f := NewFetcher(testConfig(), renderer, testLogger())
	result := f.Fetch(context.Background(), server.URL+"/app")

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.Mode != ModeRendered {
		t.Errorf("Mode = %q, want rendered", result.Mode)
	}
	if renderer.calls != 1 {
		t.Errorf("renderer called %d times, want 1", renderer.calls)
	}
	if !strings.Contains(result.RenderedHTML, "Desk Lamp") {
		t.Error("RenderedHTML missing rendered content")
	}
	if !strings.Contains(result.RawHTML, `id="root"`) {
		t.Error("RawHTML should keep the static shell")
	}
	if result.ContentHTML() != result.RenderedHTML {
		t.Error("ContentHTML should prefer RenderedHTML")
	}
	if len(result.Metadata.ConsoleErrors) != 1 {
		t.Errorf("got %d console errors, want 1", len(result.Metadata.ConsoleErrors))
	}
	if result.Metadata.RenderMs < 0 {
		t.Errorf("RenderMs = %d, want >= 0", result.Metadata.RenderMs)
	}
}

func TestFetcher_RenderFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/app", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(spaShellHTML))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	renderer := &fakeRenderer{err: errors.New("browser crashed")}
	f := NewFetcher(testConfig(), renderer, testLogger())
	result := f.Fetch(context.Background(), server.URL+"/app")

	if result.Success {
		t.Fatal("Success = true after render failure")
	}
	if result.ErrorCode != ErrCodeRenderFailed {
		t.Errorf("ErrorCode = %q, want RENDER_FAILED", result.ErrorCode)
	}
	// The static body survives for diagnostics.
	if !strings.Contains(result.RawHTML, `id="root"`) {
		t.Error("RawHTML should be kept when rendering fails")
	}
	if result.RenderedHTML != "" {
		t.Error("RenderedHTML should be empty when rendering fails")
	}
}

func TestFetcher_NoRendererStaysStatic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/app", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(spaShellHTML))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(testConfig(), nil, testLogger())
	result := f.Fetch(context.Background(), server.URL+"/app")

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if result.Mode != ModeHTTP {
		t.Errorf("Mode = %q, want http", result.Mode)
	}
	if result.RenderedHTML != "" {
		t.Error("RenderedHTML should be empty without a renderer")
	}
	if result.Metadata.DynamicSignal != string(SignalSPAShell) {
		t.Errorf("DynamicSignal = %q, want spa_shell", result.Metadata.DynamicSignal)
	}
}

func TestClassifyFetchError(t *testing.T) {
	if got := classifyFetchError(context.DeadlineExceeded); got != ErrCodeFetchTimeout {
		t.Errorf("classifyFetchError(DeadlineExceeded) = %q, want FETCH_TIMEOUT", got)
	}
	if got := classifyFetchError(errors.New("connection refused")); got != ErrCodeFetchFailed {
		t.Errorf("classifyFetchError(refused) = %q, want FETCH_FAILED", got)
	}
}
