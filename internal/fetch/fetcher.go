// Package fetch retrieves product pages over HTTP with an optional
// escalation to headless-browser rendering for client-rendered sites.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/shelfwatch/shelfwatch/internal/config"
)

// Mode identifies which fetch path produced the result.
type Mode string

const (
	ModeHTTP     Mode = "http"
	ModeRendered Mode = "rendered"
)

// Error codes surfaced on failed results. Check runs persist these verbatim.
const (
	ErrCodeFetchFailed  = "FETCH_FAILED"
	ErrCodeFetchTimeout = "FETCH_TIMEOUT"
	ErrCodeRenderFailed = "RENDER_FAILED"
)

// Result is the outcome of a single fetch attempt. Fetch never returns a
// Go error; network and render failures are reported via Success=false so
// the caller can persist a failed check run from the same structure.
type Result struct {
	Success      bool
	Mode         Mode
	OriginalURL  string
	FinalURL     string
	StatusCode   int
	RawHTML      string
	RenderedHTML string
	FetchedAt    time.Time
	Error        string
	ErrorCode    string
	Metadata     Metadata
}

// Metadata carries fetch diagnostics.
type Metadata struct {
	Redirects     []string
	Headers       map[string]string
	HTTPMs        int64
	RenderMs      int64
	ConsoleErrors []string

	// DynamicSignal records why the page was judged client-rendered,
	// even when no renderer was available to act on it.
	DynamicSignal string
}

// ContentHTML returns the HTML extraction should run against: the
// rendered DOM when available, otherwise the raw response body.
func (r *Result) ContentHTML() string {
	if r.RenderedHTML != "" {
		return r.RenderedHTML
	}
	return r.RawHTML
}

// RenderResult is the outcome of a headless-browser render.
type RenderResult struct {
	HTML          string
	FinalURL      string
	ConsoleErrors []string
}

// Renderer renders a page in a headless browser and returns the
// post-script DOM.
type Renderer interface {
	Render(ctx context.Context, url string) (*RenderResult, error)
}

// Fetcher retrieves pages, preferring the cheap static path and
// escalating to the renderer at most once per fetch.
type Fetcher struct {
	timeout      time.Duration
	maxRedirects int
	userAgent    string
	detector     *Detector
	renderer     Renderer
	logger       *slog.Logger
}

// NewFetcher creates a fetcher. The renderer may be nil, in which case
// dynamic pages are returned as-is from the static path.
func NewFetcher(cfg *config.Config, renderer Renderer, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		timeout:      cfg.FetchTimeout,
		maxRedirects: cfg.FetchMaxRedirects,
		userAgent:    cfg.FetchUserAgent,
		detector:     NewDetector(cfg.DynamicMinTextBytes, cfg.DynamicScriptRatio),
		renderer:     renderer,
		logger:       logger,
	}
}

// Fetch retrieves the page at url. The result is always structurally
// valid; inspect Success and ErrorCode for the outcome.
func (f *Fetcher) Fetch(ctx context.Context, url string) *Result {
	result := &Result{
		Mode:        ModeHTTP,
		OriginalURL: url,
		FinalURL:    url,
		FetchedAt:   time.Now().UTC(),
		Metadata:    Metadata{Headers: make(map[string]string)},
	}

	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.timeout)

	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= f.maxRedirects {
			return errors.New("too many redirects")
		}
		result.Metadata.Redirects = append(result.Metadata.Redirects, req.URL.String())
		return nil
	})

	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.RawHTML = string(r.Body)
		result.FinalURL = r.Request.URL.String()
		for name := range *r.Headers {
			result.Metadata.Headers[name] = r.Headers.Get(name)
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
			if r.Request != nil && r.Request.URL != nil {
				result.FinalURL = r.Request.URL.String()
			}
		}
		fetchErr = err
	})

	httpStart := time.Now()
	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	result.Metadata.HTTPMs = time.Since(httpStart).Milliseconds()

	if fetchErr != nil {
		result.Error = fetchErr.Error()
		result.ErrorCode = classifyFetchError(fetchErr)
		f.logger.Warn("static fetch failed",
			"url", url,
			"status", result.StatusCode,
			"error", fetchErr,
		)
		return result
	}

	result.Success = true

	detection := f.detector.Detect(result.RawHTML)
	result.Metadata.DynamicSignal = string(detection.Signal)
	if !detection.Dynamic || f.renderer == nil {
		return result
	}

	f.logger.Info("escalating to rendered fetch",
		"url", url,
		"signal", detection.Signal,
		"reason", detection.Description,
	)

	renderStart := time.Now()
	rendered, err := f.renderer.Render(ctx, result.FinalURL)
	result.Metadata.RenderMs = time.Since(renderStart).Milliseconds()

	if err != nil {
		result.Success = false
		result.Error = err.Error()
		result.ErrorCode = ErrCodeRenderFailed
		f.logger.Warn("rendered fetch failed",
			"url", url,
			"error", err,
			"render_ms", result.Metadata.RenderMs,
		)
		return result
	}

	result.Mode = ModeRendered
	result.RenderedHTML = rendered.HTML
	result.Metadata.ConsoleErrors = rendered.ConsoleErrors
	if rendered.FinalURL != "" {
		result.FinalURL = rendered.FinalURL
	}
	return result
}

// classifyFetchError maps a transport error to an error code.
func classifyFetchError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeFetchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrCodeFetchTimeout
	}
	return ErrCodeFetchFailed
}
