package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/shelfwatch/shelfwatch/internal/browser"
	"github.com/shelfwatch/shelfwatch/internal/config"
)

// RodRenderer renders pages with a headless Chromium launched per call.
type RodRenderer struct {
	timeout     time.Duration
	idleWindow  time.Duration
	settleDelay time.Duration
	chromePath  string
	userAgent   string
	logger      *slog.Logger
}

// NewRodRenderer creates a renderer from application config.
func NewRodRenderer(cfg *config.Config, logger *slog.Logger) *RodRenderer {
	return &RodRenderer{
		timeout:     cfg.RenderTimeout,
		idleWindow:  cfg.RenderIdleWindow,
		settleDelay: cfg.RenderSettleDelay,
		chromePath:  cfg.ChromePath,
		userAgent:   cfg.FetchUserAgent,
		logger:      logger,
	}
}

// Render navigates to url, waits for the network to go quiet plus a
// settle delay, and returns the serialized post-script DOM along with
// any console errors the page logged.
func (r *RodRenderer) Render(ctx context.Context, url string) (*RenderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sess, err := browser.Launch(browser.Options{ChromePath: r.chromePath}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer sess.Close()

	page, err := sess.Page()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Context(ctx)
	defer page.Close()

	var mu sync.Mutex
	var consoleErrors []string
	go page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		if e.Type != proto.RuntimeConsoleAPICalledTypeError {
			return
		}
		mu.Lock()
		consoleErrors = append(consoleErrors, consoleMessage(e))
		mu.Unlock()
	})()

	if r.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: r.userAgent,
		}); err != nil {
			r.logger.Warn("failed to set user agent", "error", err)
		}
	}

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for load: %w", err)
	}

	// Let in-flight XHRs finish, then give scripts a moment to paint.
	page.WaitRequestIdle(r.idleWindow, nil, nil, nil)()
	select {
	case <-time.After(r.settleDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML: %w", err)
	}

	finalURL := url
	if info, err := page.Info(); err == nil {
		finalURL = info.URL
	}

	mu.Lock()
	captured := make([]string, len(consoleErrors))
	copy(captured, consoleErrors)
	mu.Unlock()

	return &RenderResult{
		HTML:          html,
		FinalURL:      finalURL,
		ConsoleErrors: captured,
	}, nil
}

// consoleMessage flattens a console event's arguments into one line.
func consoleMessage(e *proto.RuntimeConsoleAPICalled) string {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		if arg.Description != "" {
			parts = append(parts, arg.Description)
		} else {
			parts = append(parts, arg.Value.String())
		}
	}
	return strings.Join(parts, " ")
}
