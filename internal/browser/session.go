// Package browser manages on-demand headless Chromium sessions.
package browser

import (
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/oklog/ulid/v2"
)

// Options configures a browser launch.
type Options struct {
	// ChromePath overrides the bundled Chromium binary.
	ChromePath string
}

// Session wraps a single launched browser. Sessions are short-lived:
// one per rendered fetch, torn down when the fetch completes.
type Session struct {
	ID        string
	browser   *rod.Browser
	launcher  *launcher.Launcher
	logger    *slog.Logger
	createdAt time.Time
}

// Launch starts a headless browser and connects to it.
func Launch(opts Options, logger *slog.Logger) (*Session, error) {
	l := launcher.New()
	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	}
	l = l.
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("window-size", "1920,1080").
		Set("lang", "en-US,en")

	u, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, err
	}

	id := ulid.Make().String()
	logger.Debug("browser launched", "id", id)

	return &Session{
		ID:        id,
		browser:   b,
		launcher:  l,
		logger:    logger,
		createdAt: time.Now(),
	}, nil
}

// Page creates a new stealth page in this session.
func (s *Session) Page() (*rod.Page, error) {
	return stealth.Page(s.browser)
}

// Close shuts the browser down and removes its temporary profile.
func (s *Session) Close() {
	if err := s.browser.Close(); err != nil {
		s.logger.Warn("error closing browser", "id", s.ID, "error", err)
	}
	s.launcher.Cleanup()
	s.logger.Debug("browser closed", "id", s.ID, "age", time.Since(s.createdAt))
}
