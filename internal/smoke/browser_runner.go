package smoke

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cadastro/internal/browser"
	"cadastro/internal/logging"
)

// Options configures RunInBrowser.
type Options struct {
	Browser browser.Config
	// Sink receives DOM and navigation events; nil disables the event stream.
	Sink browser.EventSink
	// ScreenshotOnFailure, when set, is where a full-page PNG of the failing
	// page is written.
	ScreenshotOnFailure string
}

// RunInBrowser launches (or attaches to) Chrome, runs sc in a fresh incognito
// session and tears the browser down again.
func RunInBrowser(ctx context.Context, sc Scenario, opts Options) (*Report, error) {
	sm := browser.NewSessionManager(opts.Browser, opts.Sink)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sm.Shutdown(shutdownCtx); err != nil {
			logging.BrowserWarn("shutdown: %v", err)
		}
	}()

	if err := sm.Start(ctx); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	session, err := sm.CreateSession(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logging.SmokeDebug("running %q in session %s", sc.Name, session.ID)

	driver := sm.Driver(session.ID)
	report, runErr := NewRunner(driver).Run(ctx, sc)
	if runErr != nil && opts.ScreenshotOnFailure != "" {
		if err := saveScreenshot(ctx, driver, opts.ScreenshotOnFailure); err != nil {
			logging.SmokeError("screenshot: %v", err)
		} else {
			logging.Smoke("failure screenshot written to %s", opts.ScreenshotOnFailure)
		}
	}
	return report, runErr
}

func saveScreenshot(ctx context.Context, d *browser.PageDriver, path string) error {
	png, err := d.Screenshot(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, png, 0644)
}
