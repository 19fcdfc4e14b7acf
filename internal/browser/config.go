package browser

import (
	"time"

	"cadastro/internal/config"
)

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string   `json:"debugger_url"`
	Launch              []string `json:"launch"`
	Headless            bool     `json:"headless"`
	ViewportWidth       int      `json:"viewport_width"`
	ViewportHeight      int      `json:"viewport_height"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	ActionTimeoutMs     int      `json:"action_timeout_ms"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		ViewportWidth:       1280,
		ViewportHeight:      800,
		NavigationTimeoutMs: 30000,
		ActionTimeoutMs:     10000,
	}
}

// FromConfig converts the browser section of cadastro.yaml.
func FromConfig(c config.BrowserConfig) Config {
	return Config{
		DebuggerURL:         c.DebuggerURL,
		Launch:              c.Launch,
		Headless:            c.Headless,
		ViewportWidth:       c.ViewportWidth,
		ViewportHeight:      c.ViewportHeight,
		NavigationTimeoutMs: c.NavigationTimeoutMs,
		ActionTimeoutMs:     c.ActionTimeoutMs,
	}
}

// GetViewportWidth returns viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1280
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 800
	}
	return c.ViewportHeight
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// ActionTimeout bounds how long an element lookup or interaction may wait.
func (c Config) ActionTimeout() time.Duration {
	if c.ActionTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ActionTimeoutMs) * time.Millisecond
}
