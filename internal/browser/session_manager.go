// Package browser drives Chrome through go-rod for the registration smoke test.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cadastro/internal/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

var (
	// ErrNotConnected is returned when no browser is attached.
	ErrNotConnected = errors.New("browser not connected")
	// ErrUnknownSession is returned for session ids the manager does not track.
	ErrUnknownSession = errors.New("unknown session")
	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("element not found")
	// ErrAmbiguousElement is returned when a selector matches more than one element.
	ErrAmbiguousElement = errors.New("selector matched more than one element")
	// ErrValueMismatch is returned when an element does not hold the state an action set.
	ErrValueMismatch = errors.New("element value mismatch")
)

// Session describes the public metadata for a tracked browser context.
type Session struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"target_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

type sessionRecord struct {
	meta   Session
	page   *rod.Page
	cancel context.CancelFunc
}

// SessionManager owns the Chrome instance and tracks active sessions.
type SessionManager struct {
	cfg        Config
	sink       EventSink
	mu         sync.RWMutex
	browser    *rod.Browser
	launcher   *launcher.Launcher
	sessions   map[string]*sessionRecord
	controlURL string
	streams    sync.WaitGroup
}

// NewSessionManager creates a session manager. sink may be nil.
func NewSessionManager(cfg Config, sink EventSink) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		sink:     sink,
		sessions: make(map[string]*sessionRecord),
	}
}

// Start connects to an existing Chrome or launches a new one.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("Stale browser connection detected, reconnecting")
		_ = m.browser.Close()
		m.browser = nil
		m.controlURL = ""
		m.sessions = make(map[string]*sessionRecord)
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(m.cfg.Headless)
		if len(m.cfg.Launch) > 0 {
			l = l.Bin(m.cfg.Launch[0])
			for _, rawFlag := range m.cfg.Launch[1:] {
				flagStr := strings.TrimLeft(rawFlag, "-")
				name, val, hasVal := strings.Cut(flagStr, "=")
				if hasVal {
					l = l.Set(flags.Flag(name), val)
				} else {
					l = l.Set(flags.Flag(name))
				}
			}
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
		m.launcher = l
		logging.Browser("Launched Chrome (headless=%v)", m.cfg.Headless)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		m.killLauncherLocked()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = b
	m.controlURL = controlURL
	logging.BrowserDebug("Connected to %s", controlURL)
	return nil
}

func (m *SessionManager) ensureStarted(ctx context.Context) error {
	m.mu.RLock()
	if m.browser != nil {
		m.mu.RUnlock()
		return nil
	}
	m.mu.RUnlock()
	return m.Start(ctx)
}

// ControlURL returns the WebSocket debugger URL.
func (m *SessionManager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *SessionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Shutdown closes tracked pages, stops event streams and closes the browser.
// A browser this manager launched is killed and its profile removed.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for id, record := range m.sessions {
		if record.cancel != nil {
			record.cancel()
		}
		if record.page != nil {
			_ = record.page.Close()
		}
		delete(m.sessions, id)
	}

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.controlURL = ""
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.BrowserWarn("Shutdown: event streams still running: %v", ctx.Err())
	}

	m.mu.Lock()
	m.killLauncherLocked()
	m.mu.Unlock()
	return err
}

func (m *SessionManager) killLauncherLocked() {
	if m.launcher == nil {
		return
	}
	m.launcher.Kill()
	m.launcher.Cleanup()
	m.launcher = nil
}

// List returns metadata for all known sessions.
func (m *SessionManager) List() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Session, 0, len(m.sessions))
	for _, record := range m.sessions {
		results = append(results, record.meta)
	}
	return results
}

// CreateSession opens a new incognito page and tracks it. An empty url leaves
// the page on about:blank so the caller controls the first navigation.
func (m *SessionManager) CreateSession(ctx context.Context, url string) (*Session, error) {
	if err := m.ensureStarted(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	b := m.browser
	m.mu.RUnlock()
	if b == nil {
		return nil, ErrNotConnected
	}

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.GetViewportWidth(),
		Height:            m.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.BrowserWarn("Failed to set viewport: %v", err)
	}

	now := time.Now()
	meta := Session{
		ID:         uuid.NewString(),
		TargetID:   string(page.TargetID),
		URL:        "about:blank",
		Status:     "active",
		CreatedAt:  now,
		LastActive: now,
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.sessions[meta.ID] = &sessionRecord{meta: meta, page: page, cancel: cancel}
	m.mu.Unlock()

	if err := m.startEventStream(streamCtx, meta.ID, page); err != nil {
		logging.BrowserWarn("[session:%s] event stream unavailable: %v", meta.ID, err)
	}

	if url != "" {
		if err := m.Navigate(ctx, meta.ID, url); err != nil {
			return nil, err
		}
	}

	logging.Browser("Session %s created", meta.ID)
	got, _ := m.GetSession(meta.ID)
	return &got, nil
}

// Page returns the underlying Rod page for a session.
func (m *SessionManager) Page(sessionID string) (*rod.Page, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok || rec.page == nil {
		return nil, false
	}
	return rec.page, true
}

// UpdateMetadata updates session metadata.
func (m *SessionManager) UpdateMetadata(sessionID string, updater func(Session) Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	rec.meta = updater(rec.meta)
}

// GetSession returns session metadata.
func (m *SessionManager) GetSession(sessionID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return rec.meta, true
}

// CloseSession closes one session's page.
func (m *SessionManager) CloseSession(sessionID string) error {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if rec.cancel != nil {
		rec.cancel()
	}
	if rec.page != nil {
		return rec.page.Close()
	}
	return nil
}

func (m *SessionManager) page(sessionID string) (*rod.Page, error) {
	page, ok := m.Page(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return page, nil
}

func (m *SessionManager) touch(sessionID string) {
	m.UpdateMetadata(sessionID, func(s Session) Session {
		s.LastActive = time.Now()
		return s
	})
}

// Navigate loads url and waits for the load event.
func (m *SessionManager) Navigate(ctx context.Context, sessionID, url string) error {
	page, err := m.page(sessionID)
	if err != nil {
		return err
	}

	p := page.Context(ctx).Timeout(m.cfg.NavigationTimeout())
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}

	m.UpdateMetadata(sessionID, func(s Session) Session {
		s.URL = url
		s.LastActive = time.Now()
		return s
	})
	logging.BrowserDebug("[session:%s] navigated to %s", sessionID, url)
	return nil
}

// Count returns how many elements currently match selector.
func (m *SessionManager) Count(ctx context.Context, sessionID, selector string) (int, error) {
	page, err := m.page(sessionID)
	if err != nil {
		return 0, err
	}
	els, err := page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", selector, err)
	}
	return len(els), nil
}

// resolve waits up to the action timeout for selector to appear, then demands
// exactly one match.
func (m *SessionManager) resolve(ctx context.Context, sessionID, selector string) (*rod.Element, error) {
	page, err := m.page(sessionID)
	if err != nil {
		return nil, err
	}

	waitPage := page.Context(ctx).Timeout(m.cfg.ActionTimeout())
	_, err = waitPage.Element(selector)
	waitPage.CancelTimeout()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	els, err := page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	switch len(els) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	case 1:
		return els[0], nil
	default:
		return nil, fmt.Errorf("%w: %s (%d matches)", ErrAmbiguousElement, selector, len(els))
	}
}

// Click clicks the single element matching selector.
func (m *SessionManager) Click(ctx context.Context, sessionID, selector string) error {
	el, err := m.resolve(ctx, sessionID, selector)
	if err != nil {
		return err
	}
	el = el.Timeout(m.cfg.ActionTimeout())
	defer el.CancelTimeout()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	m.touch(sessionID)
	return nil
}

// Type replaces the value of the element matching selector with text and
// verifies the element holds it afterwards.
func (m *SessionManager) Type(ctx context.Context, sessionID, selector, text string) error {
	el, err := m.resolve(ctx, sessionID, selector)
	if err != nil {
		return err
	}
	el = el.Timeout(m.cfg.ActionTimeout())
	defer el.CancelTimeout()

	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text in %s: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}

	got, err := el.Property("value")
	if err != nil {
		return fmt.Errorf("read %s value: %w", selector, err)
	}
	if got.Str() != text {
		return fmt.Errorf("%w: %s holds %q, want %q", ErrValueMismatch, selector, got.Str(), text)
	}
	m.touch(sessionID)
	return nil
}

// Check leaves the checkbox matching selector checked, clicking it only when
// it is not checked yet.
func (m *SessionManager) Check(ctx context.Context, sessionID, selector string) error {
	el, err := m.resolve(ctx, sessionID, selector)
	if err != nil {
		return err
	}
	el = el.Timeout(m.cfg.ActionTimeout())
	defer el.CancelTimeout()

	checked, err := el.Property("checked")
	if err != nil {
		return fmt.Errorf("read %s checked: %w", selector, err)
	}
	if !checked.Bool() {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("check %s: %w", selector, err)
		}
		checked, err = el.Property("checked")
		if err != nil {
			return fmt.Errorf("read %s checked: %w", selector, err)
		}
		if !checked.Bool() {
			return fmt.Errorf("%w: %s still unchecked", ErrValueMismatch, selector)
		}
	}
	m.touch(sessionID)
	return nil
}

// Value returns the current value property of the element matching selector.
func (m *SessionManager) Value(ctx context.Context, sessionID, selector string) (string, error) {
	el, err := m.resolve(ctx, sessionID, selector)
	if err != nil {
		return "", err
	}
	v, err := el.Property("value")
	if err != nil {
		return "", fmt.Errorf("read %s value: %w", selector, err)
	}
	return v.Str(), nil
}

// IsChecked reports the checked property of the element matching selector.
func (m *SessionManager) IsChecked(ctx context.Context, sessionID, selector string) (bool, error) {
	el, err := m.resolve(ctx, sessionID, selector)
	if err != nil {
		return false, err
	}
	v, err := el.Property("checked")
	if err != nil {
		return false, fmt.Errorf("read %s checked: %w", selector, err)
	}
	return v.Bool(), nil
}

// Screenshot captures a screenshot.
func (m *SessionManager) Screenshot(ctx context.Context, sessionID string, fullPage bool) ([]byte, error) {
	page, err := m.page(sessionID)
	if err != nil {
		return nil, err
	}
	return page.Context(ctx).Screenshot(fullPage, nil)
}

// startEventStream wires the DOM hook binding and frame navigations into the sink.
// The stream ends when ctx is cancelled.
func (m *SessionManager) startEventStream(ctx context.Context, sessionID string, page *rod.Page) error {
	if m.sink == nil {
		return nil
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		return fmt.Errorf("add binding: %w", err)
	}
	if _, err := page.EvalOnNewDocument(domHookScript); err != nil {
		return fmt.Errorf("install dom hook: %w", err)
	}

	wait := page.Context(ctx).EachEvent(
		func(ev *proto.PageFrameNavigated) {
			if ev.Frame == nil || ev.Frame.ParentID != "" {
				return
			}
			now := time.Now()
			m.sink.Record(Event{SessionID: sessionID, Kind: EventNavigation, Target: ev.Frame.URL, At: now})
			m.UpdateMetadata(sessionID, func(s Session) Session {
				s.URL = ev.Frame.URL
				s.LastActive = now
				return s
			})
		},
		func(ev *proto.RuntimeBindingCalled) {
			if ev.Name != bindingName {
				return
			}
			e, err := decodeBindingPayload(sessionID, ev.Payload)
			if err != nil {
				logging.BrowserDebug("[session:%s] %v", sessionID, err)
				return
			}
			m.sink.Record(e)
		},
	)

	m.streams.Add(1)
	go func() {
		defer m.streams.Done()
		wait()
	}()
	return nil
}
