package browser

import "context"

// PageDriver binds one session so callers can drive it without carrying the id.
type PageDriver struct {
	m         *SessionManager
	sessionID string
}

// Driver returns a PageDriver for sessionID.
func (m *SessionManager) Driver(sessionID string) *PageDriver {
	return &PageDriver{m: m, sessionID: sessionID}
}

// SessionID returns the bound session.
func (d *PageDriver) SessionID() string { return d.sessionID }

func (d *PageDriver) Visit(ctx context.Context, url string) error {
	return d.m.Navigate(ctx, d.sessionID, url)
}

func (d *PageDriver) Type(ctx context.Context, selector, text string) error {
	return d.m.Type(ctx, d.sessionID, selector, text)
}

func (d *PageDriver) Check(ctx context.Context, selector string) error {
	return d.m.Check(ctx, d.sessionID, selector)
}

func (d *PageDriver) Click(ctx context.Context, selector string) error {
	return d.m.Click(ctx, d.sessionID, selector)
}

// Screenshot captures the bound page.
func (d *PageDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.m.Screenshot(ctx, d.sessionID, true)
}
