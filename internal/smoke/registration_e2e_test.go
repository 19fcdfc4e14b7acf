//go:build e2e

package smoke_test

import (
	"context"
	"os"
	"testing"
	"time"

	"cadastro/internal/browser"
	"cadastro/internal/smoke"

	"github.com/stretchr/testify/require"
)

// TestRegistrationForm drives a real browser against a server already
// listening on 127.0.0.1:8000 (or CADASTRO_BASE_URL).
func TestRegistrationForm(t *testing.T) {
	baseURL := os.Getenv("CADASTRO_BASE_URL")
	if baseURL == "" {
		baseURL = smoke.DefaultBaseURL
	}

	cfg := browser.DefaultConfig()
	cfg.DebuggerURL = os.Getenv("CADASTRO_CHROME_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := smoke.RunInBrowser(ctx, smoke.Registration(baseURL), smoke.Options{Browser: cfg})
	require.NoError(t, err, "%s", summary(report))
	t.Log(report.Summary())
}

func summary(r *smoke.Report) string {
	if r == nil {
		return ""
	}
	return r.Summary()
}
