//go:build !integration && !e2e

package smoke

import (
	"testing"

	"go.uber.org/goleak"
)

// Leak checks cover the browserless build only.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
