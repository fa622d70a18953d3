package log

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifter/internal/logging"
)

func TestSetupInstallsDefault(t *testing.T) {
	t.Setenv(logging.EnvToFile, "")
	t.Setenv(logging.EnvLevel, "")

	lg := Setup("warn", true)
	require.NotNil(t, lg)
	assert.True(t, Initialized())
	assert.Same(t, lg, Setup("error", false))
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestRecoverPanic(t *testing.T) {
	called := false
	func() {
		defer RecoverPanic("test", func() { called = true })
		panic("boom")
	}()
	assert.True(t, called)
}
