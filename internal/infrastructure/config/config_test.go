package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APPSHELL_FALLBACK_URL", "https://game.example/")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://game.example/", cfg.App.FallbackURL)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.DeviceIDWait)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.ConversionWait)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Remote)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.FallbackDeadline)
	assert.Equal(t, "127.0.0.1:8815", cfg.StatusAPI.Addr)
	assert.True(t, cfg.StatusAPI.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestMissingFallbackURLIsFatal(t *testing.T) {
	t.Setenv("APPSHELL_FALLBACK_URL", "")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrFallbackURL)
}

func TestInvalidFallbackURLIsFatal(t *testing.T) {
	for _, bad := range []string{"not a url", "game.example/path", "https://", "//missing-scheme"} {
		t.Setenv("APPSHELL_FALLBACK_URL", bad)

		_, err := Load("")
		assert.ErrorIs(t, err, ErrFallbackURL, "fallback %q should be rejected", bad)
	}
}

func TestInvalidBaseURLRejected(t *testing.T) {
	t.Setenv("APPSHELL_FALLBACK_URL", "https://game.example/")
	t.Setenv("APPSHELL_API_BASE_URL", "not a url")

	_, err := Load("")
	assert.Error(t, err)
}

func TestEmptyBaseURLAllowed(t *testing.T) {
	// No remote service: lookups simply miss.
	t.Setenv("APPSHELL_FALLBACK_URL", "https://game.example/")
	t.Setenv("APPSHELL_API_BASE_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Endpoints.BaseURL)
}

func TestYAMLOverlay(t *testing.T) {
	t.Setenv("APPSHELL_FALLBACK_URL", "https://env.example/")

	overlay := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte(`
app:
  fallback_url: https://overlay.example/
  project_id: proj-9
theme:
  primary: "#112233"
`), 0o644))

	cfg, err := Load(overlay)
	require.NoError(t, err)

	assert.Equal(t, "https://overlay.example/", cfg.App.FallbackURL, "overlay wins over env")
	assert.Equal(t, "proj-9", cfg.App.ProjectID)
	assert.Equal(t, "#112233", cfg.Theme.Primary)
}

func TestMissingOverlayFileIsError(t *testing.T) {
	t.Setenv("APPSHELL_FALLBACK_URL", "https://game.example/")

	_, err := Load("/nonexistent/overlay.yaml")
	assert.Error(t, err)
}

func TestSDKConfigured(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.SDKConfigured())

	cfg.App.DevKey = "dev-key"
	assert.True(t, cfg.SDKConfigured())
}
