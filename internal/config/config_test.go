package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "GIN_MODE", "GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_TEMPERATURE",
		"TAVILY_API_KEY", "PAYMENTS_API_KEY", "PAYMENTS_BASE_URL", "PAYMENTS_RETURN_URL",
		"PAYMENTS_WEBHOOK_SECRET", "PAYMENTS_PRODUCT_ID", "DATABASE_URL", "REDIS_URL",
		"LOG_LEVEL", "LOG_FORMAT", "UPSTREAM_TIMEOUT", "RATELIMIT_RPM", "RATELIMIT_BURST",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "release", cfg.Gin.Mode)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.InDelta(t, 0.7, cfg.Gemini.Temperature, 1e-9)
	assert.Equal(t, 60*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Gemini.APIKey, "a missing key is not a load error")
	assert.Zero(t, cfg.RateLimit.RPM)
}

func TestLoad_EnvironmentMapping(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("PAYMENTS_WEBHOOK_SECRET", "whsec_abc")
	t.Setenv("UPSTREAM_TIMEOUT", "45s")
	t.Setenv("RATELIMIT_RPM", "30")
	t.Setenv("DATABASE_URL", "postgres://localhost/reach")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "g-key", cfg.Gemini.APIKey)
	assert.Equal(t, "whsec_abc", cfg.Payments.WebhookSecret)
	assert.Equal(t, 45*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 30, cfg.RateLimit.RPM)
	assert.Equal(t, 5, cfg.RateLimit.Burst, "burst derived from rpm")
	assert.Equal(t, "postgres://localhost/reach", cfg.Database.URL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port: "7000"
gemini:
  model: gemini-2.5-pro
  temperature: 0.2
log:
  format: console
`)
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash-lite")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Gemini.Model)
	assert.InDelta(t, 0.2, cfg.Gemini.Temperature, 1e-9)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeFile(t, "port: [unterminated"))
		assert.Error(t, err)
	})

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port not numeric", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"gin mode", "GIN_MODE", "prod"},
		{"log format", "LOG_FORMAT", "xml"},
		{"temperature", "GEMINI_TEMPERATURE", "3.5"},
		{"negative rpm", "RATELIMIT_RPM", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "port", envKey("PORT"))
	assert.Equal(t, "gemini.api_key", envKey("GEMINI_API_KEY"))
	assert.Equal(t, "payments.webhook_secret", envKey("PAYMENTS_WEBHOOK_SECRET"))
}
