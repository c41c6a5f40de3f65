package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("API_TIMEOUT", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("MIGRATIONS_ENABLED", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("METRICS_PORT", "")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "9091", cfg.MetricsPort)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.True(t, cfg.MigrationsEnabled)
	assert.False(t, cfg.Production())
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_TIMEOUT", "0s")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	t.Setenv("MIGRATIONS_ENABLED", "0")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, time.Duration(0), cfg.APITimeout)
	assert.Equal(t, 600, cfg.RateLimitPerMin)
	assert.False(t, cfg.MigrationsEnabled)
}

func TestLocation(t *testing.T) {
	loc, err := App{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	loc, err = App{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = App{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
