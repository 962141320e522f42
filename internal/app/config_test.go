package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, displayVersion, err := loadConfig(nil)
	require.NoError(t, err)

	assert.False(t, displayVersion)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.Authority.Timeout)
	assert.Equal(t, int64(5), cfg.Authority.BreakerThreshold)
	assert.Equal(t, uint(5), cfg.Auth.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Auth.Backoff)
	assert.Equal(t, 30*time.Second, cfg.Auth.Leeway)
	assert.Equal(t, "memory", cfg.SeatCache.Backend)
	assert.Equal(t, 20*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoadConfigEnvironmentAndFlags(t *testing.T) {
	t.Setenv("CINEMAX_PORT", "4000")
	t.Setenv("CINEMAX_AUTHORITY_BASE_URL", "https://authority.test/api/v1")
	t.Setenv("CINEMAX_AUTHORITY_TIMEOUT", "5s")
	t.Setenv("CINEMAX_REDIS_URL", "localhost:6379")
	t.Setenv("CINEMAX_AUTH_LEEWAY", "10s")

	cfg, _, err := loadConfig([]string{"-port", "5000", "-seat-cache", "redis", "-auth-leeway", "45s"})
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "https://authority.test/api/v1", cfg.Authority.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Authority.Timeout)
	assert.Equal(t, "redis", cfg.SeatCache.Backend)
	assert.Equal(t, 45*time.Second, cfg.Auth.Leeway)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "redis seat cache without redis", args: []string{"-seat-cache", "redis"}},
		{name: "unknown seat cache", args: []string{"-seat-cache", "disk"}},
		{name: "unknown flag", args: []string{"-colour"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := loadConfig(tt.args)
			assert.Error(t, err)
		})
	}
}
