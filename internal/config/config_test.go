package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8010", cfg.App.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Upstream.BaseURL)
	assert.Equal(t, 3, cfg.Upstream.MaxAttempts)
	assert.Equal(t, 120, cfg.Returns.EligibilityReasonMaxLen)
	assert.Equal(t, 7, cfg.Returns.ExpiringSoonDays)
	assert.Equal(t, 30*time.Minute, cfg.Returns.FlowSessionTTL)
	assert.Empty(t, cfg.Redis.Host)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "http://orders:9000")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("FLOW_SESSION_TTL", "10m")
	t.Setenv("EXPIRING_SOON_DAYS", "3")
	t.Setenv("REDIS_HOST", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://orders:9000", cfg.Upstream.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Returns.FlowSessionTTL)
	assert.Equal(t, 3, cfg.Returns.ExpiringSoonDays)
	assert.Equal(t, "redis", cfg.Redis.Host)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Upstream: UpstreamConfig{BaseURL: "http://x"},
		Returns:  ReturnsConfig{EligibilityReasonMaxLen: 120},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Upstream.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg.Upstream.BaseURL = "http://x"
	cfg.Returns.EligibilityReasonMaxLen = 0
	assert.Error(t, cfg.Validate())
}
