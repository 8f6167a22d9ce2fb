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

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.BodySizeLimit)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Anthropic.Model)
	assert.Equal(t, 10*time.Minute, cfg.Trends.TTL)
	assert.Equal(t, 480, cfg.Trends.MaxLimit)
	assert.True(t, cfg.Trends.CSVEnabled)
	assert.Equal(t, 5, cfg.RateLimit.GenerateMax)
	assert.Equal(t, 20, cfg.RateLimit.TrendsMax)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "memory", cfg.History.Storage)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Endpoint)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MASTER_KEY", "secret-key")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("TREND_TTL", "120")
	t.Setenv("RATE_LIMIT_GENERATE", "3")
	t.Setenv("HISTORY_STORAGE", "sqlite")
	t.Setenv("LOG_FORMAT", "pretty")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "secret-key", cfg.Server.MasterKey)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.APIKey)
	assert.Equal(t, 2*time.Minute, cfg.Trends.TTL)
	assert.Equal(t, 3, cfg.RateLimit.GenerateMax)
	assert.Equal(t, "sqlite", cfg.History.Storage)
	assert.Equal(t, "pretty", cfg.Logging.Format)
}

func TestLoadInvalidStorage(t *testing.T) {
	t.Setenv("HISTORY_STORAGE", "cassandra")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY_STORAGE")
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	t.Setenv("HISTORY_STORAGE", "postgresql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadInvalidLogFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_GENERATE", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limits")
}

func TestLoadInvalidTTL(t *testing.T) {
	t.Setenv("TREND_TTL", "-5")

	_, err := Load()
	require.Error(t, err)
}
