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

	assert.Equal(t, "https://data-api.polymarket.com", cfg.PolymarketRESTURL)
	assert.Equal(t, 3*time.Second, cfg.TradePollInterval)
	assert.Equal(t, 15*time.Second, cfg.BookPollInterval)
	assert.Equal(t, 50, cfg.MarketLimit)
	assert.Equal(t, 1000, cfg.PositionWindowSize)
	assert.Equal(t, 0.3, cfg.Sensitivity)
	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.True(t, cfg.EnableTUI)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POLYMARKET_REST_URL", "https://example.test")
	t.Setenv("TRADE_POLL_INTERVAL_SECONDS", "10")
	t.Setenv("SENSITIVITY", "0.8")
	t.Setenv("WORKER_COUNT", "12")
	t.Setenv("ENABLE_TUI", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test", cfg.PolymarketRESTURL)
	assert.Equal(t, 10*time.Second, cfg.TradePollInterval)
	assert.Equal(t, 0.8, cfg.Sensitivity)
	assert.Equal(t, 12, cfg.WorkerCount)
	assert.False(t, cfg.EnableTUI)
}

func TestLoadMalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("WORKER_COUNT", "not-a-number")
	t.Setenv("SENSITIVITY", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 0.3, cfg.Sensitivity)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rest url", func(c *Config) { c.PolymarketRESTURL = "" }},
		{"missing gamma url", func(c *Config) { c.GammaAPIURL = "" }},
		{"zero poll interval", func(c *Config) { c.TradePollInterval = 0 }},
		{"zero rate limit", func(c *Config) { c.APIRateLimitRPS = 0 }},
		{"zero market limit", func(c *Config) { c.MarketLimit = 0 }},
		{"zero window", func(c *Config) { c.PositionWindowSize = 0 }},
		{"sensitivity above one", func(c *Config) { c.Sensitivity = 1.5 }},
		{"missing dsn", func(c *Config) { c.DatabaseDSN = "" }},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }},
		{"bad port", func(c *Config) { c.APIPort = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMaskedDSN(t *testing.T) {
	cfg := &Config{DatabaseDSN: "host=db user=admin password=hunter2"}
	masked := cfg.MaskedDSN()
	assert.NotContains(t, masked, "hunter2")
	assert.Contains(t, masked, "****")

	empty := &Config{}
	assert.Equal(t, "(not set)", empty.MaskedDSN())
}
