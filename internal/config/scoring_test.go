package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScoringValid(t *testing.T) {
	cfg := DefaultScoring()
	require.NoError(t, cfg.Validate())

	sum := 0.0
	for _, w := range cfg.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, WeightSumTolerance)
	assert.Equal(t, 25000.0, cfg.MustFlag.SingleTradeUSD)
	assert.Equal(t, 50000.0, cfg.MustFlag.HourlyPositionChangeUSD)
	assert.Equal(t, 0.05, cfg.MustFlag.LiquidityShare)
}

func TestLoadScoringMissingPathUsesDefaults(t *testing.T) {
	cfg, err := LoadScoring("")
	require.NoError(t, err)
	assert.Equal(t, DefaultScoring().Weights, cfg.Weights)
}

func TestLoadScoringFileReplacesWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yaml")
	yaml := `
weights:
  trade_size_vs_median: 0.5
  dollar_value: 0.5
default_sensitivity: 0.6
must_flag:
  single_trade_usd: 40000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadScoring(path)
	require.NoError(t, err)

	// File-provided weights replace the full default table, not merge into it.
	assert.Len(t, cfg.Weights, 2)
	assert.Equal(t, 0.5, cfg.Weights["trade_size_vs_median"])
	assert.Equal(t, 0.6, cfg.DefaultSensitivity)
	assert.Equal(t, 40000.0, cfg.MustFlag.SingleTradeUSD)

	// Fields the file omits keep their defaults.
	assert.Equal(t, 50000.0, cfg.MustFlag.HourlyPositionChangeUSD)
	assert.Equal(t, 0.25, cfg.ThresholdBase)
}

func TestLoadScoringRejectsBadWeightSum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yaml")
	yaml := `
weights:
  trade_size_vs_median: 0.5
  dollar_value: 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := LoadScoring(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum")
}

func TestValidateScoringRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scoring)
	}{
		{"empty weights", func(c *Scoring) { c.Weights = map[string]float64{} }},
		{"negative weight", func(c *Scoring) { c.Weights["dollar_value"] = -0.05 }},
		{"sensitivity out of range", func(c *Scoring) { c.DefaultSensitivity = 2 }},
		{"zero single trade threshold", func(c *Scoring) { c.MustFlag.SingleTradeUSD = 0 }},
		{"liquidity share above one", func(c *Scoring) { c.MustFlag.LiquidityShare = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScoring()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
