package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// WeightSumTolerance is how far the feature weights may drift from 1.0
// before the config is rejected.
const WeightSumTolerance = 0.001

// Scoring is the engine's tunable surface: feature weights, the alert
// threshold formula, and the must-flag thresholds. It is validated once
// at load and passed into the scorer as an immutable object.
type Scoring struct {
	// Weights maps feature name to weight. Weights must sum to 1.0
	// within WeightSumTolerance.
	Weights map[string]float64 `mapstructure:"weights"`

	// DefaultSensitivity is used when a caller does not supply one.
	DefaultSensitivity float64 `mapstructure:"default_sensitivity"`

	// Alert threshold = ThresholdBase + sensitivity * ThresholdSlope.
	ThresholdBase  float64 `mapstructure:"threshold_base"`
	ThresholdSlope float64 `mapstructure:"threshold_slope"`

	MustFlag MustFlagThresholds `mapstructure:"must_flag"`

	// PositionDustEpsilon is the minimum absolute position size kept by
	// the position aggregator.
	PositionDustEpsilon float64 `mapstructure:"position_dust_epsilon"`
}

// MustFlagThresholds are the hard limits that force an alert regardless
// of the weighted score.
type MustFlagThresholds struct {
	// SingleTradeUSD flags any single trade above this notional.
	SingleTradeUSD float64 `mapstructure:"single_trade_usd"`

	// HourlyPositionChangeUSD flags a wallet whose absolute position
	// change over the trailing hour, valued at the trade price, exceeds
	// this amount.
	HourlyPositionChangeUSD float64 `mapstructure:"hourly_position_change_usd"`

	// FreshWalletMaxAgeDays and FreshWalletTradeUSD together flag large
	// trades from young wallets.
	FreshWalletMaxAgeDays int     `mapstructure:"fresh_wallet_max_age_days"`
	FreshWalletTradeUSD   float64 `mapstructure:"fresh_wallet_trade_usd"`

	// LiquidityShare flags a wallet holding more than this fraction of
	// total market liquidity.
	LiquidityShare float64 `mapstructure:"liquidity_share"`
}

// DefaultScoring returns the production weight table and thresholds.
func DefaultScoring() *Scoring {
	return &Scoring{
		Weights: map[string]float64{
			"trade_size_vs_median":     0.15,
			"trade_size_vs_depth":      0.15,
			"aggressiveness":        0.20,
			"wallet_burst":           0.15,
			"position_concentration": 0.10,
			"ramp_speed":             0.10,
			"wallet_freshness":       0.10,
			"dollar_value":           0.05,
		},
		DefaultSensitivity: 0.3,
		ThresholdBase:      0.25,
		ThresholdSlope:     0.5,
		MustFlag: MustFlagThresholds{
			SingleTradeUSD:          25000,
			HourlyPositionChangeUSD: 50000,
			FreshWalletMaxAgeDays:   7,
			FreshWalletTradeUSD:     10000,
			LiquidityShare:          0.05,
		},
		PositionDustEpsilon: 0.01,
	}
}

// LoadScoring reads the scoring config from a YAML file, falling back
// to DefaultScoring when path is empty. A file that defines weights
// replaces the default table wholesale so a partial edit cannot leave
// stale default weights behind.
func LoadScoring(path string) (*Scoring, error) {
	s := DefaultScoring()
	if path == "" {
		return s, s.Validate()
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read scoring config %s: %w", path, err)
	}

	if v.IsSet("weights") {
		s.Weights = make(map[string]float64)
	}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("parse scoring config %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config %s: %w", path, err)
	}
	return s, nil
}

// Validate checks the configuration invariants. Called once at load so
// a bad weight table fails the process at startup, not per trade.
func (s *Scoring) Validate() error {
	if len(s.Weights) == 0 {
		return fmt.Errorf("weights must not be empty")
	}

	sum := 0.0
	for name, w := range s.Weights {
		if w < 0 {
			return fmt.Errorf("weight for %s must not be negative", name)
		}
		sum += w
	}
	if sum < 1-WeightSumTolerance || sum > 1+WeightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0 (got %.4f)", sum)
	}

	if s.DefaultSensitivity < 0 || s.DefaultSensitivity > 1 {
		return fmt.Errorf("default_sensitivity must be in [0,1]")
	}
	if s.ThresholdBase < 0 || s.ThresholdSlope < 0 {
		return fmt.Errorf("threshold constants must not be negative")
	}

	mf := s.MustFlag
	if mf.SingleTradeUSD <= 0 || mf.HourlyPositionChangeUSD <= 0 || mf.FreshWalletTradeUSD <= 0 {
		return fmt.Errorf("must-flag USD thresholds must be positive")
	}
	if mf.FreshWalletMaxAgeDays <= 0 {
		return fmt.Errorf("must_flag.fresh_wallet_max_age_days must be positive")
	}
	if mf.LiquidityShare <= 0 || mf.LiquidityShare > 1 {
		return fmt.Errorf("must_flag.liquidity_share must be in (0,1]")
	}

	if s.PositionDustEpsilon < 0 {
		return fmt.Errorf("position_dust_epsilon must not be negative")
	}
	return nil
}
