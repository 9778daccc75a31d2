package detector

import (
	"testing"
	"time"

	"github.com/polysentinel/engine/internal/config"
	"github.com/polysentinel/engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(config.DefaultScoring())
	require.NoError(t, err)
	return s
}

func TestNewScorerRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.Weights["trade_size_vs_median"] = 0.5 // sum now 1.35

	_, err := NewScorer(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")

	cfg = config.DefaultScoring()
	delete(cfg.Weights, "dollar_value")
	cfg.Weights["bogusFeature"] = 0.05

	_, err = NewScorer(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown feature")
}

func TestThreshold(t *testing.T) {
	s := newDefaultScorer(t)

	assert.InDelta(t, 0.25, s.Threshold(0.0), 1e-9)
	assert.InDelta(t, 0.40, s.Threshold(0.3), 1e-9)
	assert.InDelta(t, 0.75, s.Threshold(1.0), 1e-9)

	// Out-of-range sensitivities clamp rather than escape the band.
	assert.InDelta(t, 0.25, s.Threshold(-3), 1e-9)
	assert.InDelta(t, 0.75, s.Threshold(9), 1e-9)
}

func TestMustFlagForcesAlert(t *testing.T) {
	s := newDefaultScorer(t)

	// A single $26k trade in an otherwise quiet context: the weighted
	// score stays below the default threshold, the alert fires anyway.
	trade := store.Trade{ID: "t1", Side: store.SideBuy}
	ctx := store.Context{TradeValueUSD: 26000, WalletAgeDays: intPtr(365)}

	res := s.Score(trade, store.MarketState{}, ctx)
	assert.Less(t, res.Score, s.Threshold(0.3))
	assert.True(t, res.MustFlag)
	assert.True(t, res.ShouldAlert)
	assert.Contains(t, res.PrimaryReason, "Single trade")
	assert.Equal(t, res.MustFlagReason, res.PrimaryReason)
}

func TestScoreBoundedForExtremeInput(t *testing.T) {
	s := newDefaultScorer(t)

	end := time.Now().Add(time.Hour)
	trade := store.Trade{Side: store.SideBuy, Size: 1e9, Price: 0.99}
	market := store.MarketState{BestBid: 0.40, BestAsk: 0.41, BidDepth: 1, AskDepth: 1, EndDate: &end}
	ctx := store.Context{
		MedianTradeSize:      1,
		WalletPosition:       1e9,
		WalletTradesLastHour: 1000,
		TotalLiquidity:       1,
		WalletAgeDays:        intPtr(0),
		TradeValueUSD:        1e9,
	}

	res := s.Score(trade, market, ctx)
	assert.LessOrEqual(t, res.Score, 1.0)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.True(t, res.ShouldAlert)

	// Only the eight weighted features appear in the result map.
	assert.Len(t, res.Features, 8)
	assert.NotContains(t, res.Features, FeatureTimingVsMarketEnd)
}

func TestPrimaryReasonIsHeaviestContributor(t *testing.T) {
	s := newDefaultScorer(t)

	// Aggressive buy through the ask with everything else quiet:
	// aggressiveness (weight 0.20, score 1.0) dominates.
	trade := store.Trade{Side: store.SideBuy, Size: 1, Price: 0.60}
	market := store.MarketState{BestBid: 0.50, BestAsk: 0.55, BidDepth: 1000, AskDepth: 1000}
	ctx := store.Context{MedianTradeSize: 10, WalletAgeDays: intPtr(365), TotalLiquidity: 2000}

	res := s.Score(trade, market, ctx)
	assert.False(t, res.MustFlag)
	assert.Equal(t, featureDescriptions[FeatureAggressiveness], res.PrimaryReason)
	assert.Contains(t, res.Factors, featureDescriptions[FeatureAggressiveness])
}

func TestFactorsUseFixedCutoffs(t *testing.T) {
	s := newDefaultScorer(t)

	// positionConcentration has a 0.3 cutoff: a 0.4 share is notable
	// even though walletBurst at 0.4 is not.
	trade := store.Trade{Side: store.SideBuy, Size: 1, Price: 0.5}
	market := store.MarketState{BestBid: 0.49, BestAsk: 0.51, BidDepth: 500, AskDepth: 500}
	ctx := store.Context{
		MedianTradeSize:      100,
		WalletPosition:       400,
		TotalLiquidity:       1000,
		WalletTradesLastHour: 4,
		WalletAgeDays:        intPtr(365),
	}

	res := s.Score(trade, market, ctx)
	assert.Contains(t, res.Factors, featureDescriptions[FeaturePositionConcentration])
	assert.NotContains(t, res.Factors, featureDescriptions[FeatureWalletBurst])
}

func TestScoreIsPure(t *testing.T) {
	s := newDefaultScorer(t)

	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	trade := store.Trade{ID: "t-42", Side: store.SideSell, Size: 750, Price: 0.31, Timestamp: end.Add(-48 * time.Hour)}
	market := store.MarketState{BestBid: 0.30, BestAsk: 0.34, BidDepth: 1200, AskDepth: 900, EndDate: &end}
	ctx := store.Context{
		MedianTradeSize:       120,
		WalletPosition:        2600,
		WalletPositionHourAgo: 800,
		WalletTradesLastHour:  6,
		TotalLiquidity:        2100,
		WalletAgeDays:         intPtr(12),
		TradeValueUSD:         232.5,
	}

	first := s.Score(trade, market, ctx)
	second := s.Score(trade, market, ctx)
	assert.Equal(t, first, second)
}

func TestTimingFeatureCanBeOptedIn(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.Weights["aggressiveness"] = 0.10
	cfg.Weights[FeatureTimingVsMarketEnd] = 0.10

	s, err := NewScorer(cfg)
	require.NoError(t, err)

	end := time.Now().Add(6 * time.Hour)
	trade := store.Trade{Side: store.SideBuy, Size: 1, Price: 0.5, Timestamp: time.Now()}
	res := s.Score(trade, store.MarketState{EndDate: &end}, store.Context{})

	assert.Contains(t, res.Features, FeatureTimingVsMarketEnd)
	assert.Greater(t, res.Features[FeatureTimingVsMarketEnd].Score, 0.9)
}
