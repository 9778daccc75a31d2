package positions

import (
	"testing"
	"time"

	"github.com/polysentinel/engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func trade(id string, side string, size float64, maker, taker string, at time.Time) store.Trade {
	return store.Trade{
		ID:        id,
		MarketID:  "m1",
		TokenID:   "tok1",
		Side:      side,
		Size:      size,
		Price:     0.5,
		Maker:     maker,
		Taker:     taker,
		Timestamp: at,
	}
}

func findPosition(t *testing.T, ps []store.Position, wallet string) store.Position {
	t.Helper()
	for _, p := range ps {
		if p.Wallet == wallet {
			return p
		}
	}
	t.Fatalf("no position for wallet %s", wallet)
	return store.Position{}
}

func TestAggregateMakerGetsOppositeSide(t *testing.T) {
	agg := NewAggregator(DefaultDustEpsilon)

	// W1 takes a BUY for 5, then makes against someone else's SELL for
	// 3: both legs are effective buys, so W1 ends at +8 over 2 trades.
	trades := []store.Trade{
		trade("a", store.SideBuy, 5, "0xOther", "0xW1", now),
		trade("b", store.SideSell, 3, "0xW1", "0xOther2", now.Add(time.Minute)),
	}

	ps := agg.Aggregate(trades, now)
	w1 := findPosition(t, ps, "0xW1")
	assert.Equal(t, 8.0, w1.Position)
	assert.Equal(t, 2, w1.TradeCount)
	assert.Equal(t, 8.0, w1.BuyVolume)
	assert.Zero(t, w1.SellVolume)
}

func TestAggregateBothLegsApply(t *testing.T) {
	agg := NewAggregator(DefaultDustEpsilon)

	// One trade updates both participants in the same pass.
	ps := agg.Aggregate([]store.Trade{
		trade("a", store.SideBuy, 10, "0xMaker", "0xTaker", now),
	}, now)

	require.Len(t, ps, 2)
	taker := findPosition(t, ps, "0xTaker")
	maker := findPosition(t, ps, "0xMaker")
	assert.Equal(t, 10.0, taker.Position)
	assert.Equal(t, -10.0, maker.Position)
	assert.Equal(t, 10.0, maker.SellVolume)
}

func TestAggregateExcludesZeroAddress(t *testing.T) {
	agg := NewAggregator(DefaultDustEpsilon)

	ps := agg.Aggregate([]store.Trade{
		trade("a", store.SideBuy, 10, store.ZeroAddress, "0xTaker", now),
		trade("b", store.SideSell, 4, "0xMaker", "", now),
	}, now)

	for _, p := range ps {
		assert.NotEqual(t, store.ZeroAddress, p.Wallet)
		assert.NotEqual(t, "", p.Wallet)
	}
}

func TestAggregateDropsDust(t *testing.T) {
	agg := NewAggregator(DefaultDustEpsilon)

	// W1 buys 5 and sells 5 minus a rounding crumb.
	ps := agg.Aggregate([]store.Trade{
		trade("a", store.SideBuy, 5, "0xOther", "0xW1", now),
		trade("b", store.SideSell, 4.995, "0xOther", "0xW1", now.Add(time.Minute)),
	}, now)

	for _, p := range ps {
		assert.NotEqual(t, "0xW1", p.Wallet, "dust position must be dropped")
	}
}

func TestAggregateLastPriceFollowsExecutionOrder(t *testing.T) {
	agg := NewAggregator(DefaultDustEpsilon)

	early := trade("a", store.SideBuy, 5, "0xOther", "0xW1", now)
	early.Price = 0.30
	late := trade("b", store.SideBuy, 5, "0xOther", "0xW1", now.Add(time.Hour))
	late.Price = 0.80

	// Feed out of order; the aggregator sorts by execution time.
	ps := agg.Aggregate([]store.Trade{late, early}, now)
	w1 := findPosition(t, ps, "0xW1")
	assert.Equal(t, 0.80, w1.LastPrice)
	assert.Equal(t, 10.0, w1.Position)
}

func TestAggregateIsWindowedRecompute(t *testing.T) {
	agg := NewAggregator(DefaultDustEpsilon)

	window := []store.Trade{trade("a", store.SideBuy, 5, "0xOther", "0xW1", now)}

	first := agg.Aggregate(window, now)
	second := agg.Aggregate(window, now)

	// No state leaks between runs: identical windows give identical
	// results, not doubled positions.
	assert.Equal(t, first, second)
}

func TestAggregateDeterministicOrder(t *testing.T) {
	agg := NewAggregator(DefaultDustEpsilon)

	trades := []store.Trade{
		trade("a", store.SideBuy, 5, "0xBBB", "0xAAA", now),
		trade("b", store.SideBuy, 5, "0xDDD", "0xCCC", now),
	}

	ps := agg.Aggregate(trades, now)
	require.Len(t, ps, 4)
	for i := 1; i < len(ps); i++ {
		assert.Less(t, ps[i-1].Wallet, ps[i].Wallet)
	}
}
