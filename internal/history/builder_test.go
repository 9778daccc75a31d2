package history

import (
	"context"
	"testing"
	"time"

	"github.com/polysentinel/engine/internal/positions"
	"github.com/polysentinel/engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeSource serves a fixed trade window from memory.
type fakeSource struct {
	trades []store.Trade
}

func (f *fakeSource) MarketWindow(_ context.Context, marketID string, limit int) ([]store.Trade, error) {
	var out []store.Trade
	for _, t := range f.trades {
		if t.MarketID == marketID {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeSource) WalletFirstSeen(_ context.Context, wallet string) (*time.Time, error) {
	var first *time.Time
	for _, t := range f.trades {
		if t.Taker != wallet && t.Maker != wallet {
			continue
		}
		ts := t.Timestamp
		if first == nil || ts.Before(*first) {
			first = &ts
		}
	}
	return first, nil
}

func mkTrade(id string, size float64, taker string, at time.Time) store.Trade {
	return store.Trade{
		ID:        id,
		MarketID:  "m1",
		TokenID:   "tok1",
		Side:      store.SideBuy,
		Size:      size,
		Price:     0.5,
		ValueUSD:  size * 0.5,
		Maker:     "0xMaker",
		Taker:     taker,
		Timestamp: at,
	}
}

func newBuilder(src TradeSource) *Builder {
	return NewBuilder(src, positions.NewAggregator(positions.DefaultDustEpsilon), 100)
}

func TestBuildMedianAndBurst(t *testing.T) {
	src := &fakeSource{trades: []store.Trade{
		mkTrade("a", 10, "0xW1", now.Add(-3*time.Hour)),
		mkTrade("b", 20, "0xOther", now.Add(-30*time.Minute)),
		mkTrade("c", 30, "0xW1", now.Add(-20*time.Minute)),
		mkTrade("d", 40, "0xW1", now.Add(-10*time.Minute)),
	}}

	trade := mkTrade("d", 40, "0xW1", now.Add(-10*time.Minute))
	got, err := newBuilder(src).Build(context.Background(), trade, store.MarketState{BidDepth: 300, AskDepth: 200}, now)
	require.NoError(t, err)

	assert.InDelta(t, 25, got.MedianTradeSize, 1e-9) // sizes 10,20,30,40
	assert.Equal(t, 2, got.WalletTradesLastHour)     // c and d, not a
	assert.Equal(t, 500.0, got.TotalLiquidity)
	assert.Equal(t, 20.0, got.TradeValueUSD)
}

func TestBuildPositionNowAndHourAgo(t *testing.T) {
	src := &fakeSource{trades: []store.Trade{
		mkTrade("a", 100, "0xW1", now.Add(-5*time.Hour)),
		mkTrade("b", 50, "0xW1", now.Add(-10*time.Minute)),
	}}

	trade := mkTrade("b", 50, "0xW1", now.Add(-10*time.Minute))
	got, err := newBuilder(src).Build(context.Background(), trade, store.MarketState{}, now)
	require.NoError(t, err)

	assert.Equal(t, 150.0, got.WalletPosition)
	assert.Equal(t, 100.0, got.WalletPositionHourAgo)
}

func TestBuildWalletAge(t *testing.T) {
	src := &fakeSource{trades: []store.Trade{
		mkTrade("a", 10, "0xW1", now.Add(-72*time.Hour)),
		mkTrade("b", 10, "0xW1", now.Add(-time.Minute)),
	}}

	trade := mkTrade("b", 10, "0xW1", now.Add(-time.Minute))
	got, err := newBuilder(src).Build(context.Background(), trade, store.MarketState{}, now)
	require.NoError(t, err)

	require.NotNil(t, got.WalletAgeDays)
	assert.Equal(t, 3, *got.WalletAgeDays)
}

func TestBuildUnknownWalletAgeIsNil(t *testing.T) {
	src := &fakeSource{}

	trade := mkTrade("z", 10, "0xGhost", now)
	trade.Maker = ""
	got, err := newBuilder(src).Build(context.Background(), trade, store.MarketState{}, now)
	require.NoError(t, err)

	assert.Nil(t, got.WalletAgeDays)
	assert.Zero(t, got.MedianTradeSize)
	assert.Zero(t, got.WalletPosition)
}
