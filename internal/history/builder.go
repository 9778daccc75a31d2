// Package history assembles the per-trade evaluation context from
// stored trade history: trailing medians, wallet activity, and the
// position aggregator's view of the wallet's holdings now and an hour
// ago.
package history

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/polysentinel/engine/internal/positions"
	"github.com/polysentinel/engine/internal/store"
)

// DefaultWindowSize bounds how many recent trades per market feed the
// median and position recomputes.
const DefaultWindowSize = 1000

// TradeSource provides the trade history the builder reads. Satisfied
// by store.TradeRepo.
type TradeSource interface {
	// MarketWindow returns up to limit most recent trades for a market,
	// ordered by execution time ascending.
	MarketWindow(ctx context.Context, marketID string, limit int) ([]store.Trade, error)

	// WalletFirstSeen returns the timestamp of the wallet's earliest
	// recorded trade, or nil when the wallet has no history.
	WalletFirstSeen(ctx context.Context, wallet string) (*time.Time, error)
}

// Builder computes the Context contract the scorer consumes. It holds
// no per-trade state; every Build call reads fresh history.
type Builder struct {
	src        TradeSource
	agg        *positions.Aggregator
	windowSize int
}

// NewBuilder creates a Builder over the given trade source.
func NewBuilder(src TradeSource, agg *positions.Aggregator, windowSize int) *Builder {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Builder{src: src, agg: agg, windowSize: windowSize}
}

// Build assembles the scoring context for one trade. Magnitude fields
// are non-negative; WalletAgeDays stays nil for wallets with no
// observable history.
func (b *Builder) Build(ctx context.Context, trade store.Trade, market store.MarketState, now time.Time) (store.Context, error) {
	window, err := b.src.MarketWindow(ctx, trade.MarketID, b.windowSize)
	if err != nil {
		return store.Context{}, fmt.Errorf("load market window: %w", err)
	}

	wallet := trade.Wallet()
	hourAgo := now.Add(-time.Hour)

	tradesLastHour := 0
	for _, w := range window {
		if !w.Timestamp.After(hourAgo) {
			continue
		}
		if w.Taker == wallet || w.Maker == wallet {
			tradesLastHour++
		}
	}

	positionNow := b.walletPosition(window, wallet, trade.TokenID, now)

	var lagged []store.Trade
	for _, w := range window {
		if !w.Timestamp.After(hourAgo) {
			lagged = append(lagged, w)
		}
	}
	positionHourAgo := b.walletPosition(lagged, wallet, trade.TokenID, now)

	ageDays, err := b.walletAgeDays(ctx, wallet, now)
	if err != nil {
		return store.Context{}, fmt.Errorf("load wallet age: %w", err)
	}

	return store.Context{
		MedianTradeSize:       medianSize(window),
		WalletPosition:        positionNow,
		WalletPositionHourAgo: positionHourAgo,
		WalletTradesLastHour:  tradesLastHour,
		TotalLiquidity:        market.TotalLiquidity(),
		WalletAgeDays:         ageDays,
		TradeValueUSD:         trade.ValueUSD,
	}, nil
}

// walletPosition recomputes the wallet's absolute position in a token
// from the given trades.
func (b *Builder) walletPosition(trades []store.Trade, wallet, tokenID string, now time.Time) float64 {
	for _, p := range b.agg.Aggregate(trades, now) {
		if p.Wallet == wallet && p.TokenID == tokenID {
			return math.Abs(p.Position)
		}
	}
	return 0
}

// walletAgeDays derives the wallet's age from its earliest recorded
// trade. Unknown wallets return nil, which the freshness feature treats
// as neutral rather than brand new.
func (b *Builder) walletAgeDays(ctx context.Context, wallet string, now time.Time) (*int, error) {
	if wallet == "" || wallet == store.ZeroAddress {
		return nil, nil
	}

	first, err := b.src.WalletFirstSeen(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}

	days := int(now.Sub(*first).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days, nil
}

// medianSize is the median trade size of the window; zero for an empty
// window, which the features treat as "median unavailable".
func medianSize(trades []store.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	sizes := make([]float64, 0, len(trades))
	for _, t := range trades {
		sizes = append(sizes, t.Size)
	}
	sort.Float64s(sizes)

	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		return sizes[mid]
	}
	return (sizes[mid-1] + sizes[mid]) / 2
}
