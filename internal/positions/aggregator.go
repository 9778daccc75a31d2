// Package positions reconstructs wallet holdings from trade history.
// Polymarket exposes no positions endpoint, so each aggregation pass
// rebuilds every (wallet, token) position from scratch over a bounded
// trade window. This is a windowed recompute, not an incremental
// ledger: accuracy is bounded by how much history the window covers.
package positions

import (
	"math"
	"sort"
	"time"

	"github.com/polysentinel/engine/internal/store"
)

// DefaultDustEpsilon is the minimum absolute position size kept.
const DefaultDustEpsilon = 0.01

// Aggregator rebuilds positions from a trade window. It holds no state
// between runs; every call to Aggregate starts empty.
type Aggregator struct {
	dustEpsilon float64
}

// NewAggregator creates an Aggregator with the given dust epsilon.
// A negative epsilon falls back to the default.
func NewAggregator(dustEpsilon float64) *Aggregator {
	if dustEpsilon < 0 {
		dustEpsilon = DefaultDustEpsilon
	}
	return &Aggregator{dustEpsilon: dustEpsilon}
}

type key struct {
	wallet  string
	tokenID string
}

// Aggregate rebuilds all (wallet, token) positions present in the
// given trade window. Both legs of every trade apply in the same pass:
// the taker trades the recorded side, the maker absorbed the opposite.
// Positions below the dust epsilon are dropped. The zero address never
// accumulates.
func (a *Aggregator) Aggregate(trades []store.Trade, now time.Time) []store.Position {
	// Process in execution order so LastPrice is the latest trade.
	ordered := make([]store.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	book := make(map[key]*store.Position)

	for _, t := range ordered {
		a.applyLeg(book, t, t.Taker, t.Side == store.SideBuy)
		a.applyLeg(book, t, t.Maker, t.Side != store.SideBuy)
	}

	out := make([]store.Position, 0, len(book))
	for _, p := range book {
		if math.Abs(p.Position) < a.dustEpsilon {
			continue
		}
		p.UpdatedAt = now
		out = append(out, *p)
	}

	// Deterministic output order for batched writes and tests.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wallet != out[j].Wallet {
			return out[i].Wallet < out[j].Wallet
		}
		return out[i].TokenID < out[j].TokenID
	})

	return out
}

// applyLeg applies one participant's side of a trade.
func (a *Aggregator) applyLeg(book map[key]*store.Position, t store.Trade, wallet string, effectiveBuy bool) {
	if wallet == "" || wallet == store.ZeroAddress {
		return
	}

	k := key{wallet: wallet, tokenID: t.TokenID}
	p, ok := book[k]
	if !ok {
		p = &store.Position{
			Wallet:   wallet,
			MarketID: t.MarketID,
			TokenID:  t.TokenID,
		}
		book[k] = p
	}

	if effectiveBuy {
		p.Position += t.Size
		p.BuyVolume += t.Size
	} else {
		p.Position -= t.Size
		p.SellVolume += t.Size
	}
	p.TradeCount++
	p.LastPrice = t.Price
}
