package detector

import (
	"math"

	"github.com/polysentinel/engine/internal/store"
)

// Feature names. These are the keys of the weight table and of the
// per-trade feature map in ScoringResult.
const (
	FeatureTradeSizeVsMedian     = "trade_size_vs_median"
	FeatureTradeSizeVsDepth      = "trade_size_vs_depth"
	FeatureAggressiveness        = "aggressiveness"
	FeatureWalletBurst           = "wallet_burst"
	FeaturePositionConcentration = "position_concentration"
	FeatureRampSpeed             = "ramp_speed"
	FeatureWalletFreshness       = "wallet_freshness"
	FeatureDollarValue           = "dollar_value"

	// FeatureTimingVsMarketEnd is implemented and exposed but carries no
	// weight in the default table. Assigning it weight in the scoring
	// config opts it into the weighted sum.
	FeatureTimingVsMarketEnd = "timing_vs_market_end"
)

// dollarValueMidpoint is the implicit median for the dollarValue curve:
// a $5,000 trade scores exactly 0.5.
const dollarValueMidpoint = 5000

// burstSaturationCount is the trailing-hour trade count at which
// walletBurst saturates to 1.0.
const burstSaturationCount = 10

// rampMedianMultiple scales the market median into the reference for
// hourly position deltas.
const rampMedianMultiple = 5

// FeatureOrder fixes the iteration order of the weight table. Reason
// ranking ties break on this order, first wins.
var FeatureOrder = []string{
	FeatureTradeSizeVsMedian,
	FeatureTradeSizeVsDepth,
	FeatureAggressiveness,
	FeatureWalletBurst,
	FeaturePositionConcentration,
	FeatureRampSpeed,
	FeatureWalletFreshness,
	FeatureDollarValue,
	FeatureTimingVsMarketEnd,
}

// FeatureFunc converts one trade and its context into a bounded
// sub-score. Feature functions are pure: same inputs, same output.
type FeatureFunc func(t store.Trade, m store.MarketState, c store.Context) store.FeatureResult

var featureFuncs = map[string]FeatureFunc{
	FeatureTradeSizeVsMedian:     tradeSizeVsMedian,
	FeatureTradeSizeVsDepth:      tradeSizeVsDepth,
	FeatureAggressiveness:        aggressiveness,
	FeatureWalletBurst:           walletBurst,
	FeaturePositionConcentration: positionConcentration,
	FeatureRampSpeed:             rampSpeed,
	FeatureWalletFreshness:       walletFreshness,
	FeatureDollarValue:           dollarValue,
	FeatureTimingVsMarketEnd:     timingVsMarketEnd,
}

var featureDescriptions = map[string]string{
	FeatureTradeSizeVsMedian:     "Trade size far above the market median",
	FeatureTradeSizeVsDepth:      "Trade consumed a large share of visible book depth",
	FeatureAggressiveness:        "Order crossed the spread aggressively",
	FeatureWalletBurst:           "High trade frequency from this wallet in the last hour",
	FeaturePositionConcentration: "Wallet position is large relative to market liquidity",
	FeatureRampSpeed:             "Rapid position build-up over the last hour",
	FeatureWalletFreshness:       "Recently created wallet",
	FeatureDollarValue:           "Large dollar value trade",
	FeatureTimingVsMarketEnd:     "Trade placed close to market resolution",
}

// tradeSizeVsMedian compares the trade size to the market's trailing
// median trade size.
func tradeSizeVsMedian(t store.Trade, _ store.MarketState, c store.Context) store.FeatureResult {
	return result(FeatureTradeSizeVsMedian, Normalize(t.Size, c.MedianTradeSize), t.Size)
}

// tradeSizeVsDepth measures how much of the consumed book side the
// trade ate: a BUY consumes ask depth, a SELL consumes bid depth. The
// score is capped at 1.0 even when the raw ratio exceeds it.
func tradeSizeVsDepth(t store.Trade, m store.MarketState, _ store.Context) store.FeatureResult {
	depth := m.AskDepth
	if t.Side == store.SideSell {
		depth = m.BidDepth
	}
	if depth <= 0 {
		return result(FeatureTradeSizeVsDepth, 0, 0)
	}
	ratio := t.Size / depth
	return result(FeatureTradeSizeVsDepth, math.Min(1, ratio), ratio)
}

// aggressiveness measures spread-crossing. Fully aggressive fills (at
// or through the far touch) score 0.8 plus up to 0.2 for overpayment
// beyond it; fills inside the spread earn partial credit scaled by how
// far through the spread they went; passive fills score 0.
func aggressiveness(t store.Trade, m store.MarketState, _ store.Context) store.FeatureResult {
	spread := m.Spread()
	if spread <= 0 || m.BestBid <= 0 || m.BestAsk <= 0 {
		return result(FeatureAggressiveness, 0, t.Price)
	}

	var score float64
	if t.Side == store.SideSell {
		switch {
		case t.Price <= m.BestBid:
			score = 0.8 + 0.2*math.Min(1, (m.BestBid-t.Price)/spread)
		case t.Price < m.BestAsk:
			score = 0.7 * (m.BestAsk - t.Price) / spread
		default:
			score = 0
		}
	} else {
		switch {
		case t.Price >= m.BestAsk:
			score = 0.8 + 0.2*math.Min(1, (t.Price-m.BestAsk)/spread)
		case t.Price > m.BestBid:
			score = 0.7 * (t.Price - m.BestBid) / spread
		default:
			score = 0
		}
	}
	return result(FeatureAggressiveness, clamp01(score), t.Price)
}

// walletBurst saturates at ten trades in the trailing hour.
func walletBurst(_ store.Trade, _ store.MarketState, c store.Context) store.FeatureResult {
	count := float64(c.WalletTradesLastHour)
	if count < 0 {
		count = 0
	}
	return result(FeatureWalletBurst, math.Min(1, count/burstSaturationCount), count)
}

// positionConcentration is the wallet's share of total market
// liquidity, capped at 1.0.
func positionConcentration(_ store.Trade, _ store.MarketState, c store.Context) store.FeatureResult {
	if c.TotalLiquidity <= 0 {
		return result(FeaturePositionConcentration, 0, 0)
	}
	ratio := c.WalletPosition / c.TotalLiquidity
	return result(FeaturePositionConcentration, clamp01(ratio), ratio)
}

// rampSpeed normalizes the wallet's hourly position change against five
// times the market's median trade size.
func rampSpeed(_ store.Trade, _ store.MarketState, c store.Context) store.FeatureResult {
	delta := math.Abs(c.WalletPosition - c.WalletPositionHourAgo)
	return result(FeatureRampSpeed, Normalize(delta, c.MedianTradeSize*rampMedianMultiple), delta)
}

// walletFreshness scores younger wallets higher. Unknown history is
// neutral (0.5), not unsuspicious.
func walletFreshness(_ store.Trade, _ store.MarketState, c store.Context) store.FeatureResult {
	if c.WalletAgeDays == nil {
		return result(FeatureWalletFreshness, 0.5, -1)
	}
	age := *c.WalletAgeDays
	var score float64
	switch {
	case age < 1:
		score = 1.0
	case age < 7:
		score = 0.8
	case age < 30:
		score = 0.4
	case age < 90:
		score = 0.2
	default:
		score = 0.1
	}
	return result(FeatureWalletFreshness, score, float64(age))
}

// dollarValue applies the shared saturating curve with an implicit
// $5,000 median.
func dollarValue(_ store.Trade, _ store.MarketState, c store.Context) store.FeatureResult {
	return result(FeatureDollarValue, Normalize(c.TradeValueUSD, dollarValueMidpoint), c.TradeValueUSD)
}

// timingVsMarketEnd scores proximity to the market's resolution date in
// bands: under a day 0.9-1.0, one to seven days 0.5-0.9, seven to
// thirty days 0.2-0.5, thirty to ninety days decaying to 0. Trades
// after the end date score 1.0; markets without an end date score 0.
func timingVsMarketEnd(t store.Trade, m store.MarketState, _ store.Context) store.FeatureResult {
	if m.EndDate == nil {
		return result(FeatureTimingVsMarketEnd, 0, 0)
	}
	days := m.EndDate.Sub(t.Timestamp).Hours() / 24
	var score float64
	switch {
	case days <= 0:
		score = 1.0
	case days < 1:
		score = 0.9 + 0.1*(1-days)
	case days < 7:
		score = 0.5 + 0.4*(7-days)/6
	case days < 30:
		score = 0.2 + 0.3*(30-days)/23
	case days < 90:
		score = 0.1 * (90 - days) / 60
	default:
		score = 0
	}
	return result(FeatureTimingVsMarketEnd, clamp01(score), days)
}

func result(name string, score, raw float64) store.FeatureResult {
	return store.FeatureResult{
		Name:        name,
		Score:       score,
		Raw:         raw,
		Description: featureDescriptions[name],
	}
}
