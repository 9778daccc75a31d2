// Package store provides data models and Postgres persistence.
package store

import (
	"time"

	"gorm.io/datatypes"
)

// Side values after normalization.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// ZeroAddress marks "no counterparty" in some upstream records and is
// never accumulated into positions.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Trade represents a single executed trade from Polymarket.
// Immutable once ingested; keyed by the upstream trade ID.
type Trade struct {
	// ID is the upstream trade identifier (dedup key)
	ID string `gorm:"column:id;primaryKey" json:"id"`

	// MarketID is the market/condition ID
	MarketID string `gorm:"column:market_id;index" json:"marketId"`

	// TokenID is the specific outcome token ID
	TokenID string `gorm:"column:token_id;index" json:"tokenId"`

	// Maker is the wallet whose resting order was matched
	Maker string `gorm:"column:maker" json:"maker"`

	// Taker is the wallet whose order crossed the book (may be empty)
	Taker string `gorm:"column:taker" json:"taker"`

	// Side is BUY or SELL (the taker's side)
	Side string `gorm:"column:side" json:"side"`

	// Size is the trade size in shares
	Size float64 `gorm:"column:size" json:"size"`

	// Price is the execution price (0-1 range for prediction markets)
	Price float64 `gorm:"column:price" json:"price"`

	// ValueUSD is the notional value of the trade (size * price)
	ValueUSD float64 `gorm:"column:value_usd" json:"valueUsd"`

	// Timestamp is when the trade executed
	Timestamp time.Time `gorm:"column:timestamp;index" json:"timestamp"`

	// Raw is the opaque upstream payload, stored for audit only.
	// The engine never reads it.
	Raw datatypes.JSON `gorm:"column:raw" json:"-"`
}

// Wallet returns the address under evaluation for this trade: the
// aggressor (taker) when known, otherwise the maker.
func (t Trade) Wallet() string {
	if t.Taker != "" && t.Taker != ZeroAddress {
		return t.Taker
	}
	return t.Maker
}

// MarketState is a point-in-time orderbook snapshot for one outcome token.
type MarketState struct {
	MarketID string     `json:"marketId"`
	TokenID  string     `json:"tokenId"`
	EndDate  *time.Time `json:"endDate"` // nil when the market has no resolution date
	BestBid  float64    `json:"bestBid"`
	BestAsk  float64    `json:"bestAsk"`
	BidDepth float64    `json:"bidDepth"`
	AskDepth float64    `json:"askDepth"`
}

// Spread returns bestAsk - bestBid.
func (m MarketState) Spread() float64 {
	return m.BestAsk - m.BestBid
}

// TotalLiquidity returns the summed resting depth of both book sides.
func (m MarketState) TotalLiquidity() float64 {
	return m.BidDepth + m.AskDepth
}

// Context carries the historical statistics one trade is scored against.
// All magnitude fields are non-negative; WalletAgeDays is nil when the
// wallet has no observable history, which is distinct from age zero.
type Context struct {
	MedianTradeSize       float64 `json:"medianTradeSize"`
	WalletPosition        float64 `json:"walletPosition"`
	WalletPositionHourAgo float64 `json:"walletPositionHourAgo"`
	WalletTradesLastHour  int     `json:"walletTradesLastHour"`
	TotalLiquidity        float64 `json:"totalLiquidity"`
	WalletAgeDays         *int    `json:"walletAgeDays"`
	TradeValueUSD         float64 `json:"tradeUsdValue"`
}

// FeatureResult is the output of one feature function.
type FeatureResult struct {
	Name string `json:"name"`

	// Score is the normalized suspicion sub-score in [0,1]
	Score float64 `json:"score"`

	// Raw is the pre-normalization value, kept for diagnostics only
	Raw float64 `json:"raw"`

	Description string `json:"description"`
}

// ScoringResult is the engine's verdict on one trade.
type ScoringResult struct {
	// Score is the weighted sum of all configured features, in [0,1]
	Score float64 `json:"score"`

	Features map[string]FeatureResult `json:"features"`

	ShouldAlert bool `json:"shouldAlert"`

	// PrimaryReason is the must-flag condition when flagged, otherwise
	// the description of the heaviest weighted contributor
	PrimaryReason string `json:"primaryReason"`

	// Factors lists every feature that crossed its notability cutoff
	Factors []string `json:"factors"`

	MustFlag       bool   `json:"mustFlag"`
	MustFlagReason string `json:"mustFlagReason,omitempty"`
}

// ScoredTrade pairs a trade with its scoring result for fan-out to the
// alert store, metrics and the TUI.
type ScoredTrade struct {
	Trade  Trade
	Result ScoringResult
}

// Alert is an immutable log entry for a trade that crossed the alert
// threshold or hit a must-flag rule. Deduplicated by trade ID at the
// store level; the engine itself may score the same trade twice.
type Alert struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	TradeID       string         `gorm:"column:trade_id;uniqueIndex" json:"tradeId"`
	MarketID      string         `gorm:"column:market_id;index" json:"marketId"`
	Wallet        string         `gorm:"column:wallet;index" json:"wallet"`
	Score         float64        `gorm:"column:score" json:"score"`
	PrimaryReason string         `gorm:"column:primary_reason" json:"primaryReason"`
	Factors       datatypes.JSON `gorm:"column:factors" json:"factors"`
	Features      datatypes.JSON `gorm:"column:features" json:"features"`
	MustFlag      bool           `gorm:"column:must_flag" json:"mustFlag"`

	// MarketSnapshot is the MarketState at evaluation time
	MarketSnapshot datatypes.JSON `gorm:"column:market_snapshot" json:"marketSnapshot"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

// Position is a reconstructed (wallet, token) holding, rebuilt from
// scratch on every aggregation pass over the market's trade window.
type Position struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Wallet   string `gorm:"column:wallet;uniqueIndex:idx_wallet_token" json:"wallet"`
	MarketID string `gorm:"column:market_id;index" json:"marketId"`
	TokenID  string `gorm:"column:token_id;uniqueIndex:idx_wallet_token" json:"tokenId"`

	// Position is the signed running share count
	Position float64 `gorm:"column:position" json:"position"`

	BuyVolume  float64 `gorm:"column:buy_volume" json:"buyVolume"`
	SellVolume float64 `gorm:"column:sell_volume" json:"sellVolume"`
	TradeCount int     `gorm:"column:trade_count" json:"tradeCount"`

	// LastPrice is the price of the wallet's most recent trade
	LastPrice float64 `gorm:"column:last_price" json:"lastPrice"`

	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}
