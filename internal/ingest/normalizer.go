// Package ingest polls Polymarket's CLOB and Gamma APIs and normalizes
// upstream records into the engine's canonical shapes.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/polysentinel/engine/internal/store"
	"gorm.io/datatypes"
)

// ParseError reports an upstream numeric field the normalizer refused
// to coerce. Feature math divides by some of these fields, so a bad
// value fails the one trade instead of becoming a silent zero.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable %s %q", e.Field, e.Value)
}

// parseDecimal parses a decimal string, rejecting non-numeric, NaN,
// infinite and negative values.
func parseDecimal(field, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, &ParseError{Field: field, Value: s}
	}
	return f, nil
}

// TradeRecord mirrors one entry of the CLOB trades payload.
type TradeRecord struct {
	ID           string `json:"id"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	MakerAddress string `json:"maker_address"`
	TakerAddress string `json:"taker_address"`
	Side         string `json:"side"`
	Size         string `json:"size"`
	Price        string `json:"price"`
	Timestamp    int64  `json:"timestamp"` // Unix timestamp, seconds or milliseconds
}

// NormalizeTrade converts an upstream trade record into the canonical
// Trade. Side vocabulary is unified to uppercase BUY/SELL; size and
// price are hard failures when unparseable. The raw payload rides along
// opaquely for audit and is never read downstream.
func NormalizeTrade(rec TradeRecord, raw []byte) (store.Trade, error) {
	if rec.ID == "" {
		return store.Trade{}, fmt.Errorf("trade record has no id")
	}

	side := strings.ToUpper(strings.TrimSpace(rec.Side))
	if side != store.SideBuy && side != store.SideSell {
		return store.Trade{}, fmt.Errorf("trade %s: unknown side %q", rec.ID, rec.Side)
	}

	size, err := parseDecimal("size", rec.Size)
	if err != nil {
		return store.Trade{}, fmt.Errorf("trade %s: %w", rec.ID, err)
	}
	price, err := parseDecimal("price", rec.Price)
	if err != nil {
		return store.Trade{}, fmt.Errorf("trade %s: %w", rec.ID, err)
	}

	return store.Trade{
		ID:        rec.ID,
		MarketID:  rec.Market,
		TokenID:   rec.AssetID,
		Maker:     rec.MakerAddress,
		Taker:     rec.TakerAddress,
		Side:      side,
		Size:      size,
		Price:     price,
		ValueUSD:  size * price,
		Timestamp: parseEpoch(rec.Timestamp),
		Raw:       datatypes.JSON(raw),
	}, nil
}

// parseEpoch accepts second or millisecond Unix timestamps.
func parseEpoch(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}

// PriceLevel is one resting level of an orderbook side.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookRecord mirrors the CLOB book snapshot payload.
type BookRecord struct {
	Market  string       `json:"market"`
	AssetID string       `json:"asset_id"`
	Bids    []PriceLevel `json:"bids"`
	Asks    []PriceLevel `json:"asks"`
}

// NormalizeBook converts a book snapshot into MarketState. An empty
// book side is a legitimate state and zero-fills its depth and best
// price; an unparseable level is a hard failure.
func NormalizeBook(rec BookRecord, endDate *time.Time) (store.MarketState, error) {
	state := store.MarketState{
		MarketID: rec.Market,
		TokenID:  rec.AssetID,
		EndDate:  endDate,
	}

	for _, lvl := range rec.Bids {
		price, err := parseDecimal("bid price", lvl.Price)
		if err != nil {
			return store.MarketState{}, fmt.Errorf("book %s: %w", rec.AssetID, err)
		}
		size, err := parseDecimal("bid size", lvl.Size)
		if err != nil {
			return store.MarketState{}, fmt.Errorf("book %s: %w", rec.AssetID, err)
		}
		state.BidDepth += size
		if price > state.BestBid {
			state.BestBid = price
		}
	}

	for _, lvl := range rec.Asks {
		price, err := parseDecimal("ask price", lvl.Price)
		if err != nil {
			return store.MarketState{}, fmt.Errorf("book %s: %w", rec.AssetID, err)
		}
		size, err := parseDecimal("ask size", lvl.Size)
		if err != nil {
			return store.MarketState{}, fmt.Errorf("book %s: %w", rec.AssetID, err)
		}
		state.AskDepth += size
		if state.BestAsk == 0 || price < state.BestAsk {
			state.BestAsk = price
		}
	}

	return state, nil
}
