package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tradeBatchSize bounds one INSERT statement during batched upserts.
const tradeBatchSize = 500

// TradeRepo persists and queries the trade ledger.
type TradeRepo struct {
	db *gorm.DB
}

// NewTradeRepo creates a TradeRepo.
func NewTradeRepo(db *gorm.DB) *TradeRepo {
	return &TradeRepo{db: db}
}

// UpsertBatch inserts trades, silently skipping IDs already stored.
// The upstream trade ID is the dedup key; re-polling the same page is
// harmless.
func (r *TradeRepo) UpsertBatch(ctx context.Context, trades []Trade) error {
	if len(trades) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		CreateInBatches(trades, tradeBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert trades: %w", err)
	}
	return nil
}

// MarketWindow returns up to limit most recent trades for a market,
// ordered by execution time ascending.
func (r *TradeRepo) MarketWindow(ctx context.Context, marketID string, limit int) ([]Trade, error) {
	var trades []Trade
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("load market window: %w", err)
	}

	// Newest-first from the index scan; callers want execution order.
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	return trades, nil
}

// WalletFirstSeen returns the timestamp of the wallet's earliest
// recorded trade on either side of the book, or nil if never seen.
func (r *TradeRepo) WalletFirstSeen(ctx context.Context, wallet string) (*time.Time, error) {
	var first sql.NullTime
	err := r.db.WithContext(ctx).
		Model(&Trade{}).
		Where("taker = ? OR maker = ?", wallet, wallet).
		Select("MIN(timestamp)").
		Scan(&first).Error
	if err != nil {
		return nil, fmt.Errorf("wallet first seen: %w", err)
	}

	if !first.Valid {
		return nil, nil
	}
	t := first.Time
	return &t, nil
}
