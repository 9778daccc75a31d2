package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// positionBatchSize bounds one INSERT statement during replacement.
const positionBatchSize = 500

// PositionRepo persists the position aggregator's output.
type PositionRepo struct {
	db *gorm.DB
}

// NewPositionRepo creates a PositionRepo.
func NewPositionRepo(db *gorm.DB) *PositionRepo {
	return &PositionRepo{db: db}
}

// ReplaceForMarket swaps out every stored position for a market with
// the freshly recomputed set. The aggregator rebuilds from scratch per
// run, so persistence mirrors that: delete then insert, atomically.
func (r *PositionRepo) ReplaceForMarket(ctx context.Context, marketID string, positions []Position) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("market_id = ?", marketID).Delete(&Position{}).Error; err != nil {
			return err
		}
		if len(positions) == 0 {
			return nil
		}
		return tx.CreateInBatches(positions, positionBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("replace positions for market %s: %w", marketID, err)
	}
	return nil
}

// ListByMarket returns a market's positions ordered by absolute size,
// largest first.
func (r *PositionRepo) ListByMarket(ctx context.Context, marketID string, limit int) ([]Position, error) {
	if limit <= 0 {
		limit = 100
	}

	var positions []Position
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("ABS(position) DESC").
		Limit(limit).
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// ListByWallet returns every stored position held by a wallet.
func (r *PositionRepo) ListByWallet(ctx context.Context, wallet string) ([]Position, error) {
	var positions []Position
	err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("ABS(position) DESC").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("list wallet positions: %w", err)
	}
	return positions, nil
}
