package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewAlert builds an Alert record from a scored trade and the market
// snapshot it was evaluated against.
func NewAlert(st ScoredTrade, market MarketState, at time.Time) (Alert, error) {
	factors, err := json.Marshal(st.Result.Factors)
	if err != nil {
		return Alert{}, fmt.Errorf("marshal factors: %w", err)
	}
	features, err := json.Marshal(st.Result.Features)
	if err != nil {
		return Alert{}, fmt.Errorf("marshal features: %w", err)
	}
	snapshot, err := json.Marshal(market)
	if err != nil {
		return Alert{}, fmt.Errorf("marshal market snapshot: %w", err)
	}

	return Alert{
		ID:             uuid.NewString(),
		TradeID:        st.Trade.ID,
		MarketID:       st.Trade.MarketID,
		Wallet:         st.Trade.Wallet(),
		Score:          st.Result.Score,
		PrimaryReason:  st.Result.PrimaryReason,
		Factors:        factors,
		Features:       features,
		MustFlag:       st.Result.MustFlag,
		MarketSnapshot: snapshot,
		CreatedAt:      at,
	}, nil
}

// AlertFilter narrows ListRecent.
type AlertFilter struct {
	MarketID string
	Wallet   string
	MinScore float64
	Limit    int
}

// AlertRepo persists and queries alerts.
type AlertRepo struct {
	db *gorm.DB
}

// NewAlertRepo creates an AlertRepo.
func NewAlertRepo(db *gorm.DB) *AlertRepo {
	return &AlertRepo{db: db}
}

// Insert stores an alert. One alert per trade: a second evaluation of
// the same trade is a no-op here, which keeps the scorer free to be
// invoked more than once under at-least-once delivery.
func (r *AlertRepo) Insert(ctx context.Context, alert Alert) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trade_id"}},
			DoNothing: true,
		}).
		Create(&alert).Error
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// ListRecent returns alerts newest-first, optionally filtered.
func (r *AlertRepo) ListRecent(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	q := r.db.WithContext(ctx).Model(&Alert{})
	if filter.MarketID != "" {
		q = q.Where("market_id = ?", filter.MarketID)
	}
	if filter.Wallet != "" {
		q = q.Where("wallet = ?", filter.Wallet)
	}
	if filter.MinScore > 0 {
		q = q.Where("score >= ?", filter.MinScore)
	}

	var alerts []Alert
	if err := q.Order("created_at DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}
