package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/store"
	"golang.org/x/time/rate"
)

const (
	// CLOBAPIBaseURL is the Polymarket CLOB API endpoint
	CLOBAPIBaseURL = "https://clob.polymarket.com"
	// DefaultPollInterval is the default polling interval
	DefaultPollInterval = 3 * time.Second
	// tradePageLimit is the page size requested per poll
	tradePageLimit = 500
)

// TradesPoller polls the Polymarket CLOB API for recent trades,
// normalizes them, and fans them out on the trade channel.
type TradesPoller struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	interval  time.Duration
	tradeChan chan<- store.Trade
	lastPoll  time.Time
}

// NewTradesPoller creates a TradesPoller.
func NewTradesPoller(baseURL string, interval time.Duration, rps float64, tradeChan chan<- store.Trade) *TradesPoller {
	if baseURL == "" {
		baseURL = CLOBAPIBaseURL
	}
	if interval == 0 {
		interval = DefaultPollInterval
	}
	if rps <= 0 {
		rps = 5
	}

	return &TradesPoller{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		interval:  interval,
		tradeChan: tradeChan,
		lastPoll:  time.Now().Add(-5 * time.Minute), // start with a 5 min lookback
	}
}

// Start begins polling for trades. Blocks until ctx is done.
func (p *TradesPoller) Start(ctx context.Context) {
	slog.Info("starting_trades_poller", "base_url", p.baseURL, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial fetch
	if err := p.poll(ctx); err != nil {
		slog.Warn("initial_poll_failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("trades_poller_stopped")
			return
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				slog.Debug("poll_failed", "error", err)
			}
		}
	}
}

// poll fetches recent trades and sends them to the trade channel.
func (p *TradesPoller) poll(ctx context.Context) error {
	trades, err := p.fetchRecentTrades(ctx, p.lastPoll)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if len(trades) > 0 {
		slog.Debug("trades_fetched", "count", len(trades))
		p.lastPoll = time.Now()

		for _, trade := range trades {
			select {
			case p.tradeChan <- trade:
				// Successfully sent
			default:
				slog.Warn("trade_channel_full", "dropped_trade", trade.ID)
			}
		}
	}

	return nil
}

// fetchRecentTrades fetches and normalizes trades after the given
// timestamp. One malformed record is rejected and logged; the rest of
// the page still goes through.
func (p *TradesPoller) fetchRecentTrades(ctx context.Context, after time.Time) ([]store.Trade, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/trades?after=%d&limit=%d", p.baseURL, after.UnixMilli(), tradePageLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	// Decode each record alongside its raw payload so the stored trade
	// keeps the original bytes.
	var pages []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	trades := make([]store.Trade, 0, len(pages))
	for _, raw := range pages {
		var rec TradeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			slog.Warn("trade_record_malformed", "error", err)
			continue
		}

		trade, err := NormalizeTrade(rec, raw)
		if err != nil {
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				slog.Warn("trade_rejected", "trade_id", rec.ID, "field", parseErr.Field, "value", parseErr.Value)
				metrics.TradesRejectedTotal.WithLabelValues(parseErr.Field).Inc()
			} else {
				slog.Warn("trade_rejected", "trade_id", rec.ID, "error", err)
				metrics.TradesRejectedTotal.WithLabelValues("other").Inc()
			}
			continue
		}
		trades = append(trades, trade)
	}

	return trades, nil
}
