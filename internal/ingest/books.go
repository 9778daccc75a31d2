package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/store"
	"golang.org/x/time/rate"
)

// DefaultBookInterval is how often book snapshots refresh.
const DefaultBookInterval = 15 * time.Second

// BookPoller maintains a current orderbook snapshot per tracked token.
// Workers read the latest snapshot at evaluation time; one snapshot is
// "current" per token.
type BookPoller struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	interval time.Duration
	tokens   []TokenMarket

	mu        sync.RWMutex
	snapshots map[string]store.MarketState
}

// NewBookPoller creates a BookPoller for the given tokens.
func NewBookPoller(baseURL string, interval time.Duration, rps float64, tokens []TokenMarket) *BookPoller {
	if baseURL == "" {
		baseURL = CLOBAPIBaseURL
	}
	if interval == 0 {
		interval = DefaultBookInterval
	}
	if rps <= 0 {
		rps = 5
	}

	return &BookPoller{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		interval:  interval,
		tokens:    tokens,
		snapshots: make(map[string]store.MarketState),
	}
}

// Start refreshes snapshots until ctx is done.
func (p *BookPoller) Start(ctx context.Context) {
	slog.Info("starting_book_poller", "tokens", len(p.tokens), "interval", p.interval)

	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("book_poller_stopped")
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// Snapshot returns the latest book state for a token.
func (p *BookPoller) Snapshot(tokenID string) (store.MarketState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, ok := p.snapshots[tokenID]
	return state, ok
}

// refresh fetches every tracked token's book. One failed book keeps
// its previous snapshot and does not block the rest.
func (p *BookPoller) refresh(ctx context.Context) {
	for _, token := range p.tokens {
		if ctx.Err() != nil {
			return
		}

		state, err := p.fetchBook(ctx, token)
		if err != nil {
			slog.Debug("book_fetch_failed", "token", token.TokenID, "error", err)
			metrics.BookSnapshotsTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.BookSnapshotsTotal.WithLabelValues("ok").Inc()

		p.mu.Lock()
		p.snapshots[token.TokenID] = state
		p.mu.Unlock()
	}
}

// fetchBook fetches and normalizes one token's book snapshot.
func (p *BookPoller) fetchBook(ctx context.Context, token TokenMarket) (store.MarketState, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return store.MarketState{}, err
	}

	url := fmt.Sprintf("%s/book?token_id=%s", p.baseURL, token.TokenID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return store.MarketState{}, fmt.Errorf("create request failed: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return store.MarketState{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return store.MarketState{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var rec BookRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return store.MarketState{}, fmt.Errorf("decode failed: %w", err)
	}

	state, err := NormalizeBook(rec, token.EndDate)
	if err != nil {
		return store.MarketState{}, err
	}
	if state.MarketID == "" {
		state.MarketID = token.MarketID
	}
	if state.TokenID == "" {
		state.TokenID = token.TokenID
	}
	return state, nil
}
