package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// GammaAPIURL is the default Polymarket Gamma API base URL
	GammaAPIURL = "https://gamma-api.polymarket.com"
	// DefaultMarketLimit is the number of markets to fetch
	DefaultMarketLimit = 50
)

// Market represents a Polymarket market from the Gamma API.
type Market struct {
	ID           string  `json:"id"`
	Question     string  `json:"question"`
	Slug         string  `json:"slug"`
	Active       bool    `json:"active"`
	Closed       bool    `json:"closed"`
	EndDate      string  `json:"endDate"` // RFC3339; may be empty
	Liquidity    string  `json:"liquidity"`
	ClobTokenIDs string  `json:"clobTokenIds"` // JSON array as string
	VolumeNum    float64 `json:"volumeNum"`
}

// ResolutionDate parses the market's end date, returning nil when the
// market has none. A missing end date disables the timing feature for
// the market's trades rather than failing ingestion.
func (m Market) ResolutionDate() *time.Time {
	if m.EndDate == "" {
		return nil
	}
	for _, format := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(format, m.EndDate); err == nil {
			return &t
		}
	}
	slog.Debug("unparseable_end_date", "market", m.Slug, "end_date", m.EndDate)
	return nil
}

// FetchActiveMarkets fetches active markets from the Polymarket Gamma API.
func FetchActiveMarkets(baseURL string, limit int) ([]Market, error) {
	if baseURL == "" {
		baseURL = GammaAPIURL
	}
	if limit <= 0 {
		limit = DefaultMarketLimit
	}

	url := fmt.Sprintf("%s/markets?active=true&closed=false&limit=%d", baseURL, limit)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var markets []Market
	if err := json.NewDecoder(resp.Body).Decode(&markets); err != nil {
		return nil, fmt.Errorf("failed to decode markets: %w", err)
	}

	return markets, nil
}

// TokenMarket ties an outcome token to its market metadata for the
// book poller.
type TokenMarket struct {
	TokenID  string
	MarketID string
	Question string
	EndDate  *time.Time
}

// ExtractTokenMarkets expands every market into its outcome tokens.
func ExtractTokenMarkets(markets []Market) []TokenMarket {
	var tokens []TokenMarket
	seen := make(map[string]bool)

	for _, market := range markets {
		if market.ClobTokenIDs == "" {
			continue
		}

		// Parse the JSON array of token IDs
		var ids []string
		if err := json.Unmarshal([]byte(market.ClobTokenIDs), &ids); err != nil {
			slog.Debug("failed to parse token IDs", "market", market.Slug, "error", err)
			continue
		}

		endDate := market.ResolutionDate()
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			tokens = append(tokens, TokenMarket{
				TokenID:  id,
				MarketID: market.ID,
				Question: market.Question,
				EndDate:  endDate,
			})
		}
	}

	return tokens
}
