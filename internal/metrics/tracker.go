// Package metrics provides real-time metrics tracking for the scoring
// pipeline, feeding both the terminal UI and the Prometheus exporter.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// ScorePoint represents a composite score observed at a specific time.
type ScorePoint struct {
	Score     float64
	Timestamp time.Time
}

// MarketActivity tracks scoring activity for a single market.
type MarketActivity struct {
	MarketID    string
	Question    string
	TradeCount  int
	Volume      float64
	AlertCount  int
	LastPrice   float64
	ScorePoints []ScorePoint
	LastUpdate  time.Time
}

// Snapshot is a point-in-time view of tracker state.
type Snapshot struct {
	TradesScored      int64
	AlertsTotal       int64
	MustFlagAlerts    int64
	AlertsByReason    map[string]int64
	TradeRate         float64 // trades per second
	MeanScore         float64
	MaxScore          float64
	MarketActivities  map[string]*MarketActivity
	HotMarkets        []MarketStats
	Uptime            time.Duration
	PollerStatus      string
	LastPoll          time.Time
	ChannelBufferUsed int
	ChannelBufferCap  int
}

// MarketStats summarises a market for the hot-markets panel.
type MarketStats struct {
	MarketID   string
	Question   string
	TradeCount int
	Volume     float64
	AlertCount int
	PeakScore  float64
	LastPrice  float64
}

// Tracker provides thread-safe in-process metrics for the UI.
type Tracker struct {
	mu                sync.RWMutex
	tradesScored      int64
	alertsTotal       int64
	mustFlagAlerts    int64
	alertsByReason    map[string]int64
	marketActivity    map[string]*MarketActivity
	scoreSum          float64
	maxScore          float64
	startTime         time.Time
	lastTradeTime     time.Time
	tradeTimestamps   []time.Time // for rate calculation
	pollerStatus      string
	lastPoll          time.Time
	channelBufferUsed int
	channelBufferCap  int
}

// NewTracker creates a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		alertsByReason:  make(map[string]int64),
		marketActivity:  make(map[string]*MarketActivity),
		startTime:       time.Now(),
		tradeTimestamps: make([]time.Time, 0, 1000),
		pollerStatus:    "starting",
	}
}

// RecordScore records a scored trade for a market.
func (t *Tracker) RecordScore(marketID, question string, price, volume, score float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.tradesScored++
	t.scoreSum += score
	if score > t.maxScore {
		t.maxScore = score
	}
	t.lastTradeTime = now

	t.tradeTimestamps = append(t.tradeTimestamps, now)
	cutoff := now.Add(-60 * time.Second)
	validIdx := 0
	for i, ts := range t.tradeTimestamps {
		if ts.After(cutoff) {
			validIdx = i
			break
		}
	}
	if validIdx > 0 {
		t.tradeTimestamps = t.tradeTimestamps[validIdx:]
	}

	activity, exists := t.marketActivity[marketID]
	if !exists {
		activity = &MarketActivity{
			MarketID:    marketID,
			Question:    question,
			ScorePoints: make([]ScorePoint, 0, 100),
		}
		t.marketActivity[marketID] = activity
	}

	activity.TradeCount++
	activity.Volume += volume
	activity.LastPrice = price
	activity.LastUpdate = now
	activity.ScorePoints = append(activity.ScorePoints, ScorePoint{
		Score:     score,
		Timestamp: now,
	})

	// Keep only last 60 minutes
	scoreCutoff := now.Add(-60 * time.Minute)
	validIdx = 0
	for i, p := range activity.ScorePoints {
		if p.Timestamp.After(scoreCutoff) {
			validIdx = i
			break
		}
	}
	if validIdx > 0 {
		activity.ScorePoints = activity.ScorePoints[validIdx:]
	}
}

// RecordAlert increments alert counters for a primary reason.
func (t *Tracker) RecordAlert(marketID, primaryReason string, mustFlag bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alertsTotal++
	if mustFlag {
		t.mustFlagAlerts++
	}
	t.alertsByReason[primaryReason]++

	if activity, ok := t.marketActivity[marketID]; ok {
		activity.AlertCount++
	}
}

// SetPollerStatus sets the upstream poller status string.
func (t *Tracker) SetPollerStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pollerStatus = status
}

// SetLastPoll sets the last REST API poll time.
func (t *Tracker) SetLastPoll(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPoll = at
}

// SetChannelBuffer sets the trade channel buffer usage.
func (t *Tracker) SetChannelBuffer(used, capacity int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channelBufferUsed = used
	t.channelBufferCap = capacity
}

// Snapshot returns a point-in-time snapshot of metrics.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tradeRate := 0.0
	if len(t.tradeTimestamps) > 0 {
		oldest := t.tradeTimestamps[0]
		duration := time.Since(oldest).Seconds()
		if duration > 0 {
			tradeRate = float64(len(t.tradeTimestamps)) / duration
		}
	}

	meanScore := 0.0
	if t.tradesScored > 0 {
		meanScore = t.scoreSum / float64(t.tradesScored)
	}

	reasonsCopy := make(map[string]int64, len(t.alertsByReason))
	for k, v := range t.alertsByReason {
		reasonsCopy[k] = v
	}

	activitiesCopy := make(map[string]*MarketActivity, len(t.marketActivity))
	for k, v := range t.marketActivity {
		activityCopy := *v
		activitiesCopy[k] = &activityCopy
	}

	return Snapshot{
		TradesScored:      t.tradesScored,
		AlertsTotal:       t.alertsTotal,
		MustFlagAlerts:    t.mustFlagAlerts,
		AlertsByReason:    reasonsCopy,
		TradeRate:         tradeRate,
		MeanScore:         meanScore,
		MaxScore:          t.maxScore,
		MarketActivities:  activitiesCopy,
		HotMarkets:        t.calculateHotMarkets(),
		Uptime:            time.Since(t.startTime),
		PollerStatus:      t.pollerStatus,
		LastPoll:          t.lastPoll,
		ChannelBufferUsed: t.channelBufferUsed,
		ChannelBufferCap:  t.channelBufferCap,
	}
}

// calculateHotMarkets ranks markets by alert count, then peak score.
// Must be called with lock held.
func (t *Tracker) calculateHotMarkets() []MarketStats {
	stats := make([]MarketStats, 0, len(t.marketActivity))

	for marketID, activity := range t.marketActivity {
		peak := 0.0
		for _, p := range activity.ScorePoints {
			if p.Score > peak {
				peak = p.Score
			}
		}
		stats = append(stats, MarketStats{
			MarketID:   marketID,
			Question:   activity.Question,
			TradeCount: activity.TradeCount,
			Volume:     activity.Volume,
			AlertCount: activity.AlertCount,
			PeakScore:  peak,
			LastPrice:  activity.LastPrice,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AlertCount != stats[j].AlertCount {
			return stats[i].AlertCount > stats[j].AlertCount
		}
		return stats[i].PeakScore > stats[j].PeakScore
	})

	return stats
}

// Cleanup removes markets with no recent activity.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-60 * time.Minute)
	for id, activity := range t.marketActivity {
		if activity.LastUpdate.Before(cutoff) {
			delete(t.marketActivity, id)
		}
	}
}
