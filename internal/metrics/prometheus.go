package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesIngestedTotal counts trades accepted from the upstream feed.
	TradesIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polysentinel",
		Name:      "trades_ingested_total",
		Help:      "Total trades accepted from the data API.",
	})

	// TradesRejectedTotal counts trades dropped during normalization by field.
	TradesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polysentinel",
			Name:      "trades_rejected_total",
			Help:      "Total trades rejected during normalization by offending field.",
		},
		[]string{"field"},
	)

	// TradesScoredTotal counts trades run through the scoring engine.
	TradesScoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polysentinel",
		Name:      "trades_scored_total",
		Help:      "Total trades scored by the detection engine.",
	})

	// AlertsTotal counts alerts emitted by primary reason and trigger kind.
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polysentinel",
			Name:      "alerts_total",
			Help:      "Total alerts emitted by trigger kind (threshold or must_flag).",
		},
		[]string{"trigger"},
	)

	// CompositeScore observes the distribution of composite scores.
	CompositeScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "polysentinel",
		Name:      "composite_score",
		Help:      "Distribution of composite suspicion scores.",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// ScoreLatency observes end-to-end context build plus scoring latency.
	ScoreLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "polysentinel",
		Name:      "score_latency_seconds",
		Help:      "Time to build trade context and score a trade.",
		Buckets:   prometheus.DefBuckets,
	})

	// PositionRebuildsTotal counts windowed position recomputations by market.
	PositionRebuildsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polysentinel",
		Name:      "position_rebuilds_total",
		Help:      "Total windowed position ledger recomputations.",
	})

	// TradeChannelDepth tracks the pending trade channel depth.
	TradeChannelDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "polysentinel",
		Name:      "trade_channel_depth",
		Help:      "Number of trades buffered between poller and workers.",
	})

	// BookSnapshotsTotal counts order book snapshot refreshes by result.
	BookSnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polysentinel",
			Name:      "book_snapshots_total",
			Help:      "Total order book snapshot refreshes by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		TradesIngestedTotal,
		TradesRejectedTotal,
		TradesScoredTotal,
		AlertsTotal,
		CompositeScore,
		ScoreLatency,
		PositionRebuildsTotal,
		TradeChannelDepth,
		BookSnapshotsTotal,
	)
}

// Handler returns the Prometheus metrics handler for the /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
