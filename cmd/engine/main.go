// Package main is the entry point for the Polysentinel detection engine.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/polysentinel/engine/internal/api"
	"github.com/polysentinel/engine/internal/config"
	"github.com/polysentinel/engine/internal/detector"
	"github.com/polysentinel/engine/internal/history"
	"github.com/polysentinel/engine/internal/ingest"
	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/positions"
	"github.com/polysentinel/engine/internal/store"
	"github.com/polysentinel/engine/internal/ui"
)

const (
	// TradeChannelBuffer is the size of the buffered trade channel
	TradeChannelBuffer = 1000
	// AlertChannelBuffer is the size of the buffered alert channel
	AlertChannelBuffer = 100
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	scoring, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		slog.Error("failed to load scoring configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("polysentinel starting", "version", "1.0.0")

	slog.Info("config_loaded",
		"polymarket_rest_url", cfg.PolymarketRESTURL,
		"gamma_api_url", cfg.GammaAPIURL,
		"trade_poll_interval", cfg.TradePollInterval,
		"book_poll_interval", cfg.BookPollInterval,
		"market_limit", cfg.MarketLimit,
		"position_window", cfg.PositionWindowSize,
		"sensitivity", cfg.Sensitivity,
		"worker_count", cfg.WorkerCount,
		"database_dsn", cfg.MaskedDSN(),
		"api_port", cfg.APIPort,
		"enable_tui", cfg.EnableTUI,
	)

	// Open database and migrate schema
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	tradeRepo := store.NewTradeRepo(db)
	alertRepo := store.NewAlertRepo(db)
	positionRepo := store.NewPositionRepo(db)

	// Build the scoring pipeline
	scorer, err := detector.NewScorer(scoring)
	if err != nil {
		slog.Error("invalid scoring configuration", "error", err)
		os.Exit(1)
	}
	aggregator := positions.NewAggregator(scoring.PositionDustEpsilon)
	builder := history.NewBuilder(tradeRepo, aggregator, cfg.PositionWindowSize)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create channels. The UI gets its own trade feed so it never
	// competes with the workers for the ingest channel.
	tradeChan := make(chan store.Trade, TradeChannelBuffer)
	uiTradeChan := make(chan store.Trade, TradeChannelBuffer)
	alertChan := make(chan store.ScoredTrade, AlertChannelBuffer)

	// Initialize metrics tracker
	tracker := metrics.NewTracker()

	// Start periodic cleanup
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tracker.Cleanup()
			}
		}
	}()

	// Fetch the markets to watch
	slog.Info("fetching_active_markets")
	markets, err := ingest.FetchActiveMarkets(cfg.GammaAPIURL, cfg.MarketLimit)
	if err != nil {
		slog.Warn("failed to fetch active markets, starting with empty set", "error", err)
		markets = []ingest.Market{}
	}
	tokens := ingest.ExtractTokenMarkets(markets)

	questions := make(map[string]string, len(markets))
	marketIDs := make([]string, 0, len(markets))
	for _, market := range markets {
		questions[market.ID] = market.Question
		marketIDs = append(marketIDs, market.ID)
	}

	// Start the order book poller
	books := ingest.NewBookPoller("", cfg.BookPollInterval, float64(cfg.APIRateLimitRPS), tokens)
	go books.Start(ctx)

	// Start the trades poller
	poller := ingest.NewTradesPoller(cfg.PolymarketRESTURL, cfg.TradePollInterval, float64(cfg.APIRateLimitRPS), tradeChan)
	go poller.Start(ctx)
	tracker.SetPollerStatus("polling")

	// Start the windowed position aggregation loop
	go positionLoop(ctx, cfg.PositionAggInterval, marketIDs, cfg.PositionWindowSize, tradeRepo, positionRepo, aggregator)

	// Start worker pool to score trades
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(ctx, id, workerDeps{
				tradeChan:   tradeChan,
				uiChan:      uiTradeChan,
				alertChan:   alertChan,
				books:       books,
				builder:     builder,
				scorer:      scorer,
				sensitivity: cfg.Sensitivity,
				trades:      tradeRepo,
				alerts:      alertRepo,
				tracker:     tracker,
				questions:   questions,
			})
		}(i)
	}

	// Start the read API
	apiServer := api.New(cfg.APIPort, alertRepo, positionRepo, tracker, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			slog.Error("api_server_failed", "error", err)
			cancel()
		}
	}()

	slog.Info("engine_started",
		"status", "scoring trades",
		"markets", len(markets),
		"tokens", len(tokens),
		"workers", cfg.WorkerCount,
		"tui_enabled", cfg.EnableTUI,
	)

	// Start TUI or run in background mode
	if cfg.EnableTUI {
		slog.Info("starting_tui")
		app := ui.NewApp(uiTradeChan, alertChan, tracker, cfg.UIRefreshRate)

		// Start TUI in goroutine so we can still handle signals
		go func() {
			if err := app.Run(); err != nil {
				slog.Error("tui_error", "error", err)
				cancel()
			}
		}()

		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
			app.Stop()
		case <-ctx.Done():
			app.Stop()
		}
	} else {
		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
		case <-ctx.Done():
		}
	}

	cancel()

	// Graceful shutdown
	slog.Info("shutting_down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_shutdown_failed", "error", err)
	}

	wg.Wait()
	drainTrades(tradeChan)

	slog.Info("shutdown_complete")
}

// positionLoop periodically recomputes the position ledger for every
// watched market from its recent trade window.
func positionLoop(ctx context.Context, interval time.Duration, marketIDs []string, windowSize int,
	trades *store.TradeRepo, repo *store.PositionRepo, agg *positions.Aggregator) {

	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, marketID := range marketIDs {
				window, err := trades.MarketWindow(ctx, marketID, windowSize)
				if err != nil {
					slog.Warn("position_window_load_failed", "market", truncateID(marketID), "error", err)
					continue
				}
				if len(window) == 0 {
					continue
				}
				computed := agg.Aggregate(window, time.Now())
				if err := repo.ReplaceForMarket(ctx, marketID, computed); err != nil {
					slog.Warn("position_replace_failed", "market", truncateID(marketID), "error", err)
					continue
				}
				metrics.PositionRebuildsTotal.Inc()
			}
		}
	}
}

type workerDeps struct {
	tradeChan   chan store.Trade
	uiChan      chan<- store.Trade
	alertChan   chan<- store.ScoredTrade
	books       *ingest.BookPoller
	builder     *history.Builder
	scorer      *detector.Scorer
	sensitivity float64
	trades      *store.TradeRepo
	alerts      *store.AlertRepo
	tracker     *metrics.Tracker
	questions   map[string]string
}

// worker stores incoming trades, builds their scoring context, scores
// them, and persists alerts.
func worker(ctx context.Context, id int, deps workerDeps) {
	slog.Debug("worker_started", "id", id)
	defer slog.Debug("worker_stopped", "id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-deps.tradeChan:
			if !ok {
				return
			}
			scoreTrade(ctx, deps, trade)
		}
	}
}

func scoreTrade(ctx context.Context, deps workerDeps, trade store.Trade) {
	start := time.Now()

	deps.tracker.SetLastPoll(start)
	deps.tracker.SetChannelBuffer(len(deps.tradeChan), cap(deps.tradeChan))
	metrics.TradesIngestedTotal.Inc()
	metrics.TradeChannelDepth.Set(float64(len(deps.tradeChan)))

	select {
	case deps.uiChan <- trade:
	default:
	}

	if err := deps.trades.UpsertBatch(ctx, []store.Trade{trade}); err != nil {
		slog.Warn("trade_store_failed", "trade", trade.ID, "error", err)
		return
	}

	market, ok := deps.books.Snapshot(trade.TokenID)
	if !ok {
		// No book yet for this token: score with an empty snapshot so
		// book-independent features still apply.
		market = store.MarketState{MarketID: trade.MarketID, TokenID: trade.TokenID}
	}

	tradeCtx, err := deps.builder.Build(ctx, trade, market, trade.Timestamp)
	if err != nil {
		slog.Warn("context_build_failed", "trade", trade.ID, "error", err)
		return
	}

	result := deps.scorer.ScoreWithSensitivity(trade, market, tradeCtx, deps.sensitivity)

	metrics.TradesScoredTotal.Inc()
	metrics.CompositeScore.Observe(result.Score)
	metrics.ScoreLatency.Observe(time.Since(start).Seconds())
	deps.tracker.RecordScore(trade.MarketID, deps.questions[trade.MarketID], trade.Price, trade.ValueUSD, result.Score)

	if !result.ShouldAlert {
		return
	}

	scored := store.ScoredTrade{Trade: trade, Result: result}

	trigger := "threshold"
	if result.MustFlag {
		trigger = "must_flag"
	}
	metrics.AlertsTotal.WithLabelValues(trigger).Inc()
	deps.tracker.RecordAlert(trade.MarketID, result.PrimaryReason, result.MustFlag)

	alert, err := store.NewAlert(scored, market, time.Now())
	if err != nil {
		slog.Warn("alert_build_failed", "trade", trade.ID, "error", err)
		return
	}
	if err := deps.alerts.Insert(ctx, alert); err != nil {
		slog.Warn("alert_store_failed", "trade", trade.ID, "error", err)
	}

	select {
	case deps.alertChan <- scored:
		slog.Debug("alert_emitted",
			"trade", trade.ID,
			"market", truncateID(trade.MarketID),
			"score", result.Score,
			"reason", result.PrimaryReason,
			"must_flag", result.MustFlag,
		)
	default:
		slog.Warn("alert_channel_full", "trade", trade.ID)
	}
}

// drainTrades counts remaining trades in the channel during shutdown.
func drainTrades(tradeChan <-chan store.Trade) {
	timeout := time.After(5 * time.Second)
	drained := 0

	for {
		select {
		case <-tradeChan:
			drained++
		case <-timeout:
			if drained > 0 {
				slog.Info("trades_drained", "count", drained)
			}
			return
		default:
			if drained > 0 {
				slog.Info("trades_drained", "count", drained)
			}
			return
		}
	}
}

// truncateID shortens an ID for logging.
func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "..." + id[len(id)-4:]
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 [INFO]  message key=value
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}
