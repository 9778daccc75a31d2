// Package ui provides terminal user interface components.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/store"
)

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	// Views
	marketOverview *MarketOverviewView
	alertFeed      *AlertFeedView
	liveTrades     *LiveTradesView
	statsDashboard *StatsDashboardView
	hotMarkets     *HotMarketsView

	// Data channels
	tradeChan   <-chan store.Trade
	alertChan   <-chan store.ScoredTrade
	tracker     *metrics.Tracker
	refreshRate time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a new TUI application.
func NewApp(tradeChan <-chan store.Trade, alertChan <-chan store.ScoredTrade, tracker *metrics.Tracker, refreshRate time.Duration) *App {
	ctx, cancel := context.WithCancel(context.Background())

	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}

	app := &App{
		app:         tview.NewApplication(),
		tradeChan:   tradeChan,
		alertChan:   alertChan,
		tracker:     tracker,
		refreshRate: refreshRate,
		ctx:         ctx,
		cancel:      cancel,
	}

	// Initialize views
	app.marketOverview = NewMarketOverviewView()
	app.alertFeed = NewAlertFeedView()
	app.liveTrades = NewLiveTradesView()
	app.statsDashboard = NewStatsDashboardView()
	app.hotMarkets = NewHotMarketsView()

	app.setupLayout()
	app.setupKeyboard()

	return app
}

// setupLayout creates the 5-panel layout.
func (a *App) setupLayout() {
	// Top row: Market Overview (left) | Alert Feed (right)
	topRow := tview.NewFlex().
		AddItem(a.marketOverview.Widget(), 0, 1, false).
		AddItem(a.alertFeed.Widget(), 0, 2, false)

	// Middle row: Live Trades (full width)
	middleRow := a.liveTrades.Widget()

	// Bottom row: Stats Dashboard (left) | Hot Markets (right)
	bottomRow := tview.NewFlex().
		AddItem(a.statsDashboard.Widget(), 0, 1, false).
		AddItem(a.hotMarkets.Widget(), 0, 1, false)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 2, false).
		AddItem(middleRow, 0, 3, false).
		AddItem(bottomRow, 0, 2, false)

	a.app.SetRoot(a.layout, true)
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				a.refresh()
				return nil
			}
		}
		return event
	})
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	go a.processTrades()
	go a.processAlerts()
	go a.updateLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// processTrades reads from the trade channel and updates views.
func (a *App) processTrades() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case trade, ok := <-a.tradeChan:
			if !ok {
				return
			}

			a.app.QueueUpdateDraw(func() {
				a.liveTrades.AddTrade(trade)
			})
		}
	}
}

// processAlerts reads from the alert channel and updates the alert feed.
func (a *App) processAlerts() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case scored, ok := <-a.alertChan:
			if !ok {
				return
			}

			a.app.QueueUpdateDraw(func() {
				a.alertFeed.AddAlert(scored)
			})
		}
	}
}

// updateLoop periodically refreshes views with tracker data.
func (a *App) updateLoop() {
	ticker := time.NewTicker(a.refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			snapshot := a.tracker.Snapshot()

			a.app.QueueUpdateDraw(func() {
				a.statsDashboard.Update(snapshot)
				a.hotMarkets.Update(snapshot)
				a.marketOverview.Update(snapshot)
			})
		}
	}
}

// refresh manually refreshes all views.
func (a *App) refresh() {
	snapshot := a.tracker.Snapshot()

	a.app.QueueUpdateDraw(func() {
		a.marketOverview.Update(snapshot)
		a.alertFeed.Refresh()
		a.liveTrades.Refresh()
		a.statsDashboard.Update(snapshot)
		a.hotMarkets.Update(snapshot)
	})
}
