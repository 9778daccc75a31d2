package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polysentinel/engine/internal/store"
)

// AlertFeedView displays flagged trades, newest first.
type AlertFeedView struct {
	list     *tview.List
	alerts   []store.ScoredTrade
	maxItems int
}

// NewAlertFeedView creates a new alert feed view.
func NewAlertFeedView() *AlertFeedView {
	list := tview.NewList().
		ShowSecondaryText(true)

	list.SetTitle(" 🚨 Alerts ").SetBorder(true)
	list.SetMainTextColor(tcell.ColorWhite)

	return &AlertFeedView{
		list:     list,
		alerts:   make([]store.ScoredTrade, 0, 50),
		maxItems: 50,
	}
}

// Widget returns the tview primitive.
func (v *AlertFeedView) Widget() tview.Primitive {
	return v.list
}

// AddAlert adds a flagged trade to the feed.
func (v *AlertFeedView) AddAlert(scored store.ScoredTrade) {
	v.alerts = append([]store.ScoredTrade{scored}, v.alerts...)

	if len(v.alerts) > v.maxItems {
		v.alerts = v.alerts[:v.maxItems]
	}

	v.rebuildList()
}

// Refresh redraws the list.
func (v *AlertFeedView) Refresh() {
	v.rebuildList()
}

// rebuildList rebuilds the entire list from alerts.
func (v *AlertFeedView) rebuildList() {
	v.list.Clear()

	if len(v.alerts) == 0 {
		v.list.AddItem("No alerts yet", "", 0, nil)
		return
	}

	for _, scored := range v.alerts {
		mainText, secondaryText := v.formatAlert(scored)
		v.list.AddItem(mainText, secondaryText, 0, nil)
	}

	v.list.SetTitle(fmt.Sprintf(" 🚨 Alerts (%d) ", len(v.alerts)))
}

// formatAlert formats a flagged trade for display.
func (v *AlertFeedView) formatAlert(scored store.ScoredTrade) (string, string) {
	icon := "📊"
	if scored.Result.MustFlag {
		icon = "🔴"
	}

	timeStr := scored.Trade.Timestamp.Format("15:04:05")
	wallet := truncateAddress(scored.Trade.Wallet())

	market := scored.Trade.MarketID
	if len(market) > 20 {
		market = market[:8] + "..." + market[len(market)-8:]
	}

	// Main text: Time + Icon + Score + Primary Reason
	mainText := fmt.Sprintf("%s %s %.2f  %s", timeStr, icon, scored.Result.Score, scored.Result.PrimaryReason)

	// Secondary text: Wallet, Value, Market, notable factor count
	secondaryText := fmt.Sprintf("Wallet: %s | $%.2f | %s", wallet, scored.Trade.ValueUSD, market)
	if n := len(scored.Result.Factors); n > 0 {
		secondaryText += fmt.Sprintf(" | %d notable factors", n)
	}

	return mainText, secondaryText
}

// truncateAddress truncates a wallet address for display.
func truncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
