package ui

import (
	"fmt"
	"sort"

	"github.com/rivo/tview"

	"github.com/polysentinel/engine/internal/metrics"
)

// MarketOverviewView displays watched markets and their key metrics.
type MarketOverviewView struct {
	table *tview.Table
}

// NewMarketOverviewView creates a new market overview view.
func NewMarketOverviewView() *MarketOverviewView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Market Overview ").SetBorder(true)

	v := &MarketOverviewView{table: table}
	v.setHeader()
	return v
}

// Widget returns the tview primitive.
func (v *MarketOverviewView) Widget() tview.Primitive {
	return v.table
}

func (v *MarketOverviewView) setHeader() {
	headers := []string{"Market", "Trades", "Volume", "Alerts", "Updated"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false).
			SetExpansion(1)
		v.table.SetCell(0, col, cell)
	}
}

// Update refreshes the view with new tracker data.
func (v *MarketOverviewView) Update(snapshot metrics.Snapshot) {
	v.table.Clear()
	v.setHeader()

	// Sort markets by trade count (most active first)
	markets := make([]*metrics.MarketActivity, 0, len(snapshot.MarketActivities))
	for _, activity := range snapshot.MarketActivities {
		markets = append(markets, activity)
	}

	sort.Slice(markets, func(i, j int) bool {
		return markets[i].TradeCount > markets[j].TradeCount
	})

	// Show top 10 markets
	limit := 10
	if len(markets) < limit {
		limit = len(markets)
	}

	for i, market := range markets[:limit] {
		row := i + 1

		question := market.Question
		if len(question) > 30 {
			question = question[:27] + "..."
		}

		cells := []string{
			question,
			fmt.Sprintf("%d", market.TradeCount),
			fmt.Sprintf("$%.0f", market.Volume),
			fmt.Sprintf("%d", market.AlertCount),
			formatTimeAgo(market.LastUpdate),
		}

		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft).
				SetExpansion(1)
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Market Overview (%d active) ", len(snapshot.MarketActivities)))
}
