package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polysentinel/engine/internal/metrics"
)

// HotMarketsView displays markets ranked by alert activity.
type HotMarketsView struct {
	table *tview.Table
}

// NewHotMarketsView creates a new hot markets view.
func NewHotMarketsView() *HotMarketsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Hot Markets ").SetBorder(true)

	v := &HotMarketsView{table: table}
	v.setHeader()
	return v
}

// Widget returns the tview primitive.
func (v *HotMarketsView) Widget() tview.Primitive {
	return v.table
}

func (v *HotMarketsView) setHeader() {
	headers := []string{"Market", "Alerts", "Peak", "Volume"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}
}

// Update refreshes the hot markets display.
func (v *HotMarketsView) Update(snapshot metrics.Snapshot) {
	v.table.Clear()
	v.setHeader()

	markets := snapshot.HotMarkets

	limit := 10
	if len(markets) < limit {
		limit = len(markets)
	}

	if limit == 0 {
		cell := tview.NewTableCell("No data yet...").
			SetAlign(tview.AlignCenter).
			SetExpansion(1)
		v.table.SetCell(1, 0, cell)
		return
	}

	for i, market := range markets[:limit] {
		row := i + 1

		question := market.Question
		if len(question) > 25 {
			question = question[:22] + "..."
		}

		// Color peak score by severity
		peakColor := tcell.ColorWhite
		if market.PeakScore >= 0.7 {
			peakColor = tcell.ColorRed
		} else if market.PeakScore >= 0.4 {
			peakColor = tcell.ColorYellow
		}

		cell := tview.NewTableCell(question).SetAlign(tview.AlignLeft)
		v.table.SetCell(row, 0, cell)

		cell = tview.NewTableCell(fmt.Sprintf("%d", market.AlertCount)).
			SetAlign(tview.AlignRight)
		v.table.SetCell(row, 1, cell)

		cell = tview.NewTableCell(fmt.Sprintf("%.2f", market.PeakScore)).
			SetAlign(tview.AlignRight).
			SetTextColor(peakColor)
		v.table.SetCell(row, 2, cell)

		cell = tview.NewTableCell(fmt.Sprintf("$%.0f", market.Volume)).
			SetAlign(tview.AlignRight)
		v.table.SetCell(row, 3, cell)
	}
}
