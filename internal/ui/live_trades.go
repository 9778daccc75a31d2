package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/polysentinel/engine/internal/store"
)

// LiveTradesView displays a scrolling feed of incoming trades.
type LiveTradesView struct {
	table   *tview.Table
	trades  []store.Trade
	maxRows int
}

// NewLiveTradesView creates a new live trades view.
func NewLiveTradesView() *LiveTradesView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Live Trades ").SetBorder(true)

	v := &LiveTradesView{
		table:   table,
		trades:  make([]store.Trade, 0, 100),
		maxRows: 100,
	}
	v.setHeader()
	return v
}

// Widget returns the tview primitive.
func (v *LiveTradesView) Widget() tview.Primitive {
	return v.table
}

// AddTrade adds a new trade to the view.
func (v *LiveTradesView) AddTrade(trade store.Trade) {
	v.trades = append([]store.Trade{trade}, v.trades...)

	if len(v.trades) > v.maxRows {
		v.trades = v.trades[:v.maxRows]
	}

	v.updateTable()
}

// Refresh redraws the table.
func (v *LiveTradesView) Refresh() {
	v.updateTable()
}

func (v *LiveTradesView) setHeader() {
	headers := []string{"Time", "Market", "Side", "Price", "Value", "Wallet"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}
}

// updateTable updates the table with current trades.
func (v *LiveTradesView) updateTable() {
	v.table.Clear()
	v.setHeader()

	for i, trade := range v.trades {
		row := i + 1

		timeStr := trade.Timestamp.Format("15:04:05")

		market := trade.MarketID
		if len(market) > 16 {
			market = market[:8] + "..." + market[len(market)-4:]
		}

		wallet := truncateAddress(trade.Wallet())
		if wallet == "" {
			wallet = "unknown"
		}

		side := trade.Side
		if side == "" {
			side = "?"
		}

		cells := []string{
			timeStr,
			market,
			side,
			fmt.Sprintf("%.3f", trade.Price),
			fmt.Sprintf("$%.0f", trade.ValueUSD),
			wallet,
		}

		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft)
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Live Trades (%d) ", len(v.trades)))
}
