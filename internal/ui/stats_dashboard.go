package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/polysentinel/engine/internal/metrics"
)

// StatsDashboardView displays pipeline health and scoring statistics.
type StatsDashboardView struct {
	textView *tview.TextView
}

// NewStatsDashboardView creates a new stats dashboard view.
func NewStatsDashboardView() *StatsDashboardView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Stats Dashboard ").SetBorder(true)

	return &StatsDashboardView{
		textView: textView,
	}
}

// Widget returns the tview primitive.
func (v *StatsDashboardView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the stats display.
func (v *StatsDashboardView) Update(snapshot metrics.Snapshot) {
	v.textView.Clear()

	uptime := formatDuration(snapshot.Uptime)

	pollerStatus := snapshot.PollerStatus
	pollerColor := "red"
	if pollerStatus == "polling" {
		pollerColor = "green"
	}

	lastPoll := "never"
	if !snapshot.LastPoll.IsZero() {
		lastPoll = formatTimeAgo(snapshot.LastPoll)
	}

	bufferPct := 0.0
	if snapshot.ChannelBufferCap > 0 {
		bufferPct = (float64(snapshot.ChannelBufferUsed) / float64(snapshot.ChannelBufferCap)) * 100
	}

	text := fmt.Sprintf(`[yellow]System Status[-]
Uptime: %s
Poller: [%s]%s[-]
Last Poll: %s

[yellow]Scoring[-]
Trades Scored: %d
Rate: %.2f trades/sec
Mean Score: %.3f
Max Score: %.3f

[yellow]Alerts[-]
Total: %d
Must-Flag: %d

[yellow]Performance[-]
Channel Buffer: %d/%d (%.1f%%)
`,
		uptime,
		pollerColor, pollerStatus,
		lastPoll,
		snapshot.TradesScored,
		snapshot.TradeRate,
		snapshot.MeanScore,
		snapshot.MaxScore,
		snapshot.AlertsTotal,
		snapshot.MustFlagAlerts,
		snapshot.ChannelBufferUsed,
		snapshot.ChannelBufferCap,
		bufferPct,
	)

	fmt.Fprint(v.textView, text)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := time.Since(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf("%.0fh ago", elapsed.Hours())
	}
	return fmt.Sprintf("%.0fd ago", elapsed.Hours()/24)
}
