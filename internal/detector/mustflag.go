package detector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/polysentinel/engine/internal/config"
	"github.com/polysentinel/engine/internal/store"
)

// EvaluateMustFlag checks the hard alert rules, independent of the
// weighted score. All conditions are checked; the returned reason is
// the first triggered condition in priority order.
func EvaluateMustFlag(t store.Trade, c store.Context, th config.MustFlagThresholds) (bool, string) {
	reasons := mustFlagReasons(t, c, th)
	if len(reasons) == 0 {
		return false, ""
	}
	return true, reasons[0]
}

// mustFlagReasons evaluates every condition in priority order.
func mustFlagReasons(t store.Trade, c store.Context, th config.MustFlagThresholds) []string {
	var reasons []string

	if c.TradeValueUSD > th.SingleTradeUSD {
		reasons = append(reasons, fmt.Sprintf("Single trade > $%s ($%s)",
			formatUSD(th.SingleTradeUSD), formatUSD(c.TradeValueUSD)))
	}

	changeUSD := math.Abs(c.WalletPosition-c.WalletPositionHourAgo) * t.Price
	if changeUSD > th.HourlyPositionChangeUSD {
		reasons = append(reasons, fmt.Sprintf("Hourly position change > $%s ($%s at trade price)",
			formatUSD(th.HourlyPositionChangeUSD), formatUSD(changeUSD)))
	}

	if c.WalletAgeDays != nil && *c.WalletAgeDays < th.FreshWalletMaxAgeDays &&
		c.TradeValueUSD > th.FreshWalletTradeUSD {
		reasons = append(reasons, fmt.Sprintf("New wallet (%dd old) traded > $%s",
			*c.WalletAgeDays, formatUSD(th.FreshWalletTradeUSD)))
	}

	if c.TotalLiquidity > 0 {
		share := c.WalletPosition / c.TotalLiquidity
		if share > th.LiquidityShare {
			reasons = append(reasons, fmt.Sprintf("Position > %.0f%% of market liquidity (%.1f%% held)",
				th.LiquidityShare*100, share*100))
		}
	}

	return reasons
}

// formatUSD renders a dollar amount with thousands separators and no
// cents, e.g. 25000 -> "25,000".
func formatUSD(v float64) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', 0, 64)

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if v < 0 {
		return "-" + b.String()
	}
	return b.String()
}
