package detector

import (
	"testing"

	"github.com/polysentinel/engine/internal/config"
	"github.com/polysentinel/engine/internal/store"
	"github.com/stretchr/testify/assert"
)

func defaultThresholds() config.MustFlagThresholds {
	return config.DefaultScoring().MustFlag
}

func TestMustFlagSingleTrade(t *testing.T) {
	flagged, reason := EvaluateMustFlag(store.Trade{}, store.Context{TradeValueUSD: 26000}, defaultThresholds())
	assert.True(t, flagged)
	assert.Contains(t, reason, "Single trade > $25,000")
	assert.Contains(t, reason, "$26,000")
}

func TestMustFlagHourlyPositionChange(t *testing.T) {
	trade := store.Trade{Price: 0.5}
	ctx := store.Context{WalletPosition: 150000, WalletPositionHourAgo: 10000}

	// |150000 - 10000| * 0.5 = 70,000 USD moved.
	flagged, reason := EvaluateMustFlag(trade, ctx, defaultThresholds())
	assert.True(t, flagged)
	assert.Contains(t, reason, "$50,000")
	assert.Contains(t, reason, "$70,000")
}

func TestMustFlagFreshWallet(t *testing.T) {
	ctx := store.Context{TradeValueUSD: 12000, WalletAgeDays: intPtr(3)}

	flagged, reason := EvaluateMustFlag(store.Trade{}, ctx, defaultThresholds())
	assert.True(t, flagged)
	assert.Contains(t, reason, "3d")
	assert.Contains(t, reason, "$10,000")

	// Unknown age is not the same as young.
	ctx.WalletAgeDays = nil
	flagged, _ = EvaluateMustFlag(store.Trade{}, ctx, defaultThresholds())
	assert.False(t, flagged)

	// Old wallet with the same trade is fine.
	ctx.WalletAgeDays = intPtr(200)
	flagged, _ = EvaluateMustFlag(store.Trade{}, ctx, defaultThresholds())
	assert.False(t, flagged)
}

func TestMustFlagLiquidityShare(t *testing.T) {
	ctx := store.Context{WalletPosition: 800, TotalLiquidity: 10000}

	flagged, reason := EvaluateMustFlag(store.Trade{}, ctx, defaultThresholds())
	assert.True(t, flagged)
	assert.Contains(t, reason, "5%")
	assert.Contains(t, reason, "8.0%")

	// No liquidity means the share is undefined, not infinite.
	flagged, _ = EvaluateMustFlag(store.Trade{}, store.Context{WalletPosition: 800}, defaultThresholds())
	assert.False(t, flagged)
}

func TestMustFlagPriorityOrder(t *testing.T) {
	// Trips both the single-trade and fresh-wallet conditions; the
	// single-trade reason wins.
	ctx := store.Context{TradeValueUSD: 30000, WalletAgeDays: intPtr(2)}

	flagged, reason := EvaluateMustFlag(store.Trade{}, ctx, defaultThresholds())
	assert.True(t, flagged)
	assert.Contains(t, reason, "Single trade")

	all := mustFlagReasons(store.Trade{}, ctx, defaultThresholds())
	assert.Len(t, all, 2)
}

func TestMustFlagQuietTrade(t *testing.T) {
	flagged, reason := EvaluateMustFlag(store.Trade{Price: 0.5}, store.Context{
		TradeValueUSD:  100,
		WalletPosition: 10,
		TotalLiquidity: 100000,
		WalletAgeDays:  intPtr(365),
	}, defaultThresholds())
	assert.False(t, flagged)
	assert.Empty(t, reason)
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "25,000", formatUSD(25000))
	assert.Equal(t, "1,234,567", formatUSD(1234567.4))
	assert.Equal(t, "999", formatUSD(999))
	assert.Equal(t, "0", formatUSD(0))
	assert.Equal(t, "-5,000", formatUSD(-5000))
}
