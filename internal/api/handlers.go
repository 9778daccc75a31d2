package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/polysentinel/engine/internal/store"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAlerts serves recent alerts, newest first. Supported query
// parameters: market, wallet, min_score, limit.
func (s *Server) handleAlerts(c *gin.Context) {
	filter := store.AlertFilter{
		MarketID: c.Query("market"),
		Wallet:   c.Query("wallet"),
	}

	if raw := c.Query("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_score must be a number"})
			return
		}
		filter.MinScore = v
	}

	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = v
	}

	alerts, err := s.alerts.ListRecent(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("alert_list_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// handlePositions serves aggregated positions for a market or a wallet.
// Exactly one of the market or wallet query parameters is required.
func (s *Server) handlePositions(c *gin.Context) {
	market := c.Query("market")
	wallet := c.Query("wallet")

	if (market == "") == (wallet == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of market or wallet is required"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = v
	}

	var (
		positions []store.Position
		err       error
	)
	if market != "" {
		positions, err = s.positions.ListByMarket(c.Request.Context(), market, limit)
	} else {
		positions, err = s.positions.ListByWallet(c.Request.Context(), wallet)
	}
	if err != nil {
		s.logger.Error("position_list_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list positions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}

// handleStats serves a snapshot of in-process pipeline counters.
func (s *Server) handleStats(c *gin.Context) {
	snap := s.tracker.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"tradesScored":   snap.TradesScored,
		"alertsTotal":    snap.AlertsTotal,
		"mustFlagAlerts": snap.MustFlagAlerts,
		"alertsByReason": snap.AlertsByReason,
		"tradeRate":      snap.TradeRate,
		"meanScore":      snap.MeanScore,
		"maxScore":       snap.MaxScore,
		"uptimeSeconds":  snap.Uptime.Seconds(),
		"pollerStatus":   snap.PollerStatus,
	})
}
