// Package api exposes the read-side HTTP surface: recent alerts,
// aggregated positions, health, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/store"
)

// AlertLister serves stored alerts. Implemented by store.AlertRepo.
type AlertLister interface {
	ListRecent(ctx context.Context, filter store.AlertFilter) ([]store.Alert, error)
}

// PositionLister serves aggregated positions. Implemented by store.PositionRepo.
type PositionLister interface {
	ListByMarket(ctx context.Context, marketID string, limit int) ([]store.Position, error)
	ListByWallet(ctx context.Context, wallet string) ([]store.Position, error)
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	alerts    AlertLister
	positions PositionLister
	tracker   *metrics.Tracker
	logger    *slog.Logger
	httpSrv   *http.Server
}

// New creates an API server listening on the given port.
func New(port int, alerts AlertLister, positions PositionLister, tracker *metrics.Tracker, logger *slog.Logger) *Server {
	s := &Server{
		alerts:    alerts,
		positions: positions,
		tracker:   tracker,
		logger:    logger,
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", metrics.Handler())

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/alerts", s.handleAlerts)
		apiGroup.GET("/positions", s.handlePositions)
		apiGroup.GET("/stats", s.handleStats)
	}

	return r
}

// Start runs the HTTP server until it is shut down. Blocks.
func (s *Server) Start() error {
	s.logger.Info("api_listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
