package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
	"github.com/andreyk/breakout_bot/internal/usecase"
)

// Server exposes a read-only view of the engine: open trades, daily ranges,
// closed-trade history and Prometheus metrics.
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	engine    *usecase.Engine
	tradeRepo domain.TradeRepository
	logger    *zap.Logger
}

func NewServer(port int, engine *usecase.Engine, tradeRepo domain.TradeRepository, logger *zap.Logger) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		engine:    engine,
		tradeRepo: tradeRepo,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Trades
	s.router.HandleFunc("GET /trades", s.handleOpenTrades)
	s.router.HandleFunc("GET /history", s.handleHistory)

	// Ranges
	s.router.HandleFunc("GET /ranges", s.handleRanges)

	// Metrics
	s.router.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
