// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newthinker/sigfuse/internal/api/middleware"
	"github.com/newthinker/sigfuse/internal/metrics"
	"github.com/newthinker/sigfuse/internal/pipeline"
	"github.com/newthinker/sigfuse/internal/sink"
)

// Server exposes signals, the watchlist and metrics over HTTP
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Addr        string
	APIKey      string
	MetricsPath string // Empty disables the Prometheus endpoint
}

// Dependencies are the components the handlers serve. Metrics is optional.
type Dependencies struct {
	Analyzer *pipeline.Analyzer
	Watcher  *pipeline.Watcher
	Signals  *sink.Memory
	Metrics  *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Analyzer == nil || deps.Watcher == nil || deps.Signals == nil {
		return nil, fmt.Errorf("api: analyzer, watcher and signal store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		deps:   deps,
	}
	s.setupRoutes(cfg)

	var handler http.Handler = mux
	handler = metrics.LoggingMiddleware(logger)(handler)
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes(cfg Config) {
	auth := middleware.APIKeyAuth(cfg.APIKey)
	route := func(pattern string, h http.HandlerFunc) {
		s.mux.Handle(pattern, auth(h))
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)

	route("GET /api/v1/signals", s.handleListSignals)
	route("GET /api/v1/signals/latest", s.handleLatestSignals)
	route("GET /api/v1/signals/{id}", s.handleGetSignal)
	route("POST /api/v1/analyze/{symbol}", s.handleAnalyze)
	route("POST /api/v1/train/{symbol}", s.handleTrain)
	route("GET /api/v1/watchlist", s.handleListWatchlist)
	route("POST /api/v1/watchlist", s.handleAddWatchlist)
	route("DELETE /api/v1/watchlist/{symbol}", s.handleRemoveWatchlist)
	route("GET /api/v1/stats", s.handleStats)

	if s.deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
