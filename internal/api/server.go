// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newthinker/specforge/internal/api/job"
	"github.com/newthinker/specforge/internal/api/middleware"
	"github.com/newthinker/specforge/internal/generator"
	"github.com/newthinker/specforge/internal/metrics"
	"github.com/newthinker/specforge/internal/storage/archive"
)

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
}

// Server is the HTTP front end: generation, validation, jobs, health,
// metrics.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *zap.Logger

	gen     *generator.Generator
	store   *archive.Store
	backend string
	jobs    *job.Store
	metrics *metrics.Registry
}

// NewServer creates the HTTP server. gen and store may be nil when no
// LLM provider or archive is configured; the corresponding endpoints
// then respond with an error.
func NewServer(cfg Config, gen *generator.Generator, store *archive.Store, backend string,
	jobs *job.Store, reg *metrics.Registry, logger *zap.Logger) *Server {

	mux := http.NewServeMux()
	s := &Server{
		mux:     mux,
		logger:  logger,
		gen:     gen,
		store:   store,
		backend: backend,
		jobs:    jobs,
		metrics: reg,
	}

	s.setupRoutes(cfg.MetricsPath)

	var handler http.Handler = mux
	if reg != nil {
		handler = metrics.HTTPMiddleware(reg)(handler)
	}
	handler = middleware.APIKeyAuth(cfg.APIKey)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // sync generation waits on the LLM
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(metricsPath string) {
	s.mux.HandleFunc("POST /api/v1/specs/backtest/generate", s.handleGenerate("backtest"))
	s.mux.HandleFunc("POST /api/v1/specs/agent/generate", s.handleGenerate("agent"))
	s.mux.HandleFunc("POST /api/v1/specs/backtest/validate", s.handleValidateBacktest)
	s.mux.HandleFunc("POST /api/v1/specs/agent/validate", s.handleValidateAgent)

	s.mux.HandleFunc("GET /api/v1/jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleGetJob)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.metrics != nil && metricsPath != "" {
		s.mux.Handle("GET "+metricsPath, promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
