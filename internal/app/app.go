// Package app wires configuration into the running service: logger,
// metrics, LLM provider, generator, archive, job store, HTTP server.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/specforge/internal/api"
	"github.com/newthinker/specforge/internal/api/job"
	"github.com/newthinker/specforge/internal/config"
	"github.com/newthinker/specforge/internal/generator"
	"github.com/newthinker/specforge/internal/llm/factory"
	"github.com/newthinker/specforge/internal/metrics"
	"github.com/newthinker/specforge/internal/storage/archive"
)

// sweepInterval is how often expired jobs are dropped.
const sweepInterval = 5 * time.Minute

// App holds the assembled service.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	server  *api.Server
	jobs    *job.Store
	metrics *metrics.Registry
}

// New assembles the service from validated configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	var gen *generator.Generator
	if cfg.LLM.Provider != "" {
		provider, err := factory.New(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		gen = generator.New(provider, cfg.Generator, logger, reg)
		logger.Info("LLM provider ready", zap.String("provider", provider.Name()))
	} else {
		logger.Warn("no LLM provider configured, generation endpoints disabled")
	}

	var store *archive.Store
	if cfg.Archive.Enabled {
		backend, err := archive.NewBackend(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("creating archive backend: %w", err)
		}
		store = archive.NewStore(backend)
		logger.Info("spec archive ready", zap.String("type", cfg.Archive.Type))
	}

	jobs := job.NewStore(cfg.Server.MaxJobs, time.Duration(cfg.Server.JobTTLHours)*time.Hour)

	server := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		APIKey:      cfg.Server.APIKey,
		MetricsPath: cfg.Metrics.Path,
	}, gen, store, cfg.Archive.Type, jobs, reg, logger)

	return &App{
		cfg:     cfg,
		logger:  logger,
		server:  server,
		jobs:    jobs,
		metrics: reg,
	}, nil
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	go a.sweepJobs(ctx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

// sweepJobs periodically drops expired jobs.
func (a *App) sweepJobs(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.jobs.Sweep(); removed > 0 {
				a.logger.Debug("swept expired jobs", zap.Int("removed", removed))
			}
		}
	}
}
