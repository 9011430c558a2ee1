// Package app assembles the storage, pipeline, ingestion and batch components
// from a loaded configuration. The server, worker and CLI binaries share it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/internal/config"
	"github.com/inferloop/autoeda/internal/ingestion"
	"github.com/inferloop/autoeda/internal/observability/metrics"
	"github.com/inferloop/autoeda/internal/processors/batch"
	"github.com/inferloop/autoeda/internal/quality"
	"github.com/inferloop/autoeda/internal/storage"
	"github.com/inferloop/autoeda/internal/storage/implementations/file"
	"github.com/inferloop/autoeda/pkg/interfaces"
)

// App holds the wired components
type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Metrics   *metrics.PrometheusMetrics
	Pipeline  *quality.Pipeline
	Datasets  *file.DatasetRepository
	Ingester  *ingestion.Service
	State     interfaces.StateStore
	Registry  *batch.Registry
	Scheduler *batch.Scheduler
}

// New builds every component. The registry is loaded from the configured
// state backend before New returns.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = logrus.New()
	}

	pm, err := metrics.NewPrometheusMetrics(&cfg.Metrics, logger)
	if err != nil {
		return nil, err
	}

	pipeline, err := quality.NewPipeline(cfg.Pipeline, logger)
	if err != nil {
		return nil, err
	}
	pipeline.WithRecorder(pm)

	datasets, err := file.NewDatasetRepository(cfg.Storage.Root, logger)
	if err != nil {
		return nil, err
	}
	ingester := ingestion.NewService(pipeline, datasets, logger)

	state, err := storage.NewStateStore(ctx, cfg.State, cfg.Storage.Root, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s state store: %w", backendName(cfg.State.Backend), err)
	}

	registry, err := batch.NewRegistry(ctx, state, ingester, logger, batch.WithRecorder(pm))
	if err != nil {
		_ = state.Close()
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   pm,
		Pipeline:  pipeline,
		Datasets:  datasets,
		Ingester:  ingester,
		State:     state,
		Registry:  registry,
		Scheduler: batch.NewScheduler(registry, cfg.Scheduler.Tick, logger),
	}, nil
}

// Close releases the state backend
func (a *App) Close() error {
	if a == nil || a.State == nil {
		return nil
	}
	return a.State.Close()
}

func backendName(b string) string {
	if b == "" {
		return storage.BackendFile
	}
	return b
}

// NewLogger builds a logger from a level name and a format (json or text)
func NewLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
