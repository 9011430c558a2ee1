// Package server exposes the ingestion, dataset and batch operations over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/internal/observability/metrics"
	"github.com/inferloop/autoeda/internal/processors/batch"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/interfaces"
)

// Dependencies are the collaborators the handlers delegate to
type Dependencies struct {
	Ingester interfaces.Ingester
	Datasets interfaces.DatasetRepository
	Registry *batch.Registry
	Metrics  *metrics.PrometheusMetrics
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	logger     *logrus.Logger
	config     *Config

	ingester interfaces.Ingester
	datasets interfaces.DatasetRepository
	registry *batch.Registry
	metrics  *metrics.PrometheusMetrics
}

// NewServer creates a new HTTP server instance
func NewServer(config *Config, deps Dependencies, logger *logrus.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if deps.Ingester == nil || deps.Datasets == nil || deps.Registry == nil {
		return nil, fmt.Errorf("server requires an ingester, a dataset repository and a batch registry")
	}

	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		config:   config,
		ingester: deps.Ingester,
		datasets: deps.Datasets,
		registry: deps.Registry,
		metrics:  deps.Metrics,
	}

	s.setupRoutes()
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:         config.Addr(),
		Handler:      s.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves HTTP until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.logger.Infof("Starting HTTP server on %s", s.config.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = constants.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorf("Error shutting down HTTP server: %v", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// setupRoutes sets up the HTTP routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix(constants.APIPrefix).Subrouter()

	api.HandleFunc("/health", s.health).Methods(http.MethodGet)

	// Datasets
	api.HandleFunc("/upload", s.upload).Methods(http.MethodPost)
	api.HandleFunc("/datasets", s.listDatasets).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}", s.getDataset).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}/query", s.queryDataset).Methods(http.MethodPost)

	// Batch jobs
	api.HandleFunc("/batch/jobs", s.listJobs).Methods(http.MethodGet)
	api.HandleFunc("/batch/jobs", s.createJob).Methods(http.MethodPost)
	api.HandleFunc("/batch/jobs/{id}", s.updateJob).Methods(http.MethodPatch)
	api.HandleFunc("/batch/jobs/{id}", s.deleteJob).Methods(http.MethodDelete)
	api.HandleFunc("/batch/jobs/{id}/run", s.runJob).Methods(http.MethodPost)
	api.HandleFunc("/batch/runs", s.listRuns).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "Method Not Allowed"})
	})
}

// setupMiddleware wraps the router. Route-level metrics run inside the
// router so the matched path template is known; the rest wrap it so they
// also see unmatched and preflight requests.
func (s *Server) setupMiddleware() {
	s.router.Use(s.metricsMiddleware)

	var h http.Handler = s.router
	if s.config.EnableCORS {
		h = s.corsMiddleware(h)
	}
	h = s.recoveryMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.requestIDMiddleware(h)
	s.handler = h
}
