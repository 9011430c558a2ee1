// Package metrics exposes pipeline, batch and HTTP measurements to Prometheus.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/pkg/constants"
)

// PrometheusMetrics collects measurements on a private registry. All
// recording methods are safe to call on a nil receiver.
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	server   *http.Server
	config   *PrometheusConfig

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	pipelineRunsTotal *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec
	fixRowsTotal      *prometheus.CounterVec
	fixColumnsTotal   *prometheus.CounterVec

	batchRunsTotal   *prometheus.CounterVec
	batchRunDuration *prometheus.HistogramVec
	batchFilesTotal  *prometheus.CounterVec
	batchRunningJobs prometheus.Gauge
}

// PrometheusConfig configures Prometheus metrics
type PrometheusConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Port      int    `json:"port" mapstructure:"port"`
	Path      string `json:"path" mapstructure:"path"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
}

// DefaultPrometheusConfig returns the default configuration
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Enabled:   true,
		Port:      constants.DefaultMetricsPort,
		Path:      "/metrics",
		Namespace: constants.AppName,
	}
}

// NewPrometheusMetrics creates and registers all collectors
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) (*PrometheusMetrics, error) {
	if config == nil {
		config = DefaultPrometheusConfig()
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if logger == nil {
		logger = logrus.New()
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		config:   config,
	}
	pm.initializeMetrics()

	if err := pm.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return pm, nil
}

func (pm *PrometheusMetrics) initializeMetrics() {
	ns := pm.config.Namespace

	pm.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	pm.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	pm.pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "pipeline_runs_total",
			Help:      "Total number of data-quality pipeline runs",
		},
		[]string{"auto_fix", "status"},
	)
	pm.pipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "pipeline_duration_seconds",
			Help:      "Data-quality pipeline duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"auto_fix"},
	)
	pm.fixRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fix_rows_impacted_total",
			Help:      "Rows or cells changed by each fix operation",
		},
		[]string{"operation"},
	)
	pm.fixColumnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fix_columns_touched_total",
			Help:      "Columns changed by each fix operation",
		},
		[]string{"operation"},
	)

	pm.batchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "batch_runs_total",
			Help:      "Total number of batch job runs",
		},
		[]string{"trigger", "status"},
	)
	pm.batchRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "batch_run_duration_seconds",
			Help:      "Batch job run duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"trigger"},
	)
	pm.batchFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "batch_files_total",
			Help:      "Files seen, processed and failed by batch runs",
		},
		[]string{"outcome"},
	)
	pm.batchRunningJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "batch_running_jobs",
			Help:      "Number of batch jobs currently running",
		},
	)
}

func (pm *PrometheusMetrics) registerMetrics() error {
	cs := []prometheus.Collector{
		pm.httpRequestsTotal,
		pm.httpRequestDuration,
		pm.pipelineRunsTotal,
		pm.pipelineDuration,
		pm.fixRowsTotal,
		pm.fixColumnsTotal,
		pm.batchRunsTotal,
		pm.batchRunDuration,
		pm.batchFilesTotal,
		pm.batchRunningJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := pm.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns the underlying registry
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Handler serves the registry in the Prometheus exposition format
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start serves the metrics endpoint on its own port until ctx is done or
// Stop is called
func (pm *PrometheusMetrics) Start(ctx context.Context) error {
	if !pm.config.Enabled {
		pm.logger.Info("Prometheus metrics disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(pm.config.Path, pm.Handler())
	pm.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", pm.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	pm.logger.WithFields(logrus.Fields{
		"port": pm.config.Port,
		"path": pm.config.Path,
	}).Info("Starting Prometheus metrics server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- pm.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pm.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Stop stops the metrics server
func (pm *PrometheusMetrics) Stop(ctx context.Context) error {
	if pm == nil || pm.server == nil {
		return nil
	}
	pm.logger.Info("Stopping Prometheus metrics server")
	return pm.server.Shutdown(ctx)
}

// RecordHTTPRequest records one served request
func (pm *PrometheusMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if pm == nil {
		return
	}
	pm.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pm.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPipelineRun records one pipeline run
func (pm *PrometheusMetrics) RecordPipelineRun(autoFix bool, duration time.Duration, err error) {
	if pm == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	label := strconv.FormatBool(autoFix)
	pm.pipelineRunsTotal.WithLabelValues(label, status).Inc()
	pm.pipelineDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordFix records the effect of one fix operation
func (pm *PrometheusMetrics) RecordFix(operation string, columnsTouched, rowsImpacted int) {
	if pm == nil {
		return
	}
	pm.fixColumnsTotal.WithLabelValues(operation).Add(float64(columnsTouched))
	pm.fixRowsTotal.WithLabelValues(operation).Add(float64(rowsImpacted))
}

// RecordBatchRun records a finished batch run
func (pm *PrometheusMetrics) RecordBatchRun(trigger, status string, duration time.Duration, filesSeen, filesProcessed, filesFailed int) {
	if pm == nil {
		return
	}
	pm.batchRunsTotal.WithLabelValues(trigger, status).Inc()
	pm.batchRunDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	pm.batchFilesTotal.WithLabelValues("seen").Add(float64(filesSeen))
	pm.batchFilesTotal.WithLabelValues("processed").Add(float64(filesProcessed))
	pm.batchFilesTotal.WithLabelValues("failed").Add(float64(filesFailed))
}

// SetRunningJobs sets the running-jobs gauge
func (pm *PrometheusMetrics) SetRunningJobs(n int) {
	if pm == nil {
		return
	}
	pm.batchRunningJobs.Set(float64(n))
}
