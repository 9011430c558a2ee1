package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/internal/app"
	"github.com/inferloop/autoeda/internal/config"
	"github.com/inferloop/autoeda/pkg/models"
)

type WorkerConfig struct {
	WorkerID       string
	ConfigFile     string
	StorageDir     string
	Tick           time.Duration
	HealthInterval time.Duration
	Once           bool
	LogLevel       string
	LogFormat      string
}

var logger *logrus.Logger

func main() {
	wc := parseFlags()

	cfg, err := config.Load(wc.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if wc.StorageDir != "" {
		cfg.Storage.Root = wc.StorageDir
	}
	if wc.Tick > 0 {
		cfg.Scheduler.Tick = wc.Tick
	}
	if wc.LogLevel != "" {
		cfg.Log.Level = wc.LogLevel
	}
	if wc.LogFormat != "" {
		cfg.Log.Format = wc.LogFormat
	}

	logger = app.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.WithFields(logrus.Fields{
		"workerID": wc.WorkerID,
		"tick":     cfg.Scheduler.Tick,
		"storage":  cfg.Storage.Root,
		"state":    cfg.State.Backend,
	}).Info("Starting autoeda batch worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Worker failed to start")
		os.Exit(1)
	}
	defer a.Close()

	if wc.Once {
		runAllOnce(ctx, a)
		return
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := a.Metrics.Start(ctx); err != nil {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()
	a.Scheduler.Start(runCtx)

	go func() {
		ticker := time.NewTicker(wc.HealthInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				jobs := a.Registry.ListJobs()
				logger.WithFields(logrus.Fields{
					"jobs":    len(jobs),
					"running": countRunning(jobs),
				}).Debug("Worker health check")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	if err := a.Scheduler.Stop(cfg.Scheduler.StopWait); err != nil {
		logger.WithError(err).Error("Worker shutdown failed")
		cancelRuns()
		os.Exit(1)
	}

	logger.Info("Worker stopped successfully")
}

func parseFlags() *WorkerConfig {
	wc := &WorkerConfig{}

	flag.StringVar(&wc.WorkerID, "worker-id", generateWorkerID(), "Unique worker ID")
	flag.StringVar(&wc.ConfigFile, "config", "", "Path to configuration file")
	flag.StringVar(&wc.StorageDir, "storage-dir", "", "Directory for datasets and batch state")
	flag.DurationVar(&wc.Tick, "tick", 0, "Scheduler wake-up interval")
	flag.DurationVar(&wc.HealthInterval, "health-interval", 30*time.Second, "Interval between health log lines")
	flag.BoolVar(&wc.Once, "once", false, "Run every enabled job once and exit")
	flag.StringVar(&wc.LogLevel, "log-level", "", "Log level")
	flag.StringVar(&wc.LogFormat, "log-format", "", "Log format")

	flag.Parse()

	if wc.HealthInterval <= 0 {
		wc.HealthInterval = 30 * time.Second
	}
	return wc
}

func generateWorkerID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

func countRunning(jobs []models.JobView) int {
	n := 0
	for _, j := range jobs {
		if j.Running {
			n++
		}
	}
	return n
}

func runAllOnce(ctx context.Context, a *app.App) {
	for _, job := range a.Registry.ListJobs() {
		if !job.Enabled {
			continue
		}
		run, err := a.Registry.RunJob(ctx, job.JobID, models.TriggerScheduler)
		if err != nil {
			logger.WithError(err).WithField("job_id", job.JobID).Warn("Batch run skipped")
			continue
		}
		logger.WithFields(logrus.Fields{
			"job_id":          job.JobID,
			"status":          run.Status,
			"files_processed": run.FilesProcessed,
		}).Info("Batch run finished")
	}
}
