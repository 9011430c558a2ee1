package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inferloop/autoeda/internal/app"
	"github.com/inferloop/autoeda/internal/config"
	"github.com/inferloop/autoeda/internal/server"
)

func main() {
	flags := ParseFlags()

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.WithFields(logrus.Fields{
		"version":   Version,
		"commit":    GitCommit,
		"buildDate": BuildDate,
		"storage":   cfg.Storage.Root,
		"state":     cfg.State.Backend,
	}).Info("Starting autoeda API server")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.NewServer(&cfg.Server, server.Dependencies{
		Ingester: a.Ingester,
		Datasets: a.Datasets,
		Registry: a.Registry,
		Metrics:  a.Metrics,
	}, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(gctx)
	})

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return a.Metrics.Start(gctx)
		})
	}

	if cfg.Scheduler.Enabled {
		// runs outlive the signal until Stop's bound expires
		runCtx, cancelRuns := context.WithCancel(context.Background())
		defer cancelRuns()
		a.Scheduler.Start(runCtx)

		g.Go(func() error {
			<-gctx.Done()
			err := a.Scheduler.Stop(cfg.Scheduler.StopWait)
			if err != nil {
				logger.WithError(err).Warn("Cancelling in-flight batch run")
				cancelRuns()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
