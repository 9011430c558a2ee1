package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/inferloop/autoeda/internal/config"
	"github.com/inferloop/autoeda/pkg/constants"
)

// Flags override values loaded from the config file and environment. Zero
// values leave the loaded setting alone.
type Flags struct {
	ConfigFile   string
	Host         string
	Port         int
	StorageDir   string
	LogLevel     string
	LogFormat    string
	MetricsPort  int
	NoScheduler  bool
	StateBackend string
	Version      bool
}

func ParseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigFile, "config", "", "Path to configuration file")
	flag.StringVar(&f.Host, "host", "", "Server host")
	flag.IntVar(&f.Port, "port", 0, "Server port")
	flag.StringVar(&f.StorageDir, "storage-dir", "", "Directory for datasets and batch state")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&f.LogFormat, "log-format", "", "Log format (json, text)")
	flag.IntVar(&f.MetricsPort, "metrics-port", 0, "Prometheus metrics port")
	flag.BoolVar(&f.NoScheduler, "no-scheduler", false, "Do not run the batch scheduler in this process")
	flag.StringVar(&f.StateBackend, "state-backend", "", "Batch state backend (file, redis, postgres)")
	flag.BoolVar(&f.Version, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n%s API server\n\n", constants.AppDescription)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if f.Version {
		GetBuildInfo().Print(os.Stdout)
		os.Exit(0)
	}

	return f
}

// Apply writes the set flags onto cfg
func (f *Flags) Apply(cfg *config.Config) {
	if f.Host != "" {
		cfg.Server.Host = f.Host
	}
	if f.Port != 0 {
		cfg.Server.Port = f.Port
	}
	if f.StorageDir != "" {
		cfg.Storage.Root = f.StorageDir
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.Log.Format = f.LogFormat
	}
	if f.MetricsPort != 0 {
		cfg.Metrics.Port = f.MetricsPort
	}
	if f.NoScheduler {
		cfg.Scheduler.Enabled = false
	}
	if f.StateBackend != "" {
		cfg.State.Backend = f.StateBackend
	}
}
