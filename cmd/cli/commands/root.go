package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/autoeda/internal/app"
	"github.com/inferloop/autoeda/internal/config"
	"github.com/inferloop/autoeda/pkg/constants"
)

// GlobalOptions are the persistent flags shared by every command
type GlobalOptions struct {
	ConfigFile string
	StorageDir string
	Verbose    bool
}

// NewRootCmd builds the autoeda command tree
func NewRootCmd() *cobra.Command {
	g := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "autoeda",
		Short: "CSV data-quality pipeline and watched-folder ingestion",
		Long: `A command-line interface for profiling and cleaning CSV files, querying
stored datasets, and managing watched-folder batch jobs.`,
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.ConfigFile, "config", "", "config file (default is $HOME/.autoeda/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.StorageDir, "storage-dir", "", "directory for datasets and batch state")
	rootCmd.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewCleanCmd(g))
	rootCmd.AddCommand(NewProfileCmd(g))
	rootCmd.AddCommand(NewIngestCmd(g))
	rootCmd.AddCommand(NewDatasetsCmd(g))
	rootCmd.AddCommand(NewQueryCmd(g))
	rootCmd.AddCommand(NewJobsCmd(g))

	return rootCmd
}

func (g *GlobalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.ConfigFile)
	if err != nil {
		return nil, err
	}
	if g.StorageDir != "" {
		cfg.Storage.Root = g.StorageDir
	}
	return cfg, nil
}

func (g *GlobalOptions) logger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if g.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

// openApp wires the storage-backed components
func (g *GlobalOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(commandContext(cmd), cfg, g.logger(cmd.ErrOrStderr()))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
