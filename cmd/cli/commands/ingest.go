package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inferloop/autoeda/pkg/models"
)

type IngestOptions struct {
	InputFile string
	NoAutoFix bool
	JSON      bool
}

func NewIngestCmd(g *GlobalOptions) *cobra.Command {
	opts := &IngestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Clean a CSV file and store it as a queryable dataset",
		Example: `  autoeda ingest --input sales.csv
  autoeda --storage-dir /data/eda ingest -i sales.csv --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input CSV file (required)")
	cmd.Flags().BoolVar(&opts.NoAutoFix, "no-auto-fix", false, "Store the file without applying fixes")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the full ingestion result as JSON")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runIngest(cmd *cobra.Command, g *GlobalOptions, opts *IngestOptions) error {
	raw, err := os.ReadFile(opts.InputFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.InputFile, err)
	}

	a, err := g.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	abs, _ := filepath.Abs(opts.InputFile)
	result, err := a.Ingester.Ingest(commandContext(cmd), raw, filepath.Base(opts.InputFile), models.IngestOptions{
		AutoFix:    !opts.NoAutoFix,
		Mode:       models.IngestModeUpload,
		SourcePath: abs,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "Dataset: %s\n", result.DatasetID)
	fmt.Fprintf(out, "Cleaned data: %s\n", result.CleanedPath)
	return printCleanSummary(out, result.Report)
}
