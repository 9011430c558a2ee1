package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inferloop/autoeda/internal/export"
	"github.com/inferloop/autoeda/internal/quality"
	"github.com/inferloop/autoeda/internal/tabular"
	"github.com/inferloop/autoeda/pkg/models"
)

type CleanOptions struct {
	InputFile  string
	OutputFile string
	ReportFile string
	Format     string
	NoAutoFix  bool
	Gzip       bool
	Delimiter  string
	NullValue  string
}

func NewCleanCmd(g *GlobalOptions) *cobra.Command {
	opts := &CleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run the data-quality pipeline over a CSV file",
		Long: `Infer column types, fill missing values, drop duplicate rows, cap outliers,
normalise text and log-transform skewed columns. Nothing is stored; the cleaned
table and the quality report are written where you point them.`,
		Example: `  # Clean a file and print a summary
  autoeda clean --input sales.csv --output sales.clean.csv

  # Write JSON lines and the full report
  autoeda clean -i sales.csv -o sales.jsonl --format json --report report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input CSV file (required)")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "Cleaned output file (- for stdout)")
	cmd.Flags().StringVar(&opts.ReportFile, "report", "", "Write the quality report as JSON to this file (- for stdout)")
	cmd.Flags().StringVar(&opts.Format, "format", "csv", "Output format (csv, json)")
	cmd.Flags().BoolVar(&opts.NoAutoFix, "no-auto-fix", false, "Profile only; leave the table unchanged")
	cmd.Flags().BoolVar(&opts.Gzip, "gzip", false, "Gzip the cleaned output")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", ",", "CSV output delimiter")
	cmd.Flags().StringVar(&opts.NullValue, "null-value", "", "CSV output text for missing cells")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runClean(cmd *cobra.Command, g *GlobalOptions, opts *CleanOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := g.logger(cmd.ErrOrStderr())

	table, err := readTable(opts.InputFile)
	if err != nil {
		return err
	}

	pipeline, err := quality.NewPipeline(cfg.Pipeline, logger)
	if err != nil {
		return err
	}
	cleaned, report, err := pipeline.Run(commandContext(cmd), table, !opts.NoAutoFix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.OutputFile != "" {
		exportOpts := export.DefaultOptions()
		exportOpts.Gzip = opts.Gzip
		exportOpts.CSVOptions.Delimiter = opts.Delimiter
		exportOpts.CSVOptions.NullValue = opts.NullValue
		exportOpts.JSONOptions.StreamLines = true

		engine := export.NewExportEngine(logger)
		if err := withOutput(out, opts.OutputFile, func(w io.Writer) error {
			return engine.Export(commandContext(cmd), cleaned, export.ExportFormat(strings.ToLower(opts.Format)), w, exportOpts)
		}); err != nil {
			return err
		}
	}

	if opts.ReportFile != "" {
		return withOutput(out, opts.ReportFile, func(w io.Writer) error {
			return printJSON(w, report)
		})
	}
	if opts.OutputFile == "-" {
		return nil
	}
	return printCleanSummary(out, report)
}

func readTable(path string) (*models.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return tabular.ParseCSV(raw)
}

// withOutput runs write against stdout for "-" or a created file otherwise
func withOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printCleanSummary(w io.Writer, report *models.QualityReport) error {
	d := report.QualityDelta
	fmt.Fprintf(w, "Rows: %d -> %d\n", report.Before.Rows, report.After.Rows)
	fmt.Fprintf(w, "Missing cells: %d -> %d\n", d.MissingCellsBefore, d.MissingCellsAfter)
	fmt.Fprintf(w, "Duplicate rows: %d -> %d\n", d.DuplicateRowsBefore, d.DuplicateRowsAfter)

	if len(report.TypeConversions) > 0 {
		fmt.Fprintln(w, "\nType conversions:")
		for _, c := range report.TypeConversions {
			fmt.Fprintf(w, "- %s: %s -> %s (%.3f)\n", c.Column, c.From, c.To, c.Confidence)
		}
	}

	if len(report.FixesApplied) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nFixes applied:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATION\tCOLUMNS\tROWS")
	for _, f := range report.FixesApplied {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", f.Operation, f.ColumnsTouched, f.RowsImpacted)
	}
	return tw.Flush()
}
