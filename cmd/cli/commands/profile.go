package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inferloop/autoeda/internal/quality"
	"github.com/inferloop/autoeda/pkg/models"
)

type ProfileOptions struct {
	InputFile    string
	OutputFormat string
}

func NewProfileCmd(g *GlobalOptions) *cobra.Command {
	opts := &ProfileOptions{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile a CSV file without changing it",
		Example: `  autoeda profile --input sales.csv
  autoeda profile -i sales.csv --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input CSV file (required)")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "text", "Output format (text, json)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runProfile(cmd *cobra.Command, g *GlobalOptions, opts *ProfileOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	table, err := readTable(opts.InputFile)
	if err != nil {
		return err
	}

	profile := quality.ProfileTable(table, cfg.Pipeline.CorrelationThreshold)

	switch opts.OutputFormat {
	case "json":
		return printJSON(cmd.OutOrStdout(), profile)
	case "text":
		return printProfile(cmd.OutOrStdout(), profile)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.OutputFormat)
	}
}

func printProfile(w io.Writer, p *models.Profile) error {
	fmt.Fprintf(w, "Rows: %d  Columns: %d  Duplicate rows: %d  Missing cells: %d\n\n",
		p.Rows, p.Columns, p.DuplicateRows, p.MissingCells)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tMISSING\tMISSING%\tUNIQUE")
	for _, c := range p.ColumnProfile {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%d\n", c.Name, c.DType, c.Missing, c.MissingPct, c.Distinct)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(p.NumericSummary) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NUMERIC\tCOUNT\tMEAN\tMEDIAN\tSTD\tMIN\tMAX\tSKEW")
		for _, n := range p.NumericSummary {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n", n.Column, n.Count,
				fmtStat(n.Mean), fmtStat(n.Median), fmtStat(n.Std), fmtStat(n.Min), fmtStat(n.Max), fmtStat(n.Skew))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, c := range p.CategoricalSummary {
		fmt.Fprintf(w, "\n%s top values:\n", c.Column)
		for _, tv := range c.TopValues {
			fmt.Fprintf(w, "  %s: %d\n", tv.Value, tv.Count)
		}
	}

	if len(p.HighCorrelationPairs) > 0 {
		fmt.Fprintln(w, "\nHigh correlations:")
		for _, pair := range p.HighCorrelationPairs {
			fmt.Fprintf(w, "  %s ~ %s: %.4f\n", pair.FeatureA, pair.FeatureB, pair.Correlation)
		}
	}
	return nil
}

func fmtStat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
