package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inferloop/autoeda/internal/query"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

type QueryOptions struct {
	DatasetID    string
	SQL          string
	MaxRows      int
	OutputFormat string
}

func NewQueryCmd(g *GlobalOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a read-only SQL query against a stored dataset",
		Long: `Load the cleaned table of a dataset into an in-memory SQLite database as
the table "dataset" and run a SELECT or WITH statement against it.`,
		Example: `  autoeda query --dataset 7c1e... --sql "SELECT COUNT(*) FROM dataset"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.DatasetID, "dataset", "d", "", "Dataset id (required)")
	cmd.Flags().StringVarP(&opts.SQL, "sql", "q", "", "SELECT or WITH statement (required)")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", constants.MaxQueryRows, "Maximum rows to return")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "table", "Output format (table, json)")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("sql")

	return cmd
}

func runQuery(cmd *cobra.Command, g *GlobalOptions, opts *QueryOptions) error {
	if err := query.ValidateReadOnly(opts.SQL); err != nil {
		return err
	}

	a, err := g.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	table, err := a.Datasets.LoadCleaned(ctx, opts.DatasetID)
	if err != nil {
		return err
	}
	snap, err := query.NewSnapshot(ctx, table, a.Logger)
	if err != nil {
		return err
	}
	defer snap.Close()

	result, err := snap.Query(ctx, opts.SQL, opts.MaxRows)
	if err != nil {
		return err
	}

	if opts.OutputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), result)
	}
	return printQueryResult(cmd.OutOrStdout(), result)
}

func printQueryResult(w io.Writer, r *models.QueryResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if r.RowCount > len(r.Rows) {
		fmt.Fprintf(w, "(%d of %d rows)\n", len(r.Rows), r.RowCount)
	} else {
		fmt.Fprintf(w, "(%d rows)\n", r.RowCount)
	}
	return nil
}
