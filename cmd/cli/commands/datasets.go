package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func NewDatasetsCmd(g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List and inspect stored datasets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored datasets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Datasets.List(commandContext(cmd))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATASET\tROWS\tCOLUMNS\tCREATED")
			for _, d := range list {
				created := "-"
				if d.CreatedAt != nil {
					created = d.CreatedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.DatasetID, intOrDash(d.Rows), intOrDash(d.Columns), created)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show DATASET_ID",
		Short: "Print the stored quality report of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Datasets.GetReport(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(report, '\n'))
			return err
		},
	})

	return cmd
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
