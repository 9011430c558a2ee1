package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/inferloop/autoeda/internal/app"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/models"
)

type JobFlags struct {
	Name        string
	WatchDir    string
	PollSeconds int
	AutoFix     bool
	Enabled     bool
	RunOnCreate bool
	JSON        bool
}

func NewJobsCmd(g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage watched-folder batch jobs",
		Long: `Register folders to watch, inspect their run history and trigger runs by hand.
Jobs are stored in the configured batch state backend and picked up by the
server or worker scheduler.`,
	}

	cmd.AddCommand(newJobsListCmd(g))
	cmd.AddCommand(newJobsCreateCmd(g))
	cmd.AddCommand(newJobsUpdateCmd(g))
	cmd.AddCommand(newJobsDeleteCmd(g))
	cmd.AddCommand(newJobsRunCmd(g))
	cmd.AddCommand(newJobsRunsCmd(g))

	return cmd
}

// withApp opens the app for one command invocation
func withApp(g *GlobalOptions, fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := g.openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func newJobsListCmd(g *GlobalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app.App, args []string) error {
			jobs := a.Registry.ListJobs()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"jobs": jobs})
			}
			return printJobs(cmd.OutOrStdout(), jobs)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newJobsCreateCmd(g *GlobalOptions) *cobra.Command {
	f := &JobFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a folder to watch",
		Example: `  autoeda jobs create --watch-dir ./incoming --poll-seconds 60
  autoeda jobs create --watch-dir ~/drops --name nightly --run`,
		Args: cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app.App, args []string) error {
			ctx := commandContext(cmd)
			spec := models.JobSpec{Name: f.Name, WatchDir: f.WatchDir}
			if cmd.Flags().Changed("poll-seconds") {
				spec.PollSeconds = &f.PollSeconds
			}
			if cmd.Flags().Changed("auto-fix") {
				spec.AutoFix = &f.AutoFix
			}
			if cmd.Flags().Changed("enabled") {
				spec.Enabled = &f.Enabled
			}

			job, err := a.Registry.CreateJob(ctx, spec)
			if err != nil {
				return err
			}

			var run *models.RunRecord
			if f.RunOnCreate {
				if run, err = a.Registry.RunJob(ctx, job.JobID, models.TriggerCreate); err != nil {
					return err
				}
				if refreshed, err := a.Registry.GetJob(job.JobID); err == nil {
					job = refreshed
				}
			}

			if f.JSON {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"job": job, "run": run})
			}
			if err := printJobs(cmd.OutOrStdout(), []models.JobView{*job}); err != nil {
				return err
			}
			if run != nil {
				return printRuns(cmd.OutOrStdout(), []models.RunRecord{*run})
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&f.WatchDir, "watch-dir", "", "Folder to scan for CSV files (required)")
	cmd.Flags().StringVar(&f.Name, "name", "", "Job name")
	cmd.Flags().IntVar(&f.PollSeconds, "poll-seconds", constants.DefaultPollSeconds, "Seconds between scheduled runs")
	cmd.Flags().BoolVar(&f.AutoFix, "auto-fix", true, "Apply fixes to ingested files")
	cmd.Flags().BoolVar(&f.Enabled, "enabled", true, "Schedule the job")
	cmd.Flags().BoolVar(&f.RunOnCreate, "run", false, "Run the job once right after creating it")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("watch-dir")
	return cmd
}

func newJobsUpdateCmd(g *GlobalOptions) *cobra.Command {
	f := &JobFlags{}
	cmd := &cobra.Command{
		Use:   "update JOB_ID",
		Short: "Change a job's settings",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app.App, args []string) error {
			var upd models.JobUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				upd.Name = &f.Name
			}
			if flags.Changed("watch-dir") {
				upd.WatchDir = &f.WatchDir
			}
			if flags.Changed("poll-seconds") {
				upd.PollSeconds = &f.PollSeconds
			}
			if flags.Changed("auto-fix") {
				upd.AutoFix = &f.AutoFix
			}
			if flags.Changed("enabled") {
				upd.Enabled = &f.Enabled
			}

			job, err := a.Registry.UpdateJob(commandContext(cmd), args[0], upd)
			if err != nil {
				return err
			}
			if f.JSON {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"job": job})
			}
			return printJobs(cmd.OutOrStdout(), []models.JobView{*job})
		}),
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "Job name")
	cmd.Flags().StringVar(&f.WatchDir, "watch-dir", "", "Folder to scan for CSV files")
	cmd.Flags().IntVar(&f.PollSeconds, "poll-seconds", 0, "Seconds between scheduled runs")
	cmd.Flags().BoolVar(&f.AutoFix, "auto-fix", true, "Apply fixes to ingested files")
	cmd.Flags().BoolVar(&f.Enabled, "enabled", true, "Schedule the job")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "Print JSON")
	return cmd
}

func newJobsDeleteCmd(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete JOB_ID",
		Short: "Remove a job",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app.App, args []string) error {
			if err := a.Registry.DeleteJob(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", args[0])
			return nil
		}),
	}
}

func newJobsRunCmd(g *GlobalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run JOB_ID",
		Short: "Run a job now",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app.App, args []string) error {
			run, err := a.Registry.RunJob(commandContext(cmd), args[0], models.TriggerManual)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"run": run})
			}
			if err := printRuns(cmd.OutOrStdout(), []models.RunRecord{*run}); err != nil {
				return err
			}
			for _, e := range run.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", e)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newJobsRunsCmd(g *GlobalOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent batch runs, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app.App, args []string) error {
			if limit < 1 || limit > constants.MaxRunsLimit {
				return fmt.Errorf("--limit must be between 1 and %d", constants.MaxRunsLimit)
			}
			runs := a.Registry.ListRuns(limit)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"runs": runs})
			}
			return printRuns(cmd.OutOrStdout(), runs)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultRunsLimit, "Number of runs to show (1-200)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printJobs(w io.Writer, jobs []models.JobView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tNAME\tWATCH DIR\tPOLL\tENABLED\tSTATUS\tFILES\tNEXT RUN")
	for _, j := range jobs {
		next := "-"
		if j.NextRunAt != nil {
			next = j.NextRunAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%ds\t%t\t%s\t%d\t%s\n",
			j.JobID, j.Name, j.WatchDir, j.PollSeconds, j.Enabled, j.LastStatus, j.ProcessedFiles, next)
	}
	return tw.Flush()
}

func printRuns(w io.Writer, runs []models.RunRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tJOB\tTRIGGER\tSTARTED\tSTATUS\tSEEN\tPROCESSED\tERRORS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.RunID, r.JobName, r.TriggeredBy, r.StartedAt.Format(time.RFC3339), r.Status,
			r.FilesSeen, r.FilesProcessed, len(r.Errors))
	}
	return tw.Flush()
}
