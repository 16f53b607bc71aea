package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"clocksim/internal/analysis"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions

	Run string
	DB  string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize the event logs of a finished run",
		Long: `Parse a run's per-node event logs, print event-mix, clock-jump and
queue-pressure statistics, and optionally persist the parsed events
into a SQLite database for ad-hoc querying.

Example:
  clocksim analyze --run 4 --db runs.db`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return analyzeRun(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Run, "run", "", "run identifier to analyze (required)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "also store parsed events in this SQLite database")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func analyzeRun(cmd *cobra.Command, opts *AnalyzeOptions) error {
	logs, err := analysis.LoadRunRecords(opts.LogDir, opts.Run)
	if err != nil {
		return err
	}

	stats := analysis.ComputeRun(opts.Run, logs)
	fmt.Fprint(cmd.OutOrStdout(), analysis.RenderText(stats))

	if opts.DB != "" {
		store, err := analysis.OpenStore(opts.DB)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.InsertRun(opts.Run, logs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nStored %d node logs under run %s in %s\n",
			len(logs), opts.Run, opts.DB)
	}
	return nil
}
