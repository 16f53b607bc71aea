package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clocksim/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Experiment  string
	Scenario    string
	Rates       []int
	Probability float64
	Duration    time.Duration
	BasePort    int
	Nodes       int
	RunID       string
	Clean       bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run simulation experiments",
		Long: `Run one or more experiments. Without flags, the full built-in catalog
of fifteen experiments runs back to back. A single catalog entry, an
ad-hoc parameter set, or a YAML scenario file narrow that down.

Examples:
  clocksim run --experiment 4 --duration 60s
  clocksim run --rates 1,3,6 --probability 0.9 --duration 30s
  clocksim run --scenario sweep.yaml`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiments(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Experiment, "experiment", "", "catalog experiment to run (1-15)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "YAML scenario file to run instead of the catalog")
	cmd.Flags().IntSliceVar(&opts.Rates, "rates", nil, "explicit tick rates, one per node")
	cmd.Flags().Float64Var(&opts.Probability, "probability", 0, "override communication probability")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 60*time.Second, "duration of each experiment")
	cmd.Flags().IntVar(&opts.BasePort, "base-port", 5001, "first node port; node i listens on base-port+i")
	cmd.Flags().IntVar(&opts.Nodes, "nodes", 0, "node count when an experiment leaves tick rates unset (default 3)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run identifier (default: experiment name)")
	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "remove all old event logs first")

	return cmd
}

func runExperiments(cmd *cobra.Command, opts *RunOptions) error {
	if opts.Clean {
		if err := sim.CleanLogs(opts.LogDir, ""); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All log files cleaned.")
	}

	experiments, err := selectExperiments(opts)
	if err != nil {
		return err
	}
	if len(experiments) == 0 {
		// --clean with nothing to run is a valid invocation.
		return nil
	}

	if cmd.Flags().Changed("probability") {
		if opts.Probability < 0 || opts.Probability > 1 {
			return fmt.Errorf("probability %g outside [0,1]", opts.Probability)
		}
		for i := range experiments {
			experiments[i].CommProbability = opts.Probability
		}
	}

	// Ctrl-C stops the current experiment gracefully: nodes still close
	// their sockets and log their final clocks.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, exp := range experiments {
		res, err := sim.Run(ctx, exp, sim.Options{
			LogDir:   opts.LogDir,
			BasePort: opts.BasePort,
			Nodes:    opts.Nodes,
			Duration: opts.Duration,
			RunID:    opts.RunID,
		})
		if err != nil {
			return fmt.Errorf("experiment %s: %w", exp.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s complete: rates %v, final clocks %v\n",
			res.RunID, res.TickRates, res.FinalClocks)
		if ctx.Err() != nil {
			break
		}
	}
	return nil
}

func selectExperiments(opts *RunOptions) ([]sim.Experiment, error) {
	switch {
	case opts.Scenario != "":
		s, err := sim.LoadScenario(opts.Scenario)
		if err != nil {
			return nil, err
		}
		return s.Experiments, nil
	case len(opts.Rates) > 0:
		name := opts.RunID
		if name == "" {
			name = "adhoc"
		}
		return []sim.Experiment{{Name: name, TickRates: opts.Rates}}, nil
	case opts.Experiment != "":
		e, err := sim.CatalogExperiment(opts.Experiment)
		if err != nil {
			return nil, err
		}
		return []sim.Experiment{e}, nil
	case opts.Clean:
		return nil, nil
	default:
		return append([]sim.Experiment(nil), sim.Catalog...), nil
	}
}
