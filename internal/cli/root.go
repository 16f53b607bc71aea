package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	LogDir  string
}

// NewRootCommand creates the root command for the clocksim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "clocksim",
		Short: "Lamport logical clock simulation",
		Long: `clocksim runs small sets of asynchronous nodes at skewed tick rates,
exchanging clock values over TCP, to study Lamport logical clock behavior
under varying message rates and clock-rate skew.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose diagnostics")
	cmd.PersistentFlags().StringVar(&opts.LogDir, "log-dir", "logs", "directory for per-node event logs")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewAnalyzeCommand(opts))

	return cmd
}
