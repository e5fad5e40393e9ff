package commands

import (
	"context"
	"fmt"
	"os"

	"eventbrite-cetd/lib/config"
	"eventbrite-cetd/lib/debuginfo"
	"eventbrite-cetd/lib/telemetry"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var showVersion, showDebugInfo bool

	cmd := &cobra.Command{
		Use:   "eventbrite-cetd",
		Short: "eventbrite-cetd exports Eventbrite attendee data to CSV and charts it.",
		Long: "Command-line interface for the Eventbrite Attendee Exporter, fetches the attendees " +
			"of your organizations and exports them to a CSV file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.InitSlogWriter(cmd.ErrOrStderr(), opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case showVersion:
				fmt.Fprintf(out, "eventbrite-cetd version: %s\n", debuginfo.GetVersion())
				return nil
			case showDebugInfo:
				debuginfo.Print(out, debuginfo.Collect())
				return nil
			}
			return cmd.Help()
		},
	}

	cmd.Flags().BoolVarP(&showVersion, "version", "V", false, "Show version and exit.")
	cmd.Flags().BoolVarP(&showDebugInfo, "debug-info", "D", false, "Show debug information and exit.")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging.")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the json5 config file.")

	cmd.AddCommand(newGenerateCmd(opts), newVisualizeCmd())
	return cmd
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
