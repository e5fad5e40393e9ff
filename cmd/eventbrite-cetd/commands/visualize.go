package commands

import (
	"fmt"

	"eventbrite-cetd/lib/visualize"

	"github.com/spf13/cobra"
)

type visualizeOptions struct {
	inputFile  string
	outputFile string
	groupBy    string
	limit      int
	reportDir  string
}

func newVisualizeCmd() *cobra.Command {
	opts := &visualizeOptions{}
	cmd := &cobra.Command{
		Use:   "visualize [--input-file <path>] [--output-file <path>] [--group-by <column>]",
		Short: "Render charts from an exported attendee CSV.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := opts.outputFile
			if output == "" {
				output = visualize.DefaultOutputFile(opts.groupBy)
			}
			err := visualize.Visualize(opts.inputFile, output, visualize.Options{
				GroupBy: opts.groupBy,
				Limit:   opts.limit,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chart saved to %s\n", output)

			if opts.reportDir == "" {
				return nil
			}
			written, err := visualize.Report(opts.inputFile, opts.reportDir)
			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "Chart saved to %s\n", path)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.inputFile, "input-file", visualize.DefaultInputFile, "Path to the attendee CSV file.")
	cmd.Flags().StringVar(&opts.outputFile, "output-file", "", "Path to the SVG chart, defaults to output/attendees_by_<group-by>.svg.")
	cmd.Flags().StringVar(&opts.groupBy, "group-by", visualize.DefaultGroupBy, "Column to count attendees by.")
	cmd.Flags().IntVar(&opts.limit, "limit", visualize.DefaultLimit, "Maximum number of bars.")
	cmd.Flags().StringVar(&opts.reportDir, "report-dir", "", "Also write the events per month, attendees per event and frequent attendees charts to this directory.")
	return cmd
}
