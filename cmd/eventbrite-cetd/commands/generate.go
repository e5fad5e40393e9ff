package commands

import (
	"fmt"
	"io"
	"log/slog"

	"eventbrite-cetd/lib/attendee"
	"eventbrite-cetd/lib/config"
	"eventbrite-cetd/lib/eventbrite"
	"eventbrite-cetd/lib/exporter"
	"eventbrite-cetd/lib/restyutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	outputFile     string
	eventId        string
	organizationId string
	dumpHttp       string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [--output-file <path>] [--event-id <id>] [--organization-id <id>]",
		Short: "Fetch and export Eventbrite attendee data.",
		Long: "Fetches the attendees of every organization the token's user belongs to, or of a " +
			"single event with --event-id, and writes them to a CSV file. The token is read from " +
			"the " + config.TokenEnv + " environment variable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.outputFile, "output-file", exporter.DefaultOutputFile, "Path to the output CSV file.")
	cmd.Flags().StringVar(&opts.eventId, "event-id", "", "Export a single event instead of every organization.")
	cmd.Flags().StringVar(&opts.organizationId, "organization-id", "", "Only export this organization.")
	cmd.Flags().StringVar(&opts.dumpHttp, "dump-http", "", "Write every HTTP request and response to this directory.")
	cmd.MarkFlagsMutuallyExclusive("event-id", "organization-id")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	token, err := config.Token()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var output restyutil.InstrumentOutput
	if opts.dumpHttp != "" {
		fsOutput, err := restyutil.NewFilesystemOutput(opts.dumpHttp)
		if err != nil {
			return err
		}
		output = fsOutput
		slog.Info("dumping http messages", "dir", opts.dumpHttp)
	}

	client, err := eventbrite.NewClient(eventbrite.ClientOptions{
		BaseUrl:           cfg.BaseUrl,
		Token:             token,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		InstrumentOutput:  output,
	})
	if err != nil {
		return err
	}

	result, err := exporter.Run(cmd.Context(), client, exporter.Options{
		OutputFile:     opts.outputFile,
		EventID:        opts.eventId,
		OrganizationID: opts.organizationId,
		Flattener:      attendee.Flattener{PhoneRegion: cfg.PhoneRegion},
		Walk:           eventbrite.WalkOptions{MaxAttempts: cfg.MaxAttempts},
	})
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), result)
	fmt.Fprintf(cmd.OutOrStdout(), "Attendee data export completed successfully! (%s)\n", result.OutputFile)
	return nil
}

func printSummary(w io.Writer, result exporter.Result) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Scope", "Pages", "Attendees", "Skipped"})
	for _, s := range result.Scopes {
		t.AppendRow(table.Row{s.Scope.String(), s.Pages, s.Exported, s.Skipped})
	}
	t.AppendFooter(table.Row{"Total", "", result.Exported, result.Skipped})
	t.Render()
}
