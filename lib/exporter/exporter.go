package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventbrite-cetd/lib/attendee"
	"eventbrite-cetd/lib/csvio"
	"eventbrite-cetd/lib/eventbrite"
	"eventbrite-cetd/lib/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const DefaultOutputFile = "data/attendees.csv"

var (
	tracer = telemetry.Tracer("eventbrite-cetd/lib/exporter")
	meter  = telemetry.Meter("eventbrite-cetd/lib/exporter")

	pagesCounter, _    = meter.Int64Counter("exporter.pages")
	exportedCounter, _ = meter.Int64Counter("exporter.attendees_exported")
	skippedCounter, _  = meter.Int64Counter("exporter.attendees_skipped")
)

type Options struct {
	OutputFile string
	// EventID exports a single event instead of every organization.
	EventID string
	// OrganizationID limits an organization export to one organization.
	OrganizationID string
	Flattener      attendee.Flattener
	Walk           eventbrite.WalkOptions
}

type ScopeResult struct {
	Scope    eventbrite.Scope
	Pages    int
	Exported int
	Skipped  int
}

type Result struct {
	RunID      string
	OutputFile string
	Scopes     []ScopeResult
	Exported   int
	Skipped    int
}

// Run exports the attendees of every selected scope into a single CSV file.
// Records that cannot be flattened are logged and skipped, any other error
// aborts the run without touching the output file.
func Run(ctx context.Context, api eventbrite.API, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "exporter.Run")
	defer span.End()

	if opts.OutputFile == "" {
		opts.OutputFile = DefaultOutputFile
	}
	result := Result{
		RunID:      uuid.NewString(),
		OutputFile: opts.OutputFile,
	}
	logger := slog.Default().With("run_id", result.RunID)

	scopes, err := resolveScopes(ctx, api, opts)
	if err != nil {
		return result, err
	}
	logger.InfoContext(ctx, "exporting attendees", "scopes", len(scopes), "output", opts.OutputFile)

	rows := &rowIterator{
		ctx:       ctx,
		api:       api,
		logger:    logger,
		flattener: opts.Flattener,
		walk:      opts.Walk,
		scopes:    scopes,
		results:   make([]ScopeResult, len(scopes)),
	}
	count, err := csvio.WriteFile(opts.OutputFile, rows, csvio.WriteOptions{
		EmptyHeader: attendee.Columns,
	})
	if err != nil {
		return result, fmt.Errorf("export attendees: %w", err)
	}

	result.Scopes = rows.results
	result.Exported = count
	for _, s := range rows.results {
		result.Skipped += s.Skipped
	}
	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("exported", result.Exported),
		attribute.Int("skipped", result.Skipped),
	)
	logger.InfoContext(ctx, "exported attendees",
		"exported", result.Exported,
		"skipped", result.Skipped,
		"output", opts.OutputFile,
	)
	return result, nil
}

func resolveScopes(ctx context.Context, api eventbrite.API, opts Options) ([]eventbrite.Scope, error) {
	if opts.EventID != "" {
		return []eventbrite.Scope{eventbrite.EventScope(opts.EventID)}, nil
	}

	orgs, err := eventbrite.ListOrganizations(ctx, api, opts.Walk)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "found organizations", "count", len(orgs))

	var scopes []eventbrite.Scope
	for _, org := range orgs {
		if opts.OrganizationID != "" && org.ID != opts.OrganizationID {
			continue
		}
		scopes = append(scopes, eventbrite.OrganizationScope(org))
	}
	if opts.OrganizationID != "" && len(scopes) == 0 {
		return nil, fmt.Errorf("organization %s is not accessible with this token", opts.OrganizationID)
	}
	return scopes, nil
}

// rowIterator walks each scope in turn and flattens its attendees,
// malformed records are dropped.
type rowIterator struct {
	ctx       context.Context
	api       eventbrite.API
	logger    *slog.Logger
	flattener attendee.Flattener
	walk      eventbrite.WalkOptions

	scopes  []eventbrite.Scope
	results []ScopeResult
	current int
	walker  *eventbrite.Walker[eventbrite.Attendee]
	row     attendee.Row
	err     error
}

func (it *rowIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.current < len(it.scopes) {
		scope := it.scopes[it.current]
		result := &it.results[it.current]
		if it.walker == nil {
			it.walker = eventbrite.WalkAttendees(it.api, scope, it.walk)
			result.Scope = scope
		}

		for it.walker.Next(it.ctx) {
			row, err := it.flattener.Flatten(it.walker.Item())
			var malformed *attendee.MalformedRecordError
			if errors.As(err, &malformed) {
				result.Skipped++
				skippedCounter.Add(it.ctx, 1, metric.WithAttributes(attribute.String("scope", scope.ID)))
				it.logger.WarnContext(it.ctx, "skipping attendee", "scope", scope.String(), "err", err)
				continue
			}
			if err != nil {
				it.err = err
				return false
			}
			it.row = row
			result.Exported++
			exportedCounter.Add(it.ctx, 1)
			return true
		}

		result.Pages = it.walker.Pages()
		pagesCounter.Add(it.ctx, int64(result.Pages))
		if err := it.walker.Err(); err != nil {
			it.err = fmt.Errorf("%s: %w", scope, err)
			return false
		}
		it.logger.InfoContext(it.ctx, "finished scope",
			"scope", scope.String(),
			"pages", result.Pages,
			"exported", result.Exported,
			"skipped", result.Skipped,
		)
		it.walker = nil
		it.current++
	}
	return false
}

func (it *rowIterator) Row() attendee.Row {
	return it.row
}

func (it *rowIterator) Err() error {
	return it.err
}
