package visualize

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"eventbrite-cetd/lib/csvio"

	"github.com/antzucaro/matchr"
	"github.com/iancoleman/strcase"
)

const (
	DefaultGroupBy   = "event_name"
	DefaultLimit     = 20
	DefaultInputFile = "data/attendees.csv"
	blankLabel       = "(blank)"
)

var (
	ErrFileNotFound = csvio.ErrFileNotFound
	ErrEmptyData    = errors.New("no attendee rows to visualize")
)

// UnknownColumnError is returned when a column is not in the input header.
type UnknownColumnError struct {
	Column string
	// Suggestion is the closest existing column, if any is close enough.
	Suggestion string
}

func (e *UnknownColumnError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("unknown column %q", e.Column)
	}
	return fmt.Sprintf("unknown column %q, did you mean %q?", e.Column, e.Suggestion)
}

type Options struct {
	// GroupBy is normalized with NormalizeColumn, empty means DefaultGroupBy.
	GroupBy string
	// Limit <= 0 means DefaultLimit.
	Limit int
}

// NormalizeColumn maps user spellings of a column to its header name,
// ex. "Event Name" and "eventName" become "event_name".
func NormalizeColumn(name string) string {
	return strcase.ToSnake(strings.TrimSpace(name))
}

// DefaultOutputFile is the chart path used when none is given.
func DefaultOutputFile(groupBy string) string {
	if groupBy == "" {
		groupBy = DefaultGroupBy
	}
	return fmt.Sprintf("output/attendees_by_%s.svg", NormalizeColumn(groupBy))
}

const suggestionThreshold = 0.7

func columnIndex(table *csvio.Table, column string) (int, error) {
	i := table.Index(column)
	if i >= 0 {
		return i, nil
	}

	unknown := &UnknownColumnError{Column: column}
	best := 0.0
	for _, candidate := range table.Header {
		similarity := matchr.JaroWinkler(column, candidate, false)
		if similarity > best && similarity >= suggestionThreshold {
			best = similarity
			unknown.Suggestion = candidate
		}
	}
	return -1, unknown
}

// CountBy counts the rows of table per value of column, blank values are
// counted under "(blank)".
func CountBy(table *csvio.Table, column string) ([]Bucket, error) {
	i, err := columnIndex(table, column)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, record := range table.Records {
		label := strings.TrimSpace(record[i])
		if label == "" {
			label = blankLabel
		}
		counts[label]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, Bucket{Label: label, Count: count})
	}
	sortBuckets(buckets)
	return buckets, nil
}

func readTable(inputPath string) (*csvio.Table, error) {
	table, err := csvio.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}
	if len(table.Records) == 0 {
		return nil, fmt.Errorf("%s: %w", inputPath, ErrEmptyData)
	}
	return table, nil
}

// Visualize renders a bar chart of the number of attendees per value of
// opts.GroupBy in the CSV at inputPath to an SVG at outputPath.
func Visualize(inputPath, outputPath string, opts Options) error {
	groupBy := NormalizeColumn(opts.GroupBy)
	if groupBy == "" {
		groupBy = DefaultGroupBy
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	table, err := readTable(inputPath)
	if err != nil {
		return err
	}
	buckets, err := CountBy(table, groupBy)
	if err != nil {
		return err
	}
	if len(buckets) > limit {
		slog.Debug("truncating chart", "groups", len(buckets), "limit", limit)
		buckets = buckets[:limit]
	}

	chart := barChart{
		title:  fmt.Sprintf("Attendees by %s", groupBy),
		yName:  "Attendees",
		bars:   buckets,
		rotate: true,
	}
	err = chart.writeFile(outputPath)
	if err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	slog.Info("chart saved", "path", outputPath, "bars", len(buckets))
	return nil
}
