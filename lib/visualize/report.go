package visualize

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"eventbrite-cetd/lib/csvio"
	"eventbrite-cetd/lib/textutil"
)

const (
	EventsPerMonthFile = "events_per_month.svg"
	AttendeesFile      = "attendees.svg"
	FrequentFile       = "frequent.svg"

	frequentLimit = 10
)

type reportRow struct {
	eventId   string
	eventName string
	start     time.Time
	hasStart  bool
	name      string
	email     string
}

func reportRows(table *csvio.Table) ([]reportRow, error) {
	columns := map[string]int{}
	for _, column := range []string{"event_id", "event_name", "event_start", "attendee_name", "email"} {
		i, err := columnIndex(table, column)
		if err != nil {
			return nil, err
		}
		columns[column] = i
	}

	rows := make([]reportRow, 0, len(table.Records))
	unparsed := 0
	for _, record := range table.Records {
		row := reportRow{
			eventId:   strings.TrimSpace(record[columns["event_id"]]),
			eventName: strings.TrimSpace(record[columns["event_name"]]),
			name:      textutil.NormalizeSpace(record[columns["attendee_name"]]),
			email:     record[columns["email"]],
		}
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(record[columns["event_start"]]))
		if err == nil {
			row.start = start.UTC()
			row.hasStart = true
		} else {
			unparsed++
		}
		rows = append(rows, row)
	}
	if unparsed > 0 {
		slog.Warn("rows without a valid event_start are left out of dated charts", "count", unparsed)
	}
	return rows, nil
}

// Report writes the events per month, attendees per event and frequent
// attendees charts into outputDir and returns the paths written.
func Report(inputPath, outputDir string) ([]string, error) {
	table, err := readTable(inputPath)
	if err != nil {
		return nil, err
	}
	rows, err := reportRows(table)
	if err != nil {
		return nil, err
	}

	var written []string
	write := func(name string, chart barChart) error {
		path := filepath.Join(outputDir, name)
		if err := chart.writeFile(path); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		slog.Info("chart saved", "path", path)
		written = append(written, path)
		return nil
	}

	months := eventsPerMonth(rows)
	if len(months) == 0 {
		slog.Warn("no dated events, skipping dated charts")
	} else {
		err = write(EventsPerMonthFile, barChart{
			title: "Total Number of Unique Events Per Month",
			yName: "Unique Events",
			bars:  months,
		})
		if err != nil {
			return written, err
		}

		year, perEvent := attendeesPerEvent(rows)
		slog.Info("analyzing attendees per event", "year", year)
		err = write(AttendeesFile, barChart{
			title:  fmt.Sprintf("Number of Attendees Per Event in %d", year),
			yName:  "Attendees",
			bars:   perEvent,
			rotate: true,
		})
		if err != nil {
			return written, err
		}
	}

	frequent := frequentAttendees(rows, frequentLimit)
	if len(frequent) == 0 {
		slog.Warn("no frequent attendee data to display, no valid names or emails found")
		return written, nil
	}
	err = write(FrequentFile, barChart{
		title:  "Top 10 Most Frequent Attendees (by Unique Events Attended)",
		yName:  "Unique Events Attended",
		bars:   frequent,
		rotate: true,
	})
	return written, err
}

// eventsPerMonth counts unique event ids per month of event_start, in
// chronological order.
func eventsPerMonth(rows []reportRow) []Bucket {
	events := map[time.Time]map[string]struct{}{}
	for _, row := range rows {
		if !row.hasStart {
			continue
		}
		month := time.Date(row.start.Year(), row.start.Month(), 1, 0, 0, 0, 0, time.UTC)
		if events[month] == nil {
			events[month] = map[string]struct{}{}
		}
		events[month][row.eventId] = struct{}{}
	}

	months := make([]time.Time, 0, len(events))
	for month := range events {
		months = append(months, month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	buckets := make([]Bucket, len(months))
	for i, month := range months {
		buckets[i] = Bucket{Label: month.Format("Jan 2006"), Count: len(events[month])}
	}
	return buckets
}

// attendeesPerEvent counts attendees per event in the latest year present.
func attendeesPerEvent(rows []reportRow) (int, []Bucket) {
	year := 0
	for _, row := range rows {
		if row.hasStart && row.start.Year() > year {
			year = row.start.Year()
		}
	}

	type event struct{ id, name string }
	counts := map[event]int{}
	for _, row := range rows {
		if !row.hasStart || row.start.Year() != year {
			continue
		}
		counts[event{id: row.eventId, name: row.eventName}]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for e, count := range counts {
		label := e.name
		if label == "" {
			label = blankLabel
		}
		buckets = append(buckets, Bucket{Label: label, Count: count})
	}
	sortBuckets(buckets)
	return year, buckets
}

// frequentAttendees ranks attendees by the number of unique events they
// attended. Emails are compared case-insensitively and withheld names or
// emails are ignored.
func frequentAttendees(rows []reportRow, limit int) []Bucket {
	type person struct{ name, email string }
	events := map[person]map[string]struct{}{}
	for _, row := range rows {
		if textutil.IsPlaceholder(row.name) || textutil.IsPlaceholder(row.email) {
			continue
		}
		p := person{name: row.name, email: textutil.NormalizeKey(row.email)}
		if events[p] == nil {
			events[p] = map[string]struct{}{}
		}
		events[p][row.eventId] = struct{}{}
	}

	buckets := make([]Bucket, 0, len(events))
	for p, attended := range events {
		buckets = append(buckets, Bucket{Label: p.name, Count: len(attended)})
	}
	sortBuckets(buckets)
	if len(buckets) > limit {
		buckets = buckets[:limit]
	}
	return buckets
}
