package attendee

import (
	"fmt"
	"strings"

	"eventbrite-cetd/lib/eventbrite"

	"github.com/biter777/countries"
	"github.com/tidwall/gjson"
	"github.com/ttacon/libphonenumber"
)

const DefaultPhoneRegion = "US"

// MalformedRecordError is returned for records that cannot be flattened,
// they are skipped by the exporter.
type MalformedRecordError struct {
	// AttendeeID is empty when the record has no id.
	AttendeeID string
	Reason     string
}

func (e *MalformedRecordError) Error() string {
	if e.AttendeeID == "" {
		return fmt.Sprintf("malformed attendee record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed attendee record %s: %s", e.AttendeeID, e.Reason)
}

type column struct {
	name   string
	paths  []string
	format func(f Flattener, value string) string
}

var columns = []column{
	{name: "organization_id", paths: []string{"event.organization_id"}},
	{name: "event_id", paths: []string{"event_id", "event.id"}},
	{name: "event_name", paths: []string{"event.name.text"}},
	{name: "event_start", paths: []string{"event.start.utc"}},
	{name: "checked_in", paths: []string{"checked_in"}},
	{name: "attendee_name", paths: []string{"profile.name"}},
	{name: "email", paths: []string{"profile.email"}},
	{name: "age", paths: []string{"profile.age"}},
	{name: "gender", paths: []string{"profile.gender"}},
	{name: "cell_phone", paths: []string{"profile.cell_phone"}, format: Flattener.formatPhone},
	{name: "attendee_id", paths: []string{"id"}},
	{name: "order_id", paths: []string{"order_id"}},
	{name: "ticket_class", paths: []string{"ticket_class_name"}},
	{name: "status", paths: []string{"status"}},
	{name: "country", paths: []string{"profile.addresses.home.country"}, format: Flattener.formatCountry},
}

// Flattener turns raw attendee records into rows over Columns. The zero
// value parses phone numbers as DefaultPhoneRegion.
type Flattener struct {
	PhoneRegion string
}

func (f Flattener) Flatten(rec eventbrite.Attendee) (Row, error) {
	raw := rec.Raw()
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, &MalformedRecordError{Reason: "not a JSON object"}
	}
	id := rec.Get("id")
	if !id.Exists() || strings.TrimSpace(id.String()) == "" {
		return nil, &MalformedRecordError{Reason: "missing id"}
	}

	row := make(Row, len(columns))
	for i, col := range columns {
		value := lookup(rec, col.paths)
		if col.format != nil && value != "" {
			value = col.format(f, value)
		}
		row[i] = Field{Column: col.name, Value: value}
	}
	return row, nil
}

// lookup returns the first path with a non-null value, null and missing
// fields are empty.
func lookup(rec eventbrite.Attendee, paths []string) string {
	for _, path := range paths {
		res := rec.Get(path)
		if !res.Exists() || res.Type == gjson.Null {
			continue
		}
		return res.String()
	}
	return ""
}

func (f Flattener) region() string {
	if f.PhoneRegion == "" {
		return DefaultPhoneRegion
	}
	return strings.ToUpper(f.PhoneRegion)
}

// formatPhone normalizes to E.164, numbers that don't parse are kept as given.
func (f Flattener) formatPhone(number string) string {
	number = strings.TrimSpace(number)
	num, err := libphonenumber.Parse(number, f.region())
	if err != nil {
		return number
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

func (f Flattener) formatCountry(code string) string {
	code = strings.TrimSpace(code)
	c := countries.ByName(code) // matches Alpha-2 / Alpha-3 / Name
	if c == countries.Unknown {
		return code
	}
	return c.String()
}
