package attendee

// Columns is the header of every exported file, in order.
var Columns = []string{
	"organization_id",
	"event_id",
	"event_name",
	"event_start",
	"checked_in",
	"attendee_name",
	"email",
	"age",
	"gender",
	"cell_phone",
	"attendee_id",
	"order_id",
	"ticket_class",
	"status",
	"country",
}

type Field struct {
	Column string
	Value  string
}

// Row is one flattened attendee, fields are in column order.
type Row []Field

func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Column
	}
	return names
}

func (r Row) Values() []string {
	values := make([]string, len(r))
	for i, f := range r {
		values[i] = f.Value
	}
	return values
}

func (r Row) Get(column string) (string, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return "", false
}
