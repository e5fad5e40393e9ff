package eventbrite

import (
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
)

type Organization struct {
	ID   string
	Name string
}

// Attendee is a raw attendee object as returned by the attendee list
// endpoints (requested with expand=event). It is immutable once fetched.
type Attendee struct {
	raw []byte
}

func NewAttendee(raw []byte) Attendee {
	return Attendee{raw: append([]byte(nil), raw...)}
}

// Raw returns the JSON of the record, it must not be modified.
func (a Attendee) Raw() []byte {
	return a.raw
}

// Get reads a gjson path from the record, ex. `profile.email`.
func (a Attendee) Get(path string) gjson.Result {
	return gjson.GetBytes(a.raw, path)
}

func (a Attendee) ID() string {
	return a.Get("id").String()
}

type ScopeKind int

const (
	ScopeEvent ScopeKind = iota
	ScopeOrganization
)

// Scope identifies which attendee list is walked.
type Scope struct {
	Kind ScopeKind
	ID   string
	// Name is only used for display.
	Name string
}

func EventScope(eventId string) Scope {
	return Scope{Kind: ScopeEvent, ID: eventId}
}

func OrganizationScope(org Organization) Scope {
	return Scope{Kind: ScopeOrganization, ID: org.ID, Name: org.Name}
}

func (s Scope) attendeesPath() string {
	id := url.PathEscape(s.ID)
	switch s.Kind {
	case ScopeOrganization:
		return fmt.Sprintf("/organizations/%s/attendees/", id)
	default:
		return fmt.Sprintf("/events/%s/attendees/", id)
	}
}

func (s Scope) String() string {
	kind := "event"
	if s.Kind == ScopeOrganization {
		kind = "organization"
	}
	if s.Name != "" {
		return fmt.Sprintf("%s %s (%s)", kind, s.Name, s.ID)
	}
	return fmt.Sprintf("%s %s", kind, s.ID)
}

// Page is one response of a paginated list. An empty Next means that
// there are no more pages.
type Page[T any] struct {
	Items []T
	Next  string
}
