package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/sjson"
)

// FakeEventbrite serves the list endpoints of the Eventbrite API used by
// the exporter from in-memory fixtures.
type FakeEventbrite struct {
	Token    string
	PageSize int

	server   *httptest.Server
	lock     sync.Mutex
	lists    map[string][]string
	failures map[string][]int
	bodies   map[string][]string
	requests []string
}

func NewFakeEventbrite(t testing.TB, token string) *FakeEventbrite {
	t.Helper()
	f := &FakeEventbrite{
		Token:    token,
		PageSize: 2,
		lists:    map[string][]string{},
		failures: map[string][]int{},
		bodies:   map[string][]string{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *FakeEventbrite) URL() string {
	return f.server.URL
}

func OrganizationsPath() string {
	return "/users/me/organizations/"
}

func OrganizationAttendeesPath(orgId string) string {
	return fmt.Sprintf("/organizations/%s/attendees/", orgId)
}

func EventAttendeesPath(eventId string) string {
	return fmt.Sprintf("/events/%s/attendees/", eventId)
}

func (f *FakeEventbrite) AddOrganization(id, name string) {
	org, _ := sjson.Set(`{}`, "id", id)
	org, _ = sjson.Set(org, "name", name)
	f.add(OrganizationsPath(), org)
}

// AddAttendees appends raw attendee objects to the list served at `path`.
func (f *FakeEventbrite) AddAttendees(path string, attendees ...string) {
	f.add(path, attendees...)
}

func (f *FakeEventbrite) add(path string, items ...string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.lists[path] = append(f.lists[path], items...)
}

// FailNext makes the next requests to `path` fail with the given statuses, in order.
func (f *FakeEventbrite) FailNext(path string, statuses ...int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failures[path] = append(f.failures[path], statuses...)
}

// RespondNext makes the next requests to `path` return the given raw bodies with status 200.
func (f *FakeEventbrite) RespondNext(path string, bodies ...string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.bodies[path] = append(f.bodies[path], bodies...)
}

// Requests returns "<path>?<query>" of every request received.
func (f *FakeEventbrite) Requests() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.requests...)
}

func writeJson(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func errorBody(status int, code, description string) string {
	body, _ := sjson.Set(`{}`, "status_code", status)
	body, _ = sjson.Set(body, "error", code)
	body, _ = sjson.Set(body, "error_description", description)
	return body
}

func (f *FakeEventbrite) handle(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()

	path := r.URL.Path
	f.requests = append(f.requests, fmt.Sprintf("%s?%s", path, r.URL.RawQuery))

	if r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeJson(w, http.StatusUnauthorized, errorBody(
			http.StatusUnauthorized, "INVALID_AUTH", "The OAuth token you provided was invalid.",
		))
		return
	}

	if pending := f.failures[path]; len(pending) > 0 {
		f.failures[path] = pending[1:]
		writeJson(w, pending[0], errorBody(pending[0], "FAILURE", http.StatusText(pending[0])))
		return
	}
	if pending := f.bodies[path]; len(pending) > 0 {
		f.bodies[path] = pending[1:]
		writeJson(w, http.StatusOK, pending[0])
		return
	}

	items, ok := f.lists[path]
	if !ok {
		writeJson(w, http.StatusNotFound, errorBody(
			http.StatusNotFound, "NOT_FOUND", "The path you requested does not exist.",
		))
		return
	}

	offset := 0
	if cursor := r.URL.Query().Get("continuation"); cursor != "" {
		parsed, err := strconv.Atoi(strings.TrimPrefix(cursor, "cursor-"))
		if err != nil || parsed > len(items) {
			writeJson(w, http.StatusBadRequest, errorBody(
				http.StatusBadRequest, "BAD_CONTINUATION", "invalid continuation",
			))
			return
		}
		offset = parsed
	}
	end := min(offset+f.PageSize, len(items))

	key := "attendees"
	if path == OrganizationsPath() {
		key = "organizations"
	}
	body, _ := sjson.SetRaw(`{}`, key, "[]")
	for _, item := range items[offset:end] {
		body, _ = sjson.SetRaw(body, key+".-1", item)
	}
	body, _ = sjson.Set(body, "pagination.object_count", len(items))
	body, _ = sjson.Set(body, "pagination.has_more_items", end < len(items))
	if end < len(items) {
		body, _ = sjson.Set(body, "pagination.continuation", fmt.Sprintf("cursor-%d", end))
	}
	writeJson(w, http.StatusOK, body)
}

// Attendee builds an attendee object from gjson style paths, ex.
// Attendee("a1", map[string]any{"profile.email": "a@example.com"}).
func Attendee(id string, fields map[string]any) string {
	out := `{}`
	if id != "" {
		out, _ = sjson.Set(out, "id", id)
	}
	for path, value := range fields {
		var err error
		out, err = sjson.Set(out, path, value)
		if err != nil {
			panic(err)
		}
	}
	return out
}
