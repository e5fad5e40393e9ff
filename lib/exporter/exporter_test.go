package exporter

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"eventbrite-cetd/lib/attendee"
	"eventbrite-cetd/lib/csvio"
	"eventbrite-cetd/lib/eventbrite"
	"eventbrite-cetd/lib/testutil"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var noDelay = eventbrite.WalkOptions{
	NewBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
}

func newClient(t *testing.T, fake *testutil.FakeEventbrite, token string) eventbrite.API {
	t.Helper()
	client, err := eventbrite.NewClient(eventbrite.ClientOptions{
		BaseUrl: fake.URL(),
		Token:   token,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestRunOrganizations(t *testing.T) {
	rndm := rand.New(rand.NewSource(7))
	fake := testutil.NewFakeEventbrite(t, "token")
	fake.AddOrganization("1", "Python Meetup")
	fake.AddOrganization("2", "Go Meetup")
	for range 3 {
		fake.AddAttendees(testutil.OrganizationAttendeesPath("1"), testutil.RandomAttendee(rndm, "10", "PyNight"))
	}
	fake.AddAttendees(testutil.OrganizationAttendeesPath("2"), testutil.RandomAttendee(rndm, "20", "GoNight"))

	output := filepath.Join(t.TempDir(), "data", "attendees.csv")
	result, err := Run(context.Background(), newClient(t, fake, "token"), Options{
		OutputFile: output,
		Walk:       noDelay,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Equal(t, 4, result.Exported)
	require.Equal(t, 0, result.Skipped)

	diff := cmp.Diff(
		[]ScopeResult{
			{Scope: eventbrite.OrganizationScope(eventbrite.Organization{ID: "1", Name: "Python Meetup"}), Pages: 2, Exported: 3},
			{Scope: eventbrite.OrganizationScope(eventbrite.Organization{ID: "2", Name: "Go Meetup"}), Pages: 1, Exported: 1},
		},
		result.Scopes,
	)
	if diff != "" {
		t.Fatal(diff)
	}

	table, err := csvio.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, attendee.Columns, table.Header)
	require.Len(t, table.Records, 4)
	events, _ := table.Column("event_name")
	require.Equal(t, []string{"PyNight", "PyNight", "PyNight", "GoNight"}, events)
}

func TestRunSingleEvent(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	path := testutil.EventAttendeesPath("99")
	fake.AddAttendees(path, testutil.Attendee("00123", map[string]any{"event_id": "99"}))

	output := filepath.Join(t.TempDir(), "attendees.csv")
	result, err := Run(context.Background(), newClient(t, fake, "token"), Options{
		OutputFile: output,
		EventID:    "99",
		Walk:       noDelay,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Exported)
	require.Equal(t, []string{path + "?expand=event"}, fake.Requests())

	table, err := csvio.ReadFile(output)
	require.NoError(t, err)
	ids, _ := table.Column("attendee_id")
	require.Equal(t, []string{"00123"}, ids)
}

func TestRunOrganizationFilter(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	fake.AddOrganization("1", "Python Meetup")
	fake.AddOrganization("2", "Go Meetup")
	fake.AddAttendees(testutil.OrganizationAttendeesPath("2"), testutil.Attendee("a", nil))
	client := newClient(t, fake, "token")
	dir := t.TempDir()

	result, err := Run(context.Background(), client, Options{
		OutputFile:     filepath.Join(dir, "attendees.csv"),
		OrganizationID: "2",
		Walk:           noDelay,
	})
	require.NoError(t, err)
	require.Len(t, result.Scopes, 1)
	require.Equal(t, "2", result.Scopes[0].Scope.ID)

	_, err = Run(context.Background(), client, Options{
		OutputFile:     filepath.Join(dir, "other.csv"),
		OrganizationID: "3",
		Walk:           noDelay,
	})
	require.Error(t, err)
}

func TestRunSkipsMalformed(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	path := testutil.EventAttendeesPath("5")
	fake.AddAttendees(path,
		testutil.Attendee("1", nil),
		testutil.Attendee("", map[string]any{"profile.name": "No Id"}),
		testutil.Attendee("3", nil),
	)

	output := filepath.Join(t.TempDir(), "attendees.csv")
	result, err := Run(context.Background(), newClient(t, fake, "token"), Options{
		OutputFile: output,
		EventID:    "5",
		Walk:       noDelay,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Exported)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 1, result.Scopes[0].Skipped)

	table, err := csvio.ReadFile(output)
	require.NoError(t, err)
	ids, _ := table.Column("attendee_id")
	require.Equal(t, []string{"1", "3"}, ids)
}

func TestRunNoAttendees(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	fake.AddAttendees(testutil.EventAttendeesPath("5"))

	output := filepath.Join(t.TempDir(), "attendees.csv")
	result, err := Run(context.Background(), newClient(t, fake, "token"), Options{
		OutputFile: output,
		EventID:    "5",
		Walk:       noDelay,
	})
	require.NoError(t, err)
	require.Equal(t, 0, result.Exported)

	table, err := csvio.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, attendee.Columns, table.Header)
	require.Empty(t, table.Records)
}

func TestRunFailureKeepsExistingFile(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		setup  func(f *testutil.FakeEventbrite)
		assert func(t *testing.T, err error)
	}{
		{
			name:  "authentication",
			token: "wrong",
			assert: func(t *testing.T, err error) {
				require.True(t, errors.Is(err, eventbrite.ErrAuthentication))
			},
		},
		{
			name:  "retries exhausted",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) {
				f.FailNext(testutil.EventAttendeesPath("5"),
					http.StatusInternalServerError,
					http.StatusInternalServerError,
					http.StatusInternalServerError,
				)
			},
			assert: func(t *testing.T, err error) {
				require.True(t, eventbrite.IsTransient(err))
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			fake := testutil.NewFakeEventbrite(t, "token")
			fake.AddAttendees(testutil.EventAttendeesPath("5"), testutil.Attendee("1", nil), testutil.Attendee("2", nil))
			if test.setup != nil {
				test.setup(fake)
			}

			dir := t.TempDir()
			output := filepath.Join(dir, "attendees.csv")
			require.NoError(t, os.WriteFile(output, []byte("previous\n"), 0644))

			_, err := Run(context.Background(), newClient(t, fake, test.token), Options{
				OutputFile: output,
				EventID:    "5",
				Walk:       noDelay,
			})
			require.Error(t, err)
			test.assert(t, err)

			contents, err := os.ReadFile(output)
			require.NoError(t, err)
			require.Equal(t, "previous\n", string(contents))
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, entries, 1)
		})
	}
}

func TestRunCancelled(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	fake.AddAttendees(testutil.EventAttendeesPath("5"), testutil.Attendee("1", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	output := filepath.Join(t.TempDir(), "attendees.csv")
	_, err := Run(ctx, newClient(t, fake, "token"), Options{
		OutputFile: output,
		EventID:    "5",
		Walk:       noDelay,
	})
	require.ErrorIs(t, err, context.Canceled)
	_, err = os.Stat(output)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

type stubAPI struct {
	pages []eventbrite.Page[eventbrite.Attendee]
	err   error
	calls int
}

func (s *stubAPI) FetchOrganizationsPage(ctx context.Context, cursor string) (eventbrite.Page[eventbrite.Organization], error) {
	return eventbrite.Page[eventbrite.Organization]{}, nil
}

func (s *stubAPI) FetchAttendeesPage(ctx context.Context, scope eventbrite.Scope, cursor string) (eventbrite.Page[eventbrite.Attendee], error) {
	s.calls++
	if s.calls > len(s.pages) {
		return eventbrite.Page[eventbrite.Attendee]{}, s.err
	}
	return s.pages[s.calls-1], nil
}

func TestRunFailsAfterFirstPage(t *testing.T) {
	api := &stubAPI{
		pages: []eventbrite.Page[eventbrite.Attendee]{{
			Items: []eventbrite.Attendee{
				eventbrite.NewAttendee([]byte(`{"id": "1"}`)),
				eventbrite.NewAttendee([]byte(`{"id": "2"}`)),
			},
			Next: "cursor-2",
		}},
		err: &eventbrite.ProtocolError{Path: "/events/5/attendees/", Reason: "missing pagination object"},
	}

	dir := t.TempDir()
	output := filepath.Join(dir, "attendees.csv")
	_, err := Run(context.Background(), api, Options{
		OutputFile: output,
		EventID:    "5",
		Walk:       noDelay,
	})
	var protocolErr *eventbrite.ProtocolError
	require.True(t, errors.As(err, &protocolErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
