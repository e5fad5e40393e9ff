package eventbrite

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"eventbrite-cetd/lib/testutil"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, fake *testutil.FakeEventbrite, token string) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		BaseUrl: fake.URL(),
		Token:   token,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(ClientOptions{Token: " "})
	require.True(t, errors.Is(err, ErrAuthentication))
}

func TestListOrganizations(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	fake.AddOrganization("1", "Python Meetup")
	fake.AddOrganization("2", "Go Meetup")
	fake.AddOrganization("3", "Rust Meetup")
	client := newTestClient(t, fake, "token")

	orgs, err := ListOrganizations(context.Background(), client, WalkOptions{})
	require.NoError(t, err)
	require.Equal(t, []Organization{
		{ID: "1", Name: "Python Meetup"},
		{ID: "2", Name: "Go Meetup"},
		{ID: "3", Name: "Rust Meetup"},
	}, orgs)
	require.Equal(t, []string{
		"/users/me/organizations/?",
		"/users/me/organizations/?continuation=cursor-2",
	}, fake.Requests())
}

func TestFetchAttendeesPage(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	path := testutil.EventAttendeesPath("100")
	fake.AddAttendees(path,
		testutil.Attendee("a1", map[string]any{"profile.name": "Ada"}),
		testutil.Attendee("a2", map[string]any{"profile.name": "Grace"}),
		testutil.Attendee("a3", map[string]any{"profile.name": "Linus"}),
	)
	client := newTestClient(t, fake, "token")
	ctx := context.Background()

	page, err := client.FetchAttendeesPage(ctx, EventScope("100"), "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, "a1", page.Items[0].ID())
	require.Equal(t, "Grace", page.Items[1].Get("profile.name").String())
	require.Equal(t, "cursor-2", page.Next)

	page, err = client.FetchAttendeesPage(ctx, EventScope("100"), page.Next)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "a3", page.Items[0].ID())
	require.Equal(t, "", page.Next)

	require.Equal(t, []string{
		path + "?expand=event",
		path + "?continuation=cursor-2&expand=event",
	}, fake.Requests())
}

func TestFetchAttendeesPageEmptyScope(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	client := newTestClient(t, fake, "token")

	_, err := client.FetchAttendeesPage(context.Background(), EventScope(""), "")
	require.Error(t, err)
	require.Empty(t, fake.Requests())
}

func TestClientErrorClassification(t *testing.T) {
	path := testutil.OrganizationAttendeesPath("7")

	cases := []struct {
		name   string
		token  string
		setup  func(f *testutil.FakeEventbrite)
		assert func(t *testing.T, err error)
	}{
		{
			name:  "invalid token",
			token: "wrong",
			assert: func(t *testing.T, err error) {
				require.True(t, errors.Is(err, ErrAuthentication))
				var authErr *AuthenticationError
				require.True(t, errors.As(err, &authErr))
				require.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
				require.Contains(t, authErr.Description, "OAuth token")
			},
		},
		{
			name:  "forbidden",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) { f.FailNext(path, http.StatusForbidden) },
			assert: func(t *testing.T, err error) {
				require.True(t, errors.Is(err, ErrAuthentication))
			},
		},
		{
			name:  "server error",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) { f.FailNext(path, http.StatusBadGateway) },
			assert: func(t *testing.T, err error) {
				var transient *TransientError
				require.True(t, errors.As(err, &transient))
				require.Equal(t, http.StatusBadGateway, transient.StatusCode)
			},
		},
		{
			name:  "rate limited",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) { f.FailNext(path, http.StatusTooManyRequests) },
			assert: func(t *testing.T, err error) {
				require.True(t, IsTransient(err))
			},
		},
		{
			name:  "not found",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) { f.FailNext(path, http.StatusNotFound) },
			assert: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
				require.Equal(t, "FAILURE", apiErr.Code)
				require.False(t, IsTransient(err))
			},
		},
		{
			name:  "invalid json",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) { f.RespondNext(path, `{"attendees": [`) },
			assert: func(t *testing.T, err error) {
				var protocolErr *ProtocolError
				require.True(t, errors.As(err, &protocolErr))
				require.Equal(t, path, protocolErr.Path)
			},
		},
		{
			name:  "missing pagination",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) { f.RespondNext(path, `{"attendees": []}`) },
			assert: func(t *testing.T, err error) {
				var protocolErr *ProtocolError
				require.True(t, errors.As(err, &protocolErr))
				require.Contains(t, protocolErr.Reason, "pagination")
			},
		},
		{
			name:  "attendees not a list",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) {
				f.RespondNext(path, `{"attendees": {}, "pagination": {"has_more_items": false}}`)
			},
			assert: func(t *testing.T, err error) {
				var protocolErr *ProtocolError
				require.True(t, errors.As(err, &protocolErr))
			},
		},
		{
			name:  "more items without continuation",
			token: "token",
			setup: func(f *testutil.FakeEventbrite) {
				f.RespondNext(path, `{"attendees": [], "pagination": {"has_more_items": true}}`)
			},
			assert: func(t *testing.T, err error) {
				var protocolErr *ProtocolError
				require.True(t, errors.As(err, &protocolErr))
				require.Contains(t, protocolErr.Reason, "continuation")
			},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			fake := testutil.NewFakeEventbrite(t, "token")
			fake.AddAttendees(path)
			if test.setup != nil {
				test.setup(fake)
			}
			client := newTestClient(t, fake, test.token)

			_, err := client.FetchAttendeesPage(
				context.Background(),
				OrganizationScope(Organization{ID: "7"}),
				"",
			)
			require.Error(t, err)
			test.assert(t, err)
		})
	}
}

func TestMissingAttendeesKeyIsEmptyPage(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	path := testutil.EventAttendeesPath("1")
	fake.RespondNext(path, `{"pagination": {"has_more_items": false}}`)
	client := newTestClient(t, fake, "token")

	page, err := client.FetchAttendeesPage(context.Background(), EventScope("1"), "")
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Empty(t, page.Next)
}

func TestWalkAttendeesRetriesServerErrors(t *testing.T) {
	fake := testutil.NewFakeEventbrite(t, "token")
	path := testutil.EventAttendeesPath("100")
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		fake.AddAttendees(path, testutil.Attendee(id, nil))
	}
	fake.FailNext(path, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	client := newTestClient(t, fake, "token")

	w := WalkAttendees(client, EventScope("100"), noDelay)
	var ids []string
	for w.Next(context.Background()) {
		ids = append(ids, w.Item().ID())
	}
	require.NoError(t, w.Err())
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	// 2 failures + 3 pages
	require.Len(t, fake.Requests(), 5)
}
