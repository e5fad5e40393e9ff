package eventbrite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventbrite-cetd/lib/restyutil"
	"eventbrite-cetd/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://www.eventbriteapi.com/v3"

// API is the part of the Eventbrite REST API the exporter depends on.
type API interface {
	// FetchOrganizationsPage returns one page of the organizations the token's user belongs to.
	FetchOrganizationsPage(ctx context.Context, cursor string) (Page[Organization], error)
	// FetchAttendeesPage returns one page of attendees of a scope, an empty cursor
	// fetches the first page.
	FetchAttendeesPage(ctx context.Context, scope Scope, cursor string) (Page[Attendee], error)
}

type ClientOptions struct {
	BaseUrl string
	Token   string
	Timeout time.Duration
	// RequestsPerSecond <= 0 disables client side rate limiting.
	RequestsPerSecond float64
	// InstrumentOutput receives full HTTP message dumps when set.
	InstrumentOutput restyutil.InstrumentOutput
}

// Client implements API with resty, it holds no state between calls
// other than the rate limiter.
type Client struct {
	http *resty.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, &AuthenticationError{Description: "no API token provided"}
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetAuthToken(opts.Token)
	httpClient.SetHeader("accept", "application/json")

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	// burst of 1 keeps requests evenly spaced
	rateLimiter := rate.NewLimiter(limit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	restyutil.InstrumentClient(
		httpClient,
		telemetry.Tracer("eventbrite-cetd/lib/eventbrite/http"),
		opts.InstrumentOutput,
	)

	return &Client{http: httpClient}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransientError{Err: err}
	}

	code := res.StatusCode()
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		_, description := describeError(res)
		return nil, &AuthenticationError{StatusCode: code, Description: description}
	case code == http.StatusTooManyRequests || code >= 500:
		_, description := describeError(res)
		return nil, &TransientError{StatusCode: code, Err: errors.New(description)}
	case code < 200 || code >= 300:
		errCode, description := describeError(res)
		return nil, &APIError{StatusCode: code, Code: errCode, Description: description}
	}

	return res.Body(), nil
}

// describeError reads the error body eventbrite sends with failed requests:
// {"status_code": 404, "error": "NOT_FOUND", "error_description": "..."}
func describeError(res *resty.Response) (string, string) {
	body := res.Body()
	if !gjson.ValidBytes(body) {
		return "", res.Status()
	}
	code := gjson.GetBytes(body, "error").String()
	description := gjson.GetBytes(body, "error_description").String()
	if description == "" {
		description = res.Status()
	}
	return code, description
}

// decodePage validates the common shape of list responses and returns the
// elements of the list under `key` along with the next cursor.
func decodePage(path string, body []byte, key string) ([]gjson.Result, string, error) {
	if !gjson.ValidBytes(body) {
		return nil, "", &ProtocolError{Path: path, Reason: "response is not valid JSON"}
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, "", &ProtocolError{Path: path, Reason: "response is not a JSON object"}
	}

	pagination := doc.Get("pagination")
	if !pagination.IsObject() {
		return nil, "", &ProtocolError{Path: path, Reason: "missing pagination object"}
	}

	var items []gjson.Result
	list := doc.Get(key)
	if list.Exists() && list.Type != gjson.Null {
		if !list.IsArray() {
			return nil, "", &ProtocolError{Path: path, Reason: fmt.Sprintf("%q is not a list", key)}
		}
		items = list.Array()
	}

	if !pagination.Get("has_more_items").Bool() {
		return items, "", nil
	}
	next := pagination.Get("continuation").String()
	if next == "" {
		return nil, "", &ProtocolError{Path: path, Reason: "has_more_items is set without a continuation"}
	}
	return items, next, nil
}

func pageQuery(cursor string) url.Values {
	query := url.Values{}
	if cursor != "" {
		query.Set("continuation", cursor)
	}
	return query
}

func (c *Client) FetchOrganizationsPage(ctx context.Context, cursor string) (Page[Organization], error) {
	const path = "/users/me/organizations/"

	body, err := c.get(ctx, path, pageQuery(cursor))
	if err != nil {
		return Page[Organization]{}, err
	}
	items, next, err := decodePage(path, body, "organizations")
	if err != nil {
		return Page[Organization]{}, err
	}

	page := Page[Organization]{Items: make([]Organization, 0, len(items)), Next: next}
	for _, item := range items {
		id := item.Get("id").String()
		if id == "" {
			return Page[Organization]{}, &ProtocolError{Path: path, Reason: "organization without an id"}
		}
		page.Items = append(page.Items, Organization{
			ID:   id,
			Name: item.Get("name").String(),
		})
	}
	return page, nil
}

func (c *Client) FetchAttendeesPage(ctx context.Context, scope Scope, cursor string) (Page[Attendee], error) {
	if strings.TrimSpace(scope.ID) == "" {
		return Page[Attendee]{}, fmt.Errorf("fetch attendees: %s has an empty id", scope)
	}
	path := scope.attendeesPath()

	query := pageQuery(cursor)
	query.Set("expand", "event")
	body, err := c.get(ctx, path, query)
	if err != nil {
		return Page[Attendee]{}, err
	}
	items, next, err := decodePage(path, body, "attendees")
	if err != nil {
		return Page[Attendee]{}, err
	}

	page := Page[Attendee]{Items: make([]Attendee, 0, len(items)), Next: next}
	for _, item := range items {
		page.Items = append(page.Items, Attendee{raw: []byte(item.Raw)})
	}
	return page, nil
}
