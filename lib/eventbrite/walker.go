package eventbrite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventbrite-cetd/lib/telemetry"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("eventbrite-cetd/lib/eventbrite")

// DefaultMaxAttempts is how many times a page is requested before a
// transient failure becomes fatal.
const DefaultMaxAttempts = 3

// PageFunc fetches the page at `cursor`, an empty cursor is the first page.
type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

type WalkOptions struct {
	// MaxAttempts <= 0 means DefaultMaxAttempts.
	MaxAttempts int
	// NewBackOff creates the delay policy between attempts of one page,
	// nil means exponential backoff starting at 500ms.
	NewBackOff func() backoff.BackOff
}

func (o WalkOptions) maxAttempts() int {
	if o.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return o.MaxAttempts
}

func (o WalkOptions) newBackOff() backoff.BackOff {
	if o.NewBackOff != nil {
		return o.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

// Walker is a pull based iterator over every item of a paginated list.
// It holds one page in memory at a time and cannot be restarted, once
// Next returns false it will keep returning false.
//
//	w := WalkAttendees(api, scope, opts)
//	for w.Next(ctx) {
//		use(w.Item())
//	}
//	if err := w.Err(); err != nil { ... }
type Walker[T any] struct {
	fetch PageFunc[T]
	opts  WalkOptions

	cursor  string
	started bool
	done    bool
	pending []T
	item    T
	pages   int
	err     error
}

func NewWalker[T any](fetch PageFunc[T], opts WalkOptions) *Walker[T] {
	return &Walker[T]{fetch: fetch, opts: opts}
}

func WalkAttendees(api API, scope Scope, opts WalkOptions) *Walker[Attendee] {
	return NewWalker[Attendee](func(ctx context.Context, cursor string) (Page[Attendee], error) {
		return api.FetchAttendeesPage(ctx, scope, cursor)
	}, opts)
}

func WalkOrganizations(api API, opts WalkOptions) *Walker[Organization] {
	return NewWalker[Organization](api.FetchOrganizationsPage, opts)
}

// ListOrganizations drains an organization walk, users belong to few
// organizations so they are collected eagerly.
func ListOrganizations(ctx context.Context, api API, opts WalkOptions) ([]Organization, error) {
	var orgs []Organization
	w := WalkOrganizations(api, opts)
	for w.Next(ctx) {
		orgs = append(orgs, w.Item())
	}
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// Next advances to the next item, fetching pages as needed. It returns
// false when the list is exhausted or a fatal error occurred.
func (w *Walker[T]) Next(ctx context.Context) bool {
	for len(w.pending) == 0 {
		if w.done {
			return false
		}
		if w.started && w.cursor == "" {
			w.done = true
			return false
		}

		page, err := w.fetchPage(ctx)
		if err != nil {
			w.err = err
			w.done = true
			return false
		}
		w.started = true
		w.pages++
		w.pending = page.Items
		w.cursor = page.Next
	}

	w.item = w.pending[0]
	w.pending = w.pending[1:]
	return true
}

// Item is the item Next advanced to.
func (w *Walker[T]) Item() T {
	return w.item
}

// Err is the error that ended the walk, if any.
func (w *Walker[T]) Err() error {
	return w.err
}

// Pages is the number of pages fetched successfully so far.
func (w *Walker[T]) Pages() int {
	return w.pages
}

func (w *Walker[T]) fetchPage(ctx context.Context) (Page[T], error) {
	ctx, span := tracer.Start(ctx, "Walker.fetchPage")
	defer span.End()

	pageNo := w.pages + 1
	maxAttempts := w.opts.maxAttempts()
	policy := backoff.WithContext(
		backoff.WithMaxRetries(w.opts.newBackOff(), uint64(maxAttempts-1)),
		ctx,
	)

	attempts := 0
	page, err := backoff.RetryNotifyWithData(
		func() (Page[T], error) {
			attempts++
			page, err := w.fetch(ctx, w.cursor)
			if err != nil && !IsTransient(err) {
				return page, backoff.Permanent(err)
			}
			return page, err
		},
		policy,
		func(err error, delay time.Duration) {
			slog.WarnContext(
				ctx, "retrying page after transient failure",
				"page", pageNo,
				"attempt", attempts,
				"max_attempts", maxAttempts,
				"delay", delay,
				"err", err,
			)
		},
	)
	span.SetAttributes(
		attribute.Int("page", pageNo),
		attribute.Int("attempts", attempts),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch page")
		return Page[T]{}, fmt.Errorf("page %d (after %d attempts): %w", pageNo, attempts, err)
	}
	return page, nil
}
