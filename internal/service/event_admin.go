package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

const createEventAttempts = 5

// CreateEventInput is what the admin form submits.  Times are "HH:MM".
type CreateEventInput struct {
	Name               string
	Date               time.Time
	Venue              string
	StartTime          string
	EndTime            string
	VIPRows            []string // nil means DefaultVIPRows
	VIPPriceCents      int
	StandardPriceCents int
}

// EventAdmin runs the administrative flows: creating an event with its seat
// grid and deleting an event together with its bookings.
type EventAdmin struct {
	events EventStore
	orders OrderStore
	layout *LayoutGenerator
	cache  SeatMapCache
	logger *logrus.Logger
}

func NewEventAdmin(logger *logrus.Logger, events EventStore, orders OrderStore, layout *LayoutGenerator, cache SeatMapCache) *EventAdmin {
	return &EventAdmin{events: events, orders: orders, layout: layout, cache: cache, logger: logger}
}

// CreateEvent validates the input, allocates the next E-<n> id, stores the
// event, seeds its seats and prices its rows.
func (a *EventAdmin) CreateEvent(ctx context.Context, in CreateEventInput) (model.Event, error) {
	ev, err := in.validate()
	if err != nil {
		return model.Event{}, err
	}
	vipRows := in.VIPRows
	if vipRows == nil {
		vipRows = DefaultVIPRows
	}
	if _, err := normalizeRows(vipRows); err != nil {
		return model.Event{}, err
	}

	for attempt := 0; ; attempt++ {
		id, err := a.events.NextID(ctx)
		if err != nil {
			return model.Event{}, err
		}
		ev.ID = id
		err = a.events.Create(ctx, ev)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt+1 >= createEventAttempts {
			return model.Event{}, err
		}
	}

	if err := a.layout.EnsureSeatsExist(ctx, ev.ID); err != nil {
		return ev, fmt.Errorf("seed seats for %s: %w", ev.ID, err)
	}
	if err := a.layout.SetRowPricing(ctx, ev.ID, vipRows, in.VIPPriceCents, in.StandardPriceCents); err != nil {
		return ev, fmt.Errorf("price rows for %s: %w", ev.ID, err)
	}
	a.invalidate(ctx, ev.ID)
	a.logger.WithContext(ctx).WithField("event_id", ev.ID).Info("event created")
	return ev, nil
}

func (in CreateEventInput) validate() (model.Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Event{}, invalid("name", "required")
	}
	venue := strings.TrimSpace(in.Venue)
	if venue == "" {
		return model.Event{}, invalid("venue", "required")
	}
	if in.Date.IsZero() {
		return model.Event{}, invalid("date", "required")
	}
	start, err := time.Parse("15:04", in.StartTime)
	if err != nil {
		return model.Event{}, invalid("start_time", "want HH:MM")
	}
	end, err := time.Parse("15:04", in.EndTime)
	if err != nil {
		return model.Event{}, invalid("end_time", "want HH:MM")
	}
	if !end.After(start) {
		return model.Event{}, invalid("end_time", "must be after start_time")
	}
	if in.VIPPriceCents <= 0 {
		return model.Event{}, invalid("vip_price_cents", "must be positive")
	}
	if in.StandardPriceCents <= 0 {
		return model.Event{}, invalid("standard_price_cents", "must be positive")
	}
	return model.Event{
		Name:      name,
		Date:      time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, time.UTC),
		Venue:     venue,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	}, nil
}

// CountBookings is the number of sold seats the delete would remove.
func (a *EventAdmin) CountBookings(ctx context.Context, eventID string) (int, error) {
	return a.orders.CountItemsForEvent(ctx, eventID)
}

// DeleteEvent deletes the event's order items and then the event, its holds
// and its seats.  It returns how many order items were removed.  Orders that
// lose all their items remain and show NoItemsNote.
func (a *EventAdmin) DeleteEvent(ctx context.Context, eventID string) (int64, error) {
	if _, err := a.events.GetByID(ctx, eventID); err != nil {
		return 0, err
	}
	removed, err := a.orders.DeleteItemsByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if err := a.events.Delete(ctx, eventID); err != nil {
		return removed, err
	}
	a.invalidate(ctx, eventID)
	a.logger.WithContext(ctx).WithFields(logrus.Fields{
		"event_id":      eventID,
		"items_removed": removed,
	}).Info("event deleted")
	return removed, nil
}

func (a *EventAdmin) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	return a.events.GetByID(ctx, eventID)
}

func (a *EventAdmin) ListEvents(ctx context.Context) ([]model.Event, error) {
	return a.events.List(ctx)
}

// Search page bounds.
const (
	DefaultSearchPageSize = 20
	MaxSearchPageSize     = 100
	MaxSearchPage         = 10000
)

// SearchEvents runs a filtered, paged event search.  Out-of-range paging is
// clamped rather than rejected.
func (a *EventAdmin) SearchEvents(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, repository.EventSearchQuery, error) {
	q.Name = strings.TrimSpace(q.Name)
	q.Venue = strings.TrimSpace(q.Venue)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxSearchPage {
		q.Page = MaxSearchPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultSearchPageSize
	}
	if q.PageSize > MaxSearchPageSize {
		q.PageSize = MaxSearchPageSize
	}
	events, total, err := a.events.Search(ctx, q)
	return events, total, q, err
}

func (a *EventAdmin) invalidate(ctx context.Context, eventID string) {
	if a.cache != nil {
		a.cache.Invalidate(ctx, eventID)
	}
}
