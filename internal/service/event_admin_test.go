package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/testutil"
)

type adminFixture struct {
	seats  *testutil.SeatStore
	orders *testutil.OrderStore
	events *testutil.EventStore
	cache  *testutil.Cache
	admin  *service.EventAdmin
	layout *service.LayoutGenerator
}

func newAdmin(t *testing.T) *adminFixture {
	t.Helper()
	f := &adminFixture{
		seats:  testutil.NewSeatStore(),
		orders: testutil.NewOrderStore(),
		events: testutil.NewEventStore(),
		cache:  &testutil.Cache{},
	}
	f.events.Orders = f.orders
	f.events.Seats = f.seats
	f.layout = service.NewLayoutGenerator(testutil.Logger(), f.seats, f.cache)
	f.admin = service.NewEventAdmin(testutil.Logger(), f.events, f.orders, f.layout, f.cache)
	return f
}

func validInput() service.CreateEventInput {
	return service.CreateEventInput{
		Name:               "Jazz Night",
		Date:               time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		Venue:              "Main Hall",
		StartTime:          "19:00",
		EndTime:            "21:30",
		VIPPriceCents:      4000,
		StandardPriceCents: 1500,
	}
}

func TestCreateEvent_SeedsAndPricesSeats(t *testing.T) {
	ctx := context.Background()
	f := newAdmin(t)

	ev, err := f.admin.CreateEvent(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "E-2001", ev.ID)

	seats, err := f.seats.FindByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, seats, 236)
	for _, s := range seats {
		if s.RowLabel == "G" || s.RowLabel == "H" {
			assert.Equal(t, model.SeatVIP, s.Type)
			assert.Equal(t, 4000, s.PriceCents)
		} else {
			assert.Equal(t, 1500, s.PriceCents, s.DisplayID())
		}
	}
	assert.Contains(t, f.cache.Events(), ev.ID)

	next, err := f.admin.CreateEvent(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "E-2002", next.ID)
}

func TestCreateEvent_ExplicitVIPRows(t *testing.T) {
	ctx := context.Background()
	f := newAdmin(t)
	in := validInput()
	in.VIPRows = []string{"a"}

	ev, err := f.admin.CreateEvent(ctx, in)
	require.NoError(t, err)
	seats, err := f.seats.FindByEvent(ctx, ev.ID)
	require.NoError(t, err)
	vip := 0
	for _, s := range seats {
		if s.Type == model.SeatVIP {
			vip++
			assert.Equal(t, "A", s.RowLabel)
		}
	}
	assert.Equal(t, 10, vip)
}

func TestCreateEvent_Validation(t *testing.T) {
	ctx := context.Background()
	f := newAdmin(t)

	mutations := map[string]func(*service.CreateEventInput){
		"blank name":        func(in *service.CreateEventInput) { in.Name = "  " },
		"blank venue":       func(in *service.CreateEventInput) { in.Venue = "" },
		"no date":           func(in *service.CreateEventInput) { in.Date = time.Time{} },
		"bad start":         func(in *service.CreateEventInput) { in.StartTime = "7pm" },
		"end before start":  func(in *service.CreateEventInput) { in.EndTime = "18:00" },
		"end equals start":  func(in *service.CreateEventInput) { in.EndTime = "19:00" },
		"zero vip price":    func(in *service.CreateEventInput) { in.VIPPriceCents = 0 },
		"negative standard": func(in *service.CreateEventInput) { in.StandardPriceCents = -1 },
		"bad vip row":       func(in *service.CreateEventInput) { in.VIPRows = []string{"7"} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := f.admin.CreateEvent(ctx, in)
			assert.True(t, service.IsValidation(err), "got %v", err)
		})
	}
	list, err := f.admin.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteEvent_RemovesBookingsFirst(t *testing.T) {
	ctx := context.Background()
	f := newAdmin(t)
	ev, err := f.admin.CreateEvent(ctx, validInput())
	require.NoError(t, err)

	committer := service.NewOrderCommitter(testutil.Logger(), f.orders)
	orderID, err := committer.CreateOrder(ctx, "user1", ev.ID, []model.Seat{
		{EventID: ev.ID, RowLabel: "A", SeatNumber: 1, PriceCents: 1500},
		{EventID: ev.ID, RowLabel: "A", SeatNumber: 2, PriceCents: 1500},
	})
	require.NoError(t, err)

	// Deleting the event row alone is refused while items reference it.
	assert.ErrorIs(t, f.events.Delete(ctx, ev.ID), repository.ErrReferential)

	n, err := f.admin.CountBookings(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	removed, err := f.admin.DeleteEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = f.admin.GetEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
	has, err := f.seats.HasSeats(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, has)

	sum, err := committer.OrderSummary(ctx, "user1", orderID)
	require.NoError(t, err)
	assert.Equal(t, service.NoItemsNote, sum.Note)
}

func TestDeleteEvent_Unknown(t *testing.T) {
	f := newAdmin(t)
	_, err := f.admin.DeleteEvent(context.Background(), "E-9999")
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestSearchEvents_FiltersAndClampsPaging(t *testing.T) {
	ctx := context.Background()
	f := newAdmin(t)

	for _, name := range []string{"Jazz Night", "Jazz Brunch", "Rock Night"} {
		in := validInput()
		in.Name = name
		_, err := f.admin.CreateEvent(ctx, in)
		require.NoError(t, err)
	}

	events, total, q, err := f.admin.SearchEvents(ctx, repository.EventSearchQuery{Name: " jazz ", PageSize: 1000})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, events, 2)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, service.MaxSearchPageSize, q.PageSize)

	events, total, q, err = f.admin.SearchEvents(ctx, repository.EventSearchQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, events, 1)
	assert.Equal(t, 2, q.Page)

	_, total, _, err = f.admin.SearchEvents(ctx, repository.EventSearchQuery{
		From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSearchEvents_HugePageIsClamped(t *testing.T) {
	ctx := context.Background()
	f := newAdmin(t)
	_, err := f.admin.CreateEvent(ctx, validInput())
	require.NoError(t, err)

	events, total, q, err := f.admin.SearchEvents(ctx, repository.EventSearchQuery{Page: math.MaxInt, PageSize: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Empty(t, events)
	assert.Equal(t, service.MaxSearchPage, q.Page)
}
