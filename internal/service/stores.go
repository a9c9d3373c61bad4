package service

import (
	"context"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

// SeatStore is the persistence side of the seat ledger.  ReserveAtomic must
// flip all keys or none inside one transaction and report contention as
// (false, nil).  A non-zero holdUntil asks the store to record holds.
type SeatStore interface {
	ReserveAtomic(ctx context.Context, userID, eventID string, keys []model.SeatKey, holdUntil time.Time) (bool, error)
	Release(ctx context.Context, eventID string, keys []model.SeatKey) error
	ReleaseOwned(ctx context.Context, userID, eventID string, keys []model.SeatKey) ([]model.SeatKey, error)
	FindByEvent(ctx context.Context, eventID string) ([]model.Seat, error)
	CountAvailable(ctx context.Context, eventID string) (int, error)
	AvailabilityByEvent(ctx context.Context) ([]model.EventAvailability, error)
	HasSeats(ctx context.Context, eventID string) (bool, error)
	InsertIgnore(ctx context.Context, seats []model.Seat) (int64, error)
	SetRowPricing(ctx context.Context, eventID string, vipRows []string, vipCents, standardCents int) error
}

// HoldExpirer frees seats whose holds ran out.
type HoldExpirer interface {
	ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]model.SeatHold, error)
}

// OrderStore persists orders.  Create writes the order and its items
// atomically; a non-zero holdsAt makes it claim the caller's holds first.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order, items []model.OrderItem, holdsAt time.Time) error
	FindByUser(ctx context.Context, userID string) ([]model.Order, error)
	GetByIDForUser(ctx context.Context, orderID int64, userID string) (model.Order, error)
	FindItems(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	CountItemsForEvent(ctx context.Context, eventID string) (int, error)
	DeleteItemsByEvent(ctx context.Context, eventID string) (int64, error)
}

// EventStore persists events.  Delete fails with repository.ErrReferential
// while order items still reference the event.
type EventStore interface {
	Create(ctx context.Context, e model.Event) error
	GetByID(ctx context.Context, id string) (model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Search(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, error)
	NextID(ctx context.Context) (string, error)
	Delete(ctx context.Context, id string) error
}

// UserSeeder creates identities for the demo data.
type UserSeeder interface {
	Ensure(ctx context.Context, username, password, role string, cost int) (bool, error)
}

// SeatMapCache drops cached seat-map views of an event.
type SeatMapCache interface {
	Invalidate(ctx context.Context, eventID string)
}

// OrderPublisher announces committed orders.
type OrderPublisher interface {
	PublishOrderCommitted(ctx context.Context, ev queue.OrderCommittedEvent) error
}
