package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/clock"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

// NoItemsNote is shown for orders whose items went with a deleted event.
const NoItemsNote = "no items (event may have been deleted)"

// OrderSummary is an order with its items as shown to its owner.
type OrderSummary struct {
	Order model.Order       `json:"order"`
	Items []model.OrderItem `json:"items"`
	Note  string            `json:"note,omitempty"`
}

// OrderCommitter turns seats the caller already holds into a durable order.
// It does not reserve seats itself.
type OrderCommitter struct {
	orders       OrderStore
	publisher    OrderPublisher
	clock        clock.Clock
	checkHolds   bool
	publishAfter time.Duration
	logger       *logrus.Logger
}

// CommitterOption configures an OrderCommitter.
type CommitterOption func(*OrderCommitter)

// WithPublisher announces each committed order on the broker.
func WithPublisher(p OrderPublisher) CommitterOption {
	return func(c *OrderCommitter) { c.publisher = p }
}

// WithPublishTimeout bounds how long CreateOrder waits for the broker after
// the order is committed.
func WithPublishTimeout(d time.Duration) CommitterOption {
	return func(c *OrderCommitter) {
		if d > 0 {
			c.publishAfter = d
		}
	}
}

func WithCommitterClock(clk clock.Clock) CommitterOption {
	return func(c *OrderCommitter) { c.clock = clk }
}

// WithHoldCheck makes order creation claim the caller's unexpired holds and
// fail with repository.ErrHoldExpired when one is gone.  Enable it together
// with WithHoldTTL on the ledger.
func WithHoldCheck(enabled bool) CommitterOption {
	return func(c *OrderCommitter) { c.checkHolds = enabled }
}

func NewOrderCommitter(logger *logrus.Logger, orders OrderStore, opts ...CommitterOption) *OrderCommitter {
	c := &OrderCommitter{
		orders:       orders,
		clock:        clock.NewSystem(),
		publishAfter: 3 * time.Second,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateOrder persists an order for userID over seats and returns its id.
// The total is the sum of the seats' prices, each copied onto its item.
// Seats stay RESERVED whether or not this succeeds.
func (c *OrderCommitter) CreateOrder(ctx context.Context, userID, eventID string, seats []model.Seat) (int64, error) {
	if userID == "" {
		return 0, invalid("user_id", "required")
	}
	if eventID == "" {
		return 0, invalid("event_id", "required")
	}
	if len(seats) == 0 {
		return 0, invalid("seats", "at least one seat is required")
	}
	items := make([]model.OrderItem, 0, len(seats))
	seen := make(map[model.SeatKey]bool, len(seats))
	total := 0
	for _, s := range seats {
		if s.EventID != "" && s.EventID != eventID {
			return 0, invalid("seats", "seat %s belongs to event %s", s.DisplayID(), s.EventID)
		}
		if s.PriceCents <= 0 {
			return 0, invalid("seats", "seat %s has non-positive price", s.DisplayID())
		}
		if seen[s.Key()] {
			return 0, invalid("seats", "seat %s listed twice", s.DisplayID())
		}
		seen[s.Key()] = true
		total += s.PriceCents
		items = append(items, model.OrderItem{
			EventID:    eventID,
			RowLabel:   s.RowLabel,
			SeatNumber: s.SeatNumber,
			PriceCents: s.PriceCents,
		})
	}

	now := c.clock.Now()
	order := model.Order{UserID: userID, BookedAt: now, TotalCents: total}
	var holdsAt time.Time
	if c.checkHolds {
		holdsAt = now
	}
	if err := c.orders.Create(ctx, &order, items, holdsAt); err != nil {
		return 0, err
	}

	log := c.logger.WithContext(ctx).WithFields(logrus.Fields{
		"order_id":    order.ID,
		"user_id":     userID,
		"event_id":    eventID,
		"total_cents": total,
	})
	log.Info("order committed")
	c.publish(ctx, order, eventID, items, log)
	return order.ID, nil
}

func (c *OrderCommitter) publish(ctx context.Context, o model.Order, eventID string, items []model.OrderItem, log *logrus.Entry) {
	if c.publisher == nil {
		return
	}
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Key().DisplayID())
	}
	ev := queue.OrderCommittedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		EventID:    eventID,
		Seats:      labels,
		TotalCents: o.TotalCents,
		BookedAt:   o.BookedAt.UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.publishAfter)
	defer cancel()
	// A publisher that ignores pctx is abandoned at the deadline; the order
	// is already durable.
	done := make(chan error, 1)
	go func() { done <- c.publisher.PublishOrderCommitted(pctx, ev) }()
	select {
	case err := <-done:
		if err != nil {
			log.WithError(err).Warn("publish order.committed failed")
		}
	case <-pctx.Done():
		log.WithError(pctx.Err()).Warn("publish order.committed timed out")
	}
}

// FindOrdersByUser lists the user's orders newest first.
func (c *OrderCommitter) FindOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	if userID == "" {
		return nil, invalid("user_id", "required")
	}
	return c.orders.FindByUser(ctx, userID)
}

func (c *OrderCommitter) FindOrderItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return c.orders.FindItems(ctx, orderID)
}

// OrderSummary loads an order owned by userID together with its items.  An
// order whose items are gone is still returned, with NoItemsNote set.
func (c *OrderCommitter) OrderSummary(ctx context.Context, userID string, orderID int64) (OrderSummary, error) {
	o, err := c.orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return OrderSummary{}, err
	}
	items, err := c.orders.FindItems(ctx, orderID)
	if err != nil {
		return OrderSummary{}, err
	}
	sum := OrderSummary{Order: o, Items: items}
	if len(items) == 0 {
		sum.Note = NoItemsNote
	}
	return sum, nil
}

// IsHoldExpired reports whether a checkout failed because a hold lapsed.
func IsHoldExpired(err error) bool { return errors.Is(err, repository.ErrHoldExpired) }
