package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// OrderRepo persists orders and their items.  Orders are immutable once
// written; items carry a frozen copy of each seat's price.
type OrderRepo struct {
	db     *sql.DB
	holds  *SeatHoldRepo
	logger *logrus.Logger
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(logger *logrus.Logger, db *sql.DB, holds *SeatHoldRepo) *OrderRepo {
	return &OrderRepo{db: db, holds: holds, logger: logger}
}

// CreateTx inserts the order row within the caller's transaction and sets
// the generated ID on o.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders (user_id, booked_at, total_cents) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, o.UserID, o.BookedAt.UTC(), o.TotalCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

// CreateItemsTx inserts all items in one statement.  Every item must carry
// the order ID.  Passing an empty slice has no effect and returns nil.
func (r *OrderRepo) CreateItemsTx(ctx context.Context, tx *sql.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO order_items (order_id, event_id, row_label, seat_number, price_cents) VALUES `)
	args := make([]any, 0, len(items)*5)
	for i, it := range items {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, it.OrderID, it.EventID, it.RowLabel, it.SeatNumber, it.PriceCents)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// Create writes the order and its items in one transaction.  On success o.ID
// and every item's OrderID are set.  When holdsAt is non-zero the caller's
// holds on the items' seats are claimed against that instant and a missing
// or expired hold aborts with ErrHoldExpired.  Nothing persists on failure.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order, items []model.OrderItem, holdsAt time.Time) error {
	err := withTx(ctx, r.db, "create order", func(tx *sql.Tx) error {
		if !holdsAt.IsZero() {
			if err := r.claimHolds(ctx, tx, o.UserID, items, holdsAt); err != nil {
				return err
			}
		}
		if err := r.CreateTx(ctx, tx, o); err != nil {
			return storageErr("create order", err)
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := r.CreateItemsTx(ctx, tx, items); err != nil {
			return storageErr("create order items", err)
		}
		return nil
	})
	if err != nil {
		o.ID = 0
		for i := range items {
			items[i].OrderID = 0
		}
		if !errors.Is(err, ErrHoldExpired) {
			r.logger.WithContext(ctx).WithError(err).WithField("user_id", o.UserID).Error("create order failed")
		}
		return err
	}
	return nil
}

func (r *OrderRepo) claimHolds(ctx context.Context, tx *sql.Tx, userID string, items []model.OrderItem, now time.Time) error {
	byEvent := map[string][]model.SeatKey{}
	for _, it := range items {
		byEvent[it.EventID] = append(byEvent[it.EventID], it.Key())
	}
	for eventID, keys := range byEvent {
		n, err := r.holds.ClaimTx(ctx, tx, userID, eventID, keys, now)
		if err != nil {
			return storageErr("claim holds", err)
		}
		if n < int64(len(keys)) {
			return ErrHoldExpired
		}
	}
	return nil
}

// FindByUser lists a user's orders newest first.
func (r *OrderRepo) FindByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, booked_at, total_cents FROM orders
		 WHERE user_id = ? ORDER BY booked_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, storageErr("find orders", err)
	}
	defer rows.Close()
	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.BookedAt, &o.TotalCents); err != nil {
			return nil, storageErr("find orders: scan", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("find orders", err)
	}
	return orders, nil
}

// GetByIDForUser returns the order if it belongs to userID, ErrOrderNotFound
// otherwise.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, orderID int64, userID string) (model.Order, error) {
	var o model.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, booked_at, total_cents FROM orders WHERE id = ? AND user_id = ?`,
		orderID, userID,
	).Scan(&o.ID, &o.UserID, &o.BookedAt, &o.TotalCents)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return model.Order{}, storageErr("get order", err)
	}
	return o, nil
}

// FindItems lists the items of an order.  Items of a deleted event are gone,
// so an empty slice is a normal result.
func (r *OrderRepo) FindItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, event_id, row_label, seat_number, price_cents
		 FROM order_items WHERE order_id = ? ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, storageErr("find order items", err)
	}
	defer rows.Close()
	items := []model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.EventID, &it.RowLabel, &it.SeatNumber, &it.PriceCents); err != nil {
			return nil, storageErr("find order items: scan", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("find order items", err)
	}
	return items, nil
}

// CountItemsForEvent counts order items that reference the event's seats.
func (r *OrderRepo) CountItemsForEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_items WHERE event_id = ?`, eventID,
	).Scan(&n); err != nil {
		return 0, storageErr("count order items", err)
	}
	return n, nil
}

// DeleteItemsByEvent removes the event's order items and returns how many
// went.  It is the first phase of deleting an event.
func (r *OrderRepo) DeleteItemsByEvent(ctx context.Context, eventID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE event_id = ?`, eventID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Error("delete order items failed")
		return 0, storageErr("delete order items", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete order items: rows affected", err)
	}
	return n, nil
}
