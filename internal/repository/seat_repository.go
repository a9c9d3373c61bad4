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

// errContended rolls back a reservation whose conditional update touched
// fewer rows than requested.  It never leaves this package.
var errContended = errors.New("contended")

// SeatRepo is the MySQL seat ledger.  Every status transition goes through a
// conditional UPDATE inside a transaction; there is no in-process locking.
type SeatRepo struct {
	db     *sql.DB
	holds  *SeatHoldRepo
	logger *logrus.Logger
}

// NewSeatRepo returns a SeatRepo.  holds may be shared with OrderRepo.
func NewSeatRepo(logger *logrus.Logger, db *sql.DB, holds *SeatHoldRepo) *SeatRepo {
	return &SeatRepo{db: db, holds: holds, logger: logger}
}

// ReserveAtomic flips every key from AVAILABLE to RESERVED or none of them.
// It returns false with a nil error when at least one seat is taken or does
// not exist.  When holdUntil is non-zero a seat_holds row per seat is
// written in the same transaction.
func (r *SeatRepo) ReserveAtomic(ctx context.Context, userID, eventID string, keys []model.SeatKey, holdUntil time.Time) (bool, error) {
	if len(keys) == 0 {
		return true, nil
	}
	err := withTx(ctx, r.db, "reserve seats", func(tx *sql.Tx) error {
		tuples, args := seatTuples(keys)
		q := `UPDATE seats SET status = 'RESERVED'
		      WHERE event_id = ? AND status = 'AVAILABLE' AND (row_label, seat_number) IN (` + tuples + `)`
		res, err := tx.ExecContext(ctx, q, append([]any{eventID}, args...)...)
		if err != nil {
			return storageErr("reserve seats", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("reserve seats: rows affected", err)
		}
		if n < int64(len(keys)) {
			return errContended
		}
		if !holdUntil.IsZero() {
			holds := GenerateHoldRecords(userID, eventID, keys, holdUntil)
			if err := r.holds.CreateMultipleTx(ctx, tx, holds); err != nil {
				return storageErr("reserve seats: record holds", err)
			}
		}
		return nil
	})
	if errors.Is(err, errContended) {
		r.logger.WithContext(ctx).WithFields(logrus.Fields{
			"event_id": eventID,
			"user_id":  userID,
			"seats":    len(keys),
		}).Debug("seat reservation contended")
		return false, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Error("reserve seats failed")
		return false, err
	}
	return true, nil
}

// Release returns seats to AVAILABLE and drops their holds.  Releasing an
// AVAILABLE seat is a no-op.
func (r *SeatRepo) Release(ctx context.Context, eventID string, keys []model.SeatKey) error {
	if len(keys) == 0 {
		return nil
	}
	err := withTx(ctx, r.db, "release seats", func(tx *sql.Tx) error {
		tuples, args := seatTuples(keys)
		q := `UPDATE seats SET status = 'AVAILABLE'
		      WHERE event_id = ? AND (row_label, seat_number) IN (` + tuples + `)`
		if _, err := tx.ExecContext(ctx, q, append([]any{eventID}, args...)...); err != nil {
			return storageErr("release seats", err)
		}
		if err := r.holds.DeleteTx(ctx, tx, eventID, keys); err != nil {
			return storageErr("release seats: drop holds", err)
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Error("release seats failed")
	}
	return err
}

// ReleaseOwned frees only the keys on which userID still holds a seat_holds
// row and that no order item references, and returns the keys it freed.
// A seat whose hold lapsed and was re-reserved by someone else is left
// alone.
func (r *SeatRepo) ReleaseOwned(ctx context.Context, userID, eventID string, keys []model.SeatKey) ([]model.SeatKey, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var freed []model.SeatKey
	err := withTx(ctx, r.db, "release owned seats", func(tx *sql.Tx) error {
		owned, err := r.holds.LockOwnedTx(ctx, tx, userID, eventID, keys)
		if err != nil {
			return storageErr("release owned seats: lock holds", err)
		}
		if len(owned) == 0 {
			return nil
		}
		tuples, args := seatTuples(owned)
		q := `UPDATE seats SET status = 'AVAILABLE'
		      WHERE event_id = ? AND status = 'RESERVED' AND (row_label, seat_number) IN (` + tuples + `)`
		if _, err := tx.ExecContext(ctx, q, append([]any{eventID}, args...)...); err != nil {
			return storageErr("release owned seats", err)
		}
		if err := r.holds.DeleteTx(ctx, tx, eventID, owned); err != nil {
			return storageErr("release owned seats: drop holds", err)
		}
		freed = owned
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"event_id": eventID,
			"user_id":  userID,
		}).Error("release owned seats failed")
		return nil, err
	}
	if len(freed) < len(keys) {
		r.logger.WithContext(ctx).WithFields(logrus.Fields{
			"event_id": eventID,
			"user_id":  userID,
			"skipped":  len(keys) - len(freed),
		}).Debug("release skipped seats no longer held by caller")
	}
	return freed, nil
}

// FindByEvent lists the seats of an event in layout order.  No locks are
// taken; the result may be stale by the time the caller renders it.
func (r *SeatRepo) FindByEvent(ctx context.Context, eventID string) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, row_label, seat_number, type, status, price_cents
		 FROM seats WHERE event_id = ?
		 ORDER BY CHAR_LENGTH(row_label), row_label, seat_number`,
		eventID,
	)
	if err != nil {
		return nil, storageErr("find seats", err)
	}
	defer rows.Close()
	seats := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.EventID, &s.RowLabel, &s.SeatNumber, &s.Type, &s.Status, &s.PriceCents); err != nil {
			return nil, storageErr("find seats: scan", err)
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("find seats", err)
	}
	return seats, nil
}

// CountAvailable returns the number of AVAILABLE seats of an event.
func (r *SeatRepo) CountAvailable(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE event_id = ? AND status = 'AVAILABLE'`, eventID,
	).Scan(&n)
	if err != nil {
		return 0, storageErr("count available", err)
	}
	return n, nil
}

// AvailabilityByEvent returns every event with its AVAILABLE seat count,
// events without seats included as zero.
func (r *SeatRepo) AvailabilityByEvent(ctx context.Context) ([]model.EventAvailability, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.name, e.date, COUNT(s.seat_number)
		 FROM events e
		 LEFT JOIN seats s ON s.event_id = e.id AND s.status = 'AVAILABLE'
		 GROUP BY e.id, e.name, e.date
		 ORDER BY e.date, e.id`,
	)
	if err != nil {
		return nil, storageErr("availability by event", err)
	}
	defer rows.Close()
	out := []model.EventAvailability{}
	for rows.Next() {
		var a model.EventAvailability
		if err := rows.Scan(&a.EventID, &a.Name, &a.Date, &a.Available); err != nil {
			return nil, storageErr("availability by event: scan", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("availability by event", err)
	}
	return out, nil
}

// HasSeats reports whether any seat exists for the event.
func (r *SeatRepo) HasSeats(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM seats WHERE event_id = ?)`, eventID,
	).Scan(&exists)
	if err != nil {
		return false, storageErr("has seats", err)
	}
	return exists, nil
}

// InsertIgnore bulk inserts seats, skipping keys that already exist, and
// returns how many rows were new.  Concurrent seeders of the same event
// therefore converge on one copy of each seat.
func (r *SeatRepo) InsertIgnore(ctx context.Context, seats []model.Seat) (int64, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	var b strings.Builder
	b.WriteString(`INSERT IGNORE INTO seats (event_id, row_label, seat_number, type, status, price_cents) VALUES `)
	args := make([]any, 0, len(seats)*6)
	for i, s := range seats {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, s.EventID, s.RowLabel, s.SeatNumber, string(s.Type), string(s.Status), s.PriceCents)
	}
	res, err := r.db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("insert seats failed")
		return 0, storageErr("insert seats", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("insert seats: rows affected", err)
	}
	return n, nil
}

// SetRowPricing makes vipRows VIP at vipCents and every other row STANDARD
// at standardCents, in one transaction.  Existing order items keep their
// frozen prices.
func (r *SeatRepo) SetRowPricing(ctx context.Context, eventID string, vipRows []string, vipCents, standardCents int) error {
	return withTx(ctx, r.db, "set row pricing", func(tx *sql.Tx) error {
		if len(vipRows) == 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE seats SET type = 'STANDARD', price_cents = ? WHERE event_id = ?`,
				standardCents, eventID,
			); err != nil {
				return storageErr("set row pricing", err)
			}
			return nil
		}
		in := placeholders(len(vipRows))
		rowArgs := make([]any, 0, len(vipRows))
		for _, row := range vipRows {
			rowArgs = append(rowArgs, row)
		}
		vipArgs := append([]any{vipCents, eventID}, rowArgs...)
		if _, err := tx.ExecContext(ctx,
			`UPDATE seats SET type = 'VIP', price_cents = ? WHERE event_id = ? AND row_label IN (`+in+`)`,
			vipArgs...,
		); err != nil {
			return storageErr("set row pricing: vip", err)
		}
		stdArgs := append([]any{standardCents, eventID}, rowArgs...)
		if _, err := tx.ExecContext(ctx,
			`UPDATE seats SET type = 'STANDARD', price_cents = ? WHERE event_id = ? AND row_label NOT IN (`+in+`)`,
			stdArgs...,
		); err != nil {
			return storageErr("set row pricing: standard", err)
		}
		return nil
	})
}

// ReleaseExpiredHolds frees every seat whose hold expired at or before now
// and returns the holds that were dropped.  Seats already sold keep their
// status because their holds were claimed at order time.
func (r *SeatRepo) ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]model.SeatHold, error) {
	var expired []model.SeatHold
	err := withTx(ctx, r.db, "expire holds", func(tx *sql.Tx) error {
		var err error
		expired, err = r.holds.ExpireTx(ctx, tx, now)
		if err != nil {
			return storageErr("expire holds", err)
		}
		byEvent := map[string][]model.SeatKey{}
		for _, h := range expired {
			byEvent[h.EventID] = append(byEvent[h.EventID], h.Key())
		}
		for eventID, keys := range byEvent {
			tuples, args := seatTuples(keys)
			q := `UPDATE seats SET status = 'AVAILABLE'
			      WHERE event_id = ? AND status = 'RESERVED' AND (row_label, seat_number) IN (` + tuples + `)`
			if _, err := tx.ExecContext(ctx, q, append([]any{eventID}, args...)...); err != nil {
				return storageErr("expire holds: free seats", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("expire holds failed")
		return nil, err
	}
	return expired, nil
}
