package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds table.  A hold row
// exists only while hold expiry is enabled and the seat is RESERVED but not
// yet ordered.  All timestamps are UTC; callers pass "now" explicitly so
// expiry comparisons follow the application clock.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// GenerateHoldRecords builds one hold per seat with a fresh uuid token.
func GenerateHoldRecords(userID, eventID string, keys []model.SeatKey, expiresAt time.Time) []model.SeatHold {
	holds := make([]model.SeatHold, 0, len(keys))
	for _, k := range keys {
		holds = append(holds, model.SeatHold{
			EventID:    eventID,
			RowLabel:   k.RowLabel,
			SeatNumber: k.SeatNumber,
			UserID:     userID,
			HoldToken:  uuid.NewString(),
			ExpiresAt:  expiresAt.UTC(),
		})
	}
	return holds
}

// CreateMultipleTx upserts holds inside the caller's transaction.  A stale
// row for the same seat is overwritten.  Passing an empty slice is a no-op.
func (r *SeatHoldRepo) CreateMultipleTx(ctx context.Context, tx *sql.Tx, holds []model.SeatHold) error {
	if len(holds) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO seat_holds (event_id, row_label, seat_number, user_id, hold_token, expires_at) VALUES `)
	args := make([]any, 0, len(holds)*6)
	for i, h := range holds {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, h.EventID, h.RowLabel, h.SeatNumber, h.UserID, h.HoldToken, h.ExpiresAt.UTC())
	}
	b.WriteString(` ON DUPLICATE KEY UPDATE user_id = VALUES(user_id), hold_token = VALUES(hold_token), expires_at = VALUES(expires_at)`)
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// DeleteTx removes holds for the given seats regardless of owner.
func (r *SeatHoldRepo) DeleteTx(ctx context.Context, tx *sql.Tx, eventID string, keys []model.SeatKey) error {
	if len(keys) == 0 {
		return nil
	}
	tuples, args := seatTuples(keys)
	q := `DELETE FROM seat_holds WHERE event_id = ? AND (row_label, seat_number) IN (` + tuples + `)`
	_, err := tx.ExecContext(ctx, q, append([]any{eventID}, args...)...)
	return err
}

// LockOwnedTx locks userID's holds on keys, skipping seats that an order
// item already references, and returns their keys.
func (r *SeatHoldRepo) LockOwnedTx(ctx context.Context, tx *sql.Tx, userID, eventID string, keys []model.SeatKey) ([]model.SeatKey, error) {
	tuples, args := seatTuples(keys)
	q := `SELECT h.row_label, h.seat_number FROM seat_holds h
	      WHERE h.user_id = ? AND h.event_id = ? AND (h.row_label, h.seat_number) IN (` + tuples + `)
	        AND NOT EXISTS (SELECT 1 FROM order_items oi
	                        WHERE oi.event_id = h.event_id AND oi.row_label = h.row_label AND oi.seat_number = h.seat_number)
	      FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, append([]any{userID, eventID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	owned := []model.SeatKey{}
	for rows.Next() {
		var k model.SeatKey
		if err := rows.Scan(&k.RowLabel, &k.SeatNumber); err != nil {
			return nil, err
		}
		owned = append(owned, k)
	}
	return owned, rows.Err()
}

// ClaimTx deletes the caller's unexpired holds on keys and reports how many
// were removed.  Order creation compares the count with len(keys): a short
// count means a hold expired or was never taken.
func (r *SeatHoldRepo) ClaimTx(ctx context.Context, tx *sql.Tx, userID, eventID string, keys []model.SeatKey, now time.Time) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tuples, args := seatTuples(keys)
	q := `DELETE FROM seat_holds WHERE user_id = ? AND event_id = ? AND expires_at > ? AND (row_label, seat_number) IN (` + tuples + `)`
	res, err := tx.ExecContext(ctx, q, append([]any{userID, eventID, now.UTC()}, args...)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireTx locks and removes every hold whose expires_at is not after now
// and returns them so the caller can free the seats in the same transaction.
// When there are no expired holds, it returns an empty slice and nil error.
func (r *SeatHoldRepo) ExpireTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.SeatHold, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT event_id, row_label, seat_number, user_id, hold_token, expires_at
		 FROM seat_holds WHERE expires_at <= ? FOR UPDATE`,
		now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	expired := []model.SeatHold{}
	for rows.Next() {
		var h model.SeatHold
		if scanErr := rows.Scan(&h.EventID, &h.RowLabel, &h.SeatNumber, &h.UserID, &h.HoldToken, &h.ExpiresAt); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		expired = append(expired, h)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return expired, nil
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE expires_at <= ?`, now.UTC()); err != nil {
		return nil, err
	}
	return expired, nil
}

// DeleteByEventTx drops all holds of an event; used by event deletion.
func (r *SeatHoldRepo) DeleteByEventTx(ctx context.Context, tx *sql.Tx, eventID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE event_id = ?`, eventID)
	return err
}
