package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// EventRepo provides CRUD for events.  Deleting an event removes its holds
// and seats explicitly instead of relying on ON DELETE CASCADE.
type EventRepo struct {
	db     *sql.DB
	holds  *SeatHoldRepo
	logger *logrus.Logger
}

func NewEventRepo(logger *logrus.Logger, db *sql.DB, holds *SeatHoldRepo) *EventRepo {
	return &EventRepo{db: db, holds: holds, logger: logger}
}

const eventColumns = `id, name, date, venue, start_time, end_time`

// Create inserts the event.  A taken id yields ErrDuplicate so callers can
// allocate the next one and retry.
func (r *EventRepo) Create(ctx context.Context, e model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Date.Format("2006-01-02"), e.Venue, e.StartTime, e.EndTime,
	)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("event_id", e.ID).Error("create event failed")
		return storageErr("create event", err)
	}
	return nil
}

// GetByID fetches one event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, storageErr("get event", err)
	}
	return e, nil
}

// List returns all events by date, start time, then id.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY date, start_time, id`)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	defer rows.Close()
	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, storageErr("list events: scan", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list events", err)
	}
	return events, nil
}

// NextID returns E-(max numeric suffix + 1), or E-2001 for an empty table.
func (r *EventRepo) NextID(ctx context.Context) (string, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(CAST(SUBSTRING(id, 3) AS UNSIGNED)) FROM events WHERE id LIKE 'E-%'`,
	).Scan(&max)
	if err != nil {
		return "", storageErr("next event id", err)
	}
	next := model.FirstEventNumber
	if max.Valid && int(max.Int64) >= next {
		next = int(max.Int64) + 1
	}
	return model.FormatEventID(next), nil
}

// Delete removes the event with its holds and seats in one transaction.  It
// refuses with ErrReferential while order items still reference the event;
// callers delete those first.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	err := withTx(ctx, r.db, "delete event", func(tx *sql.Tx) error {
		var items int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM order_items WHERE event_id = ?`, id,
		).Scan(&items); err != nil {
			return storageErr("delete event: count items", err)
		}
		if items > 0 {
			return ErrReferential
		}
		if err := r.holds.DeleteByEventTx(ctx, tx, id); err != nil {
			return storageErr("delete event: holds", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE event_id = ?`, id); err != nil {
			if isForeignKey(err) {
				return ErrReferential
			}
			return storageErr("delete event: seats", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return storageErr("delete event", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("delete event: rows affected", err)
		}
		if n == 0 {
			return ErrEventNotFound
		}
		return nil
	})
	if err != nil && IsStorage(err) {
		r.logger.WithContext(ctx).WithError(err).WithField("event_id", id).Error("delete event failed")
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (model.Event, error) {
	var e model.Event
	if err := s.Scan(&e.ID, &e.Name, &e.Date, &e.Venue, &e.StartTime, &e.EndTime); err != nil {
		return model.Event{}, err
	}
	e.StartTime = clockTime(e.StartTime)
	e.EndTime = clockTime(e.EndTime)
	return e, nil
}

// clockTime trims MySQL TIME "15:04:05" to "15:04".
func clockTime(s string) string {
	if parts := strings.Split(s, ":"); len(parts) >= 2 {
		return parts[0] + ":" + parts[1]
	}
	return s
}
