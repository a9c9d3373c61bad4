package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// EventSearchQuery filters and pages the public event list.  Name and Venue
// are case-insensitive substring matches; a zero From disables the date
// bound.
type EventSearchQuery struct {
	Name     string
	Venue    string
	From     time.Time
	Page     int
	PageSize int
}

// Search returns one page of matching events ordered like List, plus the
// total number of matches.
func (r *EventRepo) Search(ctx context.Context, q EventSearchQuery) ([]model.Event, int64, error) {
	where := []string{}
	args := []any{}

	if !q.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, q.From.Format("2006-01-02"))
	}
	if q.Name != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.Venue != "" {
		where = append(where, "LOWER(venue) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Venue)+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, storageErr("search events: count", err)
	}

	offset := (q.Page - 1) * q.PageSize
	if q.Page < 1 || q.PageSize < 1 || offset < 0 {
		return []model.Event{}, total, nil
	}
	dataArgs := append(append([]any{}, args...), q.PageSize, offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+cond+`
		ORDER BY date, start_time, id
		LIMIT ? OFFSET ?`, dataArgs...)
	if err != nil {
		return nil, 0, storageErr("search events", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0, q.PageSize)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, storageErr("search events: scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("search events", err)
	}
	return out, total, nil
}
