package repository

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

func TestEventDelete_RefusesWhileItemsExist(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM order_items WHERE event_id = ?`)).
		WithArgs("E-2001").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "E-2001")
	assert.ErrorIs(t, err, ErrReferential)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDelete_RemovesHoldsSeatsAndEvent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM order_items`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_holds WHERE event_id = ?`)).
		WithArgs("E-2001").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seats WHERE event_id = ?`)).
		WithArgs("E-2001").WillReturnResult(sqlmock.NewResult(0, 236))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM events WHERE id = ?`)).
		WithArgs("E-2001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "E-2001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDelete_ForeignKeyOnSeats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM order_items`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_holds`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seats`)).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), "E-2001"), ErrReferential)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDelete_Unknown(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM order_items`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_holds`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seats`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM events`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), "E-9999"), ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCreate_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
		WithArgs("E-2001", "Demo Event", "2025-10-08", "Main Hall", "02:00", "03:00").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), model.Event{
		ID: "E-2001", Name: "Demo Event", Date: time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC),
		Venue: "Main Hall", StartTime: "02:00", EndTime: "03:00",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventNextID(t *testing.T) {
	cases := []struct {
		name string
		max  any
		want string
	}{
		{"empty table", nil, "E-2001"},
		{"below floor", int64(12), "E-2001"},
		{"existing", int64(2007), "E-2008"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(CAST(SUBSTRING(id, 3) AS UNSIGNED))`)).
				WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(tc.max))

			id, err := repo.NextID(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestEventGetByID_TrimsSeconds(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))
	date := time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WithArgs("E-2001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date", "venue", "start_time", "end_time"}).
			AddRow("E-2001", "Demo Event", date, "Main Hall", "02:00:00", "03:00:00"))

	ev, err := repo.GetByID(context.Background(), "E-2001")
	require.NoError(t, err)
	assert.Equal(t, "02:00", ev.StartTime)
	assert.Equal(t, "03:00", ev.EndTime)
	assert.Equal(t, date, ev.Date)
}

func TestEventGetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date", "venue", "start_time", "end_time"}))

	_, err := repo.GetByID(context.Background(), "E-4040")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventSearch_FiltersAndPages(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM events WHERE date >= ? AND LOWER(name) LIKE ?`)).
		WithArgs("2026-05-01", "%concert%").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT ? OFFSET ?`)).
		WithArgs("2026-05-01", "%concert%", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date", "venue", "start_time", "end_time"}).
			AddRow("E-2003", "Winter Concert", time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), "Main Hall", "19:00:00", "21:00:00"))

	events, total, err := repo.Search(context.Background(), EventSearchQuery{
		Name: "Concert", From: from, Page: 2, PageSize: 2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, events, 1)
	assert.Equal(t, "E-2003", events[0].ID)
	assert.Equal(t, "19:00", events[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventSearch_OverflowingOffsetReturnsEmptyPage(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM events WHERE 1=1`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))

	events, total, err := repo.Search(context.Background(), EventSearchQuery{Page: math.MaxInt, PageSize: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
