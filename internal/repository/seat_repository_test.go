package repository

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var (
	reserveSQL = regexp.QuoteMeta(`UPDATE seats SET status = 'RESERVED'`)
	releaseSQL = regexp.QuoteMeta(`UPDATE seats SET status = 'AVAILABLE'`)
	twoSeats   = []model.SeatKey{{RowLabel: "A", SeatNumber: 1}, {RowLabel: "A", SeatNumber: 2}}
)

func TestReserveAtomic_CommitsWhenEverySeatFlips(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).
		WithArgs("E-2001", "A", 1, "A", 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ok, err := repo.ReserveAtomic(context.Background(), "user1", "E-2001", twoSeats, time.Time{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAtomic_RollsBackOnShortCount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	ok, err := repo.ReserveAtomic(context.Background(), "user1", "E-2001", twoSeats, time.Time{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAtomic_StorageFailureIsAnError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WillReturnError(errors.New("bad connection"))
	mock.ExpectRollback()

	ok, err := repo.ReserveAtomic(context.Background(), "user1", "E-2001", twoSeats, time.Time{})
	assert.False(t, ok)
	assert.True(t, IsStorage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAtomic_BeginFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	ok, err := repo.ReserveAtomic(context.Background(), "user1", "E-2001", twoSeats, time.Time{})
	assert.False(t, ok)
	assert.True(t, IsStorage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAtomic_WritesHoldsInSameTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))
	until := time.Date(2025, 10, 8, 2, 10, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_holds`)).
		WithArgs("E-2001", "A", 1, "user1", sqlmock.AnyArg(), until,
			"E-2001", "A", 2, "user1", sqlmock.AnyArg(), until).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ok, err := repo.ReserveAtomic(context.Background(), "user1", "E-2001", twoSeats, until)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_DropsHoldsAndCommits(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))

	// Zero rows affected is fine: the seats were already available.
	mock.ExpectBegin()
	mock.ExpectExec(releaseSQL).WithArgs("E-2001", "A", 1, "A", 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_holds WHERE event_id = ?`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.Release(context.Background(), "E-2001", twoSeats))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEvent_ScansSeats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))

	rows := sqlmock.NewRows([]string{"event_id", "row_label", "seat_number", "type", "status", "price_cents"}).
		AddRow("E-2001", "A", 1, "STANDARD", "AVAILABLE", 1200).
		AddRow("E-2001", "H", 3, "VIP", "RESERVED", 2500)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM seats WHERE event_id = ?`)).WithArgs("E-2001").WillReturnRows(rows)

	seats, err := repo.FindByEvent(context.Background(), "E-2001")
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, model.SeatVIP, seats[1].Type)
	assert.Equal(t, model.SeatReserved, seats[1].Status)
	assert.Equal(t, "H-03", seats[1].DisplayID())
}

func TestReleaseExpiredHolds(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))
	now := time.Date(2025, 10, 8, 2, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM seat_holds WHERE expires_at <= ? FOR UPDATE`)).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "row_label", "seat_number", "user_id", "hold_token", "expires_at"}).
			AddRow("E-2001", "A", 1, "user1", "tok", now.Add(-time.Minute)))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_holds WHERE expires_at <= ?`)).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = 'AVAILABLE'`)).
		WithArgs("E-2001", "A", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	holds, err := repo.ReleaseExpiredHolds(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, "user1", holds[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseOwned_FreesOnlyCallersUnsoldHolds(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT h.row_label, h.seat_number FROM seat_holds h`)).
		WithArgs("user1", "E-2001", "A", 1, "A", 2).
		WillReturnRows(sqlmock.NewRows([]string{"row_label", "seat_number"}).AddRow("A", 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = 'AVAILABLE'`) + `.*` + regexp.QuoteMeta(`status = 'RESERVED'`)).
		WithArgs("E-2001", "A", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_holds WHERE event_id = ?`)).
		WithArgs("E-2001", "A", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	freed, err := repo.ReleaseOwned(context.Background(), "user1", "E-2001", twoSeats)
	require.NoError(t, err)
	assert.Equal(t, []model.SeatKey{{RowLabel: "A", SeatNumber: 2}}, freed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseOwned_LockQuerySkipsSoldSeats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(quietLogger(), db, NewSeatHoldRepo(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE h.user_id = \? AND h.event_id = \?.*NOT EXISTS \(SELECT 1 FROM order_items oi.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"row_label", "seat_number"}))
	mock.ExpectCommit()

	freed, err := repo.ReleaseOwned(context.Background(), "user1", "E-2001", twoSeats)
	require.NoError(t, err)
	assert.Empty(t, freed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
