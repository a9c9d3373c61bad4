package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/clock"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/testutil"
)

func newLedger(t *testing.T, opts ...service.LedgerOption) (*service.Ledger, *testutil.SeatStore) {
	t.Helper()
	seats := testutil.NewSeatStore()
	seats.Put(testutil.DemoSeats("E-2001", 1200, 4, "A", "B")...)
	return service.NewLedger(testutil.Logger(), seats, opts...), seats
}

func statusOf(t *testing.T, seats *testutil.SeatStore, id string) model.SeatStatus {
	t.Helper()
	s, ok := seats.Seat("E-2001", id)
	require.True(t, ok, "seat %s", id)
	return s.Status
}

func TestLedger_ReserveIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	ledger, seats := newLedger(t)

	ok, err := ledger.ReserveAtomic(ctx, "user1", "E-2001", []string{"A-02"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ledger.ReserveAtomic(ctx, "user2", "E-2001", []string{"A-01", "A-02", "A-03"})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, model.SeatAvailable, statusOf(t, seats, "A-01"))
	assert.Equal(t, model.SeatReserved, statusOf(t, seats, "A-02"))
	assert.Equal(t, model.SeatAvailable, statusOf(t, seats, "A-03"))
}

func TestLedger_UnknownSeatIsContention(t *testing.T) {
	ledger, seats := newLedger(t)

	ok, err := ledger.ReserveAtomic(context.Background(), "user1", "E-2001", []string{"A-01", "Z-99"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.SeatAvailable, statusOf(t, seats, "A-01"))
}

func TestLedger_ReserveValidation(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)

	_, err := ledger.ReserveAtomic(ctx, "", "E-2001", []string{"A-01"})
	assert.True(t, service.IsValidation(err))

	_, err = ledger.ReserveAtomic(ctx, "user1", "", []string{"A-01"})
	assert.True(t, service.IsValidation(err))

	_, err = ledger.ReserveAtomic(ctx, "user1", "E-2001", []string{"a1"})
	assert.True(t, service.IsValidation(err))

	ok, err := ledger.ReserveAtomic(ctx, "user1", "E-2001", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_StorageErrorIsNotContention(t *testing.T) {
	ledger, seats := newLedger(t)
	boom := errors.New("connection refused")
	seats.Err = boom

	ok, err := ledger.ReserveAtomic(context.Background(), "user1", "E-2001", []string{"A-01"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestLedger_ReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger, seats := newLedger(t)

	ok, err := ledger.ReserveAtomic(ctx, "user1", "E-2001", []string{"B-01", "B-02"})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, ledger.Release(ctx, "E-2001", []string{"B-01", "B-02"}))
	require.NoError(t, ledger.Release(ctx, "E-2001", []string{"B-01", "B-02"}))
	assert.Equal(t, model.SeatAvailable, statusOf(t, seats, "B-01"))
	assert.Equal(t, model.SeatAvailable, statusOf(t, seats, "B-02"))

	ok, err = ledger.ReserveAtomic(ctx, "user2", "E-2001", []string{"B-01"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_ConcurrentOverlappingReservations(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)

	const callers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids := []string{"A-01", "A-02"}
			if i%2 == 1 {
				ids = []string{"A-02", "A-03"}
			}
			ok, err := ledger.ReserveAtomic(ctx, "user", "E-2001", ids)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestLedger_InvalidatesCacheOnMutation(t *testing.T) {
	ctx := context.Background()
	cache := &testutil.Cache{}
	ledger, _ := newLedger(t, service.WithLedgerCache(cache))

	ok, err := ledger.ReserveAtomic(ctx, "user1", "E-2001", []string{"A-01"})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = ledger.ReserveAtomic(ctx, "user2", "E-2001", []string{"A-01"})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, ledger.Release(ctx, "E-2001", []string{"A-01"}))

	assert.Equal(t, []string{"E-2001", "E-2001"}, cache.Events())
}

func TestLedger_RecordsHoldsWhenTTLSet(t *testing.T) {
	now := time.Date(2025, 10, 8, 1, 0, 0, 0, time.UTC)
	ledger, seats := newLedger(t,
		service.WithHoldTTL(10*time.Minute),
		service.WithLedgerClock(clock.NewManual(now)),
	)

	ok, err := ledger.ReserveAtomic(context.Background(), "user1", "E-2001", []string{"A-01"})
	require.NoError(t, err)
	require.True(t, ok)

	holds := seats.Holds()
	require.Len(t, holds, 1)
	assert.Equal(t, "user1", holds[0].UserID)
	assert.Equal(t, now.Add(10*time.Minute), holds[0].ExpiresAt)
}

func TestLedger_CountAvailable(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)

	ok, err := ledger.ReserveAtomic(ctx, "user1", "E-2001", []string{"A-01", "B-04"})
	require.NoError(t, err)
	require.True(t, ok)

	n, err := ledger.CountAvailable(ctx, "E-2001")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestLedger_ReleaseOwnedSkipsOtherUsersHolds(t *testing.T) {
	ctx := context.Background()
	seats := testutil.NewSeatStore()
	seats.Put(testutil.DemoSeats("E-2001", 1200, 2, "A")...)
	ledger := service.NewLedger(testutil.Logger(), seats, service.WithHoldTTL(time.Minute))

	ok, err := ledger.ReserveAtomic(ctx, "user1", "E-2001", []string{"A-01"})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = ledger.ReserveAtomic(ctx, "user2", "E-2001", []string{"A-02"})
	require.NoError(t, err)
	require.True(t, ok)

	freed, err := ledger.ReleaseOwned(ctx, "user1", "E-2001", []string{"A-01", "A-02"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A-01"}, freed)

	a2, _ := seats.Seat("E-2001", "A-02")
	assert.Equal(t, model.SeatReserved, a2.Status)

	_, err = ledger.ReleaseOwned(ctx, "", "E-2001", []string{"A-01"})
	assert.True(t, service.IsValidation(err))
}

func TestLedger_ReleaseOwnedWithoutHoldsIsPlainRelease(t *testing.T) {
	ctx := context.Background()
	seats := testutil.NewSeatStore()
	seats.Put(testutil.DemoSeats("E-2001", 1200, 2, "A")...)
	ledger := service.NewLedger(testutil.Logger(), seats)

	ok, err := ledger.ReserveAtomic(ctx, "user1", "E-2001", []string{"A-01"})
	require.NoError(t, err)
	require.True(t, ok)

	freed, err := ledger.ReleaseOwned(ctx, "user1", "E-2001", []string{"A-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A-01"}, freed)
	n, err := ledger.CountAvailable(ctx, "E-2001")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
