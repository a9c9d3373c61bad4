package repository

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/database"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Runs against a real server only when TEST_MYSQL_DSN is set, e.g.
// "root:pw@tcp(127.0.0.1:3306)/booking_test?parseTime=true&loc=UTC".
func TestMySQL_ConcurrentReserveHasOneWinner(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := database.OpenDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db))

	holds := NewSeatHoldRepo(db)
	seats := NewSeatRepo(quietLogger(), db, holds)
	events := NewEventRepo(quietLogger(), db, holds)

	id := "E-" + uuid.NewString()[:8]
	require.NoError(t, events.Create(ctx, model.Event{
		ID: id, Name: "Integration", Date: time.Now().UTC().Truncate(24 * time.Hour),
		Venue: "Lab", StartTime: "10:00", EndTime: "11:00",
	}))
	t.Cleanup(func() { _ = events.Delete(context.Background(), id) })

	_, err = seats.InsertIgnore(ctx, []model.Seat{
		{EventID: id, RowLabel: "A", SeatNumber: 1, Type: model.SeatStandard, Status: model.SeatAvailable, PriceCents: 1200},
		{EventID: id, RowLabel: "A", SeatNumber: 2, Type: model.SeatStandard, Status: model.SeatAvailable, PriceCents: 1200},
	})
	require.NoError(t, err)

	keys := []model.SeatKey{{RowLabel: "A", SeatNumber: 1}, {RowLabel: "A", SeatNumber: 2}}
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := seats.ReserveAtomic(ctx, uuid.NewString(), id, keys, time.Time{})
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())

	n, err := seats.CountAvailable(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
}
