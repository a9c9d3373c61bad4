package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/testutil"
)

func TestSeedDemo_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	seats := testutil.NewSeatStore()
	events := testutil.NewEventStore()
	users := testutil.NewUserStore()
	layout := service.NewLayoutGenerator(testutil.Logger(), seats, nil)

	require.NoError(t, service.SeedDemo(ctx, testutil.Logger(), events, layout, users, 4))
	require.NoError(t, service.SeedDemo(ctx, testutil.Logger(), events, layout, users, 4))

	ev, err := events.GetByID(ctx, "E-2001")
	require.NoError(t, err)
	assert.Equal(t, "Demo Event", ev.Name)
	assert.Equal(t, "02:00", ev.StartTime)

	n, err := seats.CountAvailable(ctx, "E-2001")
	require.NoError(t, err)
	assert.Equal(t, 236, n)

	require.Len(t, users.Users, 3)
	assert.Equal(t, model.RoleAdmin, users.Users["admin"].Role)
	assert.Equal(t, model.RoleUser, users.Users["user1"].Role)
}
