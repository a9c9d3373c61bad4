package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

// DemoEvent is created on first start so the seat map has something to show.
var DemoEvent = model.Event{
	ID:        model.FormatEventID(model.FirstEventNumber),
	Name:      "Demo Event",
	Date:      time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC),
	Venue:     "Main Hall",
	StartTime: "02:00",
	EndTime:   "03:00",
}

var demoUsers = []struct{ username, password, role string }{
	{"admin", "admin123", model.RoleAdmin},
	{"user1", "password", model.RoleUser},
	{"user2", "password", model.RoleUser},
}

// SeedDemo creates the demo users and the demo event with its default seat
// grid.  Anything that already exists is left untouched.
func SeedDemo(ctx context.Context, logger *logrus.Logger, events EventStore, layout *LayoutGenerator, users UserSeeder, bcryptCost int) error {
	for _, u := range demoUsers {
		created, err := users.Ensure(ctx, u.username, u.password, u.role, bcryptCost)
		if err != nil {
			return err
		}
		if created {
			logger.WithContext(ctx).WithField("username", u.username).Info("seeded user")
		}
	}
	err := events.Create(ctx, DemoEvent)
	switch {
	case err == nil:
		logger.WithContext(ctx).WithField("event_id", DemoEvent.ID).Info("seeded demo event")
	case errors.Is(err, repository.ErrDuplicate):
	default:
		return err
	}
	return layout.EnsureSeatsExist(ctx, DemoEvent.ID)
}
