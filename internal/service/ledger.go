package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/clock"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Ledger is the only path that changes seat status.  It validates seat ids,
// delegates the atomic transition to the SeatStore and drops cached seat
// maps after every change.
type Ledger struct {
	seats   SeatStore
	cache   SeatMapCache
	clock   clock.Clock
	holdTTL time.Duration
	logger  *logrus.Logger
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithHoldTTL turns on hold expiry: each reservation is recorded with an
// expiry of now+ttl.  Zero disables it.
func WithHoldTTL(ttl time.Duration) LedgerOption {
	return func(l *Ledger) { l.holdTTL = ttl }
}

func WithLedgerClock(c clock.Clock) LedgerOption {
	return func(l *Ledger) { l.clock = c }
}

func WithLedgerCache(c SeatMapCache) LedgerOption {
	return func(l *Ledger) { l.cache = c }
}

func NewLedger(logger *logrus.Logger, seats SeatStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{seats: seats, clock: clock.NewSystem(), logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ReserveAtomic moves every listed seat from AVAILABLE to RESERVED for
// userID, or none of them.  A taken or unknown seat yields (false, nil);
// storage failures come back as errors, never as false.
func (l *Ledger) ReserveAtomic(ctx context.Context, userID, eventID string, seatIDs []string) (bool, error) {
	if userID == "" {
		return false, invalid("user_id", "required")
	}
	if eventID == "" {
		return false, invalid("event_id", "required")
	}
	keys, err := model.ParseSeatIDs(seatIDs)
	if err != nil {
		return false, invalid("seats", "%v", err)
	}
	if len(keys) == 0 {
		return true, nil
	}
	var holdUntil time.Time
	if l.holdTTL > 0 {
		holdUntil = l.clock.Now().Add(l.holdTTL)
	}
	ok, err := l.seats.ReserveAtomic(ctx, userID, eventID, keys, holdUntil)
	if err != nil {
		return false, err
	}
	if ok {
		l.invalidate(ctx, eventID)
		l.logger.WithContext(ctx).WithFields(logrus.Fields{
			"event_id": eventID,
			"user_id":  userID,
			"seats":    seatIDs,
		}).Info("seats reserved")
	}
	return ok, nil
}

// Release returns seats to AVAILABLE.  Already-available seats are left as
// they are and do not cause an error.
func (l *Ledger) Release(ctx context.Context, eventID string, seatIDs []string) error {
	if eventID == "" {
		return invalid("event_id", "required")
	}
	keys, err := model.ParseSeatIDs(seatIDs)
	if err != nil {
		return invalid("seats", "%v", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := l.seats.Release(ctx, eventID, keys); err != nil {
		return err
	}
	l.invalidate(ctx, eventID)
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"event_id": eventID,
		"seats":    seatIDs,
	}).Info("seats released")
	return nil
}

// ReleaseOwned releases seats on behalf of userID and returns the ids it
// freed.  Without hold expiry a reserved seat can only be the caller's, so
// it is a plain Release.  With expiry, a lapsed hold may have been taken and
// sold by someone else; only seats the caller still holds are freed.
func (l *Ledger) ReleaseOwned(ctx context.Context, userID, eventID string, seatIDs []string) ([]string, error) {
	if userID == "" {
		return nil, invalid("user_id", "required")
	}
	if eventID == "" {
		return nil, invalid("event_id", "required")
	}
	keys, err := model.ParseSeatIDs(seatIDs)
	if err != nil {
		return nil, invalid("seats", "%v", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	if l.holdTTL <= 0 {
		if err := l.Release(ctx, eventID, seatIDs); err != nil {
			return nil, err
		}
		return displayIDs(keys), nil
	}
	freed, err := l.seats.ReleaseOwned(ctx, userID, eventID, keys)
	if err != nil {
		return nil, err
	}
	ids := displayIDs(freed)
	if len(freed) > 0 {
		l.invalidate(ctx, eventID)
	}
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"event_id":  eventID,
		"user_id":   userID,
		"requested": len(keys),
		"freed":     ids,
	}).Info("held seats released")
	return ids, nil
}

func displayIDs(keys []model.SeatKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.DisplayID())
	}
	return out
}

// FindByEvent returns the event's seats ordered by row then number.
func (l *Ledger) FindByEvent(ctx context.Context, eventID string) ([]model.Seat, error) {
	return l.seats.FindByEvent(ctx, eventID)
}

func (l *Ledger) CountAvailable(ctx context.Context, eventID string) (int, error) {
	return l.seats.CountAvailable(ctx, eventID)
}

// AvailabilityByEvent feeds the admin dashboard.
func (l *Ledger) AvailabilityByEvent(ctx context.Context) ([]model.EventAvailability, error) {
	return l.seats.AvailabilityByEvent(ctx)
}

func (l *Ledger) invalidate(ctx context.Context, eventID string) {
	if l.cache != nil {
		l.cache.Invalidate(ctx, eventID)
	}
}
