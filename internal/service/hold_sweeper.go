package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/clock"
)

// HoldSweeper periodically returns seats with lapsed holds to AVAILABLE.
// It only has work to do when the ledger records holds (HOLD_TTL > 0).
type HoldSweeper struct {
	holds    HoldExpirer
	cache    SeatMapCache
	clock    clock.Clock
	interval time.Duration
	logger   *logrus.Logger
}

func NewHoldSweeper(logger *logrus.Logger, holds HoldExpirer, cache SeatMapCache, clk clock.Clock, interval time.Duration) *HoldSweeper {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HoldSweeper{holds: holds, cache: cache, clock: clk, interval: interval, logger: logger}
}

// SweepOnce frees every seat whose hold expired and returns how many.
func (s *HoldSweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.holds.ReleaseExpiredHolds(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}
	events := map[string]int{}
	for _, h := range expired {
		events[h.EventID]++
	}
	for eventID, n := range events {
		if s.cache != nil {
			s.cache.Invalidate(ctx, eventID)
		}
		s.logger.WithContext(ctx).WithFields(logrus.Fields{
			"event_id": eventID,
			"seats":    n,
		}).Info("expired seat holds released")
	}
	return len(expired), nil
}

// Run sweeps every interval until ctx is done.
func (s *HoldSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithContext(ctx).WithError(err).Error("hold sweep failed")
			}
		}
	}
}
