package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Default seat grid: 14 rows, A..N, widest in the middle.
var DefaultRowWidths = []int{10, 12, 14, 16, 18, 20, 22, 22, 22, 20, 18, 16, 14, 12}

const (
	DefaultVIPRowIndex        = 7 // row H
	DefaultStandardPriceCents = 1200
	DefaultVIPPriceCents      = 2500
)

// DefaultVIPRows are the rows priced as VIP when an event is created
// without an explicit choice.
var DefaultVIPRows = []string{"G", "H"}

// RowLabel converts a zero-based row index to A, B, ..., Z, AA, AB, ...
func RowLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}

// GenerateDefaultLayout returns the default grid for eventID, every seat
// AVAILABLE.  It has no side effects.
func GenerateDefaultLayout(eventID string) []model.Seat {
	total := 0
	for _, w := range DefaultRowWidths {
		total += w
	}
	seats := make([]model.Seat, 0, total)
	for r, width := range DefaultRowWidths {
		typ, price := model.SeatStandard, DefaultStandardPriceCents
		if r == DefaultVIPRowIndex {
			typ, price = model.SeatVIP, DefaultVIPPriceCents
		}
		row := RowLabel(r)
		for n := 1; n <= width; n++ {
			seats = append(seats, model.Seat{
				EventID:    eventID,
				RowLabel:   row,
				SeatNumber: n,
				Type:       typ,
				Status:     model.SeatAvailable,
				PriceCents: price,
			})
		}
	}
	return seats
}

// LayoutGenerator seeds seat grids and applies row pricing.
type LayoutGenerator struct {
	seats  SeatStore
	cache  SeatMapCache
	group  singleflight.Group
	logger *logrus.Logger
}

func NewLayoutGenerator(logger *logrus.Logger, seats SeatStore, cache SeatMapCache) *LayoutGenerator {
	return &LayoutGenerator{seats: seats, cache: cache, logger: logger}
}

// seedTimeout bounds one shared seeding run.
const seedTimeout = 15 * time.Second

// EnsureSeatsExist seeds the default grid the first time an event is seen
// and does nothing afterwards.  Concurrent callers in this process share one
// seeding run; callers in other processes are absorbed by INSERT IGNORE.
// The shared run is detached from any one caller's context, so a caller
// that gives up returns its own ctx error without failing the others.
func (g *LayoutGenerator) EnsureSeatsExist(ctx context.Context, eventID string) error {
	if eventID == "" {
		return invalid("event_id", "required")
	}
	ch := g.group.DoChan(eventID, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), seedTimeout)
		defer cancel()
		return nil, g.seed(sctx, eventID)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *LayoutGenerator) seed(ctx context.Context, eventID string) error {
	has, err := g.seats.HasSeats(ctx, eventID)
	if err != nil || has {
		return err
	}
	n, err := g.seats.InsertIgnore(ctx, GenerateDefaultLayout(eventID))
	if err != nil {
		return err
	}
	if n > 0 {
		g.logger.WithContext(ctx).WithFields(logrus.Fields{
			"event_id": eventID,
			"seats":    n,
		}).Info("seeded default seat layout")
		if g.cache != nil {
			g.cache.Invalidate(ctx, eventID)
		}
	}
	return nil
}

// SetRowPricing makes vipRows VIP at vipPriceCents and every other row
// STANDARD at standardPriceCents.  Items of existing orders keep their
// prices; only later reservations see the new ones.
func (g *LayoutGenerator) SetRowPricing(ctx context.Context, eventID string, vipRows []string, vipPriceCents, standardPriceCents int) error {
	if eventID == "" {
		return invalid("event_id", "required")
	}
	if vipPriceCents <= 0 {
		return invalid("vip_price_cents", "must be positive")
	}
	if standardPriceCents <= 0 {
		return invalid("standard_price_cents", "must be positive")
	}
	rows, err := normalizeRows(vipRows)
	if err != nil {
		return err
	}
	if err := g.seats.SetRowPricing(ctx, eventID, rows, vipPriceCents, standardPriceCents); err != nil {
		return err
	}
	if g.cache != nil {
		g.cache.Invalidate(ctx, eventID)
	}
	g.logger.WithContext(ctx).WithFields(logrus.Fields{
		"event_id": eventID,
		"vip_rows": rows,
	}).Info("row pricing applied")
	return nil
}

func normalizeRows(rows []string) ([]string, error) {
	out := make([]string, 0, len(rows))
	seen := map[string]bool{}
	for _, r := range rows {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if len(r) > 4 {
			return nil, invalid("vip_rows", "row label %q too long", r)
		}
		for _, c := range r {
			if c < 'A' || c > 'Z' {
				return nil, invalid("vip_rows", "row label %q must be letters", r)
			}
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out, nil
}
