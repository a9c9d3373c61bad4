package testutil

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Logger returns a logrus logger that discards output.
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// DemoSeats returns AVAILABLE seats for eventID: for each row label, count
// seats priced at cents.
func DemoSeats(eventID string, cents int, count int, rows ...string) []model.Seat {
	var out []model.Seat
	for _, r := range rows {
		for n := 1; n <= count; n++ {
			out = append(out, model.Seat{
				EventID:    eventID,
				RowLabel:   r,
				SeatNumber: n,
				Type:       model.SeatStandard,
				Status:     model.SeatAvailable,
				PriceCents: cents,
			})
		}
	}
	return out
}
