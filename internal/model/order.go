package model

import "time"

// Order binds a user to a set of seats at a point-in-time price.  Orders are
// written once and never updated.
type Order struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	BookedAt   time.Time `json:"booked_at"`
	TotalCents int       `json:"total_cents"`
}

// OrderItem is one seat of an order with its frozen price.
type OrderItem struct {
	ID         int64  `json:"id"`
	OrderID    int64  `json:"order_id"`
	EventID    string `json:"event_id"`
	RowLabel   string `json:"row_label"`
	SeatNumber int    `json:"seat_number"`
	PriceCents int    `json:"price_cents"`
}

func (i OrderItem) Key() SeatKey { return SeatKey{RowLabel: i.RowLabel, SeatNumber: i.SeatNumber} }

// SumItems totals the frozen prices of items.
func SumItems(items []OrderItem) int {
	total := 0
	for _, it := range items {
		total += it.PriceCents
	}
	return total
}
