// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// OrderCommittedEvent is published once an order and its items are durable.
// It carries enough for downstream consumers to log or notify without
// reading the primary database.
type OrderCommittedEvent struct {
	OrderID    int64    `json:"order_id"`
	UserID     string   `json:"user_id"`
	EventID    string   `json:"event_id"`
	Seats      []string `json:"seats"`
	TotalCents int      `json:"total_cents"`
	BookedAt   string   `json:"booked_at"` // RFC 3339, UTC
}
