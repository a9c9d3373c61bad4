package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SeatType is the pricing tier of a seat.
type SeatType string

const (
	SeatStandard SeatType = "STANDARD"
	SeatVIP      SeatType = "VIP"
)

// SeatStatus is the ledger state of a seat.  A RESERVED seat without a
// matching order item is a hold; with one it is sold.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatReserved  SeatStatus = "RESERVED"
)

// SeatKey is the natural identity of a seat within an event.
type SeatKey struct {
	RowLabel   string `json:"row_label"`
	SeatNumber int    `json:"seat_number"`
}

// DisplayID renders the key as "{row}-{seat:02d}", e.g. "A-01".
func (k SeatKey) DisplayID() string {
	return fmt.Sprintf("%s-%02d", k.RowLabel, k.SeatNumber)
}

func (k SeatKey) String() string { return k.DisplayID() }

// Seat describes one seat of an event.  Seats are identified by
// (EventID, RowLabel, SeatNumber) and are never renumbered.
//
// Fields:
//
//	EventID    – seats.event_id
//	RowLabel   – seats.row_label, "A".."N" for the default layout
//	SeatNumber – seats.seat_number, 1-based within the row
//	Type       – STANDARD or VIP
//	Status     – AVAILABLE or RESERVED
//	PriceCents – current price; order items keep their own copy
type Seat struct {
	EventID    string     `json:"event_id"`
	RowLabel   string     `json:"row_label"`
	SeatNumber int        `json:"seat_number"`
	Type       SeatType   `json:"type"`
	Status     SeatStatus `json:"status"`
	PriceCents int        `json:"price_cents"`
}

func (s Seat) Key() SeatKey { return SeatKey{RowLabel: s.RowLabel, SeatNumber: s.SeatNumber} }

func (s Seat) DisplayID() string { return s.Key().DisplayID() }

func (s Seat) Available() bool { return s.Status == SeatAvailable }

// ParseSeatID parses a display identifier such as "H-12" back into a key.
// The row must be 1..4 upper-case letters and the number positive.
func ParseSeatID(id string) (SeatKey, error) {
	i := strings.LastIndex(id, "-")
	if i <= 0 || i == len(id)-1 {
		return SeatKey{}, fmt.Errorf("invalid seat id %q", id)
	}
	row, num := id[:i], id[i+1:]
	if len(row) > 4 {
		return SeatKey{}, fmt.Errorf("invalid seat id %q: row label too long", id)
	}
	for _, r := range row {
		if r < 'A' || r > 'Z' {
			return SeatKey{}, fmt.Errorf("invalid seat id %q: bad row label", id)
		}
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return SeatKey{}, fmt.Errorf("invalid seat id %q: bad seat number", id)
	}
	return SeatKey{RowLabel: row, SeatNumber: n}, nil
}

// ParseSeatIDs parses every id and drops duplicates, keeping first-seen order.
func ParseSeatIDs(ids []string) ([]SeatKey, error) {
	keys := make([]SeatKey, 0, len(ids))
	seen := make(map[SeatKey]struct{}, len(ids))
	for _, id := range ids {
		k, err := ParseSeatID(strings.TrimSpace(id))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, nil
}

// LessSeat orders seats by row (shorter labels first, then lexical) and
// then by seat number, matching the seat map layout.
func LessSeat(a, b SeatKey) bool {
	if len(a.RowLabel) != len(b.RowLabel) {
		return len(a.RowLabel) < len(b.RowLabel)
	}
	if a.RowLabel != b.RowLabel {
		return a.RowLabel < b.RowLabel
	}
	return a.SeatNumber < b.SeatNumber
}
