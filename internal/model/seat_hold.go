package model

import "time"

// SeatHold records who holds a RESERVED seat and until when.  Holds are only
// written when hold expiry is enabled.
type SeatHold struct {
	EventID    string
	RowLabel   string
	SeatNumber int
	UserID     string
	HoldToken  string
	ExpiresAt  time.Time
}

func (h SeatHold) Key() SeatKey { return SeatKey{RowLabel: h.RowLabel, SeatNumber: h.SeatNumber} }
