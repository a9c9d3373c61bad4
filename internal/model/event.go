package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventIDPrefix and FirstEventNumber define the "E-2001" style identifiers.
const (
	EventIDPrefix    = "E-"
	FirstEventNumber = 2001
)

// Event is a ticketed event.  Seat counts are derived from the seats table
// and never stored here.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Venue     string    `json:"venue"`
	StartTime string    `json:"start_time"` // HH:MM
	EndTime   string    `json:"end_time"`   // HH:MM
}

// EventAvailability is a dashboard row: an event and its free seat count.
type EventAvailability struct {
	EventID   string    `json:"event_id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Available int       `json:"available"`
}

// EventNumber extracts the numeric suffix of an "E-<n>" id.
func EventNumber(id string) (int, bool) {
	if !strings.HasPrefix(id, EventIDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(EventIDPrefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// FormatEventID is the inverse of EventNumber.
func FormatEventID(n int) string { return fmt.Sprintf("%s%d", EventIDPrefix, n) }

// NextEventID returns E-(max+1) over the given ids, or E-2001 when none parse.
func NextEventID(ids []string) string {
	max := FirstEventNumber - 1
	for _, id := range ids {
		if n, ok := EventNumber(id); ok && n > max {
			max = n
		}
	}
	return FormatEventID(max + 1)
}
