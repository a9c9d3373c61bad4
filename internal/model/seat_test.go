package model

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatDisplayID(t *testing.T) {
	assert.Equal(t, "A-01", SeatKey{RowLabel: "A", SeatNumber: 1}.DisplayID())
	assert.Equal(t, "H-22", Seat{RowLabel: "H", SeatNumber: 22}.DisplayID())
	assert.Equal(t, "AA-101", SeatKey{RowLabel: "AA", SeatNumber: 101}.DisplayID())
}

func TestParseSeatID(t *testing.T) {
	k, err := ParseSeatID("H-12")
	require.NoError(t, err)
	assert.Equal(t, SeatKey{RowLabel: "H", SeatNumber: 12}, k)

	k, err = ParseSeatID("B-1")
	require.NoError(t, err)
	assert.Equal(t, "B-01", k.DisplayID())

	for _, bad := range []string{"", "A", "A-", "-1", "a-01", "A-0", "A--1", "ABCDE-1", "A-x", "1-1"} {
		_, err := ParseSeatID(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSeatIDs_DedupesInOrder(t *testing.T) {
	keys, err := ParseSeatIDs([]string{"B-02", " A-01 ", "B-2", "A-01"})
	require.NoError(t, err)
	assert.Equal(t, []SeatKey{{"B", 2}, {"A", 1}}, keys)

	_, err = ParseSeatIDs([]string{"A-01", "nope"})
	assert.Error(t, err)
}

func TestLessSeat(t *testing.T) {
	keys := []SeatKey{{"AA", 1}, {"B", 10}, {"B", 2}, {"Z", 1}, {"A", 3}}
	sort.Slice(keys, func(i, j int) bool { return LessSeat(keys[i], keys[j]) })
	assert.Equal(t, []SeatKey{{"A", 3}, {"B", 2}, {"B", 10}, {"Z", 1}, {"AA", 1}}, keys)
}

func TestNextEventID(t *testing.T) {
	assert.Equal(t, "E-2001", NextEventID(nil))
	assert.Equal(t, "E-2001", NextEventID([]string{"E-12", "junk"}))
	assert.Equal(t, "E-2010", NextEventID([]string{"E-2001", "E-2009", "E-2003"}))

	n, ok := EventNumber("E-2005")
	assert.True(t, ok)
	assert.Equal(t, 2005, n)
	_, ok = EventNumber("X-2005")
	assert.False(t, ok)
}

func TestSumItems(t *testing.T) {
	items := []OrderItem{{PriceCents: 1200}, {PriceCents: 2500}}
	assert.Equal(t, 3700, SumItems(items))
	assert.Zero(t, SumItems(nil))
}
