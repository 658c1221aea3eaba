package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/dtosim/internal/stats"
)

func sample() *Series {
	s := New(nil)
	for tick := uint64(1); tick <= 5; tick++ {
		s.Append(Record{
			Tick:             tick,
			Viable:           tick < 4,
			Members:          int(10 - tick),
			StockTraffickers: 1,
			StockRetailers:   float64(tick),
			Network:          stats.Metrics{Components: int(tick)},
		})
	}
	return s
}

func TestColumns(t *testing.T) {
	s := sample()
	cols := s.Columns()
	assert.Len(t, cols, len(Names()))
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, cols["tick"])
	assert.Equal(t, []float64{1, 1, 1, 0, 0}, cols["viable"])
	assert.Equal(t, []float64{9, 8, 7, 6, 5}, cols["members"])
	assert.Equal(t, []float64{2, 3, 4, 5, 6}, cols["stock"])
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, cols["components"])

	col, ok := s.Column("members")
	require.True(t, ok)
	assert.Equal(t, cols["members"], col)
	_, ok = s.Column("nope")
	assert.False(t, ok)
}

func TestNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, n := range Names() {
		assert.False(t, seen[n], "duplicate column %s", n)
		seen[n] = true
	}
}

func TestSinceAndLast(t *testing.T) {
	s := sample()
	got := s.Since(3)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(4), got[0].Tick)
	assert.Len(t, s.Since(0), 5)
	assert.Empty(t, s.Since(5))

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(5), last.Tick)

	_, ok = New(nil).Last()
	assert.False(t, ok)
}

func TestRecordsAreCopies(t *testing.T) {
	s := sample()
	recs := s.Records()
	recs[0].Members = 100
	again := s.Records()
	assert.Equal(t, 9, again[0].Members)
}
