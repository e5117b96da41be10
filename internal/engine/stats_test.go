package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagStats(t *testing.T) {
	var s FlagStats
	for _, w := range []float64{0.05, 0.20, 0.05, 0.50, 0.09} {
		s.Observe(w, w < 0.10, false)
	}

	matched, pct, pctNonzero := s.Summary()
	assert.Equal(t, int64(3), matched)
	assert.InDelta(t, 60.0, pct, 1e-9)
	assert.InDelta(t, 60.0, pctNonzero, 1e-9)
}

func TestFlagStats_ZeroWeights(t *testing.T) {
	var s FlagStats
	s.Observe(0, true, true)
	s.Observe(0, true, false)
	s.Observe(0.05, true, false)
	s.Observe(0.5, false, false)

	assert.Equal(t, int64(4), s.Examined)
	assert.Equal(t, int64(2), s.Nonzero)
	assert.Equal(t, int64(1), s.MatchedNonzero)
	assert.Equal(t, int64(1), s.AlreadyFlagged)
	assert.Equal(t, int64(2), s.NewlyFlagged())
	assert.InDelta(t, 75.0, s.Percent(), 1e-9)
	assert.InDelta(t, 50.0, s.PercentNonzero(), 1e-9)
}

func TestFlagStats_Empty(t *testing.T) {
	var s FlagStats
	matched, pct, pctNonzero := s.Summary()
	assert.Zero(t, matched)
	assert.Zero(t, pct)
	assert.Zero(t, pctNonzero)
}
