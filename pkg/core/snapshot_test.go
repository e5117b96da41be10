package core

import (
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	s, err := NewSnapshot(SnapshotParams{
		Project:       "EG001",
		AntennaNames:  []string{"Ef", "Wb", "Jb"},
		Polarizations: []Stokes{StokesRR, StokesRL, StokesLR, StokesLL},
		OneBit:        []int{1, 7},
		Scans:         map[string]TimeWindow{"No0002": {Start: 100, End: 200}, "No0001": {Start: 0, End: 99}},
		Sources:       []string{"3C84", "J0102+5824"},
		Observation:   TimeWindow{Start: 0, End: 200},
	})
	require.NoError(t, err)
	return s
}

func TestSnapshot_AntennaLookup(t *testing.T) {
	s := testSnapshot(t)

	id, err := s.AntennaID("EF")
	require.NoError(t, err)
	assert.Equal(t, 0, id, "lookup is case-insensitive")

	id, err = s.AntennaID("jb")
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	_, err = s.AntennaID("Mc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAntenna))
	assert.Contains(t, err.Error(), "Ef, Wb, Jb")
	assert.Equal(t, "Wb", s.Antennas().Name(1))
	assert.Equal(t, "", s.Antennas().Name(9))
}

func TestSnapshot_OneBit(t *testing.T) {
	s := testSnapshot(t)

	assert.True(t, s.IsOneBit(1))
	assert.False(t, s.IsOneBit(0))
	assert.False(t, s.IsOneBit(7), "ids outside the catalog are dropped")
	assert.Equal(t, uint64(1), s.OneBitAntennas().GetCardinality())

	replaced := s.WithOneBit(roaring.BitmapOf(0, 2))
	assert.True(t, replaced.IsOneBit(0))
	assert.False(t, replaced.IsOneBit(1))
	assert.True(t, s.IsOneBit(1), "original snapshot is unchanged")
}

func TestSnapshot_ScansAndSources(t *testing.T) {
	s := testSnapshot(t)

	w, err := s.ScanWindow("No0002")
	require.NoError(t, err)
	assert.Equal(t, 100.0, w.Start)
	assert.Equal(t, []string{"No0001", "No0002"}, s.ScanNames())

	_, err = s.ScanWindow("No0003")
	assert.True(t, errors.Is(err, ErrUnknownScan))

	id, err := s.SourceID("J0102+5824")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = s.SourceID("M87")
	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestNewSnapshot_BadPolarization(t *testing.T) {
	_, err := NewSnapshot(SnapshotParams{AntennaNames: []string{"Ef"}, Polarizations: []Stokes{StokesI}})
	assert.True(t, errors.Is(err, ErrUnsupportedPolarization))
}

func TestTableAccessError(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewTableAccessError("read", "obs.ms", "DATA", cause)

	assert.True(t, errors.Is(err, ErrTableAccess))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "DATA")

	assert.Same(t, err, NewTableAccessError("write", "other", "", err), "already wrapped errors pass through")
	assert.NoError(t, NewTableAccessError("read", "x", "", nil))
}
