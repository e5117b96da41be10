package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/mstools/internal/synth"
	"github.com/leapstack-labs/mstools/internal/testutil"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/adapters/memory"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/stretchr/testify/require"
)

const testPath = "test.ms"

var circular = []core.Stokes{core.StokesRR, core.StokesRL, core.StokesLR, core.StokesLL}

// defaultDataset is the synthetic 4 antenna, 2 subband, 8 channel dataset.
func defaultDataset(t *testing.T, mutate func(*synth.Options)) *synth.Dataset {
	t.Helper()
	opts := synth.DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	d, err := synth.Generate(opts)
	require.NoError(t, err)
	return d
}

// handmadeDataset wraps rows in the metadata of a three antenna array.
func handmadeDataset(pols []core.Stokes, nchan int, rows []synth.Row) *synth.Dataset {
	return &synth.Dataset{
		Project:         "EM001",
		Observer:        "EM001",
		Antennas:        synth.DefaultAntennas()[:3],
		Polarizations:   pols,
		Sources:         []string{"3C84", "J0329+5430"},
		SpectralWindows: []synth.SpectralWindow{{NumChan: nchan, RefFrequency: 4.8e9, TotalBandwidth: 32e6}},
		TimeRange:       core.TimeWindow{Start: t0, End: t0 + 100},
		Rows:            rows,
	}
}

// weightRows builds single-channel rows on baseline (0,1), one per weight.
func weightRows(weights []float64) []synth.Row {
	rows := make([]synth.Row, len(weights))
	for i, w := range weights {
		rows[i] = synth.Row{
			Antenna1: 0,
			Antenna2: 1,
			Time:     t0 + float64(i),
			Data:     []complex128{complex(float64(i), 0)},
			Flag:     []bool{false},
			Weight:   []float64{w},
		}
	}
	return rows
}

// setup writes d to a memory store and returns an engine over it.
func setup(t *testing.T, d *synth.Dataset, mutate func(*Config)) (*Engine, adapter.Store) {
	t.Helper()
	store := memory.New(nil)
	require.NoError(t, synth.Write(context.Background(), store, testPath, d))
	return newEngine(t, store, mutate), store
}

func newEngine(t *testing.T, store adapter.Store, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := Config{Backend: store, Logger: testutil.NewTestLogger(t)}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// readAll reads a whole MAIN column.
func readAll[T core.Element](t *testing.T, store adapter.Store, name string) *core.Array[T] {
	t.Helper()
	ctx := context.Background()
	h, err := store.Open(ctx, testPath, true)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	n, err := h.RowCount(ctx)
	require.NoError(t, err)
	col, err := h.ReadColumn(ctx, name, 0, n)
	require.NoError(t, err)
	arr, err := core.As[T](col)
	require.NoError(t, err)
	return arr
}

var errDiskFull = errors.New("disk full")

// faultyStore lets a fixed number of column writes through, then fails.
// A multi-column write that would exceed the budget fails as a whole,
// like a rolled back transaction.
type faultyStore struct {
	adapter.Store
	allowed int
	writes  int
}

func (s *faultyStore) Open(ctx context.Context, path string, readonly bool) (adapter.Handle, error) {
	h, err := s.Store.Open(ctx, path, readonly)
	if err != nil {
		return nil, err
	}
	return &faultyHandle{Handle: h, store: s}, nil
}

type faultyHandle struct {
	adapter.Handle
	store *faultyStore
}

func (h *faultyHandle) WriteColumn(ctx context.Context, name string, col core.Column, start int) error {
	return h.WriteColumns(ctx, map[string]core.Column{name: col}, start)
}

func (h *faultyHandle) WriteColumns(ctx context.Context, cols map[string]core.Column, start int) error {
	if h.store.writes+len(cols) > h.store.allowed {
		h.store.writes = h.store.allowed
		return errDiskFull
	}
	h.store.writes += len(cols)
	return h.Handle.WriteColumns(ctx, cols, start)
}
