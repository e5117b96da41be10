package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/mstools/internal/testutil"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/adapter/storetest"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (adapter.Store, string) {
		s := New(testutil.NewTestLogger(t))
		t.Cleanup(func() { _ = s.Close() })
		return s, "obs.ms"
	})
}

func TestStore_RejectsParams(t *testing.T) {
	s := New(nil)
	assert.NoError(t, s.Configure(adapter.Config{Type: "memory"}))
	assert.Error(t, s.Configure(adapter.Config{Type: "memory", Params: map[string]any{"path": "x"}}))
}

func TestStore_CancelledContext(t *testing.T) {
	s := New(nil)
	h, err := s.Create(context.Background(), "obs.ms", adapter.Schema{
		Rows:    1,
		Columns: []adapter.ColumnSpec{{Name: "TIME", Kind: core.KindFloat64}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = h.ReadColumn(ctx, "TIME", 0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTableAccess))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStore_WriteColumnsAllOrNothing(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	h, err := s.Create(ctx, "obs.ms", adapter.Schema{
		Rows: 2,
		Columns: []adapter.ColumnSpec{
			{Name: "TIME", Kind: core.KindFloat64},
			{Name: "WEIGHT", Kind: core.KindFloat64, Cell: []int{2}},
		},
	})
	require.NoError(t, err)

	times, err := core.FromSlice([]float64{1, 2}, 2)
	require.NoError(t, err)
	badWeights := core.NewArray[float64](2, 4)

	err = h.WriteColumns(ctx, map[string]core.Column{"TIME": times, "WEIGHT": badWeights}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTableAccess))

	got, err := h.ReadColumn(ctx, "TIME", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, got.(*core.Array[float64]).Data, "TIME must not be written when WEIGHT is rejected")

	weights := core.NewArray[float64](2, 2)
	weights.Data[3] = 7
	require.NoError(t, h.WriteColumns(ctx, map[string]core.Column{"TIME": times, "WEIGHT": weights}, 0))
	got, err = h.ReadColumn(ctx, "WEIGHT", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.(*core.Array[float64]).Data[3])
}

func TestStore_ReadReturnsCopy(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	h, err := s.Create(ctx, "obs.ms", adapter.Schema{
		Rows:    2,
		Columns: []adapter.ColumnSpec{{Name: "WEIGHT", Kind: core.KindFloat64, Cell: []int{2}}},
	})
	require.NoError(t, err)

	col, err := h.ReadColumn(ctx, "WEIGHT", 0, 2)
	require.NoError(t, err)
	col.(*core.Array[float64]).Data[0] = 42

	again, err := h.ReadColumn(ctx, "WEIGHT", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, again.(*core.Array[float64]).Data[0], "mutating a read must not touch the table")
}
