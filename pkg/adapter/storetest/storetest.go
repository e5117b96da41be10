// Package storetest provides a conformance suite shared by every
// adapter.Store backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mainSchema is a small visibility table: 5 rows, 3 channels, 2 correlations.
var mainSchema = adapter.Schema{
	Rows: 5,
	Columns: []adapter.ColumnSpec{
		{Name: "ANTENNA1", Kind: core.KindInt32},
		{Name: "TIME", Kind: core.KindFloat64},
		{Name: "DATA", Kind: core.KindComplex128, Cell: []int{3, 2}},
		{Name: "FLAG", Kind: core.KindBool, Cell: []int{3, 2}},
		{Name: "WEIGHT", Kind: core.KindFloat64, Cell: []int{2}},
		{Name: "LABEL", Kind: core.KindString},
		{Name: "GAIN", Kind: core.KindComplex128},
	},
}

// Run exercises newStore's backend. dataset is the path used for the main
// table; it must be fresh for every call of newStore.
func Run(t *testing.T, newStore func(t *testing.T) (adapter.Store, string)) {
	t.Helper()

	t.Run("create and count", func(t *testing.T) {
		s, path := newStore(t)
		ctx := context.Background()

		h, err := s.Create(ctx, path, mainSchema)
		require.NoError(t, err)
		defer func() { _ = h.Close() }()

		n, err := h.RowCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, []string{"ANTENNA1", "TIME", "DATA", "FLAG", "WEIGHT", "LABEL", "GAIN"}, h.ColumnNames())

		ok, err := s.Exists(ctx, path)
		require.NoError(t, err)
		assert.True(t, ok)

		col, err := h.ReadColumn(ctx, "DATA", 0, 5)
		require.NoError(t, err)
		assert.Equal(t, core.NewArray[complex128](5, 3, 2), col, "new rows are zero")
	})

	t.Run("write and read back", func(t *testing.T) {
		s, path := newStore(t)
		ctx := context.Background()

		h, err := s.Create(ctx, path, mainSchema)
		require.NoError(t, err)

		data := core.NewArray[complex128](2, 3, 2)
		for i := range data.Data {
			data.Data[i] = complex(float64(i)+0.5, -float64(i)/3)
		}
		flags := core.NewArray[bool](2, 3, 2)
		flags.Data[4] = true
		ants, _ := core.FromSlice([]int32{7, 9}, 2)
		times, _ := core.FromSlice([]float64{5e9 + 0.25, 5e9 + 1.25}, 2)
		labels, _ := core.FromSlice([]string{"a", "b-c"}, 2)
		gains, _ := core.FromSlice([]complex128{1i, -2}, 2)

		require.NoError(t, h.WriteColumn(ctx, "DATA", data, 1))
		require.NoError(t, h.WriteColumn(ctx, "FLAG", flags, 1))
		require.NoError(t, h.WriteColumn(ctx, "ANTENNA1", ants, 1))
		require.NoError(t, h.WriteColumn(ctx, "TIME", times, 1))
		require.NoError(t, h.WriteColumn(ctx, "LABEL", labels, 1))
		require.NoError(t, h.WriteColumn(ctx, "GAIN", gains, 1))
		require.NoError(t, h.Close())

		h, err = s.Open(ctx, path, true)
		require.NoError(t, err)
		defer func() { _ = h.Close() }()

		for name, want := range map[string]core.Column{
			"DATA": data, "FLAG": flags, "ANTENNA1": ants, "TIME": times, "LABEL": labels, "GAIN": gains,
		} {
			got, err := h.ReadColumn(ctx, name, 1, 2)
			require.NoError(t, err, name)
			assert.Equal(t, want, got, name)
		}

		untouched, err := h.ReadColumn(ctx, "DATA", 3, 2)
		require.NoError(t, err)
		assert.Equal(t, core.NewArray[complex128](2, 3, 2), untouched, "rows outside the write stay zero")
	})

	t.Run("multi-column writes are all or nothing", func(t *testing.T) {
		s, path := newStore(t)
		ctx := context.Background()

		h, err := s.Create(ctx, path, mainSchema)
		require.NoError(t, err)
		defer func() { _ = h.Close() }()

		data := core.NewArray[complex128](2, 3, 2)
		data.Data[0] = 3 + 4i
		weights := core.NewArray[float64](2, 2)
		weights.Data[1] = 0.5

		err = h.WriteColumns(ctx, map[string]core.Column{
			"DATA":   data,
			"WEIGHT": core.NewArray[float64](2, 4),
		}, 2)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrTableAccess))

		got, err := h.ReadColumn(ctx, "DATA", 2, 2)
		require.NoError(t, err)
		assert.Equal(t, core.NewArray[complex128](2, 3, 2), got, "DATA is not written when WEIGHT is rejected")

		require.NoError(t, h.WriteColumns(ctx, map[string]core.Column{"DATA": data, "WEIGHT": weights}, 2))
		got, err = h.ReadColumn(ctx, "DATA", 2, 2)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		got, err = h.ReadColumn(ctx, "WEIGHT", 2, 2)
		require.NoError(t, err)
		assert.Equal(t, weights, got)
	})

	t.Run("read-only handles reject writes", func(t *testing.T) {
		s, path := newStore(t)
		ctx := context.Background()

		h, err := s.Create(ctx, path, mainSchema)
		require.NoError(t, err)
		require.NoError(t, h.Close())

		ro, err := s.Open(ctx, path, true)
		require.NoError(t, err)
		defer func() { _ = ro.Close() }()
		assert.True(t, ro.Readonly())

		err = ro.WriteColumn(ctx, "WEIGHT", core.NewArray[float64](1, 2), 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrTableAccess))
		assert.True(t, errors.Is(err, adapter.ErrReadOnly))
	})

	t.Run("missing tables and columns", func(t *testing.T) {
		s, path := newStore(t)
		ctx := context.Background()

		_, err := s.Open(ctx, path, true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrTableAccess))
		assert.True(t, errors.Is(err, adapter.ErrNoSuchTable))

		ok, err := s.Exists(ctx, path)
		require.NoError(t, err)
		assert.False(t, ok)

		h, err := s.Create(ctx, path, mainSchema)
		require.NoError(t, err)
		defer func() { _ = h.Close() }()

		_, err = h.ReadColumn(ctx, "SIGMA", 0, 1)
		assert.True(t, errors.Is(err, adapter.ErrNoSuchColumn))

		_, err = h.ReadColumn(ctx, "TIME", 3, 5)
		assert.True(t, errors.Is(err, core.ErrTableAccess), "reading past the end fails")
	})

	t.Run("subtables", func(t *testing.T) {
		s, path := newStore(t)
		ctx := context.Background()

		h, err := s.Create(ctx, path, mainSchema)
		require.NoError(t, err)
		defer func() { _ = h.Close() }()

		sub, err := h.Subtable("ANTENNA")
		require.NoError(t, err)

		ah, err := s.Create(ctx, sub, adapter.Schema{Rows: 2, Columns: []adapter.ColumnSpec{{Name: "NAME", Kind: core.KindString}}})
		require.NoError(t, err)
		names, _ := core.FromSlice([]string{"Ef", "Wb"}, 2)
		require.NoError(t, ah.WriteColumn(ctx, "NAME", names, 0))
		require.NoError(t, ah.Close())

		ah, err = s.Open(ctx, sub, true)
		require.NoError(t, err)
		defer func() { _ = ah.Close() }()
		got, err := ah.ReadColumn(ctx, "NAME", 0, 2)
		require.NoError(t, err)
		assert.Equal(t, names, got)

		n, err := h.RowCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n, "subtable rows do not leak into the main table")
	})

	t.Run("create replaces", func(t *testing.T) {
		s, path := newStore(t)
		ctx := context.Background()

		h, err := s.Create(ctx, path, mainSchema)
		require.NoError(t, err)
		require.NoError(t, h.Close())

		h, err = s.Create(ctx, path, adapter.Schema{Rows: 1, Columns: []adapter.ColumnSpec{{Name: "X", Kind: core.KindInt32}}})
		require.NoError(t, err)
		defer func() { _ = h.Close() }()

		n, err := h.RowCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"X"}, h.ColumnNames())
	})
}
