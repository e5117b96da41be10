package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/leapstack-labs/mstools/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name  string
		total int
		size  int
		want  [][2]int
	}{
		{"exact", 200, 100, [][2]int{{0, 100}, {100, 100}}},
		{"tail", 250, 100, [][2]int{{0, 100}, {100, 100}, {200, 50}}},
		{"smaller than chunk", 7, 100, [][2]int{{0, 7}}},
		{"empty", 0, 100, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][2]int
			for start, n := range Chunks(tt.total, tt.size) {
				got = append(got, [2]int{start, n})
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunks_StopsEarly(t *testing.T) {
	count := 0
	for range Chunks(1000, 10) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestExecutor_OnlyMaskedRowsChange(t *testing.T) {
	ctx := context.Background()
	d := defaultDataset(t, nil)
	_, store := setup(t, d, nil)
	before := readAll[complex128](t, store, "DATA")

	h, err := store.Open(ctx, testPath, false)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	sel, err := Compile(testSnapshot(t), Selection{Antennas: []string{"Ys"}})
	require.NoError(t, err)

	var progress [][2]int
	x := &Executor{ChunkSize: 7, Progress: func(done, total int) { progress = append(progress, [2]int{done, total}) }}
	n, err := x.Execute(ctx, h, sel, Plan{
		Name:    "zero",
		Columns: []string{"DATA"},
		Apply: func(c *Chunk, mask *roaring.Bitmap) error {
			data, err := Get[complex128](c, "DATA")
			if err != nil {
				return err
			}
			for _, r := range mask.ToArray() {
				clear(data.Row(int(r)))
			}
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 120, n.Rows)
	assert.Equal(t, 18, n.Chunks)
	assert.Equal(t, 60, n.Selected, "3 of 6 baselines touch Ys")
	assert.Equal(t, n.Selected, n.Written)
	assert.Equal(t, [2]int{120, 120}, progress[len(progress)-1])
	assert.Len(t, progress, 18)

	after := readAll[complex128](t, store, "DATA")
	for i, r := range d.Rows {
		if r.Antenna1 == 2 || r.Antenna2 == 2 {
			assert.Equal(t, make([]complex128, len(r.Data)), after.Row(i), "row %d", i)
		} else {
			assert.Equal(t, before.Row(i), after.Row(i), "row %d", i)
		}
	}
}

func TestExecutor_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	_, store := setup(t, defaultDataset(t, nil), nil)
	before := readAll[bool](t, store, "FLAG")

	h, err := store.Open(ctx, testPath, true)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	sel, err := Compile(testSnapshot(t), Selection{})
	require.NoError(t, err)

	x := &Executor{DryRun: true}
	n, err := x.Execute(ctx, h, sel, Plan{
		Name:    "flag everything",
		Columns: []string{"FLAG"},
		Apply: func(c *Chunk, _ *roaring.Bitmap) error {
			flags, err := Get[bool](c, "FLAG")
			if err != nil {
				return err
			}
			for i := range flags.Data {
				flags.Data[i] = true
			}
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 120, n.Selected)
	assert.Zero(t, n.Written)
	assert.Equal(t, 2, n.Chunks, "default chunk size")
	assert.Equal(t, before.Data, readAll[bool](t, store, "FLAG").Data)
}

func TestExecutor_ReadFailureIsTableAccessError(t *testing.T) {
	ctx := context.Background()
	_, store := setup(t, defaultDataset(t, nil), nil)

	h, err := store.Open(ctx, testPath, true)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	sel, err := Compile(testSnapshot(t), Selection{})
	require.NoError(t, err)

	_, err = (&Executor{}).Execute(ctx, h, sel, Plan{
		Name:    "missing",
		Columns: []string{"CORRECTED_DATA"},
		Apply:   func(*Chunk, *roaring.Bitmap) error { return nil },
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTableAccess))

	var tae *core.TableAccessError
	require.ErrorAs(t, err, &tae)
	assert.Equal(t, "CORRECTED_DATA", tae.Column)
}

func TestExecutor_CancelledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, store := setup(t, defaultDataset(t, nil), nil)

	h, err := store.Open(context.Background(), testPath, false)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	sel, err := Compile(testSnapshot(t), Selection{})
	require.NoError(t, err)

	x := &Executor{ChunkSize: 10, Progress: func(done, _ int) {
		if done == 20 {
			cancel()
		}
	}}
	n, err := x.Execute(ctx, h, sel, Plan{
		Name:  "noop",
		Apply: func(*Chunk, *roaring.Bitmap) error { return nil },
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTableAccess))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, n.Chunks)
}
