// Package catalog reads dataset metadata from subtables into a core.Snapshot
// and performs the single-record metadata edits (project and source
// renames, antenna mounts).
package catalog

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Subtable keywords.
const (
	Antenna        = "ANTENNA"
	Polarization   = "POLARIZATION"
	Observation    = "OBSERVATION"
	Field          = "FIELD"
	SpectralWindow = "SPECTRAL_WINDOW"
	Scan           = "SCAN"
	OneBit         = "ONE_BIT"
)

// Options adjust Load.
type Options struct {
	// OneBitAntennas are added to the 1-bit set recorded in ONE_BIT.
	OneBitAntennas []string
}

// Load builds the Snapshot of the dataset behind h.
func Load(ctx context.Context, store adapter.Store, h adapter.Handle, opts Options) (*core.Snapshot, error) {
	var p core.SnapshotParams

	names, err := ReadAll[string](ctx, store, h, Antenna, "NAME")
	if err != nil {
		return nil, err
	}
	p.AntennaNames = names

	corr, err := readCell[int32](ctx, store, h, Polarization, "CORR_TYPE", 0)
	if err != nil {
		return nil, err
	}
	for _, c := range corr {
		p.Polarizations = append(p.Polarizations, core.Stokes(c))
	}

	obs, err := readObservation(ctx, store, h)
	if err != nil {
		return nil, err
	}
	p.Project = obs.project
	p.Observation = obs.timeRange

	if p.Sources, err = ReadAll[string](ctx, store, h, Field, "NAME"); err != nil {
		return nil, err
	}

	if p.Scans, err = readScans(ctx, store, h); err != nil {
		return nil, err
	}

	ids, err := readOptional[int32](ctx, store, h, OneBit, "ANTENNA_ID")
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p.OneBit = append(p.OneBit, int(id))
	}

	catalog := core.NewAntennaCatalog(names)
	for _, name := range opts.OneBitAntennas {
		id, err := catalog.ID(name)
		if err != nil {
			return nil, err
		}
		p.OneBit = append(p.OneBit, id)
	}

	return core.NewSnapshot(p)
}

type observation struct {
	project   string
	observer  string
	timeRange core.TimeWindow
}

func readObservation(ctx context.Context, store adapter.Store, h adapter.Handle) (observation, error) {
	var obs observation

	projects, err := ReadAll[string](ctx, store, h, Observation, "PROJECT")
	if err != nil {
		return obs, err
	}
	if len(projects) == 0 {
		return obs, core.NewTableAccessError("read", subPath(h, Observation), "PROJECT", fmt.Errorf("OBSERVATION is empty"))
	}
	obs.project = projects[0]

	observers, err := ReadAll[string](ctx, store, h, Observation, "OBSERVER")
	if err != nil {
		return obs, err
	}
	obs.observer = observers[0]

	tr, err := readCell[float64](ctx, store, h, Observation, "TIME_RANGE", 0)
	if err != nil {
		return obs, err
	}
	if len(tr) != 2 {
		return obs, core.NewTableAccessError("read", subPath(h, Observation), "TIME_RANGE",
			fmt.Errorf("expected 2 values, got %d", len(tr)))
	}
	obs.timeRange, err = core.NewTimeWindow(tr[0], tr[1])
	return obs, err
}

func readScans(ctx context.Context, store adapter.Store, h adapter.Handle) (map[string]core.TimeWindow, error) {
	names, err := readOptional[string](ctx, store, h, Scan, "NAME")
	if err != nil || len(names) == 0 {
		return nil, err
	}
	starts, err := ReadAll[float64](ctx, store, h, Scan, "START")
	if err != nil {
		return nil, err
	}
	ends, err := ReadAll[float64](ctx, store, h, Scan, "END")
	if err != nil {
		return nil, err
	}

	scans := make(map[string]core.TimeWindow, len(names))
	for i, name := range names {
		w, err := core.NewTimeWindow(starts[i], ends[i])
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		scans[name] = w
	}
	return scans, nil
}

// OpenSubtable opens the keyword subtable of the dataset behind h.
func OpenSubtable(ctx context.Context, store adapter.Store, h adapter.Handle, keyword string, readonly bool) (adapter.Handle, error) {
	path, err := h.Subtable(keyword)
	if err != nil {
		return nil, core.NewTableAccessError("open", h.Path(), "", err)
	}
	return store.Open(ctx, path, readonly)
}

// ReadAll reads every row of a scalar subtable column.
func ReadAll[T core.Element](ctx context.Context, store adapter.Store, h adapter.Handle, keyword, column string) ([]T, error) {
	sub, err := OpenSubtable(ctx, store, h, keyword, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sub.Close() }()

	arr, err := readColumn[T](ctx, sub, column)
	if err != nil {
		return nil, err
	}
	return arr.Data, nil
}

func readColumn[T core.Element](ctx context.Context, sub adapter.Handle, column string) (*core.Array[T], error) {
	n, err := sub.RowCount(ctx)
	if err != nil {
		return nil, err
	}
	col, err := sub.ReadColumn(ctx, column, 0, n)
	if err != nil {
		return nil, err
	}
	arr, err := core.As[T](col)
	if err != nil {
		return nil, core.NewTableAccessError("read", sub.Path(), column, err)
	}
	return arr, nil
}

// readCell reads the array cell of one row.
func readCell[T core.Element](ctx context.Context, store adapter.Store, h adapter.Handle, keyword, column string, row int) ([]T, error) {
	sub, err := OpenSubtable(ctx, store, h, keyword, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sub.Close() }()

	col, err := sub.ReadColumn(ctx, column, row, 1)
	if err != nil {
		return nil, err
	}
	arr, err := core.As[T](col)
	if err != nil {
		return nil, core.NewTableAccessError("read", sub.Path(), column, err)
	}
	return arr.Row(0), nil
}

// readOptional reads a column of a subtable that may be absent.
func readOptional[T core.Element](ctx context.Context, store adapter.Store, h adapter.Handle, keyword, column string) ([]T, error) {
	path, err := h.Subtable(keyword)
	if err != nil {
		return nil, core.NewTableAccessError("open", h.Path(), "", err)
	}
	ok, err := store.Exists(ctx, path)
	if err != nil || !ok {
		return nil, err
	}
	return ReadAll[T](ctx, store, h, keyword, column)
}

// writeRow replaces one row of a scalar subtable column.
func writeRow[T core.Element](ctx context.Context, store adapter.Store, h adapter.Handle, keyword, column string, row int, v T) error {
	sub, err := OpenSubtable(ctx, store, h, keyword, false)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	col, err := core.FromSlice([]T{v}, 1)
	if err != nil {
		return err
	}
	return sub.WriteColumn(ctx, column, col, row)
}

func subPath(h adapter.Handle, keyword string) string {
	path, err := h.Subtable(keyword)
	if err != nil {
		return h.Path()
	}
	return path
}
