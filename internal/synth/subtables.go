package synth

import (
	"context"

	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

func writeSubtables(ctx context.Context, store adapter.Store, h adapter.Handle, d *Dataset) error {
	nant := len(d.Antennas)
	names := core.NewArray[string](nant)
	stations := core.NewArray[string](nant)
	mounts := core.NewArray[string](nant)
	for i, a := range d.Antennas {
		names.Data[i], stations.Data[i], mounts.Data[i] = a.Name, a.Station, a.Mount
	}
	if err := writeTable(ctx, store, h, "ANTENNA", nant, []namedColumn{
		{"NAME", names}, {"STATION", stations}, {"MOUNT", mounts},
	}); err != nil {
		return err
	}

	corr := core.NewArray[int32](1, len(d.Polarizations))
	for i, s := range d.Polarizations {
		corr.Data[i] = int32(s)
	}
	if err := writeTable(ctx, store, h, "POLARIZATION", 1, []namedColumn{{"CORR_TYPE", corr}}); err != nil {
		return err
	}

	project, _ := core.FromSlice([]string{d.Project}, 1)
	observer, _ := core.FromSlice([]string{d.Observer}, 1)
	timeRange, _ := core.FromSlice([]float64{d.TimeRange.Start, d.TimeRange.End}, 1, 2)
	if err := writeTable(ctx, store, h, "OBSERVATION", 1, []namedColumn{
		{"PROJECT", project}, {"OBSERVER", observer}, {"TIME_RANGE", timeRange},
	}); err != nil {
		return err
	}

	sources, _ := core.FromSlice(append([]string(nil), d.Sources...), len(d.Sources))
	if err := writeTable(ctx, store, h, "FIELD", len(d.Sources), []namedColumn{{"NAME", sources}}); err != nil {
		return err
	}

	nspw := len(d.SpectralWindows)
	numChan := core.NewArray[int32](nspw)
	refFreq := core.NewArray[float64](nspw)
	bandwidth := core.NewArray[float64](nspw)
	for i, w := range d.SpectralWindows {
		numChan.Data[i] = int32(w.NumChan)
		refFreq.Data[i] = w.RefFrequency
		bandwidth.Data[i] = w.TotalBandwidth
	}
	if err := writeTable(ctx, store, h, "SPECTRAL_WINDOW", nspw, []namedColumn{
		{"NUM_CHAN", numChan}, {"REF_FREQUENCY", refFreq}, {"TOTAL_BANDWIDTH", bandwidth},
	}); err != nil {
		return err
	}

	if len(d.Scans) > 0 {
		n := len(d.Scans)
		scanNames := core.NewArray[string](n)
		starts := core.NewArray[float64](n)
		ends := core.NewArray[float64](n)
		for i, s := range d.Scans {
			scanNames.Data[i], starts.Data[i], ends.Data[i] = s.Name, s.Start, s.End
		}
		if err := writeTable(ctx, store, h, "SCAN", n, []namedColumn{
			{"NAME", scanNames}, {"START", starts}, {"END", ends},
		}); err != nil {
			return err
		}
	}

	if len(d.OneBit) > 0 {
		ids := core.NewArray[int32](len(d.OneBit))
		for i, id := range d.OneBit {
			ids.Data[i] = int32(id)
		}
		if err := writeTable(ctx, store, h, "ONE_BIT", len(d.OneBit), []namedColumn{{"ANTENNA_ID", ids}}); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(ctx context.Context, store adapter.Store, h adapter.Handle, keyword string, rows int, cols []namedColumn) error {
	path, err := h.Subtable(keyword)
	if err != nil {
		return err
	}

	schema := adapter.Schema{Rows: rows}
	for _, c := range cols {
		schema.Columns = append(schema.Columns, adapter.ColumnSpec{Name: c.name, Kind: c.col.Kind(), Cell: c.col.CellShape()})
	}
	sub, err := store.Create(ctx, path, schema)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	if rows == 0 {
		return nil
	}
	for _, c := range cols {
		if err := sub.WriteColumn(ctx, c.name, c.col, 0); err != nil {
			return err
		}
	}
	return nil
}
