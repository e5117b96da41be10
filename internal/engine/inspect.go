package engine

// inspect.go - Read-only dataset queries and antenna mount edits

import (
	"context"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/leapstack-labs/mstools/internal/catalog"
	"github.com/leapstack-labs/mstools/internal/synth"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Snapshot loads the metadata snapshot of path.
func (e *Engine) Snapshot(ctx context.Context, path string) (*core.Snapshot, error) {
	var snap *core.Snapshot
	err := e.withDataset(ctx, path, true, func(ds *dataset) error {
		snap = ds.snap
		return nil
	})
	return snap, err
}

// ObservedAntennas returns the ids of antennas appearing in any row.
func (e *Engine) ObservedAntennas(ctx context.Context, path string) (*roaring.Bitmap, error) {
	var observed *roaring.Bitmap
	err := e.withDataset(ctx, path, true, func(ds *dataset) error {
		var err error
		observed, err = e.observed(ctx, ds)
		return err
	})
	return observed, err
}

func (e *Engine) observed(ctx context.Context, ds *dataset) (*roaring.Bitmap, error) {
	sel, err := Compile(ds.snap, Selection{})
	if err != nil {
		return nil, err
	}
	observed := roaring.New()
	scan := &Executor{ChunkSize: e.chunkSize, DryRun: true, Logger: e.logger}
	_, err = scan.Execute(ctx, ds.handle, sel, Plan{
		Name: "observed_antennas",
		Apply: func(ch *Chunk, mask *roaring.Bitmap) error {
			a1, a2, err := baselinesOf(ch)
			if err != nil {
				return err
			}
			for _, r := range mask.ToArray() {
				observed.AddMany([]uint32{uint32(a1.Data[r]), uint32(a2.Data[r])})
			}
			return nil
		},
	})
	return observed, err
}

// Summary describes path for view and export. With scanRows the main
// table is scanned to mark which antennas actually observed; otherwise
// every antenna is reported as observed.
func (e *Engine) Summary(ctx context.Context, path string, scanRows bool) (*catalog.Summary, error) {
	var s *catalog.Summary
	err := e.withDataset(ctx, path, true, func(ds *dataset) error {
		var observed *roaring.Bitmap
		if scanRows {
			var err error
			if observed, err = e.observed(ctx, ds); err != nil {
				return err
			}
		}
		var err error
		s, err = catalog.BuildSummary(ctx, ds.store, ds.handle, ds.snap, observed)
		return err
	})
	return s, err
}

// Mounts lists the antenna mounts of path.
func (e *Engine) Mounts(ctx context.Context, path string) ([]catalog.Mount, error) {
	var mounts []catalog.Mount
	err := e.withDataset(ctx, path, true, func(ds *dataset) error {
		var err error
		mounts, err = catalog.Mounts(ctx, ds.store, ds.handle)
		return err
	})
	return mounts, err
}

// SetMount changes the mount type of one antenna. Mount edits always
// write, even on a dry-run engine.
func (e *Engine) SetMount(ctx context.Context, path, antenna, mount string) (catalog.Mount, error) {
	var m catalog.Mount
	err := e.withDataset(ctx, path, false, func(ds *dataset) error {
		var err error
		m, err = catalog.SetMount(ctx, ds.store, ds.handle, antenna, mount, e.logger)
		return err
	})
	return m, err
}

// FixYebesMount sets the Yebes 40 m antenna to its Nasmyth mount.
func (e *Engine) FixYebesMount(ctx context.Context, path string) ([]catalog.Mount, error) {
	return e.fixMount(ctx, path, catalog.FixYebesMount)
}

// FixHobartMount sets the Hobart antenna to the X-YEW mount.
func (e *Engine) FixHobartMount(ctx context.Context, path string) ([]catalog.Mount, error) {
	return e.fixMount(ctx, path, catalog.FixHobartMount)
}

type mountFix func(context.Context, adapter.Store, adapter.Handle, *slog.Logger) ([]catalog.Mount, error)

func (e *Engine) fixMount(ctx context.Context, path string, fix mountFix) ([]catalog.Mount, error) {
	var fixed []catalog.Mount
	err := e.withDataset(ctx, path, false, func(ds *dataset) error {
		var err error
		fixed, err = fix(ctx, ds.store, ds.handle, e.logger)
		return err
	})
	return fixed, err
}

// Synthesize writes a generated dataset to path.
func (e *Engine) Synthesize(ctx context.Context, path string, d *synth.Dataset) error {
	store, err := e.Store()
	if err != nil {
		return err
	}
	e.logger.Info("writing synthetic dataset", "dataset", path, "rows", len(d.Rows), "antennas", len(d.Antennas))
	return synth.Write(ctx, store, path, d)
}
