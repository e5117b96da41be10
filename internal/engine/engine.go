// Package engine applies selective, chunked transforms to visibility
// datasets. A run opens the dataset, loads its metadata snapshot, compiles
// the row selection and streams the main table through a transform in
// fixed-size chunks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/mstools/internal/catalog"
	"github.com/leapstack-labs/mstools/internal/config"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Engine runs transforms against datasets held by one table store.
type Engine struct {
	// Table store (lazy initialized)
	store       adapter.Store
	storeConfig adapter.Config
	storeMu     sync.Mutex

	logger          *slog.Logger
	chunkSize       int
	weightReference WeightReference
	oneBitAntennas  []string
	dryRun          bool
	progress        func(done, total int)
}

// Config holds engine configuration.
type Config struct {
	// Store selects the table store backend.
	Store adapter.Config
	// Backend, when set, is used instead of creating a store from Store.
	Backend adapter.Store
	// ChunkSize is the number of rows per chunk (default 100).
	ChunkSize int
	// WeightReference is the flag_weights default when Params leaves it empty.
	WeightReference WeightReference
	// OneBitAntennas extends the dataset's recorded 1-bit antennas.
	OneBitAntennas []string
	// DryRun runs every transform in memory without writing.
	DryRun bool
	// Progress is called after each chunk.
	Progress func(done, total int)
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine. The store is only created when first needed.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ref, err := ParseWeightReference(string(cfg.WeightReference))
	if err != nil {
		return nil, err
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = config.DefaultChunkSize
	}

	storeConfig := cfg.Store
	if storeConfig.Type == "" {
		storeConfig.Type = config.DefaultStoreType
	}

	backend := storeConfig.Type
	if cfg.Backend != nil {
		backend = fmt.Sprintf("%T", cfg.Backend)
	}
	logger.Debug("initializing engine", "store", backend, "chunk_size", chunkSize, "dry_run", cfg.DryRun)

	return &Engine{
		store:           cfg.Backend,
		storeConfig:     storeConfig,
		logger:          logger,
		chunkSize:       chunkSize,
		weightReference: ref,
		oneBitAntennas:  cfg.OneBitAntennas,
		dryRun:          cfg.DryRun,
		progress:        cfg.Progress,
	}, nil
}

// Store returns the table store, creating it on first use.
func (e *Engine) Store() (adapter.Store, error) {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	if e.store != nil {
		return e.store, nil
	}

	e.logger.Debug("creating table store", "type", e.storeConfig.Type)
	s, err := adapter.NewStore(e.storeConfig, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create table store: %w", err)
	}
	e.store = s
	return s, nil
}

// Close releases the table store.
func (e *Engine) Close() error {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	if e.store == nil {
		return nil
	}
	err := e.store.Close()
	e.store = nil
	return err
}

// dataset is an open dataset with its metadata.
type dataset struct {
	store  adapter.Store
	handle adapter.Handle
	snap   *core.Snapshot
}

// withDataset opens path, loads its snapshot and runs fn. The handle is
// released on every path out.
func (e *Engine) withDataset(ctx context.Context, path string, readonly bool, fn func(ds *dataset) error) (err error) {
	store, err := e.Store()
	if err != nil {
		return err
	}
	h, err := store.Open(ctx, path, readonly)
	if err != nil {
		return core.NewTableAccessError("open", path, "", err)
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			err = errors.Join(err, core.NewTableAccessError("close", path, "", cerr))
		}
	}()

	snap, err := catalog.Load(ctx, store, h, catalog.Options{OneBitAntennas: e.oneBitAntennas})
	if err != nil {
		return err
	}
	return fn(&dataset{store: store, handle: h, snap: snap})
}

// Run applies the transform registered as name to the rows of path that sel
// selects. Parameters and the selection's shape are validated before the
// dataset is opened.
func (e *Engine) Run(ctx context.Context, path, name string, sel Selection, p Params) (*Result, error) {
	t, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if p.WeightReference == "" {
		p.WeightReference = e.weightReference
	}
	if err := t.check(sel, p); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := e.logger.With("run_id", id, "transform", name, "dataset", path)
	logger.Info("starting transform", "dry_run", e.dryRun)
	started := time.Now()

	var res *Result
	readonly := e.dryRun || (name == TransformFlagWeights && !p.Apply)
	err = e.withDataset(ctx, path, readonly, func(ds *dataset) error {
		var selector *Selector
		if !t.Metadata {
			var err error
			if selector, err = Compile(ds.snap, sel); err != nil {
				return err
			}
		}
		call := &Call{
			Store:    ds.store,
			Handle:   ds.handle,
			Snapshot: ds.snap,
			Selector: selector,
			Params:   p,
			Exec: &Executor{
				ChunkSize: e.chunkSize,
				DryRun:    e.dryRun,
				Progress:  e.progress,
				Logger:    logger,
			},
			Logger: logger,
		}
		var err error
		res, err = t.Run(ctx, call)
		return err
	})
	if res != nil {
		res.ID = id
		res.Transform = name
		res.Dataset = path
		res.Duration = time.Since(started)
	}
	if err != nil {
		logger.Info("transform failed", "error", err.Error())
		return res, err
	}

	logger.Info("transform completed",
		"rows", res.Counters.Rows,
		"selected", res.Counters.Selected,
		"written", res.Counters.Written,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// Polswap swaps the polarization hands of the selected antennas.
func (e *Engine) Polswap(ctx context.Context, path string, sel Selection, perStation bool) (*Result, error) {
	return e.Run(ctx, path, TransformPolswap, sel, Params{PerStation: perStation})
}

// CopyPol copies feed source onto the other hand for the selected antennas.
func (e *Engine) CopyPol(ctx context.Context, path string, sel Selection, source string) (*Result, error) {
	return e.Run(ctx, path, TransformCopyPol, sel, Params{Source: source})
}

// Scale1Bit corrects baselines to 1-bit antennas.
func (e *Engine) Scale1Bit(ctx context.Context, path string, sel Selection, scaleWeights, undo bool) (*Result, error) {
	return e.Run(ctx, path, TransformScale1Bit, sel, Params{ScaleWeights: scaleWeights, Undo: undo})
}

// InvertSubband reverses the channel order of the selected antennas.
func (e *Engine) InvertSubband(ctx context.Context, path string, sel Selection) (*Result, error) {
	return e.Run(ctx, path, TransformInvertSubband, sel, Params{})
}

// FlagWeights reports, and with apply flags, entries whose weight is below
// threshold.
func (e *Engine) FlagWeights(ctx context.Context, path string, sel Selection, threshold float64, apply bool) (*FlagStats, error) {
	res, err := e.Run(ctx, path, TransformFlagWeights, sel, Params{Threshold: threshold, Apply: apply})
	if err != nil {
		return nil, err
	}
	return res.Stats, nil
}

// ChangeProjectName renames the observing project.
func (e *Engine) ChangeProjectName(ctx context.Context, path, name string) (*Result, error) {
	return e.Run(ctx, path, TransformChangeProjectName, Selection{}, Params{Name: name})
}

// ChangeSourceName renames source old to name.
func (e *Engine) ChangeSourceName(ctx context.Context, path, old, name string) (*Result, error) {
	return e.Run(ctx, path, TransformChangeSourceName, Selection{}, Params{OldName: old, Name: name})
}
