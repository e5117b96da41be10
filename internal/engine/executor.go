package engine

// executor.go - Chunked read/transform/write loop over the main table

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/leapstack-labs/mstools/internal/config"
	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Chunk holds consecutive rows [Start, Start+Rows) of the columns a plan
// reads.
type Chunk struct {
	Start int
	Rows  int
	cols  map[string]core.Column
}

// Column returns a loaded column.
func (c *Chunk) Column(name string) (core.Column, bool) {
	col, ok := c.cols[name]
	return col, ok
}

// Has reports whether a column was loaded.
func (c *Chunk) Has(name string) bool {
	_, ok := c.cols[name]
	return ok
}

// Get returns a loaded column as an Array of T.
func Get[T core.Element](c *Chunk, name string) (*core.Array[T], error) {
	col, ok := c.cols[name]
	if !ok {
		return nil, fmt.Errorf("column %s not loaded", name)
	}
	arr, err := core.As[T](col)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", name, err)
	}
	return arr, nil
}

// Chunks yields (start, rows) pairs covering [0, total) in order.
func Chunks(total, size int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for start := 0; start < total; start += size {
			if !yield(start, min(size, total-start)) {
				return
			}
		}
	}
}

// Plan describes what a transform reads and writes per chunk.
type Plan struct {
	Name string

	// Columns are read for selected chunks and written back.
	Columns []string
	// Optional columns behave like Columns when the table has them.
	Optional []string
	// Inputs are read but never written.
	Inputs []string

	// Apply mutates the masked rows of c in memory.
	Apply func(c *Chunk, mask *roaring.Bitmap) error
}

// Counters summarises one pass.
type Counters struct {
	Rows     int `json:"rows" yaml:"rows"`
	Chunks   int `json:"chunks" yaml:"chunks"`
	Selected int `json:"selected" yaml:"selected"`
	Written  int `json:"written" yaml:"written"`
}

// Executor runs plans chunk by chunk. Chunks are processed sequentially in
// row order; nothing is buffered across chunks.
type Executor struct {
	ChunkSize int
	DryRun    bool
	Progress  func(done, total int)
	Logger    *slog.Logger
}

func (x *Executor) chunkSize() int {
	if x.ChunkSize <= 0 {
		return config.DefaultChunkSize
	}
	return x.ChunkSize
}

func (x *Executor) logger() *slog.Logger {
	if x.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return x.Logger
}

// Execute applies p to every row sel accepts. A failed read or write stops
// the loop; chunks already written stay modified.
func (x *Executor) Execute(ctx context.Context, h adapter.Handle, sel *Selector, p Plan) (Counters, error) {
	var n Counters
	logger := x.logger()

	total, err := h.RowCount(ctx)
	if err != nil {
		return n, core.NewTableAccessError("count rows", h.Path(), "", err)
	}
	n.Rows = total

	writes := slices.Clone(p.Columns)
	for _, name := range p.Optional {
		if adapter.HasColumn(h, name) {
			writes = append(writes, name)
		}
	}
	reads := append(slices.Clone(writes), p.Inputs...)
	selCols := sel.Columns()

	logger.Debug("executing plan",
		"rows", total,
		"chunk_size", x.chunkSize(),
		"columns", writes,
		"dry_run", x.DryRun)

	for start, rows := range Chunks(total, x.chunkSize()) {
		if err := ctx.Err(); err != nil {
			return n, core.NewTableAccessError("read", h.Path(), "", err)
		}

		c := &Chunk{Start: start, Rows: rows, cols: make(map[string]core.Column, len(selCols)+len(reads))}
		if err := load(ctx, h, c, selCols); err != nil {
			return n, err
		}
		mask, err := sel.Mask(c)
		if err != nil {
			return n, err
		}
		n.Chunks++

		if !mask.IsEmpty() {
			selected := int(mask.GetCardinality())
			n.Selected += selected

			if err := load(ctx, h, c, reads); err != nil {
				return n, err
			}
			if err := p.Apply(c, mask); err != nil {
				return n, fmt.Errorf("%s rows %d-%d: %w", p.Name, start, start+rows-1, err)
			}
			if !x.DryRun && len(writes) > 0 {
				if err := store(ctx, h, c, writes); err != nil {
					return n, err
				}
				n.Written += selected
			}
			logger.Debug("chunk processed", "start", start, "rows", rows, "selected", selected)
		}

		if x.Progress != nil {
			x.Progress(start+rows, total)
		}
	}
	return n, nil
}

func load(ctx context.Context, h adapter.Handle, c *Chunk, names []string) error {
	for _, name := range names {
		if c.Has(name) {
			continue
		}
		col, err := h.ReadColumn(ctx, name, c.Start, c.Rows)
		if err != nil {
			return core.NewTableAccessError("read", h.Path(), name, err)
		}
		c.cols[name] = col
	}
	return nil
}

// store writes every column of the chunk in one call, so a failure
// leaves all of the chunk's rows untouched.
func store(ctx context.Context, h adapter.Handle, c *Chunk, names []string) error {
	cols := make(map[string]core.Column, len(names))
	for _, name := range names {
		cols[name] = c.cols[name]
	}
	if err := h.WriteColumns(ctx, cols, c.Start); err != nil {
		if errors.Is(err, core.ErrTableAccess) {
			return err
		}
		return core.NewTableAccessError("write", h.Path(), strings.Join(names, ","), err)
	}
	return nil
}
