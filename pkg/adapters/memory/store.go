// Package memory provides an in-process table store. Tables live for the
// lifetime of the Store and are lost on Close. It backs tests and dry
// experiments with synthetic datasets.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/leapstack-labs/mstools/pkg/adapter"
	"github.com/leapstack-labs/mstools/pkg/core"
)

// Store implements adapter.Store in memory.
type Store struct {
	mu     sync.Mutex
	tables map[string]*table
	logger *slog.Logger
}

type table struct {
	specs []adapter.ColumnSpec
	rows  int
	data  map[string]core.Column
}

// New creates an empty memory store.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{tables: make(map[string]*table), logger: logger}
}

// Configure accepts no params.
func (s *Store) Configure(cfg adapter.Config) error {
	if len(cfg.Params) > 0 {
		return fmt.Errorf("memory store takes no params")
	}
	return nil
}

// Open acquires a handle on an existing table.
func (s *Store) Open(ctx context.Context, path string, readonly bool) (adapter.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewTableAccessError("open", path, "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[path]
	if !ok {
		return nil, core.NewTableAccessError("open", path, "", adapter.ErrNoSuchTable)
	}
	return &handle{store: s, path: path, table: t, readonly: readonly}, nil
}

// Create creates (or replaces) a table with zero-valued rows.
func (s *Store) Create(ctx context.Context, path string, schema adapter.Schema) (adapter.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewTableAccessError("create", path, "", err)
	}
	if len(schema.Columns) == 0 {
		return nil, core.NewTableAccessError("create", path, "", fmt.Errorf("schema has no columns"))
	}

	t := &table{rows: schema.Rows, data: make(map[string]core.Column, len(schema.Columns))}
	for _, c := range schema.Columns {
		if _, dup := t.data[c.Name]; dup {
			return nil, core.NewTableAccessError("create", path, c.Name, fmt.Errorf("duplicate column"))
		}
		col, err := core.NewColumn(c.Kind, schema.Rows, c.Cell)
		if err != nil {
			return nil, core.NewTableAccessError("create", path, c.Name, err)
		}
		t.specs = append(t.specs, adapter.ColumnSpec{Name: c.Name, Kind: c.Kind, Cell: slices.Clone(c.Cell)})
		t.data[c.Name] = col
	}

	s.mu.Lock()
	s.tables[path] = t
	s.mu.Unlock()

	s.logger.Debug("created table", "path", path, "rows", schema.Rows, "columns", len(schema.Columns))
	return &handle{store: s, path: path, table: t}, nil
}

// Exists reports whether a table exists.
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[path]
	return ok, nil
}

// Close drops every table.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*table)
	return nil
}

type handle struct {
	store    *Store
	path     string
	table    *table
	readonly bool
	closed   bool
}

func (h *handle) Path() string   { return h.path }
func (h *handle) Readonly() bool { return h.readonly }

func (h *handle) Columns() []adapter.ColumnSpec {
	out := make([]adapter.ColumnSpec, len(h.table.specs))
	for i, c := range h.table.specs {
		out[i] = adapter.ColumnSpec{Name: c.Name, Kind: c.Kind, Cell: slices.Clone(c.Cell)}
	}
	return out
}

func (h *handle) ColumnNames() []string {
	names := make([]string, len(h.table.specs))
	for i, c := range h.table.specs {
		names[i] = c.Name
	}
	return names
}

func (h *handle) RowCount(ctx context.Context) (int, error) {
	if err := h.check(ctx, "count", ""); err != nil {
		return 0, err
	}
	return h.table.rows, nil
}

func (h *handle) ReadColumn(ctx context.Context, name string, start, count int) (core.Column, error) {
	if err := h.check(ctx, "read", name); err != nil {
		return nil, err
	}
	col, ok := h.table.data[name]
	if !ok {
		return nil, core.NewTableAccessError("read", h.path, name, adapter.ErrNoSuchColumn)
	}
	if start < 0 || count < 0 || start+count > h.table.rows {
		return nil, core.NewTableAccessError("read", h.path, name,
			fmt.Errorf("%w: rows [%d, %d) of %d", adapter.ErrShortRead, start, start+count, h.table.rows))
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return col.SliceRows(start, count), nil
}

func (h *handle) WriteColumn(ctx context.Context, name string, col core.Column, start int) error {
	return h.WriteColumns(ctx, map[string]core.Column{name: col}, start)
}

// WriteColumns checks every column before copying any of them.
func (h *handle) WriteColumns(ctx context.Context, cols map[string]core.Column, start int) error {
	names := slices.Sorted(maps.Keys(cols))
	for _, name := range names {
		if err := h.check(ctx, "write", name); err != nil {
			return err
		}
		if h.readonly {
			return core.NewTableAccessError("write", h.path, name, adapter.ErrReadOnly)
		}
		dst, ok := h.table.data[name]
		if !ok {
			return core.NewTableAccessError("write", h.path, name, adapter.ErrNoSuchColumn)
		}
		src := cols[name]
		if src.Kind() != dst.Kind() || !slices.Equal(src.CellShape(), dst.CellShape()) {
			return core.NewTableAccessError("write", h.path, name,
				fmt.Errorf("column is %s%v, got %s%v", dst.Kind(), dst.CellShape(), src.Kind(), src.CellShape()))
		}
		if start < 0 || start+src.Rows() > h.table.rows {
			return core.NewTableAccessError("write", h.path, name,
				fmt.Errorf("rows [%d, %d) out of range [0, %d)", start, start+src.Rows(), h.table.rows))
		}
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for _, name := range names {
		if err := h.table.data[name].SetRows(start, cols[name]); err != nil {
			return core.NewTableAccessError("write", h.path, name, err)
		}
	}
	return nil
}

func (h *handle) Subtable(keyword string) (string, error) {
	dataset, table := adapter.SplitPath(h.path)
	if table != adapter.MainTable {
		return "", fmt.Errorf("%s is not a dataset main table", h.path)
	}
	return adapter.SubtablePath(dataset, keyword)
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}

func (h *handle) check(ctx context.Context, op, column string) error {
	if h.closed {
		return core.NewTableAccessError(op, h.path, column, adapter.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return core.NewTableAccessError(op, h.path, column, err)
	}
	return nil
}
