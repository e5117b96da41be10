// Package adapter provides the table store interfaces used by mstools to read
// and write the columns of a visibility dataset and its subtables.
//
// This package contains the public contract that all store backends must
// implement, a registry of backends, and a shared database/sql implementation.
// Concrete backends are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"
	"errors"

	"github.com/leapstack-labs/mstools/pkg/core"
)

// Config is an alias for core.StoreConfig.
type Config = core.StoreConfig

// Store errors. Backends wrap them in core.TableAccessError.
var (
	ErrNoSuchTable  = errors.New("no such table")
	ErrNoSuchColumn = errors.New("no such column")
	ErrReadOnly     = errors.New("table opened read-only")
	ErrClosed       = errors.New("table handle closed")
	ErrShortRead    = errors.New("row range exceeds table")
)

// ColumnSpec describes one column of a table.
type ColumnSpec struct {
	Name string
	Kind core.Kind
	// Cell is the per-row cell shape; empty for scalar columns.
	Cell []int
}

// IsScalar reports whether each row holds a single element.
func (c ColumnSpec) IsScalar() bool { return len(c.Cell) == 0 }

// Schema describes a table to create.
type Schema struct {
	Rows    int
	Columns []ColumnSpec
}

// Store opens and creates tables addressed by path. A dataset path names
// the main table; subtables are addressed with SubtablePath.
type Store interface {
	// Configure applies backend-specific parameters before first use.
	Configure(cfg Config) error

	// Open acquires a handle on an existing table.
	Open(ctx context.Context, path string, readonly bool) (Handle, error)

	// Create creates (or replaces) a table with zero-valued rows.
	Create(ctx context.Context, path string, schema Schema) (Handle, error)

	// Exists reports whether a table exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Close releases every resource held by the store.
	Close() error
}

// Handle is an open table. Reads and writes address a contiguous row range.
type Handle interface {
	// Path returns the path the handle was opened with.
	Path() string

	// Readonly reports whether writes are rejected.
	Readonly() bool

	// Columns returns the column descriptions in table order.
	Columns() []ColumnSpec

	// ColumnNames returns the column names in table order.
	ColumnNames() []string

	// RowCount returns the number of rows.
	RowCount(ctx context.Context) (int, error)

	// ReadColumn reads count rows of a column starting at row start.
	ReadColumn(ctx context.Context, name string, start, count int) (core.Column, error)

	// WriteColumn overwrites col.Rows() rows of a column starting at row start.
	WriteColumn(ctx context.Context, name string, col core.Column, start int) error

	// WriteColumns overwrites the same row range of several columns. Either
	// every column is written or none is.
	WriteColumns(ctx context.Context, cols map[string]core.Column, start int) error

	// Subtable resolves the path of a keyword subtable (ANTENNA, FIELD, ...).
	Subtable(keyword string) (string, error)

	// Close releases the handle.
	Close() error
}

// FindColumn returns the spec of a named column.
func FindColumn(h Handle, name string) (ColumnSpec, bool) {
	for _, c := range h.Columns() {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// HasColumn reports whether the handle's table has a column.
func HasColumn(h Handle, name string) bool {
	_, ok := FindColumn(h, name)
	return ok
}
