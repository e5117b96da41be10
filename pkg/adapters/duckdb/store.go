// Package duckdb provides a DuckDB table store.
//
// Each dataset is one DuckDB database file. Import this package with a
// blank identifier to register the store:
//
//	import _ "github.com/leapstack-labs/mstools/pkg/adapters/duckdb"
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/mstools/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// MemoryPath names an in-memory database instead of a file.
const MemoryPath = ":memory:"

// registryDDL is the column registry without a key constraint; DuckDB
// rejects re-inserting a key deleted earlier in the same transaction.
const registryDDL = `CREATE TABLE IF NOT EXISTS _mstools_columns (
	table_name  VARCHAR NOT NULL,
	column_name VARCHAR NOT NULL,
	position    INTEGER NOT NULL,
	kind        VARCHAR NOT NULL,
	cell        VARCHAR NOT NULL
)`

// Dialect is the DuckDB flavour of the shared SQL layer.
var Dialect = adapter.Dialect{
	Name:        "duckdb",
	Placeholder: adapter.QuestionPlaceholder,
	IntType:     "INTEGER",
	RowType:     "BIGINT",
	FloatType:   "DOUBLE",
	TextType:    "VARCHAR",
	BoolType:    "BOOLEAN",
	BlobType:    "BLOB",
}

// Store implements adapter.Store for DuckDB.
type Store struct {
	adapter.BaseSQLStore
	params *Params
}

// New creates a new DuckDB store.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{params: &Params{Compression: adapter.CompressionNone}}
	s.Dialect = Dialect
	s.Logger = logger
	s.Connect = s.connect
	s.Bootstrap = s.bootstrap
	return s
}

// Configure applies store.params.
func (s *Store) Configure(cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}
	codec, err := adapter.NewCodec(params.Compression)
	if err != nil {
		return err
	}
	if s.Codec != nil {
		s.Codec.Close()
	}
	s.Codec = codec
	s.params = params
	return nil
}

// Path resolves a dataset path against Params.Dir.
func (s *Store) Path(dataset string) string {
	if dataset == "" || dataset == MemoryPath {
		return ""
	}
	if s.params.Dir != "" && !filepath.IsAbs(dataset) {
		return filepath.Join(s.params.Dir, dataset)
	}
	return dataset
}

func (s *Store) connect(ctx context.Context, key string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", s.Path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, stmt := range s.params.SettingStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply setting: %w", err)
		}
	}

	s.Logger.Debug("connected to duckdb", "path", key, "settings", len(s.params.Settings))
	return db, nil
}

func (s *Store) bootstrap(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, registryDDL); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

var _ adapter.Store = (*Store)(nil)
