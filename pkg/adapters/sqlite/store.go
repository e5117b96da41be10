// Package sqlite provides a table store backed by SQLite files.
//
// Each dataset is one SQLite database file; the dataset's main table and
// its subtables are tables inside it. The column registry is created by an
// embedded goose migration.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/mstools/pkg/adapter"

	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryPath names a private in-memory database instead of a file.
const MemoryPath = ":memory:"

// Params are the sqlite entries of store.params.
type Params struct {
	// Dir is prepended to relative dataset paths.
	Dir string `mapstructure:"dir"`
	// Compression is "none" or "zstd".
	Compression   string `mapstructure:"compression"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
	JournalMode   string `mapstructure:"journal_mode"`
}

// DefaultParams returns the params used when store.params is empty.
func DefaultParams() Params {
	return Params{
		Compression:   adapter.CompressionNone,
		BusyTimeoutMS: 5000,
		JournalMode:   "WAL",
	}
}

// Dialect is the SQLite flavour of the shared SQL layer.
var Dialect = adapter.Dialect{
	Name:        "sqlite",
	Placeholder: adapter.QuestionPlaceholder,
	IntType:     "INTEGER",
	RowType:     "INTEGER",
	FloatType:   "REAL",
	TextType:    "TEXT",
	BoolType:    "BOOLEAN",
	BlobType:    "BLOB",
}

// Store implements adapter.Store using SQLite.
type Store struct {
	adapter.BaseSQLStore
	params Params
}

// New creates a SQLite store with default params.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{params: DefaultParams()}
	s.Dialect = Dialect
	s.Logger = logger
	s.Connect = s.connect
	s.Bootstrap = Migrate
	return s
}

// Configure applies store.params.
func (s *Store) Configure(cfg adapter.Config) error {
	params := DefaultParams()
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
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

// Params returns the active params.
func (s *Store) Params() Params { return s.params }

// DSN builds the driver connection string for a dataset path.
func (s *Store) DSN(dataset string) string {
	if dataset == MemoryPath {
		return MemoryPath
	}
	path := dataset
	if s.params.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.params.Dir, path)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, s.params.BusyTimeoutMS)
	if s.params.JournalMode != "" {
		dsn += fmt.Sprintf("&_pragma=journal_mode(%s)", s.params.JournalMode)
	}
	return dsn
}

func (s *Store) connect(ctx context.Context, key string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.DSN(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	s.Logger.Debug("connected to sqlite", "path", key)
	return db, nil
}

var _ adapter.Store = (*Store)(nil)
