// Package postgres provides a PostgreSQL table store.
//
// All datasets share one database. Tables of a dataset carry a prefix
// derived from its path, so "obs.ms" and "obs.ms::ANTENNA" become
// "obs_ms_<id>__MAIN" and "obs_ms_<id>__ANTENNA".
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/mstools/pkg/adapter"
)

// maxBaseLen keeps prefixed table names under PostgreSQL's 63 byte limit.
const maxBaseLen = 32

// Params are the postgres entries of store.params.
type Params struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	// DSN, when set, is used verbatim instead of the fields above.
	DSN string `mapstructure:"dsn"`
	// Compression of array cells: "none" or "zstd".
	Compression string `mapstructure:"compression"`
}

// Dialect is the PostgreSQL flavour of the shared SQL layer.
var Dialect = adapter.Dialect{
	Name:        "postgres",
	Placeholder: adapter.DollarPlaceholder,
	IntType:     "INTEGER",
	RowType:     "BIGINT",
	FloatType:   "DOUBLE PRECISION",
	TextType:    "TEXT",
	BoolType:    "BOOLEAN",
	BlobType:    "BYTEA",
}

// Store implements adapter.Store for PostgreSQL.
type Store struct {
	adapter.BaseSQLStore
	params Params
}

// New creates a new PostgreSQL store.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{params: Params{Compression: adapter.CompressionNone}}
	s.Dialect = Dialect
	s.Logger = logger
	s.Connect = s.connect
	s.Locate = TablePrefix
	return s
}

// Configure applies store.params.
func (s *Store) Configure(cfg adapter.Config) error {
	params := Params{Compression: adapter.CompressionNone}
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

func (s *Store) connect(ctx context.Context, _ string) (*sql.DB, error) {
	dsn := buildPostgresDSN(s.params)

	s.Logger.Debug("connecting to postgres", slog.String("host", s.params.Host), slog.String("database", s.params.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(p Params) string {
	if p.DSN != "" {
		return p.DSN
	}

	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, p.Database, sslmode)
	if p.User != "" {
		dsn += fmt.Sprintf(" user=%s", p.User)
	}
	if p.Password != "" {
		dsn += fmt.Sprintf(" password=%s", p.Password)
	}
	return dsn
}

// TablePrefix maps a dataset path to the shared connection and the table
// name prefix of its tables. The prefix is the sanitized base name plus a
// short id derived from the full path.
func TablePrefix(dataset string) (key, prefix string) {
	base := sanitizeIdentifier(filepath.Base(dataset))
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(dataset)).String()[:8]
	return "", base + "_" + id + "__"
}

// sanitizeIdentifier lowercases name and replaces every character outside
// [a-z0-9_] with an underscore.
func sanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "ds"
	}
	return b.String()
}

var _ adapter.Store = (*Store)(nil)
