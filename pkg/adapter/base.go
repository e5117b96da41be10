package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/mstools/pkg/core"
)

// RowIDColumn is the hidden column holding each row's number.
const RowIDColumn = "_row"

// ColumnRegistryTable describes every stored column (kind and cell shape),
// since array cells are stored as opaque BLOBs.
const ColumnRegistryTable = "_mstools_columns"

// ColumnRegistryDDL creates the column registry. Backends without migration
// support execute it directly.
const ColumnRegistryDDL = `CREATE TABLE IF NOT EXISTS _mstools_columns (
	table_name  TEXT NOT NULL,
	column_name TEXT NOT NULL,
	position    INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	cell        TEXT NOT NULL,
	PRIMARY KEY (table_name, column_name)
)`

// Dialect holds the SQL differences between database/sql backends.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	IntType   string
	RowType   string
	FloatType string
	TextType  string
	BoolType  string
	BlobType  string
}

// QuestionPlaceholder renders "?" bind parameters (DuckDB, SQLite).
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$n" bind parameters (PostgreSQL).
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// BaseSQLStore provides the table store on top of database/sql.
// Embed this struct in concrete backends and set Connect (and optionally
// Locate and Bootstrap) in the constructor.
//
// Each table is an SQL table with a _row key; scalar columns are native SQL
// columns and array cells are Codec BLOBs.
type BaseSQLStore struct {
	Dialect Dialect
	Codec   *Codec
	Logger  *slog.Logger

	// Connect opens the database identified by key.
	Connect func(ctx context.Context, key string) (*sql.DB, error)
	// Locate maps a dataset path to a connection key and a table name prefix.
	// Nil uses the dataset path as key and no prefix.
	Locate func(dataset string) (key, prefix string)
	// Bootstrap prepares a freshly opened database. Nil executes ColumnRegistryDDL.
	Bootstrap func(ctx context.Context, db *sql.DB) error

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func (b *BaseSQLStore) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// codec returns the configured Codec, creating an uncompressed one on first use.
func (b *BaseSQLStore) codec() (*Codec, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Codec == nil {
		c, err := NewCodec(CompressionNone)
		if err != nil {
			return nil, err
		}
		b.Codec = c
	}
	return b.Codec, nil
}

func (b *BaseSQLStore) ph(n int) string {
	if b.Dialect.Placeholder == nil {
		return "?"
	}
	return b.Dialect.Placeholder(n)
}

func (b *BaseSQLStore) locate(dataset string) (string, string) {
	if b.Locate == nil {
		return dataset, ""
	}
	return b.Locate(dataset)
}

// db returns the cached connection for key, opening it on first use.
// Connections stay open until Close so in-memory databases survive
// between handles.
func (b *BaseSQLStore) db(ctx context.Context, key string) (*sql.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if db, ok := b.dbs[key]; ok {
		return db, nil
	}
	if b.Connect == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	db, err := b.Connect(ctx, key)
	if err != nil {
		return nil, err
	}
	bootstrap := b.Bootstrap
	if bootstrap == nil {
		bootstrap = func(ctx context.Context, db *sql.DB) error {
			_, err := db.ExecContext(ctx, ColumnRegistryDDL)
			return err
		}
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize column registry: %w", err)
	}

	if b.dbs == nil {
		b.dbs = make(map[string]*sql.DB)
	}
	b.dbs[key] = db
	b.logger().Debug("opened database", "store", b.Dialect.Name, "key", key)
	return db, nil
}

// Open acquires a handle on an existing table.
func (b *BaseSQLStore) Open(ctx context.Context, path string, readonly bool) (Handle, error) {
	dataset, table := SplitPath(path)
	key, prefix := b.locate(dataset)

	db, err := b.db(ctx, key)
	if err != nil {
		return nil, core.NewTableAccessError("open", path, "", err)
	}

	name := prefix + table
	specs, err := b.loadSpecs(ctx, db, name)
	if err != nil {
		return nil, core.NewTableAccessError("open", path, "", err)
	}
	if len(specs) == 0 {
		return nil, core.NewTableAccessError("open", path, "", ErrNoSuchTable)
	}

	b.logger().Debug("opened table", "path", path, "table", name, "columns", len(specs), "readonly", readonly)
	return &sqlHandle{store: b, db: db, path: path, table: name, readonly: readonly, specs: specs}, nil
}

// Exists reports whether a table is registered.
func (b *BaseSQLStore) Exists(ctx context.Context, path string) (bool, error) {
	dataset, table := SplitPath(path)
	key, prefix := b.locate(dataset)

	db, err := b.db(ctx, key)
	if err != nil {
		return false, core.NewTableAccessError("stat", path, "", err)
	}

	//nolint:gosec // placeholders come from the dialect
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE table_name = %s", ColumnRegistryTable, b.ph(1))
	var n int64
	if err := db.QueryRowContext(ctx, query, prefix+table).Scan(&n); err != nil {
		return false, core.NewTableAccessError("stat", path, "", fmt.Errorf("failed to execute query: %w", err))
	}
	return n > 0, nil
}

// Create creates (or replaces) a table with schema.Rows zero-valued rows.
func (b *BaseSQLStore) Create(ctx context.Context, path string, schema Schema) (Handle, error) {
	if err := validateSchema(schema); err != nil {
		return nil, core.NewTableAccessError("create", path, "", err)
	}

	dataset, table := SplitPath(path)
	key, prefix := b.locate(dataset)
	db, err := b.db(ctx, key)
	if err != nil {
		return nil, core.NewTableAccessError("create", path, "", err)
	}

	name := prefix + table
	if err := b.createTable(ctx, db, name, schema); err != nil {
		return nil, core.NewTableAccessError("create", path, "", err)
	}

	b.logger().Debug("created table", "path", path, "table", name, "rows", schema.Rows, "columns", len(schema.Columns))
	return &sqlHandle{store: b, db: db, path: path, table: name, specs: cloneSpecs(schema.Columns)}, nil
}

func (b *BaseSQLStore) createTable(ctx context.Context, db *sql.DB, name string, schema Schema) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	defs := []string{fmt.Sprintf("%s %s PRIMARY KEY", RowIDColumn, b.Dialect.RowType)}
	cols := []string{RowIDColumn}
	for _, c := range schema.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", QuoteIdent(c.Name), b.sqlType(c)))
		cols = append(cols, QuoteIdent(c.Name))
	}

	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", QuoteIdent(name)),
		fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(name), strings.Join(defs, ", ")),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
	}

	//nolint:gosec // placeholders come from the dialect
	del := fmt.Sprintf("DELETE FROM %s WHERE table_name = %s", ColumnRegistryTable, b.ph(1))
	if _, err := tx.ExecContext(ctx, del, name); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}

	//nolint:gosec // placeholders come from the dialect
	reg := fmt.Sprintf("INSERT INTO %s (table_name, column_name, position, kind, cell) VALUES (%s, %s, %s, %s, %s)",
		ColumnRegistryTable, b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5))
	for i, c := range schema.Columns {
		if _, err := tx.ExecContext(ctx, reg, name, c.Name, int64(i), c.Kind.String(), formatCell(c.Cell)); err != nil {
			return fmt.Errorf("failed to register column %s: %w", c.Name, err)
		}
	}

	if schema.Rows > 0 {
		zeros := make([]any, 0, len(cols))
		zeros = append(zeros, nil)
		phs := []string{b.ph(1)}
		for i, c := range schema.Columns {
			z, err := b.zeroValue(c)
			if err != nil {
				return err
			}
			zeros = append(zeros, z)
			phs = append(phs, b.ph(i+2))
		}

		//nolint:gosec // identifiers are quoted, placeholders come from the dialect
		ins := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", QuoteIdent(name), strings.Join(cols, ", "), strings.Join(phs, ", "))
		stmt, err := tx.PrepareContext(ctx, ins)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for r := 0; r < schema.Rows; r++ {
			zeros[0] = int64(r)
			if _, err := stmt.ExecContext(ctx, zeros...); err != nil {
				return fmt.Errorf("failed to insert row %d: %w", r, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (b *BaseSQLStore) loadSpecs(ctx context.Context, db *sql.DB, table string) ([]ColumnSpec, error) {
	//nolint:gosec // placeholders come from the dialect
	query := fmt.Sprintf("SELECT column_name, kind, cell FROM %s WHERE table_name = %s ORDER BY position",
		ColumnRegistryTable, b.ph(1))
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var specs []ColumnSpec
	for rows.Next() {
		var name, kind, cell string
		if err := rows.Scan(&name, &kind, &cell); err != nil {
			return nil, fmt.Errorf("failed to scan column registry: %w", err)
		}
		k, err := core.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		shape, err := parseCell(cell)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		specs = append(specs, ColumnSpec{Name: name, Kind: k, Cell: shape})
	}
	return specs, rows.Err()
}

// Close closes every cached connection and the codec.
func (b *BaseSQLStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for key, db := range b.dbs {
		b.logger().Debug("closing database connection", "key", key)
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.dbs = nil
	if b.Codec != nil {
		b.Codec.Close()
		b.Codec = nil
	}
	return errors.Join(errs...)
}

func (b *BaseSQLStore) sqlType(c ColumnSpec) string {
	if !nativeScalar(c) {
		return b.Dialect.BlobType
	}
	switch c.Kind {
	case core.KindInt32:
		return b.Dialect.IntType
	case core.KindFloat64:
		return b.Dialect.FloatType
	case core.KindBool:
		return b.Dialect.BoolType
	default:
		return b.Dialect.TextType
	}
}

func (b *BaseSQLStore) zeroValue(c ColumnSpec) (any, error) {
	col, err := core.NewColumn(c.Kind, 1, c.Cell)
	if err != nil {
		return nil, err
	}
	return b.encodeValue(c, col, 0)
}

func (b *BaseSQLStore) encodeValue(c ColumnSpec, col core.Column, r int) (any, error) {
	if !nativeScalar(c) {
		codec, err := b.codec()
		if err != nil {
			return nil, err
		}
		return codec.EncodeRow(col, r)
	}
	switch a := col.(type) {
	case *core.Array[int32]:
		return int64(a.Data[r]), nil
	case *core.Array[float64]:
		return a.Data[r], nil
	case *core.Array[bool]:
		return a.Data[r], nil
	case *core.Array[string]:
		return a.Data[r], nil
	}
	return nil, fmt.Errorf("cannot store %s as a native column", col.Kind())
}

func (b *BaseSQLStore) decodeValue(c ColumnSpec, col core.Column, r int, v any) error {
	if v == nil {
		return nil
	}
	if !nativeScalar(c) {
		blob, err := toBytes(v)
		if err != nil {
			return err
		}
		codec, err := b.codec()
		if err != nil {
			return err
		}
		return codec.DecodeRow(col, r, blob)
	}

	switch a := col.(type) {
	case *core.Array[int32]:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		a.Data[r] = int32(n)
	case *core.Array[float64]:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		a.Data[r] = f
	case *core.Array[bool]:
		t, err := toBool(v)
		if err != nil {
			return err
		}
		a.Data[r] = t
	case *core.Array[string]:
		s, err := toBytes(v)
		if err != nil {
			return err
		}
		a.Data[r] = string(s)
	default:
		return fmt.Errorf("cannot load %s from a native column", col.Kind())
	}
	return nil
}

// sqlHandle is a Handle on one SQL table.
type sqlHandle struct {
	store    *BaseSQLStore
	db       *sql.DB
	path     string
	table    string
	readonly bool
	specs    []ColumnSpec
	closed   bool
}

func (h *sqlHandle) Path() string          { return h.path }
func (h *sqlHandle) Readonly() bool        { return h.readonly }
func (h *sqlHandle) Columns() []ColumnSpec { return cloneSpecs(h.specs) }

func (h *sqlHandle) ColumnNames() []string {
	names := make([]string, len(h.specs))
	for i, c := range h.specs {
		names[i] = c.Name
	}
	return names
}

func (h *sqlHandle) spec(name string) (ColumnSpec, error) {
	for _, c := range h.specs {
		if c.Name == name {
			return c, nil
		}
	}
	return ColumnSpec{}, ErrNoSuchColumn
}

func (h *sqlHandle) RowCount(ctx context.Context) (int, error) {
	if h.closed {
		return 0, core.NewTableAccessError("count", h.path, "", ErrClosed)
	}
	var n int64
	//nolint:gosec // identifier is quoted
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", QuoteIdent(h.table))
	if err := h.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, core.NewTableAccessError("count", h.path, "", fmt.Errorf("failed to execute query: %w", err))
	}
	return int(n), nil
}

func (h *sqlHandle) ReadColumn(ctx context.Context, name string, start, count int) (core.Column, error) {
	if h.closed {
		return nil, core.NewTableAccessError("read", h.path, name, ErrClosed)
	}
	spec, err := h.spec(name)
	if err != nil {
		return nil, core.NewTableAccessError("read", h.path, name, err)
	}
	col, err := core.NewColumn(spec.Kind, count, spec.Cell)
	if err != nil {
		return nil, core.NewTableAccessError("read", h.path, name, err)
	}
	if count == 0 {
		return col, nil
	}

	b := h.store
	//nolint:gosec // identifiers are quoted, placeholders come from the dialect
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s >= %s AND %s < %s ORDER BY %s",
		RowIDColumn, QuoteIdent(name), QuoteIdent(h.table),
		RowIDColumn, b.ph(1), RowIDColumn, b.ph(2), RowIDColumn)
	rows, err := h.db.QueryContext(ctx, query, int64(start), int64(start+count))
	if err != nil {
		return nil, core.NewTableAccessError("read", h.path, name, fmt.Errorf("failed to execute query: %w", err))
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		var id int64
		var v any
		if err := rows.Scan(&id, &v); err != nil {
			return nil, core.NewTableAccessError("read", h.path, name, err)
		}
		idx := int(id) - start
		if idx < 0 || idx >= count {
			return nil, core.NewTableAccessError("read", h.path, name, fmt.Errorf("unexpected row %d", id))
		}
		if err := b.decodeValue(spec, col, idx, v); err != nil {
			return nil, core.NewTableAccessError("read", h.path, name, fmt.Errorf("row %d: %w", id, err))
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewTableAccessError("read", h.path, name, err)
	}
	if n != count {
		return nil, core.NewTableAccessError("read", h.path, name,
			fmt.Errorf("%w: rows [%d, %d) returned %d", ErrShortRead, start, start+count, n))
	}
	return col, nil
}

func (h *sqlHandle) WriteColumn(ctx context.Context, name string, col core.Column, start int) error {
	return h.WriteColumns(ctx, map[string]core.Column{name: col}, start)
}

// WriteColumns updates every column in one transaction, in name order.
func (h *sqlHandle) WriteColumns(ctx context.Context, cols map[string]core.Column, start int) (err error) {
	names := slices.Sorted(maps.Keys(cols))
	if len(names) == 0 {
		return nil
	}
	if h.closed {
		return core.NewTableAccessError("write", h.path, names[0], ErrClosed)
	}
	if h.readonly {
		return core.NewTableAccessError("write", h.path, names[0], ErrReadOnly)
	}

	specs := make([]ColumnSpec, len(names))
	for i, name := range names {
		spec, err := h.spec(name)
		if err != nil {
			return core.NewTableAccessError("write", h.path, name, err)
		}
		col := cols[name]
		if col.Kind() != spec.Kind || !slices.Equal(col.CellShape(), spec.Cell) {
			return core.NewTableAccessError("write", h.path, name,
				fmt.Errorf("column is %s%v, got %s%v", spec.Kind, spec.Cell, col.Kind(), col.CellShape()))
		}
		if col.Rows() != cols[names[0]].Rows() {
			return core.NewTableAccessError("write", h.path, name,
				fmt.Errorf("column has %d rows, %s has %d", col.Rows(), names[0], cols[names[0]].Rows()))
		}
		specs[i] = spec
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewTableAccessError("write", h.path, names[0], fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, name := range names {
		if err := h.updateColumn(ctx, tx, specs[i], cols[name], start); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return core.NewTableAccessError("write", h.path, names[0], fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

func (h *sqlHandle) updateColumn(ctx context.Context, tx *sql.Tx, spec ColumnSpec, col core.Column, start int) error {
	b := h.store
	name := spec.Name
	//nolint:gosec // identifiers are quoted, placeholders come from the dialect
	update := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		QuoteIdent(h.table), QuoteIdent(name), b.ph(1), RowIDColumn, b.ph(2))
	stmt, err := tx.PrepareContext(ctx, update)
	if err != nil {
		return core.NewTableAccessError("write", h.path, name, fmt.Errorf("failed to prepare update: %w", err))
	}
	defer func() { _ = stmt.Close() }()

	for r := 0; r < col.Rows(); r++ {
		v, err := b.encodeValue(spec, col, r)
		if err != nil {
			return core.NewTableAccessError("write", h.path, name, err)
		}
		res, err := stmt.ExecContext(ctx, v, int64(start+r))
		if err != nil {
			return core.NewTableAccessError("write", h.path, name, fmt.Errorf("failed to execute SQL: %w", err))
		}
		if affected, err := res.RowsAffected(); err == nil && affected != 1 {
			return core.NewTableAccessError("write", h.path, name,
				fmt.Errorf("%w: row %d", ErrShortRead, start+r))
		}
	}
	return nil
}

func (h *sqlHandle) Subtable(keyword string) (string, error) {
	dataset, table := SplitPath(h.path)
	if table != MainTable {
		return "", fmt.Errorf("%s is not a dataset main table", h.path)
	}
	return SubtablePath(dataset, keyword)
}

func (h *sqlHandle) Close() error {
	h.closed = true
	return nil
}

func nativeScalar(c ColumnSpec) bool {
	return c.IsScalar() && c.Kind != core.KindComplex128
}

func validateSchema(s Schema) error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema has no columns")
	}
	if s.Rows < 0 {
		return fmt.Errorf("negative row count %d", s.Rows)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" || c.Name == RowIDColumn {
			return fmt.Errorf("invalid column name %q", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %s", c.Name)
		}
		seen[c.Name] = true
		if c.Kind == core.KindInvalid {
			return fmt.Errorf("column %s has no kind", c.Name)
		}
		for _, d := range c.Cell {
			if d <= 0 {
				return fmt.Errorf("column %s has invalid cell shape %v", c.Name, c.Cell)
			}
		}
	}
	return nil
}

func cloneSpecs(specs []ColumnSpec) []ColumnSpec {
	out := make([]ColumnSpec, len(specs))
	for i, c := range specs {
		out[i] = ColumnSpec{Name: c.Name, Kind: c.Kind, Cell: slices.Clone(c.Cell)}
	}
	return out
}

func formatCell(cell []int) string {
	parts := make([]string, len(cell))
	for i, d := range cell {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func parseCell(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	cell := make([]int, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid cell shape %q", s)
		}
		cell[i] = d
	}
	return cell, nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to integer", v)
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case int32:
		return x != 0, nil
	case []byte:
		return strconv.ParseBool(string(x))
	case string:
		return strconv.ParseBool(x)
	}
	return false, fmt.Errorf("cannot convert %T to bool", v)
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("cannot convert %T to bytes", v)
}
