// Package db is the database abstraction layer: one capability contract
// every backend adapter satisfies, plus the row/column/value
// normalization shared by all of them. Nothing above this package ever
// branches on the engine kind.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/ppdx999/lazydb/internal/config"
)

// Kind tags the closed set of supported engines.
type Kind string

const (
	KindMySQL    Kind = "mysql"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// ParseKind validates an engine kind from configuration.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindMySQL:
		return KindMySQL, nil
	case KindPostgres:
		return KindPostgres, nil
	case KindSQLite:
		return KindSQLite, nil
	default:
		return "", fmt.Errorf("unknown engine kind %q", s)
	}
}

// Table is one browsable relation inside a database.
type Table struct {
	Database string
	Name     string
	Kind     string // "table" or "view"
}

// Database is one schema node: a name and its ordered tables.
type Database struct {
	Name   string
	Tables []Table
}

// ExecResult reports the outcome of a non-query statement.
type ExecResult struct {
	RowsAffected int64
}

// ColumnsHeader is the shared header for FetchColumns results, so
// column metadata reuses the generic table-rendering path.
var ColumnsHeader = []string{"name", "type", "nullable", "key"}

// Pool is the open, reusable handle to one backend connection. Exactly
// one pool is live at a time; it owns no UI state. Implementations
// serialize access to their single underlying handle.
type Pool interface {
	// Kind reports the engine variant, for display only.
	Kind() Kind

	// Execute runs a non-query statement and reports affected rows.
	Execute(ctx context.Context, statement string) (ExecResult, error)

	// Query runs a raw row-returning statement, normalized like
	// FetchRows but without paging.
	Query(ctx context.Context, statement string) ([]Row, []string, error)

	// ListDatabases enumerates the databases or schemas visible to the
	// credential.
	ListDatabases(ctx context.Context) ([]string, error)

	// ListTables enumerates tables and views of one database.
	ListTables(ctx context.Context, database string) ([]Table, error)

	// FetchRows returns at most q.Limit rows for the page q describes,
	// plus the column header. Header order is stable across pages of
	// the same query signature.
	FetchRows(ctx context.Context, q RecordsQuery) ([]Row, []string, error)

	// FetchColumns returns the table's own column metadata encoded as
	// rows under ColumnsHeader.
	FetchColumns(ctx context.Context, table Table) ([]Row, []string, error)

	// CountRows returns the exact row count for q's table with its
	// filter folded in. Offset, limit and sort are ignored.
	CountRows(ctx context.Context, q RecordsQuery) (int64, error)

	// Close releases the backend handle. Idempotent.
	Close() error
}

// Connect opens a pool for one configured connection. Every failure on
// this path is a ConnectivityError: there is no usable handle yet.
func Connect(ctx context.Context, c config.Connection) (Pool, error) {
	kind, err := ParseKind(c.Kind)
	if err != nil {
		return nil, connectivity(err)
	}
	switch kind {
	case KindMySQL:
		return openMySQL(ctx, c)
	case KindPostgres:
		return openPostgres(ctx, c)
	default:
		return openSQLite(ctx, c)
	}
}

// basePool carries the pieces all three adapters share: one database/sql
// handle capped at a single connection, a mutex serializing statements
// on it, and the generic scan loop.
type basePool struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

func (p *basePool) exec(ctx context.Context, statement string) (ExecResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ExecResult{}, connectivity(sql.ErrConnDone)
	}
	res, err := p.db.ExecContext(ctx, statement)
	if err != nil {
		return ExecResult{}, classify(err)
	}
	affected, _ := res.RowsAffected()
	return ExecResult{RowsAffected: affected}, nil
}

func (p *basePool) query(ctx context.Context, query string, args ...any) ([]Row, []string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, nil, connectivity(sql.ErrConnDone)
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, classify(err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (p *basePool) queryCount(ctx context.Context, query string, args ...any) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, connectivity(sql.ErrConnDone)
	}
	var n int64
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// Query satisfies the raw-statement operation for every adapter.
func (p *basePool) Query(ctx context.Context, statement string) ([]Row, []string, error) {
	return p.query(ctx, statement)
}

func (p *basePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

// scanRows drains a result set into normalized rows. Byte slices are
// text unless the column's declared type is binary.
func scanRows(rows *sql.Rows) ([]Row, []string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, classify(err)
	}

	binary := make([]bool, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			binary[i] = isBinaryType(ct.DatabaseTypeName())
		}
	}

	out := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, classify(err)
		}
		row := make(Row, len(columns))
		for i, v := range values {
			if b, ok := v.([]byte); ok && binary[i] {
				row[i] = BytesCell(b)
			} else {
				row[i] = NewCell(v)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, classify(err)
	}
	return out, columns, nil
}

func isBinaryType(name string) bool {
	switch strings.ToUpper(name) {
	case "BLOB", "BINARY", "VARBINARY", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BYTEA":
		return true
	}
	return false
}

// buildSelect assembles the paging SELECT all adapters share. quote is
// the dialect's identifier quoting; limit and offset are numeric
// literals, never user input.
func buildSelect(quote func(string) string, q RecordsQuery) string {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	if q.Database != "" {
		b.WriteString(quote(q.Database))
		b.WriteString(".")
	}
	b.WriteString(quote(q.Table))
	if q.Filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Filter)
	}
	if !q.Sort.IsZero() {
		b.WriteString(" ORDER BY ")
		b.WriteString(quote(q.Sort.Column))
		if q.Sort.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String()
}

// buildCount assembles the matching COUNT for a records query.
func buildCount(quote func(string) string, q RecordsQuery) string {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	if q.Database != "" {
		b.WriteString(quote(q.Database))
		b.WriteString(".")
	}
	b.WriteString(quote(q.Table))
	if q.Filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Filter)
	}
	return b.String()
}

// quoteIdent is ANSI double-quote identifier quoting, shared by the
// postgres and sqlite dialects.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
