// Package testutil provides shared helpers for lazydb tests: throwaway
// seeded SQLite files and a scriptable fake backend pool.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/ppdx999/lazydb/internal/db"
)

// SeedDB creates a temporary SQLite database, runs the given statements
// against it, and returns its path. The file is removed with the test's
// temp dir.
func SeedDB(t *testing.T, statements ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	defer sdb.Close()

	for _, stmt := range statements {
		MustExec(t, sdb, stmt)
	}
	return path
}

// MustExec executes SQL or fails the test.
func MustExec(t *testing.T, sdb *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := sdb.Exec(query, args...); err != nil {
		t.Fatalf("MustExec failed: %v\nQuery: %s", err, query)
	}
}

// MustQueryRow executes a query and scans the first row into dest.
func MustQueryRow(t *testing.T, sdb *sql.DB, query string, dest ...any) {
	t.Helper()
	if err := sdb.QueryRow(query).Scan(dest...); err != nil {
		t.Fatalf("MustQueryRow failed: %v\nQuery: %s", err, query)
	}
}

// FakePool is a scriptable db.Pool. Unset functions return zero values
// so tests only script what they exercise. Gate, when set, is received
// from at the start of every call, letting a test control completion
// order of concurrent requests.
type FakePool struct {
	KindValue db.Kind

	// Gate blocks calls until the test sends on it.
	Gate chan struct{}

	ExecuteFunc      func(ctx context.Context, statement string) (db.ExecResult, error)
	QueryFunc        func(ctx context.Context, statement string) ([]db.Row, []string, error)
	ListDatabasesFn  func(ctx context.Context) ([]string, error)
	ListTablesFn     func(ctx context.Context, database string) ([]db.Table, error)
	FetchRowsFn      func(ctx context.Context, q db.RecordsQuery) ([]db.Row, []string, error)
	FetchColumnsFn   func(ctx context.Context, table db.Table) ([]db.Row, []string, error)
	CountRowsFn      func(ctx context.Context, q db.RecordsQuery) (int64, error)
	CloseFunc        func() error
	ClosedSignalChan chan struct{}
}

var _ db.Pool = (*FakePool)(nil)

func (p *FakePool) wait() {
	if p.Gate != nil {
		<-p.Gate
	}
}

func (p *FakePool) Kind() db.Kind {
	if p.KindValue == "" {
		return db.KindSQLite
	}
	return p.KindValue
}

func (p *FakePool) Execute(ctx context.Context, statement string) (db.ExecResult, error) {
	p.wait()
	if p.ExecuteFunc == nil {
		return db.ExecResult{}, nil
	}
	return p.ExecuteFunc(ctx, statement)
}

func (p *FakePool) Query(ctx context.Context, statement string) ([]db.Row, []string, error) {
	p.wait()
	if p.QueryFunc == nil {
		return nil, nil, nil
	}
	return p.QueryFunc(ctx, statement)
}

func (p *FakePool) ListDatabases(ctx context.Context) ([]string, error) {
	p.wait()
	if p.ListDatabasesFn == nil {
		return nil, nil
	}
	return p.ListDatabasesFn(ctx)
}

func (p *FakePool) ListTables(ctx context.Context, database string) ([]db.Table, error) {
	p.wait()
	if p.ListTablesFn == nil {
		return nil, nil
	}
	return p.ListTablesFn(ctx, database)
}

func (p *FakePool) FetchRows(ctx context.Context, q db.RecordsQuery) ([]db.Row, []string, error) {
	p.wait()
	if p.FetchRowsFn == nil {
		return nil, nil, nil
	}
	return p.FetchRowsFn(ctx, q)
}

func (p *FakePool) FetchColumns(ctx context.Context, table db.Table) ([]db.Row, []string, error) {
	p.wait()
	if p.FetchColumnsFn == nil {
		return nil, db.ColumnsHeader, nil
	}
	return p.FetchColumnsFn(ctx, table)
}

func (p *FakePool) CountRows(ctx context.Context, q db.RecordsQuery) (int64, error) {
	p.wait()
	if p.CountRowsFn == nil {
		return 0, nil
	}
	return p.CountRowsFn(ctx, q)
}

func (p *FakePool) Close() error {
	if p.ClosedSignalChan != nil {
		close(p.ClosedSignalChan)
	}
	if p.CloseFunc == nil {
		return nil
	}
	return p.CloseFunc()
}
