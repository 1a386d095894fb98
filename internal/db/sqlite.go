package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ppdx999/lazydb/internal/config"
)

// sqlitePool is the embedded file-backed adapter.
type sqlitePool struct {
	basePool
	path string
}

func openSQLite(ctx context.Context, c config.Connection) (Pool, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_journal_mode=WAL", c.Path)
	if !c.ReadOnly {
		dsn = fmt.Sprintf("file:%s?mode=rwc&_busy_timeout=5000&_journal_mode=WAL", c.Path)
	}

	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, connectivity(err)
	}
	if err := sdb.PingContext(ctx); err != nil {
		sdb.Close()
		return nil, connectivity(err)
	}

	// SQLite does not handle concurrent statements on one handle well.
	sdb.SetMaxOpenConns(1)
	sdb.SetMaxIdleConns(1)
	sdb.SetConnMaxLifetime(0)

	return &sqlitePool{basePool: basePool{db: sdb}, path: c.Path}, nil
}

func (p *sqlitePool) Kind() Kind { return KindSQLite }

func (p *sqlitePool) Execute(ctx context.Context, statement string) (ExecResult, error) {
	return p.exec(ctx, statement)
}

func (p *sqlitePool) ListDatabases(ctx context.Context) ([]string, error) {
	rows, _, err := p.query(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, connectivity(err)
	}
	// database_list rows are (seq, name, file)
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 1 {
			names = append(names, row[1].String())
		}
	}
	return names, nil
}

func (p *sqlitePool) ListTables(ctx context.Context, database string) ([]Table, error) {
	master := "sqlite_master"
	if database != "" {
		master = quoteIdent(database) + ".sqlite_master"
	}
	query := fmt.Sprintf(`
		SELECT name, type FROM %s
		WHERE type IN ('table', 'view')
		AND name NOT LIKE 'sqlite_%%'
		ORDER BY name
	`, master)

	rows, _, err := p.query(ctx, query)
	if err != nil {
		return nil, err
	}
	tables := make([]Table, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, Table{
			Database: database,
			Name:     row[0].String(),
			Kind:     row[1].String(),
		})
	}
	return tables, nil
}

func (p *sqlitePool) FetchRows(ctx context.Context, q RecordsQuery) ([]Row, []string, error) {
	return p.query(ctx, buildSelect(quoteIdent, q))
}

func (p *sqlitePool) FetchColumns(ctx context.Context, table Table) ([]Row, []string, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table.Name))
	raw, _, err := p.query(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	// table_info rows are (cid, name, type, notnull, dflt_value, pk)
	out := make([]Row, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		key := ""
		if row[5].String() != "0" {
			key = "PK"
		}
		out = append(out, Row{
			row[1],
			row[2],
			BoolCell(row[3].String() == "0"),
			TextCell(key),
		})
	}
	return out, ColumnsHeader, nil
}

func (p *sqlitePool) CountRows(ctx context.Context, q RecordsQuery) (int64, error) {
	return p.queryCount(ctx, buildCount(quoteIdent, q))
}
