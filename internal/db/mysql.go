package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/ppdx999/lazydb/internal/config"
)

// mysqlPool is the MySQL-family adapter.
type mysqlPool struct {
	basePool
}

func openMySQL(ctx context.Context, c config.Connection) (Pool, error) {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	user := c.User
	if user == "" {
		user = "root"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", user, c.Password, host, port, c.Database)

	mdb, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, connectivity(err)
	}
	if err := mdb.PingContext(ctx); err != nil {
		mdb.Close()
		return nil, connectivity(err)
	}
	mdb.SetMaxOpenConns(1)
	mdb.SetMaxIdleConns(1)

	return &mysqlPool{basePool: basePool{db: mdb}}, nil
}

func (p *mysqlPool) Kind() Kind { return KindMySQL }

func (p *mysqlPool) Execute(ctx context.Context, statement string) (ExecResult, error) {
	return p.exec(ctx, statement)
}

func (p *mysqlPool) ListDatabases(ctx context.Context) ([]string, error) {
	rows, _, err := p.query(ctx, `
		SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		ORDER BY schema_name
	`)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row[0].String())
	}
	return names, nil
}

func (p *mysqlPool) ListTables(ctx context.Context, database string) ([]Table, error) {
	rows, _, err := p.query(ctx, `
		SELECT table_name, table_type FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name
	`, database)
	if err != nil {
		return nil, err
	}
	tables := make([]Table, 0, len(rows))
	for _, row := range rows {
		kind := "table"
		if strings.EqualFold(row[1].String(), "VIEW") {
			kind = "view"
		}
		tables = append(tables, Table{Database: database, Name: row[0].String(), Kind: kind})
	}
	return tables, nil
}

func (p *mysqlPool) FetchRows(ctx context.Context, q RecordsQuery) ([]Row, []string, error) {
	return p.query(ctx, buildSelect(quoteBacktick, q))
}

func (p *mysqlPool) FetchColumns(ctx context.Context, table Table) ([]Row, []string, error) {
	raw, _, err := p.query(ctx, `
		SELECT column_name, column_type, is_nullable, column_key
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`, table.Database, table.Name)
	if err != nil {
		return nil, nil, err
	}
	out := make([]Row, 0, len(raw))
	for _, row := range raw {
		key := ""
		switch row[3].String() {
		case "PRI":
			key = "PK"
		case "UNI":
			key = "UNIQUE"
		case "MUL":
			key = "INDEX"
		}
		out = append(out, Row{
			row[0],
			row[1],
			BoolCell(strings.EqualFold(row[2].String(), "YES")),
			TextCell(key),
		})
	}
	return out, ColumnsHeader, nil
}

func (p *mysqlPool) CountRows(ctx context.Context, q RecordsQuery) (int64, error) {
	return p.queryCount(ctx, buildCount(quoteBacktick, q))
}

// quoteBacktick is MySQL identifier quoting.
func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
