package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver "pgx"

	"github.com/ppdx999/lazydb/internal/config"
)

// postgresPool is the PostgreSQL adapter. "Databases" are schemas of
// the connected catalog: switching catalogs requires reconnecting, so
// the schema list is what the credential can actually browse.
type postgresPool struct {
	basePool
}

func openPostgres(ctx context.Context, c config.Connection) (Pool, error) {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	database := c.Database
	if database == "" {
		database = "postgres"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=disable", host, port, database)
	if c.User != "" {
		dsn += fmt.Sprintf(" user=%s", c.User)
	}
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}

	pdb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, connectivity(err)
	}
	if err := pdb.PingContext(ctx); err != nil {
		pdb.Close()
		return nil, connectivity(err)
	}
	pdb.SetMaxOpenConns(1)
	pdb.SetMaxIdleConns(1)

	return &postgresPool{basePool: basePool{db: pdb}}, nil
}

func (p *postgresPool) Kind() Kind { return KindPostgres }

func (p *postgresPool) Execute(ctx context.Context, statement string) (ExecResult, error) {
	return p.exec(ctx, statement)
}

func (p *postgresPool) ListDatabases(ctx context.Context) ([]string, error) {
	rows, _, err := p.query(ctx, `
		SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		AND schema_name NOT LIKE 'pg_toast%'
		AND schema_name NOT LIKE 'pg_temp%'
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

func (p *postgresPool) ListTables(ctx context.Context, database string) ([]Table, error) {
	rows, _, err := p.query(ctx, `
		SELECT table_name, table_type FROM information_schema.tables
		WHERE table_schema = $1
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

func (p *postgresPool) FetchRows(ctx context.Context, q RecordsQuery) ([]Row, []string, error) {
	return p.query(ctx, buildSelect(quoteIdent, q))
}

func (p *postgresPool) FetchColumns(ctx context.Context, table Table) ([]Row, []string, error) {
	raw, _, err := p.query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, table.Database, table.Name)
	if err != nil {
		return nil, nil, err
	}

	pk, err := p.primaryKeyColumns(ctx, table)
	if err != nil {
		return nil, nil, err
	}

	out := make([]Row, 0, len(raw))
	for _, row := range raw {
		key := ""
		if pk[row[0].String()] {
			key = "PK"
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

func (p *postgresPool) primaryKeyColumns(ctx context.Context, table Table) (map[string]bool, error) {
	rows, _, err := p.query(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		AND tc.table_schema = $1 AND tc.table_name = $2
	`, table.Database, table.Name)
	if err != nil {
		return nil, err
	}
	pk := make(map[string]bool, len(rows))
	for _, row := range rows {
		pk[row[0].String()] = true
	}
	return pk, nil
}

func (p *postgresPool) CountRows(ctx context.Context, q RecordsQuery) (int64, error) {
	return p.queryCount(ctx, buildCount(quoteIdent, q))
}
