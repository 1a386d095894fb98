package tui

import (
	"github.com/ppdx999/lazydb/internal/config"
	"github.com/ppdx999/lazydb/internal/db"
	"github.com/ppdx999/lazydb/internal/query"
)

// resultMsg wraps a delivered orchestrator result. Staleness by token
// has already been filtered; the payload carries its request signature
// where the view needs a second check.
type resultMsg query.Result

// ConfigReloadedMsg is sent when the config file is reloaded on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// Payloads carried in a result's Value, one per slot.

type connectPayload struct {
	Pool  db.Pool
	Conn  config.Connection
	Index int
}

type databasesPayload struct {
	Databases []db.Database
}

type tablesPayload struct {
	Database string
	Tables   []db.Table
}

type recordsPayload struct {
	Query   db.RecordsQuery
	Columns []string
	Rows    []db.Row
}

type columnsPayload struct {
	Table   db.Table
	Columns []string
	Rows    []db.Row
}

type countPayload struct {
	Sig   string
	Total int64
}

type execPayload struct {
	Statement string
	IsQuery   bool
	Columns   []string
	Rows      []db.Row
	Affected  int64
}
