package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppdx999/lazydb/internal/config"
	"github.com/ppdx999/lazydb/internal/db"
	"github.com/ppdx999/lazydb/internal/query"
)

// Focus represents which pane receives navigation keys.
type Focus int

const (
	FocusConnections Focus = iota
	FocusSchema
	FocusData
)

// treeEntry is one visible line of the schema tree: a database header
// or, when expanded, one of its tables.
type treeEntry struct {
	Database string
	Table    *db.Table
}

// App is the main TUI application model.
type App struct {
	// Dependencies
	cfg  *config.Config
	orch *query.Orchestrator

	// dial opens a pool for a connection. Swappable in tests.
	dial func(context.Context, config.Connection) (db.Pool, error)

	// Window size
	width, height int

	// Connections pane
	conns      []config.Connection
	connIdx    int
	activeIdx  int // -1 while disconnected
	connecting bool

	// activeLabel survives config reloads so the connected entry can be
	// re-highlighted after the list is rebuilt.
	activeLabel string

	pool db.Pool

	// Schema pane
	databases    []db.Database
	expanded     map[string]bool
	tablesLoaded map[string]bool
	treeIdx      int

	// Data pane
	view     *TableView
	table    db.Table
	hasTable bool

	// backPage marks the awaited records request as a backward page, so
	// its window anchors the cursor at the bottom like other rebases.
	backPage bool

	// Raw SQL result mode: the data pane shows a statement's rows
	// instead of a paged table.
	sqlMode      bool
	sqlStatement string

	focus     Focus
	prevFocus Focus

	// Overlays
	errText     string
	showHelp    bool
	showColumns bool

	columnsTable  db.Table
	columnsHeader []string
	columnsRows   []db.Row

	// Input lines
	filterInput  textinput.Model
	filterActive bool
	sqlInput     textinput.Model
	sqlActive    bool

	// SQL history (in-memory, most recent first)
	sqlHistory []string
	sqlHistIdx int
	sqlDraft   string

	// Transient status line, cleared on the next keypress.
	status   string
	statusOK bool

	// Layout
	visibleDataRows int
	visibleCols     int
	connWidth       int
	schemaWidth     int
	dataWidth       int

	// Key bindings
	keys KeyMap
}

// NewApp creates a new TUI application.
func NewApp(cfg *config.Config, width, height int) *App {
	filterInput := textinput.New()
	filterInput.Prompt = inputPromptStyle.Render("WHERE ")
	filterInput.Placeholder = "raw predicate, e.g. status = 'open'"

	sqlInput := textinput.New()
	sqlInput.Prompt = inputPromptStyle.Render("SQL> ")

	app := &App{
		cfg:          cfg,
		orch:         query.New(),
		dial:         db.Connect,
		width:        width,
		height:       height,
		conns:        cfg.ConnectionList(),
		activeIdx:    -1,
		expanded:     map[string]bool{},
		tablesLoaded: map[string]bool{},
		view:         NewTableView(),
		focus:        FocusConnections,
		filterInput:  filterInput,
		sqlInput:     sqlInput,
		sqlHistIdx:   -1,
		keys:         BuildKeyMap(cfg.KeyOverrides()),
	}
	app.updateSizes()
	return app
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.awaitResult
}

// awaitResult blocks on the orchestrator inbox. Re-armed after every
// delivered result so exactly one reader is outstanding.
func (a *App) awaitResult() tea.Msg {
	return resultMsg(a.orch.Next())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case resultMsg:
		a.handleResult(query.Result(msg))
		return a, a.awaitResult

	case ConfigReloadedMsg:
		a.conns = msg.Config.ConnectionList()
		if a.connIdx >= len(a.conns) {
			a.connIdx = len(a.conns) - 1
		}
		if a.connIdx < 0 {
			a.connIdx = 0
		}
		// The active connection keeps its pool even if its entry moved
		// or vanished; only an explicit reconnect switches backends.
		a.activeIdx = a.findActive()
		a.keys = BuildKeyMap(msg.Config.KeyOverrides())
		return a, nil
	}
	return a, nil
}

// findActive relocates the connected entry in a refreshed list.
func (a *App) findActive() int {
	if a.pool == nil {
		return -1
	}
	for i, c := range a.conns {
		if c.Label() == a.activeLabel {
			return i
		}
	}
	return -1
}

// handleResult ingests one non-stale orchestrator result.
func (a *App) handleResult(r query.Result) {
	if r.Err != nil {
		a.fail(r.Err)
		return
	}

	switch r.Slot {
	case query.SlotConnect:
		p := r.Value.(connectPayload)
		a.pool = p.Pool
		a.connecting = false
		a.activeIdx = p.Index
		a.activeLabel = p.Conn.Label()
		a.databases = nil
		a.expanded = map[string]bool{}
		a.tablesLoaded = map[string]bool{}
		a.treeIdx = 0
		a.hasTable = false
		a.sqlMode = false
		a.view.Reset()
		a.focus = FocusSchema
		a.setStatus(fmt.Sprintf("connected to %s", p.Conn.Label()), true)
		a.submitDatabases()

	case query.SlotDatabases:
		p := r.Value.(databasesPayload)
		a.databases = p.Databases
		if a.treeIdx >= len(a.treeEntries()) {
			a.treeIdx = 0
		}
		// Auto-expand a lone database so tables are one keypress away.
		if len(a.databases) == 1 {
			a.expandDatabase(a.databases[0].Name)
		}

	case query.SlotTables:
		p := r.Value.(tablesPayload)
		for i := range a.databases {
			if a.databases[i].Name == p.Database {
				a.databases[i].Tables = p.Tables
				break
			}
		}
		a.tablesLoaded[p.Database] = true

	case query.SlotRecords:
		p := r.Value.(recordsPayload)
		sig := p.Query.Signature()
		switch {
		case p.Query.Offset == 0:
			fromBelow := a.backPage && sig == a.view.Sig && a.view.Base > 0
			a.view.Replace(p.Columns, p.Rows, 0, sig)
			if fromBelow {
				// Paging back into the first window; keep the cursor at
				// its bottom like every other backward rebase.
				a.view.JumpBottom()
			}
			if a.view.Total < 0 && !a.sqlMode {
				a.submitCount()
			}
		case a.view.Append(p.Rows, p.Query.Offset, sig):
			// Contiguous page taken.
		case sig == a.view.Sig:
			// A jump landed outside the buffer; rebase the window there.
			a.view.Replace(p.Columns, p.Rows, p.Query.Offset, sig)
		}
		a.backPage = false
		a.view.EnsureVisible(a.visibleDataRows)

	case query.SlotColumns:
		p := r.Value.(columnsPayload)
		a.columnsTable = p.Table
		a.columnsHeader = p.Columns
		a.columnsRows = p.Rows
		a.showColumns = true

	case query.SlotCount:
		p := r.Value.(countPayload)
		if p.Sig == a.view.Sig {
			a.view.Total = p.Total
		}

	case query.SlotExec:
		p := r.Value.(execPayload)
		if p.IsQuery {
			a.sqlMode = true
			a.sqlStatement = p.Statement
			a.hasTable = false
			a.view.Filter = ""
			a.view.Sort = db.SortSpec{}
			a.view.Replace(p.Columns, p.Rows, 0, "sql\x1f"+p.Statement)
			a.view.Total = int64(len(p.Rows))
			a.focus = FocusData
			a.setStatus(fmt.Sprintf("%d rows", len(p.Rows)), true)
		} else {
			a.setStatus(fmt.Sprintf("%d rows affected", p.Affected), true)
		}
	}
}

// fail routes an error by class: a dead handle raises the blocking
// overlay and drops the pool, anything else is a transient message that
// leaves the current view untouched.
func (a *App) fail(err error) {
	a.connecting = false
	if db.IsConnectivity(err) {
		a.errText = err.Error()
		a.prevFocus = a.focus
		a.disconnect()
		return
	}
	a.setStatus(err.Error(), false)
}

func (a *App) disconnect() {
	a.orch.InvalidateAll()
	if a.pool != nil {
		old := a.pool
		a.pool = nil
		go old.Close()
	}
	a.activeIdx = -1
	a.activeLabel = ""
	a.databases = nil
	a.expanded = map[string]bool{}
	a.tablesLoaded = map[string]bool{}
	a.treeIdx = 0
	a.hasTable = false
	a.sqlMode = false
	a.view.Reset()
}

func (a *App) setStatus(text string, ok bool) {
	a.status = text
	a.statusOK = ok
}

// connect switches the active backend to the selected entry. Everything
// in flight is invalidated first so nothing from the old backend lands.
func (a *App) connect(idx int) {
	if idx < 0 || idx >= len(a.conns) {
		return
	}
	conn := a.conns[idx]
	a.orch.InvalidateAll()
	if a.pool != nil {
		old := a.pool
		a.pool = nil
		go old.Close()
	}
	a.activeIdx = -1
	a.connecting = true
	a.setStatus(fmt.Sprintf("connecting to %s...", conn.Label()), true)

	dial := a.dial
	a.orch.Submit(query.SlotConnect, func(ctx context.Context) (any, error) {
		pool, err := dial(ctx, conn)
		if err != nil {
			return nil, err
		}
		return connectPayload{Pool: pool, Conn: conn, Index: idx}, nil
	})
}

func (a *App) submitDatabases() {
	pool := a.pool
	if pool == nil {
		return
	}
	a.orch.Submit(query.SlotDatabases, func(ctx context.Context) (any, error) {
		names, err := pool.ListDatabases(ctx)
		if err != nil {
			return nil, err
		}
		dbs := make([]db.Database, len(names))
		for i, name := range names {
			dbs[i] = db.Database{Name: name}
		}
		return databasesPayload{Databases: dbs}, nil
	})
}

func (a *App) submitTables(database string) {
	pool := a.pool
	if pool == nil {
		return
	}
	a.orch.Submit(query.SlotTables, func(ctx context.Context) (any, error) {
		tables, err := pool.ListTables(ctx, database)
		if err != nil {
			return nil, err
		}
		return tablesPayload{Database: database, Tables: tables}, nil
	})
}

func (a *App) submitRecords(offset int) {
	pool := a.pool
	if pool == nil || !a.hasTable {
		return
	}
	a.backPage = false
	q := a.view.Query(a.table, offset)
	a.orch.Submit(query.SlotRecords, func(ctx context.Context) (any, error) {
		rows, cols, err := pool.FetchRows(ctx, q)
		if err != nil {
			return nil, err
		}
		return recordsPayload{Query: q, Columns: cols, Rows: rows}, nil
	})
}

func (a *App) submitCount() {
	pool := a.pool
	if pool == nil || !a.hasTable {
		return
	}
	if a.cfg.RowCountPolicy() == config.RowCountOff {
		return
	}
	q := a.view.Query(a.table, 0)
	sig := q.Signature()
	a.orch.Submit(query.SlotCount, func(ctx context.Context) (any, error) {
		n, err := pool.CountRows(ctx, q)
		if err != nil {
			return nil, err
		}
		return countPayload{Sig: sig, Total: n}, nil
	})
}

func (a *App) submitColumns(table db.Table) {
	pool := a.pool
	if pool == nil {
		return
	}
	a.orch.Submit(query.SlotColumns, func(ctx context.Context) (any, error) {
		rows, cols, err := pool.FetchColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		return columnsPayload{Table: table, Columns: cols, Rows: rows}, nil
	})
}

func (a *App) submitExec(statement string) {
	pool := a.pool
	if pool == nil {
		a.setStatus("not connected", false)
		return
	}
	a.orch.Submit(query.SlotExec, func(ctx context.Context) (any, error) {
		if isQueryStatement(statement) {
			rows, cols, err := pool.Query(ctx, statement)
			if err != nil {
				return nil, err
			}
			return execPayload{Statement: statement, IsQuery: true, Columns: cols, Rows: rows}, nil
		}
		res, err := pool.Execute(ctx, statement)
		if err != nil {
			return nil, err
		}
		return execPayload{Statement: statement, Affected: res.RowsAffected}, nil
	})
}

// isQueryStatement decides whether a raw statement produces rows.
func isQueryStatement(statement string) bool {
	head := strings.ToUpper(strings.TrimSpace(statement))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "VALUES", "DESCRIBE", "TABLE"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}

// openTable starts browsing a table from a clean page-zero state. The
// old table's window is dropped immediately: keeping it visible would
// let a scroll request pages of the new table at the old buffer's
// offsets.
func (a *App) openTable(t db.Table) {
	a.table = t
	a.hasTable = true
	a.sqlMode = false
	a.view.Reset()
	a.focus = FocusData
	a.submitRecords(0)
}

// refresh re-requests whatever the current view shows.
func (a *App) refresh() {
	switch {
	case a.sqlMode:
		a.submitExec(a.sqlStatement)
	case a.hasTable:
		a.view.Total = -1
		a.submitRecords(0)
	case a.pool != nil:
		a.tablesLoaded = map[string]bool{}
		a.submitDatabases()
	}
}

func (a *App) expandDatabase(name string) {
	a.expanded[name] = true
	if !a.tablesLoaded[name] {
		a.submitTables(name)
	}
}

// treeEntries flattens the schema tree into visible lines.
func (a *App) treeEntries() []treeEntry {
	out := make([]treeEntry, 0, len(a.databases))
	for i := range a.databases {
		d := &a.databases[i]
		out = append(out, treeEntry{Database: d.Name})
		if a.expanded[d.Name] {
			for j := range d.Tables {
				out = append(out, treeEntry{Database: d.Name, Table: &d.Tables[j]})
			}
		}
	}
	return out
}

func (a *App) updateSizes() {
	contentHeight := a.height - 2 // input (1) + status (1)

	connWidth := a.connPaneWidth()
	schemaWidth := a.schemaPaneWidth()

	maxPanelWidth := a.width / 3
	if connWidth > maxPanelWidth {
		connWidth = maxPanelWidth
	}
	if schemaWidth > maxPanelWidth {
		schemaWidth = maxPanelWidth
	}
	if connWidth < 15 {
		connWidth = 15
	}
	if schemaWidth < 14 {
		schemaWidth = 14
	}

	a.connWidth = connWidth
	a.schemaWidth = schemaWidth
	a.dataWidth = a.width - connWidth - schemaWidth - 2

	// Pane borders (2) and the grid header (1); one line reserved for
	// the more-rows indicator.
	a.visibleDataRows = contentHeight - 4
	if a.visibleDataRows < 1 {
		a.visibleDataRows = 1
	}
	a.view.PageSize = a.visibleDataRows

	const minColWidth = 8
	availableWidth := a.dataWidth - 4
	a.visibleCols = availableWidth / (minColWidth + 1)
	if a.visibleCols < 1 {
		a.visibleCols = 1
	}

	a.filterInput.Width = a.width - 10
	a.sqlInput.Width = a.width - 10
}

func (a *App) connPaneWidth() int {
	maxLen := len("Connections")
	for _, c := range a.conns {
		if len(c.Label()) > maxLen {
			maxLen = len(c.Label())
		}
	}
	return maxLen + 7
}

func (a *App) schemaPaneWidth() int {
	maxLen := len("Schema")
	for _, d := range a.databases {
		if len(d.Name)+2 > maxLen {
			maxLen = len(d.Name) + 2
		}
		for _, t := range d.Tables {
			if len(t.Name)+4 > maxLen {
				maxLen = len(t.Name) + 4
			}
		}
	}
	return maxLen + 7
}
