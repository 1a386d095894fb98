package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppdx999/lazydb/internal/config"
	"github.com/ppdx999/lazydb/internal/db"
	"github.com/ppdx999/lazydb/internal/query"
	"github.com/ppdx999/lazydb/internal/testutil"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Connections = []config.Connection{
		{Name: "primary", Kind: "sqlite", Path: "/tmp/primary.db"},
		{Name: "replica", Kind: "sqlite", Path: "/tmp/replica.db"},
	}
	return cfg
}

// newTestApp wires an app to a scriptable fake backend.
func newTestApp(pool *testutil.FakePool) *App {
	app := NewApp(testConfig(), 120, 40)
	app.dial = func(ctx context.Context, c config.Connection) (db.Pool, error) {
		return pool, nil
	}
	return app
}

// pump waits for one orchestrator result and feeds it to the model.
func pump(t *testing.T, a *App) {
	t.Helper()
	msg := a.awaitResult()
	if _, ok := msg.(resultMsg); !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	a.Update(msg)
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestConnectFlow(t *testing.T) {
	pool := &testutil.FakePool{
		ListDatabasesFn: func(ctx context.Context) ([]string, error) {
			return []string{"main"}, nil
		},
		ListTablesFn: func(ctx context.Context, database string) ([]db.Table, error) {
			return []db.Table{{Database: database, Name: "users", Kind: "table"}}, nil
		},
	}
	app := newTestApp(pool)

	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	pump(t, app) // connect
	if app.pool == nil {
		t.Fatal("pool not installed")
	}
	if app.focus != FocusSchema {
		t.Errorf("focus = %v, want schema", app.focus)
	}
	if app.activeIdx != 0 {
		t.Errorf("activeIdx = %d, want 0", app.activeIdx)
	}

	pump(t, app) // databases
	if len(app.databases) != 1 || app.databases[0].Name != "main" {
		t.Fatalf("databases = %+v", app.databases)
	}
	// A lone database auto-expands and its tables load.
	pump(t, app) // tables
	entries := app.treeEntries()
	if len(entries) != 2 || entries[1].Table == nil || entries[1].Table.Name != "users" {
		t.Fatalf("tree = %+v", entries)
	}
}

func TestOpenTableLoadsRecordsAndCount(t *testing.T) {
	rows := makeRows(10, 2)
	pool := &testutil.FakePool{
		FetchRowsFn: func(ctx context.Context, q db.RecordsQuery) ([]db.Row, []string, error) {
			return rows, []string{"id", "name"}, nil
		},
		CountRowsFn: func(ctx context.Context, q db.RecordsQuery) (int64, error) {
			return 10, nil
		},
	}
	app := newTestApp(pool)
	app.pool = pool
	app.activeIdx = 0

	app.openTable(db.Table{Database: "main", Name: "users"})
	pump(t, app) // records
	if len(app.view.Rows) != 10 {
		t.Fatalf("rows = %d", len(app.view.Rows))
	}
	if app.focus != FocusData {
		t.Errorf("focus = %v, want data", app.focus)
	}

	pump(t, app) // count, triggered by page zero
	if app.view.Total != 10 {
		t.Errorf("total = %d, want 10", app.view.Total)
	}
}

func TestStaleRecordsIgnored(t *testing.T) {
	app := newTestApp(&testutil.FakePool{})
	app.pool = &testutil.FakePool{}
	app.table = db.Table{Database: "main", Name: "users"}
	app.hasTable = true

	live := app.view.Query(app.table, 0)
	app.view.Replace([]string{"id"}, makeRows(5, 1), 0, live.Signature())

	// A page from an abandoned filter arrives after the filter was
	// cleared; its signature no longer matches.
	stale := live
	stale.Filter = "id > 100"
	stale.Offset = 5
	app.handleResult(query.Result{
		Slot:  query.SlotRecords,
		Value: recordsPayload{Query: stale, Columns: []string{"id"}, Rows: makeRows(5, 1)},
	})

	if len(app.view.Rows) != 5 {
		t.Errorf("stale page mutated the buffer: %d rows", len(app.view.Rows))
	}
}

func TestStaleCountIgnored(t *testing.T) {
	app := newTestApp(&testutil.FakePool{})
	app.view.Sig = "current"
	app.view.Total = -1

	app.handleResult(query.Result{
		Slot:  query.SlotCount,
		Value: countPayload{Sig: "old", Total: 999},
	})
	if app.view.Total != -1 {
		t.Errorf("stale count applied: %d", app.view.Total)
	}

	app.handleResult(query.Result{
		Slot:  query.SlotCount,
		Value: countPayload{Sig: "current", Total: 42},
	})
	if app.view.Total != 42 {
		t.Errorf("current count dropped: %d", app.view.Total)
	}
}

func TestConnectivityErrorRaisesOverlay(t *testing.T) {
	pool := &testutil.FakePool{}
	app := newTestApp(pool)
	app.pool = pool
	app.focus = FocusData

	app.handleResult(query.Result{
		Slot: query.SlotRecords,
		Err:  &db.ConnectivityError{Err: errors.New("broken pipe")},
	})

	if app.errText == "" {
		t.Fatal("overlay not raised")
	}
	if app.pool != nil {
		t.Error("dead pool not dropped")
	}

	// Any key dismisses and, with no pool, forces the connection list.
	app.Update(keyRune('x'))
	if app.errText != "" {
		t.Error("overlay not dismissed")
	}
	if app.focus != FocusConnections {
		t.Errorf("focus = %v, want connections", app.focus)
	}
}

func TestQueryErrorIsTransient(t *testing.T) {
	pool := &testutil.FakePool{}
	app := newTestApp(pool)
	app.pool = pool
	app.focus = FocusData
	app.view.Replace([]string{"id"}, makeRows(3, 1), 0, "sig")

	app.handleResult(query.Result{
		Slot: query.SlotRecords,
		Err:  &db.QueryError{Err: errors.New("no such column: nope")},
	})

	if app.errText != "" {
		t.Error("query error must not raise the blocking overlay")
	}
	if app.status == "" {
		t.Error("query error should surface in the status line")
	}
	if app.pool == nil {
		t.Error("pool dropped on a statement error")
	}
	if len(app.view.Rows) != 3 {
		t.Error("view mutated on a statement error")
	}

	// The message clears on the next keypress.
	app.Update(keyRune('j'))
	if app.status != "" {
		t.Error("status not cleared")
	}
}

func TestPaneCycling(t *testing.T) {
	app := newTestApp(&testutil.FakePool{})
	app.pool = &testutil.FakePool{}

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.focus != FocusSchema {
		t.Fatalf("focus = %v, want schema", app.focus)
	}
	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.focus != FocusData {
		t.Fatalf("focus = %v, want data", app.focus)
	}
	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.focus != FocusConnections {
		t.Fatalf("focus = %v, want connections", app.focus)
	}
	app.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if app.focus != FocusData {
		t.Fatalf("focus = %v, want data", app.focus)
	}
}

func TestHelpOverlayConsumesKeys(t *testing.T) {
	app := newTestApp(&testutil.FakePool{})

	app.Update(keyRune('?'))
	if !app.showHelp {
		t.Fatal("help not shown")
	}

	// Navigation keys are consumed while help is up.
	before := app.connIdx
	app.Update(keyRune('j'))
	if app.connIdx != before {
		t.Error("key leaked through the help overlay")
	}

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if app.showHelp {
		t.Error("help not dismissed")
	}
}

func TestSwitchingConnectionsInvalidatesOldBackend(t *testing.T) {
	closed := make(chan struct{})
	oldPool := &testutil.FakePool{ClosedSignalChan: closed}
	newPool := &testutil.FakePool{}

	app := newTestApp(newPool)
	app.pool = oldPool
	app.activeIdx = 0
	app.focus = FocusConnections
	app.connIdx = 1

	app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	// Close runs on a goroutine; wait for it via the channel.
	<-closed

	pump(t, app) // connect result for the new pool
	if app.pool != db.Pool(newPool) {
		t.Error("new pool not installed")
	}
	if app.activeIdx != 1 {
		t.Errorf("activeIdx = %d, want 1", app.activeIdx)
	}
}

func TestSQLBarRunsStatement(t *testing.T) {
	var gotStatement string
	pool := &testutil.FakePool{
		QueryFunc: func(ctx context.Context, statement string) ([]db.Row, []string, error) {
			gotStatement = statement
			return makeRows(2, 1), []string{"n"}, nil
		},
	}
	app := newTestApp(pool)
	app.pool = pool
	app.focus = FocusSchema

	app.Update(keyRune(':'))
	if !app.sqlActive {
		t.Fatal("sql bar not opened")
	}
	for _, r := range "SELECT 1" {
		app.Update(keyRune(r))
	}
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	pump(t, app) // exec result
	if gotStatement != "SELECT 1" {
		t.Errorf("statement = %q", gotStatement)
	}
	if !app.sqlMode || len(app.view.Rows) != 2 {
		t.Errorf("result not shown: sqlMode=%v rows=%d", app.sqlMode, len(app.view.Rows))
	}
	if app.sqlHistory[0] != "SELECT 1" {
		t.Errorf("history = %v", app.sqlHistory)
	}
}

func TestFilterCommitReissuesFromZero(t *testing.T) {
	var gotQueries []db.RecordsQuery
	pool := &testutil.FakePool{
		FetchRowsFn: func(ctx context.Context, q db.RecordsQuery) ([]db.Row, []string, error) {
			gotQueries = append(gotQueries, q)
			return makeRows(1, 1), []string{"id"}, nil
		},
		CountRowsFn: func(ctx context.Context, q db.RecordsQuery) (int64, error) {
			return 1, nil
		},
	}
	app := newTestApp(pool)
	app.pool = pool
	app.table = db.Table{Database: "main", Name: "users"}
	app.hasTable = true
	app.focus = FocusData
	app.view.Replace([]string{"id"}, makeRows(60, 1), 0, app.view.Query(app.table, 0).Signature())

	app.Update(keyRune('/'))
	if !app.filterActive {
		t.Fatal("filter bar not opened")
	}
	for _, r := range "id > 5" {
		app.Update(keyRune(r))
	}
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	pump(t, app) // records under the new filter
	if len(gotQueries) == 0 {
		t.Fatal("no records request issued")
	}
	q := gotQueries[0]
	if q.Filter != "id > 5" || q.Offset != 0 {
		t.Errorf("query = %+v, want filter at offset 0", q)
	}
	if len(app.view.Rows) != 1 {
		t.Errorf("rows = %d, want replaced buffer", len(app.view.Rows))
	}
}

func TestTableSwitchResetsStaleWindow(t *testing.T) {
	var mu sync.Mutex
	var offsets []int
	pool := &testutil.FakePool{
		FetchRowsFn: func(ctx context.Context, q db.RecordsQuery) ([]db.Row, []string, error) {
			mu.Lock()
			offsets = append(offsets, q.Offset)
			mu.Unlock()
			n := 3
			if q.Table == "orders" {
				n = q.Limit // a full page, so the window reports more rows below
			}
			return makeRows(n, 1), []string{"id"}, nil
		},
		CountRowsFn: func(ctx context.Context, q db.RecordsQuery) (int64, error) {
			return 500, nil
		},
	}
	app := newTestApp(pool)
	app.pool = pool

	app.openTable(db.Table{Database: "main", Name: "orders"})
	pump(t, app) // page zero
	pump(t, app) // count
	app.view.JumpBottom()

	// Switch tables and scroll before the new page arrives. The old
	// window must not request pages of the new table at its offsets.
	app.openTable(db.Table{Database: "main", Name: "users"})
	app.Update(keyRune('j'))

	pump(t, app) // page zero of the new table
	if app.view.Sig != app.view.Query(app.table, 0).Signature() {
		t.Fatal("window does not belong to the new table")
	}
	if len(app.view.Rows) != 3 {
		t.Errorf("rows = %d, want the new table's page", len(app.view.Rows))
	}

	mu.Lock()
	defer mu.Unlock()
	for _, off := range offsets {
		if off != 0 {
			t.Errorf("request issued at offset %d against a discarded window", off)
		}
	}
}

func TestSortChangeSuspendsPrefetch(t *testing.T) {
	var mu sync.Mutex
	var gotQueries []db.RecordsQuery
	pool := &testutil.FakePool{
		FetchRowsFn: func(ctx context.Context, q db.RecordsQuery) ([]db.Row, []string, error) {
			mu.Lock()
			gotQueries = append(gotQueries, q)
			mu.Unlock()
			return makeRows(1, 1), []string{"id"}, nil
		},
	}
	app := newTestApp(pool)
	app.pool = pool
	app.table = db.Table{Database: "main", Name: "users"}
	app.hasTable = true
	app.focus = FocusData

	size := app.view.PageSize
	sig := app.view.Query(app.table, 0).Signature()
	app.view.Replace([]string{"id"}, makeRows(size, 1), 0, sig)
	app.view.Total = 500
	app.view.JumpBottom()

	app.Update(keyRune('o')) // re-signs the request with a sort
	app.Update(keyRune('j')) // old window must not fetch its next page

	pump(t, app) // sorted page zero
	if len(app.view.Rows) != 1 {
		t.Errorf("rows = %d, want the re-signed page", len(app.view.Rows))
	}

	mu.Lock()
	defer mu.Unlock()
	for _, q := range gotQueries {
		if q.Offset != 0 {
			t.Errorf("prefetch at offset %d crossed the sort change", q.Offset)
		}
	}
}

func TestBackPageLandsAtPreviousWindowBottom(t *testing.T) {
	pool := &testutil.FakePool{
		FetchRowsFn: func(ctx context.Context, q db.RecordsQuery) ([]db.Row, []string, error) {
			return makeRows(q.Limit, 1), []string{"id"}, nil
		},
	}
	app := newTestApp(pool)
	app.pool = pool
	app.table = db.Table{Database: "main", Name: "users"}
	app.hasTable = true
	app.focus = FocusData

	size := app.view.PageSize
	sig := app.view.Query(app.table, 0).Signature()
	app.view.Replace([]string{"id"}, makeRows(size, 1), size, sig)
	app.view.Total = 500
	app.view.JumpTop()

	app.Update(tea.KeyMsg{Type: tea.KeyUp}) // submits the previous page
	pump(t, app)

	if app.view.Base != 0 {
		t.Fatalf("base = %d, want 0", app.view.Base)
	}
	if app.view.CurRow != size-1 {
		t.Errorf("cursor row = %d, want the window bottom %d", app.view.CurRow, size-1)
	}

	// An explicit jump to the top still lands the cursor on row zero.
	app.view.Replace([]string{"id"}, makeRows(size, 1), size, sig)
	app.Update(keyRune('g'))
	pump(t, app)
	if app.view.Base != 0 || app.view.CurRow != 0 {
		t.Errorf("top jump landed at base %d row %d", app.view.Base, app.view.CurRow)
	}
}

func TestKeyMapOverrides(t *testing.T) {
	keys := BuildKeyMap(map[string][]string{
		"quit":    {"x"},
		"unknown": {"z"},
	})

	if got := keys.Quit.Keys(); len(got) != 1 || got[0] != "x" {
		t.Errorf("quit keys = %v, want [x]", got)
	}
	// Untouched actions keep their defaults.
	if got := keys.Up.Keys(); len(got) != 2 || got[1] != "k" {
		t.Errorf("up keys = %v", got)
	}
}
