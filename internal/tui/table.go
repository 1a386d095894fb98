package tui

import (
	"strings"

	"github.com/ppdx999/lazydb/internal/db"
)

// prefetchMargin is how close to the buffered bottom the cursor may get
// before the next page is requested.
const prefetchMargin = 5

// TableView owns the browsing state for the data pane: the buffered
// page window, the cell cursor, the block-selection anchor, and the
// filter/sort predicate. It is mutated only from the event-routing step
// and by ingested query results; the renderer reads it and never writes.
type TableView struct {
	Columns []string
	Rows    []db.Row

	// Base is the table offset of Rows[0]. Pages append while they stay
	// contiguous; a jump lands a fresh window at a new base.
	Base int

	// Total is the row count for the active signature, -1 while unknown.
	Total int64

	PageSize int

	// Cursor, relative to the buffer. (-1,-1) while the page is empty.
	CurRow, CurCol int

	// Block-selection anchor, (-1,-1) while collapsed to the cursor.
	AnchorRow, AnchorCol int

	Filter string
	Sort   db.SortSpec

	// Sig identifies the request shape the buffer belongs to. Results
	// signed differently are stale and must not touch the buffer.
	Sig string

	// ScrollRow and ColOffset are the top-left of the visible window.
	ScrollRow int
	ColOffset int

	lastPageFull bool
}

// NewTableView returns an empty view.
func NewTableView() *TableView {
	return &TableView{
		Total:     -1,
		PageSize:  50,
		CurRow:    -1,
		CurCol:    -1,
		AnchorRow: -1,
		AnchorCol: -1,
	}
}

// Reset drops all rows and state, keeping the page size.
func (t *TableView) Reset() {
	t.Columns = nil
	t.Rows = nil
	t.Base = 0
	t.Total = -1
	t.CurRow, t.CurCol = -1, -1
	t.Collapse()
	t.Filter = ""
	t.Sort = db.SortSpec{}
	t.Sig = ""
	t.ScrollRow = 0
	t.ColOffset = 0
	t.lastPageFull = false
}

// Replace installs a fresh buffer for a new request signature. The
// cursor resets to the origin, or to the sentinel when the page is
// empty.
func (t *TableView) Replace(columns []string, rows []db.Row, base int, sig string) {
	t.Columns = columns
	t.Rows = rows
	t.Base = base
	t.Sig = sig
	t.Collapse()
	t.ScrollRow = 0
	t.ColOffset = 0
	t.lastPageFull = t.PageSize > 0 && len(rows) >= t.PageSize
	if len(rows) == 0 || len(columns) == 0 {
		t.CurRow, t.CurCol = -1, -1
		return
	}
	if base > 0 {
		// A jump landed mid-table; put the cursor on the window's last row.
		t.CurRow, t.CurCol = len(rows)-1, 0
		return
	}
	t.CurRow, t.CurCol = 0, 0
}

// Append extends the buffer with the next contiguous page. It reports
// whether the page was taken: a mismatched signature or a gap means the
// result belongs to a superseded request and is dropped.
func (t *TableView) Append(rows []db.Row, offset int, sig string) bool {
	if sig != t.Sig || offset != t.Base+len(t.Rows) {
		return false
	}
	t.Rows = append(t.Rows, rows...)
	t.lastPageFull = t.PageSize > 0 && len(rows) >= t.PageSize
	t.Clamp()
	return true
}

// Clamp forces the cursor back inside the displayed buffer. Any buffer
// replacement that shrinks the row or column count must call this
// before the next render.
func (t *TableView) Clamp() {
	if len(t.Rows) == 0 || len(t.Columns) == 0 {
		t.CurRow, t.CurCol = -1, -1
		t.Collapse()
		return
	}
	t.CurRow = clamp(t.CurRow, 0, len(t.Rows)-1)
	t.CurCol = clamp(t.CurCol, 0, len(t.Columns)-1)
	if t.AnchorRow >= 0 {
		t.AnchorRow = clamp(t.AnchorRow, 0, len(t.Rows)-1)
		t.AnchorCol = clamp(t.AnchorCol, 0, len(t.Columns)-1)
	}
}

// Move steps the cursor by one cell, collapsing any block selection.
func (t *TableView) Move(dr, dc int) {
	if t.CurRow < 0 {
		return
	}
	t.Collapse()
	t.CurRow = clamp(t.CurRow+dr, 0, len(t.Rows)-1)
	t.CurCol = clamp(t.CurCol+dc, 0, len(t.Columns)-1)
}

// Extend grows the block selection, anchoring at the cursor position
// where extension began.
func (t *TableView) Extend(dr, dc int) {
	if t.CurRow < 0 {
		return
	}
	if t.AnchorRow < 0 {
		t.AnchorRow, t.AnchorCol = t.CurRow, t.CurCol
	}
	t.CurRow = clamp(t.CurRow+dr, 0, len(t.Rows)-1)
	t.CurCol = clamp(t.CurCol+dc, 0, len(t.Columns)-1)
}

// Collapse drops the block selection back to the cursor cell.
func (t *TableView) Collapse() {
	t.AnchorRow, t.AnchorCol = -1, -1
}

// Selection returns the selected rectangle in buffer coordinates. With
// no block anchor it is the single cursor cell. ok is false while the
// page is empty.
func (t *TableView) Selection() (r0, c0, r1, c1 int, ok bool) {
	if t.CurRow < 0 {
		return 0, 0, 0, 0, false
	}
	if t.AnchorRow < 0 {
		return t.CurRow, t.CurCol, t.CurRow, t.CurCol, true
	}
	r0, r1 = order(t.AnchorRow, t.CurRow)
	c0, c1 = order(t.AnchorCol, t.CurCol)
	return r0, c0, r1, c1, true
}

// PageUp moves the cursor up by one visible-page height.
func (t *TableView) PageUp(visible int) {
	if visible < 1 {
		visible = 1
	}
	t.Move(-visible, 0)
}

// PageDown moves the cursor down by one visible-page height.
func (t *TableView) PageDown(visible int) {
	if visible < 1 {
		visible = 1
	}
	t.Move(visible, 0)
}

// JumpTop moves the cursor to the first buffered row.
func (t *TableView) JumpTop() {
	if t.CurRow < 0 {
		return
	}
	t.Collapse()
	t.CurRow = 0
}

// JumpBottom moves the cursor to the last buffered row.
func (t *TableView) JumpBottom() {
	if t.CurRow < 0 {
		return
	}
	t.Collapse()
	t.CurRow = len(t.Rows) - 1
}

// SetFilter installs a new predicate. The caller must reissue the
// records request from offset zero; the signature changes so in-flight
// old-filter results are recognized as stale.
func (t *TableView) SetFilter(filter string) {
	t.Filter = filter
	t.Total = -1
}

// CycleSort advances the sort on one column: ascending, descending,
// then none. Like a filter change, the caller reissues from offset zero.
func (t *TableView) CycleSort(col int) {
	if col < 0 || col >= len(t.Columns) {
		return
	}
	name := t.Columns[col]
	switch {
	case t.Sort.Column != name:
		t.Sort = db.SortSpec{Column: name}
	case !t.Sort.Desc:
		t.Sort.Desc = true
	default:
		t.Sort = db.SortSpec{}
	}
}

// Query builds the records request for one page of the given table
// under the current filter and sort.
func (t *TableView) Query(table db.Table, offset int) db.RecordsQuery {
	return db.RecordsQuery{
		Database: table.Database,
		Table:    table.Name,
		Offset:   offset,
		Limit:    t.PageSize,
		Filter:   t.Filter,
		Sort:     t.Sort,
	}
}

// NextOffset is where the next contiguous page starts.
func (t *TableView) NextOffset() int { return t.Base + len(t.Rows) }

// NeedMore reports whether the cursor is close enough to the buffered
// bottom that the next page should be requested. With an unknown total
// the last page's fullness is the only signal that more rows exist.
func (t *TableView) NeedMore() bool {
	if t.CurRow < 0 {
		return false
	}
	if t.CurRow < len(t.Rows)-prefetchMargin {
		return false
	}
	if t.Total >= 0 {
		return int64(t.NextOffset()) < t.Total
	}
	return t.lastPageFull
}

// LastPageOffset is the offset of the final page, usable only when the
// total is known.
func (t *TableView) LastPageOffset() int {
	if t.Total < 0 || t.PageSize < 1 {
		return 0
	}
	last := int(t.Total) - t.PageSize
	if last < 0 {
		last = 0
	}
	return last
}

// EnsureVisible scrolls the row window so the cursor stays inside it.
func (t *TableView) EnsureVisible(visible int) {
	if visible < 1 {
		visible = 1
	}
	if t.CurRow < 0 {
		t.ScrollRow = 0
		return
	}
	if t.CurRow < t.ScrollRow {
		t.ScrollRow = t.CurRow
	}
	if t.CurRow >= t.ScrollRow+visible {
		t.ScrollRow = t.CurRow - visible + 1
	}
	if t.ScrollRow > len(t.Rows)-1 {
		t.ScrollRow = len(t.Rows) - 1
	}
	if t.ScrollRow < 0 {
		t.ScrollRow = 0
	}
}

// EnsureColVisible scrolls the column window so the cursor's column
// stays inside it.
func (t *TableView) EnsureColVisible(visible int) {
	if visible < 1 {
		visible = 1
	}
	if t.CurCol < 0 {
		t.ColOffset = 0
		return
	}
	if t.CurCol < t.ColOffset {
		t.ColOffset = t.CurCol
	}
	if t.CurCol >= t.ColOffset+visible {
		t.ColOffset = t.CurCol - visible + 1
	}
}

// SelectionText renders the selected rectangle as tab-separated lines.
// NULL cells render as the literal NULL, distinct from empty text.
func (t *TableView) SelectionText() (string, bool) {
	r0, c0, r1, c1, ok := t.Selection()
	if !ok {
		return "", false
	}
	var b strings.Builder
	for r := r0; r <= r1; r++ {
		if r > r0 {
			b.WriteString("\n")
		}
		row := t.Rows[r]
		for c := c0; c <= c1; c++ {
			if c > c0 {
				b.WriteString("\t")
			}
			if c < len(row) {
				b.WriteString(row[c].String())
			}
		}
	}
	return b.String(), true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func order(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}
