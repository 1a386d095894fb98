package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKey routes one keypress. Priority order: blocking error
// overlay, help overlay, columns modal, input lines, the focused pane,
// then application-level bindings. Unmatched keys are dropped.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.errText != "" {
		// Any key dismisses. A dead handle forces the connection list;
		// otherwise focus returns to where the error interrupted.
		a.errText = ""
		if a.pool == nil {
			a.focus = FocusConnections
		} else {
			a.focus = a.prevFocus
		}
		return a, nil
	}

	if a.showHelp {
		if key.Matches(msg, a.keys.Back) || key.Matches(msg, a.keys.Help) || key.Matches(msg, a.keys.Quit) {
			a.showHelp = false
		}
		return a, nil
	}

	if a.showColumns {
		if key.Matches(msg, a.keys.Back) || key.Matches(msg, a.keys.Columns) || key.Matches(msg, a.keys.Quit) {
			a.showColumns = false
		}
		return a, nil
	}

	if a.filterActive {
		return a.handleFilterKey(msg)
	}
	if a.sqlActive {
		return a.handleSQLKey(msg)
	}

	// A transient message lives until the next keypress.
	a.status = ""

	if a.routeToFocus(msg) {
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.showHelp = true

	case key.Matches(msg, a.keys.NextPane):
		a.focus = (a.focus + 1) % 3

	case key.Matches(msg, a.keys.PrevPane):
		a.focus = (a.focus + 2) % 3

	case key.Matches(msg, a.keys.SQL):
		if a.pool != nil {
			a.openSQL()
		}

	case key.Matches(msg, a.keys.Refresh):
		a.refresh()
	}
	return a, nil
}

func (a *App) routeToFocus(msg tea.KeyMsg) bool {
	switch a.focus {
	case FocusConnections:
		return a.handleConnectionsKey(msg)
	case FocusSchema:
		return a.handleSchemaKey(msg)
	case FocusData:
		return a.handleDataKey(msg)
	}
	return false
}

func (a *App) handleConnectionsKey(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, a.keys.Up):
		if a.connIdx > 0 {
			a.connIdx--
		}
	case key.Matches(msg, a.keys.Down):
		if a.connIdx < len(a.conns)-1 {
			a.connIdx++
		}
	case key.Matches(msg, a.keys.Top):
		a.connIdx = 0
	case key.Matches(msg, a.keys.Bottom):
		if len(a.conns) > 0 {
			a.connIdx = len(a.conns) - 1
		}
	case key.Matches(msg, a.keys.Select):
		a.connect(a.connIdx)
	case key.Matches(msg, a.keys.Right):
		if a.pool != nil {
			a.focus = FocusSchema
		}
	default:
		return false
	}
	return true
}

func (a *App) handleSchemaKey(msg tea.KeyMsg) bool {
	entries := a.treeEntries()
	switch {
	case key.Matches(msg, a.keys.Up):
		if a.treeIdx > 0 {
			a.treeIdx--
		}
	case key.Matches(msg, a.keys.Down):
		if a.treeIdx < len(entries)-1 {
			a.treeIdx++
		}
	case key.Matches(msg, a.keys.Top):
		a.treeIdx = 0
	case key.Matches(msg, a.keys.Bottom):
		if len(entries) > 0 {
			a.treeIdx = len(entries) - 1
		}
	case key.Matches(msg, a.keys.Select):
		a.selectTreeEntry(entries)
	case key.Matches(msg, a.keys.Right):
		if a.treeIdx < len(entries) {
			e := entries[a.treeIdx]
			if e.Table == nil {
				a.expandDatabase(e.Database)
			} else if a.hasTable || a.sqlMode {
				a.focus = FocusData
			}
		}
	case key.Matches(msg, a.keys.Left):
		if a.treeIdx < len(entries) && entries[a.treeIdx].Table == nil && a.expanded[entries[a.treeIdx].Database] {
			a.expanded[entries[a.treeIdx].Database] = false
		} else {
			a.focus = FocusConnections
		}
	case key.Matches(msg, a.keys.Back):
		a.focus = FocusConnections
	case key.Matches(msg, a.keys.Columns):
		if a.treeIdx < len(entries) && entries[a.treeIdx].Table != nil {
			a.submitColumns(*entries[a.treeIdx].Table)
		}
	default:
		return false
	}
	return true
}

func (a *App) selectTreeEntry(entries []treeEntry) {
	if a.treeIdx >= len(entries) {
		return
	}
	e := entries[a.treeIdx]
	if e.Table == nil {
		if a.expanded[e.Database] {
			a.expanded[e.Database] = false
		} else {
			a.expandDatabase(e.Database)
		}
		return
	}
	a.openTable(*e.Table)
}

func (a *App) handleDataKey(msg tea.KeyMsg) bool {
	v := a.view
	switch {
	case key.Matches(msg, a.keys.Up):
		if v.CurRow == 0 && v.Base > 0 {
			// Scrolled above the window; back up one page.
			off := v.Base - v.PageSize
			if off < 0 {
				off = 0
			}
			a.submitRecords(off)
			a.backPage = true
		} else {
			v.Move(-1, 0)
		}

	case key.Matches(msg, a.keys.Down):
		v.Move(1, 0)
		a.maybeFetchMore()

	case key.Matches(msg, a.keys.Left):
		if v.CurCol <= 0 {
			a.focus = FocusSchema
		} else {
			v.Move(0, -1)
		}

	case key.Matches(msg, a.keys.Right):
		v.Move(0, 1)

	case key.Matches(msg, a.keys.ExtendUp):
		v.Extend(-1, 0)

	case key.Matches(msg, a.keys.ExtendDown):
		v.Extend(1, 0)
		a.maybeFetchMore()

	case key.Matches(msg, a.keys.ExtendLeft):
		v.Extend(0, -1)

	case key.Matches(msg, a.keys.ExtendRight):
		v.Extend(0, 1)

	case key.Matches(msg, a.keys.PageUp):
		if v.CurRow == 0 && v.Base > 0 {
			off := v.Base - v.PageSize
			if off < 0 {
				off = 0
			}
			a.submitRecords(off)
			a.backPage = true
		} else {
			v.PageUp(a.visibleDataRows)
		}

	case key.Matches(msg, a.keys.PageDown):
		v.PageDown(a.visibleDataRows)
		a.maybeFetchMore()

	case key.Matches(msg, a.keys.Top):
		if v.Base > 0 {
			a.submitRecords(0)
		} else {
			v.JumpTop()
		}

	case key.Matches(msg, a.keys.Bottom):
		if !a.sqlMode && v.Total >= 0 && int64(v.NextOffset()) < v.Total {
			a.submitRecords(v.LastPageOffset())
		} else {
			v.JumpBottom()
		}

	case key.Matches(msg, a.keys.Filter):
		if a.hasTable {
			a.openFilter()
		}

	case key.Matches(msg, a.keys.Sort):
		// The filter is unchanged, so a known total stays valid.
		if a.hasTable && v.CurCol >= 0 {
			v.CycleSort(v.CurCol)
			a.submitRecords(0)
		}

	case key.Matches(msg, a.keys.Columns):
		if a.hasTable {
			a.submitColumns(a.table)
		}

	case key.Matches(msg, a.keys.Copy):
		a.copySelection()

	case key.Matches(msg, a.keys.Back):
		a.focus = FocusSchema

	default:
		return false
	}

	v.EnsureVisible(a.visibleDataRows)
	v.EnsureColVisible(a.visibleCols)
	return true
}

func (a *App) maybeFetchMore() {
	if a.sqlMode || !a.hasTable || !a.view.NeedMore() {
		return
	}
	// After a filter or sort is re-signed the displayed window cannot
	// grow; the page-zero request for the new shape is already in
	// flight and extending the old buffer would supersede it.
	if a.view.Sig != a.view.Query(a.table, 0).Signature() {
		return
	}
	a.submitRecords(a.view.NextOffset())
}

func (a *App) copySelection() {
	text, ok := a.view.SelectionText()
	if !ok {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		a.setStatus(fmt.Sprintf("copy failed: %v", err), false)
		return
	}
	r0, c0, r1, c1, _ := a.view.Selection()
	a.setStatus(fmt.Sprintf("copied %dx%d", r1-r0+1, c1-c0+1), true)
}

func (a *App) openFilter() {
	a.filterActive = true
	a.filterInput.SetValue(a.view.Filter)
	a.filterInput.CursorEnd()
	a.filterInput.Focus()
}

func (a *App) openSQL() {
	a.sqlActive = true
	a.sqlInput.SetValue("")
	a.sqlInput.Focus()
	a.sqlHistIdx = -1
	a.sqlDraft = ""
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.filterActive = false
		a.filterInput.Blur()
		return a, nil

	case tea.KeyEnter:
		a.filterActive = false
		a.filterInput.Blur()
		a.view.SetFilter(strings.TrimSpace(a.filterInput.Value()))
		a.submitRecords(0)
		return a, nil
	}

	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	return a, cmd
}

func (a *App) handleSQLKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.sqlActive = false
		a.sqlInput.Blur()
		return a, nil

	case tea.KeyEnter:
		stmt := strings.TrimSpace(a.sqlInput.Value())
		a.sqlActive = false
		a.sqlInput.Blur()
		if stmt == "" {
			return a, nil
		}
		if len(a.sqlHistory) == 0 || a.sqlHistory[0] != stmt {
			a.sqlHistory = append([]string{stmt}, a.sqlHistory...)
			if len(a.sqlHistory) > 100 {
				a.sqlHistory = a.sqlHistory[:100]
			}
		}
		a.submitExec(stmt)
		return a, nil

	case tea.KeyUp:
		if a.sqlHistIdx < len(a.sqlHistory)-1 {
			if a.sqlHistIdx == -1 {
				a.sqlDraft = a.sqlInput.Value()
			}
			a.sqlHistIdx++
			a.sqlInput.SetValue(a.sqlHistory[a.sqlHistIdx])
			a.sqlInput.CursorEnd()
		}
		return a, nil

	case tea.KeyDown:
		if a.sqlHistIdx > -1 {
			a.sqlHistIdx--
			if a.sqlHistIdx == -1 {
				a.sqlInput.SetValue(a.sqlDraft)
			} else {
				a.sqlInput.SetValue(a.sqlHistory[a.sqlHistIdx])
			}
			a.sqlInput.CursorEnd()
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.sqlInput, cmd = a.sqlInput.Update(msg)
	return a, cmd
}
