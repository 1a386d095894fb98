package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// View implements tea.Model.
func (a *App) View() string {
	if a.width < 40 || a.height < 10 {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
			errorStyle.Render("Terminal too small\nMin: 40x10"))
	}

	if a.errText != "" {
		return a.renderErrorOverlay()
	}
	if a.showHelp {
		return a.renderHelp()
	}
	if a.showColumns {
		return a.renderColumnsModal()
	}

	contentHeight := a.height - 2 // input (1) + status (1)

	connPane := a.renderConnectionsPane(a.connWidth, contentHeight)
	schemaPane := a.renderSchemaPane(a.schemaWidth, contentHeight)
	dataPane := a.renderDataPane(a.dataWidth, contentHeight)

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, connPane, schemaPane, dataPane))
	b.WriteString("\n")
	b.WriteString(a.renderInputBar())
	b.WriteString("\n")
	b.WriteString(a.renderStatusBar())
	return b.String()
}

func (a *App) renderConnectionsPane(width, height int) string {
	focused := a.focus == FocusConnections

	visibleHeight := height - 2
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	var content strings.Builder

	if len(a.conns) == 0 {
		content.WriteString(dimItemStyle.Render(" No connections"))
	} else {
		offset := 0
		if a.connIdx >= visibleHeight {
			offset = a.connIdx - visibleHeight + 1
		}
		end := offset + visibleHeight
		if end > len(a.conns) {
			end = len(a.conns)
		}

		for i := offset; i < end; i++ {
			conn := a.conns[i]
			marker := "  "
			if i == a.activeIdx {
				marker = "● "
			}
			item := truncateString(marker+conn.Label(), width-6)
			switch {
			case i == a.connIdx && focused:
				item = selectedItemStyle.Render("> " + item)
			case i == a.connIdx:
				item = normalItemStyle.Render("> " + item)
			case i == a.activeIdx:
				item = successStyle.Render("  " + item)
			default:
				item = normalItemStyle.Render("  " + item)
			}
			content.WriteString(item)
			if i < end-1 {
				content.WriteString("\n")
			}
		}
	}

	return a.renderPaneWithTitle(content.String(), width, height, "Connections", focused)
}

func (a *App) renderSchemaPane(width, height int) string {
	focused := a.focus == FocusSchema

	visibleHeight := height - 2
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	entries := a.treeEntries()

	var content strings.Builder

	switch {
	case a.pool == nil:
		content.WriteString(dimItemStyle.Render(" Not connected"))
	case a.connecting:
		content.WriteString(dimItemStyle.Render(" Connecting..."))
	case len(entries) == 0:
		content.WriteString(dimItemStyle.Render(" No databases"))
	default:
		offset := 0
		if a.treeIdx >= visibleHeight {
			offset = a.treeIdx - visibleHeight + 1
		}
		end := offset + visibleHeight
		if end > len(entries) {
			end = len(entries)
		}

		for i := offset; i < end; i++ {
			e := entries[i]
			var label string
			if e.Table == nil {
				arrow := "▸"
				if a.expanded[e.Database] {
					arrow = "▾"
				}
				label = arrow + " " + e.Database
			} else {
				label = "    " + e.Table.Name
				if e.Table.Kind == "view" {
					label += " (v)"
				}
			}
			label = truncateString(label, width-6)
			if i == a.treeIdx && focused {
				label = selectedItemStyle.Render("> " + label)
			} else if i == a.treeIdx {
				label = normalItemStyle.Render("> " + label)
			} else if e.Table == nil {
				label = normalItemStyle.Render("  " + label)
			} else {
				label = dimItemStyle.Render("  " + label)
			}
			content.WriteString(label)
			if i < end-1 {
				content.WriteString("\n")
			}
		}
	}

	return a.renderPaneWithTitle(content.String(), width, height, "Schema", focused)
}

func (a *App) renderDataPane(width, height int) string {
	focused := a.focus == FocusData

	title := "Data"
	switch {
	case a.sqlMode:
		title = "SQL result"
	case a.hasTable:
		title = a.table.Name
	}

	v := a.view
	if len(v.Columns) == 0 {
		msg := " No data"
		if a.pool == nil {
			msg = " Not connected"
		}
		return a.renderPaneWithTitle(dimItemStyle.Render(msg), width, height, title, focused)
	}

	var content strings.Builder

	totalCols := len(v.Columns)
	endCol := v.ColOffset + a.visibleCols
	if endCol > totalCols {
		endCol = totalCols
	}

	// Column scroll indicator
	if v.ColOffset > 0 || endCol < totalCols {
		left := ""
		right := ""
		if v.ColOffset > 0 {
			left = "← "
		}
		if endCol < totalCols {
			right = " →"
		}
		content.WriteString(dimItemStyle.Render(
			fmt.Sprintf("%scols %d-%d/%d%s", left, v.ColOffset+1, endCol, totalCols, right)))
		content.WriteString("\n")
	}

	startRow := v.ScrollRow
	endRow := startRow + a.visibleDataRows
	if endRow > len(v.Rows) {
		endRow = len(v.Rows)
	}

	// Content-based widths over the visible window, then trimmed so the
	// joined line fits the pane.
	widths := make([]int, 0, endCol-v.ColOffset)
	avail := width - 4
	lastCol := v.ColOffset
	for src := v.ColOffset; src < endCol; src++ {
		w := len(v.Columns[src])
		for r := startRow; r < endRow; r++ {
			row := v.Rows[r]
			if src < len(row) {
				if l := len(row[src].String()); l > w {
					w = l
				}
			}
		}
		if w < 8 {
			w = 8
		}
		if w > avail {
			w = avail
		}
		if avail-w < 0 {
			break
		}
		widths = append(widths, w)
		avail -= w + 1
		lastCol = src + 1
		if avail < 8 {
			break
		}
	}
	endCol = lastCol

	// Header
	var header strings.Builder
	for i, src := 0, v.ColOffset; src < endCol; i, src = i+1, src+1 {
		if i > 0 {
			header.WriteString(" ")
		}
		name := v.Columns[src]
		if v.Sort.Column == name {
			if v.Sort.Desc {
				name += " ▼"
			} else {
				name += " ▲"
			}
		}
		header.WriteString(gridHeaderStyle.Render(padCell(name, widths[i])))
	}
	content.WriteString(header.String())
	content.WriteString("\n")

	r0, c0, r1, c1, hasSel := v.Selection()

	for r := startRow; r < endRow; r++ {
		row := v.Rows[r]
		var line strings.Builder
		for i, src := 0, v.ColOffset; src < endCol; i, src = i+1, src+1 {
			if i > 0 {
				line.WriteString(" ")
			}
			text := ""
			isNull := false
			if src < len(row) {
				text = row[src].String()
				isNull = row[src].IsNull()
			}
			cell := padCell(text, widths[i])
			switch {
			case r == v.CurRow && src == v.CurCol && focused:
				cell = gridCursorStyle.Render(cell)
			case hasSel && r >= r0 && r <= r1 && src >= c0 && src <= c1 && focused:
				cell = gridSelectedStyle.Render(cell)
			case isNull:
				cell = gridNullStyle.Render(cell)
			default:
				cell = gridCellStyle.Render(cell)
			}
			line.WriteString(cell)
		}
		content.WriteString(line.String())
		if r < endRow-1 {
			content.WriteString("\n")
		}
	}

	// Rows below the window, loaded or not.
	lastShown := int64(v.Base + endRow)
	var below int64 = -1
	if v.Total >= 0 {
		below = v.Total - lastShown
	} else if int64(len(v.Rows)) > int64(endRow) {
		below = int64(len(v.Rows)) - int64(endRow)
	}
	if below > 0 {
		content.WriteString("\n")
		indicator := fmt.Sprintf("↓ %s more rows", humanize.Comma(below))
		if v.Total >= 0 && int64(v.NextOffset()) < v.Total {
			indicator += " (scroll to load)"
		}
		content.WriteString(dimItemStyle.Render(indicator))
	}

	return a.renderPaneWithTitle(content.String(), width, height, title, focused)
}

func (a *App) renderInputBar() string {
	if a.filterActive {
		return a.filterInput.View()
	}
	if a.sqlActive {
		return a.sqlInput.View()
	}
	if a.status != "" {
		if a.statusOK {
			return successStyle.Render(a.status)
		}
		return errorStyle.Render(truncateString(a.status, a.width-2))
	}
	if a.view.Filter != "" {
		return inputPromptStyle.Render("WHERE ") + normalItemStyle.Render(a.view.Filter)
	}
	return dimItemStyle.Render("/:filter  ::sql  o:sort  y:copy  ?:help")
}

func (a *App) renderStatusBar() string {
	var leftParts []string
	var rightParts []string

	leftParts = append(leftParts, titleStyle.Render("lazydb"))
	if a.activeIdx >= 0 && a.activeIdx < len(a.conns) {
		conn := a.conns[a.activeIdx]
		leftParts = append(leftParts, kindBadge(conn.Kind))
		leftParts = append(leftParts, statusKeyStyle.Render(conn.Label()))
	} else if a.connecting {
		leftParts = append(leftParts, dimItemStyle.Render("connecting..."))
	} else {
		leftParts = append(leftParts, dimItemStyle.Render("disconnected"))
	}

	if a.hasTable {
		rightParts = append(rightParts, normalItemStyle.Render(a.table.Name))
	}
	if a.view.CurRow >= 0 {
		pos := a.view.Base + a.view.CurRow + 1
		total := "?"
		if a.view.Total >= 0 {
			total = humanize.Comma(a.view.Total)
		}
		rightParts = append(rightParts, dimItemStyle.Render(
			fmt.Sprintf("| row %s/%s", humanize.Comma(int64(pos)), total)))
	}
	if a.view.Filter != "" {
		rightParts = append(rightParts, statusKeyStyle.Render("filtered"))
	}
	rightParts = append(rightParts, dimItemStyle.Render("| ?:help q:quit"))

	leftContent := strings.Join(leftParts, " ")
	rightContent := strings.Join(rightParts, " ")

	padding := a.width - lipgloss.Width(leftContent) - lipgloss.Width(rightContent) - 2
	if padding < 1 {
		padding = 1
	}
	return statusBarStyle.Width(a.width).Render(leftContent + strings.Repeat(" ", padding) + rightContent)
}

func (a *App) renderErrorOverlay() string {
	body := errorStyle.Render("Connection lost") + "\n\n" +
		normalItemStyle.Render(truncateString(a.errText, a.width-12)) + "\n\n" +
		dimItemStyle.Render("Press any key to return to connections")
	modal := errorOverlayStyle.Render(body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}

func (a *App) renderHelp() string {
	var b strings.Builder
	for _, group := range a.keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(helpKeyStyle.Render(fmt.Sprintf("%-12s", h.Key)))
			b.WriteString(helpDescStyle.Render(h.Desc))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(dimItemStyle.Render("Press ? or Esc to close"))

	modal := modalStyle.Render(titleStyle.Render("Help") + "\n\n" + b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}

func (a *App) renderColumnsModal() string {
	var b strings.Builder

	widths := make([]int, len(a.columnsHeader))
	for i, h := range a.columnsHeader {
		widths[i] = len(h)
	}
	for _, row := range a.columnsRows {
		for i := range widths {
			if i < len(row) {
				if l := len(row[i].String()); l > widths[i] {
					widths[i] = l
				}
			}
		}
	}

	for i, h := range a.columnsHeader {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(gridHeaderStyle.Render(padCell(h, widths[i])))
	}
	b.WriteString("\n")

	for _, row := range a.columnsRows {
		for i := range a.columnsHeader {
			if i > 0 {
				b.WriteString("  ")
			}
			text := ""
			if i < len(row) {
				text = row[i].String()
			}
			b.WriteString(normalItemStyle.Render(padCell(text, widths[i])))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimItemStyle.Render("Press Esc to close"))

	modal := modalStyle.Render(titleStyle.Render(a.columnsTable.Name) + "\n\n" + b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}

// buildBorderTitle builds a top border line with an embedded title.
func (a *App) buildBorderTitle(width int, title string, focused bool) string {
	border := lipgloss.RoundedBorder()
	var borderColor lipgloss.Color
	var style lipgloss.Style
	if focused {
		borderColor = primaryColor
		style = focusedBorderTitleStyle
	} else {
		borderColor = mutedColor
		style = borderTitleStyle
	}
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	titleRendered := style.Render(truncateString(title, width-6))
	remaining := width - 5 - lipgloss.Width(titleRendered)
	if remaining < 0 {
		remaining = 0
	}

	var b strings.Builder
	b.WriteString(borderStyle.Render(border.TopLeft))
	b.WriteString(borderStyle.Render(border.Top))
	b.WriteString(" ")
	b.WriteString(titleRendered)
	b.WriteString(" ")
	b.WriteString(borderStyle.Render(strings.Repeat(border.Top, remaining)))
	b.WriteString(borderStyle.Render(border.TopRight))
	return b.String()
}

// renderPaneWithTitle renders content in a pane with a title in the
// top border.
func (a *App) renderPaneWithTitle(content string, width, height int, title string, focused bool) string {
	border := lipgloss.RoundedBorder()
	var borderColor lipgloss.Color
	if focused {
		borderColor = primaryColor
	} else {
		borderColor = mutedColor
	}
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	innerWidth := width - 2
	innerHeight := height - 2
	if innerWidth < 1 {
		innerWidth = 1
	}
	if innerHeight < 1 {
		innerHeight = 1
	}

	contentLines := strings.Split(content, "\n")
	for len(contentLines) < innerHeight {
		contentLines = append(contentLines, "")
	}
	if len(contentLines) > innerHeight {
		contentLines = contentLines[:innerHeight]
	}

	var result strings.Builder
	result.WriteString(a.buildBorderTitle(width, title, focused))
	result.WriteString("\n")

	for _, line := range contentLines {
		result.WriteString(borderStyle.Render(border.Left))
		padded := " " + line
		lineWidth := lipgloss.Width(padded)
		if lineWidth < innerWidth {
			padded += strings.Repeat(" ", innerWidth-lineWidth)
		}
		result.WriteString(padded)
		result.WriteString(borderStyle.Render(border.Right))
		result.WriteString("\n")
	}

	result.WriteString(borderStyle.Render(border.BottomLeft))
	result.WriteString(borderStyle.Render(strings.Repeat(border.Bottom, innerWidth)))
	result.WriteString(borderStyle.Render(border.BottomRight))
	return result.String()
}

// padCell pads or truncates a cell value to an exact width.
func padCell(s string, width int) string {
	s = truncateString(s, width)
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s
}

// truncateString truncates a string to maxLen, adding ellipsis if needed.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
