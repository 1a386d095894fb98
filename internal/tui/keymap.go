package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Cursor movement
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Block selection
	ExtendUp    key.Binding
	ExtendDown  key.Binding
	ExtendLeft  key.Binding
	ExtendRight key.Binding

	// Paging
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	// Pane and mode switching
	NextPane key.Binding
	PrevPane key.Binding
	Select   key.Binding
	Back     key.Binding

	// Actions
	Filter  key.Binding
	SQL     key.Binding
	Sort    key.Binding
	Columns key.Binding
	Refresh key.Binding
	Copy    key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right"),
		),
		ExtendUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "extend up"),
		),
		ExtendDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "extend down"),
		),
		ExtendLeft: key.NewBinding(
			key.WithKeys("H", "shift+left"),
			key.WithHelp("H", "extend left"),
		),
		ExtendRight: key.NewBinding(
			key.WithKeys("L", "shift+right"),
			key.WithHelp("L", "extend right"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("ctrl+u", "pgup"),
			key.WithHelp("ctrl+u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("ctrl+d", "pgdown"),
			key.WithHelp("ctrl+d", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		PrevPane: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev pane"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		SQL: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "sql"),
		),
		Sort: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "sort column"),
		),
		Columns: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "columns"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// BuildKeyMap applies per-action overrides from the config on top of the
// defaults. Unknown action names are ignored so a newer config keeps
// working with an older binary.
func BuildKeyMap(overrides map[string][]string) KeyMap {
	k := DefaultKeyMap()
	if len(overrides) == 0 {
		return k
	}

	bindings := map[string]*key.Binding{
		"up":           &k.Up,
		"down":         &k.Down,
		"left":         &k.Left,
		"right":        &k.Right,
		"extend_up":    &k.ExtendUp,
		"extend_down":  &k.ExtendDown,
		"extend_left":  &k.ExtendLeft,
		"extend_right": &k.ExtendRight,
		"page_up":      &k.PageUp,
		"page_down":    &k.PageDown,
		"top":          &k.Top,
		"bottom":       &k.Bottom,
		"next_pane":    &k.NextPane,
		"prev_pane":    &k.PrevPane,
		"select":       &k.Select,
		"back":         &k.Back,
		"filter":       &k.Filter,
		"sql":          &k.SQL,
		"sort":         &k.Sort,
		"columns":      &k.Columns,
		"refresh":      &k.Refresh,
		"copy":         &k.Copy,
		"help":         &k.Help,
		"quit":         &k.Quit,
	}

	for action, keys := range overrides {
		binding, ok := bindings[action]
		if !ok || len(keys) == 0 {
			continue
		}
		*binding = key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(keys[0], action),
		)
	}
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ExtendUp, k.ExtendDown, k.ExtendLeft, k.ExtendRight},
		{k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.NextPane, k.PrevPane, k.Select, k.Back},
		{k.Filter, k.SQL, k.Sort, k.Columns},
		{k.Refresh, k.Copy, k.Help, k.Quit},
	}
}
