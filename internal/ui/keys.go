package ui

import "charm.land/bubbles/v2/key"

type keyMap struct {
	Up, Down    key.Binding
	Left, Right key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	Sort        key.Binding
	Search      key.Binding
	Filter      key.Binding
	Columns     key.Binding
	Select      key.Binding
	SelectAll   key.Binding
	Add         key.Binding
	Export      key.Binding
	Activate    key.Binding
	Clear       key.Binding
	Help        key.Binding
	Quit        key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	Reset       key.Binding
	NextField   key.Binding
	PrevField   key.Binding
	Save        key.Binding
	Cancel      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev column")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next column")),
		NextPage:  key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next page")),
		PrevPage:  key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "prev page")),
		Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Columns:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "columns")),
		Select:    key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "select")),
		SelectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		Add:       key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "add row")),
		Export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		Activate:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Clear:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		MoveUp:    key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Save:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Sort, k.Select, k.Columns, k.NextPage, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Sort, k.Search, k.Filter, k.Clear},
		{k.NextPage, k.PrevPage, k.Columns, k.Export},
		{k.Select, k.SelectAll, k.Add, k.Activate},
		{k.Help, k.Quit},
	}
}

func (k keyMap) menuHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.MoveUp, k.MoveDown, k.Reset, k.Cancel}
}

func (k keyMap) draftHelp() []key.Binding {
	return []key.Binding{k.NextField, k.PrevField, k.Save, k.Cancel}
}
