// Package ui is the interactive terminal front end of gridx: a bubbletea
// model that drives a grid.Table from key and mouse events and renders
// its projection.
package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/gridx/internal/export"
	"github.com/oakwood-commons/gridx/internal/paging"
	"github.com/oakwood-commons/gridx/internal/ui/table"
	"github.com/oakwood-commons/gridx/pkg/grid"
	"github.com/oakwood-commons/gridx/pkg/record"
)

type focus int

const (
	focusTable focus = iota
	focusSearch
	focusFilter
	focusMenu
	focusDraft
)

// searchDebounceMsg fires when a keystroke's debounce delay elapses. Only
// the latest ID is acted on.
type searchDebounceMsg struct {
	ID int
}

// searchResultMsg carries a delegated search outcome back to the loop.
type searchResultMsg struct {
	Result grid.Result
}

// exportDoneMsg reports a finished export. Path is empty when a custom
// export handler ran instead of the built-in writer.
type exportDoneMsg struct {
	Path string
	Err  error
}

// Options configure a Model.
type Options struct {
	Title        string
	NoColor      bool
	Theme        Theme
	Width        int
	Height       int
	ExportDir    string
	ExportFormat export.Format
	Context      context.Context
	Logger       logr.Logger
}

// tableRow pairs a projected row with the cells rendered for it.
type tableRow struct {
	view  grid.RowView
	cells table.Row
}

// Model is the bubbletea model for one grid.
type Model struct {
	grid *grid.Table
	opts Options
	ctx  context.Context
	log  logr.Logger

	table   *table.Model[tableRow]
	search  textinput.Model
	filter  textinput.Model
	draft   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	styles  styles

	focus      focus
	colCursor  int
	menuCursor int
	draftCol   int
	status     string
	statusErr  bool
	snapshot   bool

	width  int
	height int
	proj   grid.Projection
}

// New returns a model for t.
func New(t *grid.Table, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Theme == (Theme{}) {
		opts.Theme = ThemeByName("")
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = export.CSV
	}

	si := textinput.New()
	si.Prompt = ""
	si.Placeholder = "Search..."
	si.CharLimit = 500
	si.SetValue(t.SearchValue())

	fi := textinput.New()
	fi.Prompt = ""
	fi.Placeholder = `row.status == "open"`
	fi.CharLimit = 500
	fi.SetValue(t.Filter())

	di := textinput.New()
	di.Prompt = ""
	di.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	h := help.New()

	m := Model{
		grid:    t,
		opts:    opts,
		ctx:     opts.Context,
		log:     opts.Logger,
		search:  si,
		filter:  fi,
		draft:   di,
		spinner: sp,
		help:    h,
		keys:    defaultKeyMap(),
		styles:  newStyles(opts.Theme, opts.NoColor),
		width:   80,
		height:  24,
	}
	if opts.Width > 0 {
		m.width = opts.Width
	}
	if opts.Height > 0 {
		m.height = opts.Height
	}
	m.table = table.NewModel(func(r tableRow) table.Row { return r.cells })
	m.table.SetNoColor(opts.NoColor)
	if !opts.NoColor {
		m.table.SetColors(opts.Theme.HeaderFG, opts.Theme.SelectedFG, opts.Theme.SelectedBG)
	}
	m.refresh()
	return m
}

// Grid returns the table being driven.
func (m Model) Grid() *grid.Table { return m.grid }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

// refresh recomputes the projection and pushes it into the widgets.
func (m *Model) refresh() {
	m.proj = m.grid.Project()
	if n := len(m.proj.Columns); m.colCursor >= n {
		m.colCursor = max(0, n-1)
	}
	if n := len(m.grid.AllColumns()); m.menuCursor >= n {
		m.menuCursor = max(0, n-1)
	}
	if m.focus != focusSearch {
		m.search.SetValue(m.grid.SearchValue())
	}
	m.table.SetShowCursor(!m.snapshot)
	m.table.SetSize(m.width, m.bodyHeight())
	rows := make([]tableRow, len(m.proj.Rows))
	for i, rv := range m.proj.Rows {
		rows[i] = tableRow{view: rv, cells: m.toRow(rv)}
	}
	m.table.SetData(m.titles(), rows)
}

// bodyHeight is the height left for the table once the chrome is laid out.
func (m *Model) bodyHeight() int {
	if m.snapshot {
		// header, rule, and every row of the page
		return len(m.proj.Rows) + 2
	}
	return max(3, m.height-m.chromeHeight())
}

func (m *Model) titles() []string {
	var titles []string
	if m.proj.Selection.Enabled {
		titles = append(titles, checkbox(m.proj.Selection.All, m.proj.Selection.Indeterminate))
	}
	for i, c := range m.proj.Columns {
		t := c.Title()
		if m.proj.Sort.Column == c.Key {
			switch m.proj.Sort.Direction {
			case grid.Ascending:
				t += " ▲"
			case grid.Descending:
				t += " ▼"
			}
		}
		if !m.snapshot && m.focus == focusTable && i == m.colCursor {
			t = "›" + t
		}
		titles = append(titles, t)
	}
	if m.proj.ShowActions {
		titles = append(titles, "Actions")
	}
	return titles
}

func checkbox(all, partial bool) string {
	switch {
	case all:
		return "[x]"
	case partial:
		return "[-]"
	default:
		return "[ ]"
	}
}

func (m Model) toRow(rv grid.RowView) table.Row {
	var row table.Row
	if m.proj.Selection.Enabled {
		box := checkbox(rv.Selected, false)
		if rv.Disabled {
			box = "   "
		}
		row = append(row, box)
	}
	row = append(row, rv.Cells...)
	if m.proj.ShowActions {
		row = append(row, rv.Actions)
	}
	return row
}

// dataColumn maps a table column index to a projection column index.
func (m Model) dataColumn(i int) int {
	if m.proj.Selection.Enabled {
		i--
	}
	if i < 0 || i >= len(m.proj.Columns) {
		return -1
	}
	return i
}

func (m *Model) currentRow() (grid.RowView, bool) {
	if r := m.table.SelectedRow(); r != nil {
		return r.view, true
	}
	return grid.RowView{}, false
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.search.SetWidth(max(10, m.width/2))
		m.filter.SetWidth(max(10, m.width-10))

	case searchDebounceMsg:
		if d, ok := m.grid.SearchDebounced(msg.ID); ok {
			cmd = tea.Batch(m.runSearch(d), m.spinner.Tick)
		}

	case searchResultMsg:
		if m.grid.ResolveSearch(msg.Result) && msg.Result.Err != nil {
			m.setError(fmt.Errorf("search failed: %w", msg.Result.Err))
		}

	case spinner.TickMsg:
		if m.grid.Searching() {
			m.spinner, cmd = m.spinner.Update(msg)
		}

	case exportDoneMsg:
		if msg.Err != nil {
			m.log.Error(msg.Err, "export failed", "path", msg.Path)
			m.setError(msg.Err)
		} else if msg.Path == "" {
			m.setStatus("Export complete")
		} else {
			m.log.V(1).Info("export written", "path", msg.Path)
			m.setStatus("Exported to %s", msg.Path)
		}

	case tea.MouseClickMsg:
		cmd = m.handleClick(msg.Mouse())

	case tea.KeyPressMsg:
		var quit bool
		cmd, quit = m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
	}
	m.refresh()
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return nil, true
	}
	switch m.focus {
	case focusSearch:
		return m.handleSearchKey(msg), false
	case focusFilter:
		return m.handleFilterKey(msg), false
	case focusMenu:
		m.handleMenuKey(msg)
		return nil, false
	case focusDraft:
		return m.handleDraftKey(msg), false
	}
	return m.handleTableKey(msg)
}

func (m *Model) handleTableKey(msg tea.KeyPressMsg) (tea.Cmd, bool) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return nil, true
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, k.Left):
		m.colCursor = max(0, m.colCursor-1)
	case key.Matches(msg, k.Right):
		m.colCursor = min(max(0, len(m.proj.Columns)-1), m.colCursor+1)
	case key.Matches(msg, k.Sort):
		if m.colCursor < len(m.proj.Columns) && !m.grid.Sort(m.proj.Columns[m.colCursor].Key) {
			m.setStatus("%s is not sortable", m.proj.Columns[m.colCursor].Title())
		}
	case key.Matches(msg, k.NextPage):
		m.pageErr(m.grid.NextPage())
	case key.Matches(msg, k.PrevPage):
		m.pageErr(m.grid.PrevPage())
	case key.Matches(msg, k.Search):
		if !m.proj.Search.Hidden {
			m.focus = focusSearch
			m.table.Blur()
			return m.search.Focus(), false
		}
	case key.Matches(msg, k.Filter):
		m.focus = focusFilter
		m.table.Blur()
		return m.filter.Focus(), false
	case key.Matches(msg, k.Columns):
		if !m.proj.ColumnsMenuHidden {
			m.focus = focusMenu
			m.table.Blur()
		}
	case key.Matches(msg, k.Select):
		if rv, ok := m.currentRow(); ok && m.proj.Selection.Enabled {
			if !m.grid.ToggleItem(rv.ID) {
				m.setStatus("Row %s cannot be selected", rv.ID)
			}
		}
	case key.Matches(msg, k.SelectAll):
		if m.proj.Selection.Enabled {
			m.grid.SelectAll(!m.proj.Selection.All)
		}
	case key.Matches(msg, k.Add):
		if m.grid.BeginAdd() {
			m.focus = focusDraft
			m.table.Blur()
			m.draftCol = -1
			return m.nextDraftField(1), false
		}
	case key.Matches(msg, k.Export):
		return m.export(), false
	case key.Matches(msg, k.Activate):
		if rv, ok := m.currentRow(); ok && !m.grid.Activate(rv.ID) {
			m.setStatus("Row %s", rv.ID)
		}
	case key.Matches(msg, k.Clear):
		if m.grid.SearchValue() != "" {
			if d, ok := m.grid.ClearSearch(); ok {
				return tea.Batch(m.runSearch(d), m.spinner.Tick), false
			}
		}
	default:
		if cmd, ok := m.bulkKey(msg.String()); ok {
			return cmd, false
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return cmd, false
	}
	return nil, false
}

func (m *Model) pageErr(err error) {
	if errors.Is(err, paging.ErrPageOutOfRange) {
		m.setStatus("No more pages")
	}
}

// bulkKey runs bulk action N for digit key N while rows are selected.
func (m *Model) bulkKey(s string) (tea.Cmd, bool) {
	if len(s) != 1 || s[0] < '1' || s[0] > '9' || len(m.proj.BulkActions) == 0 {
		return nil, false
	}
	idx := int(s[0] - '1')
	if idx >= len(m.proj.BulkActions) {
		return nil, false
	}
	label := m.proj.BulkActions[idx]
	n := len(m.grid.SelectedIDs())
	if err := m.grid.RunBulkAction(m.ctx, label); err != nil {
		m.setError(err)
	} else {
		m.setStatus("%s: %d rows", label, n)
	}
	return nil, true
}

func (m *Model) handleSearchKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "tab":
		m.blurInputs()
		return nil
	case "esc":
		m.blurInputs()
		m.search.SetValue("")
		return m.clearSearch()
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	v := m.search.Value()
	if v == m.grid.SearchValue() {
		return cmd
	}
	if v == "" {
		return tea.Batch(cmd, m.clearSearch())
	}
	p := m.grid.TypeSearch(v)
	return tea.Batch(cmd, tea.Tick(p.Delay, func(time.Time) tea.Msg {
		return searchDebounceMsg{ID: p.ID}
	}))
}

func (m *Model) clearSearch() tea.Cmd {
	if d, ok := m.grid.ClearSearch(); ok {
		return tea.Batch(m.runSearch(d), m.spinner.Tick)
	}
	return nil
}

// runSearch performs the delegated call off the event loop.
func (m *Model) runSearch(d grid.Dispatch) tea.Cmd {
	t, ctx := m.grid, m.ctx
	return func() tea.Msg {
		return searchResultMsg{Result: t.RunSearch(ctx, d)}
	}
}

func (m *Model) handleFilterKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if err := m.grid.SetFilter(strings.TrimSpace(m.filter.Value())); err != nil {
			m.setError(err)
			return nil
		}
		m.blurInputs()
		if f := m.grid.Filter(); f != "" {
			m.setStatus("Filter applied")
		} else {
			m.setStatus("Filter cleared")
		}
		return nil
	case "esc":
		m.filter.SetValue(m.grid.Filter())
		m.blurInputs()
		return nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return cmd
}

func (m *Model) handleMenuKey(msg tea.KeyPressMsg) {
	cols := m.grid.AllColumns()
	k := m.keys
	switch {
	case key.Matches(msg, k.Cancel), key.Matches(msg, k.Columns), key.Matches(msg, k.Quit):
		m.blurInputs()
	case key.Matches(msg, k.MoveUp):
		m.moveColumn(cols, -1)
	case key.Matches(msg, k.MoveDown):
		m.moveColumn(cols, 1)
	case key.Matches(msg, k.Up):
		m.menuCursor = max(0, m.menuCursor-1)
	case key.Matches(msg, k.Down):
		m.menuCursor = min(len(cols)-1, m.menuCursor+1)
	case key.Matches(msg, k.Select), msg.String() == "enter":
		if m.menuCursor < len(cols) {
			m.grid.ToggleColumn(cols[m.menuCursor].Key)
		}
	case key.Matches(msg, k.Reset):
		m.grid.ResetColumns()
		m.setStatus("Columns reset to defaults")
	}
}

func (m *Model) moveColumn(cols []grid.Column, delta int) {
	target := m.menuCursor + delta
	if m.menuCursor >= len(cols) || target < 0 || target >= len(cols) {
		return
	}
	src := cols[m.menuCursor]
	if !src.Draggable || !cols[target].Draggable {
		m.setStatus("%s cannot be moved there", src.Title())
		return
	}
	if m.grid.ReorderColumn(src.Key, cols[target].Key) {
		m.menuCursor = target
	}
}

func (m *Model) handleDraftKey(msg tea.KeyPressMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.Save):
		m.finishDraft(m.grid.SaveDraft())
		return nil
	case key.Matches(msg, k.Cancel):
		m.grid.CancelDraft()
		m.blurInputs()
		m.setStatus("Add cancelled")
		return nil
	case key.Matches(msg, k.NextField):
		return m.nextDraftField(1)
	case key.Matches(msg, k.PrevField):
		return m.nextDraftField(-1)
	case msg.String() == "up", msg.String() == "down":
		// Leaving the draft row by keyboard counts as an outside interaction.
		m.outside()
		return nil
	}
	var cmd tea.Cmd
	m.draft, cmd = m.draft.Update(msg)
	if m.draftCol >= 0 && m.draftCol < len(m.proj.Columns) {
		m.grid.UpdateDraft(m.proj.Columns[m.draftCol].Key, m.draft.Value())
	}
	return cmd
}

// nextDraftField moves the draft input to the next editable column in
// direction dir, wrapping around.
func (m *Model) nextDraftField(dir int) tea.Cmd {
	cols := m.grid.Columns()
	n := len(cols)
	for step := 1; step <= n; step++ {
		i := ((m.draftCol+dir*step)%n + n) % n
		if m.grid.Editable(cols[i].Key) {
			m.draftCol = i
			m.draft.SetValue(record.Stringify(m.grid.DraftValue(cols[i].Key)))
			m.draft.Placeholder = cols[i].Title()
			return m.draft.Focus()
		}
	}
	return nil
}

func (m *Model) outside() {
	if !m.grid.Adding() {
		return
	}
	ran, err := m.grid.OutsideInteraction()
	if !m.grid.Adding() {
		m.finishDraft(ran, err)
	}
}

func (m *Model) finishDraft(ran bool, err error) {
	m.blurInputs()
	switch {
	case err != nil:
		m.setError(err)
	case ran:
		m.setStatus("Row added")
	default:
		m.setStatus("Nothing to add")
	}
}

func (m *Model) blurInputs() {
	m.search.Blur()
	m.filter.Blur()
	m.draft.Blur()
	m.focus = focusTable
	m.table.Focus()
}

func (m *Model) export() tea.Cmd {
	if m.proj.ExportHidden {
		return nil
	}
	if run := m.grid.ExportHandler(); run != nil {
		return func() tea.Msg { return exportDoneMsg{Err: run()} }
	}
	var buf bytes.Buffer
	err := m.grid.ExportAs(&buf, m.opts.ExportFormat)
	switch {
	case errors.Is(err, grid.ErrNoData):
		m.setStatus("No data to export")
		return nil
	case err != nil:
		m.setError(err)
		return nil
	}
	path := filepath.Join(m.opts.ExportDir, m.grid.ExportFileName()+m.opts.ExportFormat.Ext())
	return func() tea.Msg {
		return exportDoneMsg{Path: path, Err: os.WriteFile(path, buf.Bytes(), 0o644)}
	}
}

// handleClick routes a pointer press. Any press off the draft row while
// adding is an outside interaction; a press on the header sorts.
func (m *Model) handleClick(mouse tea.Mouse) tea.Cmd {
	lay := m.layout()
	if m.grid.Adding() && mouse.Y != lay.draftLine {
		m.outside()
		return nil
	}
	if mouse.Y == lay.headerLine && m.focus == focusTable {
		if c := m.dataColumn(m.table.ColumnAt(mouse.X)); c >= 0 {
			m.colCursor = c
			m.grid.Sort(m.proj.Columns[c].Key)
		}
	}
	return nil
}

// Run starts the interactive program and blocks until it exits.
func Run(t *grid.Table, opts Options, progOpts ...tea.ProgramOption) error {
	p := tea.NewProgram(New(t, opts), progOpts...)
	_, err := p.Run()
	return err
}
