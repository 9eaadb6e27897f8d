// Package table wraps the bubbles table with typed rows, content-fitted
// column widths and a no-color mode.
package table

import (
	"fmt"
	"image/color"

	bubtable "charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"
)

// Re-export common table types so callers can construct columns and rows
// without importing bubbles directly.
type Column = bubtable.Column
type Row = bubtable.Row

const (
	// MinColumnWidth is the narrowest a column is squeezed to.
	MinColumnWidth = 3
	// MaxColumnWidth caps a column's natural width.
	MaxColumnWidth = 40
	// cellGap is the right padding of every cell.
	cellGap = 1
)

// Model displays rows of type V. Each V becomes one table row via toRow.
type Model[V any] struct {
	table   bubtable.Model
	styles  bubtable.Styles
	rows    []V
	titles  []string
	columns []Column

	toRow func(V) Row

	width      int
	height     int
	focused    bool
	noColor    bool
	showCursor bool

	headerFG   color.Color
	selectedFG color.Color
	selectedBG color.Color
}

// NewModel creates a table that renders values with toRow.
func NewModel[V any](toRow func(V) Row) *Model[V] {
	t := bubtable.New(
		bubtable.WithFocused(true),
		bubtable.WithHeight(5),
	)

	s := bubtable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Bold(true).
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(cellGap)
	s.Selected = s.Selected.
		PaddingLeft(0).
		PaddingRight(0)
	s.Cell = lipgloss.NewStyle().
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(cellGap)
	t.SetStyles(s)

	return &Model[V]{
		table:      t,
		styles:     s,
		toRow:      toRow,
		width:      80,
		height:     10,
		focused:    true,
		showCursor: true,
	}
}

// SetData replaces the titles and rows and refits the column widths to
// the current width. The cursor is kept in range.
func (m *Model[V]) SetData(titles []string, rows []V) {
	m.titles = titles
	m.rows = rows
	m.rebuild()
}

func (m *Model[V]) rebuild() {
	tableRows := make([]Row, len(m.rows))
	for i, r := range m.rows {
		tableRows[i] = m.toRow(r)
	}
	widths := FitWidths(m.titles, tableRows, m.width)
	cols := make([]Column, len(m.titles))
	for i, t := range m.titles {
		cols[i] = Column{Title: t, Width: widths[i]}
	}
	m.columns = cols
	// Clear rows first: bubbles renders every cell of a row against the
	// column list, so rows must never be wider than the columns.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(tableRows)
	m.table.SetWidth(m.width)

	if n := len(m.rows); n == 0 {
		m.table.SetCursor(0)
	} else if m.Cursor() >= n {
		m.table.SetCursor(n - 1)
	}
}

// FitWidths sizes columns to their content, capped at MaxColumnWidth, then
// shrinks the widest columns until the row fits total, never below
// MinColumnWidth.
func FitWidths(titles []string, rows []Row, total int) []int {
	widths := make([]int, len(titles))
	for i, t := range titles {
		widths[i] = runewidth.StringWidth(t)
	}
	for _, r := range rows {
		for i, cell := range r {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}
	sum := 0
	for i := range widths {
		widths[i] = min(max(widths[i], MinColumnWidth), MaxColumnWidth)
		sum += widths[i] + cellGap
	}
	for total > 0 && sum > total {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= MinColumnWidth {
			break
		}
		widths[widest]--
		sum--
	}
	return widths
}

// Rows returns the current rows.
func (m *Model[V]) Rows() []V {
	return m.rows
}

// Columns returns the fitted columns.
func (m *Model[V]) Columns() []Column {
	return m.columns
}

// Cursor returns the current cursor position.
func (m *Model[V]) Cursor() int {
	return m.table.Cursor()
}

// SetCursor sets the cursor position.
func (m *Model[V]) SetCursor(pos int) {
	m.table.SetCursor(pos)
}

// SelectedRow returns the row under the cursor, or nil when empty.
func (m *Model[V]) SelectedRow() *V {
	cursor := m.Cursor()
	if cursor < 0 || cursor >= len(m.rows) {
		return nil
	}
	return &m.rows[cursor]
}

// ColumnAt maps a screen column to a column index, or -1.
func (m *Model[V]) ColumnAt(x int) int {
	start := 0
	for i, c := range m.columns {
		end := start + c.Width + cellGap
		if x >= start && x < end {
			return i
		}
		start = end
	}
	return -1
}

// SetSize sets the table dimensions and refits the columns.
func (m *Model[V]) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(height)
	m.rebuild()
}

// Focus sets the table focus state.
func (m *Model[V]) Focus() {
	m.focused = true
	m.table.Focus()
}

// Blur removes focus from the table.
func (m *Model[V]) Blur() {
	m.focused = false
	m.table.Blur()
}

// Focused returns true if the table has focus.
func (m *Model[V]) Focused() bool {
	return m.focused
}

// SetShowCursor toggles the cursor row highlight. Snapshots render
// without it.
func (m *Model[V]) SetShowCursor(show bool) {
	m.showCursor = show
	m.applyColorScheme()
}

// SetNoColor enables/disables color output.
func (m *Model[V]) SetNoColor(noColor bool) {
	m.noColor = noColor
	m.applyColorScheme()
}

// SetColors sets custom theme colors.
func (m *Model[V]) SetColors(headerFG, selectedFG, selectedBG color.Color) {
	m.headerFG = headerFG
	m.selectedFG = selectedFG
	m.selectedBG = selectedBG
	m.applyColorScheme()
}

func (m *Model[V]) applyColorScheme() {
	s := m.styles

	switch {
	case m.noColor:
		s.Header = s.Header.UnsetForeground().UnsetBackground().Bold(false)
		s.Selected = s.Selected.UnsetForeground().UnsetBackground().Bold(false)
		if m.showCursor {
			s.Selected = s.Selected.Reverse(true)
		}
		s.Cell = s.Cell.UnsetForeground().UnsetBackground()
	default:
		if m.headerFG != nil {
			s.Header = s.Header.Foreground(m.headerFG)
		}
		if m.selectedFG != nil {
			s.Selected = s.Selected.Foreground(m.selectedFG)
		}
		if m.selectedBG != nil {
			s.Selected = s.Selected.Background(m.selectedBG)
		}
	}
	if !m.showCursor {
		s.Selected = lipgloss.NewStyle()
	}

	m.table.SetStyles(s)
}

// Update handles navigation messages.
func (m *Model[V]) Update(msg tea.Msg) (*Model[V], tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the table to a string.
func (m *Model[V]) View() string {
	return m.table.View()
}

// Height returns the rendered height of the table (including header).
func (m *Model[V]) Height() int {
	return lipgloss.Height(m.View())
}

// String returns a string representation for debugging.
func (m *Model[V]) String() string {
	return fmt.Sprintf("Table[rows=%d, columns=%d, cursor=%d]", len(m.rows), len(m.columns), m.Cursor())
}
