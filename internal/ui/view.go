package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/gridx/pkg/grid"
)

// layout is the rendered screen plus the line positions the mouse handler
// needs.
type layout struct {
	lines      []string
	headerLine int
	draftLine  int
}

func (m *Model) topLines() []string {
	st := m.styles
	p := m.proj

	title := m.opts.Title
	if title == "" {
		title = "gridx"
	}
	head := st.title.Render(title) + st.muted.Render(fmt.Sprintf("  %d rows", p.TotalRows))
	if p.Filter != "" && m.focus != focusFilter {
		head += st.muted.Render("  filter: ") + p.Filter
	}
	lines := []string{head}

	if !p.Search.Hidden {
		label := st.label.Render("Search: ")
		if m.focus == focusSearch {
			label = st.current.Render("Search: ")
		}
		line := label + m.searchView()
		if p.Search.Searching {
			line += " " + m.spinner.View() + st.muted.Render(" searching")
		}
		lines = append(lines, line)
	}
	if m.focus == focusFilter {
		lines = append(lines, st.current.Render("Filter: ")+m.filter.View())
	}

	var tools []string
	if !p.ColumnsMenuHidden {
		tools = append(tools, "c Columns")
	}
	tools = append(tools, "f Filter")
	if !p.ExportHidden {
		tools = append(tools, "e Export")
	}
	if p.AddRowEnabled {
		tools = append(tools, "+ Add")
	}
	bar := st.muted.Render(strings.Join(tools, "  "))
	if p.Selection.Count > 0 {
		bar += "  " + st.accent.Render(fmt.Sprintf("%d selected", p.Selection.Count))
		for i, a := range p.BulkActions {
			bar += st.muted.Render(fmt.Sprintf("  %d:", i+1)) + a
		}
	}
	return append(lines, bar)
}

func (m *Model) searchView() string {
	if m.snapshot {
		if v := m.proj.Search.Value; v != "" {
			return v
		}
		return m.styles.muted.Render(m.searchPlaceholder())
	}
	m.search.Placeholder = m.searchPlaceholder()
	return m.search.View()
}

func (m *Model) searchPlaceholder() string {
	if m.proj.Search.Placeholder != "" {
		return m.proj.Search.Placeholder
	}
	return "Search..."
}

func (m *Model) bottomLines() []string {
	st := m.styles
	var lines []string
	if m.proj.Paginated && m.proj.TotalPages > 0 {
		lines = append(lines, m.pageBar())
	}
	if m.status != "" {
		if m.statusErr {
			lines = append(lines, st.err.Render(m.status))
		} else {
			lines = append(lines, st.success.Render(m.status))
		}
	}
	if !m.snapshot {
		switch m.focus {
		case focusMenu:
			lines = append(lines, m.help.ShortHelpView(m.keys.menuHelp()))
		case focusDraft:
			lines = append(lines, m.help.ShortHelpView(m.keys.draftHelp()))
		default:
			lines = append(lines, strings.Split(m.help.View(m.keys), "\n")...)
		}
	}
	return lines
}

// pageBar renders the page window with ellipses, e.g.
// "‹ Prev  1 … 4 [5] 6 … 10  Next ›  Page 5 of 10".
func (m *Model) pageBar() string {
	st := m.styles
	p := m.proj
	parts := []string{st.muted.Render("‹ Prev")}
	for _, it := range p.PageNumbers {
		switch {
		case it.Ellipsis:
			parts = append(parts, "…")
		case it.Current:
			parts = append(parts, st.current.Render(fmt.Sprintf("[%d]", it.Page)))
		default:
			parts = append(parts, fmt.Sprint(it.Page))
		}
	}
	parts = append(parts, st.muted.Render("Next ›"))
	return strings.Join(parts, " ") + st.muted.Render(fmt.Sprintf("  Page %d of %d", p.Page, p.TotalPages))
}

// draftLines is the inline add row, or the add hint when idle.
func (m *Model) draftLines() []string {
	p := m.proj
	if p.Draft == nil {
		if !p.AddRowEnabled || m.snapshot {
			return nil
		}
		hint := p.AddRowPlaceholder
		if hint == "" {
			hint = "Click to add new record"
		}
		return []string{m.styles.muted.Render("+ " + hint)}
	}
	cols := m.table.Columns()
	offset := 0
	var b strings.Builder
	if p.Selection.Enabled && len(cols) > 0 {
		b.WriteString(strings.Repeat(" ", cols[0].Width+1))
		offset = 1
	}
	for i, cell := range p.Draft.Cells {
		if i+offset >= len(cols) {
			break
		}
		w := cols[i+offset].Width
		var content string
		switch {
		case !cell.Editable:
		case m.focus == focusDraft && i == m.draftCol:
			content = m.draft.View()
		case cell.Value == "":
			content = m.styles.muted.Render(strings.Repeat("·", min(w, 3)))
		default:
			content = cell.Value
		}
		b.WriteString(fitCell(content, w) + " ")
	}
	return []string{m.styles.draft.Render(b.String())}
}

// fitCell truncates or pads s to exactly w terminal cells.
func fitCell(s string, w int) string {
	s = ansi.Truncate(s, w, "…")
	if pad := w - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func (m *Model) menuLines() []string {
	st := m.styles
	lines := []string{st.title.Render("Columns")}
	vis := m.grid.Visibility()
	for i, c := range m.grid.AllColumns() {
		cursor := "  "
		if i == m.menuCursor {
			cursor = st.current.Render("> ")
		}
		line := cursor + checkbox(vis[c.Key], false) + " " + c.Title()
		if !c.Draggable {
			line += st.muted.Render(" (fixed)")
		}
		lines = append(lines, line)
	}
	return append(lines, st.muted.Render("r Reset to defaults"))
}

func (m *Model) chromeHeight() int {
	return len(m.topLines()) + len(m.draftLines()) + len(m.bottomLines())
}

func (m *Model) layout() layout {
	lay := layout{}
	lines := m.topLines()
	lay.headerLine = len(lines)
	if m.focus == focusMenu {
		lines = append(lines, m.menuLines()...)
		lay.headerLine = -1
	} else {
		lines = append(lines, strings.Split(m.table.View(), "\n")...)
		if m.proj.Message != "" {
			lines = append(lines, m.styles.muted.Render(centre(m.proj.Message, m.width)))
		}
	}
	lay.draftLine = -1
	if dl := m.draftLines(); len(dl) > 0 {
		if m.proj.Draft != nil {
			lay.draftLine = len(lines)
		}
		lines = append(lines, dl...)
	}
	lay.lines = append(lines, m.bottomLines()...)
	return lay
}

func centre(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", (width-w)/2) + s
}

// View implements tea.Model.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

func (m *Model) render() string {
	lines := m.layout().lines
	for i, l := range lines {
		if lipgloss.Width(l) > m.width {
			lines[i] = ansi.Truncate(l, m.width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

// SnapshotOptions configure RenderSnapshot.
type SnapshotOptions struct {
	Title   string
	Width   int
	Height  int
	NoColor bool
	Theme   Theme
}

// RenderSnapshot renders the current page of t once, without cursor or
// key help, for non-interactive output.
func RenderSnapshot(t *grid.Table, opts SnapshotOptions) string {
	m := New(t, Options{
		Title:   opts.Title,
		NoColor: opts.NoColor,
		Theme:   opts.Theme,
		Width:   opts.Width,
	})
	m.snapshot = true
	m.table.Blur()
	m.refresh()
	out := m.render()
	if opts.Height > 0 {
		lines := strings.Split(out, "\n")
		if len(lines) > opts.Height {
			out = strings.Join(lines[:opts.Height], "\n")
		}
	}
	return out + "\n"
}
