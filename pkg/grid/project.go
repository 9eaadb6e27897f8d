package grid

import (
	"github.com/oakwood-commons/gridx/internal/paging"
	"github.com/oakwood-commons/gridx/pkg/record"
)

// Projection is everything a front end needs to draw the table once.
type Projection struct {
	Columns []Column
	Rows    []RowView
	// Message replaces the body when loading or when no rows match.
	Message string
	Loading bool

	Page        int
	TotalPages  int
	TotalRows   int
	PageNumbers []PageItem
	Paginated   bool

	Sort      SortState
	Search    SearchView
	Selection SelectionView
	Draft     *DraftView
	Filter    string

	ShowActions       bool
	AddRowEnabled     bool
	AddRowPlaceholder string
	ColumnsMenuHidden bool
	ExportHidden      bool
	// BulkActions lists action labels; empty unless rows are selected.
	BulkActions []string
}

// RowView is one rendered row.
type RowView struct {
	ID       string
	Row      Row
	Cells    []string
	Actions  string
	Selected bool
	Disabled bool
}

// SearchView is the search box state.
type SearchView struct {
	Hidden      bool
	Value       string
	Placeholder string
	Mode        SearchMode
	Searching   bool
}

// SelectionView is the header checkbox state.
type SelectionView struct {
	Enabled       bool
	All           bool
	Indeterminate bool
	Count         int
}

// DraftView is the inline add row. Cells align with Projection.Columns;
// readonly columns have Editable false and an empty Value.
type DraftView struct {
	ID    string
	Cells []DraftCell
}

// DraftCell is one column of the draft row.
type DraftCell struct {
	Key      string
	Value    string
	Editable bool
}

func (t *Table) cell(r Row, key string) string {
	if t.opts.Columns.RenderCell != nil {
		return t.opts.Columns.RenderCell(r, key)
	}
	return record.Stringify(r[key])
}

// Project computes the current projection.
func (t *Table) Project() Projection {
	cols := t.Columns()
	filtered := t.Filtered()
	view := paging.Slice(t.pager, filtered)
	total := t.pager.TotalPages(len(filtered))

	p := Projection{
		Columns:     cols,
		Loading:     t.loading,
		Page:        t.pager.Page(),
		TotalPages:  total,
		TotalRows:   len(filtered),
		PageNumbers: paging.PageNumbers(t.pager.Page(), total),
		Paginated:   t.opts.Pagination.Enabled,
		Sort:        t.sorter.State(),
		Filter:      t.Filter(),
		Search: SearchView{
			Hidden:      t.opts.Search.Hidden,
			Value:       t.search.Value(),
			Placeholder: t.opts.Search.Placeholder,
			Mode:        t.search.Mode(),
			Searching:   t.search.Searching(),
		},
		Selection: SelectionView{
			Enabled:       t.opts.Selection.Enabled,
			All:           t.sel.AllSelected(view),
			Indeterminate: t.sel.Indeterminate(view),
			Count:         t.sel.Len(),
		},
		ShowActions:       t.opts.RenderActions != nil,
		AddRowEnabled:     t.opts.AddRow.Enabled,
		AddRowPlaceholder: t.opts.AddRow.Placeholder,
		ColumnsMenuHidden: t.opts.Columns.MenuHidden,
		ExportHidden:      t.opts.Export.Hidden,
	}
	if t.opts.Pagination.ServerDriven {
		p.TotalRows = t.pager.Config().TotalCount
	}

	switch {
	case t.loading:
		p.Message = t.opts.LoadingMessage
	case len(view) == 0:
		p.Message = t.opts.EmptyMessage
	default:
		p.Rows = make([]RowView, len(view))
		for i, r := range view {
			id := t.opts.GetItemID(r)
			rv := RowView{
				ID:       id,
				Row:      r,
				Cells:    make([]string, len(cols)),
				Selected: t.sel.IsSelected(id),
				Disabled: t.sel.Disabled(r),
			}
			for j, c := range cols {
				rv.Cells[j] = t.cell(r, c.Key)
			}
			if t.opts.RenderActions != nil {
				rv.Actions = t.opts.RenderActions(r)
			}
			p.Rows[i] = rv
		}
	}

	if t.editor.Adding() {
		d := t.editor.Draft()
		dv := &DraftView{ID: d.ID, Cells: make([]DraftCell, len(cols))}
		for i, c := range cols {
			dc := DraftCell{Key: c.Key, Editable: t.editor.Editable(c.Key)}
			if dc.Editable {
				dc.Value, dc.Editable = t.draftCell(c.Key, d.Values[c.Key])
			}
			dv.Cells[i] = dc
		}
		p.Draft = dv
	}

	if t.sel.Len() > 0 {
		for _, a := range t.opts.BulkActions {
			p.BulkActions = append(p.BulkActions, a.Label)
		}
	}
	return p
}

func (t *Table) draftCell(key string, v any) (string, bool) {
	if t.opts.AddRow.RenderEditableCell != nil {
		return t.opts.AddRow.RenderEditableCell(key, v)
	}
	return record.Stringify(v), true
}
