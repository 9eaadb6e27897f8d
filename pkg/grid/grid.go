// Package grid composes the column, sort, search, paging, selection, and
// editor engines into one table and projects the rows a front end renders.
//
// A Table is not safe for concurrent use. It is meant to be driven from a
// single event loop; delegated searches run elsewhere and come back
// through ResolveSearch.
package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/gridx/internal/celfilter"
	"github.com/oakwood-commons/gridx/internal/columns"
	"github.com/oakwood-commons/gridx/internal/editor"
	"github.com/oakwood-commons/gridx/internal/export"
	"github.com/oakwood-commons/gridx/internal/paging"
	"github.com/oakwood-commons/gridx/internal/search"
	"github.com/oakwood-commons/gridx/internal/selection"
	"github.com/oakwood-commons/gridx/internal/sorting"
	"github.com/oakwood-commons/gridx/pkg/record"
)

var (
	// ErrNoData is returned by the built-in export when no rows match.
	ErrNoData = export.ErrNoData
	// ErrNoSelection is returned by RunBulkAction with nothing selected.
	ErrNoSelection = errors.New("no rows selected")
	// ErrUnknownAction is returned by RunBulkAction for an unknown label.
	ErrUnknownAction = errors.New("unknown bulk action")
)

// Table is one grid instance.
type Table struct {
	opts Options
	log  logr.Logger

	reg    *columns.Registry
	layout *columns.Store
	sorter *sorting.Engine
	search *search.Engine
	pager  *paging.Pager
	sel    *selection.Tracker
	editor *editor.Editor
	filter *celfilter.Predicate

	rows    []Row
	loading bool
}

// New builds a Table. It fails only when the pagination config or the
// initial filter expression is invalid.
func New(opts Options) (*Table, error) {
	lgr := opts.Logger
	if lgr.GetSink() == nil {
		lgr = logr.Discard()
	}
	if opts.GetItemID == nil {
		opts.GetItemID = record.DefaultID
	}
	if opts.EmptyMessage == "" {
		opts.EmptyMessage = DefaultEmptyMessage
	}
	if opts.LoadingMessage == "" {
		opts.LoadingMessage = DefaultLoadingMessage
	}
	pcfg := paging.Config{
		Enabled:      opts.Pagination.Enabled,
		PageSize:     opts.Pagination.PageSize,
		ServerDriven: opts.Pagination.ServerDriven,
		TotalCount:   opts.Pagination.TotalCount,
	}
	if err := pcfg.Validate(); err != nil {
		return nil, err
	}

	t := &Table{opts: opts, log: lgr}
	t.reg = columns.NewRegistry(opts.Columns.Columns, lgr)
	t.layout = columns.NewStore(t.reg, opts.Columns.Storage, opts.Columns.StorageKey, lgr)
	t.sorter = sorting.NewEngine(t.sortable, opts.Locale)
	t.search = search.NewEngine(search.Config{
		Mode:     opts.Search.Mode,
		Debounce: opts.Search.Debounce,
		Disabled: opts.Search.DisableClientSearch,
	}, lgr.WithName("search"))
	t.pager = paging.New(pcfg)
	t.sel = selection.New(opts.GetItemID, opts.Selection.IsRowDisabled)

	edOpts := []editor.Option{
		editor.WithLogger(lgr.WithName("editor")),
		editor.WithGuard(opts.AddRow.Guard),
	}
	if opts.AddRow.Clock != nil {
		edOpts = append(edOpts, editor.WithClock(opts.AddRow.Clock))
	}
	t.editor = editor.New(opts.AddRow.Readonly, edOpts...)

	if opts.Sort.Active() {
		t.sorter.Set(opts.Sort)
	}
	if err := t.SetFilter(opts.Filter); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) sortable(key string) bool {
	d, ok := t.reg.Descriptor(key)
	return ok && d.Sortable
}

// SetRows replaces the data. Selection survives the refresh except for
// rows that are now disabled, and the page is clamped to the new count.
func (t *Table) SetRows(rows []Row) {
	t.rows = rows
	t.loading = false
	t.sel.Reconcile(rows)
	t.pager.Clamp(len(t.Filtered()))
}

// Rows returns the rows last passed to SetRows.
func (t *Table) Rows() []Row { return t.rows }

// SetLoading toggles the loading message.
func (t *Table) SetLoading(loading bool) { t.loading = loading }

// Loading reports the loading flag.
func (t *Table) Loading() bool { return t.loading }

// Filtered runs the transform pipeline up to, but excluding, paging:
// source rows, advanced filter, sort, then client search.
func (t *Table) Filtered() []Row {
	rows := t.search.Source(t.rows)
	rows = celfilter.Apply(t.filter, rows, t.log.WithName("filter"))
	rows = t.sorter.Apply(rows)
	return t.search.Apply(rows)
}

// View returns the rows on the current page.
func (t *Table) View() []Row {
	return paging.Slice(t.pager, t.Filtered())
}

// Columns

// Columns returns the visible columns in display order.
func (t *Table) Columns() []Column { return t.layout.Visible() }

// AllColumns returns every column in display order, visible or not.
func (t *Table) AllColumns() []Column { return t.layout.Ordered() }

// Visibility returns a copy of the visibility map.
func (t *Table) Visibility() map[string]bool { return t.layout.Visibility() }

// ToggleColumn flips a column's visibility.
func (t *Table) ToggleColumn(key string) bool { return t.layout.Toggle(key) }

// ReorderColumn moves source into the slot target occupies.
func (t *Table) ReorderColumn(source, target string) bool {
	return t.layout.Reorder(source, target)
}

// ResetColumns restores the default layout and erases the persisted one.
func (t *Table) ResetColumns() { t.layout.ResetToDefaults() }

// Sorting

// Sort cycles the sort state for key. Non-sortable keys are ignored.
func (t *Table) Sort(key string) bool {
	if !t.sorter.Sort(key) {
		return false
	}
	if t.opts.OnSortChange != nil {
		t.opts.OnSortChange(t.sorter.State())
	}
	return true
}

// SetSort sets the sort state directly.
func (t *Table) SetSort(s SortState) bool {
	if !t.sorter.Set(s) {
		return false
	}
	if t.opts.OnSortChange != nil {
		t.opts.OnSortChange(t.sorter.State())
	}
	return true
}

// SortState returns the active sort.
func (t *Table) SortState() SortState { return t.sorter.State() }

// Search

// SearchMode returns the configured search mode.
func (t *Table) SearchMode() SearchMode { return t.search.Mode() }

// SearchValue is what the search box shows.
func (t *Table) SearchValue() string { return t.search.Value() }

// Searching reports a delegated query in flight.
func (t *Table) Searching() bool { return t.search.Searching() }

// TypeSearch records a keystroke, resets the page and reports the value to
// OnSearchChange. The caller waits Pending.Delay and then calls
// SearchDebounced with Pending.ID.
func (t *Table) TypeSearch(value string) Pending {
	p := t.search.Input(value)
	t.searchChanged(value)
	return p
}

// SearchDebounced handles a fired debounce timer. In client mode the term
// is applied and the page reset. In delegated mode the returned Dispatch
// must be run, e.g. with RunSearch, and fed to ResolveSearch.
func (t *Table) SearchDebounced(id int) (Dispatch, bool) {
	before := t.search.Term()
	d, ok := t.search.Debounced(id)
	if ok || t.search.Term() != before {
		t.pager.Reset()
	}
	return d, ok
}

// ClearSearch empties the box without waiting for the debounce.
func (t *Table) ClearSearch() (Dispatch, bool) {
	d, ok := t.search.Clear()
	t.searchChanged("")
	return d, ok
}

// SetSearchValue makes an external value authoritative over typed input.
func (t *Table) SetSearchValue(value string) {
	t.search.SetControlled(value)
	t.pager.Reset()
}

// ReleaseSearchValue hands the box back to keystrokes.
func (t *Table) ReleaseSearchValue() { t.search.ReleaseControl() }

// RunSearch calls OnGlobalSearch for d. It blocks and belongs off the
// event loop.
func (t *Table) RunSearch(ctx context.Context, d Dispatch) Result {
	return search.Run(ctx, t.opts.Search.OnGlobalSearch, d)
}

// ResolveSearch applies a delegated result. Stale results are dropped and
// reported false.
func (t *Table) ResolveSearch(res Result) bool {
	if !t.search.Resolve(res) {
		return false
	}
	if res.Err == nil {
		t.pager.Reset()
	}
	return true
}

func (t *Table) searchChanged(q string) {
	t.pager.Reset()
	if t.opts.Search.OnSearchChange != nil {
		t.opts.Search.OnSearchChange(q)
	}
}

// Filter

// SetFilter installs a CEL predicate over row; empty clears it. The page
// resets on success. An invalid expression leaves the old filter in place.
func (t *Table) SetFilter(expr string) error {
	if expr == "" {
		t.filter = nil
		t.pager.Reset()
		return nil
	}
	p, err := celfilter.Compile(expr)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	t.filter = p
	t.pager.Reset()
	return nil
}

// Filter returns the active filter expression.
func (t *Table) Filter() string {
	if t.filter == nil {
		return ""
	}
	return t.filter.String()
}

// Paging

// Page returns the current 1-based page.
func (t *Table) Page() int { return t.pager.Page() }

// TotalPages returns the page count for the filtered rows.
func (t *Table) TotalPages() int { return t.pager.TotalPages(len(t.Filtered())) }

// GoToPage moves to page, rejecting pages out of range.
func (t *Table) GoToPage(page int) error {
	return t.pager.GoTo(page, len(t.Filtered()))
}

// NextPage advances one page.
func (t *Table) NextPage() error { return t.pager.Next(len(t.Filtered())) }

// PrevPage goes back one page.
func (t *Table) PrevPage() error { return t.pager.Prev(len(t.Filtered())) }

// SetTotalCount updates the total for server-driven paging.
func (t *Table) SetTotalCount(n int) { t.pager.SetTotalCount(n) }

// Selection

// SelectionEnabled reports whether rows can be selected.
func (t *Table) SelectionEnabled() bool { return t.opts.Selection.Enabled }

// SelectAll selects every eligible row in view, or clears the set.
func (t *Table) SelectAll(checked bool) {
	if !t.opts.Selection.Enabled {
		return
	}
	t.sel.SelectAll(checked, t.View())
	if t.opts.Selection.OnSelectAll != nil {
		t.opts.Selection.OnSelectAll(checked)
	}
}

// SelectItem selects or deselects one row in view. Disabled rows and rows
// outside the view are rejected.
func (t *Table) SelectItem(id string, checked bool) bool {
	if !t.opts.Selection.Enabled || !t.sel.SelectItem(id, checked, t.View()) {
		return false
	}
	if t.opts.Selection.OnSelectItem != nil {
		t.opts.Selection.OnSelectItem(id, checked)
	}
	return true
}

// ToggleItem flips one row's selection.
func (t *Table) ToggleItem(id string) bool {
	return t.SelectItem(id, !t.sel.IsSelected(id))
}

// IsSelected reports whether id is selected.
func (t *Table) IsSelected(id string) bool { return t.sel.IsSelected(id) }

// AllSelected reports the header checkbox state.
func (t *Table) AllSelected() bool { return t.sel.AllSelected(t.View()) }

// Indeterminate reports a partial selection.
func (t *Table) Indeterminate() bool { return t.sel.Indeterminate(t.View()) }

// SelectedIDs returns the selected identifiers, sorted.
func (t *Table) SelectedIDs() []string { return t.sel.IDs() }

// SelectedRows returns the selected rows in data order.
func (t *Table) SelectedRows() []Row { return t.sel.Rows(t.search.Source(t.rows)) }

// ClearSelection empties the selection.
func (t *Table) ClearSelection() { t.sel.Clear() }

// BulkActions returns the configured bulk actions.
func (t *Table) BulkActions() []BulkAction { return t.opts.BulkActions }

// RunBulkAction runs the action labelled label against the selected rows
// and clears the selection when it succeeds.
func (t *Table) RunBulkAction(ctx context.Context, label string) error {
	idx := slices.IndexFunc(t.opts.BulkActions, func(a BulkAction) bool { return a.Label == label })
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownAction, label)
	}
	rows := t.SelectedRows()
	if len(rows) == 0 {
		return ErrNoSelection
	}
	if err := t.opts.BulkActions[idx].Run(ctx, rows); err != nil {
		return fmt.Errorf("bulk action %q: %w", label, err)
	}
	t.log.V(1).Info("bulk action completed", "action", label, "rows", len(rows))
	t.sel.Clear()
	return nil
}

// Activate calls OnRowActivate for the row in view identified by id.
func (t *Table) Activate(id string) bool {
	if t.opts.OnRowActivate == nil {
		return false
	}
	for _, r := range t.View() {
		if t.opts.GetItemID(r) == id {
			t.opts.OnRowActivate(r)
			return true
		}
	}
	return false
}

// Inline add

// AddRowEnabled reports whether the add row is offered.
func (t *Table) AddRowEnabled() bool { return t.opts.AddRow.Enabled }

// Adding reports an open draft.
func (t *Table) Adding() bool { return t.editor.Adding() }

// BeginAdd opens a draft.
func (t *Table) BeginAdd() bool {
	if !t.opts.AddRow.Enabled {
		return false
	}
	return t.editor.BeginAdd()
}

// UpdateDraft sets a draft field.
func (t *Table) UpdateDraft(key string, value any) bool {
	if !t.reg.Has(key) {
		return false
	}
	return t.editor.UpdateDraft(key, value)
}

// DraftValue returns the draft value for key.
func (t *Table) DraftValue(key string) any { return t.editor.Value(key) }

// Editable reports whether key gets a control while adding.
func (t *Table) Editable(key string) bool { return t.editor.Editable(key) }

// SaveDraft is the explicit save. It reports whether OnAddRow ran and
// returns its error. The editor is idle either way.
func (t *Table) SaveDraft() (bool, error) { return t.deliver(t.editor.Save()) }

// CommitDraft commits without opening the guard window.
func (t *Table) CommitDraft() (bool, error) { return t.deliver(t.editor.Commit()) }

// CancelDraft discards the draft.
func (t *Table) CancelDraft() bool { return t.editor.Cancel() }

// OutsideInteraction reports an interaction outside the draft row, which
// commits the draft unless it follows a save or cancel by less than the
// guard window.
func (t *Table) OutsideInteraction() (bool, error) {
	return t.deliver(t.editor.OutsideInteraction())
}

func (t *Table) deliver(row Row, ok bool) (bool, error) {
	if !ok {
		return false, nil
	}
	if t.opts.AddRow.OnAddRow == nil {
		return true, nil
	}
	if err := t.opts.AddRow.OnAddRow(row); err != nil {
		t.log.Error(err, "add row failed")
		return true, fmt.Errorf("add row: %w", err)
	}
	return true, nil
}

// Export

// ExportHidden reports whether the export control is hidden.
func (t *Table) ExportHidden() bool { return t.opts.Export.Hidden }

// ExportFileName returns the configured base file name.
func (t *Table) ExportFileName() string {
	if t.opts.Export.FileName == "" {
		return "table-export"
	}
	return t.opts.Export.FileName
}

// Export hands the visibility map to HandleExport when configured, and
// otherwise writes the filtered, sorted rows as CSV of the visible columns.
func (t *Table) Export(w io.Writer) error {
	if run := t.ExportHandler(); run != nil {
		return run()
	}
	return t.ExportAs(w, export.CSV)
}

// ExportHandler returns HandleExport bound to the current visibility map,
// or nil when no handler is configured.
func (t *Table) ExportHandler() func() error {
	h := t.opts.Export.HandleExport
	if h == nil {
		return nil
	}
	vis := t.Visibility()
	return func() error { return h(vis) }
}

// ExportAs writes the filtered, sorted rows of every page in format f.
func (t *Table) ExportAs(w io.Writer, f export.Format) error {
	rows := t.Filtered()
	if len(rows) == 0 {
		return ErrNoData
	}
	return export.Write(w, f, t.Columns(), rows)
}

// ExportFiles writes base plus each format's extension concurrently.
func (t *Table) ExportFiles(ctx context.Context, base string, formats []export.Format) ([]string, error) {
	return export.WriteFiles(ctx, base, formats, t.Columns(), t.Filtered())
}
