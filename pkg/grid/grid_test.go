package grid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridx/internal/paging"
	"github.com/oakwood-commons/gridx/internal/storage"
)

func ticketColumns() []Column {
	return []Column{
		{Key: "id", Label: "ID", Sortable: true, DefaultVisible: true},
		{Key: "name", Label: "Name", Sortable: true, Draggable: true, DefaultVisible: true},
		{Key: "status", Label: "Status", Sortable: true, Draggable: true, DefaultVisible: true},
		{Key: "notes", Label: "Notes", DefaultVisible: false},
	}
}

func names(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["name"].(string)
	}
	return out
}

func newTable(t *testing.T, opts Options) *Table {
	t.Helper()
	if opts.Columns.Columns == nil {
		opts.Columns.Columns = ticketColumns()
	}
	tbl, err := New(opts)
	require.NoError(t, err)
	return tbl
}

func manyRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{"id": i + 1, "name": fmt.Sprintf("row-%02d", i+1), "status": "open"}
	}
	return rows
}

func TestSortCycle(t *testing.T) {
	tbl := newTable(t, Options{Columns: ColumnConfig{Columns: []Column{{Key: "name", Sortable: true, DefaultVisible: true}}}})
	tbl.SetRows([]Row{{"id": 1, "name": "Bob"}, {"id": 2, "name": "Amy"}})

	require.True(t, tbl.Sort("name"))
	assert.Equal(t, []string{"Amy", "Bob"}, names(tbl.View()))
	require.True(t, tbl.Sort("name"))
	assert.Equal(t, []string{"Bob", "Amy"}, names(tbl.View()))
	require.True(t, tbl.Sort("name"))
	assert.Equal(t, []string{"Bob", "Amy"}, names(tbl.View()), "unsorted restores input order")
	assert.False(t, tbl.SortState().Active())
	assert.False(t, tbl.Sort("missing"))
}

func TestSortNotifies(t *testing.T) {
	var got []SortState
	tbl := newTable(t, Options{OnSortChange: func(s SortState) { got = append(got, s) }})
	tbl.Sort("name")
	tbl.Sort("notes")
	require.Len(t, got, 1)
	assert.Equal(t, SortState{Column: "name", Direction: Ascending}, got[0])
}

func TestPagination(t *testing.T) {
	tbl := newTable(t, Options{Pagination: PaginationConfig{Enabled: true, PageSize: 10}})
	tbl.SetRows(manyRows(25))

	assert.Equal(t, 3, tbl.TotalPages())
	require.NoError(t, tbl.GoToPage(2))
	err := tbl.GoToPage(4)
	assert.ErrorIs(t, err, paging.ErrPageOutOfRange)
	assert.Equal(t, 2, tbl.Page())
	assert.Len(t, tbl.View(), 10)

	require.NoError(t, tbl.NextPage())
	assert.Len(t, tbl.View(), 5)
	assert.Error(t, tbl.NextPage())
}

func TestServerDrivenPagingDoesNotReslice(t *testing.T) {
	tbl := newTable(t, Options{Pagination: PaginationConfig{Enabled: true, PageSize: 10, ServerDriven: true, TotalCount: 95}})
	tbl.SetRows(manyRows(10))
	p := tbl.Project()
	assert.Len(t, p.Rows, 10)
	assert.Equal(t, 10, p.TotalPages)
	assert.Equal(t, 95, p.TotalRows)
}

func TestClientSearch(t *testing.T) {
	var changes []string
	tbl := newTable(t, Options{
		Pagination: PaginationConfig{Enabled: true, PageSize: 1},
		Search:     SearchConfig{OnSearchChange: func(q string) { changes = append(changes, q) }},
	})
	tbl.SetRows([]Row{{"id": 1, "name": "Amy"}, {"id": 2, "name": "Sam"}, {"id": 3, "name": "Bob"}})
	require.NoError(t, tbl.GoToPage(3))

	tbl.TypeSearch("a")
	assert.Equal(t, 1, tbl.Page(), "every keystroke resets the page")
	p := tbl.TypeSearch("am")
	assert.Equal(t, []string{"a", "am"}, changes)
	assert.Len(t, tbl.Filtered(), 3, "term applies only after the debounce")

	_, dispatched := tbl.SearchDebounced(p.ID)
	assert.False(t, dispatched)
	assert.Equal(t, []string{"Amy", "Sam"}, names(tbl.Filtered()))
	assert.Equal(t, []string{"a", "am"}, changes, "the debounce does not report again")

	tbl.ClearSearch()
	assert.Len(t, tbl.Filtered(), 3)
	assert.Equal(t, []string{"a", "am", ""}, changes)
}

func TestDisableClientSearch(t *testing.T) {
	tbl := newTable(t, Options{Search: SearchConfig{DisableClientSearch: true}})
	tbl.SetRows([]Row{{"id": 1, "name": "Amy"}, {"id": 2, "name": "Bob"}})
	tbl.SearchDebounced(tbl.TypeSearch("zzz").ID)
	assert.Len(t, tbl.Filtered(), 2)
}

func TestDelegatedSearchDropsStaleResults(t *testing.T) {
	calls := 0
	tbl := newTable(t, Options{Search: SearchConfig{
		Mode: DelegatedSearch,
		OnGlobalSearch: func(_ context.Context, q string) ([]Row, error) {
			calls++
			return []Row{{"id": 9, "name": "remote " + q}}, nil
		},
	}})
	tbl.SetRows(manyRows(3))

	first, ok := tbl.SearchDebounced(tbl.TypeSearch("a").ID)
	require.True(t, ok)
	assert.True(t, tbl.Searching())
	second, ok := tbl.SearchDebounced(tbl.TypeSearch("ab").ID)
	require.True(t, ok)

	newer := tbl.RunSearch(context.Background(), second)
	older := tbl.RunSearch(context.Background(), first)
	assert.True(t, tbl.ResolveSearch(newer))
	assert.False(t, tbl.ResolveSearch(older))
	assert.Equal(t, []string{"remote ab"}, names(tbl.Filtered()))
	assert.False(t, tbl.Searching())
	assert.Equal(t, 2, calls)

	// Same query again is not re-dispatched.
	_, ok = tbl.SearchDebounced(tbl.TypeSearch(" ab ").ID)
	assert.False(t, ok)

	d, ok := tbl.ClearSearch()
	require.True(t, ok)
	assert.Equal(t, "", d.Query)
	assert.True(t, tbl.ResolveSearch(tbl.RunSearch(context.Background(), d)))
	assert.Len(t, tbl.Filtered(), 3, "empty query restores upstream rows")
}

func TestDelegatedSearchDebounceCoalesces(t *testing.T) {
	tbl := newTable(t, Options{Search: SearchConfig{Mode: DelegatedSearch}})
	var ids []int
	for _, v := range []string{"t", "ti", "tic"} {
		ids = append(ids, tbl.TypeSearch(v).ID)
	}
	var sent []string
	for _, id := range ids {
		if d, ok := tbl.SearchDebounced(id); ok {
			sent = append(sent, d.Query)
		}
	}
	assert.Equal(t, []string{"tic"}, sent)
}

func TestDelegatedSearchFailureReturnsToIdle(t *testing.T) {
	tbl := newTable(t, Options{Search: SearchConfig{
		Mode: DelegatedSearch,
		OnGlobalSearch: func(context.Context, string) ([]Row, error) {
			return nil, errors.New("backend down")
		},
	}})
	tbl.SetRows(manyRows(2))
	d, ok := tbl.SearchDebounced(tbl.TypeSearch("x").ID)
	require.True(t, ok)
	res := tbl.RunSearch(context.Background(), d)
	require.Error(t, res.Err)
	assert.True(t, tbl.ResolveSearch(res))
	assert.False(t, tbl.Searching())
	assert.Len(t, tbl.Filtered(), 2)
}

func TestControlledSearchValue(t *testing.T) {
	tbl := newTable(t, Options{})
	tbl.SetRows([]Row{{"id": 1, "name": "Amy"}, {"id": 2, "name": "Bob"}})
	tbl.SetSearchValue("bo")
	tbl.TypeSearch("am")
	assert.Equal(t, "bo", tbl.SearchValue())
	assert.Equal(t, []string{"Bob"}, names(tbl.Filtered()))
}

func TestFilterResetsPage(t *testing.T) {
	tbl := newTable(t, Options{Pagination: PaginationConfig{Enabled: true, PageSize: 2}})
	rows := manyRows(6)
	rows[5]["status"] = "closed"
	tbl.SetRows(rows)
	require.NoError(t, tbl.GoToPage(3))

	require.NoError(t, tbl.SetFilter(`row.status == "closed"`))
	assert.Equal(t, 1, tbl.Page())
	assert.Equal(t, []string{"row-06"}, names(tbl.View()))
	assert.Equal(t, `row.status == "closed"`, tbl.Filter())

	assert.Error(t, tbl.SetFilter("row.status =="))
	assert.Equal(t, `row.status == "closed"`, tbl.Filter(), "bad expression keeps the old filter")

	require.NoError(t, tbl.SetFilter(""))
	assert.Len(t, tbl.Filtered(), 6)
}

func TestSelectionSkipsDisabledRows(t *testing.T) {
	var all []bool
	tbl := newTable(t, Options{Selection: SelectionConfig{
		Enabled:       true,
		IsRowDisabled: func(r Row) bool { return r["status"] == "locked" },
		OnSelectAll:   func(b bool) { all = append(all, b) },
	}})
	rows := manyRows(3)
	rows[2]["status"] = "locked"
	tbl.SetRows(rows)

	tbl.SelectAll(true)
	assert.Equal(t, []string{"1", "2"}, tbl.SelectedIDs())
	assert.True(t, tbl.AllSelected())
	assert.False(t, tbl.SelectItem("3", true))
	assert.False(t, tbl.IsSelected("3"))

	assert.True(t, tbl.ToggleItem("1"))
	assert.True(t, tbl.Indeterminate())

	tbl.SelectAll(false)
	assert.Empty(t, tbl.SelectedIDs())
	assert.Equal(t, []bool{true, false}, all)
}

func TestSelectionDisabled(t *testing.T) {
	tbl := newTable(t, Options{})
	tbl.SetRows(manyRows(2))
	tbl.SelectAll(true)
	assert.False(t, tbl.SelectItem("1", true))
	assert.Empty(t, tbl.SelectedIDs())
}

func TestSelectAllIsScopedToPage(t *testing.T) {
	tbl := newTable(t, Options{
		Selection:  SelectionConfig{Enabled: true},
		Pagination: PaginationConfig{Enabled: true, PageSize: 2},
	})
	tbl.SetRows(manyRows(5))
	tbl.SelectAll(true)
	assert.Equal(t, []string{"1", "2"}, tbl.SelectedIDs())
	assert.False(t, tbl.SelectItem("4", true), "rows off the page are not in view")
}

func TestBulkAction(t *testing.T) {
	var got []Row
	tbl := newTable(t, Options{
		Selection: SelectionConfig{Enabled: true},
		BulkActions: []BulkAction{{Label: "close", Run: func(_ context.Context, rows []Row) error {
			got = rows
			return nil
		}}},
	})
	tbl.SetRows(manyRows(3))

	assert.ErrorIs(t, tbl.RunBulkAction(context.Background(), "close"), ErrNoSelection)
	assert.ErrorIs(t, tbl.RunBulkAction(context.Background(), "nope"), ErrUnknownAction)
	assert.Empty(t, tbl.Project().BulkActions)

	tbl.SelectItem("2", true)
	assert.Equal(t, []string{"close"}, tbl.Project().BulkActions)
	require.NoError(t, tbl.RunBulkAction(context.Background(), "close"))
	require.Len(t, got, 1)
	assert.Equal(t, "row-02", got[0]["name"])
	assert.Empty(t, tbl.SelectedIDs())
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestInlineAddOutsideClickCommits(t *testing.T) {
	var added []Row
	tbl := newTable(t, Options{AddRow: AddRowConfig{
		Enabled:  true,
		OnAddRow: func(r Row) error { added = append(added, r); return nil },
	}})

	require.True(t, tbl.BeginAdd())
	require.True(t, tbl.UpdateDraft("name", "X"))

	ran, err := tbl.OutsideInteraction()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []Row{{"name": "X"}}, added)
	assert.False(t, tbl.Adding())

	ran, _ = tbl.OutsideInteraction()
	assert.False(t, ran)
	assert.Len(t, added, 1)
}

func TestInlineAddGuardAfterSave(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var added []Row
	tbl := newTable(t, Options{AddRow: AddRowConfig{
		Enabled:  true,
		Guard:    DefaultAddRowGuard,
		Clock:    clock.Now,
		OnAddRow: func(r Row) error { added = append(added, r); return nil },
	}})

	tbl.BeginAdd()
	tbl.UpdateDraft("name", "X")
	ran, err := tbl.OutsideInteraction()
	require.NoError(t, err)
	require.True(t, ran, "no save yet, so nothing is guarded")

	tbl.BeginAdd()
	tbl.UpdateDraft("name", "Y")
	ran, _ = tbl.SaveDraft()
	require.True(t, ran)

	tbl.BeginAdd()
	tbl.UpdateDraft("name", "Z")
	ran, _ = tbl.OutsideInteraction()
	assert.False(t, ran)
	assert.True(t, tbl.Adding())

	clock.now = clock.now.Add(DefaultAddRowGuard)
	ran, _ = tbl.OutsideInteraction()
	assert.True(t, ran)
	assert.Equal(t, []Row{{"name": "X"}, {"name": "Y"}, {"name": "Z"}}, added)
}

func TestInlineAddZeroGuard(t *testing.T) {
	var added []Row
	tbl := newTable(t, Options{AddRow: AddRowConfig{
		Enabled:  true,
		OnAddRow: func(r Row) error { added = append(added, r); return nil },
	}})

	tbl.BeginAdd()
	tbl.UpdateDraft("name", "X")
	tbl.SaveDraft()
	tbl.BeginAdd()
	tbl.UpdateDraft("name", "Y")
	ran, err := tbl.OutsideInteraction()
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Len(t, added, 2)
}

func TestInlineAddCancel(t *testing.T) {
	called := false
	tbl := newTable(t, Options{AddRow: AddRowConfig{Enabled: true, OnAddRow: func(Row) error { called = true; return nil }}})
	tbl.BeginAdd()
	tbl.UpdateDraft("name", "X")
	assert.True(t, tbl.CancelDraft())
	assert.False(t, called)
	assert.False(t, tbl.Adding())
}

func TestInlineAddFailureLeavesEditorIdle(t *testing.T) {
	tbl := newTable(t, Options{AddRow: AddRowConfig{Enabled: true, OnAddRow: func(Row) error { return errors.New("rejected") }}})
	tbl.BeginAdd()
	tbl.UpdateDraft("name", "X")
	ran, err := tbl.SaveDraft()
	assert.True(t, ran)
	assert.ErrorContains(t, err, "rejected")
	assert.False(t, tbl.Adding())
}

func TestInlineAddRespectsConfig(t *testing.T) {
	tbl := newTable(t, Options{AddRow: AddRowConfig{Readonly: []string{"id"}}})
	assert.False(t, tbl.BeginAdd(), "add row disabled")

	tbl = newTable(t, Options{AddRow: AddRowConfig{Enabled: true, Readonly: []string{"id"}}})
	tbl.BeginAdd()
	assert.False(t, tbl.UpdateDraft("id", 5))
	assert.False(t, tbl.UpdateDraft("unknown", 5))
	tbl.UpdateDraft("name", "draft")

	d := tbl.Project().Draft
	require.NotNil(t, d)
	require.Len(t, d.Cells, 3)
	assert.False(t, d.Cells[0].Editable)
	assert.Empty(t, d.Cells[0].Value)
	assert.Equal(t, "draft", d.Cells[1].Value)

	ran, err := tbl.CommitDraft()
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestColumnsPersistAcrossTables(t *testing.T) {
	st := storage.NewMemory()
	opts := Options{Columns: ColumnConfig{Columns: ticketColumns(), StorageKey: "tickets", Storage: st}}

	a := newTable(t, opts)
	require.True(t, a.ToggleColumn("notes"))
	require.True(t, a.ReorderColumn("status", "name"))

	b := newTable(t, opts)
	keys := func(cols []Column) []string {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = c.Key
		}
		return out
	}
	assert.Equal(t, []string{"id", "status", "name", "notes"}, keys(b.Columns()))

	b.ResetColumns()
	c := newTable(t, opts)
	assert.Equal(t, []string{"id", "name", "status"}, keys(c.Columns()))
}

func TestProjectMessages(t *testing.T) {
	tbl := newTable(t, Options{})
	assert.Equal(t, DefaultEmptyMessage, tbl.Project().Message)

	tbl.SetLoading(true)
	assert.Equal(t, DefaultLoadingMessage, tbl.Project().Message)

	tbl.SetRows(manyRows(1))
	p := tbl.Project()
	assert.Empty(t, p.Message)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, []string{"1", "row-01", "open"}, p.Rows[0].Cells)
}

func TestProjectRenderCallbacks(t *testing.T) {
	tbl := newTable(t, Options{
		Columns: ColumnConfig{
			Columns:    ticketColumns(),
			RenderCell: func(r Row, key string) string { return fmt.Sprintf("<%v>", r[key]) },
		},
		RenderActions: func(r Row) string { return "open" },
	})
	tbl.SetRows(manyRows(1))
	p := tbl.Project()
	assert.True(t, p.ShowActions)
	assert.Equal(t, "<row-01>", p.Rows[0].Cells[1])
	assert.Equal(t, "open", p.Rows[0].Actions)
}

func TestActivate(t *testing.T) {
	var got Row
	tbl := newTable(t, Options{OnRowActivate: func(r Row) { got = r }})
	tbl.SetRows(manyRows(2))
	assert.True(t, tbl.Activate("2"))
	assert.Equal(t, "row-02", got["name"])
	assert.False(t, tbl.Activate("9"))
}

func TestExport(t *testing.T) {
	tbl := newTable(t, Options{Pagination: PaginationConfig{Enabled: true, PageSize: 1}})
	var buf bytes.Buffer
	assert.ErrorIs(t, tbl.Export(&buf), ErrNoData)

	tbl.SetRows([]Row{{"id": 2, "name": "Bob", "status": "open", "notes": "x"}, {"id": 1, "name": "Amy", "status": "closed"}})
	tbl.Sort("name")
	require.NoError(t, tbl.Export(&buf))
	assert.Equal(t, "ID,Name,Status\n1,Amy,closed\n2,Bob,open\n", buf.String())
}

func TestExportDelegatesToHandler(t *testing.T) {
	var got map[string]bool
	tbl := newTable(t, Options{Export: ExportConfig{HandleExport: func(v map[string]bool) error {
		got = v
		return nil
	}}})
	require.NoError(t, tbl.Export(nil))
	assert.Equal(t, map[string]bool{"id": true, "name": true, "status": true, "notes": false}, got)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Options{Pagination: PaginationConfig{PageSize: -1}})
	assert.Error(t, err)
	_, err = New(Options{Filter: "row."})
	assert.Error(t, err)
}
