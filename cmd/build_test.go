package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridx/internal/config"
	"github.com/oakwood-commons/gridx/internal/storage"
	"github.com/oakwood-commons/gridx/pkg/grid"
	"github.com/oakwood-commons/gridx/pkg/record"
	"github.com/oakwood-commons/gridx/pkg/settings"
)

func people() []record.Row {
	return []record.Row{
		{"key": "a", "name": "Amy", "age": 31, "locked": false},
		{"key": "b", "name": "Bob", "age": 25, "locked": true},
		{"key": "c", "name": "Cal", "age": 40, "locked": false},
	}
}

func defaultTable(t *testing.T) config.Table {
	t.Helper()
	f, err := config.Default()
	require.NoError(t, err)
	f.Table.IDField = "key"
	return f.Table
}

func TestBuildTableInfersColumnsAndID(t *testing.T) {
	tbl, err := buildTable(defaultTable(t), people(), storage.NewMemory(), logr.Discard())
	require.NoError(t, err)

	keys := make([]string, 0)
	for _, c := range tbl.Columns() {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"key", "age", "locked", "name"}, keys)

	assert.True(t, tbl.SelectItem("b", true))
	assert.Equal(t, []string{"b"}, tbl.SelectedIDs())
}

func TestBuildTableDisabledWhen(t *testing.T) {
	cfg := defaultTable(t)
	cfg.DisabledWhen = "row.locked"
	tbl, err := buildTable(cfg, people(), storage.NewMemory(), logr.Discard())
	require.NoError(t, err)

	tbl.SelectAll(true)
	assert.Equal(t, []string{"a", "c"}, tbl.SelectedIDs())
	assert.False(t, tbl.SelectItem("b", true))

	cfg.DisabledWhen = "row.("
	_, err = buildTable(cfg, people(), storage.NewMemory(), logr.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled_when")
}

func TestBuildTableDeleteAction(t *testing.T) {
	tbl, err := buildTable(defaultTable(t), people(), storage.NewMemory(), logr.Discard())
	require.NoError(t, err)

	require.True(t, tbl.SelectItem("a", true))
	require.True(t, tbl.SelectItem("c", true))
	require.NoError(t, tbl.RunBulkAction(context.Background(), "Delete"))
	require.Len(t, tbl.Rows(), 1)
	assert.Equal(t, "Bob", tbl.Rows()[0]["name"])
	assert.Empty(t, tbl.SelectedIDs())
}

func TestBuildTableAddRowAssignsID(t *testing.T) {
	cfg := defaultTable(t)
	cfg.AddRow.Enabled = true
	tbl, err := buildTable(cfg, people(), storage.NewMemory(), logr.Discard())
	require.NoError(t, err)

	require.True(t, tbl.BeginAdd())
	assert.False(t, tbl.Editable("key"), "the id column is readonly")
	tbl.UpdateDraft("name", "Dee")
	ran, err := tbl.SaveDraft()
	require.NoError(t, err)
	require.True(t, ran)

	rows := tbl.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, "Dee", rows[3]["name"])
	assert.NotEmpty(t, rows[3]["key"])
}

func TestBuildTableDelegatedSearch(t *testing.T) {
	cfg := defaultTable(t)
	cfg.Search.Mode = "delegated"
	cfg.Pagination.PageSize = 1
	tbl, err := buildTable(cfg, people(), storage.NewMemory(), logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, grid.DelegatedSearch, tbl.SearchMode())

	origTerm := searchTerm
	t.Cleanup(func() { searchTerm = origTerm })
	searchTerm = "cal"
	require.NoError(t, applyView(context.Background(), tbl))
	require.Len(t, tbl.Filtered(), 1)
	assert.Equal(t, "Cal", tbl.Filtered()[0]["name"])
	assert.False(t, tbl.Searching())
}

func TestShowOnly(t *testing.T) {
	tbl, err := buildTable(defaultTable(t), people(), storage.NewMemory(), logr.Discard())
	require.NoError(t, err)

	require.NoError(t, showOnly(tbl, []string{"name", "key", "name", " "}))
	var keys []string
	for _, c := range tbl.Columns() {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"name", "key"}, keys)

	assert.Error(t, showOnly(tbl, []string{"nope"}))
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, grid.Ascending, parseDirection("ASC"))
	assert.Equal(t, grid.Descending, parseDirection("descending"))
	assert.Equal(t, grid.Unsorted, parseDirection("sideways"))
}

func TestParseLocale(t *testing.T) {
	t.Setenv("LANG", "sv_SE.UTF-8")
	assert.Equal(t, "sv-SE", parseLocale("").String())
	assert.Equal(t, "de", parseLocale("de").String())

	t.Setenv("LANG", "C")
	assert.Equal(t, "und", parseLocale("").String())
	assert.Equal(t, "und", parseLocale("!!").String())
}

func TestOpenStorageUsesRunStateDir(t *testing.T) {
	dir := t.TempDir()
	ctx := settings.IntoContext(context.Background(), &settings.Run{StateDir: dir})

	st, err := openStorage(ctx, config.StorageConfig{Backend: storage.BackendFile})
	require.NoError(t, err)
	require.NoError(t, st.Set("people-columns", `{"name":true}`))

	_, err = os.Stat(filepath.Join(dir, "people-columns.json"))
	assert.NoError(t, err)

	_, err = openStorage(ctx, config.StorageConfig{Backend: "redis"})
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}
