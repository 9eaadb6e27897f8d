package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridx/pkg/record"
)

func TestDefault(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "records", f.Table.Name)
	assert.True(t, f.Table.Pagination.Enabled)
	assert.Equal(t, 10, f.Table.Pagination.PageSize)
	assert.Equal(t, 800*time.Millisecond, f.Table.Search.DebounceDuration())
	assert.Equal(t, "No data available", f.Table.EmptyMessage)
	assert.Equal(t, "file", f.Storage.Backend)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gridx.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadMergesOverDefaults(t *testing.T) {
	p := writeConfig(t, `
table:
  name: tickets
  pagination:
    page_size: 25
  columns:
    - key: id
      label: ID
      readonly: true
      draggable: false
    - key: title
      label: Title
    - key: notes
      sortable: false
      default_visible: false
`)
	f, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "tickets", f.Table.Name)
	assert.Equal(t, 25, f.Table.Pagination.PageSize)
	assert.True(t, f.Table.Pagination.Enabled, "untouched defaults survive")
	assert.Equal(t, "client", f.Table.Search.Mode)

	descs := f.Table.Descriptors()
	require.Len(t, descs, 3)
	assert.False(t, descs[0].Draggable)
	assert.True(t, descs[1].Sortable)
	assert.True(t, descs[1].DefaultVisible)
	assert.False(t, descs[2].Sortable)
	assert.False(t, descs[2].DefaultVisible)
	assert.Equal(t, []string{"id"}, f.Table.ReadonlyColumns())
	assert.Equal(t, "tickets", f.Table.StorageKeyOrName())
}

func TestLoadRejectsInvalidTable(t *testing.T) {
	_, err := Load(writeConfig(t, "table:\n  columns:\n    - key: a\n    - key: a\n"))
	assert.ErrorContains(t, err, "duplicate key")

	_, err = Load(writeConfig(t, "table:\n  search:\n    debounce: soon\n"))
	assert.ErrorContains(t, err, "debounce")

	_, err = Load(writeConfig(t, "table: ["))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInferColumns(t *testing.T) {
	rows := []record.Row{{"id": 1, "title": "x"}, {"id": 2, "assignee": "sam"}}
	cols := InferColumns(rows, "id")
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key
	}
	assert.Equal(t, []string{"id", "assignee", "title"}, keys)
	assert.True(t, cols[0].Readonly)
}

func TestMarshalRoundTrip(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	out, err := f.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "page_size: 10")
}
