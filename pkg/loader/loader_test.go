package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridx/pkg/record"
)

func names(rows []record.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = record.Stringify(r["name"])
	}
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Format
	}{
		{"json array", `[{"id": 1}]`, JSON},
		{"json object", `{"rows": []}`, JSON},
		{"ndjson", "{\"id\": 1}\n{\"id\": 2}", NDJSON},
		{"multi-doc yaml", "---\nid: 1\n---\nid: 2", YAML},
		{"yaml list", "- id: 1\n  name: Amy", YAML},
		{"toml tables", "[[rows]]\nid = 1", TOML},
		{"toml pairs", "id = 1\nname = \"Amy\"", TOML},
		{"csv", "id,name\n1,Amy", CSV},
		{"yaml with commas", "title: a, b\nname: c, d", YAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.input))
		})
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		want   []string
	}{
		{"json array", `[{"id": 1, "name": "Amy"}, {"id": 2, "name": "Bob"}]`, Auto, []string{"Amy", "Bob"}},
		{"json wrapper", `{"total": 2, "items": [{"name": "Amy"}, {"name": "Bob"}]}`, Auto, []string{"Amy", "Bob"}},
		{"json single wrapper key", `{"tickets": [{"name": "Amy"}]}`, Auto, []string{"Amy"}},
		{"json single object", `{"id": 1, "name": "Amy"}`, Auto, []string{"Amy"}},
		{"ndjson", "{\"name\": \"Amy\"}\n\n{\"name\": \"Bob\"}\r\n", Auto, []string{"Amy", "Bob"}},
		{"yaml list", "- name: Amy\n- name: Bob", Auto, []string{"Amy", "Bob"}},
		{"multi-doc yaml", "---\nname: Amy\n---\nname: Bob\n", Auto, []string{"Amy", "Bob"}},
		{"toml", "[[rows]]\nname = \"Amy\"\n\n[[rows]]\nname = \"Bob\"\n", Auto, []string{"Amy", "Bob"}},
		{"csv", "id,name\n1,Amy\n2,Bob\n", Auto, []string{"Amy", "Bob"}},
		{"explicit yaml", `{"name": "Amy"}`, YAML, []string{"Amy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Load([]byte(tt.input), tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(rows))
		})
	}
}

func TestLoadCSVKeepsStrings(t *testing.T) {
	rows, err := Load([]byte("id,name,status\n1,Amy\n"), CSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, record.Row{"id": "1", "name": "Amy"}, rows[0])
}

func TestLoadTOMLValues(t *testing.T) {
	rows, err := Load([]byte("[[rows]]\nid = 7\nopen = true\n"), TOML)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", record.DefaultID(rows[0]))
	assert.Equal(t, true, rows[0]["open"])
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		want   string
	}{
		{"empty", "  \n", Auto, "empty input"},
		{"scalars", `[1, 2, 3]`, JSON, "want an object"},
		{"bad json", `{"id": `, JSON, "invalid JSON"},
		{"bad ndjson", "{\"id\": 1}\n{oops}", NDJSON, "line 2"},
		{"bad toml", "id = = 1", TOML, "invalid TOML"},
		{"scalar document", "just text", YAML, "want an object"},
		{"unknown format", "{}", Format("xml"), "unsupported format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.input), tt.format)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, JSON, FormatFromPath("a.JSON"))
	assert.Equal(t, NDJSON, FormatFromPath("a.jsonl"))
	assert.Equal(t, YAML, FormatFromPath("a.yml"))
	assert.Equal(t, TOML, FormatFromPath("a.toml"))
	assert.Equal(t, CSV, FormatFromPath("a.csv"))
	assert.Equal(t, Auto, FormatFromPath("a.txt"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tickets.csv")
	require.NoError(t, os.WriteFile(p, []byte("name\nAmy\n"), 0o600))
	rows, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amy"}, names(rows))

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadReader(t *testing.T) {
	rows, err := LoadReader(strings.NewReader(`[{"name":"Amy"}]`), Auto)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amy"}, names(rows))
}
