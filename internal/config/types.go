// Package config defines the YAML table definition consumed by the gridx
// CLI and its embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridx/internal/columns"
	"github.com/oakwood-commons/gridx/pkg/record"
)

//go:embed default.yaml
var embeddedDefault []byte

// DefaultYAML returns a copy of the embedded default config.
func DefaultYAML() []byte {
	return append([]byte(nil), embeddedDefault...)
}

// File is the top-level config document.
type File struct {
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Table   Table         `yaml:"table"`
}

// LogConfig controls pkg/logger.
type LogConfig struct {
	Level int8   `yaml:"level"`
	File  string `yaml:"file"`
}

// StorageConfig selects where column layouts persist.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// Column is a column entry. Pointer flags default to true when omitted.
type Column struct {
	Key            string `yaml:"key"`
	Label          string `yaml:"label,omitempty"`
	Sortable       *bool  `yaml:"sortable,omitempty"`
	Draggable      *bool  `yaml:"draggable,omitempty"`
	DefaultVisible *bool  `yaml:"default_visible,omitempty"`
	Readonly       bool   `yaml:"readonly,omitempty"`
}

// Table describes one grid.
type Table struct {
	Name       string   `yaml:"name"`
	StorageKey string   `yaml:"storage_key"`
	IDField    string   `yaml:"id_field"`
	Columns    []Column `yaml:"columns"`
	// DisabledWhen is a CEL predicate marking rows non-selectable.
	DisabledWhen   string            `yaml:"disabled_when,omitempty"`
	Filter         string            `yaml:"filter,omitempty"`
	Sort           SortConfig        `yaml:"sort,omitempty"`
	Pagination     PaginationConfig  `yaml:"pagination"`
	Selection      SelectionConfig   `yaml:"selection"`
	Search         SearchConfig      `yaml:"search"`
	ColumnsMenu    ColumnsMenuConfig `yaml:"columns_menu"`
	AddRow         AddRowConfig      `yaml:"add_row"`
	Export         ExportConfig      `yaml:"export"`
	EmptyMessage   string            `yaml:"empty_message"`
	LoadingMessage string            `yaml:"loading_message"`
}

type SortConfig struct {
	Column    string `yaml:"column,omitempty"`
	Direction string `yaml:"direction,omitempty"`
}

type PaginationConfig struct {
	Enabled  bool `yaml:"enabled"`
	PageSize int  `yaml:"page_size"`
}

type SelectionConfig struct {
	Enabled bool `yaml:"enabled"`
}

type SearchConfig struct {
	Mode          string `yaml:"mode"`
	Debounce      string `yaml:"debounce"`
	Hidden        bool   `yaml:"hidden"`
	DisableClient bool   `yaml:"disable_client"`
	Placeholder   string `yaml:"placeholder"`
}

// DebounceDuration parses Debounce, returning 0 when unset or invalid so
// the engine default applies.
func (s SearchConfig) DebounceDuration() time.Duration {
	if s.Debounce == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Debounce)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

type ColumnsMenuConfig struct {
	Hidden bool `yaml:"hidden"`
}

type AddRowConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Placeholder string `yaml:"placeholder"`
}

type ExportConfig struct {
	Hidden   bool   `yaml:"hidden"`
	FileName string `yaml:"file_name"`
	Format   string `yaml:"format"`
}

// Default decodes the embedded defaults.
func Default() (File, error) {
	var f File
	if len(embeddedDefault) == 0 {
		return f, fmt.Errorf("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefault, &f); err != nil {
		return f, fmt.Errorf("decode default config: %w", err)
	}
	return f, nil
}

// Load returns the defaults with the file at path decoded on top. An empty
// path returns the defaults.
func Load(path string) (File, error) {
	f, err := Default()
	if err != nil {
		return f, err
	}
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode config %s: %w", path, err)
	}
	return f, f.Table.Validate()
}

// Validate checks the table definition for values the engines would reject.
func (t Table) Validate() error {
	if t.Pagination.PageSize < 0 {
		return fmt.Errorf("table.pagination.page_size must be non-negative, got %d", t.Pagination.PageSize)
	}
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if c.Key == "" {
			return fmt.Errorf("table.columns[%d]: key is required", i)
		}
		if seen[c.Key] {
			return fmt.Errorf("table.columns[%d]: duplicate key %q", i, c.Key)
		}
		seen[c.Key] = true
	}
	if t.Search.Debounce != "" {
		if _, err := time.ParseDuration(t.Search.Debounce); err != nil {
			return fmt.Errorf("table.search.debounce: %w", err)
		}
	}
	return nil
}

// Marshal renders f as YAML.
func (f File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Descriptor converts the entry to a column descriptor.
func (c Column) Descriptor() columns.Descriptor {
	return columns.Descriptor{
		Key:            c.Key,
		Label:          c.Label,
		Sortable:       boolOr(c.Sortable, true),
		Draggable:      boolOr(c.Draggable, true),
		DefaultVisible: boolOr(c.DefaultVisible, true),
	}
}

// Descriptors converts every column entry.
func (t Table) Descriptors() []columns.Descriptor {
	out := make([]columns.Descriptor, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Descriptor()
	}
	return out
}

// ReadonlyColumns lists keys flagged readonly.
func (t Table) ReadonlyColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Readonly {
			out = append(out, c.Key)
		}
	}
	return out
}

// StorageKeyOrName returns the storage key, falling back to the table name.
func (t Table) StorageKeyOrName() string {
	if t.StorageKey != "" {
		return t.StorageKey
	}
	return t.Name
}

// InferColumns derives column entries from the keys present in rows: the
// id field first, then the rest alphabetically.
func InferColumns(rows []record.Row, idField string) []Column {
	keys := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			keys[k] = true
		}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		if k != idField {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	if keys[idField] {
		names = append([]string{idField}, names...)
	}
	out := make([]Column, len(names))
	for i, k := range names {
		out[i] = Column{Key: k}
		if k == idField {
			out[i].Readonly = true
		}
	}
	return out
}
