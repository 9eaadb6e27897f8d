package grid

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/gridx/internal/columns"
	"github.com/oakwood-commons/gridx/internal/paging"
	"github.com/oakwood-commons/gridx/internal/search"
	"github.com/oakwood-commons/gridx/internal/sorting"
	"github.com/oakwood-commons/gridx/internal/storage"
	"github.com/oakwood-commons/gridx/pkg/record"
)

// Aliases so callers outside the module can name engine types.
type (
	Row        = record.Row
	Column     = columns.Descriptor
	Storage    = storage.Storage
	SortState  = sorting.State
	Direction  = sorting.Direction
	PageItem   = paging.Item
	SearchMode = search.Mode
	SearchFunc = search.Func
	Pending    = search.Pending
	Dispatch   = search.Dispatch
	Result     = search.Result
)

const (
	Unsorted   = sorting.None
	Ascending  = sorting.Ascending
	Descending = sorting.Descending

	ClientSearch    = search.ModeClient
	DelegatedSearch = search.ModeDelegated
)

// ColumnConfig describes the columns and where their layout persists.
type ColumnConfig struct {
	Columns []Column
	// StorageKey names the persisted visibility and order records. Empty
	// keeps the layout in memory only.
	StorageKey string
	Storage    Storage
	MenuHidden bool
	// RenderCell formats a cell; nil uses record.Stringify.
	RenderCell func(row Row, key string) string
}

// SelectionConfig enables row selection.
type SelectionConfig struct {
	Enabled       bool
	IsRowDisabled func(Row) bool
	OnSelectAll   func(checked bool)
	OnSelectItem  func(id string, checked bool)
}

// SearchConfig configures the search box.
type SearchConfig struct {
	Hidden   bool
	Mode     SearchMode
	Debounce time.Duration
	// DisableClientSearch returns upstream rows unfiltered.
	DisableClientSearch bool
	Placeholder         string
	OnSearchChange      func(query string)
	// OnGlobalSearch runs delegated queries.
	OnGlobalSearch SearchFunc
}

// PaginationConfig configures paging.
type PaginationConfig struct {
	Enabled      bool
	PageSize     int
	ServerDriven bool
	TotalCount   int
}

// AddRowConfig configures the inline add row.
type AddRowConfig struct {
	Enabled     bool
	Placeholder string
	// Readonly columns get no control while adding.
	Readonly []string
	OnAddRow func(Row) error
	// RenderEditableCell formats a draft value; returning false renders
	// nothing for the column.
	RenderEditableCell func(key string, value any) (string, bool)
	// Guard ignores outside interactions for this long after an explicit
	// save or cancel. Zero disables it; DefaultAddRowGuard suits pointer
	// front ends.
	Guard time.Duration
	Clock func() time.Time
}

// DefaultAddRowGuard is the guard window the gridx front ends use.
const DefaultAddRowGuard = 250 * time.Millisecond

// ExportConfig configures export.
type ExportConfig struct {
	Hidden   bool
	FileName string
	// HandleExport replaces the built-in export and receives the current
	// visibility map.
	HandleExport func(visibility map[string]bool) error
}

// BulkAction runs against the selected rows.
type BulkAction struct {
	Label string
	Run   func(ctx context.Context, rows []Row) error
}

// Options compose a Table. Every field is optional.
type Options struct {
	Columns    ColumnConfig
	Selection  SelectionConfig
	Search     SearchConfig
	Pagination PaginationConfig
	AddRow     AddRowConfig
	Export     ExportConfig

	GetItemID     record.IDFunc
	RenderActions func(Row) string
	OnRowActivate func(Row)
	OnSortChange  func(SortState)
	BulkActions   []BulkAction

	// Filter is an initial CEL predicate over row.
	Filter string
	Sort   SortState

	EmptyMessage   string
	LoadingMessage string
	Locale         language.Tag
	Logger         logr.Logger
}

const (
	DefaultEmptyMessage   = "No data available"
	DefaultLoadingMessage = "Loading..."
)
