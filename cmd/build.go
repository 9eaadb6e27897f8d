package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/gridx/internal/celfilter"
	"github.com/oakwood-commons/gridx/internal/config"
	"github.com/oakwood-commons/gridx/internal/search"
	"github.com/oakwood-commons/gridx/internal/storage"
	"github.com/oakwood-commons/gridx/pkg/grid"
	"github.com/oakwood-commons/gridx/pkg/loader"
	"github.com/oakwood-commons/gridx/pkg/record"
	"github.com/oakwood-commons/gridx/pkg/settings"
)

// errShowHelp is returned when there is neither a file argument nor piped
// input.
var errShowHelp = errors.New("no input provided")

// loadRows reads the rows from the file argument or from piped stdin.
func loadRows(args []string) ([]record.Row, error) {
	if len(args) > 0 {
		return loader.LoadFile(args[0])
	}
	if !stdinIsPiped() {
		return nil, errShowHelp
	}
	return loader.LoadReader(os.Stdin, loader.Auto)
}

// openStorage opens the configured column-layout store. The memory backend
// keeps layouts for the life of the process only.
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	dir := cfg.Dir
	if run, ok := settings.FromContext(ctx); ok && dir == "" {
		dir = run.StateDir
	}
	st, err := storage.Open(cfg.Backend, dir)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}
	return st, nil
}

// buildTable wires a config table definition and its rows into a
// grid.Table. Added rows and the Delete bulk action edit the loaded rows
// in place; nothing is written back to the input file.
func buildTable(cfg config.Table, rows []record.Row, st storage.Storage, lgr logr.Logger) (*grid.Table, error) {
	if len(cfg.Columns) == 0 {
		cfg.Columns = config.InferColumns(rows, cfg.IDField)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	idField := cfg.IDField
	if idField == "" {
		idField = record.IDKey
	}
	idOf := func(r record.Row) string {
		if v, ok := r[idField]; ok && v != nil {
			return record.Stringify(v)
		}
		return ""
	}

	var disabled func(record.Row) bool
	if cfg.DisabledWhen != "" {
		p, err := celfilter.Compile(cfg.DisabledWhen)
		if err != nil {
			return nil, fmt.Errorf("table.disabled_when: %w", err)
		}
		disabled = func(r record.Row) bool {
			ok, err := p.Match(r)
			if err != nil {
				lgr.V(1).Info("disabled_when evaluation failed", "row", idOf(r), "error", err.Error())
			}
			return ok
		}
	}

	var tbl *grid.Table
	opts := grid.Options{
		Columns: grid.ColumnConfig{
			Columns:    cfg.Descriptors(),
			StorageKey: cfg.StorageKeyOrName(),
			Storage:    st,
			MenuHidden: cfg.ColumnsMenu.Hidden,
		},
		Selection: grid.SelectionConfig{
			Enabled:       cfg.Selection.Enabled,
			IsRowDisabled: disabled,
		},
		Search: grid.SearchConfig{
			Hidden:              cfg.Search.Hidden,
			Mode:                search.ParseMode(cfg.Search.Mode),
			Debounce:            cfg.Search.DebounceDuration(),
			DisableClientSearch: cfg.Search.DisableClient,
			Placeholder:         cfg.Search.Placeholder,
		},
		Pagination: grid.PaginationConfig{
			Enabled:  cfg.Pagination.Enabled,
			PageSize: cfg.Pagination.PageSize,
		},
		AddRow: grid.AddRowConfig{
			Enabled:     cfg.AddRow.Enabled,
			Placeholder: cfg.AddRow.Placeholder,
			Readonly:    cfg.ReadonlyColumns(),
			Guard:       grid.DefaultAddRowGuard,
			OnAddRow: func(r grid.Row) error {
				if idOf(r) == "" {
					r[idField] = uuid.NewString()
				}
				tbl.SetRows(append(slices.Clone(tbl.Rows()), r))
				lgr.Info("row added", "id", idOf(r))
				return nil
			},
		},
		Export: grid.ExportConfig{
			Hidden:   cfg.Export.Hidden,
			FileName: cfg.Export.FileName,
		},
		GetItemID: idOf,
		BulkActions: []grid.BulkAction{{
			Label: "Delete",
			Run: func(_ context.Context, selected []grid.Row) error {
				gone := make(map[string]bool, len(selected))
				for _, r := range selected {
					gone[idOf(r)] = true
				}
				kept := slices.DeleteFunc(slices.Clone(tbl.Rows()), func(r grid.Row) bool { return gone[idOf(r)] })
				tbl.SetRows(kept)
				lgr.Info("rows deleted", "count", len(gone))
				return nil
			},
		}},
		Filter: cfg.Filter,
		Sort: grid.SortState{
			Column:    cfg.Sort.Column,
			Direction: parseDirection(cfg.Sort.Direction),
		},
		EmptyMessage:   cfg.EmptyMessage,
		LoadingMessage: cfg.LoadingMessage,
		Locale:         parseLocale(localeName),
		Logger:         lgr.WithName("grid"),
	}
	if opts.Search.Mode == grid.DelegatedSearch {
		// The loaded file stands in for the remote source: the full row set
		// is queried, not the current page.
		source := rows
		opts.Search.OnGlobalSearch = func(ctx context.Context, q string) ([]grid.Row, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return search.Filter(source, q), nil
		}
	}

	t, err := grid.New(opts)
	if err != nil {
		return nil, err
	}
	tbl = t
	tbl.SetRows(rows)
	return tbl, nil
}

func parseDirection(s string) grid.Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return grid.Ascending
	case "desc", "descending":
		return grid.Descending
	default:
		return grid.Unsorted
	}
}

// parseLocale falls back to $LANG, e.g. "de_DE.UTF-8", and then to the
// root collation.
func parseLocale(name string) language.Tag {
	if name == "" {
		name = os.Getenv("LANG")
	}
	name, _, _ = strings.Cut(name, ".")
	name = strings.ReplaceAll(name, "_", "-")
	if name == "" || name == "C" || name == "POSIX" {
		return language.Und
	}
	tag, err := language.Parse(name)
	if err != nil {
		return language.Und
	}
	return tag
}

// applyView applies the snapshot and export view flags to tbl.
func applyView(ctx context.Context, tbl *grid.Table) error {
	if filterExpr != "" {
		if err := tbl.SetFilter(filterExpr); err != nil {
			return err
		}
	}
	if sortColumn != "" {
		dir := grid.Ascending
		if sortDesc {
			dir = grid.Descending
		}
		if !tbl.SetSort(grid.SortState{Column: sortColumn, Direction: dir}) {
			return fmt.Errorf("column %q is not sortable", sortColumn)
		}
	}
	if searchTerm != "" {
		p := tbl.TypeSearch(searchTerm)
		if d, ok := tbl.SearchDebounced(p.ID); ok {
			res := tbl.RunSearch(ctx, d)
			if res.Err != nil {
				return fmt.Errorf("search: %w", res.Err)
			}
			tbl.ResolveSearch(res)
		}
	}
	if page > 1 {
		if err := tbl.GoToPage(page); err != nil {
			return err
		}
	}
	return nil
}

// showOnly makes exactly keys visible, in that order where the columns
// allow it.
func showOnly(tbl *grid.Table, keys []string) error {
	want := make(map[string]bool, len(keys))
	uniq := keys[:0:0]
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || want[k] {
			continue
		}
		want[k] = true
		uniq = append(uniq, k)
	}
	keys = uniq
	known := make(map[string]bool)
	for _, c := range tbl.AllColumns() {
		known[c.Key] = true
	}
	for _, k := range keys {
		if !known[k] {
			return fmt.Errorf("unknown column %q", k)
		}
	}
	vis := tbl.Visibility()
	for _, c := range tbl.AllColumns() {
		if vis[c.Key] != want[c.Key] {
			tbl.ToggleColumn(c.Key)
		}
	}
	for i, k := range keys {
		if at := tbl.AllColumns()[i].Key; at != k {
			tbl.ReorderColumn(k, at)
		}
	}
	return nil
}
