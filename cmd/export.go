package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/gridx/internal/export"
	"github.com/oakwood-commons/gridx/internal/storage"
	"github.com/oakwood-commons/gridx/pkg/grid"
	"github.com/oakwood-commons/gridx/pkg/logger"
)

var (
	exportFormats []string
	exportOut     string
)

func parseFormats(names []string) ([]export.Format, error) {
	var out []export.Format
	seen := make(map[export.Format]bool)
	for _, n := range names {
		f, err := export.ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// exportCmd writes every filtered, sorted row (not just one page) in the
// visible columns.
var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the filtered, sorted rows to one or more files",
	Example: "\n  gridx export tickets.json\n  gridx export tickets.json --format csv,json,md --out out/tickets\n" +
		"  gridx export tickets.json --sort name --filter 'row.open' --out - --format yaml\n",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lgr := *logger.FromContext(rootCtx)
		names := exportFormats
		if len(names) == 0 {
			names = []string{cfg.Table.Export.Format}
		}
		formats, err := parseFormats(names)
		if err != nil {
			return err
		}

		rows, err := loadRows(args)
		if err != nil {
			return err
		}
		st, err := openStorage(rootCtx, cfg.Storage)
		if err != nil {
			return err
		}
		defer func() { _ = storage.Close(st) }()
		tbl, err := buildTable(cfg.Table, rows, st, lgr)
		if err != nil {
			return err
		}
		if err := applyView(rootCtx, tbl); err != nil {
			return err
		}

		if exportOut == "-" {
			if len(formats) != 1 {
				return fmt.Errorf("--out - takes exactly one format, got %d", len(formats))
			}
			return tbl.ExportAs(cmd.OutOrStdout(), formats[0])
		}
		base := exportOut
		if base == "" {
			base = tbl.ExportFileName()
		}
		base = strings.TrimSuffix(base, filepath.Ext(base))
		paths, err := tbl.ExportFiles(rootCtx, base, formats)
		if errors.Is(err, grid.ErrNoData) {
			return fmt.Errorf("nothing to export: no rows match")
		}
		if err != nil {
			return err
		}
		lgr.Info("export complete", "files", len(paths), "rows", len(tbl.Filtered()))
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits
	exportCmd.Flags().StringSliceVarP(&exportFormats, "format", "f", nil, "formats: csv|json|yaml|toml|markdown|html (default from config)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "O", "", "output path without extension, or - for stdout (default: table.export.file_name)")
}
