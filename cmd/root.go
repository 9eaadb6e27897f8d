package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/gridx/internal/config"
	"github.com/oakwood-commons/gridx/internal/export"
	"github.com/oakwood-commons/gridx/internal/storage"
	"github.com/oakwood-commons/gridx/internal/ui"
	"github.com/oakwood-commons/gridx/pkg/logger"
	"github.com/oakwood-commons/gridx/pkg/settings"
)

// quietLogLevel is zap's error level.
const quietLogLevel int8 = 2

var (
	params  = settings.NewCliParams()
	cfg     config.File
	rootCtx = context.Background()

	output         string
	searchTerm     string
	sortColumn     string
	sortDesc       bool
	filterExpr     string
	columnsFlag    []string
	themeName      string
	localeName     string
	page           int
	pageSize       int
	snapshotWidth  int
	snapshotHeight int
)

type themeSelectionError struct {
	Selected  string
	Available []string
}

func (e themeSelectionError) Error() string {
	return fmt.Sprintf("unknown theme %q\navailable themes: %v", e.Selected, e.Available)
}

func resolveTheme(name string) (ui.Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ui.ThemeByName(""), nil
	}
	th, ok := ui.ThemePresets[name]
	if !ok {
		names := ui.ThemeNames()
		slices.Sort(names)
		return ui.Theme{}, themeSelectionError{Selected: name, Available: names}
	}
	return th, nil
}

// noColorOutput honours --no-color, NO_COLOR and a non-terminal stdout.
func noColorOutput() bool {
	return params.NoColor || color.NoColor
}

// setup loads the config and the logger. Explicit flags win over the
// config file, which wins over the embedded defaults.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(params.ConfigPath)
	if err != nil {
		return err
	}
	cfg = loaded

	flags := cmd.Flags()
	if !flags.Changed("storage") && cfg.Storage.Backend != "" {
		params.StorageBackend = cfg.Storage.Backend
	}
	cfg.Storage.Backend = params.StorageBackend
	if flags.Changed("state-dir") || cfg.Storage.Dir == "" {
		cfg.Storage.Dir = params.StateDir
	}
	if !flags.Changed("log-level") {
		params.MinLogLevel = cfg.Log.Level
	}
	if params.LogFile == "" {
		params.LogFile = cfg.Log.File
	}
	if params.IsQuiet {
		params.MinLogLevel = quietLogLevel
	}
	if flags.Changed("page-size") {
		cfg.Table.Pagination.PageSize = pageSize
		cfg.Table.Pagination.Enabled = pageSize > 0
	}

	opts := logger.Options{Level: params.MinLogLevel, File: params.LogFile}
	if params.Interactive && opts.File == "" {
		// The TUI owns the terminal.
		opts.File = filepath.Join(params.StateDir, settings.CliBinaryName+".log")
	}
	lgr := logger.Setup(opts).WithValues("command", cmd.Name())
	rootCtx = settings.IntoContext(logger.WithLogger(context.Background(), &lgr), params)
	return nil
}

func tableTitle(args []string) string {
	if cfg.Table.Name != "" && cfg.Table.Name != "records" {
		return cfg.Table.Name
	}
	if len(args) > 0 {
		return filepath.Base(args[0])
	}
	return cfg.Table.Name
}

func runRoot(cmd *cobra.Command, args []string) error {
	lgr := *logger.FromContext(rootCtx)
	rows, err := loadRows(args)
	if errors.Is(err, errShowHelp) {
		return cmd.Help()
	}
	if err != nil {
		return err
	}
	th, err := resolveTheme(themeName)
	if err != nil {
		return err
	}

	// --columns is a one-off view; it must not overwrite the saved layout.
	storeCfg := cfg.Storage
	if len(columnsFlag) > 0 {
		storeCfg.Backend = storage.BackendMemory
	}
	st, err := openStorage(rootCtx, storeCfg)
	if err != nil {
		return err
	}
	defer func() { _ = storage.Close(st) }()

	tbl, err := buildTable(cfg.Table, rows, st, lgr)
	if err != nil {
		return err
	}
	if len(columnsFlag) > 0 {
		if err := showOnly(tbl, columnsFlag); err != nil {
			return err
		}
	}
	if err := applyView(rootCtx, tbl); err != nil {
		return err
	}
	lgr.V(1).Info("table ready", "rows", len(rows), "filtered", len(tbl.Filtered()))

	switch {
	case params.Interactive:
		format, err := export.ParseFormat(cfg.Table.Export.Format)
		if err != nil {
			return err
		}
		progOpts, cleanup := getProgramOptions()
		defer cleanup()
		return ui.Run(tbl, ui.Options{
			Title:        tableTitle(args),
			NoColor:      noColorOutput(),
			Theme:        th,
			ExportDir:    ".",
			ExportFormat: format,
			Context:      rootCtx,
			Logger:       lgr.WithName("ui"),
		}, progOpts...)
	case output != "" && output != "table":
		f, err := export.ParseFormat(output)
		if err != nil {
			return err
		}
		return tbl.ExportAs(cmd.OutOrStdout(), f)
	default:
		w, _ := detectTerminalSize()
		size := resolveSnapshotSize(snapshotWidth, snapshotHeight, w)
		_, err := fmt.Fprint(cmd.OutOrStdout(), ui.RenderSnapshot(tbl, ui.SnapshotOptions{
			Title:   tableTitle(args),
			Width:   size.Width,
			Height:  size.Height,
			NoColor: noColorOutput(),
			Theme:   th,
		}))
		return err
	}
}

func cliVersionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print gridx version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
		return err
	},
}

var rootCmd = &cobra.Command{
	Use:   "gridx [file]",
	Short: "gridx - sortable, searchable, pageable tables in the terminal",
	Long: `gridx loads rows from a JSON, NDJSON, YAML, TOML or CSV file (or stdin)
and renders them as a table with sorting, search, pagination, row selection,
column visibility and order, and export. Column layouts persist between runs.

Without -i a single page is printed; with -i the table is interactive.`,
	Example: "\n  gridx tickets.json\n  gridx tickets.json --sort name --desc --page 2\n  gridx tickets.csv --search amy --columns id,name\n  gridx tickets.yaml --filter 'row.status == \"open\"' -o json\n  cat tickets.ndjson | gridx -i\n",
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runRoot,
}

func init() { //nolint:gochecknoinits
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&params.ConfigPath, "config-file", "", "path to a YAML table definition")
	pf.Int8Var(&params.MinLogLevel, "log-level", 0, "minimum log level: -1 debug, 0 info, 1 warn, 2 error")
	pf.StringVar(&params.LogFile, "log-file", "", "write logs to a rotating file instead of stderr")
	pf.BoolVarP(&params.IsQuiet, "quiet", "q", false, "only log errors")
	pf.StringVar(&params.StorageBackend, "storage", params.StorageBackend, "column layout storage: memory|file|sqlite")
	pf.StringVar(&params.StateDir, "state-dir", params.StateDir, "directory for persisted column layouts")
	pf.BoolVar(&params.NoColor, "no-color", false, "disable color output")
	pf.StringVar(&searchTerm, "search", "", "search term applied before rendering")
	pf.StringVar(&sortColumn, "sort", "", "sort by this column key")
	pf.BoolVar(&sortDesc, "desc", false, "sort descending (with --sort)")
	pf.StringVar(&filterExpr, "filter", "", "CEL predicate over row, e.g. 'row.age > 30'")
	pf.IntVar(&pageSize, "page-size", 0, "rows per page (0 disables pagination)")
	pf.StringVar(&localeName, "locale", "", "collation locale for sorting, e.g. de or sv (default from $LANG)")

	rootCmd.Flags().BoolVarP(&params.Interactive, "interactive", "i", false, "start interactive TUI")
	rootCmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table|csv|json|yaml|toml|markdown|html")
	rootCmd.Flags().StringSliceVar(&columnsFlag, "columns", nil, "show only these column keys, in this order")
	rootCmd.Flags().IntVar(&page, "page", 1, "page to render")
	rootCmd.Flags().StringVar(&themeName, "theme", "", "theme name: "+strings.Join(sortedThemes(), ", "))
	rootCmd.Flags().IntVar(&snapshotWidth, "width", 0, "output width in columns (default: terminal width)")
	rootCmd.Flags().IntVar(&snapshotHeight, "height", 0, "maximum output lines (0 = whole page)")

	rootCmd.Version = cliVersionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(versionCmd, configCmd, columnsCmd, exportCmd)
}

func sortedThemes() []string {
	names := ui.ThemeNames()
	slices.Sort(names)
	return names
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
