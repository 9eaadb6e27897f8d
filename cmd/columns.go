package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/gridx/internal/storage"
	"github.com/oakwood-commons/gridx/pkg/grid"
	"github.com/oakwood-commons/gridx/pkg/logger"
)

// withTable loads the rows named by args (or stdin), builds the table on
// the configured storage and calls fn.
func withTable(args []string, fn func(*grid.Table) error) error {
	lgr := *logger.FromContext(rootCtx)
	rows, err := loadRows(args)
	if err != nil && (len(cfg.Table.Columns) == 0 || !errors.Is(err, errShowHelp)) {
		if errors.Is(err, errShowHelp) {
			return fmt.Errorf("columns are inferred from the data: pass a file or define table.columns in --config-file")
		}
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
	return fn(tbl)
}

func printColumns(w io.Writer, tbl *grid.Table) error {
	if noColorOutput() {
		color.NoColor = true
	}
	on := color.New(color.FgGreen).SprintFunc()
	off := color.New(color.Faint).SprintFunc()
	fixed := color.New(color.FgYellow).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tVISIBLE\tKEY\tLABEL\tFLAGS")
	vis := tbl.Visibility()
	for i, c := range tbl.AllColumns() {
		state := off("no")
		if vis[c.Key] {
			state = on("yes")
		}
		var flags string
		if !c.Draggable {
			flags = fixed("fixed")
		}
		if !c.Sortable {
			if flags != "" {
				flags += ","
			}
			flags += "unsortable"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, state, c.Key, c.Title(), flags)
	}
	return tw.Flush()
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Inspect and change the saved column layout",
	Long: `Column visibility and order are saved per table under the storage key
(table.storage_key, else table.name) and reused by every later run.`,
}

var columnsListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List columns in display order with their visibility",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTable(args, func(tbl *grid.Table) error {
			return printColumns(cmd.OutOrStdout(), tbl)
		})
	},
}

var columnsToggleCmd = &cobra.Command{
	Use:   "toggle <key> [file]",
	Short: "Show a hidden column or hide a visible one",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTable(args[1:], func(tbl *grid.Table) error {
			if !tbl.ToggleColumn(args[0]) {
				return fmt.Errorf("unknown column %q", args[0])
			}
			return printColumns(cmd.OutOrStdout(), tbl)
		})
	},
}

var columnsMoveCmd = &cobra.Command{
	Use:   "move <source> <target> [file]",
	Short: "Move a column to the position of another",
	Long:  "Move removes <source> and inserts it at <target>'s index. Both columns must be draggable.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTable(args[2:], func(tbl *grid.Table) error {
			for _, c := range tbl.AllColumns() {
				if (c.Key == args[0] || c.Key == args[1]) && !c.Draggable {
					return fmt.Errorf("column %q is fixed", c.Key)
				}
			}
			if !tbl.ReorderColumn(args[0], args[1]) {
				return fmt.Errorf("cannot move %q to %q: unknown column", args[0], args[1])
			}
			return printColumns(cmd.OutOrStdout(), tbl)
		})
	},
}

var columnsResetCmd = &cobra.Command{
	Use:   "reset [file]",
	Short: "Forget the saved layout and restore the defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTable(args, func(tbl *grid.Table) error {
			tbl.ResetColumns()
			return printColumns(cmd.OutOrStdout(), tbl)
		})
	},
}

func init() { //nolint:gochecknoinits
	columnsCmd.AddCommand(columnsListCmd, columnsToggleCmd, columnsMoveCmd, columnsResetCmd)
}
