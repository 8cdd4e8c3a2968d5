// =============================================================================
// Model Merger - Merge Command
// =============================================================================
//
// This file defines the 'merge' command, the main command of the tool.
//
// COMMAND USAGE:
//   merger merge <input.xlsx|-> [flags]
//
// FLAGS:
//   --identifier-col, --quantity-col, --price-col, --amount-col
//                  : Use this column for the role instead of the detected one
//   --exclusive    : Never assign one column to two roles
//   --min-qty      : Drop models whose total quantity is below N
//   --contains     : Keep models whose identifier contains S (any case)
//   --where        : Keep models matching an expression, e.g. 'amount > 500'
//   --sort         : identifier, totalQuantity, totalAmount or unitPrice
//   --order        : asc or desc (default: asc for identifier, desc otherwise)
//   --out-dir      : Directory for the exported workbook
//   --name         : Output file name format ({original}, {date}, {timestamp}, {uuid})
//   --sqlite       : Also write the result to this SQLite file
//   --dry-run      : Print the result without writing any file
//
// OUTPUT:
//   1. Raw preview (first rows of the sheet)
//   2. Detected columns
//   3. Normalized preview (role columns after fill and coercion)
//   4. Merged result and summary
//   5. Exported file paths
//
// Flags override the defaults section of the configuration file.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/model-merger/internal/classifier"
	"github.com/ginjaninja78/model-merger/internal/config"
	"github.com/ginjaninja78/model-merger/internal/merger"
	"github.com/ginjaninja78/model-merger/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// mergeFlags holds the raw flag values of the merge command.
type mergeFlags struct {
	identifierCol string
	quantityCol   string
	priceCol      string
	amountCol     string
	exclusive     bool
	minQty        float64
	contains      string
	where         string
	sortKey       string
	order         string
	outDir        string
	name          string
	sqlitePath    string
	dryRun        bool
}

var mergeOpts mergeFlags

// =============================================================================
// MERGE COMMAND DEFINITION
// =============================================================================

var mergeCmd = &cobra.Command{
	Use:   "merge <input.xlsx|->",
	Short: "Merge rows by model and export the totals",
	Long: `The merge command reads the first sheet of the workbook, detects the
model, quantity, price and amount columns, fills blank model cells from the
row above, and merges the rows of each model into one line.

Quantity and amount are summed, price is taken from the first row of the
model, and unit price is total amount divided by total quantity, rounded to
two decimals. Cells that are not numbers count as 0.

The result is written to Merged Data in Model_Merged_Final.xlsx inside the
output directory unless --dry-run is given. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	addMergeFlags(mergeCmd.Flags(), &mergeOpts)
}

// addMergeFlags registers the merge flags on f, bound to fl.
func addMergeFlags(f *pflag.FlagSet, fl *mergeFlags) {
	// Column overrides
	f.StringVar(&fl.identifierCol, "identifier-col", "", "Column holding the model identifier")
	f.StringVar(&fl.quantityCol, "quantity-col", "", "Column holding the quantity")
	f.StringVar(&fl.priceCol, "price-col", "", "Column holding the unit price")
	f.StringVar(&fl.amountCol, "amount-col", "", "Column holding the line amount")
	f.BoolVar(&fl.exclusive, "exclusive", false, "Assign each column to at most one role")

	// Filters and sort
	f.Float64Var(&fl.minQty, "min-qty", 0, "Minimum total quantity per model")
	f.StringVar(&fl.contains, "contains", "", "Keep models whose identifier contains this text")
	f.StringVar(&fl.where, "where", "", "Filter expression over identifier, quantity, price, amount, unit_price")
	f.StringVar(&fl.sortKey, "sort", "", "Sort key: identifier, totalQuantity, totalAmount, unitPrice")
	f.StringVar(&fl.order, "order", "", "Sort direction: asc or desc")

	// Output
	f.StringVar(&fl.outDir, "out-dir", "", "Output directory (default from config, ./output)")
	f.StringVar(&fl.name, "name", "", "Output file name format")
	f.StringVar(&fl.sqlitePath, "sqlite", "", "Also write the result to this SQLite database")
	f.BoolVar(&fl.dryRun, "dry-run", false, "Print the result without writing output files")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runMerge(cmd *cobra.Command, args []string) error {
	rt, err := loadSession()
	if err != nil {
		return err
	}
	defer rt.close()

	opts, err := buildRunOptions(cmd.Flags(), rt.cfg, mergeOpts)
	if err != nil {
		return err
	}

	input, name, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer input.Close()

	m := merger.New(input, name, rt.cfg, opts, rt.logger)
	result := m.Run()

	out := cmd.OutOrStdout()
	if result.Raw != nil {
		printTable(out, "Raw data (preview):", result.Raw, rt.cfg.PreviewRows)
		printRoles(out, result.Roles)
	}
	if result.Error != nil {
		return explain(result.Error)
	}

	roleColumns := []string{result.Roles.Identifier}
	roleColumns = append(roleColumns, result.Roles.NumericColumns()...)
	printTable(out, "Normalized data (preview):", result.Normalized.Select(roleColumns...), rt.cfg.PreviewRows)
	printResult(out, result.Layout, result.Rows)
	printSummary(out, result.Summary)

	if mergeOpts.dryRun {
		fmt.Fprintln(out, "\nDry run: no files written.")
		return nil
	}

	exported, err := m.Export(cmd.Context(), result)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSaved: %s\n", exported.XLSXPath)
	if exported.SQLitePath != "" {
		fmt.Fprintf(out, "Saved: %s\n", exported.SQLitePath)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// buildRunOptions layers the flags the user actually set over the
// configuration defaults.
func buildRunOptions(flags *pflag.FlagSet, cfg *config.MainConfig, fl mergeFlags) (config.RunOptions, error) {
	opts := config.NewRunOptions(cfg)
	changed := flags.Changed

	opts.Overrides = types.ColumnRoles{
		Identifier: fl.identifierCol,
		Quantity:   fl.quantityCol,
		Price:      fl.priceCol,
		Amount:     fl.amountCol,
	}
	if changed("exclusive") {
		opts.Exclusive = fl.exclusive
	}
	if changed("min-qty") {
		opts.Aggregate.MinQuantity = fl.minQty
	}
	if changed("contains") {
		opts.Aggregate.IdentifierContains = fl.contains
	}
	if changed("where") {
		opts.Aggregate.Where = fl.where
	}
	if changed("sort") {
		key, ok := types.ParseSortKey(fl.sortKey)
		if !ok {
			return opts, fmt.Errorf("unknown sort key %q: expected identifier, totalQuantity, totalAmount or unitPrice", fl.sortKey)
		}
		opts.Aggregate.SortKey = key
	}
	if changed("order") {
		dir, err := config.ParseDirection(fl.order)
		if err != nil {
			return opts, err
		}
		opts.Aggregate.Direction = dir
	}
	if changed("out-dir") {
		opts.OutputDir = fl.outDir
	}
	if changed("name") {
		opts.NameFormat = fl.name
	}
	opts.SQLitePath = fl.sqlitePath

	return opts, nil
}

// explain adds a hint to errors the user can fix with a flag.
func explain(err error) error {
	if errors.Is(err, classifier.ErrMissingRequiredColumn) {
		keywords := classifier.DefaultKeywords()[types.RoleIdentifier]
		return fmt.Errorf("%w\nRename the model column to contain one of %s, or pass --identifier-col",
			err, strings.Join(keywords, ", "))
	}
	if errors.Is(err, classifier.ErrUnknownColumn) {
		return fmt.Errorf("%w\nRun 'merger detect' to list the available columns", err)
	}
	return err
}
