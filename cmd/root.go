// =============================================================================
// Model Merger - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (merger)
//   ├── mergeCmd   (merger merge <input.xlsx>)
//   ├── detectCmd  (merger detect <input.xlsx>)
//   └── versionCmd (merger version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). Commands
//   call loadSession to get the configuration and a logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ginjaninja78/model-merger/internal/config"
	"github.com/ginjaninja78/model-merger/internal/merger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file. Empty means config.yaml
// in the current directory, which may be absent.
var cfgFile string

// verbose switches logging to debug level.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "merger",
	Short: "Model Merger - combine spreadsheet rows by model and total them",

	Long: `Model Merger reads an order or invoice workbook, finds the model,
quantity, price and amount columns by their headers, fills in model cells
left blank under a previous row, and merges all rows of each model into one
line with total quantity, total amount and unit price.

Example Usage:
  merger detect orders.xlsx                      # Show which columns were found
  merger merge orders.xlsx                       # Merge and write Model_Merged_Final.xlsx
  merger merge orders.xlsx --min-qty 10 --sort totalAmount
  merger merge orders.xlsx --dry-run             # Show the result without writing files`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main().
func Execute() {
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the configuration file (default is config.yaml if present)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// session bundles what every command needs.
type session struct {
	cfg    *config.MainConfig
	zap    *zap.Logger
	logger merger.Logger
}

// loadSession loads the configuration and builds the logger. The caller must
// call close when done.
func loadSession() (*session, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	zl, err := merger.NewProductionLogger(level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &session{cfg: cfg, zap: zl, logger: merger.NewZapLogger(zl)}, nil
}

func (r *session) close() {
	_ = r.zap.Sync()
}

// openInput opens path, or returns stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open input: %w", err)
	}
	return f, path, nil
}
