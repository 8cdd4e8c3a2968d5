package cmd

import (
	"github.com/ginjaninja78/model-merger/internal/config"
	"github.com/ginjaninja78/model-merger/internal/merger"
	"github.com/spf13/cobra"
)

var detectExclusive bool

// detectCmd previews a workbook and the columns the merge would use.
var detectCmd = &cobra.Command{
	Use:   "detect <input.xlsx|->",
	Short: "Show the detected model, quantity, price and amount columns",
	Long: `The detect command reads the workbook, prints the first rows and the
columns chosen for each role, and stops. Nothing is merged or written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadSession()
		if err != nil {
			return err
		}
		defer rt.close()

		input, name, err := openInput(cmd, args[0])
		if err != nil {
			return err
		}
		defer input.Close()

		opts := config.NewRunOptions(rt.cfg)
		if cmd.Flags().Changed("exclusive") {
			opts.Exclusive = detectExclusive
		}

		result := merger.New(input, name, rt.cfg, opts, rt.logger).Detect()

		out := cmd.OutOrStdout()
		if result.Raw != nil {
			printTable(out, "Raw data (preview):", result.Raw, rt.cfg.PreviewRows)
			printRoles(out, result.Roles)
		}
		return explain(result.Error)
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().BoolVar(&detectExclusive, "exclusive", false, "Assign each column to at most one role")
}
