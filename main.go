// =============================================================================
// Model Merger - Main Entry Point
// =============================================================================
//
// USAGE:
//   merger merge <input.xlsx>   - Merge rows by model and export the totals
//   merger detect <input.xlsx>  - Show the detected columns only
//   merger version              - Display the application version
//
// LAYOUT:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Reading, classification, normalization, aggregation, export
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/model-merger/cmd"
)

func main() {
	cmd.Execute()
}
