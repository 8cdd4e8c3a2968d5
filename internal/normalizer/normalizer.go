// =============================================================================
// Model Merger - Row Normalizer
// =============================================================================
//
// This module repairs and coerces the raw table before aggregation:
//   - Identifier column: stringify, trim, treat blanks and "nan"/"none" as
//     missing, then forward-fill from the nearest preceding value.
//   - Quantity/price/amount columns: parse as numbers, falling back to 0.
//     A column that is also the identifier keeps its text.
//   - Every other column passes through untouched.
//
// FALLBACK POLICY:
//   ParseOrZero never fails. A cell that is not a plain decimal number
//   (text, blank, "1,200", "$5") becomes 0 and is counted in Stats.
//
// =============================================================================

package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/model-merger/internal/types"
)

// =============================================================================
// STATISTICS
// =============================================================================

// Stats counts what the normalizer had to repair.
type Stats struct {
	// FilledIdentifiers is the number of identifier cells taken from a
	// preceding row.
	FilledIdentifiers int

	// UnresolvedIdentifiers is the number of leading rows whose identifier
	// stayed missing because no earlier row had one.
	UnresolvedIdentifiers int

	// NumericFallbacks is the number of numeric-role cells replaced by 0.
	NumericFallbacks int
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// missingTokens are identifier strings treated like a blank cell.
var missingTokens = map[string]bool{
	"nan":  true,
	"none": true,
}

// Normalize returns a repaired copy of table. The input is not modified.
func Normalize(table *types.Table, roles types.ColumnRoles) *types.Table {
	out, _ := NormalizeWithStats(table, roles)
	return out
}

// NormalizeWithStats is Normalize plus the repair counters.
func NormalizeWithStats(table *types.Table, roles types.ColumnRoles) (*types.Table, Stats) {
	var stats Stats
	out := table.Clone()

	if roles.Identifier != "" {
		for _, row := range out.Rows {
			row[roles.Identifier] = CleanIdentifier(row[roles.Identifier])
		}
		stats.FilledIdentifiers, stats.UnresolvedIdentifiers = ForwardFill(out, roles.Identifier)
	}

	// The identifier keeps its text even when it is also a numeric role. The
	// aggregator parses it again for the sums.
	for _, col := range roles.NumericColumns() {
		if col == roles.Identifier {
			continue
		}
		for _, row := range out.Rows {
			n, ok := ParseNumber(row[col])
			if !ok {
				stats.NumericFallbacks++
			}
			row[col] = types.NumberCell(n)
		}
	}

	return out, stats
}

// CleanIdentifier converts an identifier cell to trimmed text, or to an
// empty cell when it carries no usable value.
func CleanIdentifier(c types.Cell) types.Cell {
	s := strings.TrimSpace(c.String())
	if s == "" || missingTokens[strings.ToLower(s)] {
		return types.EmptyCell()
	}
	return types.TextCell(s)
}

// ForwardFill replaces every empty cell of column with the nearest preceding
// non-empty cell, in row order. It modifies table in place and returns how
// many cells were filled and how many leading cells stayed empty.
//
// Running it twice is a no-op the second time.
func ForwardFill(table *types.Table, column string) (filled, unresolved int) {
	var last types.Cell
	haveLast := false

	for _, row := range table.Rows {
		cell := row[column]
		if !cell.IsEmpty() {
			last = cell
			haveLast = true
			continue
		}
		if !haveLast {
			unresolved++
			continue
		}
		row[column] = last
		filled++
	}

	return filled, unresolved
}

// =============================================================================
// NUMERIC COERCION
// =============================================================================

// decimalPattern accepts an optional sign, digits with an optional decimal
// point (either side may be empty but not both), and an optional exponent.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses a cell as a decimal number. The boolean is false when
// the cell is not numeric, in which case the number is 0.
func ParseNumber(c types.Cell) (float64, bool) {
	switch c.Kind {
	case types.CellNumber:
		if math.IsInf(c.Number, 0) || math.IsNaN(c.Number) {
			return 0, false
		}
		return c.Number, true
	case types.CellText:
		s := strings.TrimSpace(c.Text)
		if !decimalPattern.MatchString(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Out of float64 range.
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ParseOrZero parses a cell as a number, substituting 0 for anything that
// does not parse.
func ParseOrZero(c types.Cell) float64 {
	n, _ := ParseNumber(c)
	return n
}
