// =============================================================================
// Model Merger - Run Validation
// =============================================================================
//
// This module checks the run options against the detected columns before any
// aggregation happens. The cell data itself is never rejected: non-numeric
// values are coerced to 0 by the normalizer.
//
// CHECKS:
//   1. Role overrides name existing columns                 (error)
//   2. Minimum quantity is not negative                     (error)
//   3. Sort key is available for the detected roles         (error)
//   4. Sort direction is asc, desc or empty                 (error)
//   5. The where-expression compiles                        (error)
//   6. Minimum quantity without a quantity column           (warning)
//   7. Identifier column also summed as a numeric role      (warning)
//
// ERROR HANDLING:
//   - Problems are collected, not returned one at a time
//   - Any "error" severity halts the run; warnings are logged
//
// =============================================================================

package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ginjaninja78/model-merger/internal/aggregator"
	"github.com/ginjaninja78/model-merger/internal/config"
	"github.com/ginjaninja78/model-merger/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single problem with the run configuration.
type ValidationError struct {
	// Severity is SeverityError (halts the run) or SeverityWarning.
	Severity string

	// Field is the option that failed, e.g. "sort" or "quantity-col".
	Field string

	// Value is the offending option value.
	Value string

	// Rule is a short machine-readable rule name.
	Rule string

	// Message is a human-readable explanation.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult summarizes a list of problems.
type ValidationResult struct {
	// IsValid is true if there are no error-severity problems.
	IsValid bool

	// Errors contains all problems, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int
}

// NewResult counts the problems in errs.
func NewResult(errs []*ValidationError) *ValidationResult {
	result := &ValidationResult{IsValid: true, Errors: errs}
	for _, err := range errs {
		if err.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
		} else {
			result.WarningCount++
		}
	}
	return result
}

// Err returns the first error-severity problem, or nil.
func (r *ValidationResult) Err() error {
	for _, err := range r.Errors {
		if err.Severity == SeverityError {
			return err
		}
	}
	return nil
}

// ErrorsOnly returns the error-severity problems.
func (r *ValidationResult) ErrorsOnly() []*ValidationError {
	var out []*ValidationError
	for _, err := range r.Errors {
		if err.Severity == SeverityError {
			out = append(out, err)
		}
	}
	return out
}

// Warnings returns the warning-severity problems.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, err := range r.Errors {
		if err.Severity == SeverityWarning {
			out = append(out, err)
		}
	}
	return out
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// ValidateRun checks opts against the table columns and the resolved roles.
//
// PARAMETERS:
//   - columns: The column names of the input table.
//   - roles: The roles after detection and overrides.
//   - opts: The run options.
//
// RETURNS:
//   - All problems found, in check order. Nil when everything is fine.
func ValidateRun(columns []string, roles types.ColumnRoles, opts config.RunOptions) []*ValidationError {
	var errs []*ValidationError
	add := func(severity, field, value, rule, format string, args ...interface{}) {
		errs = append(errs, &ValidationError{
			Severity: severity,
			Field:    field,
			Value:    value,
			Rule:     rule,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	// 1. Overrides
	for _, role := range types.AllRoles {
		override := opts.Overrides.Get(role)
		if override != "" && !slices.Contains(columns, override) {
			add(SeverityError, string(role)+"-col", override, "unknown_column",
				"column does not exist; available columns: %s", strings.Join(columns, ", "))
		}
	}

	agg := opts.Aggregate

	// 2. Minimum quantity
	if agg.MinQuantity < 0 {
		add(SeverityError, "min-qty", fmt.Sprint(agg.MinQuantity), "non_negative",
			"minimum quantity must not be negative")
	}

	// 3. Sort key
	key := agg.SortKey
	if key == "" {
		key = types.SortByIdentifier
	}
	if !aggregator.IsSortKeyAvailable(key, roles) {
		add(SeverityError, "sort", string(key), "sort_key_available",
			"sort key needs a column that was not detected; available keys: %s", joinKeys(aggregator.AvailableSortKeys(roles)))
	}

	// 4. Direction
	switch agg.Direction {
	case types.SortDefault, types.SortAscending, types.SortDescending:
	default:
		add(SeverityError, "order", string(agg.Direction), "sort_direction",
			"sort direction must be asc or desc")
	}

	// 5. Where-expression
	if _, err := aggregator.CompileWhere(agg.Where); err != nil {
		add(SeverityError, "where", agg.Where, "expression", "%v", err)
	}

	// 6. Ignored minimum quantity
	if agg.MinQuantity > 0 && !roles.HasQuantity() {
		add(SeverityWarning, "min-qty", fmt.Sprint(agg.MinQuantity), "quantity_role",
			"no quantity column detected; the minimum quantity filter is ignored")
	}

	// 7. Identifier reused as a numeric role
	if roles.Identifier != "" && slices.Contains(roles.NumericColumns(), roles.Identifier) {
		add(SeverityWarning, "identifier-col", roles.Identifier, "shared_column",
			"the identifier column is also summed as a numeric role; consider --exclusive")
	}

	return errs
}

// FormatErrors formats problems for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

func joinKeys(keys []types.SortKey) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
