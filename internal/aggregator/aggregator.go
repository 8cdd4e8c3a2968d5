// =============================================================================
// Model Merger - Aggregator
// =============================================================================
//
// This module turns the normalized table into one row per identifier.
//
// AGGREGATION PIPELINE:
//   1. Group rows by identifier (exact string match, first-appearance order)
//   2. Reduce each group:
//        quantity -> sum
//        amount   -> sum
//        price    -> first row
//        others   -> first row
//   3. Derive unit price = amount / quantity, rounded to 2 decimals
//   4. Filter (min quantity, identifier substring, optional expression)
//   5. Stable sort by the selected key
//
// Sums are accumulated as decimals so that totals of values like 0.1 stay
// exact; they are converted to float64 only when a row is emitted.
//
// =============================================================================

package aggregator

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ginjaninja78/model-merger/internal/normalizer"
	"github.com/ginjaninja78/model-merger/internal/types"
	"github.com/shopspring/decimal"
)

// ErrSortKeyUnavailable is returned when the sort key depends on a role the
// table does not have.
var ErrSortKeyUnavailable = errors.New("sort key not available for the detected columns")

// ErrInvalidExpression is returned when the where-expression does not
// compile.
var ErrInvalidExpression = errors.New("invalid filter expression")

// =============================================================================
// GROUPING
// =============================================================================

// group accumulates the rows sharing one identifier.
type group struct {
	identifier string
	quantity   decimal.Decimal
	amount     decimal.Decimal
	price      float64
	extra      types.Row
}

// Aggregate groups, reduces, filters and sorts the normalized table.
//
// Rows whose identifier is still missing after normalization are skipped.
// An empty result is not an error.
func Aggregate(table *types.Table, roles types.ColumnRoles, opts types.AggregateOptions) ([]types.AggregatedRow, error) {
	if roles.Identifier == "" {
		return nil, fmt.Errorf("aggregate: identifier role is required")
	}

	key := opts.SortKey
	if key == "" {
		key = types.SortByIdentifier
	}
	if !IsSortKeyAvailable(key, roles) {
		return nil, fmt.Errorf("%w: %s", ErrSortKeyUnavailable, key)
	}

	where, err := CompileWhere(opts.Where)
	if err != nil {
		return nil, err
	}

	rows := Reduce(table, roles)

	filtered := rows[:0]
	for _, row := range rows {
		keep, err := keepRow(row, roles, opts, where)
		if err != nil {
			return nil, err
		}
		if keep {
			filtered = append(filtered, row)
		}
	}

	Sort(filtered, key, opts.Direction)
	return filtered, nil
}

// Reduce groups the table by identifier and reduces each group, without
// filtering. Groups come out in order of first appearance.
func Reduce(table *types.Table, roles types.ColumnRoles) []types.AggregatedRow {
	var passThrough []string
	for _, col := range table.Columns {
		if !roles.IsRoleColumn(col) {
			passThrough = append(passThrough, col)
		}
	}

	index := make(map[string]*group)
	var order []*group

	for _, row := range table.Rows {
		idCell := row[roles.Identifier]
		if idCell.IsEmpty() {
			continue
		}
		id := idCell.String()

		g, ok := index[id]
		if !ok {
			g = &group{identifier: id, extra: make(types.Row, len(passThrough))}
			if roles.HasPrice() {
				g.price = normalizer.ParseOrZero(row[roles.Price])
			}
			for _, col := range passThrough {
				g.extra[col] = row[col]
			}
			index[id] = g
			order = append(order, g)
		}

		if roles.HasQuantity() {
			g.quantity = g.quantity.Add(decimal.NewFromFloat(normalizer.ParseOrZero(row[roles.Quantity])))
		}
		if roles.HasAmount() {
			g.amount = g.amount.Add(decimal.NewFromFloat(normalizer.ParseOrZero(row[roles.Amount])))
		}
	}

	out := make([]types.AggregatedRow, len(order))
	for i, g := range order {
		out[i] = types.AggregatedRow{
			Identifier:    g.identifier,
			TotalQuantity: g.quantity.InexactFloat64(),
			Price:         g.price,
			TotalAmount:   g.amount.InexactFloat64(),
			UnitPrice:     unitPrice(g.amount, g.quantity),
			Extra:         g.extra,
		}
	}
	return out
}

// UnitPrice returns amount/quantity rounded half away from zero to 2
// decimals, or 0 when quantity is 0. Infinite inputs are divided as floats.
func UnitPrice(amount, quantity float64) float64 {
	if quantity == 0 {
		return 0
	}
	if !isFinite(amount) || !isFinite(quantity) {
		return amount / quantity
	}
	return unitPrice(decimal.NewFromFloat(amount), decimal.NewFromFloat(quantity))
}

func unitPrice(amount, quantity decimal.Decimal) float64 {
	if quantity.IsZero() {
		return 0
	}
	return amount.Div(quantity).Round(2).InexactFloat64()
}

// =============================================================================
// FILTERING
// =============================================================================

func keepRow(row types.AggregatedRow, roles types.ColumnRoles, opts types.AggregateOptions, where *vm.Program) (bool, error) {
	if roles.HasQuantity() && row.TotalQuantity < opts.MinQuantity {
		return false, nil
	}
	if opts.IdentifierContains != "" &&
		!strings.Contains(strings.ToLower(row.Identifier), strings.ToLower(opts.IdentifierContains)) {
		return false, nil
	}
	if where == nil {
		return true, nil
	}

	result, err := expr.Run(where, exprEnv(row))
	if err != nil {
		return false, fmt.Errorf("evaluate filter for %q: %w", row.Identifier, err)
	}
	keep, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: evaluated to %T, expected bool", ErrInvalidExpression, result)
	}
	return keep, nil
}

// CompileWhere compiles a filter expression. An empty expression compiles to
// nil, meaning "keep everything".
func CompileWhere(expression string) (*vm.Program, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(exprEnv(types.AggregatedRow{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return program, nil
}

func exprEnv(row types.AggregatedRow) map[string]any {
	return map[string]any{
		"identifier": row.Identifier,
		"quantity":   row.TotalQuantity,
		"price":      row.Price,
		"amount":     row.TotalAmount,
		"unit_price": row.UnitPrice,
	}
}

// =============================================================================
// SORTING
// =============================================================================

// AvailableSortKeys lists the keys offered for the given roles.
func AvailableSortKeys(roles types.ColumnRoles) []types.SortKey {
	keys := []types.SortKey{types.SortByIdentifier}
	if roles.HasQuantity() {
		keys = append(keys, types.SortByTotalQuantity)
	}
	if roles.HasAmount() {
		keys = append(keys, types.SortByTotalAmount)
	}
	if roles.HasQuantity() && roles.HasAmount() {
		keys = append(keys, types.SortByUnitPrice)
	}
	return keys
}

// IsSortKeyAvailable reports whether key is offered for roles.
func IsSortKeyAvailable(key types.SortKey, roles types.ColumnRoles) bool {
	return slices.Contains(AvailableSortKeys(roles), key)
}

// DefaultDirection is ascending for the identifier and descending for the
// numeric keys, so the largest contributors come first.
func DefaultDirection(key types.SortKey) types.SortDirection {
	if key == types.SortByIdentifier || key == "" {
		return types.SortAscending
	}
	return types.SortDescending
}

// Sort orders rows in place. Ties keep their current relative order.
func Sort(rows []types.AggregatedRow, key types.SortKey, dir types.SortDirection) {
	if dir == types.SortDefault {
		dir = DefaultDirection(key)
	}

	compare := func(a, b types.AggregatedRow) int {
		switch key {
		case types.SortByTotalQuantity:
			return cmp.Compare(a.TotalQuantity, b.TotalQuantity)
		case types.SortByTotalAmount:
			return cmp.Compare(a.TotalAmount, b.TotalAmount)
		case types.SortByUnitPrice:
			return cmp.Compare(a.UnitPrice, b.UnitPrice)
		default:
			return strings.Compare(a.Identifier, b.Identifier)
		}
	}

	slices.SortStableFunc(rows, func(a, b types.AggregatedRow) int {
		if dir == types.SortDescending {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summarize computes the metrics shown next to the result.
func Summarize(rows []types.AggregatedRow) types.Summary {
	var qty, amount floatSum
	for _, row := range rows {
		qty.add(row.TotalQuantity)
		amount.add(row.TotalAmount)
	}
	return types.Summary{
		Groups:        len(rows),
		TotalQuantity: qty.value(),
		TotalAmount:   amount.value(),
	}
}

// floatSum adds float64 values as decimals. A group total past the float64
// range arrives here as +Inf or -Inf, which a decimal cannot hold, so such
// values are summed as plain floats.
type floatSum struct {
	exact    decimal.Decimal
	overflow float64
	inexact  bool
}

func (s *floatSum) add(v float64) {
	if isFinite(v) {
		s.exact = s.exact.Add(decimal.NewFromFloat(v))
		return
	}
	s.overflow += v
	s.inexact = true
}

func (s floatSum) value() float64 {
	if s.inexact {
		return s.overflow + s.exact.InexactFloat64()
	}
	return s.exact.InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
