package aggregator

import (
	"math"
	"testing"

	"github.com/ginjaninja78/model-merger/internal/normalizer"
	"github.com/ginjaninja78/model-merger/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioRoles = types.ColumnRoles{Identifier: "MODEL", Quantity: "QTY", Amount: "AMOUNT"}

// scenarioTable is [("M1",5,100), ("",3,60), ("M2",2,40)] after normalization.
func scenarioTable() *types.Table {
	raw := &types.Table{
		Columns: []string{"MODEL", "QTY", "AMOUNT"},
		Rows: []types.Row{
			{"MODEL": types.TextCell("M1"), "QTY": types.NumberCell(5), "AMOUNT": types.NumberCell(100)},
			{"MODEL": types.TextCell(""), "QTY": types.NumberCell(3), "AMOUNT": types.NumberCell(60)},
			{"MODEL": types.TextCell("M2"), "QTY": types.NumberCell(2), "AMOUNT": types.NumberCell(40)},
		},
	}
	return normalizer.Normalize(raw, scenarioRoles)
}

func identifiers(rows []types.AggregatedRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Identifier
	}
	return ids
}

func TestAggregate_Scenario(t *testing.T) {
	rows, err := Aggregate(scenarioTable(), scenarioRoles, types.AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "M1", rows[0].Identifier)
	assert.Equal(t, 8.0, rows[0].TotalQuantity)
	assert.Equal(t, 160.0, rows[0].TotalAmount)
	assert.Equal(t, 20.0, rows[0].UnitPrice)

	assert.Equal(t, "M2", rows[1].Identifier)
	assert.Equal(t, 2.0, rows[1].TotalQuantity)
	assert.Equal(t, 40.0, rows[1].TotalAmount)
	assert.Equal(t, 20.0, rows[1].UnitPrice)
}

func TestAggregate_MinQuantityEmptiesResult(t *testing.T) {
	rows, err := Aggregate(scenarioTable(), scenarioRoles, types.AggregateOptions{MinQuantity: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)

	summary := Summarize(rows)
	assert.Equal(t, 0, summary.Groups)
	assert.Equal(t, 0.0, summary.TotalQuantity)
	assert.Equal(t, 0.0, summary.TotalAmount)
}

func TestAggregate_MinQuantityIgnoredWithoutQuantityRole(t *testing.T) {
	roles := types.ColumnRoles{Identifier: "MODEL", Amount: "AMOUNT"}

	rows, err := Aggregate(scenarioTable(), roles, types.AggregateOptions{MinQuantity: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.0, rows[0].TotalQuantity)
	assert.Equal(t, 0.0, rows[0].UnitPrice)
}

func TestAggregate_NeutralFiltersAreNoOp(t *testing.T) {
	tbl := scenarioTable()

	unfiltered := Reduce(tbl, scenarioRoles)
	filtered, err := Aggregate(tbl, scenarioRoles, types.AggregateOptions{MinQuantity: 0, IdentifierContains: ""})
	require.NoError(t, err)

	assert.ElementsMatch(t, unfiltered, filtered)
}

func TestAggregate_IdentifierContainsIsCaseInsensitive(t *testing.T) {
	rows, err := Aggregate(scenarioTable(), scenarioRoles, types.AggregateOptions{IdentifierContains: "m2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"M2"}, identifiers(rows))
}

func TestAggregate_PriceIsFirstAndExtrasFirstWins(t *testing.T) {
	tbl := &types.Table{
		Columns: []string{"MODEL", "COLOR", "QTY", "PRICE"},
		Rows: []types.Row{
			{"MODEL": types.TextCell("A"), "COLOR": types.TextCell("red"), "QTY": types.NumberCell(1), "PRICE": types.NumberCell(9.5)},
			{"MODEL": types.TextCell("B"), "COLOR": types.TextCell("blue"), "QTY": types.NumberCell(1), "PRICE": types.NumberCell(3)},
			{"MODEL": types.TextCell("A"), "COLOR": types.TextCell("green"), "QTY": types.NumberCell(2), "PRICE": types.NumberCell(100)},
		},
	}
	roles := types.ColumnRoles{Identifier: "MODEL", Quantity: "QTY", Price: "PRICE"}

	rows := Reduce(tbl, roles)
	require.Len(t, rows, 2)
	assert.Equal(t, 9.5, rows[0].Price)
	assert.Equal(t, 3.0, rows[0].TotalQuantity)
	assert.Equal(t, types.TextCell("red"), rows[0].Extra["COLOR"])
	assert.NotContains(t, rows[0].Extra, "PRICE")
	assert.NotContains(t, rows[0].Extra, "MODEL")
}

func TestAggregate_SkipsMissingIdentifiers(t *testing.T) {
	tbl := &types.Table{
		Columns: []string{"MODEL", "QTY"},
		Rows: []types.Row{
			{"MODEL": types.EmptyCell(), "QTY": types.NumberCell(7)},
			{"MODEL": types.TextCell("A"), "QTY": types.NumberCell(1)},
		},
	}
	roles := types.ColumnRoles{Identifier: "MODEL", Quantity: "QTY"}

	rows, err := Aggregate(tbl, roles, types.AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].TotalQuantity)
}

func TestAggregate_QuantitySumMatchesInput(t *testing.T) {
	raw := &types.Table{Columns: []string{"MODEL", "QTY", "AMOUNT"}}
	ids := []string{"", "X", "", "Y", "x", "X", "", "Z"}
	qtys := []string{"0.1", "0.2", "abc", "0.3", "1.7", "-0.4", " 2.25 ", "0"}
	for i := range ids {
		raw.Rows = append(raw.Rows, types.Row{
			"MODEL":  types.TextCell(ids[i]),
			"QTY":    types.TextCell(qtys[i]),
			"AMOUNT": types.NumberCell(float64(i)),
		})
	}
	tbl := normalizer.Normalize(raw, scenarioRoles)

	expected := 0.0
	for _, row := range tbl.Rows {
		if !row["MODEL"].IsEmpty() {
			expected += row["QTY"].Number
		}
	}

	rows, err := Aggregate(tbl, scenarioRoles, types.AggregateOptions{})
	require.NoError(t, err)
	assert.InDelta(t, expected, Summarize(rows).TotalQuantity, 1e-9)
	assert.Equal(t, []string{"X", "Y", "Z", "x"}, identifiers(rows))
}

func TestAggregate_UnitPriceInvariant(t *testing.T) {
	tbl := &types.Table{
		Columns: []string{"MODEL", "QTY", "AMOUNT"},
		Rows: []types.Row{
			{"MODEL": types.TextCell("A"), "QTY": types.NumberCell(3), "AMOUNT": types.NumberCell(10)},
			{"MODEL": types.TextCell("B"), "QTY": types.NumberCell(0), "AMOUNT": types.NumberCell(50)},
			{"MODEL": types.TextCell("C"), "QTY": types.NumberCell(8), "AMOUNT": types.NumberCell(1)},
			{"MODEL": types.TextCell("D"), "QTY": types.NumberCell(-2), "AMOUNT": types.NumberCell(2.01)},
		},
	}

	rows := Reduce(tbl, scenarioRoles)
	require.Len(t, rows, 4)
	assert.Equal(t, 3.33, rows[0].UnitPrice)
	assert.Equal(t, 0.0, rows[1].UnitPrice)
	assert.Equal(t, 0.13, rows[2].UnitPrice)
	assert.Equal(t, -1.01, rows[3].UnitPrice)
}

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		amount, quantity, expected float64
	}{
		{160, 8, 20},
		{10, 3, 3.33},
		{2, 3, 0.67},
		{1, 8, 0.13},
		{5, 0, 0},
		{0, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UnitPrice(tt.amount, tt.quantity), "UnitPrice(%v, %v)", tt.amount, tt.quantity)
	}
}

func sortFixture() []types.AggregatedRow {
	return []types.AggregatedRow{
		{Identifier: "B", TotalQuantity: 5, TotalAmount: 50, UnitPrice: 10},
		{Identifier: "A", TotalQuantity: 9, TotalAmount: 45, UnitPrice: 5},
		{Identifier: "C", TotalQuantity: 5, TotalAmount: 100, UnitPrice: 20},
		{Identifier: "D", TotalQuantity: 1, TotalAmount: 50, UnitPrice: 50},
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name     string
		key      types.SortKey
		dir      types.SortDirection
		expected []string
	}{
		{"identifier default ascending", types.SortByIdentifier, types.SortDefault, []string{"A", "B", "C", "D"}},
		{"identifier forced descending", types.SortByIdentifier, types.SortDescending, []string{"D", "C", "B", "A"}},
		{"quantity default descending, stable ties", types.SortByTotalQuantity, types.SortDefault, []string{"A", "B", "C", "D"}},
		{"quantity ascending, stable ties", types.SortByTotalQuantity, types.SortAscending, []string{"D", "B", "C", "A"}},
		{"amount descending, stable ties", types.SortByTotalAmount, types.SortDefault, []string{"C", "B", "D", "A"}},
		{"unit price descending", types.SortByUnitPrice, types.SortDefault, []string{"D", "C", "B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := sortFixture()
			Sort(rows, tt.key, tt.dir)
			assert.Equal(t, tt.expected, identifiers(rows))
		})
	}
}

func TestAvailableSortKeys(t *testing.T) {
	assert.Equal(t, []types.SortKey{types.SortByIdentifier},
		AvailableSortKeys(types.ColumnRoles{Identifier: "M"}))
	assert.Equal(t, []types.SortKey{types.SortByIdentifier, types.SortByTotalQuantity},
		AvailableSortKeys(types.ColumnRoles{Identifier: "M", Quantity: "Q"}))
	assert.Equal(t,
		[]types.SortKey{types.SortByIdentifier, types.SortByTotalQuantity, types.SortByTotalAmount, types.SortByUnitPrice},
		AvailableSortKeys(scenarioRoles))
}

func TestAggregate_UnavailableSortKey(t *testing.T) {
	roles := types.ColumnRoles{Identifier: "MODEL", Quantity: "QTY"}

	_, err := Aggregate(scenarioTable(), roles, types.AggregateOptions{SortKey: types.SortByTotalAmount})
	require.ErrorIs(t, err, ErrSortKeyUnavailable)
}

func TestAggregate_WhereExpression(t *testing.T) {
	rows, err := Aggregate(scenarioTable(), scenarioRoles, types.AggregateOptions{
		Where: `amount > 100 && identifier startsWith "M"`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"M1"}, identifiers(rows))
}

func TestAggregate_InvalidWhereExpression(t *testing.T) {
	_, err := Aggregate(scenarioTable(), scenarioRoles, types.AggregateOptions{Where: "amount >"})
	require.ErrorIs(t, err, ErrInvalidExpression)

	_, err = Aggregate(scenarioTable(), scenarioRoles, types.AggregateOptions{Where: "amount + 1"})
	require.ErrorIs(t, err, ErrInvalidExpression)
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]types.AggregatedRow{
		{Identifier: "A", TotalQuantity: 0.1, TotalAmount: 1.1},
		{Identifier: "B", TotalQuantity: 0.2, TotalAmount: 2.2},
	})
	assert.Equal(t, 2, summary.Groups)
	assert.Equal(t, 0.3, summary.TotalQuantity)
	assert.Equal(t, 3.3, summary.TotalAmount)
}

func TestSummarize_TotalsBeyondFloatRange(t *testing.T) {
	raw := &types.Table{
		Columns: []string{"MODEL", "QTY"},
		Rows: []types.Row{
			{"MODEL": types.TextCell("M1"), "QTY": types.TextCell("1e308")},
			{"MODEL": types.TextCell("M1"), "QTY": types.TextCell("1e308")},
			{"MODEL": types.TextCell("M2"), "QTY": types.TextCell("2")},
		},
	}
	roles := types.ColumnRoles{Identifier: "MODEL", Quantity: "QTY"}

	rows, err := Aggregate(normalizer.Normalize(raw, roles), roles, types.AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, math.IsInf(rows[0].TotalQuantity, 1))

	var summary types.Summary
	require.NotPanics(t, func() { summary = Summarize(rows) })
	assert.Equal(t, 2, summary.Groups)
	assert.True(t, math.IsInf(summary.TotalQuantity, 1))
	assert.Equal(t, 0.0, summary.TotalAmount)
}

func TestUnitPrice_InfiniteTotals(t *testing.T) {
	assert.NotPanics(t, func() { UnitPrice(math.Inf(1), 2) })
	assert.True(t, math.IsInf(UnitPrice(math.Inf(1), 2), 1))
	assert.Equal(t, 0.0, UnitPrice(100, math.Inf(1)))
	assert.Equal(t, 0.0, UnitPrice(math.Inf(1), 0))
}

func TestAggregate_IdentifierSharedWithQuantity(t *testing.T) {
	raw := &types.Table{
		Columns: []string{"ITEM QTY"},
		Rows: []types.Row{
			{"ITEM QTY": types.EmptyCell()},
			{"ITEM QTY": types.TextCell("5")},
			{"ITEM QTY": types.EmptyCell()},
		},
	}
	roles := types.ColumnRoles{Identifier: "ITEM QTY", Quantity: "ITEM QTY"}

	rows, err := Aggregate(normalizer.Normalize(raw, roles), roles, types.AggregateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, identifiers(rows))
	assert.Equal(t, 10.0, rows[0].TotalQuantity)
}
