// Package report describes the column layout of the merged result. The xlsx
// writer, the sqlite writer and the terminal preview all render the same
// layout.
package report

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/model-merger/internal/types"
)

// Labels are the header texts of the computed columns.
type Labels struct {
	Identifier string `yaml:"identifier"`
	Quantity   string `yaml:"quantity"`
	Price      string `yaml:"price"`
	Amount     string `yaml:"amount"`
	UnitPrice  string `yaml:"unit_price"`
}

// DefaultLabels returns the standard export headers.
func DefaultLabels() Labels {
	return Labels{
		Identifier: "MODEL",
		Quantity:   "Total_QTY",
		Price:      "Price",
		Amount:     "Total_Amount",
		UnitPrice:  "Unit_Price",
	}
}

// withDefaults fills blank labels.
func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	if l.Identifier == "" {
		l.Identifier = d.Identifier
	}
	if l.Quantity == "" {
		l.Quantity = d.Quantity
	}
	if l.Price == "" {
		l.Price = d.Price
	}
	if l.Amount == "" {
		l.Amount = d.Amount
	}
	if l.UnitPrice == "" {
		l.UnitPrice = d.UnitPrice
	}
	return l
}

// Kind tells writers how to store and format a column.
type Kind int

const (
	// KindText is a string column.
	KindText Kind = iota
	// KindNumber is a plain numeric column (quantities).
	KindNumber
	// KindMoney is a numeric column shown with two decimals.
	KindMoney
	// KindPassThrough carries the first-wins cell of an input column.
	KindPassThrough
)

// Column is one output column.
type Column struct {
	Header string
	Kind   Kind
	value  func(types.AggregatedRow) interface{}
}

// Value extracts the column's value from row: string, float64 or nil.
func (c Column) Value(row types.AggregatedRow) interface{} {
	return c.value(row)
}

// Layout is the ordered column set of the export.
type Layout struct {
	Columns []Column
}

// Headers returns the header row.
func (l Layout) Headers() []string {
	out := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		out[i] = c.Header
	}
	return out
}

// Values returns the cells of row in column order.
func (l Layout) Values(row types.AggregatedRow) []interface{} {
	out := make([]interface{}, len(l.Columns))
	for i, c := range l.Columns {
		out[i] = c.Value(row)
	}
	return out
}

// NewLayout builds the export columns: identifier, total quantity, price and
// total amount when their roles are present, unit price, then every
// pass-through column of tableColumns in table order. Headers are compared
// without regard to case, since SQLite column names are case-insensitive. A
// pass-through column whose name is already taken is exported as "name.1",
// "name.2" and so on.
func NewLayout(roles types.ColumnRoles, tableColumns []string, labels Labels) Layout {
	labels = labels.withDefaults()

	cols := []Column{{
		Header: labels.Identifier,
		Kind:   KindText,
		value:  func(r types.AggregatedRow) interface{} { return r.Identifier },
	}}
	if roles.HasQuantity() {
		cols = append(cols, Column{
			Header: labels.Quantity,
			Kind:   KindNumber,
			value:  func(r types.AggregatedRow) interface{} { return r.TotalQuantity },
		})
	}
	if roles.HasPrice() {
		cols = append(cols, Column{
			Header: labels.Price,
			Kind:   KindMoney,
			value:  func(r types.AggregatedRow) interface{} { return r.Price },
		})
	}
	if roles.HasAmount() {
		cols = append(cols, Column{
			Header: labels.Amount,
			Kind:   KindMoney,
			value:  func(r types.AggregatedRow) interface{} { return r.TotalAmount },
		})
	}
	cols = append(cols, Column{
		Header: labels.UnitPrice,
		Kind:   KindMoney,
		value:  func(r types.AggregatedRow) interface{} { return r.UnitPrice },
	})

	taken := make(map[string]bool, len(cols))
	for _, c := range cols {
		taken[strings.ToLower(c.Header)] = true
	}
	for _, name := range tableColumns {
		if roles.IsRoleColumn(name) {
			continue
		}
		name := name
		header := uniqueHeader(name, taken)
		cols = append(cols, Column{
			Header: header,
			Kind:   KindPassThrough,
			value:  func(r types.AggregatedRow) interface{} { return r.Extra[name].Value() },
		})
	}

	return Layout{Columns: cols}
}

// uniqueHeader returns name, or name with the first free ".N" suffix, and
// marks the result as taken.
func uniqueHeader(name string, taken map[string]bool) string {
	header := name
	for n := 1; taken[strings.ToLower(header)]; n++ {
		header = fmt.Sprintf("%s.%d", name, n)
	}
	taken[strings.ToLower(header)] = true
	return header
}
