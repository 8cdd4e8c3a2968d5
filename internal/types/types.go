// =============================================================================
// Model Merger - Shared Types
// =============================================================================
//
// This package contains the types shared by every stage of the merge pipeline.
// Keeping them here avoids import cycles between:
//   - xlsxparser  (produces a Table)
//   - classifier  (produces ColumnRoles)
//   - normalizer  (Table -> Table)
//   - aggregator  (Table -> []AggregatedRow)
//   - xlsxwriter / sqlitewriter (consume []AggregatedRow)
//
// =============================================================================

package types

import (
	"strconv"
	"strings"
)

// =============================================================================
// CELL
// =============================================================================

// CellKind tells which field of a Cell carries the value.
type CellKind int

const (
	// CellEmpty marks a blank or missing cell.
	CellEmpty CellKind = iota

	// CellText marks a cell holding a string.
	CellText

	// CellNumber marks a cell holding a number.
	CellNumber
)

// Cell is a single value in a Table.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// EmptyCell returns a missing-value marker.
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// TextCell returns a cell holding s.
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a cell holding f.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// IsEmpty reports whether the cell is a missing-value marker.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String returns the string representation of the cell.
// Numbers use the shortest representation that round-trips ("12.5", "100").
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Value returns the cell as a plain Go value suitable for spreadsheet or
// database writers: nil, string or float64.
func (c Cell) Value() interface{} {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return c.Number
	default:
		return nil
	}
}

// =============================================================================
// TABLE
// =============================================================================

// Row maps a column name to its cell.
type Row map[string]Cell

// Table is an ordered sequence of rows sharing one column set.
type Table struct {
	// Columns holds the column names in their original left-to-right order.
	Columns []string

	// Rows holds the data rows in their original order.
	// Every row has an entry for every column.
	Rows []Row

	// SheetName is the name of the sheet the table was read from.
	SheetName string
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the table. Cells are values, so copying each
// row map is enough.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns:   append([]string(nil), t.Columns...),
		Rows:      make([]Row, len(t.Rows)),
		SheetName: t.SheetName,
	}
	for i, row := range t.Rows {
		copied := make(Row, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out.Rows[i] = copied
	}
	return out
}

// Head returns a table holding at most n leading rows. The rows are shared
// with t, not copied.
func (t *Table) Head(n int) *Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n], SheetName: t.SheetName}
}

// Select returns a table restricted to the given columns, in the given order.
// Unknown and empty names are skipped.
func (t *Table) Select(columns ...string) *Table {
	var keep []string
	seen := make(map[string]bool)
	for _, col := range columns {
		if col == "" || seen[col] || !t.HasColumn(col) {
			continue
		}
		seen[col] = true
		keep = append(keep, col)
	}
	out := &Table{Columns: keep, Rows: make([]Row, len(t.Rows)), SheetName: t.SheetName}
	for i, row := range t.Rows {
		r := make(Row, len(keep))
		for _, col := range keep {
			r[col] = row[col]
		}
		out.Rows[i] = r
	}
	return out
}

// =============================================================================
// COLUMN ROLES
// =============================================================================

// Role names one of the four semantic column roles.
type Role string

const (
	RoleIdentifier Role = "identifier"
	RoleQuantity   Role = "quantity"
	RolePrice      Role = "price"
	RoleAmount     Role = "amount"
)

// AllRoles lists the roles in assignment order.
var AllRoles = []Role{RoleIdentifier, RoleQuantity, RolePrice, RoleAmount}

// ColumnRoles holds the column assigned to each role.
// An empty string means the role is absent.
type ColumnRoles struct {
	Identifier string `yaml:"identifier"`
	Quantity   string `yaml:"quantity"`
	Price      string `yaml:"price"`
	Amount     string `yaml:"amount"`
}

// Get returns the column assigned to role.
func (r ColumnRoles) Get(role Role) string {
	switch role {
	case RoleIdentifier:
		return r.Identifier
	case RoleQuantity:
		return r.Quantity
	case RolePrice:
		return r.Price
	case RoleAmount:
		return r.Amount
	}
	return ""
}

// Set assigns column to role.
func (r *ColumnRoles) Set(role Role, column string) {
	switch role {
	case RoleIdentifier:
		r.Identifier = column
	case RoleQuantity:
		r.Quantity = column
	case RolePrice:
		r.Price = column
	case RoleAmount:
		r.Amount = column
	}
}

func (r ColumnRoles) HasQuantity() bool { return r.Quantity != "" }
func (r ColumnRoles) HasPrice() bool    { return r.Price != "" }
func (r ColumnRoles) HasAmount() bool   { return r.Amount != "" }

// NumericColumns returns the distinct columns assigned to quantity, price and
// amount, in that order. A column shared by two roles appears once.
func (r ColumnRoles) NumericColumns() []string {
	var cols []string
	seen := make(map[string]bool)
	for _, col := range []string{r.Quantity, r.Price, r.Amount} {
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		cols = append(cols, col)
	}
	return cols
}

// IsRoleColumn reports whether name is assigned to any role.
func (r ColumnRoles) IsRoleColumn(name string) bool {
	return name != "" && (name == r.Identifier || name == r.Quantity || name == r.Price || name == r.Amount)
}

// =============================================================================
// AGGREGATED OUTPUT
// =============================================================================

// AggregatedRow is one output row per distinct identifier.
type AggregatedRow struct {
	// Identifier is the grouping key. Never empty.
	Identifier string

	// TotalQuantity is the sum of the quantity column (0 if the role is absent).
	TotalQuantity float64

	// Price is taken from the first contributing row (0 if the role is absent).
	Price float64

	// TotalAmount is the sum of the amount column (0 if the role is absent).
	TotalAmount float64

	// UnitPrice is TotalAmount / TotalQuantity rounded to 2 decimals,
	// or 0 when TotalQuantity is 0.
	UnitPrice float64

	// Extra holds the first-wins value of every pass-through column.
	Extra Row
}

// Summary carries the metrics shown next to the result table.
type Summary struct {
	Groups        int
	TotalQuantity float64
	TotalAmount   float64
}

// =============================================================================
// AGGREGATION OPTIONS
// =============================================================================

// SortKey selects the column the result is ordered by.
type SortKey string

const (
	SortByIdentifier    SortKey = "identifier"
	SortByTotalQuantity SortKey = "totalQuantity"
	SortByTotalAmount   SortKey = "totalAmount"
	SortByUnitPrice     SortKey = "unitPrice"
)

// ParseSortKey accepts the canonical key names case-insensitively, plus a few
// spellings users type on the command line ("qty", "amount", "unit_price").
func ParseSortKey(s string) (SortKey, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "", "identifier", "id", "model":
		return SortByIdentifier, true
	case "totalquantity", "total_quantity", "quantity", "qty":
		return SortByTotalQuantity, true
	case "totalamount", "total_amount", "amount":
		return SortByTotalAmount, true
	case "unitprice", "unit_price":
		return SortByUnitPrice, true
	}
	return "", false
}

// SortDirection orders the result. The empty value means "the key's default".
type SortDirection string

const (
	SortDefault    SortDirection = ""
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// AggregateOptions is the immutable filter and sort record passed to the
// aggregator at call time.
type AggregateOptions struct {
	// MinQuantity drops groups whose total quantity is below it.
	// Only applied when a quantity role is present.
	MinQuantity float64

	// IdentifierContains keeps groups whose identifier contains it,
	// case-insensitively. Empty keeps everything.
	IdentifierContains string

	// Where is an optional boolean expression over identifier, quantity,
	// price, amount and unit_price.
	Where string

	// SortKey defaults to SortByIdentifier.
	SortKey SortKey

	// Direction defaults to ascending for identifier, descending otherwise.
	Direction SortDirection
}
