package cmd

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/ginjaninja78/model-merger/internal/report"
	"github.com/ginjaninja78/model-merger/internal/types"
)

// printTable writes the first n rows of table as aligned columns. n <= 0
// prints every row.
func printTable(w io.Writer, title string, table *types.Table, n int) {
	if n > 0 {
		table = table.Head(n)
	}

	fmt.Fprintf(w, "\n%s\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(table.Columns, "\t"))
	for _, row := range table.Rows {
		cells := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			cells[i] = row[col].String()
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

// printRoles writes the detected role columns.
func printRoles(w io.Writer, roles types.ColumnRoles) {
	fmt.Fprintln(w, "\nDetected columns:")
	for _, role := range types.AllRoles {
		col := roles.Get(role)
		if col == "" {
			col = "(not found)"
		}
		fmt.Fprintf(w, "  %-11s %s\n", role+":", col)
	}
}

// printResult writes the aggregated rows in layout order.
func printResult(w io.Writer, layout report.Layout, rows []types.AggregatedRow) {
	fmt.Fprintln(w, "\nMerged result:")
	if len(rows) == 0 {
		fmt.Fprintln(w, "  (no rows match the filters)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(layout.Headers(), "\t"))
	for _, row := range rows {
		cells := make([]string, len(layout.Columns))
		for i, col := range layout.Columns {
			cells[i] = formatValue(col.Kind, col.Value(row))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

// printSummary writes the three headline metrics.
func printSummary(w io.Writer, s types.Summary) {
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  Total models: %s\n", humanize.Comma(int64(s.Groups)))
	fmt.Fprintf(w, "  Total QTY:    %s\n", formatQuantity(s.TotalQuantity))
	fmt.Fprintf(w, "  Total Amount: %s\n", formatMoney(s.TotalAmount))
}

func formatValue(kind report.Kind, v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if kind == report.KindMoney {
			return formatMoney(x)
		}
		return formatQuantity(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// formatMoney renders 1234.5 as "1,234.50".
func formatMoney(f float64) string {
	return humanize.FormatFloat("#,###.##", f)
}

// formatQuantity renders whole quantities without decimals.
func formatQuantity(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return humanize.Comma(int64(f))
	}
	return humanize.FormatFloat("#,###.##", f)
}
