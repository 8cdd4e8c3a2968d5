// =============================================================================
// Model Merger - XLSX Writer
// =============================================================================
//
// This module writes the aggregated rows to a single-sheet workbook.
//
// SHEET LAYOUT:
//
//   | MODEL  | Total_QTY | Price | Total_Amount | Unit_Price | DESCRIPTION |
//   |--------|-----------|-------|--------------|------------|-------------|
//   | AB-100 | 8         | 20.00 | 160.00       | 20.00      | Shirt       |
//   | AB-200 | 2         | 20.00 | 40.00        | 20.00      | Trousers    |
//
//   - Row 1 is the header, bold on a light fill, frozen while scrolling
//   - Money columns use the "#,##0.00" number format
//   - Columns of absent roles are not written at all
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"io"

	"github.com/ginjaninja78/model-merger/internal/report"
	"github.com/ginjaninja78/model-merger/internal/types"
	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the name of the result sheet.
const DefaultSheetName = "Merged Data"

// =============================================================================
// WRITE OPTIONS
// =============================================================================

// Options controls the workbook appearance.
type Options struct {
	// SheetName is the name of the only sheet.
	// Default: "Merged Data"
	SheetName string

	// HeaderFill is the header background as an RGB hex string.
	// Default: "D9E1F2"
	HeaderFill string
}

func (o Options) withDefaults() Options {
	if o.SheetName == "" {
		o.SheetName = DefaultSheetName
	}
	if o.HeaderFill == "" {
		o.HeaderFill = "D9E1F2"
	}
	return o
}

// excelize built-in number format 4 is "#,##0.00".
const moneyNumFmt = 4

// =============================================================================
// WRITER
// =============================================================================

// Write renders rows with the given layout and streams the workbook to w.
func Write(w io.Writer, layout report.Layout, rows []types.AggregatedRow, opts Options) error {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer f.Close()

	sheet := opts.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{opts.HeaderFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}

	// Header row
	headers := layout.Headers()
	if err := setRow(f, sheet, 1, toCells(headers)); err != nil {
		return err
	}
	if len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	// Data rows
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, layout.Values(row)); err != nil {
			return err
		}
	}

	// Column formats and widths
	for i, col := range layout.Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if col.Kind == report.KindMoney && len(rows) > 0 {
			if err := f.SetCellStyle(sheet, name+"2", fmt.Sprintf("%s%d", name, len(rows)+1), moneyStyle); err != nil {
				return fmt.Errorf("failed to style column %s: %w", col.Header, err)
			}
		}
		if err := f.SetColWidth(sheet, name, name, columnWidth(col, rows)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col.Header, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// columnWidth sizes a column to its longest rendered value, within bounds.
func columnWidth(col report.Column, rows []types.AggregatedRow) float64 {
	const minWidth, maxWidth = 10.0, 60.0

	longest := len([]rune(col.Header))
	for _, row := range rows {
		var n int
		switch v := col.Value(row).(type) {
		case string:
			n = len([]rune(v))
		case float64:
			n = len(fmt.Sprintf("%.2f", v)) + 2
		}
		if n > longest {
			longest = n
		}
	}

	width := float64(longest) + 2
	if width < minWidth {
		return minWidth
	}
	if width > maxWidth {
		return maxWidth
	}
	return width
}
