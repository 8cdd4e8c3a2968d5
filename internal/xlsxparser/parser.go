// =============================================================================
// Model Merger - XLSX Input Parser
// =============================================================================
//
// This module decodes the uploaded workbook into a Table. Only one sheet is
// read; by default the first one.
//
// EXPECTED LAYOUT:
//
//   | Column A   | Column B    | Column C | Column D | Column E  |
//   |------------|-------------|----------|----------|-----------|
//   | MODEL      | DESCRIPTION | QTY      | PRICE    | AMOUNT    |   <- header row
//   | AB-100     | Shirt       | 5        | 20       | 100       |
//   |            |             | 3        | 20       | 60        |   <- model left blank
//   | AB-200     | Trousers    | 2        | 20       | 40        |
//
// HEADER CLEANING:
//   - Whitespace is trimmed
//   - Empty headers become "Column_N"
//   - Repeated headers get ".1", ".2", ... suffixes so every column name is
//     unique within the table
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/model-merger/internal/types"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// ERRORS
// =============================================================================

// FileReadError reports that the input could not be decoded as a workbook.
type FileReadError struct {
	// Source names the input (file name or "stdin").
	Source string

	// Err is the underlying decoder error.
	Err error
}

// Error implements the error interface.
func (e *FileReadError) Error() string {
	return fmt.Sprintf("file read error (%s): %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileReadError) Unwrap() error {
	return e.Err
}

// =============================================================================
// READ OPTIONS
// =============================================================================

// ReadOptions controls which part of the workbook becomes the table.
type ReadOptions struct {
	// Source is used in error messages only.
	Source string

	// Sheet selects a sheet by name. Empty means the first sheet.
	Sheet string

	// HeaderRow is the 0-based row holding the column names.
	// Rows above it are ignored. Default: 0 (Row 1)
	HeaderRow int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Read decodes the first sheet of the workbook in r.
func Read(r io.Reader, source string) (*types.Table, error) {
	return ReadWithOptions(r, ReadOptions{Source: source})
}

// ReadWithOptions decodes one sheet of the workbook in r.
//
// RETURNS:
//   - The table; cells hold raw text or are empty.
//   - A *FileReadError if the stream is not a readable workbook.
func ReadWithOptions(r io.Reader, opts ReadOptions) (*types.Table, error) {
	fail := func(err error) error {
		return &FileReadError{Source: opts.Source, Err: err}
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fail(err)
	}
	defer f.Close()

	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fail(fmt.Errorf("workbook has no sheets"))
	}

	// Raw values keep numbers unformatted ("1200" rather than "1,200.00").
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fail(fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err))
	}

	if opts.HeaderRow >= len(rows) {
		return nil, fail(fmt.Errorf("sheet %q has no header row", sheetName))
	}

	width := 0
	for _, raw := range rows[opts.HeaderRow:] {
		if len(raw) > width {
			width = len(raw)
		}
	}

	headers := cleanHeaders(rows[opts.HeaderRow], width)
	table := &types.Table{
		Columns:   headers,
		Rows:      make([]types.Row, 0, len(rows)-opts.HeaderRow-1),
		SheetName: sheetName,
	}

	for _, raw := range rows[opts.HeaderRow+1:] {
		if isRowEmpty(raw) {
			continue
		}

		row := make(types.Row, len(headers))
		for i, header := range headers {
			if i < len(raw) && raw[i] != "" {
				row[header] = types.TextCell(raw[i])
			} else {
				row[header] = types.EmptyCell()
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cleanHeaders trims the header cells, names blank ones and makes them
// unique. The result has width entries; GetRows drops trailing blank header
// cells, so data columns past the last header still get a name.
func cleanHeaders(raw []string, width int) []string {
	if width < len(raw) {
		width = len(raw)
	}
	cleaned := make([]string, width)
	used := make(map[string]bool)

	for i := 0; i < width; i++ {
		header := ""
		if i < len(raw) {
			header = strings.TrimSpace(raw[i])
		}
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		name := header
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", header, n)
		}
		used[name] = true

		cleaned[i] = name
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
