// =============================================================================
// PO Budget Report - XLSX Sheet Reader
// =============================================================================
//
// This module reads the PO report workbook. It returns the header row and the
// data rows of one sheet as text, leaving column normalization and type
// conversion to the model package.
//
// SHEET STRUCTURE (Expected Layout):
//
//   | Row | Column A  | Column B | Column C | ... | Column M           |
//   |-----|-----------|----------|----------|-----|--------------------|
//   | 1   | PO Number | PO Line  | Brand    | ... | PO Commitment - LC |
//   | 2   | 4500001   | 10       | Acme     | ... | 1200.50            |
//
//   The header row position is configurable (Options.HeaderRow). Rows after
//   the header that are entirely blank are skipped.
//
// CELL VALUES:
//   Cells are read with RawCellValue so amounts come back as plain numbers
//   ("1234.5") rather than with the workbook's display format ("1,234.50").
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when the requested sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrNoHeader is returned when the sheet has no header row.
var ErrNoHeader = errors.New("sheet has no header row")

// =============================================================================
// SHEET STRUCTURE
// =============================================================================

// Sheet is the text content of one worksheet.
type Sheet struct {
	// Name is the worksheet name that was read.
	Name string

	// Headers is the header row, trimmed.
	Headers []string

	// Rows holds the non-blank data rows in sheet order.
	Rows [][]string

	// RowNumbers holds the 1-based sheet row of each entry in Rows, for
	// error messages.
	RowNumbers []int
}

// Options configures how a sheet is read.
type Options struct {
	// Sheet is the worksheet to read. Empty means the first sheet.
	Sheet string

	// HeaderRow is the 0-based row holding the column headers.
	// Default: 0 (Row 1)
	HeaderRow int
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// ReadFile opens an XLSX workbook and reads one sheet.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - opts: Sheet selection and header position.
//
// RETURNS:
//   - The sheet content.
//   - ErrSheetNotFound if opts.Sheet does not exist, or an error if the file
//     cannot be opened.
func ReadFile(path string, opts Options) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readSheet(f, opts)
}

// Read reads one sheet from an XLSX stream.
func Read(r io.Reader, opts Options) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readSheet(f, opts)
}

// SheetNames lists the worksheets of a workbook in order.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func readSheet(f *excelize.File, opts Options) (*Sheet, error) {
	name := opts.Sheet
	sheets := f.GetSheetList()
	if name == "" {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		name = sheets[0]
	} else if !slices.Contains(sheets, name) {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, name, strings.Join(sheets, ", "))
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", name, err)
	}
	if opts.HeaderRow < 0 || opts.HeaderRow >= len(rows) || isRowEmpty(rows[opts.HeaderRow]) {
		return nil, fmt.Errorf("%w: %q", ErrNoHeader, name)
	}

	sheet := &Sheet{Name: name}
	for _, h := range rows[opts.HeaderRow] {
		sheet.Headers = append(sheet.Headers, strings.TrimSpace(h))
	}

	for i := opts.HeaderRow + 1; i < len(rows); i++ {
		// Skip empty rows.
		if isRowEmpty(rows[i]) {
			continue
		}
		sheet.Rows = append(sheet.Rows, rows[i])
		sheet.RowNumbers = append(sheet.RowNumbers, i+1)
	}
	return sheet, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
