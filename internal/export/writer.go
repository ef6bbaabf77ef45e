// =============================================================================
// PO Budget Report - Export Writers
// =============================================================================
//
// Writers render Tables.
//
//   WriteCSV   - one table, optional UTF-8 byte order mark so spreadsheet
//                programs detect the encoding
//   WriteXLSX  - one sheet per table; amounts as numbers formatted "0.00"
//   WriteText  - aligned columns for the terminal, amounts grouped and
//                labelled with the currency
//
// =============================================================================

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/ginjaninja78/po-budget-report/internal/engine"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format is an export file format.
type Format string

// Supported export formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat parses "csv" or "xlsx".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (expected csv or xlsx)", s)
}

// =============================================================================
// CSV
// =============================================================================

// CSVOptions configures WriteCSV.
type CSVOptions struct {
	// BOM prefixes the output with a UTF-8 byte order mark.
	BOM bool

	// Comma is the field delimiter. Default: ','.
	Comma rune
}

// WriteCSV writes the header row and all rows of t.
func WriteCSV(w io.Writer, t Table, opts CSVOptions) error {
	if opts.BOM {
		if _, err := io.WriteString(w, "\ufeff"); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}
	if err := cw.Write(t.Headers()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = FormatCell(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// =============================================================================
// XLSX
// =============================================================================

// invalidSheetChars are not allowed in worksheet names.
var invalidSheetChars = regexp.MustCompile(`[\\/?*\[\]:]`)

// sheetName derives a valid, unique worksheet name from a title.
func sheetName(title string, used map[string]bool) string {
	name := strings.TrimSpace(invalidSheetChars.ReplaceAllString(title, " "))
	if name == "" {
		name = "Report"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	base := name
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		r := []rune(base)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

// WriteXLSX writes each table to its own worksheet.
func WriteXLSX(w io.Writer, tables ...Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyFormat := "0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}

	used := make(map[string]bool)
	for i, t := range tables {
		name := sheetName(t.Title, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, t, headerStyle, moneyStyle); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t Table, headerStyle, moneyStyle int) error {
	headers := make([]any, len(t.Columns))
	for i, h := range t.Headers() {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header of %q: %w", sheet, err)
		}
	}

	for r, row := range t.Rows {
		values := make([]any, len(row))
		for c, v := range row {
			values[c] = xlsxValue(v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", r+2, sheet, err)
		}
	}

	if len(t.Rows) == 0 {
		return nil
	}
	for c, col := range t.Columns {
		if !col.Money {
			continue
		}
		top, _ := excelize.CoordinatesToCellName(c+1, 2)
		bottom, _ := excelize.CoordinatesToCellName(c+1, len(t.Rows)+1)
		if err := f.SetCellStyle(sheet, top, bottom, moneyStyle); err != nil {
			return fmt.Errorf("failed to format amounts of %q: %w", sheet, err)
		}
	}
	return nil
}

// xlsxValue converts a cell for excelize. Amounts become numbers rounded to
// cents; undefined percentages stay textual.
func xlsxValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		f, _ := x.Round(2).Float64()
		return f
	case engine.Percent:
		if p, ok := x.Value(); ok {
			f, _ := p.Round(2).Float64()
			return f
		}
		return x.String()
	}
	return v
}

// =============================================================================
// TERMINAL TEXT
// =============================================================================

// printer groups thousands in terminal output.
var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with thousands separators and two decimals,
// prefixed by the currency label when one is given: "CNY 1,234,567.50".
func FormatMoney(d decimal.Decimal, currency string) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()

	var s string
	if whole.BigInt().IsInt64() {
		s = printer.Sprintf("%d", whole.IntPart())
	} else {
		s = whole.String()
	}
	s = fmt.Sprintf("%s%s.%02d", sign, s, cents)
	if currency != "" {
		s = currency + " " + s
	}
	return s
}

// WriteText renders t as aligned columns. Money column headers get the
// currency label and amounts are grouped by thousands.
func WriteText(w io.Writer, t Table, currency string) error {
	if t.Title != "" {
		if _, err := fmt.Fprintf(w, "%s\n%s\n", t.Title, strings.Repeat("=", len([]rune(t.Title)))); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	headers := t.Headers()
	for i, c := range t.Columns {
		if c.Money && currency != "" {
			headers[i] = fmt.Sprintf("%s (%s)", c.Header, currency)
		}
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t")+"\t")

	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range cells {
			cells[i] = ""
			if i >= len(row) {
				continue
			}
			if d, ok := row[i].(decimal.Decimal); ok {
				cells[i] = FormatMoney(d, "")
			} else {
				cells[i] = FormatCell(row[i])
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	if len(t.Rows) == 0 {
		fmt.Fprintln(tw, "(no rows)\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
