// =============================================================================
// PO Budget Report - CSV Parser Module
// =============================================================================
//
// This module reads PO report exports saved as CSV. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Different encodings (UTF-8 with or without BOM, GBK, GB18030,
//     ISO-8859-1, Windows-1252)
//   - Multi-line headers
//   - Quoted fields spanning several lines
//
// The result has the same shape as an XLSX sheet: a header row and text
// data rows with their source line numbers. Type conversion happens later,
// in the model package.
//
// CUSTOMIZATION:
//   Delimiter and encoding come from config.yaml (csv.delimiter,
//   csv.encoding).
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmpty is returned for input without any rows.
var ErrEmpty = errors.New("CSV file is empty")

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls CSV parsing.
type Settings struct {
	// Delimiter is the field separator. Accepts a single character or one of
	// "tab", "pipe", "semicolon", "comma". Default: ",".
	Delimiter string

	// Encoding names the character set of the file. Default: "UTF-8".
	Encoding string

	// HeaderRows is the number of header lines merged into one header row.
	// Default: 1.
	HeaderRows int
}

// DefaultSettings returns comma-separated UTF-8 with one header row.
func DefaultSettings() Settings {
	return Settings{Delimiter: ",", Encoding: "UTF-8", HeaderRows: 1}
}

// Decoder returns the decoder for an encoding name. UTF-8 input has any byte
// order mark removed.
func Decoder(name string) (*encoding.Decoder, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8", "UTF-8-SIG":
		return unicode.UTF8BOM.NewDecoder(), nil
	case "GBK", "CP936":
		return simplifiedchinese.GBK.NewDecoder(), nil
	case "GB18030":
		return simplifiedchinese.GB18030.NewDecoder(), nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252.NewDecoder(), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// Delimiter resolves a delimiter setting to a rune.
func Delimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", ",", "comma":
		return ',', nil
	case "\\t", "\t", "tab":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r[0], nil
}

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// Table is the text content of a CSV file.
type Table struct {
	// Headers is the (merged) header row.
	Headers []string

	// Rows holds the non-blank data rows in file order.
	Rows [][]string

	// RowNumbers holds the 1-based source line where each row starts.
	RowNumbers []int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads CSV data.
//
// PARAMETERS:
//   - r: The CSV input, in the encoding named by settings.
//   - settings: Delimiter, encoding and header layout.
//
// RETURNS:
//   - The parsed table.
//   - ErrEmpty if there are no rows, or an error for malformed input.
//
// PARSING PROCESS:
//  1. Decode the input to UTF-8
//  2. Configure the CSV reader with the delimiter
//  3. Read and merge header rows
//  4. Read data rows, skipping blank ones
func Parse(r io.Reader, settings Settings) (*Table, error) {
	dec, err := Decoder(settings.Encoding)
	if err != nil {
		return nil, err
	}
	comma, err := Delimiter(settings.Delimiter)
	if err != nil {
		return nil, err
	}
	headerRows := settings.HeaderRows
	if headerRows <= 0 {
		headerRows = 1
	}

	reader := csv.NewReader(transform.NewReader(bufio.NewReader(r), dec))
	configureReader(reader, comma)

	var header [][]string
	table := &Table{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(header) < headerRows {
			header = append(header, row)
			continue
		}
		// Skip empty rows.
		if isRowEmpty(row) {
			continue
		}
		line, _ := reader.FieldPos(0)
		table.Rows = append(table.Rows, row)
		table.RowNumbers = append(table.RowNumbers, line)
	}

	if len(header) == 0 {
		return nil, ErrEmpty
	}
	table.Headers = mergeHeaders(header)
	return table, nil
}

// configureReader configures the CSV reader.
func configureReader(reader *csv.Reader, comma rune) {
	reader.Comma = comma

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	reader.TrimLeadingSpace = true
}

// mergeHeaders merges multi-line headers into one row.
//
// MULTI-LINE HEADER HANDLING:
// Non-empty values of each column are joined with a space.
//
// EXAMPLE:
//
//	Row 1:  "PO", "", "PO Value", ""
//	Row 2:  "Number", "Line", "- LC", "Brand"
//	Result: "PO Number", "Line", "PO Value - LC", "Brand"
func mergeHeaders(rows [][]string) []string {
	maxCols := 0
	for _, row := range rows {
		maxCols = max(maxCols, len(row))
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range rows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}
	return headers
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
