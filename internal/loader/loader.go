// =============================================================================
// PO Budget Report - Dataset Loader
// =============================================================================
//
// The loader turns a PO report file into a validated model.Dataset. It is
// the only place where files are read; the engine consumes datasets only.
//
// LOADING PROCESS:
//   1. Read the sheet (XLSX) or table (CSV) as text rows
//   2. Bind the header row to canonical fields through the column map
//   3. Convert rows to records; unparseable money cells become zero and are
//      reported in Report.Coerced
//   4. Admit the records into a Dataset (identifier and duplicate checks,
//      actual cost derivation)
//
// =============================================================================

package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/po-budget-report/internal/csvparser"
	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/ginjaninja78/po-budget-report/internal/xlsxparser"
	"github.com/ginjaninja78/po-budget-report/pkg/utils"
)

// Format is an input file format.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DetectFormat returns the format implied by a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q (expected .xlsx or .csv)", ErrUnsupportedFormat, filepath.Ext(path))
}

// Options configures loading.
type Options struct {
	// Sheet is the XLSX worksheet. Empty means the first sheet.
	Sheet string

	// CSV configures CSV decoding.
	CSV csvparser.Settings

	// Columns maps headers to fields. Defaults to model.DefaultColumnMap().
	Columns *model.ColumnMap

	// Tag labels the dataset. Defaults to the file name.
	Tag string

	// Logger receives load diagnostics. Defaults to a discarding logger.
	Logger *log.Logger
}

// Report describes what happened while loading.
type Report struct {
	File   string
	Sheet  string
	Format Format

	// Rows is the number of non-blank data rows read.
	Rows int

	// Coerced lists money cells that could not be parsed and became zero.
	Coerced []model.Coercion

	// Extras are the pass-through columns.
	Extras []model.Field

	// Missing are canonical fields the source did not supply.
	Missing []model.Field

	// LinesSynthesized is true when the source had no line column.
	LinesSynthesized bool
}

// =============================================================================
// LOADING
// =============================================================================

// LoadFile loads a PO report from an .xlsx or .csv file.
func LoadFile(ctx context.Context, path string, opts Options) (*model.Dataset, *Report, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}
	if opts.Tag == "" {
		opts.Tag = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	ds, report, err := Load(ctx, f, format, opts)
	if report != nil {
		report.File = path
	}
	if err != nil {
		return nil, report, fmt.Errorf("%s: %w", path, err)
	}
	return ds, report, nil
}

// Load reads a PO report in the given format from r.
func Load(ctx context.Context, r io.Reader, format Format, opts Options) (*model.Dataset, *Report, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLoader)
	columns := opts.Columns
	if columns == nil {
		columns = model.DefaultColumnMap()
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report := &Report{Format: format}
	var headers []string
	var rows [][]string
	var rowNums []int

	switch format {
	case FormatXLSX:
		sheet, err := xlsxparser.Read(r, xlsxparser.Options{Sheet: opts.Sheet})
		if err != nil {
			return nil, report, err
		}
		report.Sheet = sheet.Name
		headers, rows, rowNums = sheet.Headers, sheet.Rows, sheet.RowNumbers
	case FormatCSV:
		settings := opts.CSV
		if settings == (csvparser.Settings{}) {
			settings = csvparser.DefaultSettings()
		}
		table, err := csvparser.Parse(r, settings)
		if err != nil {
			return nil, report, err
		}
		headers, rows, rowNums = table.Headers, table.Rows, table.RowNumbers
	default:
		return nil, report, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	binding, err := columns.Bind(headers)
	if err != nil {
		return nil, report, err
	}
	report.Rows = len(rows)
	report.Extras = binding.Extras()
	report.Missing = binding.Missing()
	report.LinesSynthesized = !binding.HasLineColumn()

	records, coerced, err := binding.Records(rows, rowNums)
	report.Coerced = coerced
	if err != nil {
		return nil, report, err
	}
	for _, c := range coerced {
		logger.Debug("money cell coerced to zero", "row", c.Row, "field", string(c.Field), "value", c.Value)
	}

	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	ds, err := model.NewDataset(records,
		model.WithSchema(binding.Schema()),
		model.WithTag(opts.Tag),
		model.WithRowNumbers(rowNums),
	)
	if err != nil {
		return nil, report, err
	}

	logger.Info("dataset loaded",
		log.FieldDataset, opts.Tag,
		log.FieldFormat, string(format),
		log.FieldRows, report.Rows,
		log.FieldCoerced, len(coerced),
		log.FieldExtras, len(report.Extras),
		log.FieldMissing, len(report.Missing),
		log.FieldDuration, time.Since(start).Milliseconds(),
	)
	return ds, report, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateFile checks that path exists and has an accepted extension.
func ValidateFile(path string) error {
	if !utils.HasDataExtension(path) {
		_, err := DetectFormat(path)
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access data file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}
