// =============================================================================
// PO Budget Report - Shared Command Helpers
// =============================================================================
//
// Helpers used by several commands: locating and loading the data file,
// parsing field flags and printing report tables.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/po-budget-report/internal/export"
	"github.com/ginjaninja78/po-budget-report/internal/loader"
	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/ginjaninja78/po-budget-report/pkg/utils"
)

// fieldShorthands are the short names accepted by --by and similar flags
// in addition to everything model.ParseField understands.
var fieldShorthands = map[string]model.Field{
	"po":       model.FieldPONumber,
	"executor": model.FieldBudgetExecutor,
	"io":       model.FieldInternalOrder,
	"gl":       model.FieldGLAccount,
}

// parseFieldFlag resolves a field name given on the command line.
func parseFieldFlag(s string) model.Field {
	if f, ok := fieldShorthands[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f
	}
	return model.ParseField(s)
}

// resolveDataFile finds the data file to load.
//
// PARAMETERS:
//   - name: The --file value. Empty means the configured data_file.
//
// RETURNS:
//   - The path of the file.
//   - An error listing the searched directories and any data files found
//     there when the file does not exist.
func (a *app) resolveDataFile(name string) (string, error) {
	if name == "" {
		name = a.cfg.DataFile
	}
	path, err := utils.LocateFile(name, a.cfg.SearchDirs)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return "", err
	}

	var candidates []string
	for _, dir := range utils.ExpandSearchDirs(a.cfg.SearchDirs) {
		files, derr := utils.DiscoverDataFiles(dir)
		if derr != nil {
			continue
		}
		candidates = append(candidates, files...)
	}
	if len(candidates) > 0 {
		return "", fmt.Errorf("%w; data files found: %s (use --file)", err, strings.Join(candidates, ", "))
	}
	return "", err
}

// loadDataset loads a data file with the configured sheet, CSV settings and
// column aliases.
func (a *app) loadDataset(ctx context.Context, path string) (*model.Dataset, *loader.Report, error) {
	if err := loader.ValidateFile(path); err != nil {
		return nil, nil, err
	}
	columns, err := a.cfg.ColumnMap()
	if err != nil {
		return nil, nil, err
	}

	sheet := ""
	if format, _ := loader.DetectFormat(path); format == loader.FormatXLSX {
		sheet = a.cfg.SheetName
	}

	ds, report, err := loader.LoadFile(ctx, path, loader.Options{
		Sheet:   sheet,
		CSV:     a.cfg.CSVParserSettings(),
		Columns: columns,
		Logger:  a.logger,
	})
	if err != nil {
		a.logger.Error("failed to load data file", log.NewFields().
			WithOperation(log.OpLoad).
			WithSource(path, sheet).
			WithError(err).
			ToSlice()...)
		return nil, report, err
	}
	return ds, report, nil
}

// locateAndLoad resolves and loads the data file named by --file.
func (a *app) locateAndLoad(ctx context.Context, name string) (*model.Dataset, error) {
	path, err := a.resolveDataFile(name)
	if err != nil {
		return nil, err
	}
	ds, _, err := a.loadDataset(ctx, path)
	return ds, err
}

// printTables writes tables as aligned text using the configured currency.
func (a *app) printTables(w io.Writer, tables ...export.Table) error {
	for _, t := range tables {
		if err := export.WriteText(w, t, a.cfg.Currency); err != nil {
			return fmt.Errorf("failed to print %q: %w", t.Title, err)
		}
	}
	return nil
}

// topN returns n, or the configured default when n is not positive.
func (a *app) topN(n int) int {
	if n > 0 {
		return n
	}
	return a.cfg.TopN
}

// hasAll reports whether every dataset has field f.
func hasAll(f model.Field, datasets ...*model.Dataset) bool {
	for _, ds := range datasets {
		if !ds.Has(f) {
			return false
		}
	}
	return true
}
