// =============================================================================
// PO Budget Report - Export Command
// =============================================================================
//
// This file defines the 'export' command, which writes the PO lines
// matching a filter to a CSV or XLSX file.
//
// COMMAND USAGE:
//   pobudget export [--status s ...] [--brand b ...] [--touchpoint t ...]
//                   [--format csv|xlsx] [--output path] [--dry-run]
//
// FILTERS:
//   Each filter flag accepts a list of values (repeat the flag or separate
//   values with commas). A line is exported when it matches every given
//   filter. An explicitly empty filter (--status "") matches nothing.
//
// OUTPUT:
//   The file is written to output_dir, named by output_name_format, unless
//   --output is given. CSV files start with a UTF-8 byte order mark so that
//   spreadsheet programs detect the encoding.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/po-budget-report/internal/engine"
	"github.com/ginjaninja78/po-budget-report/internal/export"
	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/ginjaninja78/po-budget-report/pkg/utils"
	"github.com/spf13/cobra"
)

// exportOptions holds the flags of the export command.
type exportOptions struct {
	file       string
	status     []string
	brand      []string
	touchpoint []string
	format     string
	output     string
	noBOM      bool
	dryRun     bool
}

// exportFilters maps filter flags to the fields they restrict.
var exportFilters = []struct {
	flag  string
	field model.Field
}{
	{"status", model.FieldStatus},
	{"brand", model.FieldBrand},
	{"touchpoint", model.FieldTouchpoint},
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export filtered PO lines to CSV or XLSX",
		Long: `The export command filters the PO lines of the data file by status, brand
and touchpoint and writes every column of the matching lines to a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Data file to export from (default: data_file from the config)")
	cmd.Flags().StringSliceVar(&opts.status, "status", nil, "Keep lines with these PO line statuses")
	cmd.Flags().StringSliceVar(&opts.brand, "brand", nil, "Keep lines of these brands")
	cmd.Flags().StringSliceVar(&opts.touchpoint, "touchpoint", nil, "Keep lines of these touchpoints")
	cmd.Flags().StringVar(&opts.format, "format", string(export.FormatCSV), "Output format: csv or xlsx")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: generated in output_dir)")
	cmd.Flags().BoolVar(&opts.noBOM, "no-bom", false, "Omit the UTF-8 byte order mark from CSV output")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would be exported without writing a file")
	return cmd
}

// runExport filters the data file and writes the result.
func runExport(cmd *cobra.Command, a *app, opts exportOptions) error {
	start := time.Now()
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	ds, err := a.locateAndLoad(cmd.Context(), opts.file)
	if err != nil {
		return err
	}

	values := map[string][]string{
		"status":     opts.status,
		"brand":      opts.brand,
		"touchpoint": opts.touchpoint,
	}
	preds := engine.Predicates{}
	for _, f := range exportFilters {
		if cmd.Flags().Changed(f.flag) {
			preds[f.field] = values[f.flag]
		}
	}

	selected, err := engine.Filter(ds, preds)
	if err != nil {
		return err
	}

	path := opts.output
	if path == "" {
		name := utils.GenerateOutputFileName(a.cfg.OutputNameFormat, map[string]string{
			"report": "po_details",
			"ext":    string(format),
		})
		path = filepath.Join(a.cfg.OutputDir, name)
	}

	out := cmd.OutOrStdout()
	if opts.dryRun {
		fmt.Fprintf(out, "Dry run: %d of %d PO lines would be written to %s\n", selected.Len(), ds.Len(), path)
		return nil
	}

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	table := export.RecordsTable("PO Details", selected)
	err = utils.WriteAtomic(path, func(w io.Writer) error {
		if format == export.FormatXLSX {
			return export.WriteXLSX(w, table)
		}
		return export.WriteCSV(w, table, export.CSVOptions{BOM: !opts.noBOM})
	})
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", path, err)
	}

	fmt.Fprintf(out, "Exported %d of %d PO lines to %s\n", selected.Len(), ds.Len(), path)
	a.logger.Info("export written",
		log.FieldOperation, log.OpExport,
		log.FieldDataset, ds.Tag(),
		log.FieldOutput, path,
		log.FieldRecords, selected.Len(),
		log.FieldFormat, string(format),
		log.FieldDuration, time.Since(start).Milliseconds(),
	)
	return nil
}
