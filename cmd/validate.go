// =============================================================================
// PO Budget Report - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It checks the configuration and
// loads the data file without producing a report, then prints what the
// loader found: row count, recognized and missing columns, and money cells
// that could not be parsed.
//
// COMMAND USAGE:
//   pobudget validate [--file f]
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/spf13/cobra"
)

// maxListedCoercions bounds the coerced cells printed individually.
const maxListedCoercions = 10

func newValidateCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the data file",
		Long: `The validate command loads the configuration and the data file and reports
problems without producing a report. A missing identifier or a duplicate
(PO number, PO line) pair fails validation; unparseable amounts are listed
as warnings because they are read as zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, a, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Data file to validate (default: data_file from the config)")
	return cmd
}

// runValidate loads the data file and prints the load report.
func runValidate(cmd *cobra.Command, a *app, file string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration: %s (ok)\n", a.configPath)

	path, err := a.resolveDataFile(file)
	if err != nil {
		return err
	}
	ds, report, err := a.loadDataset(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "Data file:     %s\n", report.File)
	fmt.Fprintf(out, "Format:        %s\n", report.Format)
	if report.Sheet != "" {
		fmt.Fprintf(out, "Sheet:         %s\n", report.Sheet)
	}
	fmt.Fprintf(out, "Rows:          %d\n", report.Rows)
	fmt.Fprintf(out, "Dataset ID:    %s\n", ds.ID())
	if report.LinesSynthesized {
		fmt.Fprintln(out, "PO Line:       not in file, numbered per PO")
	}
	if len(report.Missing) > 0 {
		fmt.Fprintf(out, "Missing:       %s\n", joinLabels(report.Missing))
	}
	if len(report.Extras) > 0 {
		fmt.Fprintf(out, "Extra columns: %s\n", joinLabels(report.Extras))
	}

	if n := len(report.Coerced); n > 0 {
		fmt.Fprintf(out, "Warning: %d amount(s) could not be parsed and were read as 0\n", n)
		for i, c := range report.Coerced {
			if i == maxListedCoercions {
				fmt.Fprintf(out, "  ... and %d more\n", n-maxListedCoercions)
				break
			}
			fmt.Fprintf(out, "  row %d, %s: %q\n", c.Row, c.Field.Label(), c.Value)
		}
	}

	fmt.Fprintln(out, "Validation passed.")
	a.logger.Debug("validation complete",
		log.FieldOperation, log.OpValidate,
		log.FieldFile, path,
		log.FieldRows, report.Rows,
	)
	return nil
}

func joinLabels(fields []model.Field) string {
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.Label()
	}
	return strings.Join(labels, ", ")
}
