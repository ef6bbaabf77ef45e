// =============================================================================
// PO Budget Report - Summary Command
// =============================================================================
//
// This file defines the 'summary' command: the headline figures of one data
// file plus PO value breakdowns by category.
//
// COMMAND USAGE:
//   pobudget summary [--file f] [--top n]
//
// OUTPUT:
//   1. Overview (lines, POs, internal orders, totals, remaining budget)
//   2. PO value by brand, touchpoint and status (largest first)
//   3. Line counts by line type
//
// Breakdowns for categories the file does not have are skipped.
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/po-budget-report/internal/engine"
	"github.com/ginjaninja78/po-budget-report/internal/export"
	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/spf13/cobra"
)

// summaryOptions holds the flags of the summary command.
type summaryOptions struct {
	file string
	top  int
}

// summaryBreakdowns are the categories summed by PO value.
var summaryBreakdowns = []model.Field{
	model.FieldBrand,
	model.FieldTouchpoint,
	model.FieldStatus,
}

func newSummaryCmd(a *app) *cobra.Command {
	var opts summaryOptions

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals and breakdowns by category",
		Long: `The summary command loads the data file and prints the overall budget
figures followed by PO value breakdowns by brand, touchpoint and status and
line counts by line type.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Data file to report on (default: data_file from the config)")
	cmd.Flags().IntVar(&opts.top, "top", 0, "Number of groups per breakdown (default: top_n from the config)")
	return cmd
}

// runSummary prints the overview and the category breakdowns.
func runSummary(cmd *cobra.Command, a *app, opts summaryOptions) error {
	start := time.Now()
	ds, err := a.locateAndLoad(cmd.Context(), opts.file)
	if err != nil {
		return err
	}
	top := a.topN(opts.top)

	tables := []export.Table{export.OverviewTable("Overview", engine.Totals(ds))}

	for _, field := range summaryBreakdowns {
		if !ds.Has(field) {
			continue
		}
		groups, err := a.engine.Summarize(ds, nil, []model.Field{field}, model.FieldPOValue, engine.Sum)
		if err != nil {
			return fmt.Errorf("failed to summarize by %s: %w", field, err)
		}
		title := fmt.Sprintf("PO Value by %s", field.Label())
		tables = append(tables, export.GroupsTable(title, []model.Field{field}, engine.TopGroups(groups, top), "", false))
	}

	if ds.Has(model.FieldLineType) {
		groups, err := a.engine.Summarize(ds, nil, []model.Field{model.FieldLineType}, model.FieldPONumber, engine.Count)
		if err != nil {
			return fmt.Errorf("failed to count lines by type: %w", err)
		}
		tables = append(tables, export.GroupsTable("Lines by PO Line Type", []model.Field{model.FieldLineType}, groups, "", false))
	}

	if err := a.printTables(cmd.OutOrStdout(), tables...); err != nil {
		return err
	}

	a.logger.Info("summary complete",
		log.FieldOperation, log.OpSummary,
		log.FieldDataset, ds.Tag(),
		log.FieldRecords, ds.Len(),
		log.FieldDuration, time.Since(start).Milliseconds(),
	)
	return nil
}
