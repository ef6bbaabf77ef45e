// =============================================================================
// PO Budget Report - Query Command
// =============================================================================
//
// This file defines the 'query' command, which drills into one internal
// order or one budget executor.
//
// COMMAND USAGE:
//   pobudget query --io IO-1001 [--file f]
//   pobudget query --executor "Li Wei" [--file f] [--top n]
//
// OUTPUT (internal order):
//   totals, PO value by budget executor, PO value by GL account, PO lines
//
// OUTPUT (budget executor):
//   totals, largest internal orders, PO value by status, purchase orders
//   per status
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

// queryOptions holds the flags of the query command.
type queryOptions struct {
	file     string
	io       string
	executor string
	top      int
}

func newQueryCmd(a *app) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Report on one internal order or budget executor",
		Long: `The query command selects the PO lines of one internal order (--io) or one
budget executor (--executor) and reports their totals and breakdowns.
Values must match exactly; surrounding whitespace is ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Data file to query (default: data_file from the config)")
	cmd.Flags().StringVar(&opts.io, "io", "", "Internal order to report on")
	cmd.Flags().StringVar(&opts.executor, "executor", "", "Budget executor to report on")
	cmd.Flags().IntVar(&opts.top, "top", 0, "Number of internal orders listed for an executor (default: top_n from the config)")

	cmd.MarkFlagsOneRequired("io", "executor")
	cmd.MarkFlagsMutuallyExclusive("io", "executor")
	return cmd
}

// runQuery selects the requested category value and prints its reports.
func runQuery(cmd *cobra.Command, a *app, opts queryOptions) error {
	start := time.Now()
	ds, err := a.locateAndLoad(cmd.Context(), opts.file)
	if err != nil {
		return err
	}

	field, value := model.FieldInternalOrder, opts.io
	if opts.executor != "" {
		field, value = model.FieldBudgetExecutor, opts.executor
	}
	preds := engine.Predicates{field: {value}}

	selected, err := engine.Filter(ds, preds)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if selected.Len() == 0 {
		fmt.Fprintf(out, "No PO lines found for %s %q.\n", field.Label(), value)
		return nil
	}

	var tables []export.Table
	title := fmt.Sprintf("%s %s", field.Label(), value)
	tables = append(tables, export.OverviewTable(title, engine.Totals(selected)))

	if field == model.FieldInternalOrder {
		tables, err = a.internalOrderTables(ds, preds, selected, tables)
	} else {
		tables, err = a.executorTables(ds, preds, a.topN(opts.top), tables)
	}
	if err != nil {
		return err
	}

	if err := a.printTables(out, tables...); err != nil {
		return err
	}

	a.logger.Info("query complete",
		log.FieldOperation, log.OpQuery,
		log.FieldDataset, ds.Tag(),
		log.FieldRecords, selected.Len(),
		log.FieldDuration, time.Since(start).Milliseconds(),
	)
	return nil
}

// internalOrderTables adds the breakdowns of one internal order and its
// PO lines.
func (a *app) internalOrderTables(ds *model.Dataset, preds engine.Predicates, selected *model.Dataset, tables []export.Table) ([]export.Table, error) {
	for _, field := range []model.Field{model.FieldBudgetExecutor, model.FieldGLAccount} {
		if !ds.Has(field) {
			continue
		}
		groups, err := a.engine.Summarize(ds, preds, []model.Field{field}, model.FieldPOValue, engine.Sum)
		if err != nil {
			return nil, err
		}
		tables = append(tables, export.GroupsTable("By "+field.Label(), []model.Field{field}, groups, "", false))
	}
	return append(tables, export.RecordsTable("PO Lines", selected)), nil
}

// executorTables adds the largest internal orders and the status
// breakdowns of one budget executor.
func (a *app) executorTables(ds *model.Dataset, preds engine.Predicates, top int, tables []export.Table) ([]export.Table, error) {
	if ds.Has(model.FieldInternalOrder) {
		groups, err := a.engine.Summarize(ds, preds, []model.Field{model.FieldInternalOrder}, model.FieldPOValue, engine.Sum)
		if err != nil {
			return nil, err
		}
		title := fmt.Sprintf("Top %d Internal Orders", top)
		tables = append(tables, export.GroupsTable(title, []model.Field{model.FieldInternalOrder}, engine.TopGroups(groups, top), "", false))
	}

	if ds.Has(model.FieldStatus) {
		status := []model.Field{model.FieldStatus}
		groups, err := a.engine.Summarize(ds, preds, status, model.FieldPOValue, engine.Sum)
		if err != nil {
			return nil, err
		}
		tables = append(tables, export.GroupsTable("By PO Line Status", status, groups, "", false))

		pos, err := a.engine.SummarizeDistinct(ds, preds, status, model.FieldPONumber)
		if err != nil {
			return nil, err
		}
		tables = append(tables, export.GroupsTable("Purchase Orders by PO Line Status", status, pos, "POs", false))
	}
	return tables, nil
}
