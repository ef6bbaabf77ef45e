// =============================================================================
// PO Budget Report - Compare Command
// =============================================================================
//
// This file defines the 'compare' command, which compares the current data
// file against a previous version.
//
// COMMAND USAGE:
//   pobudget compare [--file cur] [--previous prev | --simulate] [flags]
//
// FLAGS:
//   --previous      : Previous version of the report
//   --simulate      : Derive the previous version by perturbing the current
//                     one. This is already the behavior without --previous;
//                     the flag only states it explicitly and rejects
//                     --previous
//   --by            : Join key of the detail table (default: po_number)
//   --metric        : Compared amount (default: po_value)
//   --top           : Number of detail rows (default: top_n from the config)
//   --changed-only  : Hide detail rows whose amount did not move
//   --sort          : Detail order, "change" (amount) or "percent"
//
// OUTPUT:
//   1. Overall total, current against previous
//   2. Change by brand and by budget executor
//   3. Detail by the join key, largest increase first; for POs the line
//      description and budget executor are carried along
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/po-budget-report/internal/engine"
	"github.com/ginjaninja78/po-budget-report/internal/export"
	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/spf13/cobra"
)

// compareOptions holds the flags of the compare command.
type compareOptions struct {
	file        string
	previous    string
	simulate    bool
	by          string
	metric      string
	top         int
	changedOnly bool
	sortBy      string
}

// compareBreakdowns are the categories compared ahead of the detail table.
var compareBreakdowns = []model.Field{
	model.FieldBrand,
	model.FieldBudgetExecutor,
}

// poCarry are the attributes shown next to each PO in the detail table.
var poCarry = []model.Field{
	model.FieldDescription,
	model.FieldBudgetExecutor,
}

func newCompareCmd(a *app) *cobra.Command {
	var opts compareOptions

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the data file with a previous version",
		Long: `The compare command joins the current and previous versions of the report
on a key, sums the metric on both sides and lists the change per key.
Keys present on one side only are reported as added or removed. The change
percentage is "n/a" when the previous amount is zero.

Without --previous the previous version is simulated from the current data
using the simulation settings of the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Current data file (default: data_file from the config)")
	cmd.Flags().StringVarP(&opts.previous, "previous", "p", "", "Previous version of the data file")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "Simulate the previous version (the default without --previous; cannot be combined with it)")
	cmd.Flags().StringVar(&opts.by, "by", string(model.FieldPONumber), "Join key of the detail table (po_number, brand, executor, io, ...)")
	cmd.Flags().StringVar(&opts.metric, "metric", string(model.FieldPOValue), "Amount to compare (po_value, gr_value, invoice_value, commitment_value, actual_cost)")
	cmd.Flags().IntVar(&opts.top, "top", 0, "Number of detail rows (default: top_n from the config)")
	cmd.Flags().BoolVar(&opts.changedOnly, "changed-only", false, "Only list detail rows whose amount changed")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "change", "Detail order: change or percent")

	cmd.MarkFlagsMutuallyExclusive("previous", "simulate")
	return cmd
}

// runCompare loads both versions and prints the comparison tables.
func runCompare(cmd *cobra.Command, a *app, opts compareOptions) error {
	start := time.Now()
	ctx := cmd.Context()

	sortBy := strings.ToLower(strings.TrimSpace(opts.sortBy))
	if sortBy != "change" && sortBy != "percent" {
		return fmt.Errorf("invalid --sort %q (expected change or percent)", opts.sortBy)
	}
	metric := parseFieldFlag(opts.metric)
	if !metric.IsMonetary() {
		return fmt.Errorf("%w: %q", engine.ErrNotMonetary, opts.metric)
	}
	by := parseFieldFlag(opts.by)

	current, err := a.locateAndLoad(ctx, opts.file)
	if err != nil {
		return err
	}

	var previous *model.Dataset
	if opts.previous != "" {
		previous, err = a.locateAndLoad(ctx, opts.previous)
	} else {
		sim := a.cfg.SimulationConfig()
		previous, err = engine.Simulate(current, sim)
		a.logger.Info("previous version simulated", "seed", sim.Seed, "fraction", sim.Fraction)
	}
	if err != nil {
		return err
	}

	total, err := engine.CompareTotals(current, previous, metric)
	if err != nil {
		return err
	}
	scope := model.Field("Scope")
	tables := []export.Table{
		export.ComparisonTable(fmt.Sprintf("%s: %s vs %s", metric.Label(), current.Tag(), previous.Tag()), scope, nil, []engine.ComparisonRow{total}),
	}

	for _, field := range compareBreakdowns {
		if field == by || !hasAll(field, current, previous) {
			continue
		}
		rows, err := engine.Compare(current, previous, field, engine.WithMetric(metric))
		if err != nil {
			return err
		}
		tables = append(tables, export.ComparisonTable("Change by "+field.Label(), field, nil, rows))
	}

	var carry []model.Field
	if by == model.FieldPONumber {
		for _, f := range poCarry {
			if current.Has(f) || previous.Has(f) {
				carry = append(carry, f)
			}
		}
	}
	rows, err := engine.Compare(current, previous, by, engine.WithMetric(metric), engine.WithCarry(carry...))
	if err != nil {
		return err
	}
	if opts.changedOnly {
		rows = engine.Changed(rows)
	}
	if sortBy == "percent" {
		rows = engine.SortByRankingPercent(rows)
	}
	detail := engine.TopN(rows, a.topN(opts.top))
	title := fmt.Sprintf("Top %d Changes by %s", len(detail), by.Label())
	tables = append(tables, export.ComparisonTable(title, by, carry, detail))

	if err := a.printTables(cmd.OutOrStdout(), tables...); err != nil {
		return err
	}

	a.logger.Info("comparison complete",
		log.FieldOperation, log.OpCompare,
		log.FieldDataset, current.Tag(),
		"previous", previous.Tag(),
		log.FieldGroups, len(rows),
		log.FieldDuration, time.Since(start).Milliseconds(),
	)
	return nil
}
