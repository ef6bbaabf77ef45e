// =============================================================================
// PO Budget Report - Aggregator
// =============================================================================
//
// Groups a dataset by one or more categorical keys and computes metrics per
// group.
//
// PIPELINE:
//   1. Group    - records are bucketed by their key values, buckets kept in
//                 first-encountered order; blank values go to "(unknown)"
//   2. Aggregate - sum / count / mean of the metric, plus the standard
//                 monetary totals of every group
//   3. Sort     - value descending, stable, so ties keep input order
//
// Top-N is never applied here. Callers slice the finished result with
// TopGroups so totals reported elsewhere always cover the full dataset.
//
// =============================================================================

package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/shopspring/decimal"
)

// AggFunc selects how the metric is reduced within a group.
type AggFunc string

// Supported aggregations.
const (
	Sum   AggFunc = "sum"
	Count AggFunc = "count"
	Mean  AggFunc = "mean"
)

// ErrUnknownAggregation is returned for an unsupported AggFunc.
var ErrUnknownAggregation = errors.New("unknown aggregation")

// ErrNotMonetary is returned when a metric is not an amount field.
var ErrNotMonetary = errors.New("metric is not a monetary field")

// ParseAggFunc parses "sum", "count", "mean" (or "avg").
func ParseAggFunc(s string) (AggFunc, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum", "":
		return Sum, nil
	case "count":
		return Count, nil
	case "mean", "avg", "average":
		return Mean, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAggregation, s)
}

// keySep joins composite group keys internally.
const keySep = "\x1f"

// GroupSummary is one aggregated group.
type GroupSummary struct {
	// Keys holds one value per grouping key, in the order requested.
	Keys []string

	// RecordCount is the number of PO lines in the group.
	RecordCount int

	POValue         decimal.Decimal
	GRValue         decimal.Decimal
	InvoiceValue    decimal.Decimal
	CommitmentValue decimal.Decimal
	ActualCost      decimal.Decimal

	// Value is the requested metric under the requested aggregation. The
	// result is sorted on it.
	Value decimal.Decimal
}

// Label joins the key values for display.
func (g GroupSummary) Label() string {
	if len(g.Keys) == 0 {
		return "Total"
	}
	return strings.Join(g.Keys, " / ")
}

// Total returns the group's sum of a monetary field.
func (g GroupSummary) Total(f model.Field) decimal.Decimal {
	switch f {
	case model.FieldPOValue:
		return g.POValue
	case model.FieldGRValue:
		return g.GRValue
	case model.FieldInvoiceValue:
		return g.InvoiceValue
	case model.FieldCommitmentValue:
		return g.CommitmentValue
	case model.FieldActualCost:
		return g.ActualCost
	}
	return decimal.Zero
}

// =============================================================================
// GROUPING
// =============================================================================

// group is a bucket of record indices sharing one key.
type group struct {
	keys    []string
	indices []int
}

// groupRecords buckets records by keys, preserving first-encountered order.
func groupRecords(ds *model.Dataset, keys []model.Field) []group {
	if ds.Len() == 0 {
		return nil
	}
	if len(keys) == 0 {
		all := make([]int, ds.Len())
		for i := range all {
			all[i] = i
		}
		return []group{{indices: all}}
	}

	index := make(map[string]int)
	var groups []group
	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		vals := make([]string, len(keys))
		for k, f := range keys {
			vals[k] = r.GroupValue(f)
		}
		id := strings.Join(vals, keySep)
		pos, ok := index[id]
		if !ok {
			pos = len(groups)
			index[id] = pos
			groups = append(groups, group{keys: vals})
		}
		groups[pos].indices = append(groups[pos].indices, i)
	}
	return groups
}

// summarize computes the monetary totals of a bucket.
func summarize(ds *model.Dataset, g group) GroupSummary {
	s := GroupSummary{Keys: g.keys, RecordCount: len(g.indices)}
	for _, i := range g.indices {
		r := ds.At(i)
		s.POValue = s.POValue.Add(r.POValue)
		s.GRValue = s.GRValue.Add(r.GRValue)
		s.InvoiceValue = s.InvoiceValue.Add(r.InvoiceValue)
		s.CommitmentValue = s.CommitmentValue.Add(r.CommitmentValue)
		s.ActualCost = s.ActualCost.Add(r.ActualCost)
	}
	return s
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate groups ds by keys and reduces metric with fn. Only key
// combinations present in the data appear. The result is ordered by Value
// descending; ties keep first-encountered order. The metric is ignored for
// Count.
func Aggregate(ds *model.Dataset, keys []model.Field, metric model.Field, fn AggFunc) ([]GroupSummary, error) {
	if err := ds.Require(keys...); err != nil {
		return nil, err
	}
	switch fn {
	case Sum, Mean:
		if !metric.IsMonetary() {
			return nil, fmt.Errorf("%w: %q", ErrNotMonetary, metric)
		}
	case Count:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregation, fn)
	}

	groups := groupRecords(ds, keys)
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		s := summarize(ds, g)
		switch fn {
		case Sum:
			s.Value = s.Total(metric)
		case Count:
			s.Value = decimal.NewFromInt(int64(s.RecordCount))
		case Mean:
			s.Value = s.Total(metric).Div(decimal.NewFromInt(int64(s.RecordCount)))
		}
		out = append(out, s)
	}

	sortByValue(out)
	return out, nil
}

// CountDistinct groups ds by keys and sets Value to the number of distinct
// values of field within each group (e.g. distinct PO numbers, since one PO
// has several lines). Blank values count as one "(unknown)" value.
func CountDistinct(ds *model.Dataset, keys []model.Field, field model.Field) ([]GroupSummary, error) {
	if err := ds.Require(append(append([]model.Field(nil), keys...), field)...); err != nil {
		return nil, err
	}

	groups := groupRecords(ds, keys)
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		s := summarize(ds, g)
		seen := make(map[string]struct{})
		for _, i := range g.indices {
			seen[ds.At(i).GroupValue(field)] = struct{}{}
		}
		s.Value = decimal.NewFromInt(int64(len(seen)))
		out = append(out, s)
	}

	sortByValue(out)
	return out, nil
}

// TopGroups returns the first n groups of an already sorted result. n <= 0
// returns everything.
func TopGroups(groups []GroupSummary, n int) []GroupSummary {
	if n <= 0 || n >= len(groups) {
		return groups
	}
	return groups[:n]
}

func sortByValue(groups []GroupSummary) {
	slices.SortStableFunc(groups, func(a, b GroupSummary) int {
		return b.Value.Cmp(a.Value)
	})
}

// =============================================================================
// OVERVIEW
// =============================================================================

// Overview holds the headline figures of a dataset.
type Overview struct {
	Lines          int
	POs            int
	InternalOrders int

	POValue         decimal.Decimal
	GRValue         decimal.Decimal
	InvoiceValue    decimal.Decimal
	CommitmentValue decimal.Decimal
	ActualCost      decimal.Decimal

	// Remaining is POValue - ActualCost.
	Remaining decimal.Decimal
}

// Totals computes the overview over the whole dataset. InternalOrders counts
// distinct non-blank internal orders.
func Totals(ds *model.Dataset) Overview {
	var o Overview
	pos := make(map[string]struct{})
	ios := make(map[string]struct{})

	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		o.Lines++
		pos[r.PONumber] = struct{}{}
		if io := strings.TrimSpace(r.InternalOrder); io != "" {
			ios[io] = struct{}{}
		}
		o.POValue = o.POValue.Add(r.POValue)
		o.GRValue = o.GRValue.Add(r.GRValue)
		o.InvoiceValue = o.InvoiceValue.Add(r.InvoiceValue)
		o.CommitmentValue = o.CommitmentValue.Add(r.CommitmentValue)
		o.ActualCost = o.ActualCost.Add(r.ActualCost)
	}

	o.POs = len(pos)
	o.InternalOrders = len(ios)
	o.Remaining = o.POValue.Sub(o.ActualCost)
	return o
}
