// =============================================================================
// PO Budget Report - Comparator
// =============================================================================
//
// Compares two snapshots of the PO report.
//
// ALGORITHM:
//   1. Both datasets are aggregated independently by the join key, summing
//      the metric. A PO may have a different number of lines in each
//      version, so rows are compared per key, never per line.
//   2. Full outer join on the key. A key missing on one side reads as zero
//      on that side.
//   3. Change = Current - Previous, for every row.
//   4. ChangePercent = Change / Previous * 100, or NoBaseline when Previous
//      is zero.
//   5. Rows are sorted by Change (signed) descending. TopN only slices this
//      finished sequence.
//
// =============================================================================

package engine

import (
	"fmt"
	"slices"

	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/shopspring/decimal"
)

// ComparisonRow is one joined key of a comparison.
type ComparisonRow struct {
	// Key is the join key value ("(unknown)" for blank values).
	Key string

	Current  decimal.Decimal
	Previous decimal.Decimal
	Change   decimal.Decimal

	// ChangePercent is NoBaseline when Previous is zero.
	ChangePercent Percent

	// Attributes holds the carried display fields, taken from the first
	// line of the key (current version first, then previous).
	Attributes map[model.Field]string

	InCurrent  bool
	InPrevious bool
}

// RankingPercent returns Change / (Previous + 0.01) * 100, or zero when that
// denominator vanishes (a credit of exactly -0.01). It is only meant for
// ordering rows on screen; ChangePercent is the reported figure.
func (r ComparisonRow) RankingPercent() decimal.Decimal {
	denom := r.Previous.Add(rankingEpsilon)
	if denom.IsZero() {
		return decimal.Zero
	}
	return r.Change.Div(denom).Mul(hundred)
}

// Status describes how the key moved between versions.
func (r ComparisonRow) Status() string {
	switch {
	case !r.InPrevious:
		return "added"
	case !r.InCurrent:
		return "removed"
	case r.Change.IsZero():
		return "unchanged"
	}
	return "changed"
}

// CompareOption configures Compare.
type CompareOption func(*compareConfig)

type compareConfig struct {
	metric model.Field
	carry  []model.Field
}

// WithMetric selects the monetary field to compare. Defaults to po_value.
func WithMetric(f model.Field) CompareOption {
	return func(c *compareConfig) { c.metric = f }
}

// WithCarry copies the given fields from the first line of each key into
// ComparisonRow.Attributes (e.g. description and budget executor when
// comparing by PO number). Fields absent from a dataset's schema are skipped.
func WithCarry(fields ...model.Field) CompareOption {
	return func(c *compareConfig) { c.carry = append(c.carry, fields...) }
}

// side is the per-key aggregate of one dataset.
type side struct {
	order  []string
	totals map[string]decimal.Decimal
	attrs  map[string]map[model.Field]string
}

func aggregateSide(ds *model.Dataset, key, metric model.Field, carry []model.Field) side {
	s := side{
		totals: make(map[string]decimal.Decimal),
		attrs:  make(map[string]map[model.Field]string),
	}
	for _, g := range groupRecords(ds, []model.Field{key}) {
		k := g.keys[0]
		if _, dup := s.totals[k]; dup {
			panic(fmt.Sprintf("engine: join key %q appears twice after aggregation", k))
		}
		sum := decimal.Zero
		for _, i := range g.indices {
			amt, _ := ds.At(i).Amount(metric)
			sum = sum.Add(amt)
		}
		s.order = append(s.order, k)
		s.totals[k] = sum

		first := ds.At(g.indices[0])
		attrs := make(map[model.Field]string, len(carry))
		for _, f := range carry {
			if ds.Has(f) {
				attrs[f] = first.Value(f)
			}
		}
		s.attrs[k] = attrs
	}
	return s
}

// Compare outer-joins current and previous on joinKey and returns one row per
// key present in either dataset, sorted by Change descending. Ties keep join
// order: current keys in first-encountered order, then keys only present in
// previous. A joinKey missing from either schema is a SchemaMismatchError.
func Compare(current, previous *model.Dataset, joinKey model.Field, opts ...CompareOption) ([]ComparisonRow, error) {
	cfg := compareConfig{metric: model.FieldPOValue}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := current.Require(joinKey); err != nil {
		return nil, err
	}
	if err := previous.Require(joinKey); err != nil {
		return nil, err
	}
	if !cfg.metric.IsMonetary() {
		return nil, fmt.Errorf("%w: %q", ErrNotMonetary, cfg.metric)
	}

	cur := aggregateSide(current, joinKey, cfg.metric, cfg.carry)
	prev := aggregateSide(previous, joinKey, cfg.metric, cfg.carry)

	rows := make([]ComparisonRow, 0, len(cur.order)+len(prev.order))
	for _, k := range cur.order {
		p, inPrev := prev.totals[k]
		rows = append(rows, newRow(k, cur.totals[k], p, cur.attrs[k], true, inPrev))
	}
	for _, k := range prev.order {
		if _, inCur := cur.totals[k]; inCur {
			continue
		}
		rows = append(rows, newRow(k, decimal.Zero, prev.totals[k], prev.attrs[k], false, true))
	}

	slices.SortStableFunc(rows, func(a, b ComparisonRow) int {
		return b.Change.Cmp(a.Change)
	})
	return rows, nil
}

func newRow(key string, cur, prev decimal.Decimal, attrs map[model.Field]string, inCur, inPrev bool) ComparisonRow {
	change := cur.Sub(prev)
	return ComparisonRow{
		Key:           key,
		Current:       cur,
		Previous:      prev,
		Change:        change,
		ChangePercent: PercentChange(change, prev),
		Attributes:    attrs,
		InCurrent:     inCur,
		InPrevious:    inPrev,
	}
}

// CompareTotals compares the overall metric of both datasets as a single row
// keyed "Total".
func CompareTotals(current, previous *model.Dataset, metric model.Field) (ComparisonRow, error) {
	if !metric.IsMonetary() {
		return ComparisonRow{}, fmt.Errorf("%w: %q", ErrNotMonetary, metric)
	}
	sum := func(ds *model.Dataset) decimal.Decimal {
		total := decimal.Zero
		for i := 0; i < ds.Len(); i++ {
			amt, _ := ds.At(i).Amount(metric)
			total = total.Add(amt)
		}
		return total
	}
	return newRow("Total", sum(current), sum(previous), nil, current.Len() > 0, previous.Len() > 0), nil
}

// TopN returns the first n rows of a complete, sorted comparison. n <= 0
// returns everything.
func TopN(rows []ComparisonRow, n int) []ComparisonRow {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// Changed keeps the rows whose amount moved, in order.
func Changed(rows []ComparisonRow) []ComparisonRow {
	out := make([]ComparisonRow, 0, len(rows))
	for _, r := range rows {
		if !r.Change.IsZero() {
			out = append(out, r)
		}
	}
	return out
}

// SortByRankingPercent returns a copy of rows ordered by RankingPercent
// descending. Ties keep the input order.
func SortByRankingPercent(rows []ComparisonRow) []ComparisonRow {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b ComparisonRow) int {
		return b.RankingPercent().Cmp(a.RankingPercent())
	})
	return out
}
