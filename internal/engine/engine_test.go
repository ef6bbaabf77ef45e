package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(po, ln, brand string, value string) model.PORecord {
	return model.PORecord{PONumber: po, LineNumber: ln, Brand: brand, POValue: d(value)}
}

func mustDataset(t *testing.T, recs []model.PORecord, opts ...model.DatasetOption) *model.Dataset {
	t.Helper()
	ds, err := model.NewDataset(recs, opts...)
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	return ds
}

// randomDataset builds a reproducible dataset with blanks in brand and
// status and several lines per PO.
func randomDataset(t *testing.T, seed uint64, n int) *model.Dataset {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	brands := []string{"A", "B", "C", ""}
	statuses := []string{"Open", "Closed", ""}
	recs := make([]model.PORecord, n)
	for i := range recs {
		recs[i] = model.PORecord{
			PONumber:     fmt.Sprintf("PO-%d", rng.IntN(n/2+1)),
			LineNumber:   fmt.Sprintf("%d", i),
			Brand:        brands[rng.IntN(len(brands))],
			Status:       statuses[rng.IntN(len(statuses))],
			POValue:      decimal.NewFromInt(rng.Int64N(100000)).Shift(-2),
			GRValue:      decimal.NewFromInt(rng.Int64N(50000)).Shift(-2),
			InvoiceValue: decimal.NewFromInt(rng.Int64N(50000)).Shift(-2),
		}
	}
	return mustDataset(t, recs)
}

// =============================================================================
// AGGREGATOR
// =============================================================================

func TestAggregateByBrand(t *testing.T) {
	ds := mustDataset(t, []model.PORecord{
		line("P1", "1", "A", "10"),
		line("P2", "1", "A", "20"),
		line("P3", "1", "B", "5"),
	})
	got, err := Aggregate(ds, []model.Field{model.FieldBrand}, model.FieldPOValue, Sum)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d groups, want 2", len(got))
	}
	if got[0].Label() != "A" || got[0].RecordCount != 2 || !got[0].Value.Equal(d("30")) {
		t.Fatalf("first group = %+v", got[0])
	}
	if got[1].Label() != "B" || got[1].RecordCount != 1 || !got[1].Value.Equal(d("5")) {
		t.Fatalf("second group = %+v", got[1])
	}
}

func TestAggregateTiesKeepInputOrder(t *testing.T) {
	ds := mustDataset(t, []model.PORecord{
		line("P1", "1", "Z", "5"),
		line("P2", "1", "M", "5"),
		line("P3", "1", "A", "5"),
	})
	got, _ := Aggregate(ds, []model.Field{model.FieldBrand}, model.FieldPOValue, Sum)
	want := []string{"Z", "M", "A"}
	for i, w := range want {
		if got[i].Label() != w {
			t.Fatalf("order = %v, want %v", labels(got), want)
		}
	}
}

func TestAggregateFunctions(t *testing.T) {
	ds := mustDataset(t, []model.PORecord{
		line("P1", "1", "A", "10"),
		line("P1", "2", "A", "20"),
		line("P2", "1", "", "6"),
	})
	keys := []model.Field{model.FieldBrand}

	count, _ := Aggregate(ds, keys, model.FieldPOValue, Count)
	if !count[0].Value.Equal(d("2")) || count[1].Label() != model.Unknown {
		t.Fatalf("count = %+v", count)
	}

	mean, _ := Aggregate(ds, keys, model.FieldPOValue, Mean)
	if !mean[0].Value.Equal(d("15")) || !mean[1].Value.Equal(d("6")) {
		t.Fatalf("mean = %+v", mean)
	}

	distinct, err := CountDistinct(ds, keys, model.FieldPONumber)
	if err != nil {
		t.Fatalf("CountDistinct: %v", err)
	}
	if !distinct[0].Value.Equal(d("1")) || distinct[0].RecordCount != 2 {
		t.Fatalf("distinct = %+v", distinct)
	}
}

func TestAggregateCompositeAndEmptyKeys(t *testing.T) {
	ds := mustDataset(t, []model.PORecord{
		{PONumber: "P1", LineNumber: "1", Brand: "A", Status: "Open", POValue: d("1")},
		{PONumber: "P2", LineNumber: "1", Brand: "A", Status: "Closed", POValue: d("4")},
		{PONumber: "P3", LineNumber: "1", Brand: "A", Status: "Open", POValue: d("2")},
	})
	got, _ := Aggregate(ds, []model.Field{model.FieldBrand, model.FieldStatus}, model.FieldPOValue, Sum)
	if len(got) != 2 || got[0].Label() != "A / Closed" || !got[1].Value.Equal(d("3")) {
		t.Fatalf("composite = %+v", got)
	}

	total, _ := Aggregate(ds, nil, model.FieldPOValue, Sum)
	if len(total) != 1 || total[0].RecordCount != 3 || total[0].Label() != "Total" {
		t.Fatalf("total = %+v", total)
	}

	empty, _ := Aggregate(mustDataset(t, nil), []model.Field{model.FieldBrand}, model.FieldPOValue, Sum)
	if len(empty) != 0 {
		t.Fatalf("empty dataset produced %d groups", len(empty))
	}
}

func TestAggregateErrors(t *testing.T) {
	ds := mustDataset(t, nil, model.WithSchema([]model.Field{model.FieldBrand}))

	_, err := Aggregate(ds, []model.Field{model.FieldTouchpoint}, model.FieldPOValue, Sum)
	var sm *model.SchemaMismatchError
	if !errors.As(err, &sm) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if _, err := Aggregate(ds, nil, model.FieldBrand, Sum); !errors.Is(err, ErrNotMonetary) {
		t.Fatalf("expected ErrNotMonetary, got %v", err)
	}
	if _, err := Aggregate(ds, nil, model.FieldPOValue, AggFunc("median")); !errors.Is(err, ErrUnknownAggregation) {
		t.Fatalf("expected ErrUnknownAggregation, got %v", err)
	}
	if _, err := ParseAggFunc("avg"); err != nil {
		t.Fatalf("ParseAggFunc(avg): %v", err)
	}
}

func TestAggregateProperties(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		ds := randomDataset(t, seed, 200)
		groups, err := Aggregate(ds, []model.Field{model.FieldBrand}, model.FieldPOValue, Sum)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		count := 0
		sum := decimal.Zero
		for _, g := range groups {
			count += g.RecordCount
			sum = sum.Add(g.Value)
		}
		if count != ds.Len() {
			t.Fatalf("seed %d: record counts sum to %d, want %d", seed, count, ds.Len())
		}
		if want := Totals(ds).POValue; !sum.Equal(want) {
			t.Fatalf("seed %d: group sums %s, want %s", seed, sum, want)
		}
		for i := 1; i < len(groups); i++ {
			if groups[i-1].Value.LessThan(groups[i].Value) {
				t.Fatalf("seed %d: groups not sorted descending", seed)
			}
		}
	}
}

func TestTopGroupsIsPrefix(t *testing.T) {
	ds := randomDataset(t, 9, 100)
	full, _ := Aggregate(ds, []model.Field{model.FieldPONumber}, model.FieldPOValue, Sum)
	top := TopGroups(full, 10)
	if len(top) != 10 {
		t.Fatalf("top has %d rows", len(top))
	}
	for i := range top {
		if top[i].Label() != full[i].Label() {
			t.Fatalf("top[%d] = %s, full[%d] = %s", i, top[i].Label(), i, full[i].Label())
		}
	}
	if len(TopGroups(full, 0)) != len(full) {
		t.Fatal("n <= 0 must return everything")
	}
}

func TestTotals(t *testing.T) {
	ds := mustDataset(t, []model.PORecord{
		{PONumber: "P1", LineNumber: "1", InternalOrder: "IO1", POValue: d("100"), GRValue: d("40"), InvoiceValue: d("30")},
		{PONumber: "P1", LineNumber: "2", InternalOrder: " ", POValue: d("50"), InvoiceValue: d("50")},
		{PONumber: "P2", LineNumber: "1", InternalOrder: "IO1", POValue: d("10")},
	})
	o := Totals(ds)
	if o.Lines != 3 || o.POs != 2 || o.InternalOrders != 1 {
		t.Fatalf("counts = %+v", o)
	}
	if !o.ActualCost.Equal(d("90")) || !o.Remaining.Equal(d("70")) {
		t.Fatalf("actual = %s remaining = %s", o.ActualCost, o.Remaining)
	}
}

func labels(groups []GroupSummary) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Label()
	}
	return out
}

// =============================================================================
// FILTER
// =============================================================================

func TestFilter(t *testing.T) {
	ds := mustDataset(t, []model.PORecord{
		{PONumber: "P1", LineNumber: "1", Brand: "A", Status: "Open"},
		{PONumber: "P2", LineNumber: "1", Brand: "B", Status: "Open"},
		{PONumber: "P3", LineNumber: "1", Brand: "A", Status: "Closed"},
		{PONumber: "P4", LineNumber: "1", Brand: "", Status: "Open"},
	})

	cases := []struct {
		name  string
		preds Predicates
		want  []string
	}{
		{"none", nil, []string{"P1", "P2", "P3", "P4"}},
		{"or within field", Predicates{model.FieldBrand: {"A", "B"}}, []string{"P1", "P2", "P3"}},
		{"and across fields", Predicates{model.FieldBrand: {"A"}, model.FieldStatus: {"Open"}}, []string{"P1"}},
		{"trimmed", Predicates{model.FieldBrand: {" B "}}, []string{"P2"}},
		{"unknown bucket", Predicates{model.FieldBrand: {""}}, []string{"P4"}},
		{"empty set excludes all", Predicates{model.FieldBrand: {}}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Filter(ds, tc.preds)
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			if got.Len() != len(tc.want) {
				t.Fatalf("got %d records, want %d", got.Len(), len(tc.want))
			}
			for i, po := range tc.want {
				if got.At(i).PONumber != po {
					t.Fatalf("record %d = %s, want %s", i, got.At(i).PONumber, po)
				}
			}
		})
	}
}

func TestFilterIdempotent(t *testing.T) {
	ds := randomDataset(t, 3, 150)
	preds := Predicates{model.FieldBrand: {"A", ""}, model.FieldStatus: {"Open"}}
	once, err := Filter(ds, preds)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	twice, _ := Filter(once, preds)
	if once.ID() != twice.ID() || once.Len() != twice.Len() {
		t.Fatal("filtering twice changed the result")
	}
}

func TestFilterUnknownField(t *testing.T) {
	ds := mustDataset(t, nil, model.WithSchema([]model.Field{model.FieldBrand}))
	_, err := Filter(ds, Predicates{model.FieldTouchpoint: {"TV"}})
	var sm *model.SchemaMismatchError
	if !errors.As(err, &sm) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}

func TestPredicatesKeyIsCanonical(t *testing.T) {
	a := Predicates{model.FieldBrand: {"B", "A"}, model.FieldStatus: {"Open"}}
	b := Predicates{model.FieldStatus: {" Open"}, model.FieldBrand: {"A", "B"}}
	if a.Key() != b.Key() {
		t.Fatalf("%q != %q", a.Key(), b.Key())
	}
	if a.Key() == (Predicates{model.FieldBrand: {"A"}}).Key() {
		t.Fatal("different predicates share a key")
	}
}

// =============================================================================
// COMPARATOR
// =============================================================================

func TestCompareScenario(t *testing.T) {
	current := mustDataset(t, []model.PORecord{
		line("PO-1", "1", "A", "100"),
		line("PO-2", "1", "B", "200"),
	}, model.WithTag("current"))
	previous := mustDataset(t, []model.PORecord{
		line("PO-1", "1", "A", "80"),
	}, model.WithTag("previous"))

	rows, err := Compare(current, previous, model.FieldPONumber)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}

	po2, po1 := rows[0], rows[1]
	if po2.Key != "PO-2" || !po2.Current.Equal(d("200")) || !po2.Previous.IsZero() || !po2.Change.Equal(d("200")) {
		t.Fatalf("PO-2 row = %+v", po2)
	}
	if po2.ChangePercent.Defined() || !po2.ChangePercent.Equal(NoBaseline) || po2.ChangePercent.String() != "n/a" {
		t.Fatalf("PO-2 percent = %v, want sentinel", po2.ChangePercent)
	}
	if po2.Status() != "added" {
		t.Fatalf("PO-2 status = %s", po2.Status())
	}

	if po1.Key != "PO-1" || !po1.Change.Equal(d("20")) {
		t.Fatalf("PO-1 row = %+v", po1)
	}
	pct, ok := po1.ChangePercent.Value()
	if !ok || !pct.Equal(d("25")) {
		t.Fatalf("PO-1 percent = %v", po1.ChangePercent)
	}
}

func TestCompareAggregatesLinesAndCarriesAttributes(t *testing.T) {
	current := mustDataset(t, []model.PORecord{
		{PONumber: "P1", LineNumber: "1", Description: "Banner", BudgetExecutor: "Li", POValue: d("30")},
		{PONumber: "P1", LineNumber: "2", Description: "Print", BudgetExecutor: "Li", POValue: d("20")},
	})
	previous := mustDataset(t, []model.PORecord{
		{PONumber: "P1", LineNumber: "1", POValue: d("10")},
		{PONumber: "P9", LineNumber: "1", Description: "Old", POValue: d("7")},
	})
	rows, err := Compare(current, previous, model.FieldPONumber,
		WithCarry(model.FieldDescription, model.FieldBudgetExecutor, "Vendor"))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if rows[0].Key != "P1" || !rows[0].Current.Equal(d("50")) || !rows[0].Change.Equal(d("40")) {
		t.Fatalf("P1 row = %+v", rows[0])
	}
	if rows[0].Attributes[model.FieldDescription] != "Banner" {
		t.Fatalf("carried description = %q", rows[0].Attributes[model.FieldDescription])
	}
	if _, ok := rows[0].Attributes["Vendor"]; ok {
		t.Fatal("fields outside the schema must not be carried")
	}
	removed := rows[1]
	if removed.Key != "P9" || !removed.Change.Equal(d("-7")) || removed.Status() != "removed" {
		t.Fatalf("removed row = %+v", removed)
	}
	if removed.Attributes[model.FieldDescription] != "Old" {
		t.Fatal("attributes of removed keys come from the previous version")
	}
}

func TestCompareSchemaMismatch(t *testing.T) {
	full := mustDataset(t, nil)
	narrow := mustDataset(t, nil, model.WithSchema([]model.Field{model.FieldBrand}), model.WithTag("previous"))
	_, err := Compare(full, narrow, model.FieldTouchpoint)
	var sm *model.SchemaMismatchError
	if !errors.As(err, &sm) || sm.Dataset != "previous" {
		t.Fatalf("expected SchemaMismatchError on previous, got %v", err)
	}
}

func TestCompareProperties(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		current := randomDataset(t, seed, 120)
		previous := randomDataset(t, seed+100, 80)

		rows, err := Compare(current, previous, model.FieldPONumber)
		if err != nil {
			t.Fatalf("Compare: %v", err)
		}

		seen := make(map[string]int)
		for _, r := range rows {
			seen[r.Key]++
			if !r.Change.Equal(r.Current.Sub(r.Previous)) {
				t.Fatalf("seed %d: %s change %s != %s - %s", seed, r.Key, r.Change, r.Current, r.Previous)
			}
			if r.Previous.IsZero() && r.ChangePercent.Defined() {
				t.Fatalf("seed %d: %s has a percent without baseline", seed, r.Key)
			}
		}
		for _, ds := range []*model.Dataset{current, previous} {
			for i := 0; i < ds.Len(); i++ {
				if seen[ds.At(i).PONumber] != 1 {
					t.Fatalf("seed %d: key %s appears %d times", seed, ds.At(i).PONumber, seen[ds.At(i).PONumber])
				}
			}
		}
		if len(seen) != len(rows) {
			t.Fatalf("seed %d: duplicate keys in output", seed)
		}

		top := TopN(rows, 10)
		for i := range top {
			if top[i].Key != rows[i].Key {
				t.Fatalf("seed %d: TopN diverges from the full ordering at %d", seed, i)
			}
		}
	}
}

func TestCompareTotalsAndChanged(t *testing.T) {
	current := mustDataset(t, []model.PORecord{line("P1", "1", "A", "10"), line("P2", "1", "A", "5")})
	previous := mustDataset(t, []model.PORecord{line("P1", "1", "A", "10"), line("P2", "1", "A", "0")})

	total, err := CompareTotals(current, previous, model.FieldPOValue)
	if err != nil {
		t.Fatalf("CompareTotals: %v", err)
	}
	if !total.Change.Equal(d("5")) || total.Key != "Total" {
		t.Fatalf("total = %+v", total)
	}

	rows, _ := Compare(current, previous, model.FieldPONumber)
	changed := Changed(rows)
	if len(changed) != 1 || changed[0].Key != "P2" {
		t.Fatalf("changed = %+v", changed)
	}
	if changed[0].ChangePercent.Defined() {
		t.Fatal("zero previous amount must yield the sentinel")
	}
	if !changed[0].RankingPercent().Equal(d("50000")) {
		t.Fatalf("ranking percent = %s", changed[0].RankingPercent())
	}
}

func TestSortByRankingPercent(t *testing.T) {
	rows := []ComparisonRow{
		newRow("big", d("1100"), d("1000"), nil, true, true),
		newRow("small", d("20"), d("10"), nil, true, true),
	}
	sorted := SortByRankingPercent(rows)
	if sorted[0].Key != "small" || rows[0].Key != "big" {
		t.Fatalf("sorted = %v, input must be untouched", []string{sorted[0].Key, sorted[1].Key})
	}
}

// =============================================================================
// ENGINE
// =============================================================================

func TestEngineCachesByDatasetIdentity(t *testing.T) {
	e := New(WithCacheSize(8), WithLogger(log.Discard()))
	ds := randomDataset(t, 11, 60)
	keys := []model.Field{model.FieldBrand}
	preds := Predicates{model.FieldStatus: {"Open"}}

	first, err := e.Summarize(ds, preds, keys, model.FieldPOValue, Sum)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	first[0].Keys[0] = "mutated"

	second, _ := e.Summarize(ds, preds, keys, model.FieldPOValue, Sum)
	if second[0].Keys[0] == "mutated" {
		t.Fatal("cached result shares memory with the caller")
	}
	if st := e.Stats(); st.Hits != 1 || st.Misses != 1 || st.Entries != 1 {
		t.Fatalf("stats = %+v", st)
	}

	other := randomDataset(t, 12, 60)
	if _, err := e.Summarize(other, preds, keys, model.FieldPOValue, Sum); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if st := e.Stats(); st.Misses != 2 {
		t.Fatalf("a new dataset must recompute, stats = %+v", st)
	}

	direct, _ := Aggregate(mustFilter(t, ds, preds), keys, model.FieldPOValue, Sum)
	for i := range direct {
		if direct[i].Label() != second[i].Label() || !direct[i].Value.Equal(second[i].Value) {
			t.Fatalf("cached result differs from direct computation at %d", i)
		}
	}

	a := mustDataset(t, []model.PORecord{line("P1", "1", "A", "100.001")})
	b := mustDataset(t, []model.PORecord{line("P1", "1", "A", "100.004")})
	if a.ID() == b.ID() {
		t.Fatal("datasets differing below the cent share an ID")
	}
	if _, err := e.Summarize(a, nil, keys, model.FieldPOValue, Sum); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	got, err := e.Summarize(b, nil, keys, model.FieldPOValue, Sum)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !got[0].Value.Equal(d("100.004")) {
		t.Fatalf("cached value of another dataset returned: %s", got[0].Value)
	}
}

func TestEngineDistinctAndEviction(t *testing.T) {
	e := New(WithCacheSize(1), WithLogger(log.Discard()))
	ds := randomDataset(t, 4, 40)

	if _, err := e.SummarizeDistinct(ds, nil, []model.Field{model.FieldBrand}, model.FieldPONumber); err != nil {
		t.Fatalf("SummarizeDistinct: %v", err)
	}
	if _, err := e.Summarize(ds, nil, nil, model.FieldPOValue, Sum); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if st := e.Stats(); st.Entries != 1 {
		t.Fatalf("entries = %d, want 1", st.Entries)
	}
	e.Reset()
	if st := e.Stats(); st.Entries != 0 {
		t.Fatalf("entries after reset = %d", st.Entries)
	}

	disabled := New(WithCacheSize(0), WithLogger(log.Discard()))
	disabled.Summarize(ds, nil, nil, model.FieldPOValue, Sum)
	if st := disabled.Stats(); st.Entries != 0 {
		t.Fatal("a zero-size cache must not store results")
	}
}

func mustFilter(t *testing.T, ds *model.Dataset, preds Predicates) *model.Dataset {
	t.Helper()
	out, err := Filter(ds, preds)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	return out
}

// =============================================================================
// SIMULATION
// =============================================================================

func TestSimulate(t *testing.T) {
	ds := randomDataset(t, 21, 300)

	a, err := Simulate(ds, DefaultSimulation())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	b, _ := Simulate(ds, DefaultSimulation())
	if a.ID() != b.ID() {
		t.Fatal("the same seed must give the same result")
	}
	if a.ID() == ds.ID() {
		t.Fatal("default simulation should change some values")
	}

	changed := 0
	for i := 0; i < ds.Len(); i++ {
		orig, sim := ds.At(i), a.At(i)
		if orig.PONumber != sim.PONumber || !orig.GRValue.Equal(sim.GRValue) || orig.Brand != sim.Brand {
			t.Fatalf("line %d: fields other than po_value changed", i)
		}
		if !orig.POValue.Equal(sim.POValue) {
			changed++
			lo := orig.POValue.Mul(d("0.9")).Round(2)
			hi := orig.POValue.Mul(d("1.1")).Round(2)
			if sim.POValue.LessThan(lo) || sim.POValue.GreaterThan(hi) {
				t.Fatalf("line %d: %s outside [%s, %s]", i, sim.POValue, lo, hi)
			}
		}
	}
	if changed == 0 || changed == ds.Len() {
		t.Fatalf("changed %d of %d lines", changed, ds.Len())
	}

	none, _ := Simulate(ds, SimulationConfig{Seed: 1, Fraction: 0, MinFactor: 0.5, MaxFactor: 2})
	if none.ID() != ds.ID() {
		t.Fatal("fraction 0 must leave values untouched")
	}
	if _, err := Simulate(ds, SimulationConfig{Fraction: 2}); err == nil {
		t.Fatal("expected validation error")
	}
}
