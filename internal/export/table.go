// =============================================================================
// PO Budget Report - Export Tables
// =============================================================================
//
// Every report the tool produces (record listings, group summaries,
// comparisons, the overview) is first turned into a flat Table: a header
// row plus same-shaped rows. Writers then render a Table as CSV, XLSX or
// aligned terminal text.
//
// CELL VALUES:
//   string           - text, written as is
//   int              - counts
//   decimal.Decimal  - amounts, always rendered with 2 decimals
//   engine.Percent   - percentage change, "n/a" without a baseline
//
// Amounts are stored as plain numbers. The currency label is added by the
// text writer only.
//
// =============================================================================

package export

import (
	"strconv"

	"github.com/ginjaninja78/po-budget-report/internal/engine"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/shopspring/decimal"
)

// Column describes one table column.
type Column struct {
	Header string

	// Money marks amount columns; the text writer labels them with the
	// currency and the XLSX writer applies a number format.
	Money bool
}

// Table is a flat, exportable result.
type Table struct {
	// Title names the report, e.g. "PO Value by Brand". Used as the XLSX
	// sheet name and as the heading in text output.
	Title string

	Columns []Column
	Rows    [][]any
}

// Headers returns the column headers.
func (t Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Header
	}
	return out
}

// FormatCell renders a cell value as text. Amounts use 2 fixed decimals.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case decimal.Decimal:
		return x.StringFixed(2)
	case engine.Percent:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// =============================================================================
// TABLE BUILDERS
// =============================================================================

// RecordsTable lists every record of ds with one column per schema field.
func RecordsTable(title string, ds *model.Dataset) Table {
	schema := ds.Schema()
	t := Table{Title: title}
	for _, f := range schema {
		t.Columns = append(t.Columns, Column{Header: f.Label(), Money: f.IsMonetary()})
	}
	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		row := make([]any, len(schema))
		for j, f := range schema {
			if amt, ok := r.Amount(f); ok {
				row[j] = amt
			} else {
				row[j] = r.Value(f)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// GroupsTable lists aggregated groups: the key values, the line count and
// the monetary totals. When valueHeader is set, the aggregated metric is
// appended as a last column.
func GroupsTable(title string, keys []model.Field, groups []engine.GroupSummary, valueHeader string, valueIsMoney bool) Table {
	t := Table{Title: title}
	for _, k := range keys {
		t.Columns = append(t.Columns, Column{Header: k.Label()})
	}
	if len(keys) == 0 {
		t.Columns = append(t.Columns, Column{Header: "Group"})
	}
	t.Columns = append(t.Columns,
		Column{Header: "Lines"},
		Column{Header: model.FieldPOValue.Label(), Money: true},
		Column{Header: model.FieldGRValue.Label(), Money: true},
		Column{Header: model.FieldInvoiceValue.Label(), Money: true},
		Column{Header: model.FieldActualCost.Label(), Money: true},
	)
	if valueHeader != "" {
		t.Columns = append(t.Columns, Column{Header: valueHeader, Money: valueIsMoney})
	}

	for _, g := range groups {
		var row []any
		if len(keys) == 0 {
			row = append(row, g.Label())
		}
		for _, k := range g.Keys {
			row = append(row, k)
		}
		row = append(row, g.RecordCount, g.POValue, g.GRValue, g.InvoiceValue, g.ActualCost)
		if valueHeader != "" {
			if valueIsMoney {
				row = append(row, g.Value)
			} else {
				row = append(row, int(g.Value.IntPart()))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ComparisonTable lists compared keys with their carried attributes,
// amounts, change and percentage.
func ComparisonTable(title string, key model.Field, carry []model.Field, rows []engine.ComparisonRow) Table {
	t := Table{Title: title}
	t.Columns = append(t.Columns, Column{Header: key.Label()})
	for _, f := range carry {
		t.Columns = append(t.Columns, Column{Header: f.Label()})
	}
	t.Columns = append(t.Columns,
		Column{Header: "Current Amount", Money: true},
		Column{Header: "Previous Amount", Money: true},
		Column{Header: "Change Amount", Money: true},
		Column{Header: "Change %"},
		Column{Header: "Status"},
	)

	for _, r := range rows {
		row := []any{r.Key}
		for _, f := range carry {
			row = append(row, r.Attributes[f])
		}
		row = append(row, r.Current, r.Previous, r.Change, r.ChangePercent, r.Status())
		t.Rows = append(t.Rows, row)
	}
	return t
}

// OverviewTable lists the headline figures as metric/value pairs.
func OverviewTable(title string, o engine.Overview) Table {
	return Table{
		Title:   title,
		Columns: []Column{{Header: "Metric"}, {Header: "Value"}},
		Rows: [][]any{
			{"PO Lines", o.Lines},
			{"Purchase Orders", o.POs},
			{"Internal Orders", o.InternalOrders},
			{"Total PO Value", o.POValue},
			{"Total GR Value", o.GRValue},
			{"Total Invoice Value", o.InvoiceValue},
			{"Total Commitment", o.CommitmentValue},
			{"Actual PO Cost", o.ActualCost},
			{"Remaining Budget", o.Remaining},
		},
	}
}
