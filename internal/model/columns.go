// =============================================================================
// PO Budget Report - Column Normalization
// =============================================================================
//
// Source spreadsheets come in more than one layout. The full PO status
// report uses "PO Value - LC", "PO Line Status" and friends, while the older
// budget export uses "PO Net Price", "PO status", "PO executor" and so on.
// ColumnMap is the declared mapping table from accepted header variants to
// canonical fields. Binding applies it to one header row and turns data rows
// into typed records.
//
// HEADER MATCHING:
//   Headers are compared case-insensitively after trimming and collapsing
//   internal whitespace, so "PO Commitment -  LC" matches
//   "PO Commitment - LC".
//
// CUSTOMIZATION:
//   Extra variants are declared in config.yaml under column_aliases.
//
// =============================================================================

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// defaultAliases lists the accepted header variants per canonical field.
var defaultAliases = map[Field][]string{
	FieldPONumber:        {"PO Number", "PO No", "PO #"},
	FieldLineNumber:      {"PO Line", "PO Line Number", "Line"},
	FieldBrand:           {"Brand"},
	FieldTouchpoint:      {"Touchpoint"},
	FieldBudgetExecutor:  {"Budget Executor", "PO executor"},
	FieldInternalOrder:   {"Internal Order", "IO"},
	FieldGLAccount:       {"GL Account"},
	FieldStatus:          {"PO Line Status", "PO status"},
	FieldLineType:        {"PO Line Type"},
	FieldDescription:     {"PO Line Description", "Description"},
	FieldPOValue:         {"PO Value - LC", "PO Net Price"},
	FieldGRValue:         {"GR Value - LC", "GR an Lager-value"},
	FieldInvoiceValue:    {"Invoice Value - LC", "Invoice amount"},
	FieldCommitmentValue: {"PO Commitment - LC"},
}

// NormalizeHeader canonicalizes a header for comparison.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// =============================================================================
// COLUMN MAP
// =============================================================================

// ColumnMap maps normalized header variants to canonical fields.
type ColumnMap struct {
	aliases map[string]Field
}

// DefaultColumnMap returns the built-in mapping table.
func DefaultColumnMap() *ColumnMap {
	m := &ColumnMap{aliases: make(map[string]Field)}
	for field, headers := range defaultAliases {
		for _, h := range headers {
			m.aliases[NormalizeHeader(h)] = field
		}
	}
	return m
}

// Add declares additional header variants for a canonical field. The derived
// actual_cost field cannot be mapped from a source column.
func (m *ColumnMap) Add(field Field, headers ...string) error {
	if !field.IsCanonical() || field == FieldActualCost {
		return fmt.Errorf("cannot map columns to %q: not a source field", field)
	}
	for _, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		m.aliases[NormalizeHeader(h)] = field
	}
	return nil
}

// Lookup returns the canonical field for a header.
func (m *ColumnMap) Lookup(header string) (Field, bool) {
	f, ok := m.aliases[NormalizeHeader(header)]
	return f, ok
}

// =============================================================================
// BINDING
// =============================================================================

// Binding is a ColumnMap applied to a concrete header row.
type Binding struct {
	headers []string
	fields  []Field // per column; canonical or pass-through
	present map[Field]bool
	extras  []Field
}

// Coercion records a money cell that could not be parsed and became zero.
type Coercion struct {
	Row   int
	Field Field
	Value string
}

// Bind resolves a header row. The first column mapped to a field wins; later
// columns mapping to the same field are kept as pass-through attributes under
// their own header. A missing PO number column is a ValidationError.
func (m *ColumnMap) Bind(headers []string) (*Binding, error) {
	b := &Binding{
		headers: headers,
		fields:  make([]Field, len(headers)),
		present: make(map[Field]bool),
	}

	for i, h := range headers {
		h = strings.TrimSpace(h)
		if f, ok := m.Lookup(h); ok && !b.present[f] {
			b.fields[i] = f
			b.present[f] = true
			continue
		}
		extra := Field(h)
		if h == "" || b.present[extra] || extra.IsCanonical() {
			extra = Field(fmt.Sprintf("Column_%d", i+1))
		}
		b.fields[i] = extra
		b.present[extra] = true
		b.extras = append(b.extras, extra)
	}

	if !b.present[FieldPONumber] {
		return nil, &ValidationError{Field: FieldPONumber, Message: "required column is missing"}
	}
	return b, nil
}

// HasLineColumn reports whether the source supplies line numbers.
func (b *Binding) HasLineColumn() bool {
	return b.present[FieldLineNumber]
}

// Extras returns the pass-through columns in source order.
func (b *Binding) Extras() []Field {
	return append([]Field(nil), b.extras...)
}

// Missing returns canonical source fields the header row did not supply.
func (b *Binding) Missing() []Field {
	var missing []Field
	for _, f := range AllFields() {
		if f == FieldActualCost {
			continue
		}
		if !b.present[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Schema returns the fields a dataset built from this binding exposes:
// identifiers, every monetary field (absent amounts read as zero), the
// categorical fields the source supplied and the pass-through columns.
func (b *Binding) Schema() []Field {
	schema := append([]Field(nil), IdentifierFields...)
	for _, f := range CategoricalFields {
		if b.present[f] {
			schema = append(schema, f)
		}
	}
	schema = append(schema, MonetaryFields...)
	schema = append(schema, FieldActualCost)
	return append(schema, b.extras...)
}

// Record converts one data row. rowNum is the 1-based source row used in
// errors. Cells beyond the header row are ignored; missing cells are blank.
func (b *Binding) Record(rowNum int, cells []string) (PORecord, []Coercion, error) {
	var rec PORecord
	var coerced []Coercion

	for i, f := range b.fields {
		cell := ""
		if i < len(cells) {
			cell = strings.TrimSpace(cells[i])
		}
		if f.IsMonetary() {
			amt, ok := ParseAmount(cell)
			if !ok {
				coerced = append(coerced, Coercion{Row: rowNum, Field: f, Value: cell})
			}
			rec.setAmount(f, amt)
			continue
		}
		rec.set(f, cell)
	}

	if rec.PONumber == "" {
		return rec, coerced, &ValidationError{Row: rowNum, Field: FieldPONumber, Message: "required value is missing"}
	}
	if b.HasLineColumn() && rec.LineNumber == "" {
		return rec, coerced, &ValidationError{Row: rowNum, Field: FieldLineNumber, Message: "required value is missing"}
	}
	rec.ActualCost = deriveActualCost(rec)
	return rec, coerced, nil
}

// Records converts all data rows. rowNums holds the source row number of
// each entry in rows. When the source has no line column, line numbers are
// assigned as the 1-based position of the line within its PO.
func (b *Binding) Records(rows [][]string, rowNums []int) ([]PORecord, []Coercion, error) {
	records := make([]PORecord, 0, len(rows))
	var coerced []Coercion
	lineSeq := make(map[string]int)

	for i, cells := range rows {
		rowNum := i + 1
		if i < len(rowNums) {
			rowNum = rowNums[i]
		}
		rec, c, err := b.Record(rowNum, cells)
		coerced = append(coerced, c...)
		if err != nil {
			return nil, coerced, err
		}
		if !b.HasLineColumn() {
			lineSeq[rec.PONumber]++
			rec.LineNumber = strconv.Itoa(lineSeq[rec.PONumber])
		}
		records = append(records, rec)
	}
	return records, coerced, nil
}
