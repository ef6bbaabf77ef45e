// =============================================================================
// PO Budget Report - Record Model
// =============================================================================
//
// PORecord is one purchase-order line. Records are built by the loader from
// normalized spreadsheet rows, or directly by callers, and are admitted into
// a Dataset which validates identifiers and derives ActualCost.
//
// INVARIANTS:
//   - Monetary fields are always decimals, never unparsed text.
//   - ActualCost = max(GRValue, InvoiceValue), set once on dataset
//     construction.
//   - (PONumber, LineNumber) is unique within one Dataset.
//
// =============================================================================

package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PORecord is a single purchase-order line.
type PORecord struct {
	PONumber   string
	LineNumber string

	Brand          string
	Touchpoint     string
	BudgetExecutor string
	InternalOrder  string
	GLAccount      string
	Status         string
	LineType       string
	Description    string

	POValue         decimal.Decimal
	GRValue         decimal.Decimal
	InvoiceValue    decimal.Decimal
	CommitmentValue decimal.Decimal

	// ActualCost is derived; any value set by the caller is replaced when the
	// record enters a Dataset.
	ActualCost decimal.Decimal

	// Extra holds pass-through source columns keyed by their header.
	Extra map[string]string
}

// deriveActualCost returns max(gr_value, invoice_value).
func deriveActualCost(r PORecord) decimal.Decimal {
	return decimal.Max(r.GRValue, r.InvoiceValue)
}

// Value returns the raw text of a field. Monetary fields are rendered with
// two decimals. Missing categorical values are returned as "".
func (r PORecord) Value(f Field) string {
	switch f {
	case FieldPONumber:
		return r.PONumber
	case FieldLineNumber:
		return r.LineNumber
	case FieldBrand:
		return r.Brand
	case FieldTouchpoint:
		return r.Touchpoint
	case FieldBudgetExecutor:
		return r.BudgetExecutor
	case FieldInternalOrder:
		return r.InternalOrder
	case FieldGLAccount:
		return r.GLAccount
	case FieldStatus:
		return r.Status
	case FieldLineType:
		return r.LineType
	case FieldDescription:
		return r.Description
	}
	if amt, ok := r.Amount(f); ok {
		return amt.StringFixed(2)
	}
	return r.Extra[string(f)]
}

// GroupValue returns the value used when grouping or filtering on f. Blank
// values map to the Unknown bucket so they are never silently dropped.
func (r PORecord) GroupValue(f Field) string {
	v := strings.TrimSpace(r.Value(f))
	if v == "" {
		return Unknown
	}
	return v
}

// Amount returns a monetary field. The boolean is false for non-monetary
// fields.
func (r PORecord) Amount(f Field) (decimal.Decimal, bool) {
	switch f {
	case FieldPOValue:
		return r.POValue, true
	case FieldGRValue:
		return r.GRValue, true
	case FieldInvoiceValue:
		return r.InvoiceValue, true
	case FieldCommitmentValue:
		return r.CommitmentValue, true
	case FieldActualCost:
		return r.ActualCost, true
	}
	return decimal.Zero, false
}

// set assigns a text value to a non-monetary field.
func (r *PORecord) set(f Field, v string) {
	switch f {
	case FieldPONumber:
		r.PONumber = v
	case FieldLineNumber:
		r.LineNumber = v
	case FieldBrand:
		r.Brand = v
	case FieldTouchpoint:
		r.Touchpoint = v
	case FieldBudgetExecutor:
		r.BudgetExecutor = v
	case FieldInternalOrder:
		r.InternalOrder = v
	case FieldGLAccount:
		r.GLAccount = v
	case FieldStatus:
		r.Status = v
	case FieldLineType:
		r.LineType = v
	case FieldDescription:
		r.Description = v
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[string(f)] = v
	}
}

// setAmount assigns a monetary field.
func (r *PORecord) setAmount(f Field, d decimal.Decimal) {
	switch f {
	case FieldPOValue:
		r.POValue = d
	case FieldGRValue:
		r.GRValue = d
	case FieldInvoiceValue:
		r.InvoiceValue = d
	case FieldCommitmentValue:
		r.CommitmentValue = d
	}
}

// clone returns a copy that shares no mutable state with r.
func (r PORecord) clone() PORecord {
	if r.Extra != nil {
		extra := make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		r.Extra = extra
	}
	return r
}
