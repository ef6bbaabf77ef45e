// =============================================================================
// PO Budget Report - Field Catalogue
// =============================================================================
//
// This file declares the canonical field names of a PO line record. Every
// source column variant is normalized to one of these names before a record
// enters the engine (see columns.go).
//
// FIELD KINDS:
//   - identifier  : po_number, line_number
//   - categorical : brand, touchpoint, budget_executor, internal_order,
//                   gl_account, status, line_type, description
//   - monetary    : po_value, gr_value, invoice_value, commitment_value
//   - derived     : actual_cost (max of gr_value and invoice_value)
//
// Columns that are not in the catalogue are carried as pass-through text
// attributes. They can be grouped and filtered on but never summed.
//
// =============================================================================

package model

import "strings"

// Field is the canonical name of a record attribute.
type Field string

// Canonical fields.
const (
	FieldPONumber        Field = "po_number"
	FieldLineNumber      Field = "line_number"
	FieldBrand           Field = "brand"
	FieldTouchpoint      Field = "touchpoint"
	FieldBudgetExecutor  Field = "budget_executor"
	FieldInternalOrder   Field = "internal_order"
	FieldGLAccount       Field = "gl_account"
	FieldStatus          Field = "status"
	FieldLineType        Field = "line_type"
	FieldDescription     Field = "description"
	FieldPOValue         Field = "po_value"
	FieldGRValue         Field = "gr_value"
	FieldInvoiceValue    Field = "invoice_value"
	FieldCommitmentValue Field = "commitment_value"
	FieldActualCost      Field = "actual_cost"
)

// Unknown is the bucket name used for categorical values that are missing.
const Unknown = "(unknown)"

// IdentifierFields are required on every record.
var IdentifierFields = []Field{FieldPONumber, FieldLineNumber}

// CategoricalFields are the typed text attributes of a record.
var CategoricalFields = []Field{
	FieldBrand,
	FieldTouchpoint,
	FieldBudgetExecutor,
	FieldInternalOrder,
	FieldGLAccount,
	FieldStatus,
	FieldLineType,
	FieldDescription,
}

// MonetaryFields are the amounts read from the source. ActualCost is derived
// from them and is listed separately.
var MonetaryFields = []Field{
	FieldPOValue,
	FieldGRValue,
	FieldInvoiceValue,
	FieldCommitmentValue,
}

// labels maps canonical fields to the column headers of the primary export.
var labels = map[Field]string{
	FieldPONumber:        "PO Number",
	FieldLineNumber:      "PO Line",
	FieldBrand:           "Brand",
	FieldTouchpoint:      "Touchpoint",
	FieldBudgetExecutor:  "Budget Executor",
	FieldInternalOrder:   "Internal Order",
	FieldGLAccount:       "GL Account",
	FieldStatus:          "PO Line Status",
	FieldLineType:        "PO Line Type",
	FieldDescription:     "PO Line Description",
	FieldPOValue:         "PO Value - LC",
	FieldGRValue:         "GR Value - LC",
	FieldInvoiceValue:    "Invoice Value - LC",
	FieldCommitmentValue: "PO Commitment - LC",
	FieldActualCost:      "Actual PO Cost",
}

// AllFields returns every canonical field in export order.
func AllFields() []Field {
	fields := make([]Field, 0, len(labels))
	fields = append(fields, IdentifierFields...)
	fields = append(fields, CategoricalFields...)
	fields = append(fields, MonetaryFields...)
	return append(fields, FieldActualCost)
}

// Label returns the display header for a field. Pass-through fields are
// labelled with their own name.
func (f Field) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// IsCanonical reports whether f is part of the typed record schema.
func (f Field) IsCanonical() bool {
	_, ok := labels[f]
	return ok
}

// IsMonetary reports whether f holds an amount (including actual_cost).
func (f Field) IsMonetary() bool {
	switch f {
	case FieldPOValue, FieldGRValue, FieldInvoiceValue, FieldCommitmentValue, FieldActualCost:
		return true
	}
	return false
}

// IsIdentifier reports whether f is one of the identifying fields.
func (f Field) IsIdentifier() bool {
	return f == FieldPONumber || f == FieldLineNumber
}

// ParseField resolves user input such as "brand", "Budget Executor" or
// "PO executor" to a field. Input that matches nothing is returned as a
// pass-through field name so that extra source columns stay addressable.
func ParseField(s string) Field {
	s = strings.TrimSpace(s)
	if f := Field(strings.ToLower(s)); f.IsCanonical() {
		return f
	}
	for f, l := range labels {
		if NormalizeHeader(l) == NormalizeHeader(s) {
			return f
		}
	}
	if f, ok := DefaultColumnMap().Lookup(s); ok {
		return f
	}
	return Field(s)
}
