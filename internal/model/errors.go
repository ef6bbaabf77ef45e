package model

import (
	"fmt"
	"strings"
)

// ValidationError reports a record that cannot be admitted into a dataset
// because an identifying field is missing or duplicated.
type ValidationError struct {
	// Row is the 1-based source row number, or the record index + 1 when the
	// record did not come from a file. Zero means the problem is with the
	// header row.
	Row int

	// Field is the offending field.
	Field Field

	// Value is the offending value, if any.
	Value string

	// Message describes the violation.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("validation: %s: %s", e.Field.Label(), e.Message)
	}
	if e.Value != "" {
		return fmt.Sprintf("validation: row %d, %s: %s (value: '%s')", e.Row, e.Field.Label(), e.Message, e.Value)
	}
	return fmt.Sprintf("validation: row %d, %s: %s", e.Row, e.Field.Label(), e.Message)
}

// SchemaMismatchError reports a grouping, filter or join key that does not
// exist in a dataset's schema.
type SchemaMismatchError struct {
	Field     Field
	Dataset   string
	Available []Field
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	names := make([]string, len(e.Available))
	for i, f := range e.Available {
		names[i] = string(f)
	}
	where := "dataset"
	if e.Dataset != "" {
		where = fmt.Sprintf("dataset %q", e.Dataset)
	}
	return fmt.Sprintf("schema mismatch: field %q not in %s (available: %s)",
		e.Field, where, strings.Join(names, ", "))
}
