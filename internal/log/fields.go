package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldFile      = "file"
	FieldSheet     = "sheet"
	FieldFormat    = "format"
	FieldDataset   = "dataset"
	FieldRows      = "rows"
	FieldRecords   = "records"
	FieldCoerced   = "coerced_cells"
	FieldExtras    = "extra_columns"
	FieldMissing   = "missing_columns"
	FieldCacheKey  = "cache_key"
	FieldGroups    = "groups"
	FieldOutput    = "output"
	FieldRunID     = "run_id"
	FieldConfig    = "config"
)

// Components
const (
	ComponentApp    = "app"
	ComponentCLI    = "cli"
	ComponentConfig = "config"
	ComponentLoader = "loader"
	ComponentEngine = "engine"
	ComponentExport = "export"
)

// Operations
const (
	OpLoad     = "load"
	OpValidate = "validate"
	OpSummary  = "summary"
	OpQuery    = "query"
	OpCompare  = "compare"
	OpExport   = "export"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithSource adds the input file and sheet.
func (f LogFields) WithSource(file, sheet string) LogFields {
	f[FieldFile] = file
	if sheet != "" {
		f[FieldSheet] = sheet
	}
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
