// =============================================================================
// PO Budget Report - Dataset
// =============================================================================
//
// A Dataset is one snapshot ("version") of the PO report: an ordered,
// immutable collection of records plus the schema of fields it can be
// grouped, filtered and joined on.
//
// IDENTITY:
//   ID() is a SHA-256 content hash over the schema and every record. Two
//   datasets with equal content share an ID; any change yields a new one.
//   Caches key on ID(), so a new snapshot always recomputes. The optional
//   tag ("current", "previous", a file name) is a label only.
//
// =============================================================================

package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"
)

// Dataset is an immutable snapshot of PO lines.
type Dataset struct {
	records  []PORecord
	schema   []Field
	inSchema map[Field]bool
	tag      string
	id       string
}

// DatasetOption configures NewDataset.
type DatasetOption func(*datasetConfig)

type datasetConfig struct {
	tag     string
	schema  []Field
	rowNums []int
}

// WithTag labels the dataset (e.g. "current", "previous", a file name).
func WithTag(tag string) DatasetOption {
	return func(c *datasetConfig) { c.tag = tag }
}

// WithSchema declares the fields the dataset exposes. Identifier, monetary
// and derived fields are always part of the schema. Without this option the
// schema is every canonical field plus the pass-through keys seen in the
// records.
func WithSchema(fields []Field) DatasetOption {
	return func(c *datasetConfig) { c.schema = fields }
}

// WithRowNumbers sets the source row of each record, used in validation
// errors. Without it errors report the 1-based record position.
func WithRowNumbers(rows []int) DatasetOption {
	return func(c *datasetConfig) { c.rowNums = rows }
}

// NewDataset validates and admits records into a new snapshot. Records are
// copied; ActualCost is derived on every record. A record with a blank
// identifier or a repeated (po_number, line_number) pair is a
// ValidationError.
func NewDataset(records []PORecord, opts ...DatasetOption) (*Dataset, error) {
	cfg := datasetConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ds := &Dataset{
		records: make([]PORecord, len(records)),
		tag:     cfg.tag,
	}

	rowNum := func(i int) int {
		if i < len(cfg.rowNums) {
			return cfg.rowNums[i]
		}
		return i + 1
	}

	seen := make(map[[2]string]int, len(records))
	for i, r := range records {
		r = r.clone()
		if r.PONumber == "" {
			return nil, &ValidationError{Row: rowNum(i), Field: FieldPONumber, Message: "required value is missing"}
		}
		if r.LineNumber == "" {
			return nil, &ValidationError{Row: rowNum(i), Field: FieldLineNumber, Message: "required value is missing"}
		}
		key := [2]string{r.PONumber, r.LineNumber}
		if first, dup := seen[key]; dup {
			return nil, &ValidationError{
				Row:     rowNum(i),
				Field:   FieldLineNumber,
				Value:   r.PONumber + "/" + r.LineNumber,
				Message: fmt.Sprintf("duplicate PO line (first seen at row %d)", first),
			}
		}
		seen[key] = rowNum(i)
		r.ActualCost = deriveActualCost(r)
		ds.records[i] = r
	}

	ds.schema = buildSchema(cfg.schema, ds.records)
	ds.inSchema = make(map[Field]bool, len(ds.schema))
	for _, f := range ds.schema {
		ds.inSchema[f] = true
	}
	ds.id = contentHash(ds.schema, ds.records)
	return ds, nil
}

// buildSchema merges the declared schema with the mandatory fields.
func buildSchema(declared []Field, records []PORecord) []Field {
	var schema []Field
	add := func(f Field) {
		if !slices.Contains(schema, f) {
			schema = append(schema, f)
		}
	}

	schema = append(schema, IdentifierFields...)
	if declared == nil {
		for _, f := range CategoricalFields {
			add(f)
		}
	}
	for _, f := range declared {
		add(f)
	}
	for _, f := range MonetaryFields {
		add(f)
	}
	add(FieldActualCost)

	if declared == nil {
		for _, r := range records {
			keys := make([]string, 0, len(r.Extra))
			for k := range r.Extra {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				add(Field(k))
			}
		}
	}
	return schema
}

// contentHash fingerprints the schema and every record value. Amounts are
// hashed exactly, not at display precision.
func contentHash(schema []Field, records []PORecord) string {
	h := sha256.New()
	for _, f := range schema {
		h.Write([]byte(f))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{0x1e})
	for _, r := range records {
		for _, f := range schema {
			if amt, ok := r.Amount(f); ok {
				h.Write([]byte(amt.String()))
			} else {
				h.Write([]byte(r.Value(f)))
			}
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ID returns the content identity of the dataset.
func (d *Dataset) ID() string { return d.id }

// Tag returns the dataset label.
func (d *Dataset) Tag() string { return d.tag }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// At returns the i-th record. The Extra map is shared with the dataset and
// must not be modified.
func (d *Dataset) At(i int) PORecord { return d.records[i] }

// Records returns a copy of all records in order.
func (d *Dataset) Records() []PORecord {
	out := make([]PORecord, len(d.records))
	for i, r := range d.records {
		out[i] = r.clone()
	}
	return out
}

// Schema returns the fields the dataset exposes, in declaration order.
func (d *Dataset) Schema() []Field {
	return append([]Field(nil), d.schema...)
}

// Has reports whether f is in the schema.
func (d *Dataset) Has(f Field) bool { return d.inSchema[f] }

// Require returns a SchemaMismatchError for the first field not in the
// schema.
func (d *Dataset) Require(fields ...Field) error {
	for _, f := range fields {
		if !d.inSchema[f] {
			return &SchemaMismatchError{Field: f, Dataset: d.tag, Available: d.Schema()}
		}
	}
	return nil
}

// =============================================================================
// DERIVED SNAPSHOTS
// =============================================================================

// Select returns a new dataset holding the records for which keep returns
// true, in the original order, with the same schema and tag.
func (d *Dataset) Select(keep func(r PORecord) bool) *Dataset {
	out := &Dataset{
		schema:   d.schema,
		inSchema: d.inSchema,
		tag:      d.tag,
	}
	for _, r := range d.records {
		if keep(r) {
			out.records = append(out.records, r)
		}
	}
	out.id = contentHash(out.schema, out.records)
	return out
}

// Map returns a new dataset whose records are produced by fn. The result is
// validated like any new dataset and keeps this dataset's schema.
func (d *Dataset) Map(fn func(i int, r PORecord) PORecord, tag string) (*Dataset, error) {
	records := make([]PORecord, len(d.records))
	for i, r := range d.records {
		records[i] = fn(i, r.clone())
	}
	return NewDataset(records, WithSchema(d.schema), WithTag(tag))
}
