package engine

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/po-budget-report/internal/model"
)

// Predicates maps a field to its accepted values. Fields combine with AND,
// values within a field with OR. A field mapped to an empty slice accepts
// nothing; a field that is not a key is not filtered.
//
// Values match the trimmed field value exactly. A blank accepted value
// matches records whose field is blank (the "(unknown)" bucket).
type Predicates map[model.Field][]string

// Fields returns the filtered fields in sorted order.
func (p Predicates) Fields() []model.Field {
	fields := make([]model.Field, 0, len(p))
	for f := range p {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Key returns a canonical string for the predicate set, independent of map
// and value order.
func (p Predicates) Key() string {
	var b strings.Builder
	for _, f := range p.Fields() {
		vals := make([]string, len(p[f]))
		for i, v := range p[f] {
			vals[i] = normalizeAccepted(v)
		}
		sort.Strings(vals)
		b.WriteString(string(f))
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, "\x1f"))
		b.WriteByte(';')
	}
	return b.String()
}

func normalizeAccepted(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return model.Unknown
	}
	return v
}

// Filter returns the records of ds that satisfy every predicate, in their
// original order. An empty predicate set returns ds itself. A predicate on a
// field outside the schema is a SchemaMismatchError.
func Filter(ds *model.Dataset, preds Predicates) (*model.Dataset, error) {
	if len(preds) == 0 {
		return ds, nil
	}
	fields := preds.Fields()
	if err := ds.Require(fields...); err != nil {
		return nil, err
	}

	accept := make(map[model.Field]map[string]bool, len(fields))
	for _, f := range fields {
		set := make(map[string]bool, len(preds[f]))
		for _, v := range preds[f] {
			set[normalizeAccepted(v)] = true
		}
		accept[f] = set
	}

	return ds.Select(func(r model.PORecord) bool {
		for _, f := range fields {
			if !accept[f][r.GroupValue(f)] {
				return false
			}
		}
		return true
	}), nil
}
