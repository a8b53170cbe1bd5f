package document

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reserved field names managed by the store. Clients may read them but any
// value they send for them is discarded on write.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Document is a schema-less record. Values are limited to what encoding/json
// produces (string, float64, bool, nil, []any, map[string]any) plus int64
// counters and time.Time for the managed timestamps.
type Document map[string]any

// ID returns the document identifier, or "" when unset.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// CreatedAt returns the creation timestamp, zero when absent.
func (d Document) CreatedAt() time.Time {
	t, _ := d[FieldCreatedAt].(time.Time)
	return t
}

// UpdatedAt returns the last-modified timestamp, zero when absent.
func (d Document) UpdatedAt() time.Time {
	t, _ := d[FieldUpdatedAt].(time.Time)
	return t
}

// IsReserved reports whether name is a store-managed field.
func IsReserved(name string) bool {
	switch name {
	case FieldID, "_id", FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// WritableFields returns a copy of d without reserved fields.
func (d Document) WritableFields() Document {
	out := make(Document, len(d))
	for k, v := range d {
		if IsReserved(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// Clone deep-copies d so callers never share nested maps or slices.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case Document:
		return Document(cloneValue(map[string]any(vv)).(map[string]any))
	case map[string]any:
		m := make(map[string]any, len(vv))
		for k, x := range vv {
			m[k] = cloneValue(x)
		}
		return m
	case []any:
		s := make([]any, len(vv))
		for i, x := range vv {
			s[i] = cloneValue(x)
		}
		return s
	default:
		return v
	}
}

// ValidateFieldNames rejects names the store cannot hold verbatim: empty
// names, operator-like "$" prefixes and dotted paths.
func ValidateFieldNames(d Document) error {
	for k := range d {
		if k == "" {
			return fmt.Errorf("empty field name")
		}
		if strings.HasPrefix(k, "$") {
			return fmt.Errorf("field %q must not start with '$'", k)
		}
		if strings.Contains(k, ".") {
			return fmt.Errorf("field %q must not contain '.'", k)
		}
	}
	return nil
}

// Matches reports whether every key in filter equals d's value for that key.
func Matches(d Document, filter Document) bool {
	for k, want := range filter {
		got, ok := d[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares JSON-compatible scalars, treating numbers by value.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string, bool, nil:
		return a == b
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Less orders two field values for sorting: numbers, strings and times by
// their natural order; missing values sort first.
func Less(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b != nil
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa < fb
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Before(tb)
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// SortBy sorts docs by field; ties break on id so the order is deterministic.
func SortBy(docs []Document, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i][field], docs[j][field]
		if !Less(a, b) && !Less(b, a) {
			if desc {
				return docs[i].ID() > docs[j].ID()
			}
			return docs[i].ID() < docs[j].ID()
		}
		if desc {
			return Less(b, a)
		}
		return Less(a, b)
	})
}
