package document

import (
	"strconv"
	"strings"
)

// Query narrows and orders a list operation. The zero value lists everything,
// newest first.
type Query struct {
	// Filter maps a field to the values it may equal; a document matches when
	// every field equals at least one of its candidates.
	Filter  map[string][]any
	OrderBy string
	Asc     bool
}

// SortField returns the field to order by, defaulting to created_at.
func (q Query) SortField() string {
	if q.OrderBy == "" {
		return FieldCreatedAt
	}
	return q.OrderBy
}

// Match reports whether d satisfies q's filter.
func (q Query) Match(d Document) bool {
	for field, candidates := range q.Filter {
		got, ok := d[field]
		if !ok {
			return false
		}
		hit := false
		for _, c := range candidates {
			if valuesEqual(got, c) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// FilterCandidates expands a raw query-string value into the values a stored
// field may hold: the string itself plus its bool or number reading.
func FilterCandidates(raw string) []any {
	out := []any{raw}
	switch strings.ToLower(raw) {
	case "true":
		return append(out, true)
	case "false":
		return append(out, false)
	case "null":
		return append(out, nil)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		out = append(out, f)
	}
	return out
}
