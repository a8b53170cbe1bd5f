package repository

import (
	"context"
	"errors"

	"github.com/portfolio-site/portfolio-api/internal/document"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrInvalidID = errors.New("invalid document id")
)

// Repository is the storage contract behind the gateway. Implementations must
// make every single-document write atomic; Increment must use the store's
// native find-or-create-and-increment primitive.
type Repository interface {
	List(ctx context.Context, collection string, q document.Query) ([]document.Document, error)
	Get(ctx context.Context, collection, id string) (document.Document, error)
	Insert(ctx context.Context, collection string, fields document.Document) (document.Document, error)
	Update(ctx context.Context, collection, id string, fields document.Document) (document.Document, error)
	// Upsert merges fields into the oldest document whose conflictKeys values
	// equal those in fields, or inserts when none match. Keys absent from
	// fields are ignored; with no usable key it always inserts.
	Upsert(ctx context.Context, collection string, fields document.Document, conflictKeys []string) (document.Document, error)
	Delete(ctx context.Context, collection, id string) error
	// Increment adds delta to field on the document matching key, creating it
	// (with key's fields and created_at) when missing, and returns the result.
	Increment(ctx context.Context, collection string, key document.Document, field string, delta int64) (document.Document, error)
}

// conflictFilter builds the equality filter used by Upsert.
func conflictFilter(fields document.Document, keys []string) document.Document {
	filter := document.Document{}
	for _, k := range keys {
		if document.IsReserved(k) {
			continue
		}
		if v, ok := fields[k]; ok {
			filter[k] = v
		}
	}
	return filter
}
