package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/portfolio-site/portfolio-api/internal/document"
)

// MemoryRepo keeps collections in process memory. It backs unit tests and the
// store-less development mode; ids use the same ObjectID format as MongoRepo.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]map[string]document.Document
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		store: make(map[string]map[string]document.Document),
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// WithClock replaces the timestamp source; used by tests.
func (m *MemoryRepo) WithClock(now func() time.Time) *MemoryRepo {
	m.now = now
	return m
}

func validID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (m *MemoryRepo) collection(name string) map[string]document.Document {
	c, ok := m.store[name]
	if !ok {
		c = make(map[string]document.Document)
		m.store[name] = c
	}
	return c
}

func (m *MemoryRepo) List(ctx context.Context, collection string, q document.Query) ([]document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]document.Document, 0, len(m.store[collection]))
	for _, d := range m.store[collection] {
		if q.Match(d) {
			out = append(out, d.Clone())
		}
	}
	document.SortBy(out, q.SortField(), !q.Asc)
	return out, nil
}

func (m *MemoryRepo) Get(ctx context.Context, collection, id string) (document.Document, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (m *MemoryRepo) Insert(ctx context.Context, collection string, fields document.Document) (document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(collection, fields), nil
}

func (m *MemoryRepo) insertLocked(collection string, fields document.Document) document.Document {
	d := fields.WritableFields().Clone()
	d[document.FieldID] = primitive.NewObjectID().Hex()
	d[document.FieldCreatedAt] = m.now()
	m.collection(collection)[d.ID()] = d
	return d.Clone()
}

func (m *MemoryRepo) Update(ctx context.Context, collection, id string, fields document.Document) (document.Document, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	m.mergeLocked(d, fields)
	return d.Clone(), nil
}

func (m *MemoryRepo) mergeLocked(d, fields document.Document) {
	for k, v := range fields.WritableFields().Clone() {
		d[k] = v
	}
	d[document.FieldUpdatedAt] = m.now()
}

func (m *MemoryRepo) Upsert(ctx context.Context, collection string, fields document.Document, conflictKeys []string) (document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	filter := conflictFilter(fields, conflictKeys)
	if len(filter) > 0 {
		var oldest document.Document
		for _, d := range m.store[collection] {
			if !document.Matches(d, filter) {
				continue
			}
			if oldest == nil || d.CreatedAt().Before(oldest.CreatedAt()) ||
				(d.CreatedAt().Equal(oldest.CreatedAt()) && d.ID() < oldest.ID()) {
				oldest = d
			}
		}
		if oldest != nil {
			m.mergeLocked(oldest, fields)
			return oldest.Clone(), nil
		}
	}
	return m.insertLocked(collection, fields), nil
}

func (m *MemoryRepo) Delete(ctx context.Context, collection, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.store[collection], id)
	return nil
}

func (m *MemoryRepo) Increment(ctx context.Context, collection string, key document.Document, field string, delta int64) (document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var target document.Document
	for _, d := range m.store[collection] {
		if document.Matches(d, key) {
			target = d
			break
		}
	}
	if target == nil {
		target = key.WritableFields().Clone()
		target[document.FieldID] = primitive.NewObjectID().Hex()
		target[document.FieldCreatedAt] = m.now()
		m.collection(collection)[target.ID()] = target
	}
	var cur int64
	switch n := target[field].(type) {
	case int64:
		cur = n
	case int32:
		cur = int64(n)
	case int:
		cur = int64(n)
	case float64:
		cur = int64(n)
	}
	target[field] = cur + delta
	return target.Clone(), nil
}
