package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/portfolio-site/portfolio-api/internal/document"
	"github.com/stretchr/testify/require"
)

// steppingClock returns a strictly increasing time on every call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestMemoryRepoCRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo().WithClock(steppingClock())

	in := document.Document{"title": "Portfolio", "tags": []any{"go", "mongo"}, "featured": true}
	created, err := r.Insert(ctx, "projects", in)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID())
	require.False(t, created.CreatedAt().IsZero())

	got, err := r.Get(ctx, "projects", created.ID())
	require.NoError(t, err)
	require.Equal(t, created, got)
	require.Equal(t, "Portfolio", got["title"])

	list, err := r.List(ctx, "projects", document.Query{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := r.Update(ctx, "projects", created.ID(), document.Document{"title": "New"})
	require.NoError(t, err)
	require.Equal(t, "New", updated["title"])
	require.Equal(t, true, updated["featured"], "omitted fields survive an update")
	require.Equal(t, []any{"go", "mongo"}, updated["tags"])
	require.True(t, updated.UpdatedAt().After(created.CreatedAt()))

	require.NoError(t, r.Delete(ctx, "projects", created.ID()))
	_, err = r.Get(ctx, "projects", created.ID())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, "projects", created.ID()), ErrNotFound)
}

func TestMemoryRepo_ReservedFieldsIgnored(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	created, err := r.Insert(ctx, "skills", document.Document{"id": "forged", "created_at": "yesterday", "name": "Go"})
	require.NoError(t, err)
	require.NotEqual(t, "forged", created.ID())
	require.IsType(t, time.Time{}, created["created_at"])

	updated, err := r.Update(ctx, "skills", created.ID(), document.Document{"id": "other", "name": "Golang"})
	require.NoError(t, err)
	require.Equal(t, created.ID(), updated.ID())
	require.Equal(t, created.CreatedAt(), updated.CreatedAt())
}

func TestMemoryRepo_InvalidID(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	_, err := r.Get(ctx, "projects", "not-an-object-id")
	require.ErrorIs(t, err, ErrInvalidID)
	_, err = r.Update(ctx, "projects", "123", document.Document{})
	require.ErrorIs(t, err, ErrInvalidID)
	require.ErrorIs(t, r.Delete(ctx, "projects", "zzz"), ErrInvalidID)
}

func TestMemoryRepo_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo().WithClock(steppingClock())
	for i, title := range []string{"a", "b", "c"} {
		_, err := r.Insert(ctx, "projects", document.Document{"title": title, "rank": float64(3 - i), "featured": i != 1})
		require.NoError(t, err)
	}

	list, err := r.List(ctx, "projects", document.Query{})
	require.NoError(t, err)
	require.Equal(t, []any{"c", "b", "a"}, titles(list), "newest first by default")

	list, err = r.List(ctx, "projects", document.Query{OrderBy: "rank", Asc: true})
	require.NoError(t, err)
	require.Equal(t, []any{"c", "b", "a"}, titles(list))

	q := document.Query{Filter: map[string][]any{"featured": document.FilterCandidates("true")}}
	list, err = r.List(ctx, "projects", q)
	require.NoError(t, err)
	require.Equal(t, []any{"c", "a"}, titles(list))

	q = document.Query{Filter: map[string][]any{"rank": document.FilterCandidates("2")}}
	list, err = r.List(ctx, "projects", q)
	require.NoError(t, err)
	require.Equal(t, []any{"b"}, titles(list))

	_, err = r.Insert(ctx, "projects", document.Document{"title": "d", "archived": nil})
	require.NoError(t, err)
	q = document.Query{Filter: map[string][]any{"archived": document.FilterCandidates("null")}}
	list, err = r.List(ctx, "projects", q)
	require.NoError(t, err)
	require.Equal(t, []any{"d"}, titles(list), "null matches only documents holding the field")

	list, err = r.List(ctx, "empty", document.Query{})
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func titles(docs []document.Document) []any {
	out := make([]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["title"])
	}
	return out
}

func TestMemoryRepo_Upsert(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo().WithClock(steppingClock())

	first, err := r.Upsert(ctx, "skills", document.Document{"name": "Go", "level": float64(3)}, []string{"name"})
	require.NoError(t, err)

	second, err := r.Upsert(ctx, "skills", document.Document{"name": "Go", "level": float64(5)}, []string{"name"})
	require.NoError(t, err)
	require.Equal(t, first.ID(), second.ID(), "matching conflict key updates in place")
	require.Equal(t, float64(5), second["level"])
	require.False(t, second.UpdatedAt().IsZero())

	list, _ := r.List(ctx, "skills", document.Query{})
	require.Len(t, list, 1)

	third, err := r.Upsert(ctx, "skills", document.Document{"name": "Rust"}, []string{"name"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID(), third.ID())

	// a conflict key missing from the payload cannot match anything
	_, err = r.Upsert(ctx, "skills", document.Document{"level": float64(1)}, []string{"name"})
	require.NoError(t, err)
	list, _ = r.List(ctx, "skills", document.Query{})
	require.Len(t, list, 3)
}

func TestMemoryRepo_UpsertPicksOldestMatch(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo().WithClock(steppingClock())
	older, err := r.Insert(ctx, "skills", document.Document{"name": "Go"})
	require.NoError(t, err)
	_, err = r.Insert(ctx, "skills", document.Document{"name": "Go"})
	require.NoError(t, err)

	got, err := r.Upsert(ctx, "skills", document.Document{"name": "Go", "level": "expert"}, []string{"name"})
	require.NoError(t, err)
	require.Equal(t, older.ID(), got.ID())
}

func TestMemoryRepo_IncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	key := document.Document{"page": "home", "date": "2024-05-01"}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Increment(ctx, "analytics", key, "views", 1)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := r.List(ctx, "analytics", document.Query{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(n), list[0]["views"])
	require.Equal(t, "home", list[0]["page"])
}
