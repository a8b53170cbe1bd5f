package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/document"
	"github.com/portfolio-site/portfolio-api/internal/document/repository"
)

type downRepo struct{ repository.Repository }

func (downRepo) Increment(context.Context, string, document.Document, string, int64) (document.Document, error) {
	return nil, errors.New("no reachable servers")
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestIncrementPageView_FirstAndRepeat(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	svc := NewService(repository.NewMemoryRepo()).WithClock(fixedClock(day))

	r, err := svc.IncrementPageView(ctx, "home")
	require.NoError(t, err)
	require.Equal(t, "home", r.Page)
	require.Equal(t, "2024-05-01", r.Date)
	require.Equal(t, int64(1), r.Views)
	require.NotEmpty(t, r.ID)

	r2, err := svc.IncrementPageView(ctx, "home")
	require.NoError(t, err)
	require.Equal(t, r.ID, r2.ID)
	require.Equal(t, int64(2), r2.Views)
}

func TestIncrementPageView_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	svc := NewService(repo).WithClock(fixedClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementPageView(ctx, "about")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	docs, err := repo.List(ctx, CollectionName, document.Query{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, int64(n), recordFrom(docs[0]).Views)
}

func TestIncrementPageView_DayBoundaryUsesUTC(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	// 23:30 in UTC-5 is already the next day in UTC
	local := time.FixedZone("EST", -5*3600)
	svc := NewService(repo).WithClock(fixedClock(time.Date(2024, 5, 1, 23, 30, 0, 0, local)))

	r, err := svc.IncrementPageView(ctx, "home")
	require.NoError(t, err)
	require.Equal(t, "2024-05-02", r.Date)

	svc.WithClock(fixedClock(time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)))
	r2, err := svc.IncrementPageView(ctx, "home")
	require.NoError(t, err)
	require.NotEqual(t, r.ID, r2.ID)
	require.Equal(t, int64(1), r2.Views)

	docs, err := repo.List(ctx, CollectionName, document.Query{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestIncrementPageView_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(repository.NewMemoryRepo()).IncrementPageView(ctx, "  ")
	require.ErrorIs(t, err, apierr.ErrInvalidArgument)

	_, err = NewService(downRepo{}).IncrementPageView(ctx, "home")
	require.ErrorIs(t, err, apierr.ErrStorageUnavailable)
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates unique page/date index", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, EnsureIndexes(context.Background(), mt.DB))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		require.Equal(mt, "createIndexes", started.CommandName)
		indexes := started.Command.Lookup("indexes").Array()
		first, err := indexes.IndexErr(0)
		require.NoError(mt, err)
		require.True(mt, first.Value().Document().Lookup("unique").Boolean())
		keys, err := first.Value().Document().Lookup("key").Document().Elements()
		require.NoError(mt, err)
		require.Len(mt, keys, 2)
		require.Equal(mt, "page", keys[0].Key())
		require.Equal(mt, "date", keys[1].Key())
	})
}
