package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/document"
	"github.com/portfolio-site/portfolio-api/internal/document/service"
)

const fixtureJSON = `{
  "projects": [{"title": "Portfolio", "featured": true}, {"title": "CLI"}],
  "skills": [{"title": "Go", "level": 5}]
}`

func TestImportFixtures_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := service.NewMemoryService()

	counts, err := importFixtures(ctx, svc, strings.NewReader(fixtureJSON), []string{"title"})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"projects": 2, "skills": 1}, counts)

	_, err = importFixtures(ctx, svc, strings.NewReader(fixtureJSON), []string{"title"})
	require.NoError(t, err)

	projects, err := svc.List(ctx, "projects", document.Query{})
	require.NoError(t, err)
	require.Len(t, projects, 2)
}

func TestImportFixtures_Errors(t *testing.T) {
	ctx := context.Background()
	svc := service.NewMemoryService()

	_, err := importFixtures(ctx, svc, strings.NewReader(`[1,2]`), nil)
	require.Error(t, err)

	_, err = importFixtures(ctx, svc, strings.NewReader(`{"users":[{"email":"x"}]}`), nil)
	require.ErrorIs(t, err, apierr.ErrInvalidArgument)
}
