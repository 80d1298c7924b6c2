//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
	"github.com/AI-Template-SDK/senso-visibility/internal/store"
)

func newPostgresStore(t *testing.T) *store.ReportStore {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("visibility_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := store.NewReportStore(db)
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSchema(ctx), "schema creation is idempotent")
	return s
}

func TestReportStorePostgres(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	report := sampleReport()
	report.Competitors = []string{"BetaCorp"}
	report.RegionPerformance = []models.ScoreBreakdown{{Key: "europe", AverageScore: 72, Contexts: 1}}
	report.PersonaPerformance = []models.ScoreBreakdown{{Key: "developer", AverageScore: 72, Contexts: 1}}
	require.NoError(t, s.Save(ctx, report))

	got, err := s.Get(ctx, reportID)
	require.NoError(t, err)
	assert.Equal(t, 72, got.GlobalScore)
	assert.Equal(t, []string{"BetaCorp"}, got.Competitors)

	report.GlobalScore = 80
	require.NoError(t, s.Save(ctx, report))
	summaries, err := s.List(ctx, "acme", 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 80, summaries[0].GlobalScore)

	tracked, err := s.Tracked(ctx, report.Timestamp.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Equal(t, []models.Region{models.RegionEurope}, tracked[0].Regions)

	_, err = s.Get(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, store.ErrReportNotFound)
}
