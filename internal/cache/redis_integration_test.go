//go:build integration

package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"vurc_dashboard/ingestion/internal/dataset"
	"vurc_dashboard/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: go test -v -tags=integration ./internal/cache/...

func TestRedisCache_Publish(t *testing.T) {
	c, err := NewRedisCache(Config{Host: "localhost", Port: 6379, DB: 15, KeyPrefix: "vurc:test"})
	require.NoError(t, err, "Failed to connect to test redis")
	defer c.Close()

	ctx := context.Background()
	ds := &dataset.Dataset{
		RunID: "run-1",
		Rows: []models.TeamMetric{
			{Team: "SJTU1", Elo: 1516, StrengthOfSchedule: 0.8, DriverSkills: sql.NullInt32{Int32: 57, Valid: true}},
		},
		GeneratedAt: time.Date(2025, 11, 8, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, c.Publish(ctx, ds))

	got, err := c.CSV(ctx)
	require.NoError(t, err)
	want, err := ds.CSV()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	updated, err := c.UpdatedAt(ctx)
	require.NoError(t, err)
	assert.True(t, updated.Equal(ds.GeneratedAt))
}
