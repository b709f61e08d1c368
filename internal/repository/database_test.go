//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"vurc_dashboard/ingestion/internal/dataset"
	"vurc_dashboard/ingestion/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests for database operations
// Run with: go test -v -tags=integration ./internal/repository/...

func setupTestDB(t *testing.T) (*Database, context.Context) {
	ctx := context.Background()

	cfg := Config{
		Host:     "localhost",
		Port:     5432,
		Database: "vurc_test",
		User:     "vurc_user",
		Password: "vurc_password",
		SSLMode:  "disable",
	}

	db, err := NewDatabase(ctx, cfg)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, db.EnsureSchema(ctx), "Failed to create schema")

	return db, ctx
}

func teardownTestDB(t *testing.T, db *Database) {
	db.Close()
}

func TestDatabaseConnection(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	// Test health check
	err := db.Health(ctx)
	assert.NoError(t, err, "Database health check should pass")

	// Test stats
	stats := db.PoolStats()
	assert.NotNil(t, stats, "Should return connection pool stats")
	assert.GreaterOrEqual(t, stats["max_conns"].(int32), int32(1), "Should have at least 1 max connection")
}

func TestDatabasePing(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := db.Pool.Ping(ctx)
	assert.NoError(t, err, "Should successfully ping database")
}

func snapshot(rows ...models.TeamMetric) *dataset.Dataset {
	return &dataset.Dataset{
		RunID:       uuid.NewString(),
		Season:      models.Season{ID: 190, Name: "VEX U 2025-2026"},
		Rows:        rows,
		Matches:     3,
		SoSMin:      0.3,
		SoSMax:      0.8,
		GeneratedAt: time.Now().UTC(),
	}
}

func TestMetricsRepository_Publish(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	first := snapshot(
		models.TeamMetric{Team: "SJTU1", Elo: 1516, StrengthOfSchedule: 0.8, DriverSkills: sql.NullInt32{Int32: 57, Valid: true}, Matches: 1},
		models.TeamMetric{Team: "UCF1", Elo: 1484, StrengthOfSchedule: 0.3, Matches: 1},
	)
	require.NoError(t, db.Metrics.Publish(ctx, first), "Should store snapshot")

	stored, err := db.Metrics.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "SJTU1", stored[0].Team, "Should order by Elo")
	assert.Equal(t, int32(57), stored[0].DriverSkills.Int32)
	assert.False(t, stored[1].DriverSkills.Valid, "Missing skills stay NULL")

	second := snapshot(models.TeamMetric{Team: "MIT1", Elo: 1500, StrengthOfSchedule: 0.55})
	require.NoError(t, db.Metrics.Publish(ctx, second), "Should replace snapshot")

	stored, err = db.Metrics.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1, "Only the latest snapshot is kept")
	assert.Equal(t, "MIT1", stored[0].Team)

	run, err := db.Metrics.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, run.RunID)
	assert.Equal(t, 1, run.Teams)
	assert.Equal(t, 190, run.SeasonID)
}
