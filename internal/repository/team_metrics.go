package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vurc_dashboard/ingestion/internal/dataset"
	"vurc_dashboard/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

var metricColumns = []string{
	"team_number", "elo", "strength_of_schedule", "driver_skills", "programming_skills", "matches",
}

// MetricsRepository mirrors the published dataset into PostgreSQL
type MetricsRepository struct {
	db *Database
}

// RunRecord describes the run behind the stored snapshot
type RunRecord struct {
	RunID      string    `db:"run_id"`
	SeasonID   int       `db:"season_id"`
	SeasonName string    `db:"season_name"`
	Teams      int       `db:"teams"`
	Matches    int       `db:"matches"`
	FinishedAt time.Time `db:"finished_at"`
}

// Name identifies the publisher in logs and metrics
func (r *MetricsRepository) Name() string {
	return "postgres"
}

// Publish replaces the stored snapshot with the dataset in one transaction.
// Readers see either the previous snapshot or the new one.
func (r *MetricsRepository) Publish(ctx context.Context, ds *dataset.Dataset) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM team_metrics`); err != nil {
		return fmt.Errorf("failed to clear team metrics: %w", err)
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"team_metrics"},
		metricColumns,
		pgx.CopyFromSlice(len(ds.Rows), func(i int) ([]any, error) {
			row := ds.Rows[i]
			return []any{
				row.Team,
				row.Elo,
				row.StrengthOfSchedule,
				nullableInt(row.DriverSkills),
				nullableInt(row.ProgrammingSkills),
				row.Matches,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy team metrics: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM rating_runs`); err != nil {
		return fmt.Errorf("failed to clear rating runs: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO rating_runs (run_id, season_id, season_name, teams, matches, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ds.RunID, ds.Season.ID, ds.Season.Name, len(ds.Rows), ds.Matches, ds.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	log.Info().
		Str("run_id", ds.RunID).
		Int64("rows", copied).
		Msg("Snapshot stored in database")

	return nil
}

// List returns the stored snapshot ordered by Elo, highest first
func (r *MetricsRepository) List(ctx context.Context) ([]models.TeamMetric, error) {
	query := `
		SELECT team_number, elo, strength_of_schedule, driver_skills, programming_skills, matches
		FROM team_metrics
		ORDER BY elo DESC, team_number
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list team metrics: %w", err)
	}
	defer rows.Close()

	var metrics []models.TeamMetric
	for rows.Next() {
		var m models.TeamMetric
		if err := rows.Scan(
			&m.Team, &m.Elo, &m.StrengthOfSchedule,
			&m.DriverSkills, &m.ProgrammingSkills, &m.Matches,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team metric: %w", err)
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team metrics: %w", err)
	}

	return metrics, nil
}

// LatestRun returns the run behind the stored snapshot, or pgx.ErrNoRows
func (r *MetricsRepository) LatestRun(ctx context.Context) (*RunRecord, error) {
	query := `
		SELECT run_id::text, season_id, season_name, teams, matches, finished_at
		FROM rating_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var run RunRecord
	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&run.RunID, &run.SeasonID, &run.SeasonName,
		&run.Teams, &run.Matches, &run.FinishedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return &run, nil
}

func nullableInt(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}
