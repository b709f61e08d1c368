package dataset

import (
	"errors"
	"fmt"
	"time"

	"vurc_dashboard/ingestion/internal/models"
	"vurc_dashboard/ingestion/internal/rating"
	"vurc_dashboard/ingestion/internal/skills"
)

var (
	// ErrEmptyDataset is returned when a run produced nothing worth publishing
	ErrEmptyDataset = errors.New("dataset has no rated matches")

	// ErrSoSOutOfRange is returned when a row's SoS falls outside the configured range
	ErrSoSOutOfRange = errors.New("strength of schedule out of range")
)

// Options controls dataset assembly
type Options struct {
	// IncludeInactive keeps roster teams that played no rated match. They
	// carry the initial Elo and the fallback SoS.
	IncludeInactive bool

	SoSMin float64
	SoSMax float64
}

// DefaultOptions returns the assembly options used when none are configured
func DefaultOptions() Options {
	return Options{
		IncludeInactive: true,
		SoSMin:          rating.DefaultSoSMin,
		SoSMax:          rating.DefaultSoSMax,
	}
}

// Dataset is the per-team output table of one run
type Dataset struct {
	// RunID identifies the run that produced the dataset
	RunID string

	Season  models.Season
	Rows    []models.TeamMetric
	Matches int

	SoSMin float64
	SoSMax float64

	GeneratedAt time.Time
}

// Assemble joins the roster with final ratings, SoS and skills. Rows follow
// roster order; a team number listed twice keeps its first entry. Rated
// teams missing from the roster are not emitted.
func Assemble(season models.Season, teams []models.Team, res rating.Result, sos rating.SoS, best map[string]skills.Best, opts Options) *Dataset {
	ds := &Dataset{
		Season:      season,
		Rows:        make([]models.TeamMetric, 0, len(teams)),
		Matches:     res.Matches,
		SoSMin:      opts.SoSMin,
		SoSMax:      opts.SoSMax,
		GeneratedAt: time.Now().UTC(),
	}

	seen := make(map[string]struct{}, len(teams))
	for _, team := range teams {
		if _, dup := seen[team.Number]; dup {
			continue
		}
		seen[team.Number] = struct{}{}

		row := models.TeamMetric{
			Team:               team.Number,
			Elo:                res.Ratings.Get(team.Number),
			StrengthOfSchedule: sos.Get(team.Number),
			Matches:            res.Played[team.Number],
		}
		if b, ok := best[team.Number]; ok {
			row.DriverSkills = b.Driver
			row.ProgrammingSkills = b.Programming
		}

		if !row.HasMatches() && !opts.IncludeInactive {
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds
}

// Validate checks the dataset may replace the published one
func (d *Dataset) Validate() error {
	if len(d.Rows) == 0 || d.Matches == 0 {
		return ErrEmptyDataset
	}

	for _, row := range d.Rows {
		if row.StrengthOfSchedule < d.SoSMin || row.StrengthOfSchedule > d.SoSMax {
			return fmt.Errorf("%w: team %s has %.4f, want [%.2f, %.2f]",
				ErrSoSOutOfRange, row.Team, row.StrengthOfSchedule, d.SoSMin, d.SoSMax)
		}
	}
	return nil
}

// ActiveTeams returns the number of rows with at least one rated match
func (d *Dataset) ActiveTeams() int {
	n := 0
	for i := range d.Rows {
		if d.Rows[i].HasMatches() {
			n++
		}
	}
	return n
}
