package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"vurc_dashboard/ingestion/internal/client"
	"vurc_dashboard/ingestion/internal/metrics"
	"vurc_dashboard/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrNoSeason is returned when no season can be resolved for the selector
var ErrNoSeason = errors.New("no season found")

// Skip reasons recorded per excluded match
const (
	ReasonMissingAlliance = "missing_alliance"
	ReasonEmptyAlliance   = "empty_alliance"
	ReasonMissingStart    = "missing_start"
	ReasonTeamOnBothSides = "team_on_both_sides"
	ReasonNotCompleted    = "not_completed"
	ReasonNoTeamNumber    = "team_without_number"
	ReasonInvalidMatch    = "invalid_match"
)

// Source is the subset of the RobotEvents client the builder depends on
type Source interface {
	FetchSeasons(ctx context.Context, programID int) ([]models.Season, error)
	FetchTeams(ctx context.Context, programID, seasonID int) ([]models.TeamInput, error)
	FetchEvents(ctx context.Context, programID, seasonID int) ([]models.Event, error)
	FetchDivisionMatches(ctx context.Context, eventID, divisionID int) ([]models.MatchInput, error)
	FetchEventSkills(ctx context.Context, eventID int) ([]models.SkillInput, error)
}

var _ Source = (*client.Client)(nil)

// SeasonSelector picks the season to build. SeasonID wins when set,
// otherwise the season is resolved from Year.
type SeasonSelector struct {
	ProgramID int
	SeasonID  int
	Year      int
}

// History is everything one rating pass needs for a season
type History struct {
	Season models.Season
	Teams  []models.Team

	// Matches holds completed matches only, ordered by start time then ingestion order
	Matches []models.Match

	Skills []models.SkillAttempt

	// Skipped counts excluded records per reason
	Skipped map[string]int
}

// SkippedTotal returns the number of excluded records
func (h *History) SkippedTotal() int {
	total := 0
	for _, n := range h.Skipped {
		total += n
	}
	return total
}

// Builder collects a season's roster, matches and skills from the API
type Builder struct {
	source   Source
	cooldown time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewBuilder creates a builder. cooldown is slept between fetch phases to let
// the API quota recover; zero disables it.
func NewBuilder(source Source, cooldown time.Duration) *Builder {
	return &Builder{
		source:   source,
		cooldown: cooldown,
		sleep:    sleepContext,
	}
}

// Build fetches and assembles the history of one season. Any fetch failure
// other than a missing division or skills resource aborts the build.
func (b *Builder) Build(ctx context.Context, sel SeasonSelector) (*History, error) {
	season, err := b.resolveSeason(ctx, sel)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("season_id", season.ID).
		Str("season", season.Name).
		Msg("Building match history")

	h := &History{
		Season:  *season,
		Skipped: make(map[string]int),
	}

	if err := b.loadTeams(ctx, sel.ProgramID, h); err != nil {
		return nil, err
	}

	events, err := b.source.FetchEvents(ctx, sel.ProgramID, season.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	log.Info().Int("events", len(events)).Msg("Events fetched")

	if err := b.pause(ctx, "matches"); err != nil {
		return nil, err
	}
	if err := b.loadMatches(ctx, events, h); err != nil {
		return nil, err
	}

	if err := b.pause(ctx, "skills"); err != nil {
		return nil, err
	}
	if err := b.loadSkills(ctx, events, h); err != nil {
		return nil, err
	}

	sortMatches(h.Matches)

	log.Info().
		Int("teams", len(h.Teams)).
		Int("matches", len(h.Matches)).
		Int("skills", len(h.Skills)).
		Int("skipped", h.SkippedTotal()).
		Msg("Match history built")

	return h, nil
}

// resolveSeason returns the configured season, or the first whose name
// mentions the year, or the last season listed
func (b *Builder) resolveSeason(ctx context.Context, sel SeasonSelector) (*models.Season, error) {
	if sel.SeasonID > 0 {
		return &models.Season{ID: sel.SeasonID, Name: fmt.Sprintf("season %d", sel.SeasonID)}, nil
	}

	seasons, err := b.source.FetchSeasons(ctx, sel.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seasons: %w", err)
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("%w for program %d", ErrNoSeason, sel.ProgramID)
	}

	for i := range seasons {
		if seasons[i].MatchesYear(sel.Year) {
			return &seasons[i], nil
		}
	}

	fallback := seasons[len(seasons)-1]
	log.Warn().
		Int("year", sel.Year).
		Int("season_id", fallback.ID).
		Str("season", fallback.Name).
		Msg("No season matches year, using latest")
	return &fallback, nil
}

func (b *Builder) loadTeams(ctx context.Context, programID int, h *History) error {
	inputs, err := b.source.FetchTeams(ctx, programID, h.Season.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch teams: %w", err)
	}

	h.Teams = make([]models.Team, 0, len(inputs))
	for i := range inputs {
		team := inputs[i].ToTeam()
		if team.Number == "" {
			h.skip(ReasonNoTeamNumber)
			log.Warn().Int("team_id", team.ID).Msg("Team has no number, skipping")
			continue
		}
		h.Teams = append(h.Teams, *team)
	}

	log.Info().Int("teams", len(h.Teams)).Msg("Roster fetched")
	return nil
}

func (b *Builder) loadMatches(ctx context.Context, events []models.Event, h *History) error {
	seq := 0
	for _, event := range events {
		if len(event.Divisions) == 0 {
			log.Debug().Int("event_id", event.ID).Str("event", event.Name).Msg("Event has no divisions, skipping")
			continue
		}

		for _, div := range event.Divisions {
			inputs, err := b.source.FetchDivisionMatches(ctx, event.ID, div.ID)
			if errors.Is(err, client.ErrNotFound) {
				log.Warn().
					Int("event_id", event.ID).
					Int("division_id", div.ID).
					Msg("Division matches not found, skipping")
				continue
			}
			if err != nil {
				return err
			}

			for i := range inputs {
				match, err := inputs[i].ToMatch(event.ID, div.ID, seq)
				seq++
				if err != nil {
					reason := skipReason(err)
					h.skip(reason)
					log.Warn().
						Err(err).
						Int("match_id", inputs[i].ID).
						Int("event_id", event.ID).
						Str("reason", reason).
						Msg("Malformed match, skipping")
					continue
				}

				if !match.IsCompleted() {
					h.skip(ReasonNotCompleted)
					continue
				}
				h.Matches = append(h.Matches, *match)
			}
		}
	}

	log.Info().Int("matches", len(h.Matches)).Msg("Completed matches collected")
	return nil
}

func (b *Builder) loadSkills(ctx context.Context, events []models.Event, h *History) error {
	for _, event := range events {
		inputs, err := b.source.FetchEventSkills(ctx, event.ID)
		if errors.Is(err, client.ErrNotFound) {
			log.Warn().Int("event_id", event.ID).Msg("Event skills not found, skipping")
			continue
		}
		if err != nil {
			return err
		}

		for i := range inputs {
			h.Skills = append(h.Skills, *inputs[i].ToAttempt(event.ID))
		}
	}

	log.Info().Int("skills", len(h.Skills)).Msg("Skills records collected")
	return nil
}

func (b *Builder) pause(ctx context.Context, next string) error {
	if b.cooldown <= 0 {
		return ctx.Err()
	}
	log.Info().Dur("cooldown", b.cooldown).Str("next_phase", next).Msg("Cooling down before next phase")
	return b.sleep(ctx, b.cooldown)
}

func (h *History) skip(reason string) {
	h.Skipped[reason]++
	metrics.RecordSkipped(reason)
}

// sortMatches orders matches by start time; ties keep ingestion order
func sortMatches(matches []models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].Started.Equal(matches[j].Started) {
			return matches[i].Started.Before(matches[j].Started)
		}
		return matches[i].Seq < matches[j].Seq
	})
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, models.ErrMissingAlliance):
		return ReasonMissingAlliance
	case errors.Is(err, models.ErrEmptyAlliance):
		return ReasonEmptyAlliance
	case errors.Is(err, models.ErrMissingStart):
		return ReasonMissingStart
	case errors.Is(err, models.ErrTeamOnBothSides):
		return ReasonTeamOnBothSides
	default:
		return ReasonInvalidMatch
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
