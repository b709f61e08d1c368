package pipeline

import (
	"context"
	"fmt"
	"time"

	"vurc_dashboard/ingestion/internal/config"
	"vurc_dashboard/ingestion/internal/dataset"
	"vurc_dashboard/ingestion/internal/history"
	"vurc_dashboard/ingestion/internal/metrics"
	"vurc_dashboard/ingestion/internal/models"
	"vurc_dashboard/ingestion/internal/rating"
	"vurc_dashboard/ingestion/internal/skills"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Publisher is a destination for a finished dataset
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ds *dataset.Dataset) error
}

// HistoryBuilder produces the match history of a season
type HistoryBuilder interface {
	Build(ctx context.Context, sel history.SeasonSelector) (*history.History, error)
}

var _ HistoryBuilder = (*history.Builder)(nil)

// Options controls one rating run
type Options struct {
	Season history.SeasonSelector

	KFactor    float64
	InitialElo float64
	SoSMin     float64
	SoSMax     float64

	IncludeInactive bool
}

// OptionsFromConfig maps configuration onto run options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Season: history.SeasonSelector{
			ProgramID: cfg.ProgramID,
			SeasonID:  cfg.SeasonID,
			Year:      cfg.SeasonYear,
		},
		KFactor:         cfg.EloKFactor,
		InitialElo:      cfg.EloInitial,
		SoSMin:          cfg.SoSMin,
		SoSMax:          cfg.SoSMax,
		IncludeInactive: cfg.IncludeInactiveTeams,
	}
}

// Report summarizes a successful run
type Report struct {
	RunID    string
	Season   models.Season
	Teams    int
	Matches  int
	Skipped  int
	Duration time.Duration
}

// Pipeline fetches a season, rates it and publishes the dataset
type Pipeline struct {
	builder    HistoryBuilder
	opts       Options
	publishers []Publisher

	newRunID func() string
}

// New creates a pipeline. Publishers run in order; put the primary output first.
func New(builder HistoryBuilder, opts Options, publishers ...Publisher) *Pipeline {
	return &Pipeline{
		builder:    builder,
		opts:       opts,
		publishers: publishers,
		newRunID:   uuid.NewString,
	}
}

// Run performs one full pass. Ratings are recomputed from scratch; nothing
// is published unless every step before publishing succeeded.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := p.newRunID()
	logger := log.With().Str("run_id", runID).Logger()

	logger.Info().Msg("Rating run started")

	report, err := p.run(ctx, runID)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordRun("failure", duration.Seconds())
		metrics.RecordError("pipeline", "run_failed")
		logger.Error().Err(err).Dur("duration", duration).Msg("Rating run failed, previous dataset left in place")
		return nil, err
	}

	report.Duration = duration
	metrics.RecordRun("success", duration.Seconds())
	metrics.UpdateDatasetStats(report.Teams, report.Matches)

	logger.Info().
		Str("season", report.Season.Name).
		Int("teams", report.Teams).
		Int("matches", report.Matches).
		Int("skipped", report.Skipped).
		Dur("duration", duration).
		Msg("Rating run completed")

	return report, nil
}

func (p *Pipeline) run(ctx context.Context, runID string) (*Report, error) {
	h, err := p.builder.Build(ctx, p.opts.Season)
	if err != nil {
		return nil, fmt.Errorf("failed to build match history: %w", err)
	}

	ds := p.compute(h)
	ds.RunID = runID

	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to publish dataset: %w", err)
	}

	// Cancellation after this point must not leave a half-published run
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, ds); err != nil {
			metrics.RecordPublish(pub.Name(), "failure")
			return nil, fmt.Errorf("failed to publish to %s: %w", pub.Name(), err)
		}
		metrics.RecordPublish(pub.Name(), "success")
	}

	return &Report{
		RunID:   runID,
		Season:  h.Season,
		Teams:   len(ds.Rows),
		Matches: ds.Matches,
		Skipped: h.SkippedTotal(),
	}, nil
}

// compute runs the rating pass, normalizes SoS and joins skills
func (p *Pipeline) compute(h *history.History) *dataset.Dataset {
	res := rating.NewComputer(p.opts.KFactor, p.opts.InitialElo).Compute(h.Matches)

	normalizer := rating.NewNormalizer(p.opts.SoSMin, p.opts.SoSMax)
	sos := normalizer.Normalize(res.Ledger, res.Ratings)

	best := skills.Aggregate(h.Skills)

	unrostered := 0
	roster := make(map[string]struct{}, len(h.Teams))
	for _, team := range h.Teams {
		roster[team.Number] = struct{}{}
	}
	for _, team := range res.Ratings.Teams() {
		if _, ok := roster[team]; !ok {
			unrostered++
		}
	}
	if unrostered > 0 {
		log.Warn().Int("teams", unrostered).Msg("Rated teams missing from roster are not published")
	}

	return dataset.Assemble(h.Season, h.Teams, res, sos, best, dataset.Options{
		IncludeInactive: p.opts.IncludeInactive,
		SoSMin:          normalizer.Min,
		SoSMax:          normalizer.Max,
	})
}
