package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"vurc_dashboard/ingestion/internal/config"
	"vurc_dashboard/ingestion/internal/dataset"
	"vurc_dashboard/ingestion/internal/history"
	"vurc_dashboard/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	h   *history.History
	err error

	calls int
	sel   history.SeasonSelector
}

func (f *fakeBuilder) Build(ctx context.Context, sel history.SeasonSelector) (*history.History, error) {
	f.calls++
	f.sel = sel
	return f.h, f.err
}

type fakePublisher struct {
	name string
	err  error

	published []*dataset.Dataset
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Publish(ctx context.Context, ds *dataset.Dataset) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, ds)
	return nil
}

func win(seq int, winner, loser string) models.Match {
	return models.Match{
		ID:        seq,
		Started:   time.Date(2025, 10, 1, seq, 0, 0, 0, time.UTC),
		Scored:    true,
		Red:       []string{winner},
		Blue:      []string{loser},
		RedScore:  sql.NullInt32{Int32: 3, Valid: true},
		BlueScore: sql.NullInt32{Int32: 1, Valid: true},
		Seq:       seq,
	}
}

func sampleHistory() *history.History {
	return &history.History{
		Season:  models.Season{ID: 190, Name: "VEX U 2025-2026"},
		Teams:   []models.Team{{Number: "A"}, {Number: "B"}, {Number: "C"}, {Number: "Idle"}},
		Matches: []models.Match{win(1, "A", "B"), win(2, "B", "C"), win(3, "A", "C"), win(4, "A", "Ghost")},
		Skills: []models.SkillAttempt{
			{TeamNumber: "A", Type: models.SkillDriver, Score: 40, Attempts: 1},
		},
		Skipped: map[string]int{history.ReasonMissingStart: 2},
	}
}

func testOptions() Options {
	return Options{
		Season:          history.SeasonSelector{ProgramID: 4, Year: 2025},
		KFactor:         32,
		InitialElo:      1500,
		SoSMin:          0.3,
		SoSMax:          0.8,
		IncludeInactive: true,
	}
}

func TestRun_PublishesToAll(t *testing.T) {
	builder := &fakeBuilder{h: sampleHistory()}
	file := &fakePublisher{name: "file"}
	cache := &fakePublisher{name: "redis"}

	p := New(builder, testOptions(), file, cache)
	p.newRunID = func() string { return "run-1" }

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 190, report.Season.ID)
	assert.Equal(t, 4, report.Teams, "Roster teams only; unrostered opponents are not emitted")
	assert.Equal(t, 4, report.Matches)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2025, builder.sel.Year)

	require.Len(t, file.published, 1)
	require.Len(t, cache.published, 1)
	assert.Same(t, file.published[0], cache.published[0], "Every destination gets the same dataset")

	ds := file.published[0]
	assert.Equal(t, "run-1", ds.RunID)
	for _, row := range ds.Rows {
		assert.GreaterOrEqual(t, row.StrengthOfSchedule, 0.3)
		assert.LessOrEqual(t, row.StrengthOfSchedule, 0.8)
	}
	assert.Equal(t, "Idle", ds.Rows[3].Team)
	assert.Equal(t, 1500.0, ds.Rows[3].Elo)
	assert.InDelta(t, 0.55, ds.Rows[3].StrengthOfSchedule, 1e-9)
	assert.Equal(t, int32(40), ds.Rows[0].DriverSkills.Int32)
}

func TestRun_BuildFailurePublishesNothing(t *testing.T) {
	builder := &fakeBuilder{err: errors.New("resource unavailable")}
	file := &fakePublisher{name: "file"}

	report, err := New(builder, testOptions(), file).Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)
	assert.Empty(t, file.published)
}

func TestRun_EmptySeasonPublishesNothing(t *testing.T) {
	h := sampleHistory()
	h.Matches = nil
	file := &fakePublisher{name: "file"}

	_, err := New(&fakeBuilder{h: h}, testOptions(), file).Run(context.Background())
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)
	assert.Empty(t, file.published)
}

func TestRun_PublisherFailureFailsRun(t *testing.T) {
	file := &fakePublisher{name: "file"}
	broken := &fakePublisher{name: "s3", err: errors.New("access denied")}
	after := &fakePublisher{name: "redis"}

	_, err := New(&fakeBuilder{h: sampleHistory()}, testOptions(), file, broken, after).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3")
	assert.Empty(t, after.published, "Later publishers are not attempted")
}

func TestRun_CancelledBeforePublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	file := &fakePublisher{name: "file"}

	_, err := New(&fakeBuilder{h: sampleHistory()}, testOptions(), file).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, file.published)
}

func TestRun_Reproducible(t *testing.T) {
	file := &fakePublisher{name: "file"}
	p := New(&fakeBuilder{h: sampleHistory()}, testOptions(), file)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, file.published, 2)
	first, err := file.published[0].CSV()
	require.NoError(t, err)
	second, err := file.published[1].CSV()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEqual(t, file.published[0].RunID, file.published[1].RunID)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		ProgramID:            4,
		SeasonID:             190,
		SeasonYear:           2025,
		EloKFactor:           24,
		EloInitial:           1400,
		SoSMin:               0.2,
		SoSMax:               0.9,
		IncludeInactiveTeams: false,
	}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, history.SeasonSelector{ProgramID: 4, SeasonID: 190, Year: 2025}, opts.Season)
	assert.Equal(t, 24.0, opts.KFactor)
	assert.Equal(t, 1400.0, opts.InitialElo)
	assert.Equal(t, 0.2, opts.SoSMin)
	assert.Equal(t, 0.9, opts.SoSMax)
	assert.False(t, opts.IncludeInactive)
}

func TestFromConfig_FileOnly(t *testing.T) {
	cfg := &config.Config{
		RobotEventsToken:   "token",
		RobotEventsBaseURL: "http://127.0.0.1:1",
		ProgramID:          4,
		SeasonYear:         2025,
		PerPage:            250,
		EloKFactor:         32,
		EloInitial:         1500,
		SoSMin:             0.3,
		SoSMax:             0.8,
		OutputCSV:          t.TempDir() + "/out.csv",
	}

	p, closeAll, err := FromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer closeAll()

	require.Len(t, p.publishers, 1)
	assert.Equal(t, "file", p.publishers[0].Name())
}

func TestClientOptions(t *testing.T) {
	cfg := &config.Config{
		PerPage:             100,
		RequestInterval:     time.Second,
		RateLimitBackoffMin: 5 * time.Second,
		RateLimitBackoffMax: 9 * time.Second,
		MaxThrottleRetries:  3,
		MaxRetries:          2,
	}

	opts := ClientOptions(cfg)
	assert.Equal(t, 100, opts.PerPage)
	assert.Equal(t, 5*time.Second, opts.RateLimitBackoffMin)
	assert.Equal(t, 9*time.Second, opts.RateLimitBackoffMax)
	assert.Equal(t, 3, opts.MaxThrottleRetries)
	assert.Equal(t, 2, opts.MaxRetries)
}
