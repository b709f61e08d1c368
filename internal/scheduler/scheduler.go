package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vurc_dashboard/ingestion/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner performs one independent rating run
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
}

var _ Runner = (*pipeline.Pipeline)(nil)

// Scheduler re-runs the pipeline on a cron schedule. Each run starts from
// scratch; a tick that fires while a run is still going is skipped.
type Scheduler struct {
	spec       string
	runOnStart bool
	runner     Runner

	cron    *cron.Cron
	entryID cron.EntryID
	startup sync.WaitGroup

	mu         sync.Mutex
	lastReport *pipeline.Report
	lastErr    error
	runs       int
}

// NewScheduler creates a new scheduler instance
func NewScheduler(spec string, runOnStart bool, runner Runner) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		spec:       spec,
		runOnStart: runOnStart,
		runner:     runner,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	id, err := s.cron.AddFunc(s.spec, func() { s.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule refresh %q: %w", s.spec, err)
	}
	s.entryID = id

	s.cron.Start()
	log.Info().
		Str("schedule", s.spec).
		Bool("run_on_start", s.runOnStart).
		Msg("Refresh scheduled")

	if s.runOnStart {
		// Through the wrapped job so an early tick cannot overlap it
		job := s.cron.Entry(id).WrappedJob
		s.startup.Add(1)
		go func() {
			defer s.startup.Done()
			job.Run()
		}()
	}

	return nil
}

// Stop stops the scheduler and waits for a running refresh to return
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	<-s.cron.Stop().Done()
	s.startup.Wait()

	log.Info().Msg("Scheduler stopped")
}

// LastResult returns the outcome of the most recent run
func (s *Scheduler) LastResult() (*pipeline.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport, s.lastErr
}

// Runs returns the number of completed runs
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	log.Info().Msg("Running scheduled refresh...")
	report, err := s.runner.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled refresh failed")
	}

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	if err == nil {
		s.lastReport = report
	}
	s.mu.Unlock()
}

// cronLogger routes cron's internal logging through zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(normalize(keysAndValues)).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(normalize(keysAndValues)).Msg("cron: " + msg)
}

// normalize renders times readably; zerolog takes the rest as is
func normalize(kv []interface{}) []interface{} {
	out := make([]interface{}, len(kv))
	for i, v := range kv {
		if t, ok := v.(time.Time); ok {
			v = t.Format(time.RFC3339)
		}
		out[i] = v
	}
	return out
}
