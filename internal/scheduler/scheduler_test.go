package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"vurc_dashboard/ingestion/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls   int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (f *fakeRunner) Run(ctx context.Context) (*pipeline.Report, error) {
	n := atomic.AddInt32(&f.calls, 1)
	f.started <- struct{}{}
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Report{RunID: string(rune('0' + n))}, nil
}

func waitStarted(t *testing.T, f *fakeRunner) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(5 * time.Second):
		t.Fatal("runner was not started")
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	s := NewScheduler("not a schedule", false, newFakeRunner())
	assert.Error(t, s.Start(context.Background()))
}

func TestStart_RunOnStart(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler("@every 1h", true, runner)

	require.NoError(t, s.Start(context.Background()))
	waitStarted(t, runner)
	close(runner.release)
	s.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.calls))
	assert.Equal(t, 1, s.Runs())
	report, err := s.LastResult()
	assert.NoError(t, err)
	require.NotNil(t, report)
}

func TestOverlappingRunsSkipped(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler("@every 1h", false, runner)
	require.NoError(t, s.Start(context.Background()))

	job := s.cron.Entry(s.entryID).WrappedJob
	go job.Run()
	waitStarted(t, runner)

	// second tick while the first run is still going
	job.Run()

	close(runner.release)
	s.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.calls))
}

func TestFailedRunKeepsLastGoodReport(t *testing.T) {
	runner := newFakeRunner()
	close(runner.release)
	s := NewScheduler("@every 1h", false, runner)

	s.runOnce(context.Background())
	waitStarted(t, runner)
	good, err := s.LastResult()
	require.NoError(t, err)
	require.NotNil(t, good)

	runner.err = errors.New("resource unavailable")
	s.runOnce(context.Background())
	waitStarted(t, runner)

	report, err := s.LastResult()
	assert.Error(t, err)
	assert.Same(t, good, report)
	assert.Equal(t, 2, s.Runs())
}

func TestRunOnce_CancelledContext(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler("@every 1h", false, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.runOnce(ctx)

	assert.Equal(t, int32(0), atomic.LoadInt32(&runner.calls))
	assert.Equal(t, 0, s.Runs())
}
