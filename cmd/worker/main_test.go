package main

import (
	"context"
	"errors"
	"testing"

	"vurc_dashboard/ingestion/internal/config"
	"vurc_dashboard/ingestion/internal/pipeline"

	"github.com/stretchr/testify/assert"
)

type stubRunner struct {
	err   error
	calls int
}

func (r *stubRunner) Run(ctx context.Context) (*pipeline.Report, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.Report{RunID: "run-1"}, nil
}

func TestServe_RunOnce(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"success", nil, 0},
		{"failure", errors.New("resource unavailable"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{err: tt.err}
			cleaned := false

			code := serve(context.Background(), &config.Config{EnableScheduler: false}, runner, func() { cleaned = true })

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, 1, runner.calls)
			assert.True(t, cleaned, "Connections must be released before exiting")
		})
	}
}

func TestServe_InvalidScheduleCleansUp(t *testing.T) {
	runner := &stubRunner{}
	cleaned := false

	cfg := &config.Config{EnableScheduler: true, RefreshCron: "not a schedule"}
	code := serve(context.Background(), cfg, runner, func() { cleaned = true })

	assert.Equal(t, 1, code)
	assert.Equal(t, 0, runner.calls)
	assert.True(t, cleaned)
}

func TestServe_SchedulerStopsOnCancel(t *testing.T) {
	runner := &stubRunner{}
	cleaned := false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &config.Config{EnableScheduler: true, RefreshCron: "@every 1h"}
	code := serve(ctx, cfg, runner, func() { cleaned = true })

	assert.Equal(t, 0, code)
	assert.True(t, cleaned)
}
