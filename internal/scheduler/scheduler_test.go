package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gold-signal-sentry/pkg/types"
)

type countingRunner struct {
	runs    atomic.Int32
	refresh atomic.Bool
}

func (r *countingRunner) AnalyzeAll(_ context.Context, refresh bool) map[string]*types.MarketAnalysis {
	r.runs.Add(1)
	r.refresh.Store(refresh)
	return map[string]*types.MarketAnalysis{"GC=F": {}}
}

type statsStub struct {
	started atomic.Bool
}

func (s *statsStub) Start(ctx context.Context, _ time.Duration) {
	s.started.Store(true)
	<-ctx.Done()
}

func TestCalculateNextDailyTime(t *testing.T) {
	s := NewScheduler(nil, nil, types.SchedulerConfig{DailyHour: 8, DailyMinute: 30})
	loc := time.FixedZone("CST", 8*3600)

	before := time.Date(2024, 5, 1, 7, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 30, 0, 0, loc), s.calculateNextDailyTime(before))

	exact := time.Date(2024, 5, 1, 8, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 30, 0, 0, loc), s.calculateNextDailyTime(exact))

	after := time.Date(2024, 12, 31, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 1, 1, 8, 30, 0, 0, loc), s.calculateNextDailyTime(after))
}

func TestNextRunPrefersEarlierRefresh(t *testing.T) {
	now := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	s := NewScheduler(nil, nil, types.SchedulerConfig{DailyHour: 8, RefreshInterval: 15 * time.Minute})
	next, reason := s.nextRun(now)
	assert.Equal(t, "refresh", reason)
	assert.Equal(t, now.Add(15*time.Minute), next)

	s.config.RefreshInterval = 4 * time.Hour
	next, reason = s.nextRun(now)
	assert.Equal(t, "daily", reason)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), next)

	s.config.RefreshInterval = 0
	_, reason = s.nextRun(now)
	assert.Equal(t, "daily", reason)
}

func TestStartRunsImmediatelyThenOnInterval(t *testing.T) {
	runner := &countingRunner{}
	stats := &statsStub{}
	s := NewScheduler(runner, stats, types.SchedulerConfig{
		Enabled:         true,
		RefreshInterval: 20 * time.Millisecond,
		StatsInterval:   time.Minute,
	})
	s.runDone = make(chan struct{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-s.runDone:
		case <-time.After(2 * time.Second):
			t.Fatal("调度器未按间隔运行")
		}
	}
	cancel()
	<-done

	assert.GreaterOrEqual(t, runner.runs.Load(), int32(3))
	assert.True(t, runner.refresh.Load())
	assert.Eventually(t, stats.started.Load, time.Second, 10*time.Millisecond)
}

func TestStartDisabledReturns(t *testing.T) {
	runner := &countingRunner{}
	NewScheduler(runner, nil, types.SchedulerConfig{}).Start(context.Background())
	assert.Equal(t, int32(0), runner.runs.Load())
}
