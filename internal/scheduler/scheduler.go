package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
)

// Runner 执行一轮全量分析
type Runner interface {
	AnalyzeAll(ctx context.Context, refresh bool) map[string]*types.MarketAnalysis
}

// StatsReporter 周期输出信号统计
type StatsReporter interface {
	Start(ctx context.Context, interval time.Duration)
}

// Scheduler 调度器：每日定点更新 + 固定间隔刷新
type Scheduler struct {
	runner  Runner
	stats   StatsReporter
	config  types.SchedulerConfig
	now     func() time.Time
	runDone chan struct{} // 每轮结束后通知，测试用
}

func NewScheduler(runner Runner, stats StatsReporter, config types.SchedulerConfig) *Scheduler {
	return &Scheduler{
		runner: runner,
		stats:  stats,
		config: config,
		now:    time.Now,
	}
}

// Start 启动时先跑一轮，然后按每日时间点与刷新间隔循环，直到 ctx 取消
func (s *Scheduler) Start(ctx context.Context) {
	if !s.config.Enabled {
		zap.L().Info("⏸ 调度器未启用")
		return
	}

	zap.L().Info("🚀 调度器启动中...",
		zap.Int("daily_hour", s.config.DailyHour),
		zap.Int("daily_minute", s.config.DailyMinute),
		zap.Duration("refresh_interval", s.config.RefreshInterval))

	if s.stats != nil && s.config.StatsInterval > 0 {
		go s.stats.Start(ctx, s.config.StatsInterval)
	}

	s.runAnalysis(ctx, "startup")

	for {
		next, reason := s.nextRun(s.now())
		wait := next.Sub(s.now())
		zap.L().Info("⏰ 下次分析时间",
			zap.String("at", next.Format("2006-01-02 15:04:05")),
			zap.String("reason", reason),
			zap.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			zap.L().Info("📴 调度器已停止")
			return
		case <-timer.C:
			s.runAnalysis(ctx, reason)
		}
	}
}

func (s *Scheduler) runAnalysis(ctx context.Context, reason string) {
	start := s.now()
	zap.L().Info("--- 分析任务开始 ---", zap.String("reason", reason))

	results := s.runner.AnalyzeAll(ctx, true)

	zap.L().Info("--- 分析任务完成 ---",
		zap.Int("symbols", len(results)),
		zap.Duration("elapsed", s.now().Sub(start)))

	if s.runDone != nil {
		select {
		case s.runDone <- struct{}{}:
		default:
		}
	}
}

// nextRun 取每日时间点与下一个刷新点中较早者
func (s *Scheduler) nextRun(now time.Time) (time.Time, string) {
	next := s.calculateNextDailyTime(now)
	reason := "daily"

	if s.config.RefreshInterval > 0 {
		if refresh := now.Add(s.config.RefreshInterval); refresh.Before(next) {
			return refresh, "refresh"
		}
	}
	return next, reason
}

// calculateNextDailyTime 计算下一个每日更新时间点
func (s *Scheduler) calculateNextDailyTime(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.DailyHour, s.config.DailyMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
