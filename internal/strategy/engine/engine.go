package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gold-signal-sentry/internal/strategy/signals"
	"gold-signal-sentry/pkg/tracing"
	"gold-signal-sentry/pkg/types"
)

// ErrInsufficientData K线为空
var ErrInsufficientData = errors.New("K线数据为空")

// IndicatorSource 指标快照来源
type IndicatorSource interface {
	Compute(bars []types.Bar) *types.IndicatorSnapshot
}

// Engine 信号分析引擎，调用之间不共享可变状态
type Engine struct {
	calculator IndicatorSource
	generator  *signals.Generator
	now        func() time.Time

	// 统计
	analyses int64
	actions  int64
}

// NewEngine 创建分析引擎
func NewEngine(config types.StrategyConfig, calculator IndicatorSource) *Engine {
	return &Engine{
		calculator: calculator,
		generator:  signals.NewGenerator(config),
		now:        time.Now,
	}
}

// Analyze 对一组K线（可选附带新闻与宏观数据）生成完整的市场分析
func (e *Engine) Analyze(ctx context.Context, bars []types.Bar, news []types.NewsItem, macro *types.MacroData) (*types.MarketAnalysis, error) {
	_, span := tracing.StartSpan(ctx, "engine.Analyze", attribute.Int("bars", len(bars)), attribute.Int("news", len(news)))
	defer span.End()

	if len(bars) == 0 {
		return nil, fmt.Errorf("分析失败: %w", ErrInsufficientData)
	}

	snap := e.calculator.Compute(bars)
	if snap == nil {
		snap = &types.IndicatorSnapshot{}
	}

	latest := bars[len(bars)-1]
	price := latest.Close

	state := e.generator.ClassifyMarketState(len(bars), snap)
	signal := e.generator.Generate(signals.Input{
		Price:    price,
		Snapshot: snap,
		State:    state,
		News:     news,
		Macro:    macro,
	})

	analysis := &types.MarketAnalysis{
		Timestamp:    e.now(),
		MarketState:  state,
		CurrentPrice: price,
		Indicators:   *snap,
		Signal:       signal,
		News:         news,
	}
	if analysis.News == nil {
		analysis.News = []types.NewsItem{}
	}
	if len(bars) >= 2 {
		prev := bars[len(bars)-2].Close
		analysis.PriceChange = price - prev
		if prev != 0 {
			analysis.PriceChangePct = (price - prev) / prev * 100
		}
	}
	if macro != nil {
		analysis.DXYPrice = macro.DXYPrice
		analysis.DXYChangePct = macro.DXYChangePct
		analysis.RealRate = macro.RealRate
		analysis.NominalRate = macro.NominalRate
		analysis.Inflation = macro.Inflation
	}
	analysis.Explanation = Explain(analysis)

	atomic.AddInt64(&e.analyses, 1)
	if signal.Level != types.SignalHold {
		atomic.AddInt64(&e.actions, 1)
	}

	zap.L().Debug("📊 分析完成",
		zap.String("state", string(state)),
		zap.String("level", string(signal.Level)),
		zap.Float64("price", price),
		zap.Any("composite", signal.CompositeScore))

	return analysis, nil
}

// Generator 返回信号生成器
func (e *Engine) Generator() *signals.Generator {
	return e.generator
}

// GetStats 获取引擎统计信息
func (e *Engine) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"analyses":       atomic.LoadInt64(&e.analyses),
		"action_signals": atomic.LoadInt64(&e.actions),
	}
}
