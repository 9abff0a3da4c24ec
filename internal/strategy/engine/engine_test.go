package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gold-signal-sentry/internal/strategy/indicators"
	"gold-signal-sentry/pkg/types"
)

type stubCalculator struct {
	snap *types.IndicatorSnapshot
}

func (s stubCalculator) Compute([]types.Bar) *types.IndicatorSnapshot {
	copied := *s.snap
	return &copied
}

func f(v float64) *float64 { return &v }

func uptrendSnapshot() *types.IndicatorSnapshot {
	return &types.IndicatorSnapshot{
		MAShort:         f(2090),
		MAMid:           f(2000),
		TrendDirection:  types.TrendUp,
		TrendStrength:   types.StrengthStrong,
		ADX:             f(35),
		PlusDI:          f(30),
		MinusDI:         f(10),
		RSI:             f(65),
		RSIState:        types.RSINeutral,
		MACD:            f(5),
		MACDSignal:      f(3),
		MACDHistogram:   f(2),
		MACDCross:       types.CrossGolden,
		ATR:             f(20),
		VolatilityState: types.VolatilityMedium,
		BBWidth:         f(3),
		BBPosition:      types.BBMiddle,
	}
}

func bars(n int, closeAt func(i int) float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Bar, n)
	for i := range out {
		c := closeAt(i)
		out[i] = types.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func rising(i int) float64 { return 1900 + float64(i)*200/119 }
func flat(int) float64     { return 2000 }

func newEngine(snap *types.IndicatorSnapshot) *Engine {
	return NewEngine(types.DefaultStrategyConfig(), stubCalculator{snap: snap})
}

func TestAnalyzeEmptyBars(t *testing.T) {
	_, err := newEngine(uptrendSnapshot()).Analyze(context.Background(), nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestAnalyzeUptrendScenario(t *testing.T) {
	e := newEngine(uptrendSnapshot())
	analysis, err := e.Analyze(context.Background(), bars(120, rising), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StateStrongBull, analysis.MarketState)
	assert.InDelta(t, 2100, analysis.CurrentPrice, 1e-9)

	signal := analysis.Signal
	require.NotNil(t, signal.CompositeScore)
	assert.Greater(t, *signal.CompositeScore, 30.0)
	assert.Contains(t, []types.SignalLevel{types.SignalBuy, types.SignalStrongBuy}, signal.Level)
	assert.Contains(t, []types.PositionSize{types.PositionMedium, types.PositionHigh}, signal.Position)
	require.NotNil(t, signal.EntryPrice)
	require.NotNil(t, signal.StopLoss)
	require.NotNil(t, signal.TakeProfit)
	assert.Less(t, *signal.StopLoss, *signal.EntryPrice)
	assert.Greater(t, *signal.TakeProfit, *signal.EntryPrice)

	assert.NotNil(t, analysis.News)
	assert.Empty(t, analysis.News)
	assert.Contains(t, analysis.Explanation, "**市场状态**: 强势上涨")
	assert.Contains(t, analysis.Explanation, "**仓位建议**: 中等仓位")
	assert.Equal(t, int64(1), e.GetStats()["analyses"])
	assert.Equal(t, int64(1), e.GetStats()["action_signals"])
}

func TestAnalyzeFlatScenario(t *testing.T) {
	e := NewEngine(types.DefaultStrategyConfig(), indicators.NewCalculator())
	analysis, err := e.Analyze(context.Background(), bars(120, flat), nil, nil)
	require.NoError(t, err)

	assert.Contains(t, []types.MarketState{types.StateRange, types.StateUnclear}, analysis.MarketState)
	require.NotNil(t, analysis.Signal.CompositeScore)
	assert.InDelta(t, 0, *analysis.Signal.CompositeScore, 1)
	assert.Equal(t, types.SignalHold, analysis.Signal.Level)
	assert.Equal(t, types.PositionLow, analysis.Signal.Position)
	assert.Nil(t, analysis.Signal.EntryPrice)
	assert.Nil(t, analysis.Signal.StopLoss)
	assert.Nil(t, analysis.Signal.TakeProfit)
	assert.Equal(t, 0.0, analysis.PriceChange)
}

func TestAnalyzeFewBarsIsUnclearButScored(t *testing.T) {
	analysis, err := newEngine(uptrendSnapshot()).Analyze(context.Background(), bars(30, rising), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StateUnclear, analysis.MarketState)
	require.NotNil(t, analysis.Signal.CompositeScore)
	assert.Greater(t, *analysis.Signal.CompositeScore, 30.0)
}

func TestAnalyzeCarriesMacroAndNews(t *testing.T) {
	macro := &types.MacroData{
		DXYPrice:     f(104.2),
		DXYChangePct: f(0.8),
		RealRate:     f(2.4),
		NominalRate:  f(4.5),
		Inflation:    f(2.1),
	}
	news := []types.NewsItem{
		{Title: "美联储官员暗示年内降息", Sentiment: types.SentimentBullish, Relevance: types.RelevanceHigh},
		{Title: "Gold demand rises in Asia", Sentiment: types.SentimentBullish, Relevance: types.RelevanceMedium},
	}

	withMacro, err := newEngine(uptrendSnapshot()).Analyze(context.Background(), bars(120, rising), news, macro)
	require.NoError(t, err)
	plain, err := newEngine(uptrendSnapshot()).Analyze(context.Background(), bars(120, rising), news, nil)
	require.NoError(t, err)

	// DXY +0.8% -> -1.6，实际利率 2.4% -> -10
	assert.InDelta(t, *plain.Signal.CompositeScore-11.6, *withMacro.Signal.CompositeScore, 0.02)

	assert.Equal(t, 104.2, *withMacro.DXYPrice)
	assert.Equal(t, 2.4, *withMacro.RealRate)
	assert.Len(t, withMacro.News, 2)

	text := withMacro.Explanation
	assert.Contains(t, text, "**近期新闻**: 美联储官员暗示年内降息, Gold demand rises in Asia")
	assert.Contains(t, text, "**提示**: 重大新闻事件可能影响波动")
	assert.Contains(t, text, "**美元指数**: 104.20 (+0.80%,上涨)")
	assert.Contains(t, text, "美元走强可能对黄金形成压力")
	assert.Contains(t, text, "**实际利率**: 2.40%")
	assert.Contains(t, text, "(名义利率 4.5% - 通胀率 2.1%)")
	assert.Contains(t, text, "实际利率较高可能对黄金形成压力")
	assert.Contains(t, withMacro.Signal.RiskWarning, "重大新闻事件临近")
}

func TestAnalyzeIsSafeForConcurrentUse(t *testing.T) {
	e := NewEngine(types.DefaultStrategyConfig(), indicators.NewCalculator())
	input := bars(150, rising)
	want, err := e.Analyze(context.Background(), input, nil, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Analyze(context.Background(), input, nil, nil)
			if assert.NoError(t, err) {
				assert.Equal(t, want.Signal, got.Signal)
				assert.Equal(t, want.MarketState, got.MarketState)
			}
		}()
	}
	wg.Wait()
}
