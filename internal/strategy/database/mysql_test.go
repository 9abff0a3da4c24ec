package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gold-signal-sentry/pkg/types"
)

func f(v float64) *float64 { return &v }

func TestAnalysisRecordRoundTrip(t *testing.T) {
	analysis := &types.MarketAnalysis{
		ID:           "a-1",
		Symbol:       "GC=F",
		Timestamp:    time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
		MarketState:  types.StateBullTrend,
		CurrentPrice: 2310.5,
		Signal: types.TradingSignal{
			Level:          types.SignalBuy,
			Position:       types.PositionMedium,
			EntryPrice:     f(2310.5),
			StopLoss:       f(2270.5),
			TakeProfit:     f(2370.5),
			Confidence:     f(61.2),
			CompositeScore: f(41.3),
			RiskWarning:    "当前波动率较高，注意控制仓位",
		},
		Explanation: "**市场状态**: 上涨趋势",
		News:        []types.NewsItem{{Title: "gold", Sentiment: types.SentimentBullish}},
	}

	record, err := NewAnalysisRecord("GC=F", analysis)
	require.NoError(t, err)
	assert.Equal(t, "a-1", record.AnalysisID)
	assert.Equal(t, "bull_trend", record.MarketState)
	assert.Equal(t, "buy", record.SignalLevel)
	assert.Equal(t, "medium", record.PositionSize)
	assert.Equal(t, analysis.Timestamp.Unix(), record.AnalysisTime)
	assert.Equal(t, 61.2, *record.Confidence)

	restored, err := record.Analysis()
	require.NoError(t, err)
	assert.Equal(t, analysis.Signal, restored.Signal)
	assert.Equal(t, analysis.News, restored.News)
	assert.True(t, analysis.Timestamp.Equal(restored.Timestamp))
}

func TestDailySignalStatsAdd(t *testing.T) {
	var stats DailySignalStats

	stats.Add(types.TradingSignal{Level: types.SignalStrongBuy, Confidence: f(80)})
	stats.Add(types.TradingSignal{Level: types.SignalSell, Confidence: f(40)})
	stats.Add(types.TradingSignal{Level: types.SignalHold, Confidence: f(30)})
	stats.Add(types.TradingSignal{Level: types.SignalHold, Confidence: f(50)})

	assert.Equal(t, 4, stats.TotalSignals)
	assert.Equal(t, 1, stats.BuySignals)
	assert.Equal(t, 1, stats.SellSignals)
	assert.Equal(t, 2, stats.HoldSignals)
	require.NotNil(t, stats.AvgConfidence)
	assert.InDelta(t, 50.0, *stats.AvgConfidence, 1e-9)
}
