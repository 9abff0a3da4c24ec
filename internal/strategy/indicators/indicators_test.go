package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gold-signal-sentry/pkg/types"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func flatBars(n int, price float64) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{Time: start.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price}
	}
	return bars
}

func trendingBars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		c := 1000 + 3*float64(i) + 15*math.Sin(float64(i))
		bars[i] = types.Bar{Time: start.AddDate(0, 0, i), Open: c - 1, High: c + 5, Low: c - 5, Close: c}
	}
	return bars
}

func TestComputeEmpty(t *testing.T) {
	snap := NewCalculator().Compute(nil)
	require.NotNil(t, snap)
	assert.Nil(t, snap.MAShort)
	assert.Nil(t, snap.ATR)
	assert.Empty(t, snap.BBPosition)
}

func TestComputeShortSeriesLeavesFieldsAbsent(t *testing.T) {
	snap := NewCalculator().Compute(trendingBars(25))
	assert.NotNil(t, snap.MAShort)
	assert.Nil(t, snap.MAMid)
	assert.Equal(t, types.TrendNeutral, snap.TrendDirection)
	assert.Nil(t, snap.ADX)
	assert.Nil(t, snap.MACD)
	assert.Nil(t, snap.RangeHigh)
	assert.NotNil(t, snap.RSI)
	assert.NotNil(t, snap.ATR)
	assert.NotNil(t, snap.BBMiddle)
}

func TestComputeFlatSeries(t *testing.T) {
	snap := NewCalculator().Compute(flatBars(120, 2000))

	require.NotNil(t, snap.MAShort)
	assert.InDelta(t, 2000, *snap.MAShort, 1e-6)
	assert.Equal(t, types.TrendNeutral, snap.TrendDirection)
	assert.Equal(t, types.StrengthWeak, snap.TrendStrength)

	require.NotNil(t, snap.ADX)
	assert.Equal(t, 0.0, *snap.ADX)
	assert.Nil(t, snap.RSI)
	assert.Equal(t, types.CrossNone, snap.MACDCross)
	assert.Equal(t, types.VolatilityLow, snap.VolatilityState)
	assert.Equal(t, types.BBMiddle, snap.BBPosition)

	require.NotNil(t, snap.RangeHigh)
	assert.Equal(t, 2000.0, *snap.RangeHigh)
	assert.Equal(t, 2000.0, *snap.RangeLow)
	assert.Nil(t, snap.Support)
	assert.Nil(t, snap.Resistance)
}

func TestComputeTrendingSeries(t *testing.T) {
	snap := NewCalculator().Compute(trendingBars(150))

	require.NotNil(t, snap.MAShort)
	require.NotNil(t, snap.MAMid)
	assert.Greater(t, *snap.MAShort, *snap.MAMid)
	assert.Equal(t, types.TrendUp, snap.TrendDirection)

	require.NotNil(t, snap.PlusDI)
	require.NotNil(t, snap.MinusDI)
	assert.Greater(t, *snap.PlusDI, *snap.MinusDI)

	require.NotNil(t, snap.RSI)
	assert.GreaterOrEqual(t, *snap.RSI, 0.0)
	assert.LessOrEqual(t, *snap.RSI, 100.0)

	require.NotNil(t, snap.ATR)
	assert.Greater(t, *snap.ATR, 0.0)
	assert.NotEmpty(t, snap.VolatilityState)

	require.NotNil(t, snap.MACDHistogram)
	assert.InDelta(t, *snap.MACD-*snap.MACDSignal, *snap.MACDHistogram, 1e-9)

	require.NotNil(t, snap.BBWidth)
	assert.Greater(t, *snap.BBWidth, 0.0)
	assert.Less(t, *snap.BBLower, *snap.BBUpper)
}

func TestDMIStrictlyRising(t *testing.T) {
	bars := make([]types.Bar, 60)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = types.Bar{High: c + 1, Low: c - 1, Close: c}
	}

	dmi := NewDMICalculator(14).Calculate(bars)
	require.NotNil(t, dmi)
	assert.InDelta(t, 50, dmi.PlusDI, 1e-9)
	assert.InDelta(t, 0, dmi.MinusDI, 1e-9)
	assert.InDelta(t, 100, dmi.ADX, 1e-9)

	assert.Nil(t, NewDMICalculator(14).Calculate(bars[:28]))
}

func TestLevels(t *testing.T) {
	bars := make([]types.Bar, 120)
	for i := range bars {
		low := 100 + math.Abs(float64(i-70))*0.5
		bars[i] = types.Bar{Low: low, High: low + 10, Close: low + 5}
	}
	bars[85].High = 200

	lc := NewLevelCalculator(60, 20)
	r := lc.Range(bars)
	require.NotNil(t, r)
	assert.Equal(t, 200.0, r.High)
	assert.Equal(t, 100.0, r.Low)
	assert.Equal(t, 150.0, r.Middle)

	support, resistance := lc.SupportResistance(bars, bars[119].Close)
	require.NotNil(t, support)
	require.NotNil(t, resistance)
	assert.Equal(t, 100.0, *support)
	assert.Equal(t, 200.0, *resistance)

	assert.Nil(t, lc.Range(bars[:59]))
}

func TestBollingerPosition(t *testing.T) {
	assert.Equal(t, types.BBAbove, bollingerPositionOf(111, 110, 90))
	assert.Equal(t, types.BBBelow, bollingerPositionOf(89, 110, 90))
	assert.Equal(t, types.BBUpper, bollingerPositionOf(107, 110, 90))
	assert.Equal(t, types.BBLower, bollingerPositionOf(93, 110, 90))
	assert.Equal(t, types.BBMiddle, bollingerPositionOf(100, 110, 90))
	assert.Equal(t, types.BBMiddle, bollingerPositionOf(100, 100, 100))
}

func TestVolatilityState(t *testing.T) {
	assert.Equal(t, types.VolatilityHigh, volatilityStateOf([]float64{1, 1, 1, 1, 2}))
	assert.Equal(t, types.VolatilityMedium, volatilityStateOf([]float64{1, 1, 1, 1, 1}))
	assert.Equal(t, types.VolatilityLow, volatilityStateOf([]float64{1, 1, 1, 1, 0.5}))
}

func TestTrendStrength(t *testing.T) {
	short, mid := 103.0, 100.0
	dir, strength := trendOf(&short, &mid)
	assert.Equal(t, types.TrendUp, dir)
	assert.Equal(t, types.StrengthStrong, strength)

	short = 98.5
	dir, strength = trendOf(&short, &mid)
	assert.Equal(t, types.TrendDown, dir)
	assert.Equal(t, types.StrengthMedium, strength)
}

func TestChartSeriesAlignsMovingAverages(t *testing.T) {
	bars := flatBars(70, 2000)
	points := NewCalculator().ChartSeries(bars)
	require.Len(t, points, 70)

	assert.Equal(t, bars[0].Time, points[0].Date)
	assert.Nil(t, points[0].MAShort)
	assert.Nil(t, points[0].MAMid)

	latest := points[69]
	require.NotNil(t, latest.MAShort)
	require.NotNil(t, latest.MAMid)
	assert.InDelta(t, 2000, *latest.MAShort, 1e-9)
	assert.InDelta(t, 2000, *latest.MAMid, 1e-9)
	assert.Nil(t, points[30].MAMid)
}

func TestChartSeriesShortInput(t *testing.T) {
	points := NewCalculator().ChartSeries(flatBars(5, 10))
	require.Len(t, points, 5)
	for _, p := range points {
		assert.Nil(t, p.MAShort)
	}
}
