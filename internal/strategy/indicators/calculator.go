package indicators

import (
	"math"
	"sort"
	"sync"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"gold-signal-sentry/pkg/types"
)

// Calculator 指标计算器：K线序列 -> 最新指标快照
type Calculator struct {
	shortMA   int
	midMA     int
	emaShort  int
	emaLong   int
	rsiPeriod int
	bbPeriod  int
	bbStdDev  float64

	dmi    *DMICalculator
	levels *LevelCalculator
}

// NewCalculator 使用默认参数创建计算器：SMA20/60、EMA12/26、RSI14、MACD(12,26,9)、ATR14、BOLL(20,2)
func NewCalculator() *Calculator {
	return &Calculator{
		shortMA:   20,
		midMA:     60,
		emaShort:  12,
		emaLong:   26,
		rsiPeriod: 14,
		bbPeriod:  20,
		bbStdDev:  2,
		dmi:       NewDMICalculator(14),
		levels:    NewLevelCalculator(60, 20),
	}
}

// Compute 计算最新一根K线的指标快照；数据不足的指标保持缺失
func (c *Calculator) Compute(bars []types.Bar) *types.IndicatorSnapshot {
	snap := &types.IndicatorSnapshot{}
	if len(bars) == 0 {
		return snap
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	price := closes[len(closes)-1]

	// 均线与趋势
	snap.MAShort = last(sma(closes, c.shortMA))
	snap.MAMid = last(sma(closes, c.midMA))
	snap.EMAShort = last(ema(closes, c.emaShort))
	snap.EMALong = last(ema(closes, c.emaLong))
	snap.TrendDirection, snap.TrendStrength = trendOf(snap.MAShort, snap.MAMid)

	// 趋向指标
	if dmi := c.dmi.Calculate(bars); dmi != nil {
		snap.ADX = types.Float(dmi.ADX)
		snap.PlusDI = types.Float(dmi.PlusDI)
		snap.MinusDI = types.Float(dmi.MinusDI)
	}

	// RSI，窗口内无涨跌时无定义
	if len(closes) > c.rsiPeriod && hasMovement(closes[len(closes)-c.rsiPeriod-1:]) {
		rsi := helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](c.rsiPeriod).Compute(helper.SliceToChan(closes)))
		snap.RSI = last(rsi)
		snap.RSIState = rsiStateOf(snap.RSI)
	}

	// MACD
	c.computeMACD(closes, snap)

	// ATR 与波动率状态
	if len(bars) > 14 {
		atr := helper.ChanToSlice(volatility.NewAtr[float64]().Compute(
			helper.SliceToChan(highs),
			helper.SliceToChan(lows),
			helper.SliceToChan(closes),
		))
		snap.ATR = last(atr)
		snap.VolatilityState = volatilityStateOf(atr)
	}

	// 布林带
	c.computeBollinger(closes, price, snap)

	// 区间与支撑阻力
	if r := c.levels.Range(bars); r != nil {
		snap.RangeHigh = types.Float(r.High)
		snap.RangeLow = types.Float(r.Low)
		snap.RangeMid = types.Float(r.Middle)
	}
	snap.Support, snap.Resistance = c.levels.SupportResistance(bars, price)

	return snap
}

func (c *Calculator) computeMACD(closes []float64, snap *types.IndicatorSnapshot) {
	if len(closes) < c.emaLong+9 {
		return
	}

	macdCh, signalCh := trend.NewMacdWithPeriod[float64](c.emaShort, c.emaLong, 9).Compute(helper.SliceToChan(closes))

	// 两个输出通道需同时消费
	var macd, signal []float64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		signal = helper.ChanToSlice(signalCh)
	}()
	macd = helper.ChanToSlice(macdCh)
	wg.Wait()

	// 输出按尾部对齐
	n := min(len(macd), len(signal))
	if n == 0 {
		return
	}
	macd = macd[len(macd)-n:]
	signal = signal[len(signal)-n:]

	snap.MACD = types.Float(macd[n-1])
	snap.MACDSignal = types.Float(signal[n-1])
	snap.MACDHistogram = types.Float(macd[n-1] - signal[n-1])

	// 差值小于 eps 视为重合，避免浮点噪声产生交叉
	eps := 1e-9 * math.Max(1, math.Abs(closes[len(closes)-1]))
	snap.MACDCross = types.CrossNone
	if n >= 2 {
		prev := macd[n-2] - signal[n-2]
		curr := macd[n-1] - signal[n-1]
		switch {
		case prev <= eps && curr > eps:
			snap.MACDCross = types.CrossGolden
		case prev >= -eps && curr < -eps:
			snap.MACDCross = types.CrossDead
		}
	}
}

func (c *Calculator) computeBollinger(closes []float64, price float64, snap *types.IndicatorSnapshot) {
	if len(closes) < c.bbPeriod {
		return
	}

	window := closes[len(closes)-c.bbPeriod:]
	middle := 0.0
	for _, v := range window {
		middle += v
	}
	middle /= float64(len(window))

	variance := 0.0
	for _, v := range window {
		variance += (v - middle) * (v - middle)
	}
	stdDev := math.Sqrt(variance / float64(len(window)))

	upper := middle + c.bbStdDev*stdDev
	lower := middle - c.bbStdDev*stdDev

	snap.BBUpper = types.Float(upper)
	snap.BBMiddle = types.Float(middle)
	snap.BBLower = types.Float(lower)
	if middle != 0 {
		snap.BBWidth = types.Float((upper - lower) / middle * 100)
	}
	snap.BBPosition = bollingerPositionOf(price, upper, lower)
}

func sma(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return helper.ChanToSlice(trend.NewSmaWithPeriod[float64](period).Compute(helper.SliceToChan(values)))
}

func ema(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return helper.ChanToSlice(trend.NewEmaWithPeriod[float64](period).Compute(helper.SliceToChan(values)))
}

func hasMovement(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			return true
		}
	}
	return false
}

func last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	return types.Float(values[len(values)-1])
}

func trendOf(short, mid *float64) (types.TrendDirection, types.TrendStrength) {
	if short == nil || mid == nil || *mid == 0 {
		return types.TrendNeutral, types.StrengthWeak
	}

	direction := types.TrendNeutral
	switch {
	case *short > *mid:
		direction = types.TrendUp
	case *short < *mid:
		direction = types.TrendDown
	}

	diff := math.Abs(*short-*mid) / *mid * 100
	switch {
	case diff > 2:
		return direction, types.StrengthStrong
	case diff > 1:
		return direction, types.StrengthMedium
	default:
		return direction, types.StrengthWeak
	}
}

func rsiStateOf(rsi *float64) types.RSIState {
	switch {
	case rsi == nil:
		return ""
	case *rsi < 30:
		return types.RSIOversold
	case *rsi > 70:
		return types.RSIOverbought
	default:
		return types.RSINeutral
	}
}

// volatilityStateOf 最新ATR与ATR中位数比较
func volatilityStateOf(atr []float64) types.VolatilityState {
	if len(atr) == 0 {
		return ""
	}

	sorted := append([]float64(nil), atr...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	latest := atr[len(atr)-1]
	switch {
	case latest > median*1.5:
		return types.VolatilityHigh
	case latest > median*0.8:
		return types.VolatilityMedium
	default:
		return types.VolatilityLow
	}
}

func bollingerPositionOf(price, upper, lower float64) types.BollingerPosition {
	switch {
	case price > upper:
		return types.BBAbove
	case price < lower:
		return types.BBBelow
	}

	width := upper - lower
	if width <= 0 {
		return types.BBMiddle
	}
	pct := (price - lower) / width
	switch {
	case pct >= 0.8:
		return types.BBUpper
	case pct <= 0.2:
		return types.BBLower
	default:
		return types.BBMiddle
	}
}
