package indicators

import (
	"gold-signal-sentry/pkg/types"
)

// RangeLevels 区间高低点
type RangeLevels struct {
	High   float64
	Low    float64
	Middle float64
}

// LevelCalculator 区间与支撑阻力计算器
type LevelCalculator struct {
	lookback int // 统计区间长度，默认60
	window   int // 局部极值单侧窗口，默认20
}

// NewLevelCalculator 创建区间计算器
func NewLevelCalculator(lookback, window int) *LevelCalculator {
	return &LevelCalculator{
		lookback: lookback,
		window:   window,
	}
}

// Range 最近 lookback 根K线的最高价与最低价，不足时返回 nil
func (lc *LevelCalculator) Range(bars []types.Bar) *RangeLevels {
	if lc.lookback <= 0 || len(bars) < lc.lookback {
		return nil
	}

	recent := bars[len(bars)-lc.lookback:]
	highest, lowest := recent[0].High, recent[0].Low
	for _, b := range recent[1:] {
		if b.High > highest {
			highest = b.High
		}
		if b.Low < lowest {
			lowest = b.Low
		}
	}

	return &RangeLevels{
		High:   highest,
		Low:    lowest,
		Middle: (highest + lowest) / 2,
	}
}

// SupportResistance 在最近 lookback 根K线中寻找以自身为中心 2*window+1 根内的局部极值
// 支撑取低于现价的最高局部低点，阻力取高于现价的最低局部高点
func (lc *LevelCalculator) SupportResistance(bars []types.Bar, price float64) (support, resistance *float64) {
	start := len(bars) - lc.lookback
	if start < 0 {
		start = 0
	}

	for i := start; i < len(bars); i++ {
		// 窗口不完整的K线不参与判断
		if i-lc.window < 0 || i+lc.window >= len(bars) {
			continue
		}

		isLow, isHigh := true, true
		for j := i - lc.window; j <= i+lc.window; j++ {
			if bars[j].Low < bars[i].Low {
				isLow = false
			}
			if bars[j].High > bars[i].High {
				isHigh = false
			}
		}

		if low := bars[i].Low; isLow && low < price && (support == nil || low > *support) {
			support = &low
		}
		if high := bars[i].High; isHigh && high > price && (resistance == nil || high < *resistance) {
			resistance = &high
		}
	}

	return support, resistance
}
