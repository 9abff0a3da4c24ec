package signals

import (
	"gold-signal-sentry/pkg/types"
)

// ClassifyMarketState 依据K线数量与指标快照判断市场状态
// 缺失的指标按"无证据"处理：ADX/DI 视为0，布林带宽度视为0，波动率视为低
func (g *Generator) ClassifyMarketState(barCount int, snap *types.IndicatorSnapshot) types.MarketState {
	if barCount < g.config.MinBars || snap == nil {
		return types.StateUnclear
	}

	volState := snap.VolatilityState
	if volState == "" {
		volState = types.VolatilityLow
	}
	if volState == types.VolatilityHigh && types.ValueOr(snap.BBWidth, 0) > 5 {
		return types.StateHighVolatility
	}

	adx := types.ValueOr(snap.ADX, 0)
	plusDI := types.ValueOr(snap.PlusDI, 0)
	minusDI := types.ValueOr(snap.MinusDI, 0)

	switch {
	case plusDI > minusDI && adx > 30:
		return types.StateStrongBull
	case minusDI > plusDI && adx > 30:
		return types.StateStrongBear
	case plusDI > minusDI && adx > 20:
		return types.StateBullTrend
	case minusDI > plusDI && adx > 20:
		return types.StateBearTrend
	}

	if adx <= 20 && isNarrowRange(snap) {
		return types.StateRange
	}

	switch snap.TrendDirection {
	case types.TrendUp:
		return types.StateBullTrend
	case types.TrendDown:
		return types.StateBearTrend
	default:
		return types.StateUnclear
	}
}

// isNarrowRange 60根K线区间振幅小于5%
func isNarrowRange(snap *types.IndicatorSnapshot) bool {
	if snap.RangeHigh == nil || snap.RangeLow == nil || *snap.RangeLow <= 0 {
		return false
	}
	high, low := *snap.RangeHigh, *snap.RangeLow
	return (high-low)/low < 0.05
}
