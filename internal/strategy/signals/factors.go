package signals

import (
	"math"

	"gold-signal-sentry/pkg/types"
)

// FactorSet 四个技术因子得分，范围 [-1, 1]；nil 表示输入缺失、不参与加权
type FactorSet struct {
	Trend             *float64
	Momentum          *float64
	Volatility        *float64
	SupportResistance *float64
}

// Usable 可用因子得分列表
func (fs FactorSet) Usable() []float64 {
	var out []float64
	for _, f := range []*float64{fs.Trend, fs.Momentum, fs.Volatility, fs.SupportResistance} {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

// ScoreFactors 计算技术因子
func (g *Generator) ScoreFactors(price float64, snap *types.IndicatorSnapshot) FactorSet {
	if snap == nil {
		return FactorSet{}
	}
	return FactorSet{
		Trend:             trendFactor(snap),
		Momentum:          momentumFactor(price, snap),
		Volatility:        volatilityFactor(snap),
		SupportResistance: supportResistanceFactor(price, snap),
	}
}

// TechnicalScore 可用因子按权重归一后的技术面得分，范围 [-100, 100]
func (g *Generator) TechnicalScore(fs FactorSet) float64 {
	w := g.config.Weights
	pairs := []struct {
		score  *float64
		weight float64
	}{
		{fs.Trend, w.Trend},
		{fs.Momentum, w.Momentum},
		{fs.Volatility, w.Volatility},
		{fs.SupportResistance, w.SupportResistance},
	}

	var sum, weights float64
	for _, p := range pairs {
		if p.score == nil {
			continue
		}
		sum += *p.score * p.weight
		weights += p.weight
	}
	if weights == 0 {
		return 0
	}
	return clamp(sum/weights*100, -100, 100)
}

// trendFactor DI方向 × ADX强度，再按短中期均线关系修正 ±0.2
func trendFactor(snap *types.IndicatorSnapshot) *float64 {
	hasDI := snap.ADX != nil && snap.PlusDI != nil && snap.MinusDI != nil
	hasMA := snap.MAShort != nil && snap.MAMid != nil
	if !hasDI && !hasMA {
		return nil
	}

	score := 0.0
	if hasDI {
		if diSum := *snap.PlusDI + *snap.MinusDI; diSum > 0 {
			score = (*snap.PlusDI - *snap.MinusDI) / diSum * math.Min(*snap.ADX/50, 1)
		}
	}
	if hasMA {
		switch {
		case *snap.MAShort > *snap.MAMid:
			score += 0.2
		case *snap.MAShort < *snap.MAMid:
			score -= 0.2
		}
	}
	return types.Float(clamp(score, -1, 1))
}

// momentumFactor 0.4 × RSI 分量 + 0.6 × MACD 分量
// 无交叉时柱状图按ATR（缺失时价格的1%）折算后限制在 ±0.5
func momentumFactor(price float64, snap *types.IndicatorSnapshot) *float64 {
	hasMACD := snap.MACDCross == types.CrossGolden || snap.MACDCross == types.CrossDead || snap.MACDHistogram != nil
	if snap.RSI == nil && !hasMACD {
		return nil
	}

	rsiPart := 0.0
	if snap.RSI != nil {
		rsi := *snap.RSI
		switch {
		case rsi < 30:
			rsiPart = (30 - rsi) / 30
		case rsi > 70:
			rsiPart = -(rsi - 70) / 30
		default:
			rsiPart = (rsi - 50) / 20 * 0.3
		}
		rsiPart = clamp(rsiPart, -1, 1)
	}

	macdPart := 0.0
	switch {
	case snap.MACDCross == types.CrossGolden:
		macdPart = 0.8
	case snap.MACDCross == types.CrossDead:
		macdPart = -0.8
	case snap.MACDHistogram != nil:
		if unit := priceUnit(price, snap); unit > 0 {
			macdPart = clamp(*snap.MACDHistogram/unit, -0.5, 0.5)
		}
	}

	return types.Float(clamp(0.4*rsiPart+0.6*macdPart, -1, 1))
}

// volatilityFactor 布林带位置均值回归，高波动时减半
func volatilityFactor(snap *types.IndicatorSnapshot) *float64 {
	var score float64
	switch snap.BBPosition {
	case types.BBAbove:
		score = -0.8
	case types.BBUpper:
		score = -0.3
	case types.BBMiddle:
		score = 0
	case types.BBLower:
		score = 0.3
	case types.BBBelow:
		score = 0.8
	default:
		return nil
	}
	if snap.VolatilityState == types.VolatilityHigh {
		score *= 0.5
	}
	return types.Float(score)
}

// supportResistanceFactor 靠近支撑加分、靠近阻力减分，二者可叠加
func supportResistanceFactor(price float64, snap *types.IndicatorSnapshot) *float64 {
	if price <= 0 || (snap.Support == nil && snap.Resistance == nil) {
		return nil
	}

	score := 0.0
	if snap.Support != nil {
		dist := math.Abs(price-*snap.Support) / price
		switch {
		case dist <= 0.02:
			score += 0.6
		case dist <= 0.05:
			score += 0.3
		}
	}
	if snap.Resistance != nil {
		dist := math.Abs(*snap.Resistance-price) / price
		switch {
		case dist <= 0.02:
			score -= 0.6
		case dist <= 0.05:
			score -= 0.3
		}
	}
	return types.Float(clamp(score, -1, 1))
}
