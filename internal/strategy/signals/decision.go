package signals

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"gold-signal-sentry/pkg/types"
)

// Input 单次信号生成所需的全部输入
type Input struct {
	Price    float64
	Snapshot *types.IndicatorSnapshot
	State    types.MarketState
	News     []types.NewsItem
	Macro    *types.MacroData
}

// Generate 融合技术面、情绪面与宏观调整，产出交易信号
func (g *Generator) Generate(in Input) types.TradingSignal {
	snap := in.Snapshot
	if snap == nil {
		snap = &types.IndicatorSnapshot{}
	}

	factors := g.ScoreFactors(in.Price, snap)
	technical := g.TechnicalScore(factors)
	sentiment := SentimentScore(in.News)

	w := g.config.SentimentWeight
	composite := technical*(1-w) + sentiment*w
	composite = clamp(composite+g.MacroAdjustment(in.Macro), -100, 100)

	confidence := g.Confidence(factors, sentiment, len(in.News) > 0, composite)
	level := g.Level(composite)

	signal := types.TradingSignal{
		Level:          level,
		Position:       PositionFor(level),
		Confidence:     types.Float(round2(confidence)),
		TechnicalScore: types.Float(round2(technical)),
		SentimentScore: types.Float(round2(sentiment)),
		CompositeScore: types.Float(round2(composite)),
		Factors:        g.factorDetails(factors, sentiment),
	}
	signal.Reason = g.reason(level, technical, sentiment, composite, factors)
	g.setPriceLevels(&signal, in.Price, snap)

	warnings := riskWarnings(level, in.State, snap, in.News, confidence)
	signal.RiskWarning = strings.Join(warnings, "；")

	g.ApplyDrawdownLimit(&signal)
	return signal
}

// MacroAdjustment 美元指数与实际利率对综合分的修正
func (g *Generator) MacroAdjustment(macro *types.MacroData) float64 {
	if macro == nil {
		return 0
	}
	m := g.config.Macro
	adj := 0.0
	if macro.DXYChangePct != nil {
		adj -= *macro.DXYChangePct * m.DXYFactor
	}
	if macro.RealRate != nil {
		switch {
		case *macro.RealRate > m.HighRealRate:
			adj -= m.RealRatePenalty
		case *macro.RealRate < m.LowRealRate:
			adj += m.RealRatePenalty
		}
	}
	return adj
}

// Confidence 因子一致性与综合分强度合成置信度，范围 [20, 95]
func (g *Generator) Confidence(factors FactorSet, sentiment float64, hasNews bool, composite float64) float64 {
	scores := factors.Usable()
	if len(scores) < 2 {
		return 30
	}
	if hasNews {
		scores = append(scores, sentiment/100)
	}

	var pos, neg, neutral int
	for _, s := range scores {
		switch {
		case s > 0.1:
			pos++
		case s < -0.1:
			neg++
		default:
			neutral++
		}
	}

	total := float64(len(scores))
	consistency := float64(max(pos, neg)) / total
	strength := math.Abs(composite) / 100

	confidence := (consistency*0.6 + strength*0.4) * 100
	if float64(neutral) > total/2 {
		confidence *= 0.7
	}
	return clamp(confidence, 20, 95)
}

// Level 综合分映射为信号等级
func (g *Generator) Level(composite float64) types.SignalLevel {
	t := g.config.Thresholds
	switch {
	case composite >= t.StrongBuy:
		return types.SignalStrongBuy
	case composite >= t.Buy:
		return types.SignalBuy
	case composite <= t.StrongSell:
		return types.SignalStrongSell
	case composite <= t.Sell:
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

// PositionFor 信号等级对应的仓位建议
func PositionFor(level types.SignalLevel) types.PositionSize {
	switch level {
	case types.SignalStrongBuy, types.SignalStrongSell:
		return types.PositionHigh
	case types.SignalBuy, types.SignalSell:
		return types.PositionMedium
	default:
		return types.PositionLow
	}
}

// setPriceLevels 以ATR为单位计算入场、止损、止盈；ATR缺失时用价格的1%
func (g *Generator) setPriceLevels(signal *types.TradingSignal, price float64, snap *types.IndicatorSnapshot) {
	if price <= 0 || math.IsInf(price, 0) || signal.Level == types.SignalHold {
		return
	}

	unit := priceUnit(price, snap)
	entry := price
	var stop, target float64
	if signal.Level.IsBuy() {
		stop = entry - 2*unit
		target = entry + 3*unit
		if snap.Resistance != nil && *snap.Resistance > entry {
			target = *snap.Resistance
		}
	} else {
		stop = entry + 2*unit
		target = entry - 3*unit
		if snap.Support != nil && *snap.Support < entry {
			target = *snap.Support
		}
	}

	signal.EntryPrice = types.Float(round2(entry))
	signal.StopLoss = types.Float(round2(stop))
	signal.TakeProfit = types.Float(round2(target))
}

// priceUnit 价格波动单位：ATR，缺失时取价格的1%
func priceUnit(price float64, snap *types.IndicatorSnapshot) float64 {
	if snap.ATR != nil && *snap.ATR > 0 {
		return *snap.ATR
	}
	return price * 0.01
}

func (g *Generator) factorDetails(fs FactorSet, sentiment float64) *types.FactorDetails {
	w := g.config.Weights
	detail := func(score *float64, weight float64) types.FactorScore {
		if score == nil {
			return types.FactorScore{}
		}
		return types.FactorScore{Score: round4(*score), Weight: weight}
	}
	return &types.FactorDetails{
		Trend:             detail(fs.Trend, w.Trend),
		Momentum:          detail(fs.Momentum, w.Momentum),
		Volatility:        detail(fs.Volatility, w.Volatility),
		SupportResistance: detail(fs.SupportResistance, w.SupportResistance),
		Sentiment:         types.FactorScore{Score: round4(sentiment / 100), Weight: g.config.SentimentWeight},
	}
}

func (g *Generator) reason(level types.SignalLevel, technical, sentiment, composite float64, fs FactorSet) string {
	parts := []string{fmt.Sprintf("综合评分 %.1f（技术面 %.1f，情绪面 %.1f）", composite, technical, sentiment)}

	var drivers []string
	if fs.Trend != nil && math.Abs(*fs.Trend) > 0.3 {
		drivers = append(drivers, direction(*fs.Trend, "趋势向上", "趋势向下"))
	}
	if fs.Momentum != nil && math.Abs(*fs.Momentum) > 0.3 {
		drivers = append(drivers, direction(*fs.Momentum, "动量偏强", "动量偏弱"))
	}
	if fs.SupportResistance != nil && math.Abs(*fs.SupportResistance) >= 0.3 {
		drivers = append(drivers, direction(*fs.SupportResistance, "接近支撑", "接近阻力"))
	}
	if fs.Volatility != nil && math.Abs(*fs.Volatility) >= 0.3 {
		drivers = append(drivers, direction(*fs.Volatility, "布林带下沿超跌", "布林带上沿超买"))
	}
	if len(drivers) > 0 {
		parts = append(parts, strings.Join(drivers, "、"))
	}

	if level == types.SignalHold {
		parts = append(parts, "多空信号不足，建议观望")
	} else {
		parts = append(parts, "建议"+level.Label())
	}
	return strings.Join(parts, "，")
}

func direction(v float64, up, down string) string {
	if v > 0 {
		return up
	}
	return down
}

func round2(v float64) float64 {
	return roundTo(v, 2)
}

func round4(v float64) float64 {
	return roundTo(v, 4)
}

// roundTo 十进制四舍五入，NaN/Inf 原样返回
func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
