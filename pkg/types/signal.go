package types

import "time"

// MarketState 市场状态
type MarketState string

const (
	StateStrongBull     MarketState = "strong_bull"
	StateBullTrend      MarketState = "bull_trend"
	StateRange          MarketState = "range"
	StateBearTrend      MarketState = "bear_trend"
	StateStrongBear     MarketState = "strong_bear"
	StateHighVolatility MarketState = "high_volatility"
	StateUnclear        MarketState = "unclear"
)

// Label 中文名称
func (s MarketState) Label() string {
	switch s {
	case StateStrongBull:
		return "强势上涨"
	case StateBullTrend:
		return "上涨趋势"
	case StateRange:
		return "区间震荡"
	case StateBearTrend:
		return "下跌趋势"
	case StateStrongBear:
		return "强势下跌"
	case StateHighVolatility:
		return "高波动"
	default:
		return "方向不明"
	}
}

// SignalLevel 信号等级
type SignalLevel string

const (
	SignalStrongBuy  SignalLevel = "strong_buy"
	SignalBuy        SignalLevel = "buy"
	SignalHold       SignalLevel = "hold"
	SignalSell       SignalLevel = "sell"
	SignalStrongSell SignalLevel = "strong_sell"
)

// IsBuy 是否做多方向
func (l SignalLevel) IsBuy() bool {
	return l == SignalStrongBuy || l == SignalBuy
}

// IsSell 是否做空方向
func (l SignalLevel) IsSell() bool {
	return l == SignalStrongSell || l == SignalSell
}

// Label 中文名称
func (l SignalLevel) Label() string {
	switch l {
	case SignalStrongBuy:
		return "强烈买入"
	case SignalBuy:
		return "买入"
	case SignalSell:
		return "卖出"
	case SignalStrongSell:
		return "强烈卖出"
	default:
		return "观望"
	}
}

// PositionSize 仓位建议
type PositionSize string

const (
	PositionLow    PositionSize = "low"
	PositionMedium PositionSize = "medium"
	PositionHigh   PositionSize = "high"
)

// Label 中文名称
func (p PositionSize) Label() string {
	switch p {
	case PositionHigh:
		return "较高仓位"
	case PositionMedium:
		return "中等仓位"
	default:
		return "低仓位或空仓"
	}
}

// FactorScore 单因子得分与权重
type FactorScore struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// FactorDetails 固定形状的因子明细
type FactorDetails struct {
	Trend             FactorScore `json:"trend"`
	Momentum          FactorScore `json:"momentum"`
	Volatility        FactorScore `json:"volatility"`
	SupportResistance FactorScore `json:"support_resistance"`
	Sentiment         FactorScore `json:"sentiment"`
}

// TradingSignal 交易信号
type TradingSignal struct {
	Level          SignalLevel    `json:"level"`
	Reason         string         `json:"reason"`
	EntryPrice     *float64       `json:"entry_price,omitempty"`
	StopLoss       *float64       `json:"stop_loss,omitempty"`
	TakeProfit     *float64       `json:"take_profit,omitempty"`
	Position       PositionSize   `json:"position_size"`
	RiskWarning    string         `json:"risk_warning,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`
	TechnicalScore *float64       `json:"technical_score,omitempty"`
	SentimentScore *float64       `json:"sentiment_score,omitempty"`
	CompositeScore *float64       `json:"composite_score,omitempty"`
	Factors        *FactorDetails `json:"factor_details,omitempty"`
}

// MarketAnalysis 一次完整的市场分析结果
type MarketAnalysis struct {
	ID             string            `json:"id,omitempty"`
	Symbol         string            `json:"symbol,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	MarketState    MarketState       `json:"market_state"`
	CurrentPrice   float64           `json:"current_price"`
	PriceChange    float64           `json:"price_change"`
	PriceChangePct float64           `json:"price_change_pct"`
	Indicators     IndicatorSnapshot `json:"indicators"`
	Signal         TradingSignal     `json:"signal"`
	Explanation    string            `json:"explanation"`
	News           []NewsItem        `json:"news"`

	DXYPrice     *float64 `json:"dxy_price,omitempty"`
	DXYChangePct *float64 `json:"dxy_change_pct,omitempty"`
	RealRate     *float64 `json:"real_rate,omitempty"`
	NominalRate  *float64 `json:"nominal_rate,omitempty"`
	Inflation    *float64 `json:"inflation_rate,omitempty"`

	LLMExplanation string `json:"llm_explanation,omitempty"`
}

// SignalAlert 信号变化提醒
type SignalAlert struct {
	Symbol    string          `json:"symbol"`
	Previous  SignalLevel     `json:"previous"`
	Analysis  *MarketAnalysis `json:"analysis"`
	AlertTime time.Time       `json:"alert_time"`
}

// Level 当前信号等级
func (a *SignalAlert) Level() SignalLevel {
	return a.Analysis.Signal.Level
}
