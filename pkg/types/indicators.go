package types

// TrendDirection 均线趋势方向
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// Label 中文标签
func (d TrendDirection) Label() string {
	switch d {
	case TrendUp:
		return "向上"
	case TrendDown:
		return "向下"
	default:
		return "无明确方向"
	}
}

// TrendStrength 均线趋势强度
type TrendStrength string

const (
	StrengthWeak   TrendStrength = "weak"
	StrengthMedium TrendStrength = "medium"
	StrengthStrong TrendStrength = "strong"
)

// RSIState RSI区间
type RSIState string

const (
	RSIOversold   RSIState = "oversold"
	RSINeutral    RSIState = "neutral"
	RSIOverbought RSIState = "overbought"
)

// MACDCross MACD交叉
type MACDCross string

const (
	CrossGolden MACDCross = "golden"
	CrossDead   MACDCross = "dead"
	CrossNone   MACDCross = "none"
)

// VolatilityState 波动率状态
type VolatilityState string

const (
	VolatilityLow    VolatilityState = "low"
	VolatilityMedium VolatilityState = "medium"
	VolatilityHigh   VolatilityState = "high"
)

// BollingerPosition 价格在布林带中的位置
type BollingerPosition string

const (
	BBAbove  BollingerPosition = "above"
	BBUpper  BollingerPosition = "upper"
	BBMiddle BollingerPosition = "middle"
	BBLower  BollingerPosition = "lower"
	BBBelow  BollingerPosition = "below"
)

// IndicatorSnapshot 最新一根K线上的指标快照
// 数值字段为 nil 表示缺失，枚举字段为空串表示缺失
type IndicatorSnapshot struct {
	MAShort  *float64 `json:"ma_short,omitempty"`
	MAMid    *float64 `json:"ma_mid,omitempty"`
	EMAShort *float64 `json:"ema_short,omitempty"`
	EMALong  *float64 `json:"ema_long,omitempty"`

	TrendDirection TrendDirection `json:"trend_direction,omitempty"`
	TrendStrength  TrendStrength  `json:"trend_strength,omitempty"`

	ADX     *float64 `json:"adx,omitempty"`
	PlusDI  *float64 `json:"plus_di,omitempty"`
	MinusDI *float64 `json:"minus_di,omitempty"`

	RSI      *float64 `json:"rsi,omitempty"`
	RSIState RSIState `json:"rsi_state,omitempty"`

	MACD          *float64  `json:"macd,omitempty"`
	MACDSignal    *float64  `json:"macd_signal,omitempty"`
	MACDHistogram *float64  `json:"macd_histogram,omitempty"`
	MACDCross     MACDCross `json:"macd_cross,omitempty"`

	ATR             *float64        `json:"atr,omitempty"`
	VolatilityState VolatilityState `json:"volatility_state,omitempty"`

	BBUpper    *float64          `json:"bb_upper,omitempty"`
	BBMiddle   *float64          `json:"bb_middle,omitempty"`
	BBLower    *float64          `json:"bb_lower,omitempty"`
	BBWidth    *float64          `json:"bb_width,omitempty"` // 百分比
	BBPosition BollingerPosition `json:"bb_position,omitempty"`

	Support    *float64 `json:"support,omitempty"`
	Resistance *float64 `json:"resistance,omitempty"`

	RangeHigh *float64 `json:"range_high,omitempty"`
	RangeLow  *float64 `json:"range_low,omitempty"`
	RangeMid  *float64 `json:"range_mid,omitempty"`
}
