package types

import (
	"strings"
	"time"
)

// Bar OHLCV K线数据（按时间正序）
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume *float64  `json:"volume,omitempty"`
}

// Sentiment 新闻情绪
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// Value 情绪数值：利多 +1，利空 -1，其他 0
func (s Sentiment) Value() float64 {
	switch s {
	case SentimentBullish:
		return 1
	case SentimentBearish:
		return -1
	default:
		return 0
	}
}

// ParseSentiment 兼容中文标签（利多/利空/中性）
func ParseSentiment(raw string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bullish", "利多", "看涨":
		return SentimentBullish
	case "bearish", "利空", "看跌":
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// Relevance 新闻相关度
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Weight 相关度权重，缺省按低相关处理
func (r Relevance) Weight() float64 {
	switch r {
	case RelevanceHigh:
		return 1.5
	case RelevanceMedium:
		return 1.0
	default:
		return 0.5
	}
}

// Label 中文标签
func (r Relevance) Label() string {
	switch r {
	case RelevanceHigh:
		return "高"
	case RelevanceMedium:
		return "中"
	case RelevanceLow:
		return "低"
	default:
		return ""
	}
}

// ParseRelevance 兼容中文标签（高/中/低），无法识别返回空
func ParseRelevance(raw string) Relevance {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "高":
		return RelevanceHigh
	case "medium", "中":
		return RelevanceMedium
	case "low", "低":
		return RelevanceLow
	default:
		return ""
	}
}

// NewsItem 带情绪标签的新闻
type NewsItem struct {
	Time      time.Time `json:"time"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Source    string    `json:"source,omitempty"`
	URL       string    `json:"url,omitempty"`
	Sentiment Sentiment `json:"sentiment"`
	Relevance Relevance `json:"relevance,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// MacroData 宏观数据，任何字段都可能缺失
type MacroData struct {
	DXYPrice     *float64 `json:"dxy_price,omitempty"`
	DXYChangePct *float64 `json:"dxy_change_pct,omitempty"`
	RealRate     *float64 `json:"real_rate,omitempty"`
	NominalRate  *float64 `json:"nominal_rate,omitempty"`
	Inflation    *float64 `json:"inflation_rate,omitempty"`
}

// Quote 实时报价
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Source    string    `json:"source"`
	Time      time.Time `json:"time"`
}

// PriceDataPoint 价格数据点
type PriceDataPoint struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// DepthLevel 盘口档位
type DepthLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// MarketDepth 盘口深度
type MarketDepth struct {
	Symbol string       `json:"symbol"`
	Bids   []DepthLevel `json:"bids"`
	Asks   []DepthLevel `json:"asks"`
	Spread float64      `json:"spread"`
	Source string       `json:"source"`
	Time   time.Time    `json:"time"`
}

// GoldPrices 国际金价与人民币金价
type GoldPrices struct {
	LondonUSD    float64   `json:"london_usd_oz"`
	LondonChange float64   `json:"london_change_pct"`
	USDCNY       float64   `json:"usd_cny"`
	CNYPerGram   float64   `json:"cny_per_gram"`
	Time         time.Time `json:"time"`
}

// ChartPoint 图表数据点，均线数据不足时为空
type ChartPoint struct {
	Date    time.Time `json:"date"`
	Price   float64   `json:"price"`
	MAShort *float64  `json:"ma_short"`
	MAMid   *float64  `json:"ma_mid"`
}

// ChartData 图表数据
type ChartData struct {
	Symbol    string             `json:"symbol"`
	Period    string             `json:"period"`
	Interval  string             `json:"interval"`
	Data      []ChartPoint       `json:"data"`
	KeyLevels map[string]float64 `json:"key_levels"`
}
