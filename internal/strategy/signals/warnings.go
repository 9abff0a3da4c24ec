package signals

import (
	"strings"

	"gold-signal-sentry/pkg/types"
)

// majorNewsKeywords 重大事件关键词，标题与正文不区分大小写子串匹配
var majorNewsKeywords = []string{
	"fomc", "fed", "rate hike", "rate cut", "cpi", "pce", "nonfarm", "nfp",
	"geopolit", "war", "conflict", "sanction",
	"美联储", "降息", "加息", "通胀", "非农", "地缘", "战争", "冲突", "制裁", "中东", "乌克兰",
}

// IsMajorNews 单条新闻是否命中重大事件关键词
func IsMajorNews(item types.NewsItem) bool {
	text := strings.ToLower(item.Title + " " + item.Content)
	for _, kw := range majorNewsKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// HasMajorNews 新闻列表中是否存在重大事件
func HasMajorNews(news []types.NewsItem) bool {
	for _, item := range news {
		if IsMajorNews(item) {
			return true
		}
	}
	return false
}

func riskWarnings(level types.SignalLevel, state types.MarketState, snap *types.IndicatorSnapshot, news []types.NewsItem, confidence float64) []string {
	var warnings []string

	if snap.VolatilityState == types.VolatilityHigh || state == types.StateHighVolatility {
		warnings = append(warnings, "当前波动率较高，注意控制仓位")
	}

	if snap.RSI != nil {
		switch {
		case *snap.RSI > 80:
			warnings = append(warnings, "RSI 严重超买，警惕回调")
		case *snap.RSI < 20:
			warnings = append(warnings, "RSI 严重超卖，警惕反抽")
		}
	}

	if HasMajorNews(news) {
		warnings = append(warnings, "重大新闻事件临近，注意事件风险")
	}

	if confidence < 40 {
		warnings = append(warnings, "信号置信度较低，建议谨慎参与")
	}

	counterTrend := (level.IsBuy() && (state == types.StateBearTrend || state == types.StateStrongBear)) ||
		(level.IsSell() && (state == types.StateBullTrend || state == types.StateStrongBull))
	if counterTrend {
		warnings = append(warnings, "信号与市场趋势相反，属逆势操作")
	}

	return warnings
}
