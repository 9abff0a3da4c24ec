package engine

import (
	"fmt"
	"math"
	"strings"

	"gold-signal-sentry/internal/strategy/signals"
	"gold-signal-sentry/pkg/types"
)

// Explain 生成规则化的中文解读，结果只依赖分析内容本身
func Explain(a *types.MarketAnalysis) string {
	var lines []string
	snap := a.Indicators
	signal := a.Signal

	lines = append(lines, fmt.Sprintf("**市场状态**: %s", a.MarketState.Label()))
	lines = append(lines, fmt.Sprintf("**趋势方向**: %s", snap.TrendDirection.Label()))

	if snap.Support != nil {
		lines = append(lines, fmt.Sprintf("**支撑位**: %.2f", *snap.Support))
	}
	if snap.Resistance != nil {
		lines = append(lines, fmt.Sprintf("**阻力位**: %.2f", *snap.Resistance))
	}

	lines = append(lines, fmt.Sprintf("**信号**: %s（%s）", signal.Level.Label(), signal.Reason))
	if signal.Confidence != nil {
		lines = append(lines, fmt.Sprintf("**置信度**: %.0f%%", *signal.Confidence))
	}
	if signal.EntryPrice != nil && signal.StopLoss != nil && signal.TakeProfit != nil {
		lines = append(lines, fmt.Sprintf("**入场/止损/止盈**: %.2f / %.2f / %.2f", *signal.EntryPrice, *signal.StopLoss, *signal.TakeProfit))
	}

	if len(a.News) > 0 {
		titles := make([]string, 0, 3)
		for _, item := range a.News {
			if len(titles) == 3 {
				break
			}
			title := item.Title
			if title == "" {
				title = "新闻事件"
			}
			titles = append(titles, title)
		}
		lines = append(lines, fmt.Sprintf("**近期新闻**: %s", strings.Join(titles, ", ")))
		if signals.HasMajorNews(a.News) {
			lines = append(lines, "**提示**: 重大新闻事件可能影响波动，建议降低仓位或观望")
		}
	}

	if a.DXYPrice != nil && a.DXYChangePct != nil {
		change := *a.DXYChangePct
		trend := "持平"
		switch {
		case change > 0:
			trend = "上涨"
		case change < 0:
			trend = "下跌"
		}
		lines = append(lines, fmt.Sprintf("**美元指数**: %.2f (%+.2f%%,%s)", *a.DXYPrice, change, trend))
		if math.Abs(change) > 0.5 {
			if change > 0 {
				lines = append(lines, "  → 美元走强可能对黄金形成压力")
			} else {
				lines = append(lines, "  → 美元走弱可能对黄金形成支撑")
			}
		}
	}

	if a.RealRate != nil {
		rate := *a.RealRate
		lines = append(lines, fmt.Sprintf("**实际利率**: %.2f%%", rate))
		if a.NominalRate != nil && a.Inflation != nil {
			lines = append(lines, fmt.Sprintf("  (名义利率 %.1f%% - 通胀率 %.1f%%)", *a.NominalRate, *a.Inflation))
		}
		switch {
		case rate > 2:
			lines = append(lines, "  → 实际利率较高可能对黄金形成压力")
		case rate < 0:
			lines = append(lines, "  → 负实际利率可能对黄金形成支撑")
		default:
			lines = append(lines, "  → 实际利率中性,对黄金影响有限")
		}
	}

	if signal.RiskWarning != "" {
		lines = append(lines, fmt.Sprintf("**风险提示**: %s", signal.RiskWarning))
	}
	lines = append(lines, fmt.Sprintf("**仓位建议**: %s", signal.Position.Label()))

	return strings.Join(lines, "\n")
}
