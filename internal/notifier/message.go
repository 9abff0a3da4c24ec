package notifier

import (
	"fmt"
	"html"
	"strings"

	"gold-signal-sentry/pkg/types"
)

// 每个分组最多显示的品种数
const maxShow = 8

func alertTitle(alert *types.SignalAlert) string {
	return fmt.Sprintf("%s 黄金信号提醒 - %s %s", levelIcon(alert.Level()), alert.Symbol, alert.Level().Label())
}

func batchTitle(alerts []*types.SignalAlert) string {
	return fmt.Sprintf("📊 黄金批量信号提醒 - %d个品种", len(alerts))
}

func levelColor(level types.SignalLevel) string {
	switch {
	case level.IsBuy():
		return "#00C851"
	case level.IsSell():
		return "#FF4444"
	default:
		return "#999999"
	}
}

// buildMarkdownContent 构建单个提醒的Markdown内容
func buildMarkdownContent(alert *types.SignalAlert) string {
	a := alert.Analysis
	s := a.Signal

	var b strings.Builder
	fmt.Fprintf(&b, "## %s 交易信号变化\n\n", levelIcon(s.Level))
	fmt.Fprintf(&b, "**品种**: %s  \n", alert.Symbol)
	fmt.Fprintf(&b, "**信号**: %s → <font color=\"%s\">%s</font>  \n", alert.Previous.Label(), levelColor(s.Level), s.Level.Label())
	fmt.Fprintf(&b, "**当前价格**: %.2f (%+.2f%%)  \n", a.CurrentPrice, a.PriceChangePct)
	if s.EntryPrice != nil {
		fmt.Fprintf(&b, "**入场价**: %.2f  \n", *s.EntryPrice)
		fmt.Fprintf(&b, "**止损 / 止盈**: %s / %s  \n", formatLevel(s.StopLoss), formatLevel(s.TakeProfit))
	}
	if s.Confidence != nil {
		fmt.Fprintf(&b, "**置信度**: %.0f%%  \n", *s.Confidence)
	}
	fmt.Fprintf(&b, "**仓位建议**: %s  \n", s.Position.Label())
	fmt.Fprintf(&b, "**市场状态**: %s  \n", a.MarketState.Label())
	fmt.Fprintf(&b, "**提醒时间**: %s  \n\n", alert.AlertTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "> %s", s.Reason)
	if s.RiskWarning != "" {
		fmt.Fprintf(&b, "\n\n> ⚠️ %s", s.RiskWarning)
	}
	return b.String()
}

// buildBatchMarkdownContent 构建批量提醒的Markdown内容
func buildBatchMarkdownContent(alerts []*types.SignalAlert) string {
	buys, sells := splitByDirection(alerts)

	var b strings.Builder
	b.WriteString("## 🚨 批量信号变化\n\n")
	fmt.Fprintf(&b, "📈 做多: <font color=\"green\">%d个</font>  \n", len(buys))
	fmt.Fprintf(&b, "📉 做空: <font color=\"red\">%d个</font>  \n", len(sells))
	fmt.Fprintf(&b, "🕐 提醒时间: %s  \n\n", alerts[0].AlertTime.Format("2006-01-02 15:04:05"))

	writeGroup := func(title string, group []*types.SignalAlert) {
		if len(group) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for i, alert := range group {
			if i == maxShow {
				fmt.Fprintf(&b, "- ... 还有%d个品种\n", len(group)-maxShow)
				break
			}
			fmt.Fprintf(&b, "- %s **%s**: %s @ %.2f\n",
				levelIcon(alert.Level()), alert.Symbol, alert.Level().Label(), alert.Analysis.CurrentPrice)
		}
		b.WriteString("\n")
	}
	writeGroup("**📈 做多信号**", buys)
	writeGroup("**📉 做空信号**", sells)

	b.WriteString("> ⚠️ 信号仅供参考，不构成投资建议")
	return b.String()
}

// buildHTMLContent 构建单个提醒的HTML内容
func buildHTMLContent(alert *types.SignalAlert) string {
	a := alert.Analysis
	s := a.Signal
	color := levelColor(s.Level)

	var b strings.Builder
	fmt.Fprintf(&b, `<div style="border: 2px solid %s; border-radius: 10px; padding: 16px;">`, color)
	fmt.Fprintf(&b, `<h3 style="color: %s;">%s %s</h3>`, color, levelIcon(s.Level), html.EscapeString(alert.Symbol))
	fmt.Fprintf(&b, "<p><b>信号:</b> %s → %s</p>", alert.Previous.Label(), s.Level.Label())
	fmt.Fprintf(&b, "<p><b>当前价格:</b> %.2f (%+.2f%%)</p>", a.CurrentPrice, a.PriceChangePct)
	if s.EntryPrice != nil {
		fmt.Fprintf(&b, "<p><b>入场:</b> %.2f <b>止损:</b> %s <b>止盈:</b> %s</p>",
			*s.EntryPrice, formatLevel(s.StopLoss), formatLevel(s.TakeProfit))
	}
	if s.Confidence != nil {
		fmt.Fprintf(&b, "<p><b>置信度:</b> %.0f%% <b>仓位:</b> %s</p>", *s.Confidence, s.Position.Label())
	}
	fmt.Fprintf(&b, "<p><b>提醒时间:</b> %s</p>", alert.AlertTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "<p>💡 %s</p>", html.EscapeString(s.Reason))
	b.WriteString("</div>")
	return b.String()
}

// buildBatchHTMLContent 构建批量提醒的HTML内容
func buildBatchHTMLContent(alerts []*types.SignalAlert) string {
	buys, sells := splitByDirection(alerts)

	var b strings.Builder
	fmt.Fprintf(&b, "<h3>🚨 批量信号变化</h3><p>📈 做多: %d个 📉 做空: %d个</p>", len(buys), len(sells))
	b.WriteString("<ul>")
	for _, group := range [][]*types.SignalAlert{buys, sells} {
		for i, alert := range group {
			if i == maxShow {
				fmt.Fprintf(&b, "<li>... 还有%d个品种</li>", len(group)-maxShow)
				break
			}
			fmt.Fprintf(&b, `<li style="color: %s;">%s %s: %s @ %.2f</li>`,
				levelColor(alert.Level()), levelIcon(alert.Level()), html.EscapeString(alert.Symbol),
				alert.Level().Label(), alert.Analysis.CurrentPrice)
		}
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>提醒时间: %s</p>", alerts[0].AlertTime.Format("2006-01-02 15:04:05"))
	return b.String()
}

// buildTelegramText Telegram 仅支持部分HTML标签
func buildTelegramText(alert *types.SignalAlert) string {
	a := alert.Analysis
	s := a.Signal

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> %s → <b>%s</b>\n", levelIcon(s.Level), html.EscapeString(alert.Symbol), alert.Previous.Label(), s.Level.Label())
	fmt.Fprintf(&b, "价格: %.2f (%+.2f%%)\n", a.CurrentPrice, a.PriceChangePct)
	if s.EntryPrice != nil {
		fmt.Fprintf(&b, "入场: %.2f 止损: %s 止盈: %s\n", *s.EntryPrice, formatLevel(s.StopLoss), formatLevel(s.TakeProfit))
	}
	if s.Confidence != nil {
		fmt.Fprintf(&b, "置信度: %.0f%%\n", *s.Confidence)
	}
	fmt.Fprintf(&b, "<i>%s</i>", html.EscapeString(s.Reason))
	return b.String()
}

func buildBatchTelegramText(alerts []*types.SignalAlert) string {
	buys, sells := splitByDirection(alerts)

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 <b>批量信号变化</b> 📈 %d 📉 %d\n", len(buys), len(sells))
	for _, group := range [][]*types.SignalAlert{buys, sells} {
		for _, alert := range group {
			fmt.Fprintf(&b, "%s %s: %s @ %.2f\n",
				levelIcon(alert.Level()), html.EscapeString(alert.Symbol), alert.Level().Label(), alert.Analysis.CurrentPrice)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
