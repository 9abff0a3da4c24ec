package notifier

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gold-signal-sentry/pkg/metrics"
	"gold-signal-sentry/pkg/types"
)

// Interface 通知接口
type Interface interface {
	SendAlert(alert *types.SignalAlert) error
	SendBatchAlerts(alerts []*types.SignalAlert) error
}

// New 按 钉钉 > PushPlus > Telegram > 控制台 的优先级选择通知渠道
func New(cfg *types.Config) Interface {
	switch {
	case cfg.DingTalk.WebhookURL != "":
		zap.L().Info("✅ 已配置钉钉通知服务")
		return NewDingTalkNotifier(cfg.DingTalk.WebhookURL, cfg.DingTalk.Secret)
	case cfg.PushPlus.UserToken != "":
		if cfg.PushPlus.To != "" {
			zap.L().Info("✅ 已配置PushPlus通知服务", zap.String("to", cfg.PushPlus.To))
		} else {
			zap.L().Info("✅ 已配置PushPlus通知服务")
		}
		return NewPushPlusNotifier(cfg.PushPlus.UserToken, cfg.PushPlus.To)
	case cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0:
		n, err := NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			zap.L().Warn("⚠️ Telegram初始化失败，使用控制台输出", zap.Error(err))
			return NewConsoleNotifier()
		}
		zap.L().Info("✅ 已配置Telegram通知服务")
		return n
	default:
		zap.L().Info("🔧 未配置通知渠道，使用控制台输出模式")
		return NewConsoleNotifier()
	}
}

// safePadding 安全地计算填充空格数量，避免负数
func safePadding(content string, totalWidth int) int {
	padding := totalWidth - utf8.RuneCountInString(content) - 4 // 4是边框字符数
	if padding < 0 {
		padding = 0
	}
	return padding
}

// deliver 发送远程通知，失败时记录并降级为控制台输出
func deliver(channel string, send func() error, fallback func() error) error {
	err := send()
	record(channel, err)
	if err != nil {
		zap.L().Warn("❌ 通知发送失败，降级为控制台输出", zap.String("channel", channel), zap.Error(err))
		return fallback()
	}
	return nil
}

func record(channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.NotificationsSent.WithLabelValues(channel, outcome).Inc()
}

// ConsoleNotifier 控制台通知器
type ConsoleNotifier struct {
	out io.Writer
}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{out: os.Stdout}
}

func (cn *ConsoleNotifier) SendAlert(alert *types.SignalAlert) error {
	cn.printAlert(alert)
	record("console", nil)
	return nil
}

func (cn *ConsoleNotifier) SendBatchAlerts(alerts []*types.SignalAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	if len(alerts) == 1 {
		return cn.SendAlert(alerts[0])
	}

	cn.printBatchAlerts(alerts)
	record("console", nil)
	return nil
}

func (cn *ConsoleNotifier) line(width int, content string) {
	fmt.Fprintf(cn.out, "║ %s%s ║\n", content, strings.Repeat(" ", safePadding(content, width)))
}

func (cn *ConsoleNotifier) blank(width int) {
	fmt.Fprintln(cn.out, "║"+strings.Repeat(" ", width)+"║")
}

func (cn *ConsoleNotifier) printAlert(alert *types.SignalAlert) {
	const width = 64
	a := alert.Analysis
	s := a.Signal

	fmt.Fprintln(cn.out)
	fmt.Fprintln(cn.out, "╔"+strings.Repeat("═", width)+"╗")
	cn.line(width, fmt.Sprintf("%s 🚨 交易信号变化！", levelIcon(s.Level)))
	cn.blank(width)
	cn.line(width, fmt.Sprintf("品种: %s", alert.Symbol))
	cn.line(width, fmt.Sprintf("信号: %s → %s", alert.Previous.Label(), s.Level.Label()))
	cn.line(width, fmt.Sprintf("当前价格: %.2f (%+.2f%%)", a.CurrentPrice, a.PriceChangePct))
	if s.EntryPrice != nil {
		cn.line(width, fmt.Sprintf("入场: %.2f  止损: %s  止盈: %s",
			*s.EntryPrice, formatLevel(s.StopLoss), formatLevel(s.TakeProfit)))
	}
	if s.Confidence != nil {
		cn.line(width, fmt.Sprintf("置信度: %.0f%%  仓位: %s", *s.Confidence, s.Position.Label()))
	}
	cn.line(width, fmt.Sprintf("市场状态: %s", a.MarketState.Label()))
	cn.line(width, fmt.Sprintf("提醒时间: %s", alert.AlertTime.Format("2006-01-02 15:04:05")))
	cn.blank(width)
	cn.line(width, "💡 "+truncateRunes(s.Reason, width-8))
	fmt.Fprintln(cn.out, "╚"+strings.Repeat("═", width)+"╝")
	fmt.Fprintln(cn.out)
}

func (cn *ConsoleNotifier) printBatchAlerts(alerts []*types.SignalAlert) {
	const width = 80
	buys, sells := splitByDirection(alerts)

	fmt.Fprintln(cn.out)
	fmt.Fprintln(cn.out, "╔"+strings.Repeat("═", width)+"╗")
	cn.line(width, fmt.Sprintf("🚨 批量信号变化 - %d个品种", len(alerts)))
	cn.line(width, fmt.Sprintf("📈 做多: %d个  📉 做空: %d个", len(buys), len(sells)))
	cn.blank(width)

	for _, group := range [][]*types.SignalAlert{buys, sells} {
		for i, alert := range group {
			cn.line(width, fmt.Sprintf("  %d. %s %s: %s (%.2f)",
				i+1, levelIcon(alert.Level()), alert.Symbol, alert.Level().Label(), alert.Analysis.CurrentPrice))
		}
	}

	cn.blank(width)
	cn.line(width, fmt.Sprintf("提醒时间: %s", alerts[0].AlertTime.Format("2006-01-02 15:04:05")))
	fmt.Fprintln(cn.out, "╚"+strings.Repeat("═", width)+"╝")
	fmt.Fprintln(cn.out)
}

// splitByDirection 按多空拆分，并按综合分绝对值从高到低排序
func splitByDirection(alerts []*types.SignalAlert) (buys, sells []*types.SignalAlert) {
	for _, alert := range alerts {
		if alert.Level().IsBuy() {
			buys = append(buys, alert)
		} else {
			sells = append(sells, alert)
		}
	}

	strength := func(a *types.SignalAlert) float64 {
		if a.Analysis.Signal.CompositeScore == nil {
			return 0
		}
		v := *a.Analysis.Signal.CompositeScore
		if v < 0 {
			return -v
		}
		return v
	}
	sort.SliceStable(buys, func(i, j int) bool { return strength(buys[i]) > strength(buys[j]) })
	sort.SliceStable(sells, func(i, j int) bool { return strength(sells[i]) > strength(sells[j]) })
	return buys, sells
}

func levelIcon(level types.SignalLevel) string {
	switch {
	case level.IsBuy():
		return "📈"
	case level.IsSell():
		return "📉"
	default:
		return "⏸"
	}
}

func formatLevel(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
