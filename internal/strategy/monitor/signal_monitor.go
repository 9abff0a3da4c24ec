package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
)

// SignalMonitor 信号分布监控器
type SignalMonitor struct {
	mu      sync.RWMutex
	metrics *SignalMetrics
}

// SignalMetrics 全局信号统计
type SignalMetrics struct {
	StartTime      time.Time                 `json:"start_time"`
	TotalAnalyses  int64                     `json:"total_analyses"`
	BuySignals     int64                     `json:"buy_signals"`
	SellSignals    int64                     `json:"sell_signals"`
	HoldSignals    int64                     `json:"hold_signals"`
	AvgConfidence  float64                   `json:"avg_confidence"`
	SymbolStats    map[string]*SymbolMetrics `json:"symbol_stats"`
	LastUpdateTime time.Time                 `json:"last_update_time"`
}

// SymbolMetrics 单个品种的信号统计
type SymbolMetrics struct {
	Symbol          string                    `json:"symbol"`
	TotalAnalyses   int                       `json:"total_analyses"`
	Levels          map[types.SignalLevel]int `json:"levels"`
	AvgConfidence   float64                   `json:"avg_confidence"`
	LastLevel       types.SignalLevel         `json:"last_level"`
	LastState       types.MarketState         `json:"last_state"`
	LastPrice       float64                   `json:"last_price"`
	LastComposite   float64                   `json:"last_composite"`
	LastAnalysisAt  time.Time                 `json:"last_analysis_at"`
	confidenceCount int
}

// NewSignalMonitor 创建信号监控器
func NewSignalMonitor() *SignalMonitor {
	return &SignalMonitor{
		metrics: &SignalMetrics{
			StartTime:   time.Now(),
			SymbolStats: make(map[string]*SymbolMetrics),
		},
	}
}

// Record 记录一次分析结果
func (sm *SignalMonitor) Record(symbol string, analysis *types.MarketAnalysis) {
	if analysis == nil {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	m := sm.metrics
	stats, ok := m.SymbolStats[symbol]
	if !ok {
		stats = &SymbolMetrics{Symbol: symbol, Levels: make(map[types.SignalLevel]int)}
		m.SymbolStats[symbol] = stats
	}

	signal := analysis.Signal
	m.TotalAnalyses++
	switch {
	case signal.Level.IsBuy():
		m.BuySignals++
	case signal.Level.IsSell():
		m.SellSignals++
	default:
		m.HoldSignals++
	}

	stats.TotalAnalyses++
	stats.Levels[signal.Level]++
	stats.LastLevel = signal.Level
	stats.LastState = analysis.MarketState
	stats.LastPrice = analysis.CurrentPrice
	stats.LastAnalysisAt = analysis.Timestamp
	if signal.CompositeScore != nil {
		stats.LastComposite = *signal.CompositeScore
	}
	if signal.Confidence != nil {
		stats.confidenceCount++
		stats.AvgConfidence += (*signal.Confidence - stats.AvgConfidence) / float64(stats.confidenceCount)
	}

	// 全局平均置信度按品种加权
	var sum float64
	var count int
	for _, s := range m.SymbolStats {
		sum += s.AvgConfidence * float64(s.confidenceCount)
		count += s.confidenceCount
	}
	if count > 0 {
		m.AvgConfidence = sum / float64(count)
	}
	m.LastUpdateTime = time.Now()
}

// GetMetrics 返回统计快照
func (sm *SignalMonitor) GetMetrics() SignalMetrics {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := *sm.metrics
	out.SymbolStats = make(map[string]*SymbolMetrics, len(sm.metrics.SymbolStats))
	for k, v := range sm.metrics.SymbolStats {
		copied := *v
		copied.Levels = make(map[types.SignalLevel]int, len(v.Levels))
		for level, n := range v.Levels {
			copied.Levels[level] = n
		}
		out.SymbolStats[k] = &copied
	}
	return out
}

// Start 周期性输出统计报告，直到 ctx 取消
func (sm *SignalMonitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	zap.L().Info("📊 启动信号统计监控器", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			zap.L().Info(sm.Report())
		}
	}
}

// Report 生成文本报告
func (sm *SignalMonitor) Report() string {
	m := sm.GetMetrics()

	var sb strings.Builder
	sb.WriteString("📈 信号统计报告\n")
	sb.WriteString(fmt.Sprintf("运行时长: %s\n", time.Since(m.StartTime).Round(time.Second)))
	sb.WriteString(fmt.Sprintf("分析次数: %d（买入 %d / 卖出 %d / 观望 %d）\n",
		m.TotalAnalyses, m.BuySignals, m.SellSignals, m.HoldSignals))
	sb.WriteString(fmt.Sprintf("平均置信度: %.1f\n", m.AvgConfidence))

	symbols := make([]string, 0, len(m.SymbolStats))
	for symbol := range m.SymbolStats {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		s := m.SymbolStats[symbol]
		sb.WriteString(fmt.Sprintf("  %s: 最新 %s @ %.2f，综合分 %.1f，市场 %s\n",
			symbol, s.LastLevel.Label(), s.LastPrice, s.LastComposite, s.LastState.Label()))
	}

	return sb.String()
}
