package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gold-signal-sentry/internal/llm"
	"gold-signal-sentry/internal/notifier"
	"gold-signal-sentry/internal/strategy/engine"
	"gold-signal-sentry/internal/strategy/monitor"
	"gold-signal-sentry/pkg/metrics"
	"gold-signal-sentry/pkg/tracing"
	"gold-signal-sentry/pkg/types"
)

// ErrAnalysisUnavailable 无法产出分析结果
var ErrAnalysisUnavailable = errors.New("analysis unavailable")

// 提醒历史保留时间
const alertHistoryTTL = 24 * time.Hour

// MarketData 行情与宏观数据来源
type MarketData interface {
	GetBars(ctx context.Context, symbol string) ([]types.Bar, error)
	RefreshBars(ctx context.Context, symbol string) ([]types.Bar, error)
	GetMacro(ctx context.Context) *types.MacroData
}

// NewsSource 新闻来源
type NewsSource interface {
	GetNews(ctx context.Context) []types.NewsItem
	Refresh(ctx context.Context) []types.NewsItem
}

// AnalysisCache 最新分析结果缓存
type AnalysisCache interface {
	SaveAnalysis(ctx context.Context, symbol string, analysis *types.MarketAnalysis) error
	LatestAnalysis(ctx context.Context, symbol string) (*types.MarketAnalysis, error)
}

// HistoryStore 历史持久化，未配置数据库时为 nil
type HistoryStore interface {
	SaveAnalysis(symbol string, analysis *types.MarketAnalysis) error
	BatchSaveKlines(symbol, interval string, bars []types.Bar) error
}

// Broadcaster 实时推送
type Broadcaster interface {
	BroadcastAnalysis(analysis *types.MarketAnalysis)
}

// Deps 分析引擎依赖
type Deps struct {
	Engine   *engine.Engine
	Data     MarketData
	News     NewsSource
	LLM      llm.Client
	Cache    AnalysisCache
	History  HistoryStore
	Monitor  *monitor.SignalMonitor
	Hub      Broadcaster
	Notifier notifier.Interface
}

// AnalysisEngine 串联数据、策略、大模型、持久化与提醒
type AnalysisEngine struct {
	Deps
	symbols  []string
	interval string
	alert    types.AlertConfig

	mutex        sync.RWMutex
	lastLevels   map[string]types.SignalLevel
	alertHistory map[string]time.Time // 防止重复提醒
	now          func() time.Time
}

func NewAnalysisEngine(deps Deps, dataConfig types.DataConfig, alertConfig types.AlertConfig) *AnalysisEngine {
	if deps.LLM == nil {
		deps.LLM = llm.Noop{}
	}
	symbols := dataConfig.Symbols
	if len(symbols) == 0 {
		symbols = []string{dataConfig.GoldSymbol}
	}

	return &AnalysisEngine{
		Deps:         deps,
		symbols:      symbols,
		interval:     dataConfig.Interval,
		alert:        alertConfig,
		lastLevels:   make(map[string]types.SignalLevel),
		alertHistory: make(map[string]time.Time),
		now:          time.Now,
	}
}

// Symbols 需要分析的品种
func (ae *AnalysisEngine) Symbols() []string {
	return ae.symbols
}

// DefaultSymbol 接口未指定品种时使用
func (ae *AnalysisEngine) DefaultSymbol() string {
	return ae.symbols[0]
}

// Latest 返回缓存的最新分析，没有则现场分析
func (ae *AnalysisEngine) Latest(ctx context.Context, symbol string) (*types.MarketAnalysis, error) {
	if analysis, err := ae.Cache.LatestAnalysis(ctx, symbol); err == nil && analysis != nil {
		return analysis, nil
	}
	return ae.Analyze(ctx, symbol, false)
}

// Analyze 分析单个品种，信号变化时立即提醒
func (ae *AnalysisEngine) Analyze(ctx context.Context, symbol string, refresh bool) (*types.MarketAnalysis, error) {
	analysis, alert, err := ae.analyzeSymbol(ctx, symbol, refresh)
	if err != nil {
		return nil, err
	}
	if alert != nil {
		ae.sendBatchAlerts([]*types.SignalAlert{alert})
	}
	return analysis, nil
}

// AnalyzeAll 并发分析所有品种，批量发送提醒
func (ae *AnalysisEngine) AnalyzeAll(ctx context.Context, refresh bool) map[string]*types.MarketAnalysis {
	zap.L().Info("开始分析", zap.Int("symbols", len(ae.symbols)), zap.Bool("refresh", refresh))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		alerts  []*types.SignalAlert
		results = make(map[string]*types.MarketAnalysis, len(ae.symbols))
	)

	for _, symbol := range ae.symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			analysis, alert, err := ae.analyzeSymbol(ctx, sym, refresh)
			if err != nil {
				zap.L().Error("❌ 分析失败", zap.String("symbol", sym), zap.Error(err))
				return
			}
			mu.Lock()
			defer mu.Unlock()
			results[sym] = analysis
			if alert != nil {
				alerts = append(alerts, alert)
			}
		}(symbol)
	}
	wg.Wait()

	if len(alerts) > 0 {
		ae.sendBatchAlerts(alerts)
		zap.L().Info("✅ 分析完成", zap.Int("analyzed", len(results)), zap.Int("alerts", len(alerts)))
	} else {
		zap.L().Info("✅ 分析完成，信号无变化", zap.Int("analyzed", len(results)))
	}
	return results
}

// analyzeSymbol 单个品种的完整流程，返回分析结果和可能的提醒
func (ae *AnalysisEngine) analyzeSymbol(ctx context.Context, symbol string, refresh bool) (*types.MarketAnalysis, *types.SignalAlert, error) {
	ctx, span := tracing.StartSpan(ctx, "analyzer.Analyze",
		attribute.String("symbol", symbol), attribute.Bool("refresh", refresh))
	defer span.End()
	start := ae.now()

	bars, err := ae.loadBars(ctx, symbol, refresh)
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	news := ae.loadNews(ctx, refresh)
	macro := ae.Data.GetMacro(ctx)

	analysis, err := ae.Engine.Analyze(ctx, bars, news, macro)
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	analysis.ID = uuid.NewString()
	analysis.Symbol = symbol

	if ae.LLM.Enabled() {
		if text, err := ae.LLM.Explain(ctx, analysis); err != nil {
			zap.L().Warn("⚠️ 大模型解读失败，使用规则解读", zap.String("symbol", symbol), zap.Error(err))
		} else {
			analysis.LLMExplanation = text
		}
	}

	previous := ae.previousLevel(ctx, symbol)
	ae.persist(ctx, symbol, analysis)
	if ae.Monitor != nil {
		ae.Monitor.Record(symbol, analysis)
	}
	if ae.Hub != nil {
		ae.Hub.BroadcastAnalysis(analysis)
	}

	level := analysis.Signal.Level
	metrics.AnalysesTotal.WithLabelValues(symbol, string(level)).Inc()
	metrics.AnalysisDuration.WithLabelValues(symbol).Observe(ae.now().Sub(start).Seconds())
	if analysis.Signal.CompositeScore != nil {
		metrics.CompositeScore.WithLabelValues(symbol).Set(*analysis.Signal.CompositeScore)
	}

	zap.L().Info("📊 分析完成",
		zap.String("symbol", symbol),
		zap.String("state", string(analysis.MarketState)),
		zap.String("level", string(level)),
		zap.Float64("price", analysis.CurrentPrice),
		zap.Any("confidence", analysis.Signal.Confidence))

	return analysis, ae.checkAlert(symbol, previous, analysis), nil
}

func (ae *AnalysisEngine) loadBars(ctx context.Context, symbol string, refresh bool) ([]types.Bar, error) {
	if !refresh {
		return ae.Data.GetBars(ctx, symbol)
	}

	bars, err := ae.Data.RefreshBars(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if ae.History != nil {
		if err := ae.History.BatchSaveKlines(symbol, ae.interval, bars); err != nil {
			zap.L().Warn("保存K线失败", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return bars, nil
}

// loadNews 新闻失败不影响分析；启用大模型时用其情绪判断覆盖关键词标签
func (ae *AnalysisEngine) loadNews(ctx context.Context, refresh bool) []types.NewsItem {
	if ae.News == nil {
		return nil
	}

	var news []types.NewsItem
	if refresh {
		news = ae.News.Refresh(ctx)
	} else {
		news = ae.News.GetNews(ctx)
	}

	if len(news) == 0 || !ae.LLM.Enabled() {
		return news
	}
	updated, summary, err := ae.LLM.AnalyzeNews(ctx, news)
	if err != nil {
		zap.L().Warn("⚠️ 大模型新闻分析失败，使用关键词标签", zap.Error(err))
		return news
	}
	if summary != "" {
		zap.L().Debug("大模型新闻摘要", zap.String("summary", summary))
	}
	return updated
}

func (ae *AnalysisEngine) persist(ctx context.Context, symbol string, analysis *types.MarketAnalysis) {
	if ae.History != nil {
		if err := ae.History.SaveAnalysis(symbol, analysis); err != nil {
			zap.L().Warn("保存分析历史失败", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	if err := ae.Cache.SaveAnalysis(ctx, symbol, analysis); err != nil {
		zap.L().Warn("缓存最新分析失败", zap.String("symbol", symbol), zap.Error(err))
	}
}

// previousLevel 上一次的信号等级，进程重启后从缓存恢复
func (ae *AnalysisEngine) previousLevel(ctx context.Context, symbol string) types.SignalLevel {
	ae.mutex.RLock()
	level, ok := ae.lastLevels[symbol]
	ae.mutex.RUnlock()
	if ok {
		return level
	}

	if cached, err := ae.Cache.LatestAnalysis(ctx, symbol); err == nil && cached != nil {
		return cached.Signal.Level
	}
	return types.SignalHold
}

// checkAlert 信号变为非观望等级且不在静默期内时生成提醒
func (ae *AnalysisEngine) checkAlert(symbol string, previous types.SignalLevel, analysis *types.MarketAnalysis) *types.SignalAlert {
	level := analysis.Signal.Level

	ae.mutex.Lock()
	defer ae.mutex.Unlock()
	ae.lastLevels[symbol] = level

	if !ae.alert.Enabled || level == previous || level == types.SignalHold {
		return nil
	}

	now := ae.now()
	if last, ok := ae.alertHistory[symbol]; ok && now.Sub(last) < ae.alert.Cooldown {
		zap.L().Debug("静默期内，跳过提醒", zap.String("symbol", symbol), zap.String("level", string(level)))
		return nil
	}
	ae.alertHistory[symbol] = now

	cutoff := now.Add(-alertHistoryTTL)
	for sym, alertTime := range ae.alertHistory {
		if alertTime.Before(cutoff) {
			delete(ae.alertHistory, sym)
		}
	}

	return &types.SignalAlert{
		Symbol:    symbol,
		Previous:  previous,
		Analysis:  analysis,
		AlertTime: now,
	}
}

// sendBatchAlerts 批量发送提醒，失败时逐个重试
func (ae *AnalysisEngine) sendBatchAlerts(alerts []*types.SignalAlert) {
	if ae.Notifier == nil || len(alerts) == 0 {
		return
	}

	if len(alerts) == 1 {
		if err := ae.Notifier.SendAlert(alerts[0]); err != nil {
			zap.L().Error("❌ 发送提醒失败", zap.String("symbol", alerts[0].Symbol), zap.Error(err))
		}
		return
	}

	if err := ae.Notifier.SendBatchAlerts(alerts); err != nil {
		zap.L().Error("❌ 批量发送提醒失败", zap.Error(err))
		for _, alert := range alerts {
			if singleErr := ae.Notifier.SendAlert(alert); singleErr != nil {
				zap.L().Error("❌ 单个提醒发送失败", zap.String("symbol", alert.Symbol), zap.Error(singleErr))
			}
		}
	}
}
