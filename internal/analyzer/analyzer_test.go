package analyzer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gold-signal-sentry/internal/llm"
	"gold-signal-sentry/internal/storage"
	"gold-signal-sentry/internal/strategy/engine"
	"gold-signal-sentry/internal/strategy/monitor"
	"gold-signal-sentry/pkg/types"
)

type stubCalculator struct {
	snap types.IndicatorSnapshot
}

func (s *stubCalculator) Compute([]types.Bar) *types.IndicatorSnapshot {
	copied := s.snap
	return &copied
}

func f(v float64) *float64 { return &v }

func bullishSnapshot() types.IndicatorSnapshot {
	return types.IndicatorSnapshot{
		MAShort:         f(2090),
		MAMid:           f(2000),
		TrendDirection:  types.TrendUp,
		TrendStrength:   types.StrengthStrong,
		ADX:             f(35),
		PlusDI:          f(30),
		MinusDI:         f(10),
		RSI:             f(65),
		RSIState:        types.RSINeutral,
		MACD:            f(5),
		MACDSignal:      f(3),
		MACDHistogram:   f(2),
		MACDCross:       types.CrossGolden,
		ATR:             f(20),
		VolatilityState: types.VolatilityMedium,
		BBWidth:         f(3),
		BBPosition:      types.BBMiddle,
	}
}

type fakeData struct {
	mu        sync.Mutex
	bars      []types.Bar
	err       error
	refreshes int
}

func (d *fakeData) GetBars(context.Context, string) ([]types.Bar, error) {
	return d.bars, d.err
}

func (d *fakeData) RefreshBars(context.Context, string) ([]types.Bar, error) {
	d.mu.Lock()
	d.refreshes++
	d.mu.Unlock()
	return d.bars, d.err
}

func (d *fakeData) GetMacro(context.Context) *types.MacroData {
	return &types.MacroData{DXYPrice: f(104.5), DXYChangePct: f(0.1), RealRate: f(1.2)}
}

type fakeNews struct{}

func (fakeNews) GetNews(context.Context) []types.NewsItem {
	return []types.NewsItem{{Title: "Gold rallies", Sentiment: types.SentimentBullish, Relevance: types.RelevanceHigh}}
}

func (n fakeNews) Refresh(ctx context.Context) []types.NewsItem { return n.GetNews(ctx) }

type fakeHistory struct {
	mu       sync.Mutex
	analyses int
	klines   int
}

func (h *fakeHistory) SaveAnalysis(string, *types.MarketAnalysis) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.analyses++
	return nil
}

func (h *fakeHistory) BatchSaveKlines(_, _ string, bars []types.Bar) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.klines += len(bars)
	return nil
}

type fakeHub struct {
	mu       sync.Mutex
	received []*types.MarketAnalysis
}

func (h *fakeHub) BroadcastAnalysis(a *types.MarketAnalysis) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, a)
}

type recordingNotifier struct {
	mu      sync.Mutex
	single  []*types.SignalAlert
	batches [][]*types.SignalAlert
}

func (n *recordingNotifier) SendAlert(alert *types.SignalAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.single = append(n.single, alert)
	return nil
}

func (n *recordingNotifier) SendBatchAlerts(alerts []*types.SignalAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, alerts)
	return nil
}

type fakeLLM struct {
	llm.Noop
	explainErr error
}

func (fakeLLM) Enabled() bool { return true }

func (l fakeLLM) Explain(context.Context, *types.MarketAnalysis) (string, error) {
	if l.explainErr != nil {
		return "", l.explainErr
	}
	return "大模型解读", nil
}

func (fakeLLM) AnalyzeNews(_ context.Context, news []types.NewsItem) ([]types.NewsItem, string, error) {
	out := make([]types.NewsItem, len(news))
	copy(out, news)
	for i := range out {
		out[i].Sentiment = types.SentimentBearish
	}
	return out, "偏空", nil
}

func risingBars(n int) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Bar, n)
	for i := range out {
		c := 1900 + float64(i)*200/float64(n-1)
		out[i] = types.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

type fixture struct {
	engine   *AnalysisEngine
	calc     *stubCalculator
	data     *fakeData
	history  *fakeHistory
	hub      *fakeHub
	notifier *recordingNotifier
	monitor  *monitor.SignalMonitor
	cache    *storage.Cache
}

func newFixture(t *testing.T, client llm.Client, symbols ...string) *fixture {
	t.Helper()
	fx := &fixture{
		calc:     &stubCalculator{snap: bullishSnapshot()},
		data:     &fakeData{bars: risingBars(120)},
		history:  &fakeHistory{},
		hub:      &fakeHub{},
		notifier: &recordingNotifier{},
		monitor:  monitor.NewSignalMonitor(),
		cache:    storage.NewCache(types.RedisConfig{}),
	}
	t.Cleanup(func() { _ = fx.cache.Close() })

	if len(symbols) == 0 {
		symbols = []string{"GC=F"}
	}
	fx.engine = NewAnalysisEngine(Deps{
		Engine:   engine.NewEngine(types.DefaultStrategyConfig(), fx.calc),
		Data:     fx.data,
		News:     fakeNews{},
		LLM:      client,
		Cache:    fx.cache,
		History:  fx.history,
		Monitor:  fx.monitor,
		Hub:      fx.hub,
		Notifier: fx.notifier,
	}, types.DataConfig{GoldSymbol: "GC=F", Symbols: symbols, Interval: "1d"},
		types.AlertConfig{Enabled: true, Cooldown: time.Hour})
	return fx
}

func TestAnalyzeRunsFullPipeline(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	analysis, err := fx.engine.Analyze(ctx, "GC=F", true)
	require.NoError(t, err)

	assert.NotEmpty(t, analysis.ID)
	assert.Equal(t, "GC=F", analysis.Symbol)
	assert.True(t, analysis.Signal.Level.IsBuy())
	assert.Empty(t, analysis.LLMExplanation)
	assert.Equal(t, 1, fx.data.refreshes)
	assert.Equal(t, 1, fx.history.analyses)
	assert.Equal(t, 120, fx.history.klines)
	require.Len(t, fx.hub.received, 1)
	assert.Equal(t, int64(1), fx.monitor.GetMetrics().TotalAnalyses)

	cached, err := fx.engine.Latest(ctx, "GC=F")
	require.NoError(t, err)
	assert.Equal(t, analysis.ID, cached.ID)
	assert.Equal(t, 1, fx.data.refreshes)
}

func TestAnalyzeAlertsOnLevelChange(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.engine.Analyze(ctx, "GC=F", false)
	require.NoError(t, err)
	require.Len(t, fx.notifier.single, 1)
	alert := fx.notifier.single[0]
	assert.Equal(t, types.SignalHold, alert.Previous)
	assert.True(t, alert.Level().IsBuy())

	// 同一等级不重复提醒
	_, err = fx.engine.Analyze(ctx, "GC=F", false)
	require.NoError(t, err)
	assert.Len(t, fx.notifier.single, 1)
}

func TestAlertCooldown(t *testing.T) {
	fx := newFixture(t, nil)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	fx.engine.now = func() time.Time { return now }

	buy := &types.MarketAnalysis{Signal: types.TradingSignal{Level: types.SignalBuy}}
	sell := &types.MarketAnalysis{Signal: types.TradingSignal{Level: types.SignalSell}}
	hold := &types.MarketAnalysis{Signal: types.TradingSignal{Level: types.SignalHold}}

	require.NotNil(t, fx.engine.checkAlert("GC=F", types.SignalHold, buy))
	assert.Nil(t, fx.engine.checkAlert("GC=F", types.SignalBuy, sell), "静默期内")
	assert.Nil(t, fx.engine.checkAlert("GC=F", types.SignalSell, hold), "观望不提醒")

	now = now.Add(2 * time.Hour)
	alert := fx.engine.checkAlert("GC=F", types.SignalHold, sell)
	require.NotNil(t, alert)
	assert.Equal(t, now, alert.AlertTime)
}

func TestAlertsDisabled(t *testing.T) {
	fx := newFixture(t, nil)
	fx.engine.alert.Enabled = false

	_, err := fx.engine.Analyze(context.Background(), "GC=F", false)
	require.NoError(t, err)
	assert.Empty(t, fx.notifier.single)
}

func TestAnalyzeAllBatchesAlerts(t *testing.T) {
	fx := newFixture(t, nil, "GC=F", "MGC=F")

	results := fx.engine.AnalyzeAll(context.Background(), true)
	assert.Len(t, results, 2)
	require.Len(t, fx.notifier.batches, 1)
	assert.Len(t, fx.notifier.batches[0], 2)
	assert.Equal(t, 2, fx.data.refreshes)
}

func TestAnalyzeUnavailableOnDataError(t *testing.T) {
	fx := newFixture(t, nil)
	fx.data.err = errors.New("upstream down")

	_, err := fx.engine.Analyze(context.Background(), "GC=F", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)

	fx.data.err = nil
	fx.data.bars = nil
	_, err = fx.engine.Analyze(context.Background(), "GC=F", false)
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestLLMEnrichesAnalysis(t *testing.T) {
	fx := newFixture(t, fakeLLM{})

	analysis, err := fx.engine.Analyze(context.Background(), "GC=F", false)
	require.NoError(t, err)
	assert.Equal(t, "大模型解读", analysis.LLMExplanation)
	require.Len(t, analysis.News, 1)
	assert.Equal(t, types.SentimentBearish, analysis.News[0].Sentiment)
}

func TestLLMFailureKeepsRuleExplanation(t *testing.T) {
	fx := newFixture(t, fakeLLM{explainErr: errors.New("timeout")})

	analysis, err := fx.engine.Analyze(context.Background(), "GC=F", false)
	require.NoError(t, err)
	assert.Empty(t, analysis.LLMExplanation)
	assert.NotEmpty(t, analysis.Explanation)
}

func TestPreviousLevelRestoredFromCache(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, fx.cache.SaveAnalysis(ctx, "GC=F", &types.MarketAnalysis{
		Signal: types.TradingSignal{Level: types.SignalStrongBuy},
	}))

	assert.Equal(t, types.SignalStrongBuy, fx.engine.previousLevel(ctx, "GC=F"))
	assert.Equal(t, types.SignalHold, fx.engine.previousLevel(ctx, "XAUUSD"))
}
