package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gold-signal-sentry/internal/storage"
	historyfetcher "gold-signal-sentry/internal/strategy/fetcher"
	"gold-signal-sentry/pkg/metrics"
	"gold-signal-sentry/pkg/tracing"
	"gold-signal-sentry/pkg/types"
)

// 1 金衡盎司 = 31.1034768 克
var gramsPerTroyOunce = decimal.RequireFromString("31.1034768")

const (
	sourceYahoo = "yahoo"
	sourceFRED  = "fred"
	sourceOKX   = "okx"

	quoteCacheTTL = time.Minute
)

// DataProvider 行情与宏观数据提供者
// 同一品种同一时刻只有一个上游请求，结果按 CacheTTL 缓存
type DataProvider struct {
	cfg      types.DataConfig
	history  *historyfetcher.HistoryFetcher
	fred     *FREDClient
	okx      *OKXClient
	cache    *storage.Cache
	group    singleflight.Group
	breakers map[string]*CircuitBreaker

	retryAttempts int
	retryDelay    time.Duration
}

func NewDataProvider(cfg types.DataConfig, networkConfig types.NetworkConfig, cache *storage.Cache) *DataProvider {
	timeout := networkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := historyfetcher.NewHTTPClient(networkConfig.Proxy, timeout)
	if networkConfig.Proxy != "" {
		zap.L().Info("✅ 已配置HTTP代理", zap.String("proxy", networkConfig.Proxy))
	}

	return &DataProvider{
		cfg:     cfg,
		history: historyfetcher.NewHistoryFetcher(cfg.YahooBaseURL, networkConfig.Proxy, timeout),
		fred:    NewFREDClient(cfg.FREDBaseURL, cfg.FREDAPIKey, httpClient),
		okx:     NewOKXClient(cfg.OKXBaseURL, httpClient),
		cache:   cache,
		breakers: map[string]*CircuitBreaker{
			sourceYahoo: NewCircuitBreaker(sourceYahoo, 5, 3, 60*time.Second),
			sourceFRED:  NewCircuitBreaker(sourceFRED, 5, 3, 60*time.Second),
			sourceOKX:   NewCircuitBreaker(sourceOKX, 5, 3, 60*time.Second),
		},
		retryAttempts: 3,
		retryDelay:    time.Second,
	}
}

// call 熔断 + 重试，失败计入指标
func (p *DataProvider) call(ctx context.Context, source string, fn func() error) error {
	err := p.breakers[source].Execute(func() error {
		return withRetry(ctx, source, p.retryAttempts, p.retryDelay, fn)
	})
	if err != nil {
		metrics.FetchErrors.WithLabelValues(source).Inc()
	}
	return err
}

// GetBars 获取K线，优先读缓存
func (p *DataProvider) GetBars(ctx context.Context, symbol string) ([]types.Bar, error) {
	bars, err := p.cache.LoadBars(ctx, symbol, p.cfg.Interval)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if err != nil && !errors.Is(err, storage.ErrCacheMiss) {
		zap.L().Warn("读取K线缓存失败", zap.String("symbol", symbol), zap.Error(err))
	}
	return p.RefreshBars(ctx, symbol)
}

// RefreshBars 跳过缓存从上游获取K线并写回缓存
func (p *DataProvider) RefreshBars(ctx context.Context, symbol string) ([]types.Bar, error) {
	v, err, shared := p.group.Do("bars:"+symbol, func() (interface{}, error) {
		ctx, span := tracing.StartSpan(ctx, "fetcher.RefreshBars", attribute.String("symbol", symbol))
		defer span.End()

		var bars []types.Bar
		err := p.call(ctx, sourceYahoo, func() error {
			var err error
			bars, err = p.history.FetchBars(ctx, symbol, p.cfg.Period, p.cfg.Interval)
			return err
		})
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("获取K线失败 %s: %w", symbol, err)
		}

		if err := p.cache.SaveBars(ctx, symbol, p.cfg.Interval, bars, p.cfg.CacheTTL); err != nil {
			zap.L().Warn("写入K线缓存失败", zap.String("symbol", symbol), zap.Error(err))
		}
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zap.L().Debug("合并并发K线请求", zap.String("symbol", symbol))
	}
	return v.([]types.Bar), nil
}

// GetHistory 按指定范围获取K线，用于图表
func (p *DataProvider) GetHistory(ctx context.Context, symbol, period, interval string) ([]types.Bar, error) {
	cacheKey := period + ":" + interval
	if bars, err := p.cache.LoadBars(ctx, symbol, cacheKey); err == nil && len(bars) > 0 {
		return bars, nil
	}

	v, err, _ := p.group.Do("history:"+symbol+":"+cacheKey, func() (interface{}, error) {
		var bars []types.Bar
		err := p.call(ctx, sourceYahoo, func() error {
			var err error
			bars, err = p.history.FetchBars(ctx, symbol, period, interval)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("获取历史K线失败 %s: %w", symbol, err)
		}
		_ = p.cache.SaveBars(ctx, symbol, cacheKey, bars, p.cfg.CacheTTL)
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Bar), nil
}

// GetQuote 获取最新报价
func (p *DataProvider) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	key := "quote:" + symbol
	var cached types.Quote
	if err := p.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		var quote *types.Quote
		err := p.call(ctx, sourceYahoo, func() error {
			var err error
			quote, err = p.history.FetchQuote(ctx, symbol)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("获取报价失败 %s: %w", symbol, err)
		}
		_ = p.cache.Set(ctx, key, quote, quoteCacheTTL)
		return quote, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Quote), nil
}

// GetMacro 获取宏观数据，单项失败时对应字段为空，不返回错误
func (p *DataProvider) GetMacro(ctx context.Context) *types.MacroData {
	if macro, err := p.cache.LoadMacro(ctx); err == nil {
		return macro
	}

	v, _, _ := p.group.Do("macro", func() (interface{}, error) {
		macro := &types.MacroData{}

		if dxy, err := p.GetQuote(ctx, p.cfg.DXYSymbol); err == nil {
			macro.DXYPrice = types.Float(dxy.Price)
			macro.DXYChangePct = types.Float(dxy.ChangePct)
		} else {
			zap.L().Warn("⚠️ 获取美元指数失败", zap.Error(err))
		}

		rates := p.realRate(ctx)
		macro.NominalRate = types.Float(rates.NominalRate)
		macro.Inflation = types.Float(rates.Inflation)
		macro.RealRate = types.Float(rates.RealRate)

		if err := p.cache.SaveMacro(ctx, macro, p.cfg.CacheTTL); err != nil {
			zap.L().Warn("写入宏观数据缓存失败", zap.Error(err))
		}
		return macro, nil
	})
	return v.(*types.MacroData)
}

// realRate 依次尝试 FRED、Yahoo 10年期收益率、固定值
func (p *DataProvider) realRate(ctx context.Context) RateData {
	if p.fred.Enabled() {
		var rates *RateData
		err := p.call(ctx, sourceFRED, func() error {
			var err error
			rates, err = p.fred.RealRate(ctx)
			return err
		})
		if err == nil {
			zap.L().Info("📊 FRED利率数据",
				zap.Float64("nominal", rates.NominalRate),
				zap.Float64("inflation", rates.Inflation),
				zap.Float64("real", rates.RealRate))
			return *rates
		}
		zap.L().Warn("⚠️ FRED获取失败，改用Yahoo收益率", zap.Error(err))
	}

	if yield, err := p.GetQuote(ctx, p.cfg.YieldSymbol); err == nil && yield.Price > 0 {
		return RateData{
			NominalRate: yield.Price,
			Inflation:   estimatedInflation,
			RealRate:    yield.Price - estimatedInflation,
			Source:      sourceYahoo,
		}
	} else if err != nil {
		zap.L().Warn("⚠️ 获取10年期收益率失败，使用默认利率", zap.Error(err))
	}

	return fallbackRates
}

// GetGoldPrices 伦敦金美元价和折算人民币克价
func (p *DataProvider) GetGoldPrices(ctx context.Context) (*types.GoldPrices, error) {
	gold, err := p.GetQuote(ctx, p.cfg.GoldSymbol)
	if err != nil {
		return nil, err
	}
	fx, err := p.GetQuote(ctx, p.cfg.USDCNYSymbol)
	if err != nil {
		return nil, err
	}

	return &types.GoldPrices{
		LondonUSD:    gold.Price,
		LondonChange: decimal.NewFromFloat(gold.ChangePct).Round(2).InexactFloat64(),
		USDCNY:       fx.Price,
		CNYPerGram:   CNYPerGram(gold.Price, fx.Price),
		Time:         gold.Time,
	}, nil
}

// CNYPerGram 美元/盎司 折算 人民币/克，保留两位小数
func CNYPerGram(usdPerOunce, usdcny float64) float64 {
	return decimal.NewFromFloat(usdPerOunce).
		Mul(decimal.NewFromFloat(usdcny)).
		Div(gramsPerTroyOunce).
		Round(2).
		InexactFloat64()
}

// GetMarketDepth 获取黄金代币盘口
func (p *DataProvider) GetMarketDepth(ctx context.Context, size int) (*types.MarketDepth, error) {
	if size <= 0 {
		size = 10
	}

	var depth *types.MarketDepth
	err := p.call(ctx, sourceOKX, func() error {
		var err error
		depth, err = p.okx.Depth(ctx, p.cfg.OKXDepthSymbol, size)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("获取盘口失败: %w", err)
	}
	return depth, nil
}

// BreakerStates 各数据源熔断器状态
func (p *DataProvider) BreakerStates() map[string]string {
	states := make(map[string]string, len(p.breakers))
	for name, b := range p.breakers {
		states[name] = b.State().String()
	}
	return states
}
