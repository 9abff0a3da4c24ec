package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gold-signal-sentry/internal/storage"
	historyfetcher "gold-signal-sentry/internal/strategy/fetcher"
	"gold-signal-sentry/pkg/types"
)

func chartBody(price, prevClose float64) string {
	return fmt.Sprintf(`{"chart":{"result":[{
		"meta":{"regularMarketPrice":%[1]g,"chartPreviousClose":%[2]g,"regularMarketTime":1714560000},
		"timestamp":[1714300000,1714386400],
		"indicators":{"quote":[{"open":[%[2]g,%[2]g],"high":[%[1]g,%[1]g],"low":[%[2]g,%[2]g],"close":[%[2]g,%[1]g],"volume":[10,20]}]}
	}],"error":null}}`, price, prevClose)
}

type upstream struct {
	server     *httptest.Server
	yahooHits  atomic.Int32
	yahooFails bool
	charts     map[string]string
	fred       map[string]string
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{
		charts: map[string]string{
			"GC=F":     chartBody(2350, 2330),
			"DX-Y.NYB": chartBody(104.5, 104),
			"^TNX":     chartBody(4.4, 4.3),
			"CNY=X":    chartBody(7.2, 7.2),
		},
		fred: map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		u.yahooHits.Add(1)
		if u.yahooFails {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body, ok := u.charts[strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/fred/series/observations", func(w http.ResponseWriter, r *http.Request) {
		body, ok := u.fred[r.URL.Query().Get("series_id")]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/api/v5/market/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "book") {
			_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[{"asks":[["2351.5","3","0","1"],["2352","1","0","1"]],"bids":[["2350.5","2","0","1"]],"ts":"1714560000000"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"XAUT-USDT","last":"2351","open24h":"2300","ts":"1714560000000"}]}`))
	})

	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func newTestProvider(t *testing.T, u *upstream, fredKey string) *DataProvider {
	cfg := types.DataConfig{
		GoldSymbol:     "GC=F",
		DXYSymbol:      "DX-Y.NYB",
		YieldSymbol:    "^TNX",
		USDCNYSymbol:   "CNY=X",
		Period:         "1y",
		Interval:       "1d",
		CacheTTL:       time.Minute,
		YahooBaseURL:   u.server.URL,
		FREDBaseURL:    u.server.URL,
		FREDAPIKey:     fredKey,
		OKXDepthSymbol: "XAUT-USDT",
		OKXBaseURL:     u.server.URL,
	}
	p := NewDataProvider(cfg, types.NetworkConfig{Timeout: 5 * time.Second}, storage.NewCache(types.RedisConfig{}))
	p.retryDelay = time.Millisecond
	return p
}

func TestGetBarsUsesCache(t *testing.T) {
	u := newUpstream(t)
	p := newTestProvider(t, u, "")
	ctx := context.Background()

	bars, err := p.GetBars(ctx, "GC=F")
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	bars, err = p.GetBars(ctx, "GC=F")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.EqualValues(t, 1, u.yahooHits.Load())

	_, err = p.RefreshBars(ctx, "GC=F")
	require.NoError(t, err)
	assert.EqualValues(t, 2, u.yahooHits.Load())
}

func TestGetBarsConcurrentCallers(t *testing.T) {
	u := newUpstream(t)
	p := newTestProvider(t, u, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bars, err := p.GetBars(context.Background(), "GC=F")
			assert.NoError(t, err)
			assert.Len(t, bars, 2)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, u.yahooHits.Load(), int32(8))
}

func TestGetHistoryCachesPerRange(t *testing.T) {
	u := newUpstream(t)
	p := newTestProvider(t, u, "")
	ctx := context.Background()

	bars, err := p.GetHistory(ctx, "GC=F", "5d", "1m")
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	_, err = p.GetHistory(ctx, "GC=F", "5d", "1m")
	require.NoError(t, err)
	assert.EqualValues(t, 1, u.yahooHits.Load())

	// 不同范围单独缓存
	_, err = p.GetHistory(ctx, "GC=F", "2y", "1wk")
	require.NoError(t, err)
	assert.EqualValues(t, 2, u.yahooHits.Load())

	_, err = p.GetHistory(ctx, "UNKNOWN", "5d", "1m")
	assert.Error(t, err)
}

func TestGetBarsNotFoundIsNotRetried(t *testing.T) {
	u := newUpstream(t)
	p := newTestProvider(t, u, "")

	_, err := p.GetBars(context.Background(), "NOPE")
	require.Error(t, err)

	var statusErr *historyfetcher.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.EqualValues(t, 1, u.yahooHits.Load())
}

func TestGetMacroFromFRED(t *testing.T) {
	u := newUpstream(t)
	u.fred[seriesTreasury10Y] = `{"observations":[{"date":"2024-05-01","value":"4.25"}]}`
	cpi := make([]string, 13)
	for i := range cpi {
		cpi[i] = `{"date":"d","value":"305"}`
	}
	cpi[0] = `{"date":"2024-04-01","value":"310"}`
	cpi[12] = `{"date":"2023-04-01","value":"300"}`
	u.fred[seriesCPI] = `{"observations":[` + strings.Join(cpi, ",") + `]}`

	macro := newTestProvider(t, u, "key").GetMacro(context.Background())

	require.NotNil(t, macro.DXYPrice)
	assert.Equal(t, 104.5, *macro.DXYPrice)
	assert.InDelta(t, 0.4808, *macro.DXYChangePct, 1e-3)
	assert.Equal(t, 4.25, *macro.NominalRate)
	assert.InDelta(t, 3.3333, *macro.Inflation, 1e-3)
	assert.InDelta(t, 0.9167, *macro.RealRate, 1e-3)
}

func TestGetMacroFallsBackToYahooYield(t *testing.T) {
	u := newUpstream(t)
	// FRED 返回 500，退回 ^TNX
	macro := newTestProvider(t, u, "key").GetMacro(context.Background())

	assert.Equal(t, 4.4, *macro.NominalRate)
	assert.Equal(t, estimatedInflation, *macro.Inflation)
	assert.InDelta(t, 1.2, *macro.RealRate, 1e-9)
}

func TestGetMacroFixedFallback(t *testing.T) {
	u := newUpstream(t)
	u.yahooFails = true
	macro := newTestProvider(t, u, "").GetMacro(context.Background())

	assert.Nil(t, macro.DXYPrice)
	assert.Nil(t, macro.DXYChangePct)
	assert.Equal(t, 4.5, *macro.NominalRate)
	assert.Equal(t, 3.2, *macro.Inflation)
	assert.Equal(t, 1.3, *macro.RealRate)
}

func TestGetGoldPrices(t *testing.T) {
	u := newUpstream(t)
	prices, err := newTestProvider(t, u, "").GetGoldPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2350.0, prices.LondonUSD)
	assert.Equal(t, 0.86, prices.LondonChange)
	assert.Equal(t, 7.2, prices.USDCNY)
	assert.Equal(t, 543.99, prices.CNYPerGram)
}

func TestGetMarketDepthAndTicker(t *testing.T) {
	u := newUpstream(t)
	p := newTestProvider(t, u, "")

	depth, err := p.GetMarketDepth(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "XAUT-USDT", depth.Symbol)
	require.Len(t, depth.Asks, 2)
	require.Len(t, depth.Bids, 1)
	assert.InDelta(t, 1.0, depth.Spread, 1e-9)

	p.fetchAndStore(context.Background())
	price, ok := p.LatestPrice()
	require.True(t, ok)
	assert.Equal(t, 2351.0, price)
}

func TestCircuitBreakerTransitions(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", 2, 2, time.Minute)
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Execute(fail), boom)
	assert.Equal(t, BreakerClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(fail), boom)
	assert.Equal(t, BreakerOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	// 超时后半开，失败立即重新打开
	now = now.Add(time.Minute)
	assert.ErrorIs(t, cb.Execute(fail), boom)
	assert.Equal(t, BreakerOpen, cb.State())

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, BreakerHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestWithRetry(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), "test", 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return &historyfetcher.StatusError{Code: http.StatusServiceUnavailable, Source: "test"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = withRetry(context.Background(), "test", 3, time.Millisecond, func() error {
		attempts++
		return &historyfetcher.StatusError{Code: http.StatusUnauthorized, Source: "test"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestCNYPerGram(t *testing.T) {
	assert.Equal(t, 543.99, CNYPerGram(2350, 7.2))
	assert.Equal(t, 0.0, CNYPerGram(0, 7.2))
}
