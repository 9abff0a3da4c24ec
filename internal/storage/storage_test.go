package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gold-signal-sentry/pkg/types"
)

func newRedisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewCache(types.RedisConfig{URL: mr.Addr()})
	require.True(t, c.UsingRedis())
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func sampleBars() []types.Bar {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []types.Bar{
		{Time: start, Open: 2300, High: 2310, Low: 2290, Close: 2305},
		{Time: start.Add(24 * time.Hour), Open: 2305, High: 2330, Low: 2300, Close: 2325, Volume: types.Float(1200)},
	}
}

func TestCacheFallsBackToMemory(t *testing.T) {
	c := NewCache(types.RedisConfig{URL: "127.0.0.1:1"})
	assert.False(t, c.UsingRedis())

	ctx := context.Background()
	require.NoError(t, c.SaveBars(ctx, "GC=F", "1d", sampleBars(), time.Minute))

	bars, err := c.LoadBars(ctx, "GC=F", "1d")
	require.NoError(t, err)
	assert.Equal(t, sampleBars(), bars)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewCache(types.RedisConfig{})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, c.SaveNews(ctx, []types.NewsItem{{Title: "Gold rallies"}}, time.Minute))

	news, err := c.LoadNews(ctx)
	require.NoError(t, err)
	assert.Len(t, news, 1)

	now = now.Add(2 * time.Minute)
	_, err = c.LoadNews(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheRoundTripAndTTL(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	macro := &types.MacroData{DXYPrice: types.Float(104.2), RealRate: types.Float(1.3)}
	require.NoError(t, c.SaveMacro(ctx, macro, time.Minute))
	assert.True(t, mr.Exists("gold:macro"))

	got, err := c.LoadMacro(ctx)
	require.NoError(t, err)
	assert.Equal(t, 104.2, *got.DXYPrice)
	assert.Nil(t, got.DXYChangePct)

	mr.FastForward(2 * time.Minute)
	_, err = c.LoadMacro(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLatestAnalysis(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	_, err := c.LatestAnalysis(ctx, "GC=F")
	assert.ErrorIs(t, err, ErrCacheMiss)

	analysis := &types.MarketAnalysis{
		ID:           "a-1",
		Symbol:       "GC=F",
		MarketState:  types.StateStrongBull,
		CurrentPrice: 2350,
		Signal:       types.TradingSignal{Level: types.SignalBuy, Confidence: types.Float(60)},
	}
	require.NoError(t, c.SaveAnalysis(ctx, "GC=F", analysis))

	got, err := c.LatestAnalysis(ctx, "GC=F")
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	assert.Equal(t, types.SignalBuy, got.Signal.Level)
}

func TestCounters(t *testing.T) {
	for name, c := range map[string]*Cache{
		"memory": NewCache(types.RedisConfig{}),
		"redis":  func() *Cache { c, _ := newRedisCache(t); return c }(),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := c.Counter(ctx, "llm:calls")
			require.NoError(t, err)
			assert.Zero(t, n)

			for i := 1; i <= 3; i++ {
				n, err = c.Incr(ctx, "llm:calls", time.Hour)
				require.NoError(t, err)
				assert.EqualValues(t, i, n)
			}

			n, err = c.Counter(ctx, "llm:calls")
			require.NoError(t, err)
			assert.EqualValues(t, 3, n)

			require.NoError(t, c.Delete(ctx, "llm:calls"))
			n, err = c.Counter(ctx, "llm:calls")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestStorePriceWindow(t *testing.T) {
	c := NewCache(types.RedisConfig{})
	now := time.Now()

	c.StorePrice("XAU/USD", 2300, now.Add(-5*time.Minute))
	c.StorePrice("XAU/USD", 2310, now.Add(-1*time.Minute))
	c.StorePrice("XAU/USD", 2320, now)

	current, past := c.GetPriceData("XAU/USD")
	require.NotNil(t, current)
	require.NotNil(t, past)
	assert.Equal(t, 2320.0, current.Price)
	assert.Equal(t, 2300.0, past.Price)

	points, err := c.RecentPrices(context.Background(), "XAU/USD", now.Add(-2*time.Minute))
	require.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Equal(t, []string{"XAU/USD"}, c.GetAllSymbols())
}

func TestStorePriceBacksUpToRedis(t *testing.T) {
	c, mr := newRedisCache(t)
	now := time.Now()
	c.StorePrice("AU9999", 560.5, now)

	assert.Eventually(t, func() bool {
		members, err := mr.ZMembers("gold:price:AU9999")
		return err == nil && len(members) == 1
	}, time.Second, 10*time.Millisecond)

	// 内存无数据时从Redis读取
	fresh := NewCache(types.RedisConfig{URL: mr.Addr()})
	defer fresh.Close()
	points, err := fresh.RecentPrices(context.Background(), "AU9999", now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 560.5, points[0].Price)

	stats := c.Stats(context.Background())
	assert.Equal(t, true, stats["redis_enabled"])
	assert.Equal(t, 1, stats["redis_keys"])
}

func TestCircularQueueDropsOldPoints(t *testing.T) {
	q := NewCircularQueue(10 * time.Minute)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	q.Add(types.PriceDataPoint{Price: 1, Timestamp: base})
	q.Add(types.PriceDataPoint{Price: 2, Timestamp: base.Add(5 * time.Minute)})
	q.Add(types.PriceDataPoint{Price: 3, Timestamp: base.Add(12 * time.Minute)})

	assert.Equal(t, 2, q.Length())
	assert.Equal(t, 2.0, q.GetOldest().Price)
	assert.Equal(t, 3.0, q.GetLatest().Price)

	assert.Nil(t, q.FindPriceAroundTime(base.Add(time.Hour), time.Minute))
	assert.Equal(t, 2.0, q.FindPriceAroundTime(base.Add(6*time.Minute), 2*time.Minute).Price)
}
