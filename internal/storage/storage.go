package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
)

// ErrCacheMiss 缓存不存在或已过期
var ErrCacheMiss = errors.New("cache miss")

const (
	keyPrefix        = "gold:"
	priceWindow      = 30 * time.Minute
	priceTolerance   = 2 * time.Minute
	operationTimeout = 3 * time.Second
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // 零值表示不过期
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache 行情、分析结果和计数器缓存，Redis 不可用时退化为进程内存
type Cache struct {
	redisClient  *redis.Client
	useRedis     bool
	mutex        sync.RWMutex
	entries      map[string]memoryEntry
	priceHistory map[string]*CircularQueue
	now          func() time.Time
}

// NewCache 创建缓存，URL 为空或连接失败时使用纯内存模式
func NewCache(redisConfig types.RedisConfig) *Cache {
	c := &Cache{
		entries:      make(map[string]memoryEntry),
		priceHistory: make(map[string]*CircularQueue),
		now:          time.Now,
	}

	if redisConfig.URL == "" {
		zap.L().Info("🔧 未配置Redis，使用纯内存模式")
		return c
	}

	c.redisClient = redis.NewClient(&redis.Options{
		Addr:     redisConfig.URL,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		zap.L().Warn("⚠️ Redis连接失败，使用纯内存模式", zap.Error(err))
		_ = c.redisClient.Close()
		c.redisClient = nil
		return c
	}

	zap.L().Info("✅ Redis连接成功", zap.String("addr", redisConfig.URL))
	c.useRedis = true
	return c
}

// UsingRedis 是否使用Redis
func (c *Cache) UsingRedis() bool {
	return c.useRedis
}

// Set 以JSON写入缓存，ttl 为 0 表示不过期
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存数据失败 %s: %w", key, err)
	}

	if c.useRedis {
		if err := c.redisClient.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
			return fmt.Errorf("Redis写入失败 %s: %w", key, err)
		}
		return nil
	}

	entry := memoryEntry{value: data}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.mutex.Lock()
	c.entries[key] = entry
	c.mutex.Unlock()
	return nil
}

// Get 读取缓存并反序列化到 dest，未命中返回 ErrCacheMiss
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	var data []byte

	if c.useRedis {
		raw, err := c.redisClient.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		if err != nil {
			return fmt.Errorf("Redis读取失败 %s: %w", key, err)
		}
		data = raw
	} else {
		c.mutex.RLock()
		entry, ok := c.entries[key]
		c.mutex.RUnlock()
		if !ok || entry.expired(c.now()) {
			return ErrCacheMiss
		}
		data = entry.value
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("解析缓存数据失败 %s: %w", key, err)
	}
	return nil
}

// Delete 删除缓存
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if c.useRedis {
		prefixed := make([]string, len(keys))
		for i, k := range keys {
			prefixed[i] = keyPrefix + k
		}
		return c.redisClient.Del(ctx, prefixed...).Err()
	}

	c.mutex.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mutex.Unlock()
	return nil
}

// Incr 计数器加一，首次创建时设置过期时间
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.useRedis {
		n, err := c.redisClient.Incr(ctx, keyPrefix+key).Result()
		if err != nil {
			return 0, fmt.Errorf("Redis计数失败 %s: %w", key, err)
		}
		if n == 1 && ttl > 0 {
			c.redisClient.Expire(ctx, keyPrefix+key, ttl)
		}
		return n, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	var n int64
	entry, ok := c.entries[key]
	if ok && !entry.expired(now) {
		n, _ = strconv.ParseInt(string(entry.value), 10, 64)
	} else {
		entry = memoryEntry{}
		if ttl > 0 {
			entry.expiresAt = now.Add(ttl)
		}
	}
	n++
	entry.value = []byte(strconv.FormatInt(n, 10))
	c.entries[key] = entry
	return n, nil
}

// Counter 读取计数器，不存在时为 0
func (c *Cache) Counter(ctx context.Context, key string) (int64, error) {
	var n int64
	err := c.Get(ctx, key, &n)
	if errors.Is(err, ErrCacheMiss) {
		return 0, nil
	}
	return n, err
}

// StorePrice 记录实时价格，内存滑动窗口保存，Redis 可用时异步备份到有序集合
func (c *Cache) StorePrice(symbol string, price float64, timestamp time.Time) {
	c.mutex.Lock()
	queue := c.priceHistory[symbol]
	if queue == nil {
		queue = NewCircularQueue(priceWindow)
		c.priceHistory[symbol] = queue
	}
	c.mutex.Unlock()

	point := types.PriceDataPoint{
		Price:     price,
		Timestamp: timestamp,
	}
	queue.Add(point)

	if c.useRedis {
		go c.backupToRedis(symbol, point)
	}
}

// backupToRedis 备份价格到Redis Sorted Set，以时间戳为分数
func (c *Cache) backupToRedis(symbol string, point types.PriceDataPoint) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	key := priceKey(symbol)
	value, err := json.Marshal(point)
	if err != nil {
		zap.L().Error("序列化价格数据失败", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	err = c.redisClient.ZAdd(ctx, key, &redis.Z{
		Score:  float64(point.Timestamp.UnixMilli()),
		Member: value,
	}).Err()
	if err != nil {
		zap.L().Warn("Redis存储价格失败", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	// 只保留最近窗口内的数据
	c.redisClient.Expire(ctx, key, 2*priceWindow)
	cutoff := point.Timestamp.Add(-priceWindow).UnixMilli()
	c.redisClient.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
}

// GetPriceData 返回最新价格和约5分钟前的价格
func (c *Cache) GetPriceData(symbol string) (current, past *types.PriceDataPoint) {
	c.mutex.RLock()
	queue := c.priceHistory[symbol]
	c.mutex.RUnlock()

	if queue == nil {
		return nil, nil
	}

	current = queue.GetLatest()
	if current == nil {
		return nil, nil
	}
	past = queue.FindPriceAroundTime(current.Timestamp.Add(-5*time.Minute), priceTolerance)
	return current, past
}

// RecentPrices 返回 since 之后的价格，内存无数据时从Redis读取
func (c *Cache) RecentPrices(ctx context.Context, symbol string, since time.Time) ([]types.PriceDataPoint, error) {
	c.mutex.RLock()
	queue := c.priceHistory[symbol]
	c.mutex.RUnlock()

	if queue != nil && queue.Length() > 0 {
		return queue.Since(since), nil
	}
	if !c.useRedis {
		return nil, nil
	}

	members, err := c.redisClient.ZRangeByScore(ctx, priceKey(symbol), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("Redis读取价格失败 %s: %w", symbol, err)
	}

	points := make([]types.PriceDataPoint, 0, len(members))
	for _, m := range members {
		var p types.PriceDataPoint
		if err := json.Unmarshal([]byte(m), &p); err != nil {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

// GetAllSymbols 返回有实时价格的品种
func (c *Cache) GetAllSymbols() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	symbols := make([]string, 0, len(c.priceHistory))
	for symbol := range c.priceHistory {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Stats 缓存统计信息
func (c *Cache) Stats(ctx context.Context) map[string]interface{} {
	c.mutex.RLock()
	stats := map[string]interface{}{
		"redis_enabled":  c.useRedis,
		"memory_symbols": len(c.priceHistory),
		"memory_keys":    len(c.entries),
	}
	c.mutex.RUnlock()

	if c.useRedis {
		ctx, cancel := context.WithTimeout(ctx, operationTimeout)
		defer cancel()

		keys, err := c.redisClient.Keys(ctx, keyPrefix+"*").Result()
		if err == nil {
			stats["redis_keys"] = len(keys)
		} else {
			stats["redis_error"] = err.Error()
		}
	}

	return stats
}

// Close 关闭Redis连接
func (c *Cache) Close() error {
	if c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

func priceKey(symbol string) string {
	return keyPrefix + "price:" + symbol
}
