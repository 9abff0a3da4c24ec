package storage

import (
	"context"
	"fmt"
	"time"

	"gold-signal-sentry/pkg/types"
)

func barsKey(symbol, interval string) string {
	return fmt.Sprintf("bars:%s:%s", symbol, interval)
}

func analysisKey(symbol string) string {
	return "analysis:latest:" + symbol
}

// SaveBars 缓存K线
func (c *Cache) SaveBars(ctx context.Context, symbol, interval string, bars []types.Bar, ttl time.Duration) error {
	return c.Set(ctx, barsKey(symbol, interval), bars, ttl)
}

// LoadBars 读取缓存K线
func (c *Cache) LoadBars(ctx context.Context, symbol, interval string) ([]types.Bar, error) {
	var bars []types.Bar
	if err := c.Get(ctx, barsKey(symbol, interval), &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// SaveAnalysis 缓存最新分析结果，不过期，下次分析时覆盖
func (c *Cache) SaveAnalysis(ctx context.Context, symbol string, analysis *types.MarketAnalysis) error {
	return c.Set(ctx, analysisKey(symbol), analysis, 0)
}

// LatestAnalysis 读取最新分析结果
func (c *Cache) LatestAnalysis(ctx context.Context, symbol string) (*types.MarketAnalysis, error) {
	var analysis types.MarketAnalysis
	if err := c.Get(ctx, analysisKey(symbol), &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// SaveMacro 缓存宏观数据
func (c *Cache) SaveMacro(ctx context.Context, macro *types.MacroData, ttl time.Duration) error {
	return c.Set(ctx, "macro", macro, ttl)
}

// LoadMacro 读取缓存宏观数据
func (c *Cache) LoadMacro(ctx context.Context) (*types.MacroData, error) {
	var macro types.MacroData
	if err := c.Get(ctx, "macro", &macro); err != nil {
		return nil, err
	}
	return &macro, nil
}

// SaveNews 缓存已打标签的新闻
func (c *Cache) SaveNews(ctx context.Context, news []types.NewsItem, ttl time.Duration) error {
	return c.Set(ctx, "news", news, ttl)
}

// LoadNews 读取缓存新闻
func (c *Cache) LoadNews(ctx context.Context) ([]types.NewsItem, error) {
	var news []types.NewsItem
	if err := c.Get(ctx, "news", &news); err != nil {
		return nil, err
	}
	return news, nil
}
