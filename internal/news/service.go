package news

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gold-signal-sentry/internal/storage"
	historyfetcher "gold-signal-sentry/internal/strategy/fetcher"
	"gold-signal-sentry/pkg/metrics"
	"gold-signal-sentry/pkg/types"
)

// 少于该条数时改用精选新闻
const minNewsItems = 3

// Service 黄金相关新闻服务
type Service struct {
	limit    int
	cacheTTL time.Duration
	finnhub  *FinnhubClient
	scraper  *Scraper
	cache    *storage.Cache
	now      func() time.Time
}

func NewService(cfg types.NewsConfig, networkConfig types.NetworkConfig, cache *storage.Cache) *Service {
	timeout := networkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 10
	}

	s := &Service{
		limit:    limit,
		cacheTTL: cfg.CacheTTL,
		finnhub:  NewFinnhubClient(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, historyfetcher.NewHTTPClient(networkConfig.Proxy, timeout)),
		cache:    cache,
		now:      time.Now,
	}

	if cfg.ScraperEnabled && cfg.SourcesFile != "" {
		sources, err := LoadSources(cfg.SourcesFile)
		if err != nil {
			zap.L().Warn("⚠️ 加载新闻源失败，网页抓取已禁用", zap.Error(err))
		} else {
			s.scraper = NewScraper(sources, timeout, networkConfig.Proxy)
			zap.L().Info("✅ 网页新闻抓取已启用", zap.Int("sources", len(sources)))
		}
	}

	return s
}

// GetNews 获取已打标签的新闻，优先读缓存，永不返回空列表
func (s *Service) GetNews(ctx context.Context) []types.NewsItem {
	if s.cache != nil {
		if items, err := s.cache.LoadNews(ctx); err == nil && len(items) > 0 {
			return items
		}
	}
	return s.Refresh(ctx)
}

// Refresh 重新拉取并打标签
func (s *Service) Refresh(ctx context.Context) []types.NewsItem {
	raws := s.collect(ctx)

	scored := make([]ScoredItem, 0, len(raws))
	for _, raw := range raws {
		if item, ok := Tag(raw); ok {
			scored = append(scored, item)
		}
	}
	items := Select(scored, s.limit)

	zap.L().Info("📰 新闻筛选完成",
		zap.Int("raw", len(raws)),
		zap.Int("relevant", len(scored)),
		zap.Int("selected", len(items)))

	if len(items) < minNewsItems {
		zap.L().Warn("⚠️ 相关新闻不足，使用精选新闻", zap.Int("selected", len(items)))
		items = SimulatedNews(s.now(), s.limit)
	}

	if s.cache != nil {
		if err := s.cache.SaveNews(ctx, items, s.cacheTTL); err != nil {
			zap.L().Warn("写入新闻缓存失败", zap.Error(err))
		}
	}
	return items
}

func (s *Service) collect(ctx context.Context) []RawArticle {
	var raws []RawArticle

	if s.finnhub.Enabled() {
		articles, err := s.finnhub.GeneralNews(ctx)
		if err != nil {
			metrics.FetchErrors.WithLabelValues("finnhub").Inc()
			zap.L().Error("❌ 获取Finnhub新闻失败", zap.Error(err))
		} else {
			raws = append(raws, articles...)
		}
	}

	if s.scraper != nil {
		raws = append(raws, s.scraper.Scrape()...)
	}
	return raws
}
