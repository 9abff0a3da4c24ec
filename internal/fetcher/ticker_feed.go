package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Start 定时拉取黄金代币最新价写入实时价格窗口
func (p *DataProvider) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	zap.L().Info("🚀 实时价格获取器启动",
		zap.String("symbol", p.cfg.OKXDepthSymbol),
		zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即执行一次
	p.fetchAndStore(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("📴 实时价格获取器已停止")
			return
		case <-ticker.C:
			p.fetchAndStore(ctx)
		}
	}
}

func (p *DataProvider) fetchAndStore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	err := p.call(ctx, sourceOKX, func() error {
		quote, err := p.okx.Ticker(ctx, p.cfg.OKXDepthSymbol)
		if err != nil {
			return err
		}
		p.cache.StorePrice(quote.Symbol, quote.Price, quote.Time)
		return nil
	})
	if err != nil {
		zap.L().Error("❌ 获取实时价格失败", zap.Error(err))
	}
}

// LatestPrice 实时价格窗口中的最新价
func (p *DataProvider) LatestPrice() (float64, bool) {
	current, _ := p.cache.GetPriceData(p.cfg.OKXDepthSymbol)
	if current == nil {
		return 0, false
	}
	return current.Price, true
}
