package llm

import (
	"context"
	"time"

	"gold-signal-sentry/pkg/types"
)

// Noop 未启用大模型时使用，所有调用返回 ErrLLMDisabled
type Noop struct{}

func (Noop) Enabled() bool { return false }

func (Noop) Explain(context.Context, *types.MarketAnalysis) (string, error) {
	return "", ErrLLMDisabled
}

func (Noop) AnalyzeNews(_ context.Context, news []types.NewsItem) ([]types.NewsItem, string, error) {
	return news, "", ErrLLMDisabled
}

func (Noop) Chat(context.Context, string, *types.MarketAnalysis) (string, error) {
	return "", ErrLLMDisabled
}

func (Noop) Stats(context.Context) Stats {
	return Stats{TodayDate: time.Now().Format("2006-01-02")}
}

func (Noop) ResetCounters(context.Context) error { return nil }
