package signals

import (
	"math"

	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
)

// Generator 多因子信号生成器，无内部状态，可并发使用
type Generator struct {
	config types.StrategyConfig
}

// NewGenerator 创建信号生成器，未配置的参数使用默认值
func NewGenerator(config types.StrategyConfig) *Generator {
	defaults := types.DefaultStrategyConfig()
	if config.Weights == (types.FactorWeights{}) {
		config.Weights = defaults.Weights
	}
	if config.Thresholds == (types.SignalThreshold{}) {
		config.Thresholds = defaults.Thresholds
	}
	if config.Macro == (types.MacroConfig{}) {
		config.Macro = defaults.Macro
	}
	// 情绪权重为0时综合分只看技术面
	if math.IsNaN(config.SentimentWeight) || config.SentimentWeight < 0 || config.SentimentWeight > 1 {
		zap.L().Warn("⚠️ 情绪权重超出[0,1]，使用默认值",
			zap.Float64("sentiment_weight", config.SentimentWeight),
			zap.Float64("default", defaults.SentimentWeight))
		config.SentimentWeight = defaults.SentimentWeight
	}
	if config.MaxDrawdown <= 0 || config.MaxDrawdown >= 1 {
		config.MaxDrawdown = defaults.MaxDrawdown
	}
	if config.MinBars <= 0 {
		config.MinBars = defaults.MinBars
	}
	return &Generator{config: config}
}

// Config 返回生效的策略参数
func (g *Generator) Config() types.StrategyConfig {
	return g.config
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
