package types

// StrategyConfig 多因子策略参数
type StrategyConfig struct {
	Weights    FactorWeights   `mapstructure:"weights"`
	Thresholds SignalThreshold `mapstructure:"thresholds"`
	Macro      MacroConfig     `mapstructure:"macro"`

	SentimentWeight float64 `mapstructure:"sentiment_weight"` // 综合分中情绪面占比，技术面占 1-SentimentWeight，默认0.2
	MaxDrawdown     float64 `mapstructure:"max_drawdown"`     // 最大回撤约束，默认0.15
	MinBars         int     `mapstructure:"min_bars"`         // 判断市场状态所需最少K线数，默认60
}

// FactorWeights 技术因子权重
type FactorWeights struct {
	Trend             float64 `mapstructure:"trend"`
	Momentum          float64 `mapstructure:"momentum"`
	Volatility        float64 `mapstructure:"volatility"`
	SupportResistance float64 `mapstructure:"support_resistance"`
}

// SignalThreshold 综合分到信号等级的阈值
type SignalThreshold struct {
	StrongBuy  float64 `mapstructure:"strong_buy"`
	Buy        float64 `mapstructure:"buy"`
	Sell       float64 `mapstructure:"sell"`
	StrongSell float64 `mapstructure:"strong_sell"`
}

// MacroConfig 宏观调整参数
type MacroConfig struct {
	DXYFactor       float64 `mapstructure:"dxy_factor"`        // 美元指数涨跌幅乘数，默认2
	HighRealRate    float64 `mapstructure:"high_real_rate"`    // 实际利率高位阈值，默认2
	LowRealRate     float64 `mapstructure:"low_real_rate"`     // 实际利率低位阈值，默认0
	RealRatePenalty float64 `mapstructure:"real_rate_penalty"` // 实际利率调整幅度，默认10
}

// DefaultStrategyConfig 默认策略参数
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Weights: FactorWeights{
			Trend:             0.25,
			Momentum:          0.25,
			Volatility:        0.15,
			SupportResistance: 0.15,
		},
		Thresholds: SignalThreshold{
			StrongBuy:  60,
			Buy:        30,
			Sell:       -30,
			StrongSell: -60,
		},
		Macro: MacroConfig{
			DXYFactor:       2,
			HighRealRate:    2,
			LowRealRate:     0,
			RealRatePenalty: 10,
		},
		SentimentWeight: 0.2,
		MaxDrawdown:     0.15,
		MinBars:         60,
	}
}
