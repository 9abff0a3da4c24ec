package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gold-signal-sentry/pkg/types"
)

// Load 加载配置
func Load() (*types.Config, error) {
	// .env 中的密钥先写入环境变量，已存在的环境变量不会被覆盖
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取.env失败: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// 设置默认值
	setDefaults(v)

	// 读取环境变量，log.level 对应 LOG_LEVEL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 优先尝试读取本地配置文件
	v.SetConfigName("config.local")
	if err := v.ReadInConfig(); err != nil {
		// 如果本地配置文件不存在，尝试读取默认配置文件
		v.SetConfigName("config")
		if err := v.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var config types.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "logs")
	v.SetDefault("log.max_size", 200)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("redis.url", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.mysql.host", "")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "root")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "gold_signal")
	v.SetDefault("database.mysql.max_idle_conns", 5)
	v.SetDefault("database.mysql.max_open_conns", 20)

	v.SetDefault("network.proxy", "")
	v.SetDefault("network.timeout", 30*time.Second)

	v.SetDefault("data.gold_symbol", "GC=F")
	v.SetDefault("data.dxy_symbol", "DX-Y.NYB")
	v.SetDefault("data.yield_symbol", "^TNX")
	v.SetDefault("data.usdcny_symbol", "CNY=X")
	v.SetDefault("data.symbols", []string{"GC=F"})
	v.SetDefault("data.period", "1y")
	v.SetDefault("data.interval", "1d")
	v.SetDefault("data.cache_ttl", 300*time.Second)
	v.SetDefault("data.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("data.fred_base_url", "https://api.stlouisfed.org")
	v.SetDefault("data.fred_api_key", "")
	v.SetDefault("data.okx_depth_symbol", "XAUT-USDT")
	v.SetDefault("data.okx_base_url", "")

	v.SetDefault("news.finnhub_api_key", "")
	v.SetDefault("news.finnhub_base_url", "https://finnhub.io")
	v.SetDefault("news.limit", 10)
	v.SetDefault("news.cache_ttl", 30*time.Minute)
	v.SetDefault("news.scraper_enabled", false)
	v.SetDefault("news.sources_file", "configs/news_sources.yaml")

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "deepseek/deepseek-chat")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.daily_limit", 3)

	defaults := types.DefaultStrategyConfig()
	v.SetDefault("strategy.weights.trend", defaults.Weights.Trend)
	v.SetDefault("strategy.weights.momentum", defaults.Weights.Momentum)
	v.SetDefault("strategy.weights.volatility", defaults.Weights.Volatility)
	v.SetDefault("strategy.weights.support_resistance", defaults.Weights.SupportResistance)
	v.SetDefault("strategy.thresholds.strong_buy", defaults.Thresholds.StrongBuy)
	v.SetDefault("strategy.thresholds.buy", defaults.Thresholds.Buy)
	v.SetDefault("strategy.thresholds.sell", defaults.Thresholds.Sell)
	v.SetDefault("strategy.thresholds.strong_sell", defaults.Thresholds.StrongSell)
	v.SetDefault("strategy.macro.dxy_factor", defaults.Macro.DXYFactor)
	v.SetDefault("strategy.macro.high_real_rate", defaults.Macro.HighRealRate)
	v.SetDefault("strategy.macro.low_real_rate", defaults.Macro.LowRealRate)
	v.SetDefault("strategy.macro.real_rate_penalty", defaults.Macro.RealRatePenalty)
	v.SetDefault("strategy.sentiment_weight", defaults.SentimentWeight)
	v.SetDefault("strategy.max_drawdown", defaults.MaxDrawdown)
	v.SetDefault("strategy.min_bars", defaults.MinBars)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.daily_hour", 14)
	v.SetDefault("scheduler.daily_minute", 0)
	v.SetDefault("scheduler.refresh_interval", 30*time.Minute)
	v.SetDefault("scheduler.stats_interval", time.Hour)

	v.SetDefault("alert.enabled", true)
	v.SetDefault("alert.cooldown", 6*time.Hour)

	v.SetDefault("dingtalk.webhook_url", "")
	v.SetDefault("dingtalk.secret", "")
	v.SetDefault("pushplus.user_token", "")
	v.SetDefault("pushplus.to", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.tick_interval", 3*time.Second)
	v.SetDefault("websocket.ping_interval", 30*time.Second)
	v.SetDefault("websocket.default_symbols", []string{"AU9999", "XAU/USD"})

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "gold-signal-sentry")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
