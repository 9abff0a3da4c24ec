package types

import "time"

// Config 主配置结构
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Network   NetworkConfig   `mapstructure:"network"`
	Data      DataConfig      `mapstructure:"data"`
	News      NewsConfig      `mapstructure:"news"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alert     AlertConfig     `mapstructure:"alert"`
	DingTalk  DingTalkConfig  `mapstructure:"dingtalk"`
	PushPlus  PushPlusConfig  `mapstructure:"pushplus"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	FilePath   string `mapstructure:"file_path"`   // 日志输出路径名
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件大小 单位：MB，超限后会自动切割
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件存放时间 单位：天
	MaxBackups int    `mapstructure:"max_backups"` // 日志文件备份数量
	Compress   bool   `mapstructure:"compress"`    // 日志文件压缩
}

// RedisConfig Redis配置
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
}

// MySQLConfig MySQL配置，Host 为空时不启用历史存储
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// NetworkConfig 网络配置
type NetworkConfig struct {
	Proxy   string        `mapstructure:"proxy"`   // HTTP代理地址，如 http://127.0.0.1:7890
	Timeout time.Duration `mapstructure:"timeout"` // 网络超时时间
}

// DataConfig 行情与宏观数据源配置
type DataConfig struct {
	GoldSymbol     string        `mapstructure:"gold_symbol"`      // 黄金期货代码，默认 GC=F
	DXYSymbol      string        `mapstructure:"dxy_symbol"`       // 美元指数代码，默认 DX-Y.NYB
	YieldSymbol    string        `mapstructure:"yield_symbol"`     // 10年期美债收益率，默认 ^TNX
	USDCNYSymbol   string        `mapstructure:"usdcny_symbol"`    // 美元兑人民币，默认 CNY=X
	Symbols        []string      `mapstructure:"symbols"`          // 需要分析的品种
	Period         string        `mapstructure:"period"`           // 历史数据范围，如 1y
	Interval       string        `mapstructure:"interval"`         // K线周期，如 1d
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`        // 行情缓存时间
	YahooBaseURL   string        `mapstructure:"yahoo_base_url"`   // Yahoo chart 接口地址
	FREDBaseURL    string        `mapstructure:"fred_base_url"`    // FRED 接口地址
	FREDAPIKey     string        `mapstructure:"fred_api_key"`     // 为空时跳过FRED
	OKXDepthSymbol string        `mapstructure:"okx_depth_symbol"` // 盘口数据品种，默认 XAUT-USDT
	OKXBaseURL     string        `mapstructure:"okx_base_url"`     // 为空时使用 goex 默认地址
}

// NewsConfig 新闻配置
type NewsConfig struct {
	FinnhubAPIKey  string        `mapstructure:"finnhub_api_key"`
	FinnhubBaseURL string        `mapstructure:"finnhub_base_url"`
	Limit          int           `mapstructure:"limit"`           // 保留条数
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`       // 新闻缓存时间
	ScraperEnabled bool          `mapstructure:"scraper_enabled"` // 是否启用网页抓取
	SourcesFile    string        `mapstructure:"sources_file"`    // 抓取源定义文件
}

// LLMConfig 大模型配置
type LLMConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Provider   string        `mapstructure:"provider"` // openrouter | zhipu
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"` // 为空时按 provider 选择
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	DailyLimit int           `mapstructure:"daily_limit"` // 每日分析调用上限，聊天不计入
}

// SchedulerConfig 调度配置
type SchedulerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DailyHour       int           `mapstructure:"daily_hour"`
	DailyMinute     int           `mapstructure:"daily_minute"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // 0 表示只做每日更新
	StatsInterval   time.Duration `mapstructure:"stats_interval"`   // 信号统计输出间隔
}

// AlertConfig 信号提醒配置
type AlertConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Cooldown time.Duration `mapstructure:"cooldown"` // 同一品种同一信号的静默时间
}

// DingTalkConfig 钉钉配置
type DingTalkConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Secret     string `mapstructure:"secret"`
}

// PushPlusConfig PushPlus配置
type PushPlusConfig struct {
	UserToken string `mapstructure:"user_token"`
	To        string `mapstructure:"to"` // 好友令牌，多人用逗号分隔
}

// TelegramConfig Telegram配置
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"` // gin 模式: debug | release | test
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// WebSocketConfig 实时推送配置
type WebSocketConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	TickInterval   time.Duration `mapstructure:"tick_interval"` // 模拟行情推送间隔
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	DefaultSymbols []string      `mapstructure:"default_symbols"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
