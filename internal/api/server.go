package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gold-signal-sentry/internal/llm"
	"gold-signal-sentry/internal/strategy/database"
	"gold-signal-sentry/internal/strategy/monitor"
	"gold-signal-sentry/pkg/types"
)

const (
	serviceName    = "Gold Signal Sentry"
	serviceVersion = "1.0.0"
	requestIDKey   = "X-Request-ID"
)

// Analyzer 分析编排
type Analyzer interface {
	Symbols() []string
	DefaultSymbol() string
	Latest(ctx context.Context, symbol string) (*types.MarketAnalysis, error)
	Analyze(ctx context.Context, symbol string, refresh bool) (*types.MarketAnalysis, error)
}

// MarketData 行情查询
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (*types.Quote, error)
	GetHistory(ctx context.Context, symbol, period, interval string) ([]types.Bar, error)
	GetMarketDepth(ctx context.Context, size int) (*types.MarketDepth, error)
	GetGoldPrices(ctx context.Context) (*types.GoldPrices, error)
	BreakerStates() map[string]string
}

// ChartCalculator 图表均线与关键位
type ChartCalculator interface {
	Compute(bars []types.Bar) *types.IndicatorSnapshot
	ChartSeries(bars []types.Bar) []types.ChartPoint
}

// HistoryStore 历史分析查询，未配置数据库时为 nil
type HistoryStore interface {
	GetAnalyses(symbol string, limit int) ([]database.AnalysisRecord, error)
	GetDailyStats(symbol string, days int) ([]database.DailySignalStats, error)
	Health() error
}

// CacheStatus 缓存状态
type CacheStatus interface {
	UsingRedis() bool
	Stats(ctx context.Context) map[string]interface{}
}

// SignalStats 信号统计
type SignalStats interface {
	GetMetrics() monitor.SignalMetrics
}

// StreamHandler WebSocket 推送入口
type StreamHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Deps 路由依赖，History 与 Stream 可为 nil
type Deps struct {
	Analyzer Analyzer
	Market   MarketData
	Charts   ChartCalculator
	LLM      llm.Client
	History  HistoryStore
	Cache    CacheStatus
	Monitor  SignalStats
	Stream   StreamHandler
}

// Server HTTP服务
type Server struct {
	Deps
	config     *types.Config
	router     *gin.Engine
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer 创建HTTP服务并注册路由
func NewServer(config *types.Config, deps Deps) *Server {
	if deps.LLM == nil {
		deps.LLM = llm.Noop{}
	}
	if config.Server.Mode != "" {
		gin.SetMode(config.Server.Mode)
	}

	s := &Server{
		Deps:      deps,
		config:    config,
		router:    gin.New(),
		startedAt: time.Now(),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler 返回路由，测试用
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), requestID(), accessLog(), cors(s.config.Server.AllowOrigins))
	if s.config.Tracing.Enabled {
		s.router.Use(otelgin.Middleware(s.config.Tracing.ServiceName))
	}

	s.router.GET("/", s.root)
	s.router.GET("/health", s.health)
	if s.config.Metrics.Enabled {
		path := s.config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(promhttp.Handler()))
	}
	if s.Stream != nil {
		s.router.GET("/ws", gin.WrapF(s.Stream.ServeWS))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/analysis", s.getAnalysis)
		v1.POST("/refresh", s.refresh)
		v1.GET("/price", s.getPrice)
		v1.GET("/chart", s.getChart)
		v1.POST("/chat", s.chat)
		v1.GET("/market-depth", s.getMarketDepth)
		v1.GET("/gold-prices", s.getGoldPrices)
		v1.GET("/history", s.getHistory)
		v1.GET("/stats", s.getStats)

		llmGroup := v1.Group("/llm")
		{
			llmGroup.GET("/stats", s.getLLMStats)
			llmGroup.POST("/reset-counters", s.resetLLMCounters)
		}
	}
}

// Start 阻塞运行，直到 Shutdown
func (s *Server) Start() error {
	zap.L().Info("🌐 HTTP服务启动", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDKey, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			zap.L().Warn("⚠️ 请求处理失败", fields...)
			return
		}
		zap.L().Debug("📥 请求", fields...)
	}
}

func cors(allowOrigins []string) gin.HandlerFunc {
	allowAll := len(allowOrigins) == 0
	allowed := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
