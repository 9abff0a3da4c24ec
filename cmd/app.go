package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gold-signal-sentry/internal/analyzer"
	"gold-signal-sentry/internal/api"
	"gold-signal-sentry/internal/fetcher"
	"gold-signal-sentry/internal/llm"
	"gold-signal-sentry/internal/news"
	"gold-signal-sentry/internal/notifier"
	"gold-signal-sentry/internal/scheduler"
	"gold-signal-sentry/internal/storage"
	"gold-signal-sentry/internal/strategy/database"
	"gold-signal-sentry/internal/strategy/engine"
	"gold-signal-sentry/internal/strategy/indicators"
	"gold-signal-sentry/internal/strategy/monitor"
	"gold-signal-sentry/internal/strategy/websocket"
	"gold-signal-sentry/pkg/logger"
	"gold-signal-sentry/pkg/tracing"
	"gold-signal-sentry/pkg/types"
)

const (
	priceFeedInterval = time.Minute
	shutdownTimeout   = 30 * time.Second
)

// App 应用程序管理器
type App struct {
	config *types.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cache          *storage.Cache
	db             *database.Manager
	provider       *fetcher.DataProvider
	hub            *websocket.Hub
	taskScheduler  *scheduler.Scheduler
	server         *api.Server
	llmCallLog     *zap.Logger
	shutdownTracer func(context.Context) error
}

// NewApp 创建应用程序实例并组装各模块
func NewApp(config *types.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}

	shutdownTracer, err := tracing.Init(config.Tracing)
	if err != nil {
		cancel()
		return nil, err
	}
	app.shutdownTracer = shutdownTracer

	app.cache = storage.NewCache(config.Redis)
	app.db = app.openDatabase()
	app.provider = fetcher.NewDataProvider(config.Data, config.Network, app.cache)

	newsService := news.NewService(config.News, config.Network, app.cache)
	app.llmCallLog = openCallLog(config.Log)
	llmClient := llm.New(config.LLM, app.cache, app.llmCallLog)
	calculator := indicators.NewCalculator()
	signalMonitor := monitor.NewSignalMonitor()
	app.hub = websocket.NewHub(config.WebSocket, app.cache, config.Server.AllowOrigins)

	deps := analyzer.Deps{
		Engine:   engine.NewEngine(config.Strategy, calculator),
		Data:     app.provider,
		News:     newsService,
		LLM:      llmClient,
		Cache:    app.cache,
		Monitor:  signalMonitor,
		Hub:      app.hub,
		Notifier: notifier.New(config),
	}
	// 接口字段不能持有 typed nil
	if app.db != nil {
		deps.History = app.db
	}
	analysisEngine := analyzer.NewAnalysisEngine(deps, config.Data, config.Alert)

	app.taskScheduler = scheduler.NewScheduler(analysisEngine, signalMonitor, config.Scheduler)

	apiDeps := api.Deps{
		Analyzer: analysisEngine,
		Market:   app.provider,
		Charts:   calculator,
		LLM:      llmClient,
		Cache:    app.cache,
		Monitor:  signalMonitor,
	}
	if app.db != nil {
		apiDeps.History = app.db
	}
	if config.WebSocket.Enabled {
		apiDeps.Stream = app.hub
	}
	app.server = api.NewServer(config, apiDeps)

	return app, nil
}

// openDatabase 未配置 MySQL 或连接失败时不启用历史存储
func (app *App) openDatabase() *database.Manager {
	if app.config.Database.MySQL.Host == "" {
		zap.L().Info("⏸ 未配置MySQL，历史存储已禁用")
		return nil
	}
	db, err := database.NewManager(app.config.Database.MySQL)
	if err != nil {
		zap.L().Error("❌ 初始化数据库失败，历史存储已禁用", zap.Error(err))
		return nil
	}
	return db
}

// openCallLog 大模型调用日志，打开失败时不记录
func openCallLog(cfg types.LogConfig) *zap.Logger {
	l, err := logger.NewFileLogger(cfg, "llm_calls.log")
	if err != nil {
		zap.L().Warn("⚠️ 打开LLM调用日志失败", zap.Error(err))
		return zap.NewNop()
	}
	return l
}

// Start 启动后台任务与HTTP服务
func (app *App) Start() {
	zap.L().Info("🚀 Gold Signal Sentry 启动中...",
		zap.Strings("symbols", app.config.Data.Symbols),
		zap.Bool("redis", app.cache.UsingRedis()),
		zap.Bool("mysql", app.db != nil))

	app.run(func() { app.provider.Start(app.ctx, priceFeedInterval) })
	app.run(func() { app.hub.Start(app.ctx) })
	app.run(func() { app.taskScheduler.Start(app.ctx) })
	app.run(func() {
		if err := app.server.Start(); err != nil {
			zap.L().Error("❌ HTTP服务退出", zap.Error(err))
		}
	})

	zap.L().Info("✅ Gold Signal Sentry 已启动",
		zap.String("addr", app.config.Server.Host),
		zap.Int("port", app.config.Server.Port))
}

func (app *App) run(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		fn()
	}()
}

// Stop 停止应用程序
func (app *App) Stop() {
	zap.L().Info("🛑 收到停止信号，正在优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		zap.L().Error("❌ 关闭HTTP服务失败", zap.Error(err))
	}
	app.cancel()

	// 等待所有goroutine结束，最多等待30秒
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("✅ Gold Signal Sentry 已安全关闭")
	case <-ctx.Done():
		zap.L().Warn("⚠️ 强制关闭超时")
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			zap.L().Error("❌ 关闭数据库失败", zap.Error(err))
		}
	}
	_ = app.llmCallLog.Sync()
	if err := app.cache.Close(); err != nil {
		zap.L().Error("❌ 关闭缓存失败", zap.Error(err))
	}
	if err := app.shutdownTracer(ctx); err != nil {
		zap.L().Error("❌ 关闭链路追踪失败", zap.Error(err))
	}
}

// WaitForShutdown 等待关闭信号
func (app *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
