package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
	"gold-signal-sentry/internal/analyzer"
	"gold-signal-sentry/pkg/types"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	defaultStatsDays    = 30
	defaultDepthLimit   = 10
)

var validDepthLimits = map[int]bool{5: true, 10: true, 20: true, 50: true, 100: true}

// RefreshResponse 刷新结果
type RefreshResponse struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	DataTime *time.Time `json:"data_time,omitempty"`
}

// PriceResponse 实时价格
type PriceResponse struct {
	Success          bool      `json:"success"`
	CurrentPrice     float64   `json:"current_price"`
	PriceChange      float64   `json:"price_change"`
	PriceChangePct   float64   `json:"price_change_pct"`
	PriceRefreshTime time.Time `json:"price_refresh_time"`
}

// MarketDepthResponse 盘口深度与汇总
type MarketDepthResponse struct {
	*types.MarketDepth
	BestBid        float64 `json:"best_bid"`
	BestAsk        float64 `json:"best_ask"`
	CurrentPrice   float64 `json:"current_price"`
	TotalBidVolume float64 `json:"total_bid_volume"`
	TotalAskVolume float64 `json:"total_ask_volume"`
	BidAskRatio    float64 `json:"bid_ask_ratio"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    serviceName,
		"version": serviceVersion,
		"status":  "running",
	})
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()
	services := map[string]string{
		"redis":    "memory",
		"database": "disabled",
		"llm":      "disabled",
	}
	status := "healthy"

	if s.Cache != nil && s.Cache.UsingRedis() {
		services["redis"] = "healthy"
	}
	if s.History != nil {
		if err := s.History.Health(); err != nil {
			services["database"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			services["database"] = "healthy"
		}
	}
	if s.LLM.Enabled() {
		services["llm"] = "enabled"
	}

	system := gin.H{}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		system["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		system["memory_percent"] = vm.UsedPercent
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"version":   serviceVersion,
		"timestamp": time.Now(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"services":  services,
		"system":    system,
	})
}

// symbolParam 读取品种参数，未指定时使用默认品种
func (s *Server) symbolParam(c *gin.Context) (string, bool) {
	symbol := c.Query("symbol")
	if symbol == "" {
		return s.Analyzer.DefaultSymbol(), true
	}
	for _, sym := range s.Analyzer.Symbols() {
		if sym == symbol {
			return symbol, true
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported symbol: " + symbol})
	return "", false
}

// analysisError 分析不可用统一返回 503，根因只写日志
func analysisError(c *gin.Context, symbol string, err error) {
	zap.L().Error("❌ 获取分析失败", zap.String("symbol", symbol), zap.Error(err))
	if errors.Is(err, analyzer.ErrAnalysisUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis unavailable"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (s *Server) getAnalysis(c *gin.Context) {
	symbol, ok := s.symbolParam(c)
	if !ok {
		return
	}

	analysis, err := s.Analyzer.Latest(c.Request.Context(), symbol)
	if err != nil {
		analysisError(c, symbol, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) refresh(c *gin.Context) {
	symbol, ok := s.symbolParam(c)
	if !ok {
		return
	}

	analysis, err := s.Analyzer.Analyze(c.Request.Context(), symbol, true)
	if err != nil {
		zap.L().Error("❌ 刷新数据失败", zap.String("symbol", symbol), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, analyzer.ErrAnalysisUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, RefreshResponse{Success: false, Message: "Failed to fetch data"})
		return
	}

	dataTime := analysis.Timestamp
	c.JSON(http.StatusOK, RefreshResponse{
		Success:  true,
		Message:  "Data refreshed successfully",
		DataTime: &dataTime,
	})
}

func (s *Server) getPrice(c *gin.Context) {
	quote, err := s.Market.GetQuote(c.Request.Context(), s.Analyzer.DefaultSymbol())
	if err != nil {
		zap.L().Warn("⚠️ 获取实时价格失败", zap.Error(err))
		c.JSON(http.StatusOK, PriceResponse{PriceRefreshTime: time.Now()})
		return
	}

	c.JSON(http.StatusOK, PriceResponse{
		Success:          true,
		CurrentPrice:     quote.Price,
		PriceChange:      quote.Change,
		PriceChangePct:   quote.ChangePct,
		PriceRefreshTime: time.Now(),
	})
}

func (s *Server) getChart(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", s.Analyzer.DefaultSymbol())
	period := c.DefaultQuery("period", s.config.Data.Period)
	interval := c.Query("interval")
	if interval == "" {
		interval = chartInterval(period)
	}

	bars, err := s.Market.GetHistory(c.Request.Context(), symbol, fetchPeriod(period), interval)
	if err != nil {
		zap.L().Error("❌ 获取图表数据失败", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "chart data unavailable"})
		return
	}
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No data available"})
		return
	}

	c.JSON(http.StatusOK, buildChart(s.Charts, symbol, period, interval, bars))
}

func (s *Server) getMarketDepth(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultDepthLimit)))
	if err != nil || !validDepthLimits[limit] {
		limit = defaultDepthLimit
	}

	depth, err := s.Market.GetMarketDepth(c.Request.Context(), limit)
	if err != nil {
		zap.L().Error("❌ 获取盘口深度失败", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "market depth unavailable"})
		return
	}
	c.JSON(http.StatusOK, summarizeDepth(depth))
}

func summarizeDepth(depth *types.MarketDepth) MarketDepthResponse {
	resp := MarketDepthResponse{MarketDepth: depth}
	for _, b := range depth.Bids {
		resp.TotalBidVolume += b.Size
	}
	for _, a := range depth.Asks {
		resp.TotalAskVolume += a.Size
	}
	if len(depth.Bids) > 0 {
		resp.BestBid = depth.Bids[0].Price
	}
	if len(depth.Asks) > 0 {
		resp.BestAsk = depth.Asks[0].Price
	}
	if resp.BestBid > 0 && resp.BestAsk > 0 {
		resp.CurrentPrice = (resp.BestBid + resp.BestAsk) / 2
	}
	if resp.TotalAskVolume > 0 {
		resp.BidAskRatio = resp.TotalBidVolume / resp.TotalAskVolume
	}
	return resp
}

func (s *Server) getGoldPrices(c *gin.Context) {
	prices, err := s.Market.GetGoldPrices(c.Request.Context())
	if err != nil {
		zap.L().Error("❌ 获取金价失败", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "gold prices unavailable"})
		return
	}
	c.JSON(http.StatusOK, prices)
}

func (s *Server) getHistory(c *gin.Context) {
	if s.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history storage disabled"})
		return
	}
	symbol, ok := s.symbolParam(c)
	if !ok {
		return
	}

	limit := queryInt(c, "limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	days := queryInt(c, "days", defaultStatsDays)
	if days <= 0 {
		days = defaultStatsDays
	}

	records, err := s.History.GetAnalyses(symbol, limit)
	if err != nil {
		zap.L().Error("❌ 查询历史分析失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}
	stats, err := s.History.GetDailyStats(symbol, days)
	if err != nil {
		zap.L().Error("❌ 查询每日统计失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":      symbol,
		"analyses":    records,
		"daily_stats": stats,
	})
}

func (s *Server) getStats(c *gin.Context) {
	resp := gin.H{
		"signals":  s.Monitor.GetMetrics(),
		"breakers": s.Market.BreakerStates(),
	}
	if s.Cache != nil {
		resp["cache"] = s.Cache.Stats(c.Request.Context())
	}
	if s.Stream != nil {
		resp["websocket_clients"] = s.Stream.ClientCount()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getLLMStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.LLM.Stats(c.Request.Context()))
}

func (s *Server) resetLLMCounters(c *gin.Context) {
	if err := s.LLM.ResetCounters(c.Request.Context()); err != nil {
		zap.L().Error("❌ 重置大模型计数失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "LLM counters reset successfully"})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
