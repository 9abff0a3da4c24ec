package websocket

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gold-signal-sentry/pkg/metrics"
	"gold-signal-sentry/pkg/types"
)

// 推送消息类型
const (
	TypePrice     = "price"
	TypeOrderBook = "orderbook"
	TypeAnalysis  = "analysis"
	TypeHeartbeat = "heartbeat"
	TypeNews      = "news"
)

const (
	orderBookLevels = 10
	orderBookStep   = 0.5
	orderBookEvery  = 3 // 每N个价格推送一次盘口
)

// 没有任何价格来源时使用的基准价
var defaultBasePrices = map[string]float64{
	"AU9999":  580.50,
	"XAU/USD": 2350.00,
}

// Message 推送给前端的消息
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// PriceSource 最新成交价来源
type PriceSource interface {
	GetPriceData(symbol string) (current, past *types.PriceDataPoint)
}

// Hub 管理所有前端连接，推送模拟行情与分析结果
type Hub struct {
	config   types.WebSocketConfig
	prices   PriceSource
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool

	priceMu    sync.Mutex
	basePrices map[string]float64 // 随机游走的锚定价
	lastPrices map[string]float64
	rng        *rand.Rand
	ticks      int
}

// NewHub 创建推送中心
func NewHub(config types.WebSocketConfig, prices PriceSource, allowOrigins []string) *Hub {
	if len(config.DefaultSymbols) == 0 {
		config.DefaultSymbols = []string{"AU9999", "XAU/USD"}
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 2 * time.Second
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}

	return &Hub{
		config:     config,
		prices:     prices,
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin(allowOrigins)},
		clients:    make(map[*Client]bool),
		basePrices: make(map[string]float64),
		lastPrices: make(map[string]float64),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ServeWS 升级HTTP连接并注册客户端
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), conn, h, h.config.DefaultSymbols)
	h.register(client)
	client.sendMessage(TypeNews, map[string]string{
		"title":   "连接成功",
		"message": "已连接到黄金交易 WebSocket 服务. 当前时间: " + time.Now().Format("2006-01-02 15:04:05"),
	})

	go client.writeLoop(h.config.PingInterval)
	go client.readLoop()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	zap.L().Info("🔌 WebSocket新连接建立", zap.String("client", c.id), zap.Int("clients", count))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	c.close()
	metrics.WebSocketClients.Set(float64(count))
	zap.L().Info("🔌 WebSocket连接断开", zap.String("client", c.id), zap.Int("clients", count))
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 推送给订阅了 symbol 的连接，symbol 为空则推送给全部连接
func (h *Hub) Broadcast(msgType, symbol string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		zap.L().Error("序列化推送消息失败", zap.String("type", msgType), zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		if symbol != "" && !c.isSubscribed(symbol) {
			continue
		}
		if !c.enqueue(payload) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		zap.L().Warn("客户端发送队列已满，断开连接", zap.String("client", c.id))
		h.unregister(c)
	}
}

// BroadcastAnalysis 推送最新分析结果，并把分析价作为模拟行情的锚定价
func (h *Hub) BroadcastAnalysis(analysis *types.MarketAnalysis) {
	if analysis == nil {
		return
	}
	if analysis.CurrentPrice > 0 {
		h.priceMu.Lock()
		h.basePrices[analysis.Symbol] = analysis.CurrentPrice
		delete(h.lastPrices, analysis.Symbol)
		h.priceMu.Unlock()
	}
	h.Broadcast(TypeAnalysis, analysis.Symbol, analysis)
}

// Start 按间隔推送模拟行情和心跳，直到 ctx 取消
func (h *Hub) Start(ctx context.Context) {
	if !h.config.Enabled {
		zap.L().Info("WebSocket实时推送未启用")
		return
	}

	tickTicker := time.NewTicker(h.config.TickInterval)
	defer tickTicker.Stop()
	heartbeat := time.NewTicker(h.config.PingInterval)
	defer heartbeat.Stop()

	zap.L().Info("📡 WebSocket实时推送已启动",
		zap.Strings("symbols", h.config.DefaultSymbols),
		zap.Duration("tick_interval", h.config.TickInterval))

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-tickTicker.C:
			if h.ClientCount() == 0 {
				continue
			}
			h.pushTicks()
		case <-heartbeat.C:
			h.Broadcast(TypeHeartbeat, "", map[string]int64{"ping": time.Now().UnixMilli()})
		}
	}
}

func (h *Hub) pushTicks() {
	h.priceMu.Lock()
	h.ticks++
	withBook := h.ticks%orderBookEvery == 0
	h.priceMu.Unlock()

	for _, symbol := range h.subscribedSymbols() {
		tick := h.nextTick(symbol)
		h.Broadcast(TypePrice, symbol, tick)
		if withBook {
			h.Broadcast(TypeOrderBook, symbol, h.orderBook(symbol, tick.Price))
		}
	}
}

func (h *Hub) subscribedSymbols() []string {
	seen := make(map[string]bool)
	var symbols []string

	h.mu.RLock()
	for c := range h.clients {
		for _, s := range c.symbols() {
			if !seen[s] {
				seen[s] = true
				symbols = append(symbols, s)
			}
		}
	}
	h.mu.RUnlock()
	return symbols
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func checkOrigin(allowOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowOrigins) == 0 {
			return true
		}
		for _, o := range allowOrigins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
