package websocket

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Client 单个前端连接
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	mu            sync.RWMutex
	subscriptions map[string]bool
	closed        bool
}

// clientRequest 前端上行消息
type clientRequest struct {
	Type string `json:"type"`
	Data struct {
		Symbols []string `json:"symbols"`
	} `json:"data"`
}

func newClient(id string, conn *websocket.Conn, hub *Hub, symbols []string) *Client {
	c := &Client{
		id:            id,
		conn:          conn,
		hub:           hub,
		send:          make(chan []byte, sendBufferSize),
		subscriptions: make(map[string]bool),
	}
	c.setSubscriptions(symbols)
	return c
}

// readLoop 读取前端消息，连接断开时注销
func (c *Client) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("WebSocket读取panic", zap.Any("error", r))
		}
		c.hub.unregister(c)
	}()

	pongWait := 2 * c.hub.config.PingInterval
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("WebSocket读取消息失败", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleRequest(message)
	}
}

func (c *Client) handleRequest(message []byte) {
	var req clientRequest
	if err := json.Unmarshal(message, &req); err != nil {
		zap.L().Debug("忽略无法解析的客户端消息", zap.String("client", c.id), zap.Error(err))
		return
	}

	switch req.Type {
	case "subscribe":
		symbols := req.Data.Symbols
		if len(symbols) == 0 {
			symbols = []string{c.hub.config.DefaultSymbols[0]}
		}
		c.setSubscriptions(symbols)
		c.sendMessage(TypeNews, map[string]string{
			"title":   "订阅成功",
			"message": "已订阅: " + strings.Join(symbols, ", "),
		})
	case "unsubscribe":
		c.removeSubscriptions(req.Data.Symbols)
		c.sendMessage(TypeNews, map[string]string{
			"title":   "取消订阅",
			"message": "已取消订阅: " + strings.Join(req.Data.Symbols, ", "),
		})
	case "ping":
		c.sendMessage(TypeHeartbeat, map[string]int64{"pong": time.Now().UnixMilli()})
	}
}

// writeLoop 唯一的写协程，负责消息发送和心跳
func (c *Client) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				zap.L().Warn("WebSocket发送消息失败", zap.String("client", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Warn("发送心跳失败", zap.String("client", c.id), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) sendMessage(msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

// enqueue 非阻塞写入发送队列，队列满时返回 false
func (c *Client) enqueue(payload []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return true
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) isSubscribed(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[symbol]
}

func (c *Client) symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subscriptions))
	for s := range c.subscriptions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (c *Client) setSubscriptions(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = make(map[string]bool, len(symbols))
	for _, s := range symbols {
		c.subscriptions[s] = true
	}
}

func (c *Client) removeSubscriptions(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		delete(c.subscriptions, s)
	}
}
