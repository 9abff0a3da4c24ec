package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gold-signal-sentry/pkg/types"
)

type fixedPrices map[string]float64

func (f fixedPrices) GetPriceData(symbol string) (current, past *types.PriceDataPoint) {
	if p, ok := f[symbol]; ok {
		return &types.PriceDataPoint{Price: p, Timestamp: time.Now()}, nil
	}
	return nil, nil
}

func newTestHub(prices PriceSource) *Hub {
	return NewHub(types.WebSocketConfig{
		Enabled:        true,
		TickInterval:   20 * time.Millisecond,
		PingInterval:   time.Second,
		DefaultSymbols: []string{"XAU/USD"},
	}, prices, nil)
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil 跳过不关心的消息类型
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) Message {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("未收到 %s 消息", msgType)
	return Message{}
}

func TestWelcomeAndSubscribe(t *testing.T) {
	hub := newTestHub(nil)
	conn := dial(t, hub)

	welcome := readMessage(t, conn)
	assert.Equal(t, TypeNews, welcome.Type)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "subscribe",
		"data": map[string]interface{}{"symbols": []string{"AU9999"}},
	}))
	ack := readMessage(t, conn)
	assert.Equal(t, TypeNews, ack.Type)
	assert.Contains(t, ack.Data.(map[string]interface{})["message"], "AU9999")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	pong := readMessage(t, conn)
	assert.Equal(t, TypeHeartbeat, pong.Type)
	assert.Contains(t, pong.Data, "pong")
}

func TestBroadcastRespectsSubscriptions(t *testing.T) {
	hub := newTestHub(nil)
	conn := dial(t, hub)
	readMessage(t, conn)

	hub.BroadcastAnalysis(&types.MarketAnalysis{Symbol: "AU9999", CurrentPrice: 575})
	hub.BroadcastAnalysis(&types.MarketAnalysis{Symbol: "XAU/USD", CurrentPrice: 2400})

	msg := readMessage(t, conn)
	require.Equal(t, TypeAnalysis, msg.Type)
	raw, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var analysis types.MarketAnalysis
	require.NoError(t, json.Unmarshal(raw, &analysis))
	assert.Equal(t, "XAU/USD", analysis.Symbol)
	assert.Equal(t, 2400.0, hub.basePrice("XAU/USD"))
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := newTestHub(nil)
	conn := dial(t, hub)
	readMessage(t, conn)
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartPushesSimulatedTicks(t *testing.T) {
	hub := newTestHub(fixedPrices{"XAU/USD": 2380})
	conn := dial(t, hub)
	readMessage(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Start(ctx)

	msg := readUntil(t, conn, TypePrice)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "XAU/USD", data["symbol"])
	price := data["price"].(float64)
	assert.InDelta(t, 2380, price, 2380*walkBandRatio)

	book := readUntil(t, conn, TypeOrderBook)
	assert.Len(t, book.Data.(map[string]interface{})["bids"], orderBookLevels)
}

func TestNextTickStaysInBand(t *testing.T) {
	hub := newTestHub(nil)
	for i := 0; i < 500; i++ {
		tick := hub.nextTick("AU9999")
		assert.InDelta(t, 580.5, tick.Price, 580.5*walkBandRatio+0.01)
	}
	assert.Equal(t, 500.0, hub.basePrice("UNKNOWN"))
}

func TestOrderBookTotalsAccumulate(t *testing.T) {
	hub := newTestHub(nil)
	book := hub.orderBook("XAU/USD", 2350)

	require.Len(t, book.Bids, orderBookLevels)
	assert.Equal(t, 2349.5, book.Bids[0].Price)
	assert.Equal(t, 2350.5, book.Asks[0].Price)
	for i := 1; i < orderBookLevels; i++ {
		assert.Equal(t, book.Bids[i-1].Total+book.Bids[i].Amount, book.Bids[i].Total)
		assert.Less(t, book.Bids[i].Price, book.Bids[i-1].Price)
	}
}

func TestCheckOrigin(t *testing.T) {
	allow := checkOrigin([]string{"http://localhost:3000"})
	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, allow(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, allow(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, allow(req))
}
