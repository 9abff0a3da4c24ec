package websocket

import (
	"math"
	"time"
)

const (
	walkStepRatio = 0.0005 // 单步最大波动
	walkBandRatio = 0.01   // 偏离锚定价的上限
)

// PriceTick 模拟成交价
type PriceTick struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int     `json:"volume"`
	Timestamp     int64   `json:"timestamp"`
}

// BookLevel 盘口档位
type BookLevel struct {
	Price  float64 `json:"price"`
	Amount int     `json:"amount"`
	Total  int     `json:"total"`
}

// OrderBook 模拟盘口
type OrderBook struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

// basePrice 锚定价：分析价 > 实时成交价 > 默认价
func (h *Hub) basePrice(symbol string) float64 {
	if p, ok := h.basePrices[symbol]; ok {
		return p
	}
	if h.prices != nil {
		if current, _ := h.prices.GetPriceData(symbol); current != nil && current.Price > 0 {
			return current.Price
		}
	}
	if p, ok := defaultBasePrices[symbol]; ok {
		return p
	}
	return 500.0
}

// nextTick 在锚定价附近随机游走一步
func (h *Hub) nextTick(symbol string) PriceTick {
	h.priceMu.Lock()
	defer h.priceMu.Unlock()

	base := h.basePrice(symbol)
	last, ok := h.lastPrices[symbol]
	if !ok {
		last = base
	}

	next := last + base*walkStepRatio*(2*h.rng.Float64()-1)
	band := base * walkBandRatio
	next = math.Max(base-band, math.Min(base+band, next))
	next = round2(next)
	h.lastPrices[symbol] = next

	change := round2(next - base)
	return PriceTick{
		Symbol:        symbol,
		Price:         next,
		Change:        change,
		ChangePercent: round2(change / base * 100),
		Volume:        1000 + h.rng.Intn(9000),
		Timestamp:     time.Now().UnixMilli(),
	}
}

// orderBook 以 price 为中心生成上下各10档
func (h *Hub) orderBook(symbol string, price float64) OrderBook {
	h.priceMu.Lock()
	defer h.priceMu.Unlock()

	book := OrderBook{
		Symbol:    symbol,
		Bids:      make([]BookLevel, 0, orderBookLevels),
		Asks:      make([]BookLevel, 0, orderBookLevels),
		Timestamp: time.Now().UnixMilli(),
	}

	bidTotal, askTotal := 0, 0
	for i := 1; i <= orderBookLevels; i++ {
		bidAmount := 100 + h.rng.Intn(900)
		bidTotal += bidAmount
		book.Bids = append(book.Bids, BookLevel{Price: round2(price - float64(i)*orderBookStep), Amount: bidAmount, Total: bidTotal})

		askAmount := 100 + h.rng.Intn(900)
		askTotal += askAmount
		book.Asks = append(book.Asks, BookLevel{Price: round2(price + float64(i)*orderBookStep), Amount: askAmount, Total: askTotal})
	}
	return book
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
