package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	okxcommon "github.com/nntaoli-project/goex/v2/okx/common"
	historyfetcher "gold-signal-sentry/internal/strategy/fetcher"
	"gold-signal-sentry/pkg/types"
)

// OKXClient OKX V5 行情接口，用于黄金代币的实时价格和盘口
type OKXClient struct {
	api        *okxcommon.OKxV5
	endpoint   string
	httpClient *http.Client
}

// Ticker OKX ticker响应结构
type Ticker struct {
	InstId  string `json:"instId"`
	Last    string `json:"last"`
	Open24h string `json:"open24h"`
	High24h string `json:"high24h"`
	Low24h  string `json:"low24h"`
	Vol24h  string `json:"vol24h"`
	Ts      string `json:"ts"`
}

type okxBook struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
	Ts   string     `json:"ts"`
}

// NewOKXClient endpoint 为空时使用 goex 内置的OKX地址
func NewOKXClient(endpoint string, httpClient *http.Client) *OKXClient {
	api := okxcommon.New()
	if endpoint == "" {
		endpoint = api.UriOpts.Endpoint
	}
	return &OKXClient{
		api:        api,
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// Ticker 获取单个交易对的最新价，涨跌以24小时开盘价为基准
func (c *OKXClient) Ticker(ctx context.Context, instID string) (*types.Quote, error) {
	params := url.Values{}
	params.Set("instId", instID)

	var tickers []Ticker
	if err := c.get(ctx, c.api.UriOpts.TickerUri, params, &tickers); err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("OKX 未返回ticker: %s", instID)
	}

	t := tickers[0]
	last, err := strconv.ParseFloat(t.Last, 64)
	if err != nil || last <= 0 {
		return nil, fmt.Errorf("OKX ticker价格无效: %s", t.Last)
	}

	quote := &types.Quote{
		Symbol: instID,
		Price:  last,
		Source: "okx",
		Time:   parseMillis(t.Ts),
	}
	if open, err := strconv.ParseFloat(t.Open24h, 64); err == nil && open > 0 {
		quote.Change = last - open
		quote.ChangePct = quote.Change / open * 100
	}
	return quote, nil
}

// Depth 获取盘口深度
func (c *OKXClient) Depth(ctx context.Context, instID string, size int) (*types.MarketDepth, error) {
	params := url.Values{}
	params.Set("instId", instID)
	params.Set("sz", strconv.Itoa(size))

	var books []okxBook
	if err := c.get(ctx, c.api.UriOpts.DepthUri, params, &books); err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("OKX 未返回盘口: %s", instID)
	}

	book := books[0]
	depth := &types.MarketDepth{
		Symbol: instID,
		Bids:   parseLevels(book.Bids),
		Asks:   parseLevels(book.Asks),
		Source: "okx",
		Time:   parseMillis(book.Ts),
	}
	if len(depth.Bids) > 0 && len(depth.Asks) > 0 {
		depth.Spread = depth.Asks[0].Price - depth.Bids[0].Price
	}
	return depth, nil
}

func (c *OKXClient) get(ctx context.Context, uri string, params url.Values, data any) error {
	requestURL := c.endpoint + uri + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &historyfetcher.StatusError{Code: resp.StatusCode, Source: "okx"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	// 解析OKX API响应格式
	var apiResp struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("解析API响应失败: %w", err)
	}
	if apiResp.Code != "0" {
		return fmt.Errorf("API返回错误: %s - %s", apiResp.Code, apiResp.Msg)
	}
	if err := json.Unmarshal(apiResp.Data, data); err != nil {
		return fmt.Errorf("解析API数据失败: %w", err)
	}
	return nil
}

func parseLevels(rows [][]string) []types.DepthLevel {
	levels := make([]types.DepthLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(row[0], 64)
		size, err2 := strconv.ParseFloat(row[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, types.DepthLevel{Price: price, Size: size})
	}
	return levels
}

func parseMillis(ts string) time.Time {
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
