package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
)

// HistoryFetcher Yahoo Finance 历史K线获取器
type HistoryFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// yahooChartResponse Yahoo chart API响应，缺失值为 null
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewHistoryFetcher 创建历史K线获取器
func NewHistoryFetcher(baseURL, proxy string, timeout time.Duration) *HistoryFetcher {
	return &HistoryFetcher{
		baseURL:    baseURL,
		httpClient: NewHTTPClient(proxy, timeout),
	}
}

// NewHTTPClient 创建带代理的HTTP客户端
func NewHTTPClient(proxy string, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	// 设置代理
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil {
			client.Transport = &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			}
		}
	}

	return client
}

// FetchBars 获取历史K线，rangeStr 如 1y、6mo，interval 如 1d、1h
func (h *HistoryFetcher) FetchBars(ctx context.Context, symbol, rangeStr, interval string) ([]types.Bar, error) {
	chart, err := h.fetchChart(ctx, symbol, rangeStr, interval)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("Yahoo 返回数据缺少报价: %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]types.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, high, low, closePrice := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		// 停牌或未收盘的K线价格为 null，直接跳过
		if open == nil || high == nil || low == nil || closePrice == nil {
			continue
		}
		bars = append(bars, types.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closePrice,
			Volume: at(quote.Volume, i),
		})
	}

	zap.L().Info("✅ 历史K线数据获取完成",
		zap.String("symbol", symbol),
		zap.String("range", rangeStr),
		zap.String("interval", interval),
		zap.Int("received", len(bars)))

	return bars, nil
}

// FetchQuote 获取最新报价，涨跌以前一交易日收盘为基准
func (h *HistoryFetcher) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	chart, err := h.fetchChart(ctx, symbol, "5d", "1d")
	if err != nil {
		return nil, err
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("Yahoo 返回价格无效: %s", symbol)
	}

	quote := &types.Quote{
		Symbol: symbol,
		Price:  meta.RegularMarketPrice,
		Source: "yahoo",
		Time:   time.Unix(meta.RegularMarketTime, 0).UTC(),
	}
	if meta.ChartPreviousClose > 0 {
		quote.Change = meta.RegularMarketPrice - meta.ChartPreviousClose
		quote.ChangePct = quote.Change / meta.ChartPreviousClose * 100
	}
	return quote, nil
}

func (h *HistoryFetcher) fetchChart(ctx context.Context, symbol, rangeStr, interval string) (*yahooChartResponse, error) {
	// 构建请求URL
	requestURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		h.baseURL, url.PathEscape(symbol), url.QueryEscape(rangeStr), url.QueryEscape(interval))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	// 设置请求头
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Gold-Signal-Sentry/1.0)")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Source: "yahoo"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var chart yahooChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo API返回错误: code=%s, msg=%s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("Yahoo 未返回数据: %s", symbol)
	}

	return &chart, nil
}

// FetchMultipleSymbols 批量获取多个品种的历史数据，单个失败不影响其他品种
func (h *HistoryFetcher) FetchMultipleSymbols(ctx context.Context, symbols []string, rangeStr, interval string) map[string][]types.Bar {
	result := make(map[string][]types.Bar)

	for i, symbol := range symbols {
		// 限速，每个请求间隔200毫秒
		if i > 0 {
			select {
			case <-ctx.Done():
				return result
			case <-time.After(200 * time.Millisecond):
			}
		}

		bars, err := h.FetchBars(ctx, symbol, rangeStr, interval)
		if err != nil {
			zap.L().Error("获取历史K线失败",
				zap.String("symbol", symbol),
				zap.Error(err))
			continue
		}

		result[symbol] = bars
	}

	return result
}

// StatusError 上游返回非200状态码
type StatusError struct {
	Code   int
	Source string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s HTTP响应错误: %d", e.Source, e.Code)
}

// Retryable 4xx 不重试
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) || values[i] == nil {
		return nil
	}
	return types.Float(*values[i])
}
