package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	historyfetcher "gold-signal-sentry/internal/strategy/fetcher"
)

const (
	seriesTreasury10Y = "DGS10"
	seriesCPI         = "CPIAUCSL"
)

// RateData 利率数据，单位均为百分比
type RateData struct {
	NominalRate float64
	Inflation   float64
	RealRate    float64
	Source      string
}

// 无法获取任何利率数据时使用的固定值
var fallbackRates = RateData{
	NominalRate: 4.5,
	Inflation:   3.2,
	RealRate:    1.3,
	Source:      "fallback",
}

// 仅有名义利率时使用的通胀估计
const estimatedInflation = 3.2

// FREDClient 美联储经济数据接口
type FREDClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewFREDClient(baseURL, apiKey string, httpClient *http.Client) *FREDClient {
	return &FREDClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Enabled 是否配置了API Key
func (c *FREDClient) Enabled() bool {
	return c.apiKey != ""
}

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// RealRate 实际利率 = 10年期国债收益率 - CPI同比
func (c *FREDClient) RealRate(ctx context.Context) (*RateData, error) {
	treasury, err := c.observations(ctx, seriesTreasury10Y, 1)
	if err != nil {
		return nil, err
	}
	if len(treasury) == 0 {
		return nil, errors.New("FRED 未返回国债收益率数据")
	}
	nominal, err := parseObservation(treasury[0])
	if err != nil {
		return nil, fmt.Errorf("FRED 国债收益率无效: %w", err)
	}

	// 最近13个月，比较最新值与12个月前
	cpi, err := c.observations(ctx, seriesCPI, 13)
	if err != nil {
		return nil, err
	}
	if len(cpi) < 13 {
		return nil, fmt.Errorf("FRED CPI数据不足: %d", len(cpi))
	}
	latest, err := parseObservation(cpi[0])
	if err != nil {
		return nil, fmt.Errorf("FRED CPI无效: %w", err)
	}
	yearAgo, err := parseObservation(cpi[12])
	if err != nil || yearAgo == 0 {
		return nil, errors.New("FRED CPI无效: 无法计算同比")
	}

	inflation := (latest - yearAgo) / yearAgo * 100
	return &RateData{
		NominalRate: nominal,
		Inflation:   inflation,
		RealRate:    nominal - inflation,
		Source:      "FRED",
	}, nil
}

func (c *FREDClient) observations(ctx context.Context, seriesID string, limit int) ([]fredObservation, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "desc")
	params.Set("limit", strconv.Itoa(limit))

	requestURL := c.baseURL + "/fred/series/observations?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FRED请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &historyfetcher.StatusError{Code: resp.StatusCode, Source: "fred"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var payload struct {
		Observations []fredObservation `json:"observations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("解析FRED响应失败: %w", err)
	}
	return payload.Observations, nil
}

// parseObservation FRED 以 "." 表示缺失值
func parseObservation(o fredObservation) (float64, error) {
	if o.Value == "" || o.Value == "." {
		return 0, fmt.Errorf("缺失值 %s", o.Date)
	}
	return strconv.ParseFloat(o.Value, 64)
}
