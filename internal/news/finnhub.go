package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	historyfetcher "gold-signal-sentry/internal/strategy/fetcher"
)

// 每次最多检查的原始新闻条数
const finnhubScanLimit = 50

// FinnhubClient Finnhub 综合新闻接口
type FinnhubClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type finnhubArticle struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
}

func NewFinnhubClient(baseURL, token string, httpClient *http.Client) *FinnhubClient {
	return &FinnhubClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

func (c *FinnhubClient) Enabled() bool {
	return c.token != ""
}

// GeneralNews 获取综合类新闻
func (c *FinnhubClient) GeneralNews(ctx context.Context) ([]RawArticle, error) {
	params := url.Values{}
	params.Set("category", "general")
	params.Set("token", c.token)
	params.Set("minId", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/news?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Finnhub请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &historyfetcher.StatusError{Code: resp.StatusCode, Source: "finnhub"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var articles []finnhubArticle
	if err := json.Unmarshal(body, &articles); err != nil {
		return nil, fmt.Errorf("解析Finnhub响应失败: %w", err)
	}
	if len(articles) > finnhubScanLimit {
		articles = articles[:finnhubScanLimit]
	}

	raws := make([]RawArticle, 0, len(articles))
	for _, a := range articles {
		raws = append(raws, RawArticle{
			Title:   a.Headline,
			Summary: a.Summary,
			Source:  a.Source,
			URL:     a.URL,
			Time:    time.Unix(a.Datetime, 0).UTC(),
		})
	}
	return raws, nil
}
