package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gold-signal-sentry/internal/storage"
	"gold-signal-sentry/pkg/logger"
	"gold-signal-sentry/pkg/types"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, counters CounterStore) *ChatClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewChatClient(types.LLMConfig{
		Enabled:    true,
		Provider:   "openrouter",
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		DailyLimit: 2,
	}, counters)
}

func sampleAnalysis() *types.MarketAnalysis {
	return &types.MarketAnalysis{
		Symbol:       "GC=F",
		MarketState:  types.StateBullTrend,
		CurrentPrice: 2350,
		Indicators: types.IndicatorSnapshot{
			TrendDirection: types.TrendUp,
			Support:        types.Float(2300),
		},
		Signal: types.TradingSignal{
			Level:    types.SignalBuy,
			Reason:   "综合评分 35.0",
			Position: types.PositionMedium,
		},
		News: []types.NewsItem{{Title: "Gold rallies"}},
	}
}

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	c := New(types.LLMConfig{Enabled: true}, nil, nil)
	assert.False(t, c.Enabled())

	_, err := c.Explain(context.Background(), sampleAnalysis())
	assert.ErrorIs(t, err, ErrLLMDisabled)

	news := []types.NewsItem{{Title: "a"}}
	got, _, err := c.AnalyzeNews(context.Background(), news)
	assert.ErrorIs(t, err, ErrLLMDisabled)
	assert.Equal(t, news, got)
}

func TestExplainSendsPromptAndCounts(t *testing.T) {
	var captured chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "http://localhost:8000", r.Header.Get("HTTP-Referer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(completion("  **市场偏多**  ")))
	}, storage.NewCache(types.RedisConfig{}))

	text, err := c.Explain(context.Background(), sampleAnalysis())
	require.NoError(t, err)
	assert.Equal(t, "**市场偏多**", text)

	assert.Equal(t, "test-model", captured.Model)
	assert.Equal(t, 500, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Contains(t, captured.Messages[1].Content, "**支撑位**: 2300.00")
	assert.Contains(t, captured.Messages[1].Content, "**阻力位**: 未识别")
	assert.Contains(t, captured.Messages[1].Content, "Gold rallies")

	stats := c.Stats(context.Background())
	assert.EqualValues(t, 1, stats.TodayCalls)
	assert.EqualValues(t, 1, stats.RemainingCalls)
	assert.Equal(t, "openrouter", stats.Provider)
}

func TestRetriesServerErrorsButNotClientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(completion("ok")))
	}, nil)

	text, err := c.Chat(context.Background(), "现在能买吗？", sampleAnalysis())
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.EqualValues(t, 3, hits.Load())

	var denied atomic.Int32
	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		denied.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}, nil)

	_, err = c.Chat(context.Background(), "?", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.EqualValues(t, 1, denied.Load())
}

func TestChatNotCountedTowardDailyLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("answer")))
	}, storage.NewCache(types.RedisConfig{}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Chat(ctx, "问题", sampleAnalysis())
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := c.Explain(ctx, sampleAnalysis())
		require.NoError(t, err)
	}

	stats := c.Stats(ctx)
	assert.EqualValues(t, 3, stats.ChatCalls)
	assert.EqualValues(t, 3, stats.TodayCalls)
	assert.EqualValues(t, 0, stats.RemainingCalls)

	require.NoError(t, c.ResetCounters(ctx))
	stats = c.Stats(ctx)
	assert.Zero(t, stats.ChatCalls)
	assert.Zero(t, stats.TodayCalls)
}

func TestLocalCountersWithoutStore(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("x")))
	}, nil)
	ctx := context.Background()

	_, err := c.Explain(ctx, sampleAnalysis())
	require.NoError(t, err)
	_, err = c.Chat(ctx, "q", nil)
	require.NoError(t, err)

	stats := c.Stats(ctx)
	assert.EqualValues(t, 1, stats.TodayCalls)
	assert.EqualValues(t, 1, stats.ChatCalls)
}

func TestAnalyzeNewsAppliesLabels(t *testing.T) {
	reply := "分析如下：\n" + `{"items":[
		{"headline":"unknown title","sentiment":"利多","reason":"避险需求"},
		{"headline":"Dollar strengthens","sentiment":"利空","reason":"美元走强压制金价"}
	],"summary":"整体偏多"}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion(reply)))
	}, nil)

	news := []types.NewsItem{
		{Title: "Gold steady", Sentiment: types.SentimentNeutral, Reason: "原因"},
		{Title: "Dollar strengthens", Sentiment: types.SentimentNeutral},
	}
	updated, summary, err := c.AnalyzeNews(context.Background(), news)
	require.NoError(t, err)
	assert.Equal(t, "整体偏多", summary)

	assert.Equal(t, types.SentimentBearish, updated[1].Sentiment)
	assert.Equal(t, "美元走强压制金价", updated[1].Reason)
	// 标题不匹配时按顺序对应
	assert.Equal(t, types.SentimentBullish, updated[0].Sentiment)
	assert.Equal(t, "避险需求", updated[0].Reason)
	// 原切片不变
	assert.Equal(t, types.SentimentNeutral, news[0].Sentiment)
}

func TestAnalyzeNewsRejectsNonJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("no json here")))
	}, nil)

	news := []types.NewsItem{{Title: "a"}}
	got, _, err := c.AnalyzeNews(context.Background(), news)
	require.Error(t, err)
	assert.Equal(t, news, got)
}

func TestProviderBaseURLs(t *testing.T) {
	c := NewChatClient(types.LLMConfig{Enabled: true, APIKey: "k", Provider: "ZHIPU"}, nil)
	assert.Equal(t, zhipuBaseURL, c.baseURL)

	c = NewChatClient(types.LLMConfig{Enabled: true, APIKey: "k", Provider: "unknown"}, nil)
	assert.Equal(t, ProviderOpenRouter, c.provider)
	assert.Equal(t, openRouterBaseURL, c.baseURL)
}

func TestCallLogRecordsEachCompletion(t *testing.T) {
	dir := t.TempDir()
	callLog, err := logger.NewFileLogger(types.LogConfig{FilePath: dir, MaxSize: 1}, "llm_calls.log")
	require.NoError(t, err)

	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(completion("偏多")))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"quota"}`))
	}, nil)
	c.callLog = callLog

	_, err = c.Chat(context.Background(), "现在能买吗？", sampleAnalysis())
	require.NoError(t, err)
	_, err = c.Explain(context.Background(), sampleAnalysis())
	require.Error(t, err)
	_ = callLog.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "llm_calls.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var ok, failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))

	assert.Equal(t, "chat", ok["kind"])
	assert.Equal(t, "test-model", ok["model"])
	assert.Equal(t, true, ok["success"])
	assert.EqualValues(t, 30, ok["tokens"])
	assert.Equal(t, "偏多", ok["response"])
	assert.Contains(t, ok["prompt"], "现在能买吗？")

	assert.Equal(t, "explanation", failed["kind"])
	assert.Equal(t, false, failed["success"])
	assert.EqualValues(t, 1, failed["attempts"])
	assert.Contains(t, failed["error"], "403")
}
