package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gold-signal-sentry/pkg/metrics"
	"gold-signal-sentry/pkg/tracing"
	"gold-signal-sentry/pkg/types"
)

// ErrLLMDisabled 未启用大模型或未配置密钥
var ErrLLMDisabled = errors.New("llm disabled")

const (
	ProviderOpenRouter = "openrouter"
	ProviderZhipu      = "zhipu"

	openRouterBaseURL = "https://openrouter.ai/api/v1"
	zhipuBaseURL      = "https://open.bigmodel.cn/api/paas/v4"
)

// CallKind 调用类型，聊天不计入每日上限
type CallKind string

const (
	KindExplanation   CallKind = "explanation"
	KindNewsSentiment CallKind = "news_sentiment"
	KindChat          CallKind = "chat"
)

// Client 大模型客户端
type Client interface {
	Enabled() bool
	Explain(ctx context.Context, analysis *types.MarketAnalysis) (string, error)
	AnalyzeNews(ctx context.Context, news []types.NewsItem) ([]types.NewsItem, string, error)
	Chat(ctx context.Context, question string, analysis *types.MarketAnalysis) (string, error)
	Stats(ctx context.Context) Stats
	ResetCounters(ctx context.Context) error
}

// CounterStore 每日调用计数存储
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// Stats 调用统计
type Stats struct {
	Enabled        bool   `json:"enabled"`
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
	TodayDate      string `json:"today_date"`
	TodayCalls     int64  `json:"today_calls"`
	DailyLimit     int    `json:"daily_limit"`
	ChatCalls      int64  `json:"chat_calls"`
	RemainingCalls int64  `json:"remaining_calls"`
}

// APIError 大模型接口返回非200
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("LLM API错误 %d: %s", e.StatusCode, e.Body)
}

// ChatClient OpenAI 兼容的 chat/completions 客户端
type ChatClient struct {
	provider   string
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	dailyLimit int
	httpClient *http.Client
	counters   CounterStore
	callLog    *zap.Logger // 每次调用一行JSON，写入 llm_calls.log
	now        func() time.Time

	// 计数存储不可用时的本地计数
	mu         sync.Mutex
	localDaily map[string]int64
	localChat  atomic.Int64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// New 按配置创建客户端，未启用或缺少密钥时返回 Noop
func New(cfg types.LLMConfig, counters CounterStore, callLog *zap.Logger) Client {
	if !cfg.Enabled || cfg.APIKey == "" {
		zap.L().Info("🔧 LLM未启用，使用规则解释")
		return Noop{}
	}
	c := NewChatClient(cfg, counters)
	if callLog != nil {
		c.callLog = callLog
	}
	return c
}

func NewChatClient(cfg types.LLMConfig, counters CounterStore) *ChatClient {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider != ProviderZhipu {
		provider = ProviderOpenRouter
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
		if provider == ProviderZhipu {
			baseURL = zhipuBaseURL
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	zap.L().Info("✅ LLM客户端已启用",
		zap.String("provider", provider),
		zap.String("model", cfg.Model))

	return &ChatClient{
		provider:   provider,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		dailyLimit: cfg.DailyLimit,
		httpClient: &http.Client{Timeout: timeout},
		counters:   counters,
		callLog:    zap.NewNop(),
		now:        time.Now,
		localDaily: make(map[string]int64),
	}
}

func (c *ChatClient) Enabled() bool {
	return true
}

func (c *ChatClient) today() string {
	return c.now().Format("2006-01-02")
}

func dailyKey(day string) string {
	return "llm:calls:" + day
}

const chatKey = "llm:chat"

// countCall 记录调用次数，超过每日上限只告警不拦截
func (c *ChatClient) countCall(ctx context.Context, kind CallKind) {
	if kind == KindChat {
		if c.counters != nil {
			if _, err := c.counters.Incr(ctx, chatKey, 0); err == nil {
				return
			}
		}
		c.localChat.Add(1)
		return
	}

	day := c.today()
	var count int64
	stored := false
	if c.counters != nil {
		n, err := c.counters.Incr(ctx, dailyKey(day), 48*time.Hour)
		if err == nil {
			count, stored = n, true
		} else {
			zap.L().Warn("LLM计数写入失败，使用本地计数", zap.Error(err))
		}
	}
	if !stored {
		c.mu.Lock()
		c.localDaily[day]++
		count = c.localDaily[day]
		c.mu.Unlock()
	}

	if c.dailyLimit > 0 && count > int64(c.dailyLimit) {
		zap.L().Warn("⚠️ LLM每日调用已超过上限",
			zap.Int64("count", count),
			zap.Int("daily_limit", c.dailyLimit))
	}
}

// complete 调用 chat/completions，4xx 不重试
func (c *ChatClient) complete(ctx context.Context, kind CallKind, messages []chatMessage, maxTokens int, temperature float64) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "llm.complete", attribute.String("kind", string(kind)))
	defer span.End()

	c.countCall(ctx, kind)

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	began := time.Now()
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		attempts++
		start := time.Now()
		content, usage, err := c.post(ctx, payload)
		if err == nil {
			metrics.LLMCalls.WithLabelValues(string(kind), "success").Inc()
			zap.L().Info("🤖 LLM调用成功",
				zap.String("kind", string(kind)),
				zap.Int("tokens", usage),
				zap.Duration("duration", time.Since(start)))
			c.logCall(kind, messages, content, usage, attempts, time.Since(began), nil)
			return content, nil
		}

		lastErr = err
		zap.L().Warn("LLM调用失败",
			zap.String("kind", string(kind)),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	metrics.LLMCalls.WithLabelValues(string(kind), "failure").Inc()
	c.logCall(kind, messages, "", 0, attempts, time.Since(began), lastErr)
	span.RecordError(lastErr)
	return "", fmt.Errorf("LLM调用失败(%s): %w", kind, lastErr)
}

const callLogPreview = 500

// logCall 记录一次调用的提示词、回复与结果
func (c *ChatClient) logCall(kind CallKind, messages []chatMessage, response string, tokens, attempts int, elapsed time.Duration, err error) {
	prompt := ""
	if n := len(messages); n > 0 {
		prompt = messages[n-1].Content
	}

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("provider", c.provider),
		zap.String("model", c.model),
		zap.Bool("success", err == nil),
		zap.Int("attempts", attempts),
		zap.Int("tokens", tokens),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.String("prompt", truncate(prompt, callLogPreview)),
		zap.String("response", truncate(response, callLogPreview)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.callLog.Info("llm_call", fields...)
}

func (c *ChatClient) post(ctx context.Context, payload []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.provider == ProviderOpenRouter {
		req.Header.Set("HTTP-Referer", "http://localhost:8000")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var r chatResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", 0, fmt.Errorf("解析响应失败: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", 0, errors.New("LLM响应没有choices")
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), r.Usage.TotalTokens, nil
}

// Stats 今日调用统计
func (c *ChatClient) Stats(ctx context.Context) Stats {
	day := c.today()
	stats := Stats{
		Enabled:    true,
		Provider:   c.provider,
		Model:      c.model,
		TodayDate:  day,
		DailyLimit: c.dailyLimit,
	}

	c.mu.Lock()
	stats.TodayCalls = c.localDaily[day]
	c.mu.Unlock()
	stats.ChatCalls = c.localChat.Load()

	if c.counters != nil {
		if n, err := c.counters.Counter(ctx, dailyKey(day)); err == nil {
			stats.TodayCalls += n
		}
		if n, err := c.counters.Counter(ctx, chatKey); err == nil {
			stats.ChatCalls += n
		}
	}

	stats.RemainingCalls = int64(c.dailyLimit) - stats.TodayCalls
	if stats.RemainingCalls < 0 {
		stats.RemainingCalls = 0
	}
	return stats
}

// ResetCounters 清空今日计数和聊天计数
func (c *ChatClient) ResetCounters(ctx context.Context) error {
	c.mu.Lock()
	c.localDaily = make(map[string]int64)
	c.mu.Unlock()
	c.localChat.Store(0)

	if c.counters != nil {
		if err := c.counters.Delete(ctx, dailyKey(c.today()), chatKey); err != nil {
			return fmt.Errorf("重置LLM计数失败: %w", err)
		}
	}
	zap.L().Info("🔄 LLM调用计数已重置")
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
