package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gold-signal-sentry/pkg/types"
)

const (
	maxChatNews  = 5
	chatHelpText = "您可以询问:\n- 为什么给出该信号？\n- 当前关键位是什么？\n- 下一步建议如何操作？\n- 近期重要新闻有哪些？"
)

// ChatRequest 问答请求
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// ChatResponse 问答结果
type ChatResponse struct {
	Answer string `json:"answer"`
	Source string `json:"source"` // llm | rule
}

func (s *Server) chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	question := strings.TrimSpace(req.Question)

	ctx := c.Request.Context()
	symbol := s.Analyzer.DefaultSymbol()
	analysis, err := s.Analyzer.Latest(ctx, symbol)
	if err != nil {
		analysisError(c, symbol, err)
		return
	}

	if s.LLM.Enabled() {
		answer, err := s.LLM.Chat(ctx, question, analysis)
		if err == nil && answer != "" {
			c.JSON(http.StatusOK, ChatResponse{Answer: answer, Source: "llm"})
			return
		}
		zap.L().Warn("⚠️ 大模型问答失败，使用规则回答", zap.Error(err))
	}

	c.JSON(http.StatusOK, ChatResponse{Answer: ruleAnswer(question, analysis), Source: "rule"})
}

// ruleAnswer 按关键词匹配的规则回答
func ruleAnswer(question string, a *types.MarketAnalysis) string {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "为什么", "信号"):
		return signalAnswer(a)
	case containsAny(q, "关键位", "支撑", "阻力"):
		return levelsAnswer(a)
	case containsAny(q, "操作", "建议", "下一步"):
		return adviceAnswer(a)
	case strings.Contains(q, "新闻"):
		return newsAnswer(a)
	default:
		return chatHelpText
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func signalAnswer(a *types.MarketAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**当前信号**: %s\n\n", a.Signal.Level.Label())
	fmt.Fprintf(&b, "**原因**: %s\n\n", a.Signal.Reason)
	if a.Signal.RiskWarning != "" {
		fmt.Fprintf(&b, "**风险提示**: %s", a.Signal.RiskWarning)
	}
	return b.String()
}

func levelsAnswer(a *types.MarketAnalysis) string {
	var b strings.Builder
	b.WriteString("**关键价位**:\n\n")
	writeLevel(&b, "支撑位", a.Indicators.Support)
	writeLevel(&b, "阻力位", a.Indicators.Resistance)
	writeLevel(&b, "区间下沿", a.Indicators.RangeLow)
	writeLevel(&b, "区间上沿", a.Indicators.RangeHigh)
	return b.String()
}

func adviceAnswer(a *types.MarketAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**建议操作**: %s\n\n", a.Signal.Reason)
	writeLevel(&b, "入场区", a.Signal.EntryPrice)
	writeLevel(&b, "止损区", a.Signal.StopLoss)
	writeLevel(&b, "目标区", a.Signal.TakeProfit)
	fmt.Fprintf(&b, "\n仓位建议: %s", a.Signal.Position.Label())
	return b.String()
}

func newsAnswer(a *types.MarketAnalysis) string {
	if len(a.News) == 0 {
		return "暂无新闻数据"
	}

	var b strings.Builder
	b.WriteString("**近期新闻事件**:\n\n")
	for i, n := range a.News {
		if i >= maxChatNews {
			break
		}
		fmt.Fprintf(&b, "%s **%s** (%s)\n", sentimentIcon(n.Sentiment), n.Title, n.Time.Format("2006-01-02 15:04"))
		if n.Content != "" {
			fmt.Fprintf(&b, "  - %s\n", n.Content)
		}
		if n.Source != "" {
			fmt.Fprintf(&b, "  - 来源: %s\n", n.Source)
		}
		if n.URL != "" {
			fmt.Fprintf(&b, "  - 链接: %s\n", n.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeLevel(b *strings.Builder, name string, v *float64) {
	if v != nil && *v != 0 {
		fmt.Fprintf(b, "%s: %.2f\n", name, *v)
	}
}

func sentimentIcon(s types.Sentiment) string {
	switch s {
	case types.SentimentBullish:
		return "📈"
	case types.SentimentBearish:
		return "📉"
	default:
		return "➡️"
	}
}
