package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gold-signal-sentry/pkg/types"
)

const explanationSystemPrompt = `你是一位黄金交易教学助手，面向刚入门的交易者。

任务: 根据技术分析结果，生成一段教学型解释。

要求:
1. 语气稳健，避免强烈承诺，使用"可能"、"建议"等词汇
2. 面向新手，用通俗语言解释技术概念
3. 说明当前市场的关键特征和风险点
4. 解释为什么给出该信号
5. 提示需要注意的事项

输出格式:
- 分段清晰，使用粗体标注关键点(Markdown格式)
- 长度控制在 200-300 字`

const newsSystemPrompt = `你是一位资深金融新闻分析师，专注于黄金市场研究。

任务: 综合分析新闻的标题和内容摘要，判断其对黄金价格的潜在影响。

分析要点:
1. 仔细阅读新闻内容，不仅仅看标题
2. 分析新闻事件对黄金的实际影响逻辑（如利率、美元、避险情绪、通胀等）
3. 判断情绪倾向: 利多(利好黄金)/利空(利空黄金)/中性(影响有限)
4. 给出具体的影响原因解释（简洁明了，20-50字）
5. 如果新闻与黄金无关，标记为中性并说明

输出格式(JSON):
{
  "items": [
    {"headline": "新闻标题", "sentiment": "利多/利空/中性", "reason": "具体影响原因"}
  ],
  "summary": "整体市场情绪判断（50字以内）"
}`

const chatSystemPrompt = `你是一位黄金交易教学助手。

任务: 基于当前市场分析回答用户问题。

要求:
1. 基于当前分析回答，不要超出分析范围
2. 面向新手，用通俗语言解释
3. 如果问题超出范围，礼貌说明无法回答
4. 使用 Markdown 格式，重点内容加粗
5. 保持与当前分析的一致性，不冲突`

// 单次情绪分析最多提交的新闻条数
const maxNewsForAnalysis = 10

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Explain 生成教学型解释
func (c *ChatClient) Explain(ctx context.Context, analysis *types.MarketAnalysis) (string, error) {
	snap := analysis.Indicators
	var b strings.Builder
	b.WriteString("请根据以下信息生成一段黄金交易教学型解释:\n\n")
	fmt.Fprintf(&b, "**市场状态**: %s\n", analysis.MarketState.Label())
	fmt.Fprintf(&b, "**趋势方向**: %s\n", snap.TrendDirection.Label())
	fmt.Fprintf(&b, "**当前价格**: %.2f\n", analysis.CurrentPrice)
	fmt.Fprintf(&b, "**支撑位**: %s\n", levelText(snap.Support))
	fmt.Fprintf(&b, "**阻力位**: %s\n", levelText(snap.Resistance))
	fmt.Fprintf(&b, "**交易信号**: %s\n", analysis.Signal.Level.Label())
	fmt.Fprintf(&b, "**信号原因**: %s\n", analysis.Signal.Reason)
	if titles := topTitles(analysis.News, 3); titles != "" {
		fmt.Fprintf(&b, "**近期新闻: %s**\n", titles)
	}
	b.WriteString("\n请生成一段教学型解释:")

	return c.complete(ctx, KindExplanation, []chatMessage{
		{Role: "system", Content: explanationSystemPrompt},
		{Role: "user", Content: b.String()},
	}, 500, 0.7)
}

type newsSentimentResult struct {
	Items []struct {
		Headline  string `json:"headline"`
		Sentiment string `json:"sentiment"`
		Reason    string `json:"reason"`
	} `json:"items"`
	Summary string `json:"summary"`
}

// AnalyzeNews 用大模型重新判断新闻情绪，返回更新后的新闻副本和整体判断
// 未被模型覆盖的新闻保留原有标签
func (c *ChatClient) AnalyzeNews(ctx context.Context, news []types.NewsItem) ([]types.NewsItem, string, error) {
	if len(news) == 0 {
		return news, "", nil
	}

	submitted := news
	if len(submitted) > maxNewsForAnalysis {
		submitted = submitted[:maxNewsForAnalysis]
	}
	entries := make([]string, 0, len(submitted))
	for i, n := range submitted {
		entry := fmt.Sprintf("【新闻%d】\n标题: %s", i+1, strings.TrimSpace(n.Title))
		if content := strings.TrimSpace(n.Content); content != "" {
			entry += "\n内容摘要: " + content
		}
		entries = append(entries, entry)
	}
	prompt := "请综合分析以下黄金相关新闻（包括标题和内容）的市场影响:\n\n" +
		strings.Join(entries, "\n\n") +
		"\n\n请基于新闻内容进行专业分析，输出JSON格式:"

	response, err := c.complete(ctx, KindNewsSentiment, []chatMessage{
		{Role: "system", Content: newsSystemPrompt},
		{Role: "user", Content: prompt},
	}, 800, 0.5)
	if err != nil {
		return news, "", err
	}

	result, err := parseNewsSentiment(response)
	if err != nil {
		return news, "", err
	}
	return applyNewsSentiment(news, result), result.Summary, nil
}

func parseNewsSentiment(response string) (*newsSentimentResult, error) {
	match := jsonObjectPattern.FindString(response)
	if match == "" {
		return nil, errors.New("LLM响应不包含JSON")
	}
	var result newsSentimentResult
	if err := json.Unmarshal([]byte(match), &result); err != nil {
		return nil, fmt.Errorf("解析LLM情绪JSON失败: %w", err)
	}
	return &result, nil
}

// applyNewsSentiment 优先按标题匹配，匹配不到时按顺序对应
func applyNewsSentiment(news []types.NewsItem, result *newsSentimentResult) []types.NewsItem {
	updated := make([]types.NewsItem, len(news))
	copy(updated, news)

	byTitle := make(map[string]int, len(updated))
	for i, n := range updated {
		byTitle[strings.TrimSpace(n.Title)] = i
	}

	for i, item := range result.Items {
		idx, ok := byTitle[strings.TrimSpace(item.Headline)]
		if !ok {
			if i >= len(updated) {
				continue
			}
			idx = i
		}
		updated[idx].Sentiment = types.ParseSentiment(item.Sentiment)
		if reason := strings.TrimSpace(item.Reason); reason != "" {
			updated[idx].Reason = reason
		}
	}
	return updated
}

// Chat 基于当前分析回答用户问题
func (c *ChatClient) Chat(ctx context.Context, question string, analysis *types.MarketAnalysis) (string, error) {
	var b strings.Builder
	b.WriteString("当前市场分析:\n")
	if analysis != nil {
		signal := analysis.Signal
		fmt.Fprintf(&b, "- 市场状态: %s\n", analysis.MarketState.Label())
		fmt.Fprintf(&b, "- 趋势方向: %s\n", analysis.Indicators.TrendDirection.Label())
		fmt.Fprintf(&b, "- 当前价格: %.2f\n", analysis.CurrentPrice)
		fmt.Fprintf(&b, "- 交易信号: %s\n", signal.Level.Label())
		fmt.Fprintf(&b, "- 信号原因: %s\n", signal.Reason)
		fmt.Fprintf(&b, "- 支撑位: %s\n", levelText(analysis.Indicators.Support))
		fmt.Fprintf(&b, "- 阻力位: %s\n", levelText(analysis.Indicators.Resistance))
		fmt.Fprintf(&b, "- 风险提示: %s\n", orDefault(signal.RiskWarning, "无"))
		fmt.Fprintf(&b, "- 仓位建议: %s\n", signal.Position.Label())
	} else {
		b.WriteString("- 暂无分析结果\n")
	}
	fmt.Fprintf(&b, "\n\n用户问题: %s\n\n请回答:", question)

	return c.complete(ctx, KindChat, []chatMessage{
		{Role: "system", Content: chatSystemPrompt},
		{Role: "user", Content: b.String()},
	}, 600, 0.7)
}

func levelText(v *float64) string {
	if v == nil {
		return "未识别"
	}
	return fmt.Sprintf("%.2f", *v)
}

func topTitles(news []types.NewsItem, n int) string {
	titles := make([]string, 0, n)
	for _, item := range news {
		if len(titles) == n {
			break
		}
		if item.Title != "" {
			titles = append(titles, item.Title)
		}
	}
	return strings.Join(titles, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
