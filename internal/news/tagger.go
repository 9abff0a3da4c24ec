package news

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gold-signal-sentry/pkg/types"
)

const (
	minRelevanceScore     = 6
	highRelevanceScore    = 15
	mediumRelevanceScore  = 8
	preferredScore        = 12 // 高相关新闻至少 minHighRelevanceItems 条时只保留高相关
	minHighRelevanceItems = 3
	topicWeightThreshold  = 6
)

// RawArticle 未打标签的原始新闻
type RawArticle struct {
	Title   string
	Summary string
	Source  string
	URL     string
	Time    time.Time
}

// ScoredItem 打过标签的新闻及相关度得分
type ScoredItem struct {
	Item  types.NewsItem
	Score int
}

// RelevanceScore 计算黄金相关度，返回得分和命中的主要话题
func RelevanceScore(text string) (int, []string) {
	lower := strings.ToLower(text)
	score := 0
	var topics []string
	for _, kw := range relevanceKeywords {
		if strings.Contains(lower, kw.keyword) {
			score += kw.weight
			if kw.weight >= topicWeightThreshold {
				topics = append(topics, kw.keyword)
			}
		}
	}
	return score, topics
}

// Tag 为原始新闻打相关度和情绪标签，相关度过低时返回 false
func Tag(article RawArticle) (ScoredItem, bool) {
	text := article.Title + " " + article.Summary
	score, topics := RelevanceScore(text)
	if score < minRelevanceScore {
		return ScoredItem{}, false
	}

	item := types.NewsItem{
		Time:      article.Time,
		Title:     article.Title,
		Content:   article.Summary,
		Source:    article.Source,
		URL:       article.URL,
		Sentiment: types.SentimentNeutral,
		Relevance: relevanceLevel(score),
	}
	item.Sentiment, item.Reason = sentimentOf(strings.ToLower(text))

	if item.Reason == "" && len(topics) > 0 {
		if len(topics) > 2 {
			topics = topics[:2]
		}
		topic := strings.Join(topics, "、")
		switch item.Sentiment {
		case types.SentimentBullish:
			item.Reason = fmt.Sprintf("涉及%s，可能对黄金形成支撑", topic)
		case types.SentimentBearish:
			item.Reason = fmt.Sprintf("涉及%s，可能对黄金形成压力", topic)
		default:
			item.Reason = fmt.Sprintf("涉及%s，需关注后续发展对黄金的影响", topic)
		}
	}
	if item.Reason == "" {
		item.Reason = "该新闻与黄金市场间接相关，影响需结合具体情况分析"
	}

	return ScoredItem{Item: item, Score: score}, true
}

func relevanceLevel(score int) types.Relevance {
	switch {
	case score >= highRelevanceScore:
		return types.RelevanceHigh
	case score >= mediumRelevanceScore:
		return types.RelevanceMedium
	default:
		return types.RelevanceLow
	}
}

func sentimentOf(lower string) (types.Sentiment, string) {
	for _, kw := range bullishKeywords {
		if strings.Contains(lower, kw.keyword) {
			return types.SentimentBullish, kw.reason
		}
	}
	for _, kw := range bearishKeywords {
		if strings.Contains(lower, kw.keyword) {
			return types.SentimentBearish, kw.reason
		}
	}
	return types.SentimentNeutral, ""
}

// Select 按得分降序选取，高相关新闻足够时只保留高相关
func Select(scored []ScoredItem, limit int) []types.NewsItem {
	sorted := make([]ScoredItem, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	var preferred []ScoredItem
	for _, s := range sorted {
		if s.Score >= preferredScore {
			preferred = append(preferred, s)
		}
	}
	if len(preferred) >= minHighRelevanceItems {
		sorted = preferred
	}

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	items := make([]types.NewsItem, len(sorted))
	for i, s := range sorted {
		items[i] = s.Item
	}
	return items
}
