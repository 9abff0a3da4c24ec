package signals

import (
	"gold-signal-sentry/pkg/types"
)

// SentimentScore 按相关度加权的新闻情绪分，范围 [-100, 100]，无新闻为 0
func SentimentScore(news []types.NewsItem) float64 {
	if len(news) == 0 {
		return 0
	}

	var sum, weights float64
	for _, item := range news {
		w := item.Relevance.Weight()
		sum += item.Sentiment.Value() * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return clamp(sum/weights*100, -100, 100)
}
