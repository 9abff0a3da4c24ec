package news

import (
	"time"

	"gold-signal-sentry/pkg/types"
)

const simulatedSource = "模拟来源"

type simulatedHeadline struct {
	title     string
	content   string
	sentiment types.Sentiment
	reason    string
}

// 真实新闻不可用或数量不足时使用的精选新闻，按天倒序排列
var simulatedHeadlines = []simulatedHeadline{
	{
		title:     "美联储暗示可能降息，黄金价格获支撑",
		content:   "美联储最新会议纪要显示，官员们讨论了在未来合适时机降息的可能性。受此影响，黄金价格获得支撑，投资者对黄金的避险需求增加。",
		sentiment: types.SentimentBullish,
		reason:    "降息预期降低持有黄金的机会成本，利好金价",
	},
	{
		title:     "美元指数回落，黄金期货小幅上涨",
		content:   "随着美元指数从近期高点回落，黄金期货市场出现小幅上涨。美元走弱使得以美元计价的黄金对其他货币持有者更具吸引力。",
		sentiment: types.SentimentBullish,
		reason:    "美元走弱提升黄金对国际投资者的吸引力",
	},
	{
		title:     "市场对通胀担忧缓解，黄金避险需求减弱",
		content:   "最新CPI数据显示通胀压力有所缓解，市场对通胀的担忧下降。这导致黄金作为通胀对冲工具的避险需求相应减弱。",
		sentiment: types.SentimentBearish,
		reason:    "通胀预期下降削弱黄金的抗通胀价值",
	},
	{
		title:     "全球经济数据疲软，投资者转向黄金避险",
		content:   "近期发布的全球经济数据表现疲软，主要经济体增长放缓。在此背景下，投资者增加黄金持仓，将其作为避险资产寻求保值。",
		sentiment: types.SentimentBullish,
		reason:    "经济不确定性上升推动避险资金流入黄金",
	},
	{
		title:     "央行持续增持黄金储备，提振市场信心",
		content:   "多国央行持续增持黄金储备，多元化外汇储备配置。这一行动提振了市场对黄金的信心，为黄金价格提供了长期支撑。",
		sentiment: types.SentimentBullish,
		reason:    "央行购金增加黄金需求，提供长期价格支撑",
	},
	{
		title:     "美国国债收益率上升，黄金承压下行",
		content:   "美国国债收益率近期出现上升，增加了持有无息资产黄金的机会成本。受此影响，黄金价格承压下行。",
		sentiment: types.SentimentBearish,
		reason:    "实际利率上升增加持有黄金的机会成本",
	},
	{
		title:     "地缘政治风险升级，黄金成为避风港",
		content:   "地缘政治紧张局势升级，全球不确定性增加。在此环境下，黄金作为传统避险资产获得资金青睐。",
		sentiment: types.SentimentBullish,
		reason:    "地缘政治风险推升避险情绪，利好黄金",
	},
	{
		title:     "技术面显示黄金处于盘整状态，市场观望情绪浓厚",
		content:   "技术分析显示黄金价格近期处于盘整状态，缺乏明确方向。市场参与者普遍采取观望态度，等待更多催化剂指引。",
		sentiment: types.SentimentNeutral,
		reason:    "缺乏明确催化剂，短期影响有限",
	},
}

// SimulatedNews 返回精选新闻，第 i 条的时间为 now 往前 i 天
func SimulatedNews(now time.Time, limit int) []types.NewsItem {
	n := len(simulatedHeadlines)
	if limit > 0 && limit < n {
		n = limit
	}

	items := make([]types.NewsItem, 0, n)
	for i, h := range simulatedHeadlines[:n] {
		items = append(items, types.NewsItem{
			Time:      now.AddDate(0, 0, -i),
			Title:     h.title,
			Content:   h.content,
			Source:    simulatedSource,
			Sentiment: h.sentiment,
			Relevance: types.RelevanceHigh,
			Reason:    h.reason,
		})
	}
	return items
}
