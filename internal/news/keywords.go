package news

type weightedKeyword struct {
	keyword string
	weight  int
}

type keywordReason struct {
	keyword string
	reason  string
}

// 黄金相关度关键词及权重，按顺序匹配
var relevanceKeywords = []weightedKeyword{
	// 直接相关
	{"gold", 10}, {"黄金", 10}, {"precious metal", 10}, {"贵金属", 10},
	{"bullion", 10}, {"xau", 10}, {"comex", 10},
	// 美联储和利率
	{"fed", 8}, {"federal reserve", 8}, {"美联储", 8}, {"fomc", 8},
	{"interest rate", 8}, {"利率", 8}, {"rate cut", 9}, {"降息", 9},
	{"rate hike", 9}, {"加息", 9}, {"monetary policy", 8}, {"货币政策", 8},
	{"powell", 7}, {"鲍威尔", 7},
	// 通胀和经济数据
	{"inflation", 8}, {"通胀", 8}, {"cpi", 8}, {"pce", 8},
	{"treasury", 7}, {"国债", 7}, {"yield", 7}, {"收益率", 7},
	{"recession", 7}, {"衰退", 7}, {"employment", 6}, {"就业", 6},
	{"nonfarm", 7}, {"非农", 7}, {"gdp", 6},
	// 美元
	{"dollar", 7}, {"美元", 7}, {"dxy", 7}, {"usd", 6},
	{"currency", 5}, {"forex", 5},
	// 地缘政治
	{"geopolit", 8}, {"地缘", 8}, {"war", 8}, {"战争", 8},
	{"conflict", 7}, {"冲突", 7}, {"sanction", 7}, {"制裁", 7},
	{"iran", 7}, {"伊朗", 7}, {"russia", 7}, {"俄罗斯", 7},
	{"ukraine", 7}, {"乌克兰", 7}, {"middle east", 7}, {"中东", 7},
	{"israel", 7}, {"以色列", 7}, {"tension", 6}, {"紧张", 6},
	{"crisis", 7}, {"危机", 7},
	// 央行和储备
	{"central bank", 8}, {"央行", 8}, {"reserve", 6}, {"储备", 6},
	{"pboc", 7}, {"ecb", 6}, {"boj", 6},
	// 避险情绪
	{"safe haven", 7}, {"避险", 7}, {"risk-off", 7}, {"risk off", 7},
	{"uncertainty", 5}, {"不确定性", 5}, {"volatility", 5}, {"波动", 5},
	// 商品市场
	{"commodity", 5}, {"大宗商品", 5}, {"silver", 5}, {"白银", 5},
	{"oil", 4}, {"原油", 4}, {"copper", 4}, {"铜", 4},
}

// 利多关键词，先于利空匹配
var bullishKeywords = []keywordReason{
	{"rate cut", "降息预期利好黄金，降低持有黄金的机会成本"},
	{"降息", "降息预期利好黄金，降低持有黄金的机会成本"},
	{"inflation rise", "通胀上升增加黄金作为抗通胀资产的吸引力"},
	{"inflation surge", "通胀飙升推动黄金避险需求大增"},
	{"通胀上升", "通胀上升增加黄金作为抗通胀资产的吸引力"},
	{"risk-off", "避险情绪升温，资金从风险资产流入黄金"},
	{"risk off", "避险情绪升温，资金从风险资产流入黄金"},
	{"避险", "避险需求增加，推动黄金价格上涨"},
	{"safe haven", "黄金作为避风港资产受到追捧"},
	{"gold rise", "黄金价格上涨趋势延续"},
	{"gold surge", "黄金价格大幅上涨"},
	{"黄金上涨", "市场看涨黄金，买盘活跃"},
	{"金价上涨", "金价走高，多头占优"},
	{"央行购金", "央行增持黄金储备，提振长期需求"},
	{"central bank buy", "央行购金增加实物需求，支撑金价"},
	{"地缘政治", "地缘政治风险上升，黄金避险价值凸显"},
	{"geopolitical risk", "地缘政治风险推升避险情绪，利好黄金"},
	{"war", "战争风险推动避险资金涌入黄金"},
	{"战争", "战争风险推动避险资金涌入黄金"},
	{"conflict", "冲突升级增加市场不确定性，利好黄金"},
	{"冲突", "冲突升级增加市场不确定性，利好黄金"},
	{"dollar weak", "美元走弱提升黄金吸引力"},
	{"美元下跌", "美元走弱使黄金对国际买家更具吸引力"},
	{"recession", "经济衰退担忧推动避险需求"},
	{"衰退", "经济衰退担忧推动避险需求"},
	{"crisis", "危机环境下黄金避险属性凸显"},
	{"危机", "危机环境下黄金避险属性凸显"},
	{"treasury buy", "美联储购买国债增加流动性，可能导致利率下降，利好黄金"},
	{"quantitative", "量化宽松政策利好黄金"},
	{"stimulus", "经济刺激政策可能引发通胀，利好黄金"},
}

var bearishKeywords = []keywordReason{
	{"rate hike", "加息预期利空黄金，提高持有黄金的机会成本"},
	{"加息", "加息预期利空黄金，提高持有黄金的机会成本"},
	{"strong dollar", "美元走强对以美元计价的黄金形成压力"},
	{"dollar rise", "美元上涨削弱黄金吸引力"},
	{"美元上涨", "美元走强对黄金形成下行压力"},
	{"美元走强", "美元走强对黄金形成下行压力"},
	{"gold fall", "黄金价格下跌趋势延续"},
	{"gold drop", "黄金价格下跌"},
	{"黄金下跌", "市场看跌黄金，卖压较重"},
	{"金价下跌", "金价走低，空头占优"},
	{"hawkish", "美联储鹰派立场利空黄金"},
	{"鹰派", "美联储鹰派立场利空黄金"},
	{"yield rise", "债券收益率上升增加持有黄金的机会成本"},
	{"收益率上升", "债券收益率上升增加持有黄金的机会成本"},
	{"risk-on", "风险偏好上升，资金流出黄金"},
	{"risk on", "风险偏好上升，资金流出黄金"},
	{"inflation cool", "通胀降温削弱黄金抗通胀价值"},
	{"通胀下降", "通胀降温削弱黄金抗通胀价值"},
}
