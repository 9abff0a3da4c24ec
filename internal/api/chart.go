package api

import "gold-signal-sentry/pkg/types"

// 图表周期：分/日/周/月/年
var (
	periodIntervals = map[string]string{
		"1d":  "1m",
		"1mo": "1d",
		"1y":  "1wk",
		"5y":  "1mo",
		"max": "1mo",
	}

	// 多取一段历史，保证长均线有值
	periodFetch = map[string]string{
		"1d":  "5d",
		"1mo": "6mo",
		"1y":  "2y",
		"5y":  "10y",
		"max": "max",
	}

	periodTail = map[string]int{
		"1d":  390,
		"1mo": 22,
		"1y":  52,
		"5y":  60,
		"max": 300,
	}
)

const defaultChartTail = 120

func chartInterval(period string) string {
	if interval, ok := periodIntervals[period]; ok {
		return interval
	}
	return "1d"
}

func fetchPeriod(period string) string {
	if p, ok := periodFetch[period]; ok {
		return p
	}
	return period
}

func chartTail(period string) int {
	if n, ok := periodTail[period]; ok {
		return n
	}
	return defaultChartTail
}

// buildChart 全量计算均线后只保留展示区间
func buildChart(calc ChartCalculator, symbol, period, interval string, bars []types.Bar) *types.ChartData {
	points := calc.ChartSeries(bars)
	if tail := chartTail(period); len(points) > tail {
		points = points[len(points)-tail:]
	}

	levels := make(map[string]float64)
	if snap := calc.Compute(bars); snap != nil {
		for name, v := range map[string]*float64{
			"support":    snap.Support,
			"resistance": snap.Resistance,
			"range_high": snap.RangeHigh,
			"range_low":  snap.RangeLow,
		} {
			if v != nil {
				levels[name] = *v
			}
		}
	}

	return &types.ChartData{
		Symbol:    symbol,
		Period:    period,
		Interval:  interval,
		Data:      points,
		KeyLevels: levels,
	}
}
