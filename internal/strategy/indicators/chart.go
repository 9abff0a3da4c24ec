package indicators

import "gold-signal-sentry/pkg/types"

// ChartSeries 逐根K线附带 SMA20/SMA60，用于前端绘图
func (c *Calculator) ChartSeries(bars []types.Bar) []types.ChartPoint {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	short := sma(closes, c.shortMA)
	mid := sma(closes, c.midMA)

	points := make([]types.ChartPoint, len(bars))
	for i, b := range bars {
		points[i] = types.ChartPoint{
			Date:    b.Time,
			Price:   b.Close,
			MAShort: alignedAt(short, len(bars), i),
			MAMid:   alignedAt(mid, len(bars), i),
		}
	}
	return points
}

// alignedAt 指标序列与K线尾部对齐，取第 i 根K线对应的值
func alignedAt(series []float64, total, i int) *float64 {
	offset := total - len(series)
	if len(series) == 0 || i < offset {
		return nil
	}
	return types.Float(series[i-offset])
}
