package signals

import (
	"fmt"
	"math"

	"gold-signal-sentry/pkg/types"
)

// ApplyDrawdownLimit 止损距离超过最大回撤时收紧止损，止盈不变
// 止损在入场价下方按多头处理，在上方按空头处理；返回是否做了调整
func (g *Generator) ApplyDrawdownLimit(signal *types.TradingSignal) bool {
	if signal.EntryPrice == nil || signal.StopLoss == nil {
		return false
	}
	entry, stop := *signal.EntryPrice, *signal.StopLoss
	if !isFinite(entry) || !isFinite(stop) || entry <= 0 {
		return false
	}

	maxLoss := g.config.MaxDrawdown
	var adjusted float64
	switch {
	case stop < entry && (entry-stop)/entry > maxLoss:
		adjusted = entry * (1 - maxLoss)
	case stop > entry && (stop-entry)/entry > maxLoss:
		adjusted = entry * (1 + maxLoss)
	default:
		return false
	}

	signal.StopLoss = types.Float(round2(adjusted))
	notice := fmt.Sprintf("已按最大回撤 %.0f%% 约束调整止损", maxLoss*100)
	if signal.RiskWarning == "" {
		signal.RiskWarning = notice
	} else {
		signal.RiskWarning += "；" + notice
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
