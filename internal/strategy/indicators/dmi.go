package indicators

import (
	"math"

	"gold-signal-sentry/pkg/types"
)

// DMICalculator 趋向指标（ADX / +DI / -DI）计算器，采用 Wilder 平滑
type DMICalculator struct {
	length int
}

// DMIData 最新一根K线的趋向指标
type DMIData struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// NewDMICalculator 创建趋向指标计算器
func NewDMICalculator(length int) *DMICalculator {
	return &DMICalculator{
		length: length,
	}
}

// Calculate 计算ADX，数据不足 2*length+1 根时返回 nil
func (dc *DMICalculator) Calculate(bars []types.Bar) *DMIData {
	n := dc.length
	if n <= 0 || len(bars) < 2*n+1 {
		return nil
	}

	trValues := calculateTrueRange(bars)
	plusDM := make([]float64, len(trValues))
	minusDM := make([]float64, len(trValues))
	for i := 1; i < len(bars); i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	// 首个平滑值为前 n 项之和
	var tr, pdm, mdm float64
	for i := 0; i < n; i++ {
		tr += trValues[i]
		pdm += plusDM[i]
		mdm += minusDM[i]
	}

	var dxValues []float64
	var plusDI, minusDI float64
	for i := n - 1; i < len(trValues); i++ {
		if i >= n {
			tr = tr - tr/float64(n) + trValues[i]
			pdm = pdm - pdm/float64(n) + plusDM[i]
			mdm = mdm - mdm/float64(n) + minusDM[i]
		}
		if tr == 0 {
			plusDI, minusDI = 0, 0
		} else {
			plusDI = 100 * pdm / tr
			minusDI = 100 * mdm / tr
		}
		dx := 0.0
		if sum := plusDI + minusDI; sum > 0 {
			dx = 100 * math.Abs(plusDI-minusDI) / sum
		}
		dxValues = append(dxValues, dx)
	}

	if len(dxValues) < n {
		return nil
	}

	adx := 0.0
	for i := 0; i < n; i++ {
		adx += dxValues[i]
	}
	adx /= float64(n)
	for i := n; i < len(dxValues); i++ {
		adx = (adx*float64(n-1) + dxValues[i]) / float64(n)
	}

	return &DMIData{
		ADX:     adx,
		PlusDI:  plusDI,
		MinusDI: minusDI,
	}
}

// calculateTrueRange 计算真实波幅序列，长度为 len(bars)-1
func calculateTrueRange(bars []types.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}

	trValues := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		current := bars[i]
		previous := bars[i-1]

		// 真实波幅 = max(high-low, |high-prevClose|, |low-prevClose|)
		hl := current.High - current.Low
		hc := math.Abs(current.High - previous.Close)
		lc := math.Abs(current.Low - previous.Close)

		trValues = append(trValues, math.Max(hl, math.Max(hc, lc)))
	}

	return trValues
}
