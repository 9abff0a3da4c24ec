package types

import "math"

// Float 返回 v 的指针，NaN/Inf 视为缺失
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ValueOr 取可选值，缺失时返回 def
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
