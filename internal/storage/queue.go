package storage

import (
	"math"
	"sync"
	"time"

	"gold-signal-sentry/pkg/types"
)

// CircularQueue 循环队列实现滑动窗口
type CircularQueue struct {
	data   []types.PriceDataPoint
	maxAge time.Duration
	mutex  sync.RWMutex
}

func NewCircularQueue(maxAge time.Duration) *CircularQueue {
	return &CircularQueue{
		data:   make([]types.PriceDataPoint, 0, 16),
		maxAge: maxAge,
	}
}

func (cq *CircularQueue) Add(point types.PriceDataPoint) {
	cq.mutex.Lock()
	defer cq.mutex.Unlock()

	cq.data = append(cq.data, point)

	// 清理超过maxAge的旧数据，至少保留最新一个点
	cutoff := point.Timestamp.Add(-cq.maxAge)
	newStart := len(cq.data) - 1
	for i, p := range cq.data {
		if p.Timestamp.After(cutoff) {
			newStart = i
			break
		}
	}
	if newStart > 0 {
		cq.data = append(cq.data[:0:0], cq.data[newStart:]...)
	}
}

func (cq *CircularQueue) GetOldest() *types.PriceDataPoint {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()

	if len(cq.data) == 0 {
		return nil
	}
	p := cq.data[0]
	return &p
}

func (cq *CircularQueue) GetLatest() *types.PriceDataPoint {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()

	if len(cq.data) == 0 {
		return nil
	}
	p := cq.data[len(cq.data)-1]
	return &p
}

// FindPriceAroundTime 查找最接近目标时间的价格点，相差超过 tolerance 返回 nil
func (cq *CircularQueue) FindPriceAroundTime(targetTime time.Time, tolerance time.Duration) *types.PriceDataPoint {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()

	if len(cq.data) < 2 {
		return nil
	}

	closest := -1
	minDiff := time.Duration(math.MaxInt64)
	for i := range cq.data {
		diff := targetTime.Sub(cq.data[i].Timestamp)
		if diff < 0 {
			diff = -diff
		}
		if diff < minDiff {
			minDiff = diff
			closest = i
		}
	}

	if minDiff > tolerance {
		return nil
	}
	p := cq.data[closest]
	return &p
}

// Since 返回 since 之后的价格点副本
func (cq *CircularQueue) Since(since time.Time) []types.PriceDataPoint {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()

	points := make([]types.PriceDataPoint, 0, len(cq.data))
	for _, p := range cq.data {
		if !p.Timestamp.Before(since) {
			points = append(points, p)
		}
	}
	return points
}

func (cq *CircularQueue) Length() int {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()
	return len(cq.data)
}
