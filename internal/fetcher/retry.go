package fetcher

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// retryable 由上游错误实现，返回 false 时不再重试
type retryable interface {
	Retryable() bool
}

// withRetry 最多执行 attempts 次，第 n 次重试前等待 n*delay
func withRetry(ctx context.Context, name string, attempts int, delay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			zap.L().Info("🔄 重试获取数据",
				zap.String("source", name),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var r retryable
		if errors.As(lastErr, &r) && !r.Retryable() {
			return lastErr
		}
	}
	return lastErr
}
