// internal/llm/retry.go
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultMaxRetries = 3

// Invoker 包装一次模型调用：先等待限流器，再带退避地重试配额错误。
// 非配额错误不重试，立即向上传播。
type Invoker struct {
	provider   Provider
	limiter    *RateLimiter
	maxRetries uint64

	// 测试钩子：缩短退避基数
	baseInterval time.Duration
}

// NewInvoker 创建重试调用器
func NewInvoker(provider Provider, limiter *RateLimiter) *Invoker {
	return &Invoker{
		provider:     provider,
		limiter:      limiter,
		maxRetries:   defaultMaxRetries,
		baseInterval: 2 * time.Second,
	}
}

// Provider 返回底层提供者
func (inv *Invoker) Provider() Provider {
	return inv.provider
}

// Complete 执行一次带限流和重试的文本生成。
// 返回最终响应、实际重试次数以及终态错误。
func (inv *Invoker) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, int, error) {
	if inv.limiter != nil {
		if err := inv.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}

	var resp *CompletionResponse
	retries := 0

	operation := func() error {
		r, err := inv.provider.CompleteText(ctx, req)
		if err != nil {
			if IsQuotaError(err) {
				retries++
				return err
			}
			// 其它错误立即终止重试
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	// 指数退避：2^attempt 秒（2s、4s、8s），不加抖动
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = inv.baseInterval
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expo, inv.maxRetries), ctx))
	if err != nil {
		if IsQuotaError(err) {
			// retries 计数包含首次失败，对外报告的是重试次数
			return nil, retries - 1, fmt.Errorf("重试%d次后配额仍未恢复: %w", inv.maxRetries, err)
		}
		return nil, retries, err
	}

	return resp, retries, nil
}
