// internal/llm/ratelimiter.go
package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 滑动窗口限流器，所有管道调用共享同一个实例。
// 由组合根构造并注入，不做包级单例，方便测试时创建隔离实例。
type RateLimiter struct {
	mutex       sync.Mutex
	timestamps  []time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter 创建滑动窗口限流器
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 80
	}
	if window <= 0 {
		window = 60 * time.Second
	}

	return &RateLimiter{
		timestamps:  make([]time.Time, 0, maxRequests),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Wait 在窗口饱和时阻塞，直到最老的时间戳滑出窗口，然后记录本次调用。
// 读-改-写全程持锁，多个并发管道共享同一个窗口时是安全的。
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mutex.Lock()
		now := r.now()
		r.prune(now)

		if len(r.timestamps) < r.maxRequests {
			r.timestamps = append(r.timestamps, now)
			r.mutex.Unlock()
			return nil
		}

		// 窗口已满：等待最老的时间戳过期
		waitTime := r.window - now.Sub(r.timestamps[0])
		r.mutex.Unlock()

		if waitTime <= 0 {
			continue
		}

		if err := r.sleep(ctx, waitTime); err != nil {
			return err
		}
	}
}

// Pending 返回当前窗口内已记录的调用数（测试用）
func (r *RateLimiter) Pending() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.prune(r.now())
	return len(r.timestamps)
}

// prune 移除滑出窗口的时间戳，调用方必须持锁
func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	idx := 0
	for idx < len(r.timestamps) && !r.timestamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[idx:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
