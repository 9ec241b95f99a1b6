// internal/llm/ratelimiter_test.go
package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLimiter 用假时钟替换真实睡眠，记录每次请求的等待时长
func newTestLimiter(maxRequests int, window time.Duration) (*RateLimiter, *[]time.Duration) {
	limiter := NewRateLimiter(maxRequests, window)

	current := time.Unix(1000, 0)
	var slept []time.Duration

	limiter.now = func() time.Time { return current }
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		current = current.Add(d)
		return nil
	}

	return limiter, &slept
}

func TestRateLimiter_UnderLimitNoWait(t *testing.T) {
	limiter, slept := newTestLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}

	assert.Empty(t, *slept)
	assert.Equal(t, 3, limiter.Pending())
}

// 窗口2个/60秒，第3次调用应当睡眠约 60s - 已经过时间
func TestRateLimiter_ThirdCallSleepsRemainderOfWindow(t *testing.T) {
	limiter := NewRateLimiter(2, 60*time.Second)
	ctx := context.Background()

	current := time.Unix(1000, 0)
	var slept []time.Duration
	limiter.now = func() time.Time { return current }
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		current = current.Add(d)
		return nil
	}

	require.NoError(t, limiter.Wait(ctx)) // t=0
	current = current.Add(10 * time.Second)
	require.NoError(t, limiter.Wait(ctx)) // t=10s
	current = current.Add(5 * time.Second)

	// t=15s，窗口已满：最老时间戳在t=0，需等待 60-15=45s
	require.NoError(t, limiter.Wait(ctx))

	require.Len(t, slept, 1)
	assert.Equal(t, 45*time.Second, slept[0])
}

func TestRateLimiter_ExpiredTimestampsPruned(t *testing.T) {
	limiter, slept := newTestLimiter(2, time.Minute)
	ctx := context.Background()

	current := time.Unix(1000, 0)
	limiter.now = func() time.Time { return current }

	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))

	// 窗口滑过之后不再需要等待
	current = current.Add(61 * time.Second)
	require.NoError(t, limiter.Wait(ctx))

	assert.Empty(t, *slept)
	assert.Equal(t, 1, limiter.Pending())
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, limiter.Wait(ctx))

	cancel()
	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(0, 0)

	assert.Equal(t, 80, limiter.maxRequests)
	assert.Equal(t, 60*time.Second, limiter.window)
}
