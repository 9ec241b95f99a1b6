// internal/llm/retry_test.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider 按预设脚本依次返回响应或错误
type scriptedProvider struct {
	responses []func() (*CompletionResponse, error)
	calls     int
}

func (p *scriptedProvider) Initialize(config map[string]string) error { return nil }
func (p *scriptedProvider) GetName() string                           { return "scripted" }
func (p *scriptedProvider) GetSupportedModels() []string              { return []string{"test-model"} }

func (p *scriptedProvider) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	idx := p.calls
	p.calls++
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx]()
}

func succeed(text string) func() (*CompletionResponse, error) {
	return func() (*CompletionResponse, error) {
		return &CompletionResponse{Text: text}, nil
	}
}

func failQuota() func() (*CompletionResponse, error) {
	return func() (*CompletionResponse, error) {
		return nil, &QuotaError{Provider: "scripted", StatusCode: 429, Message: "rate limited"}
	}
}

func failOther(msg string) func() (*CompletionResponse, error) {
	return func() (*CompletionResponse, error) {
		return nil, errors.New(msg)
	}
}

func newTestInvoker(p Provider) *Invoker {
	inv := NewInvoker(p, nil)
	inv.baseInterval = time.Millisecond
	return inv
}

func TestInvoker_SuccessNoRetry(t *testing.T) {
	provider := &scriptedProvider{responses: []func() (*CompletionResponse, error){
		succeed("ok"),
	}}
	inv := newTestInvoker(provider)

	resp, retries, err := inv.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Zero(t, retries)
	assert.Equal(t, 1, provider.calls)
}

func TestInvoker_QuotaErrorRetriedThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{responses: []func() (*CompletionResponse, error){
		failQuota(),
		failQuota(),
		succeed("recovered"),
	}}
	inv := newTestInvoker(provider)

	resp, retries, err := inv.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, provider.calls)
}

func TestInvoker_QuotaErrorExhausted(t *testing.T) {
	provider := &scriptedProvider{responses: []func() (*CompletionResponse, error){
		failQuota(),
	}}
	inv := newTestInvoker(provider)

	resp, retries, err := inv.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, IsQuotaError(err))
	// 首次调用 + 3次重试
	assert.Equal(t, 4, provider.calls)
	assert.Equal(t, 3, retries)
}

func TestInvoker_NonQuotaErrorNotRetried(t *testing.T) {
	provider := &scriptedProvider{responses: []func() (*CompletionResponse, error){
		failOther("invalid request"),
	}}
	inv := newTestInvoker(provider)

	_, retries, err := inv.Complete(context.Background(), CompletionRequest{Prompt: "p"})

	require.Error(t, err)
	assert.False(t, IsQuotaError(err))
	assert.Equal(t, 1, provider.calls)
	assert.Zero(t, retries)
}

func TestInvoker_WaitsForRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	var slept []time.Duration
	current := time.Unix(1000, 0)
	limiter.now = func() time.Time { return current }
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		current = current.Add(d)
		return nil
	}

	provider := &scriptedProvider{responses: []func() (*CompletionResponse, error){
		succeed("a"),
	}}
	inv := NewInvoker(provider, limiter)
	inv.baseInterval = time.Millisecond

	_, _, err := inv.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Empty(t, slept)

	// 窗口已满，第二次调用先等待限流器
	_, _, err = inv.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Len(t, slept, 1)
}

func TestIsQuotaError(t *testing.T) {
	qe := &QuotaError{Provider: "x", StatusCode: 429, Message: "m"}

	assert.True(t, IsQuotaError(qe))
	assert.True(t, IsQuotaError(fmt.Errorf("wrapped: %w", qe)))
	assert.False(t, IsQuotaError(errors.New("plain")))
}
