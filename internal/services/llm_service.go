// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/Corphon/ContentGuardMCP/internal/errors"
	"github.com/Corphon/ContentGuardMCP/internal/llm"
	"github.com/Corphon/ContentGuardMCP/internal/parser"
	"github.com/Corphon/ContentGuardMCP/internal/utils"
)

// LLMService 提供统一的大语言模型调用接口。
// 所有出站调用都经过调用器（限流+重试），模型原始回复按
// md5(prompt+system+model+provider) 缓存，命中时直接重新解析缓存文本。
type LLMService struct {
	invokerMutex sync.RWMutex
	invoker      *llm.Invoker
	providerName string
	model        string

	cache   *responseCache
	metrics *utils.MetricsCollector
}

// responseCache 缓存模型的原始文本回复
type responseCache struct {
	entries    map[string]*cacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type cacheEntry struct {
	RawText   string
	CreatedAt time.Time
}

// NewLLMService 创建LLM服务
func NewLLMService(invoker *llm.Invoker, model string, metrics *utils.MetricsCollector) *LLMService {
	service := &LLMService{
		invoker: invoker,
		model:   model,
		metrics: metrics,
		cache: &responseCache{
			entries:    make(map[string]*cacheEntry),
			expiration: 30 * time.Minute,
		},
	}
	if invoker != nil && invoker.Provider() != nil {
		service.providerName = invoker.Provider().GetName()
	}
	return service
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.invokerMutex.RLock()
	defer s.invokerMutex.RUnlock()
	return s.invoker != nil && s.invoker.Provider() != nil
}

// GetProviderStatus 返回服务是否就绪以及可读描述
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM服务实例未初始化"
	}
	if !s.IsReady() {
		return false, "未配置模型提供商"
	}
	return true, fmt.Sprintf("Ready (%s / %s)", s.providerName, s.model)
}

// ProviderName 返回当前提供商名称
func (s *LLMService) ProviderName() string {
	s.invokerMutex.RLock()
	defer s.invokerMutex.RUnlock()
	return s.providerName
}

// ModelName 返回当前使用的模型名称
func (s *LLMService) ModelName() string {
	s.invokerMutex.RLock()
	defer s.invokerMutex.RUnlock()
	return s.model
}

// CreateStructuredCompletion 请求模型按JSON格式作答并解析到outputSchema。
// 解析走多策略修复链，任何一条策略成功即返回；全部失败返回解析错误，
// 由调用方决定降级，这里不做默认值替换。
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, prompt, systemPrompt string, outputSchema interface{}, opts parser.Options) error {
	s.invokerMutex.RLock()
	invoker := s.invoker
	model := s.model
	s.invokerMutex.RUnlock()

	if invoker == nil {
		return apperrors.NewConfigurationError("LLM service not ready", nil)
	}

	cacheKey := s.generateCacheKey(prompt, systemPrompt, model)

	// 缓存命中时重新解析缓存文本，保证每次调用得到独立的结构实例
	if raw, ok := s.cache.get(cacheKey); ok {
		if err := parser.Parse(raw, outputSchema, opts); err == nil {
			if s.metrics != nil {
				s.metrics.IncrementCounter("llm.cache.hit")
			}
			return nil
		}
		// 缓存的文本解析不了就当作未命中重新请求
		s.cache.invalidate(cacheKey)
	}

	structuredSystemPrompt := systemPrompt
	if structuredSystemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "Return your response in valid JSON format, following the provided output schema, without adding explanations or preambles."

	req := llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  0.3,
		Model:        model,
	}

	resp, retries, err := invoker.Complete(ctx, req)
	if s.metrics != nil && retries > 0 {
		s.metrics.AddCounter("llm.retry.total", int64(retries))
	}
	if err != nil {
		return err
	}

	if err := parser.Parse(resp.Text, outputSchema, opts); err != nil {
		return err
	}

	s.cache.put(cacheKey, resp.Text)
	return nil
}

// generateCacheKey 生成缓存键
func (s *LLMService) generateCacheKey(prompt, systemPrompt, model string) string {
	hashInput := fmt.Sprintf("%s:::%s:::%s:::%s",
		prompt, systemPrompt, model, s.providerName)
	h := md5.New()
	h.Write([]byte(hashInput))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *responseCache) get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return "", false
	}
	if time.Since(entry.CreatedAt) > c.expiration {
		return "", false
	}
	return entry.RawText, true
}

func (c *responseCache) put(key, raw string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &cacheEntry{
		RawText:   raw,
		CreatedAt: time.Now(),
	}

	// 缓存过大时清理最旧的条目
	if len(c.entries) > 1000 {
		c.cleanupOldest(100)
	}
}

func (c *responseCache) invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// cleanupOldest 清理最旧的缓存条目，调用方需持有写锁
func (c *responseCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.entries))
	for k, v := range c.entries {
		entries = append(entries, keyAge{k, v.CreatedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	maxToDelete := count
	if len(entries) < maxToDelete {
		maxToDelete = len(entries)
	}
	for i := 0; i < maxToDelete; i++ {
		delete(c.entries, entries[i].key)
	}
}
