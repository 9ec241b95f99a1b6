// internal/app/app.go
package app

import (
	"fmt"
	"time"

	"github.com/Corphon/ContentGuardMCP/internal/config"
	"github.com/Corphon/ContentGuardMCP/internal/di"
	apperrors "github.com/Corphon/ContentGuardMCP/internal/errors"
	"github.com/Corphon/ContentGuardMCP/internal/llm"
	"github.com/Corphon/ContentGuardMCP/internal/services"
	"github.com/Corphon/ContentGuardMCP/internal/storage"
	"github.com/Corphon/ContentGuardMCP/internal/utils"

	// 提供商通过init()注册自己
	_ "github.com/Corphon/ContentGuardMCP/internal/llm/providers/anthropic"
	_ "github.com/Corphon/ContentGuardMCP/internal/llm/providers/google"
)

// 默认模型：优先Gemini，构建失败回退Claude
const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultClaudeModel = "claude-haiku-4-5"
)

// InitServices 组合根：按依赖顺序创建全部服务并注册进容器。
// 调用前必须先完成 config.InitConfig()。
func InitServices() error {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return apperrors.NewConfigurationError("配置未初始化，先调用 config.InitConfig", nil)
	}

	logger := utils.GetLogger()
	container := di.GetContainer()

	// 基础设施
	metrics := utils.NewMetricsCollector()
	container.Register("metrics", metrics)

	fileCache := storage.NewFileCacheService(5 * time.Minute)
	lexiconService := services.NewLexiconService(cfg.DataDir, fileCache)
	container.Register("lexicon", lexiconService)

	// 提供商选择与降级链
	provider, model, err := selectProvider(cfg)
	if err != nil {
		return err
	}
	logger.Info("model provider selected", map[string]interface{}{
		"provider": provider.GetName(),
		"model":    model,
	})

	// 限流器进程内唯一，所有出站调用共享同一个窗口
	limiter := llm.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	invoker := llm.NewInvoker(provider, limiter)

	llmService := services.NewLLMService(invoker, model, metrics)
	container.Register("llm", llmService)

	// 误报过滤白名单来自词表服务（覆盖文件可热更新内置默认）
	filter := services.NewFalsePositiveFilterWithTerms(lexiconService.BenignTerms())
	reporter := services.NewLogErrorReporter()

	pipelineService := services.NewPipelineService(llmService, filter, reporter, metrics)
	container.Register("pipeline", pipelineService)

	return nil
}

// selectProvider 模型选择：GEMINI_API_KEY存在时优先Gemini，
// 构建失败且配置了ANTHROPIC_API_KEY时回退Claude。
// 两个都不可用是启动期配置错误，在任何请求之前失败。
func selectProvider(cfg *config.AppConfig) (llm.Provider, string, error) {
	var firstErr error

	if cfg.GeminiAPIKey != "" {
		provider, err := llm.GetProvider("google", map[string]string{
			"api_key":       cfg.GeminiAPIKey,
			"default_model": defaultGeminiModel,
		})
		if err == nil {
			return provider, defaultGeminiModel, nil
		}
		firstErr = err
		utils.GetLogger().Warn("gemini provider unavailable, trying fallback", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if cfg.AnthropicAPIKey != "" {
		provider, err := llm.GetProvider("anthropic", map[string]string{
			"api_key":       cfg.AnthropicAPIKey,
			"default_model": defaultClaudeModel,
		})
		if err == nil {
			return provider, defaultClaudeModel, nil
		}
		if firstErr == nil {
			firstErr = err
		} else {
			firstErr = fmt.Errorf("%v; claude: %w", firstErr, err)
		}
	}

	return nil, "", apperrors.NewConfigurationError("没有可用的模型提供商", firstErr)
}
