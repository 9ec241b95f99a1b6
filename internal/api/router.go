// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/ContentGuardMCP/internal/config"
	"github.com/Corphon/ContentGuardMCP/internal/di"
	"github.com/Corphon/ContentGuardMCP/internal/services"
	"github.com/Corphon/ContentGuardMCP/internal/utils"
)

// SetupRouter 配置HTTP路由。
// 只从容器获取服务，不在这里创建新实例。
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	pipelineService, ok := container.Get("pipeline").(*services.PipelineService)
	if !ok {
		return nil, fmt.Errorf("分析管道服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	lexiconService, ok := container.Get("lexicon").(*services.LexiconService)
	if !ok {
		return nil, fmt.Errorf("词表服务未正确初始化")
	}

	metrics, ok := container.Get("metrics").(*utils.MetricsCollector)
	if !ok {
		return nil, fmt.Errorf("指标收集器未正确初始化")
	}

	handler := NewHandler(pipelineService, llmService, lexiconService, metrics)

	if cfg != nil && !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())
	r.Use(requestLoggingMiddleware())

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/analyze", handler.AnalyzeContent)
		apiGroup.GET("/health", handler.HealthCheck)
		apiGroup.GET("/policies", handler.ListPolicies)
		apiGroup.GET("/metrics", handler.GetMetrics)
	}

	return r, nil
}
