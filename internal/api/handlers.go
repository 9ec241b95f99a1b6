// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/ContentGuardMCP/internal/errors"
	"github.com/Corphon/ContentGuardMCP/internal/models"
	"github.com/Corphon/ContentGuardMCP/internal/services"
	"github.com/Corphon/ContentGuardMCP/internal/utils"
)

// Analyzer 处理器对管道的最小依赖，测试里用桩实现替换
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.EnhancedAnalysisResult, error)
}

// Handler API处理器
type Handler struct {
	analyzer Analyzer
	llm      *services.LLMService
	lexicon  *services.LexiconService
	metrics  *utils.MetricsCollector
	resp     *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(analyzer Analyzer, llmService *services.LLMService, lexicon *services.LexiconService, metrics *utils.MetricsCollector) *Handler {
	return &Handler{
		analyzer: analyzer,
		llm:      llmService,
		lexicon:  lexicon,
		metrics:  metrics,
		resp:     NewResponseHelper(),
	}
}

// AnalyzeContent POST /api/analyze
// 返回的结果永远是完整良构的，降级通过 analysis_metadata.analysis_mode 表达。
func (h *Handler) AnalyzeContent(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "INVALID_REQUEST", "请求体不是合法的JSON: "+err.Error())
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
			h.resp.BadRequest(c, appErr.Code, appErr.Message)
			return
		}
		h.resp.ServiceUnavailable(c, "分析服务暂时不可用")
		return
	}

	h.resp.Success(c, result)
}

// HealthCheck GET /api/health
func (h *Handler) HealthCheck(c *gin.Context) {
	ready, state := h.llm.GetProviderStatus()

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   map[bool]string{true: "ok", false: "degraded"}[ready],
		"provider": h.llm.ProviderName(),
		"model":    h.llm.ModelName(),
		"detail":   state,
	})
}

// ListPolicies GET /api/policies
func (h *Handler) ListPolicies(c *gin.Context) {
	lexicon := h.lexicon.GetLexicon()

	categories := make([]gin.H, 0, len(models.PolicyCategoryKeys))
	for _, key := range models.PolicyCategoryKeys {
		categories = append(categories, gin.H{
			"key":    key,
			"weight": models.WeightForCategory(key),
			"terms":  lexicon.Categories[key],
		})
	}

	h.resp.Success(c, gin.H{"categories": categories})
}

// GetMetrics GET /api/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	counters, histograms := h.metrics.Snapshot()
	h.resp.Success(c, gin.H{
		"counters":   counters,
		"histograms": histograms,
	})
}
