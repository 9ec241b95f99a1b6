// internal/services/pipeline_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Corphon/ContentGuardMCP/internal/errors"
	"github.com/Corphon/ContentGuardMCP/internal/models"
	"github.com/Corphon/ContentGuardMCP/internal/utils"
)

// PipelineService 内容风险分析管道的编排器。
// 各阶段严格顺序执行；任何阶段的终态错误触发整体降级而不是单阶段重试：
// enhanced（全部阶段）→ fallback（单次合并提示）→ emergency（无模型调用）。
// 无论降到哪一档，返回的结果都是完整良构的，降级通过
// analysis_metadata.analysis_mode 向调用方暴露。
type PipelineService struct {
	llm      *LLMService
	filter   *FalsePositiveFilter
	reporter ErrorReporter
	metrics  *utils.MetricsCollector
	logger   *utils.Logger
}

// NewPipelineService 创建管道编排器
func NewPipelineService(llmService *LLMService, filter *FalsePositiveFilter, reporter ErrorReporter, metrics *utils.MetricsCollector) *PipelineService {
	if filter == nil {
		filter = NewFalsePositiveFilter()
	}
	if reporter == nil {
		reporter = NewLogErrorReporter()
	}

	return &PipelineService{
		llm:      llmService,
		filter:   filter,
		reporter: reporter,
		metrics:  metrics,
		logger:   utils.GetLogger(),
	}
}

// Analyze 执行一次完整的分析。
// 空白输入在任何模型调用之前就被拒绝，返回校验错误。
func (s *PipelineService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.EnhancedAnalysisResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperrors.NewValidationError("分析文本不能为空", nil)
	}

	startTime := time.Now()
	if s.metrics != nil {
		s.metrics.IncrementCounter("pipeline.analyze.total")
	}

	result, mode := s.analyzeWithFallback(ctx, req)

	result.Metadata = models.AnalysisMetadata{
		Model:            s.llm.ModelName(),
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMS: time.Since(startTime).Milliseconds(),
		ContentLength:    len(req.Text),
		AnalysisMode:     mode,
	}
	if mode == models.ModeEmergency {
		result.Metadata.Model = "none"
	}

	if s.metrics != nil {
		s.metrics.ObserveHistogram("pipeline.duration_ms", result.Metadata.ProcessingTimeMS)
	}

	return result, nil
}

// analyzeWithFallback 依次尝试三个档位，返回结果和最终采用的模式
func (s *PipelineService) analyzeWithFallback(ctx context.Context, req models.AnalysisRequest) (*models.EnhancedAnalysisResult, string) {
	result, stage, err := s.runEnhanced(ctx, req)
	if err == nil {
		return result, models.ModeEnhanced
	}

	s.reportDegradation(err, stage, models.ModeEnhanced, models.ModeFallback, req.Text)
	if s.metrics != nil {
		s.metrics.IncrementCounter("pipeline.fallback.basic")
	}

	result, err = s.runBasic(ctx, req)
	if err == nil {
		return result, models.ModeFallback
	}

	s.reportDegradation(err, "basic_analysis", models.ModeFallback, models.ModeEmergency, req.Text)
	if s.metrics != nil {
		s.metrics.IncrementCounter("pipeline.fallback.emergency")
	}

	return s.emergencyResult(), models.ModeEmergency
}

// runEnhanced 完整阶段序列：
// 上下文分类 → 类别批量分析 → 风险评估(±分块) → 置信度 → 建议 →
// [AI检测，仅当携带频道上下文] → 加权聚合。
// 返回出错阶段的名字供降级上报打标签。
func (s *PipelineService) runEnhanced(ctx context.Context, req models.AnalysisRequest) (*models.EnhancedAnalysisResult, string, error) {
	contextAnalysis, err := runStageTimed(s, "context_classification", func() (*models.ContextAnalysis, error) {
		return s.classifyContext(ctx, req.Text)
	})
	if err != nil {
		return nil, "context_classification", err
	}

	categories, err := runStageTimed(s, "policy_categories", func() (map[string]models.PolicyCategoryAnalysis, error) {
		return s.analyzePolicyCategories(ctx, req.Text)
	})
	if err != nil {
		return nil, "policy_categories", err
	}

	assessment, err := runStageTimed(s, "risk_assessment", func() (*models.RiskAssessment, error) {
		return s.assessRisk(ctx, req.Text)
	})
	if err != nil {
		return nil, "risk_assessment", err
	}

	confidence, err := runStageTimed(s, "confidence_analysis", func() (*models.ConfidenceAnalysis, error) {
		return s.analyzeConfidence(ctx, req.Text, contextAnalysis)
	})
	if err != nil {
		return nil, "confidence_analysis", err
	}

	suggestions, err := runStageTimed(s, "suggestion_generation", func() ([]models.Suggestion, error) {
		return s.generateSuggestions(ctx, req.Text, assessment)
	})
	if err != nil {
		return nil, "suggestion_generation", err
	}

	var aiDetection *models.AIDetectionResult
	if req.ChannelContext != nil {
		aiDetection, err = runStageTimed(s, "ai_detection", func() (*models.AIDetectionResult, error) {
			return s.detectAIContent(ctx, req.Text, req.ChannelContext)
		})
		if err != nil {
			return nil, "ai_detection", err
		}
	}

	// 加权聚合覆盖评估阶段对总分的粗估，等级随之重算
	assessment.OverallRiskScore = CalculateOverallRiskScore(categories)
	assessment.SeverityLevel = models.OverallRiskLevel(assessment.OverallRiskScore)

	return &models.EnhancedAnalysisResult{
		ContextAnalysis:  contextAnalysis,
		PolicyCategories: categories,
		RiskAssessment:   assessment,
		Confidence:       confidence,
		Suggestions:      suggestions,
		AIDetection:      aiDetection,
	}, "", nil
}

// runStage 包装单个阶段：记录时长直方图和失败日志
func runStageTimed[T any](s *PipelineService, stageName string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fn()

	if s.metrics != nil {
		s.metrics.ObserveHistogram("pipeline.stage."+stageName+".duration_ms", time.Since(start).Milliseconds())
	}

	if err != nil {
		s.logger.Warn("analysis stage failed", map[string]interface{}{
			"stage": stageName,
			"error": err.Error(),
		})
		return result, apperrors.NewStageError(fmt.Sprintf("阶段 %s 失败", stageName), err)
	}

	return result, nil
}

// basicAnalysis 降级档位的单次合并提示输出
type basicAnalysis struct {
	RiskScore      int                 `json:"risk_score" validate:"min=0,max=100"`
	RiskLevel      string              `json:"risk_level" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	FlaggedSection string              `json:"flagged_section"`
	Highlights     []string            `json:"highlights"`
	Suggestions    []models.Suggestion `json:"suggestions"`
}

// runBasic 降级路径：一次合并提示拿到粗粒度结果。
// 不产出逐类别明细，policy_categories 固定为空map。
func (s *PipelineService) runBasic(ctx context.Context, req models.AnalysisRequest) (*models.EnhancedAnalysisResult, error) {
	prompt := fmt.Sprintf(`Analyze the policy risk of the following content in a single pass.

Content:
"""
%s
"""

Return a JSON object:
{
  "risk_score": 0-100,
  "risk_level": "LOW" | "MEDIUM" | "HIGH",
  "flagged_section": "one sentence summarizing the riskiest part, empty if none",
  "highlights": ["exactly 4 short findings about the content"],
  "suggestions": [
    {"title": "short title", "text": "actionable advice",
     "priority": "HIGH|MEDIUM|LOW", "impact_score": 0-100}
  ] (exactly 3 entries)
}`, truncateText(req.Text, 8000))

	var basic basicAnalysis
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, analystSystemPrompt, &basic, stageParseOptions); err != nil {
		return nil, err
	}

	basic.RiskScore = NormalizeScore(float64(basic.RiskScore))
	if basic.RiskLevel == "" {
		basic.RiskLevel = models.OverallRiskLevel(basic.RiskScore)
	}
	if basic.Highlights == nil {
		basic.Highlights = []string{}
	}
	if basic.Suggestions == nil {
		basic.Suggestions = []models.Suggestion{}
	}

	return &models.EnhancedAnalysisResult{
		PolicyCategories: map[string]models.PolicyCategoryAnalysis{},
		RiskAssessment: &models.RiskAssessment{
			OverallRiskScore:       basic.RiskScore,
			FlaggedSection:         basic.FlaggedSection,
			RiskFactors:            basic.Highlights,
			SeverityLevel:          basic.RiskLevel,
			RiskyPhrasesByCategory: map[string][]string{},
		},
		Suggestions: basic.Suggestions,
	}, nil
}

// emergencyResult 最终兜底：不做任何模型调用的保守中性结果
func (s *PipelineService) emergencyResult() *models.EnhancedAnalysisResult {
	return &models.EnhancedAnalysisResult{
		PolicyCategories: map[string]models.PolicyCategoryAnalysis{},
		RiskAssessment: &models.RiskAssessment{
			OverallRiskScore:       50,
			FlaggedSection:         "",
			RiskFactors:            []string{},
			SeverityLevel:          models.SeverityMedium,
			RiskyPhrasesByCategory: map[string][]string{},
		},
		Confidence: &models.ConfidenceAnalysis{
			OverallConfidence: 25,
			Factors:           []string{"analysis service unavailable, defaults applied"},
		},
		Suggestions: []models.Suggestion{
			{
				Title:       "Analysis service unavailable",
				Text:        "The risk analysis service is temporarily unavailable. A neutral default assessment was returned; retry later for a full analysis.",
				Priority:    models.SeverityMedium,
				ImpactScore: 0,
			},
		},
	}
}

// reportDegradation 向错误上报协作方记录一次降级转换。
// 上报实现保证不阻塞、不抛错，失败被吞掉，绝不反过来影响管道。
func (s *PipelineService) reportDegradation(err error, stage, fromMode, toMode, payload string) {
	if s.reporter == nil {
		return
	}

	// 无论上报实现做了什么，都不允许影响降级流程
	defer func() { _ = recover() }()

	s.reporter.CaptureError(err, map[string]string{
		"stage":     stage,
		"mode_from": fromMode,
		"mode_to":   toMode,
	}, map[string]interface{}{
		"payload_excerpt": truncatePayload(payload, 200),
	})
}
