// internal/models/analysis.go
package models

import "time"

// 风险等级与建议优先级共用同一组字面量
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// 分析模式：三级降级策略的档位
const (
	ModeEnhanced  = "enhanced"
	ModeFallback  = "fallback"
	ModeEmergency = "emergency"
)

// ChannelContext 可选的频道/创作者上下文
type ChannelContext struct {
	ChannelAgeDays          int     `json:"channel_age_days,omitempty"`
	SubscriberCount         int     `json:"subscriber_count,omitempty"`
	HistoricalAIProbability float64 `json:"historical_ai_probability,omitempty"`
}

// AnalysisRequest 一次管道运行的不可变输入
type AnalysisRequest struct {
	Text           string          `json:"text"`
	ChannelContext *ChannelContext `json:"channel_context,omitempty"`
}

// ContextAnalysis 上下文分类阶段的输出，每次运行只生成一次
type ContextAnalysis struct {
	ContentType        string `json:"content_type" validate:"required"`
	TargetAudience     string `json:"target_audience"`
	MonetizationImpact int    `json:"monetization_impact" validate:"min=0,max=100"`
	ContentLength      int    `json:"content_length" validate:"min=0"`
	LanguageDetected   string `json:"language_detected"`
}

// PolicyCategoryAnalysis 单个策略类别的分析记录
type PolicyCategoryAnalysis struct {
	RiskScore   int      `json:"risk_score" validate:"min=0,max=100"`
	Confidence  int      `json:"confidence" validate:"min=0,max=100"`
	Violations  []string `json:"violations"`
	Severity    string   `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Explanation string   `json:"explanation"`
}

// RiskSpan 源文本中被标记的片段。
// 合并前偏移量是分块相对的，合并后是全文相对的。
type RiskSpan struct {
	Text           string `json:"text"`
	StartOffset    int    `json:"start_offset"`
	EndOffset      int    `json:"end_offset"`
	RiskLevel      string `json:"risk_level" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	PolicyCategory string `json:"policy_category"`
	Explanation    string `json:"explanation,omitempty"`
}

// RiskAssessment 风险评估阶段的输出
type RiskAssessment struct {
	OverallRiskScore       int                 `json:"overall_risk_score" validate:"min=0,max=100"`
	FlaggedSection         string              `json:"flagged_section"`
	RiskFactors            []string            `json:"risk_factors"`
	SeverityLevel          string              `json:"severity_level" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	RiskyPhrasesByCategory map[string][]string `json:"risky_phrases_by_category"`
	RiskySpans             []RiskSpan          `json:"risky_spans,omitempty"`
}

// ConfidenceAnalysis 置信度分析阶段的输出
type ConfidenceAnalysis struct {
	OverallConfidence   int      `json:"overall_confidence" validate:"min=0,max=100"`
	TextClarity         int      `json:"text_clarity" validate:"min=0,max=100"`
	PolicyCoverage      int      `json:"policy_coverage" validate:"min=0,max=100"`
	ContextCompleteness int      `json:"context_completeness" validate:"min=0,max=100"`
	Factors             []string `json:"factors"`
}

// Suggestion 改进建议，仅限劝告性措辞
type Suggestion struct {
	Title       string `json:"title" validate:"required"`
	Text        string `json:"text"`
	Priority    string `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	ImpactScore int    `json:"impact_score" validate:"min=0,max=100"`
}

// AIDetectionResult AI生成内容检测结果（可选阶段）
type AIDetectionResult struct {
	Probability          int      `json:"probability" validate:"min=0,max=100"`
	Confidence           int      `json:"confidence" validate:"min=0,max=100"`
	Patterns             []string `json:"patterns"`
	Perplexity           int      `json:"perplexity" validate:"min=0,max=100"`
	Burstiness           int      `json:"burstiness" validate:"min=0,max=100"`
	VocabularyDiversity  int      `json:"vocabulary_diversity" validate:"min=0,max=100"`
	StructuralUniformity int      `json:"structural_uniformity" validate:"min=0,max=100"`
	Explanation          string   `json:"explanation"`
}

// AnalysisMetadata 结果元数据，analysis_mode 让调用方识别降级响应
type AnalysisMetadata struct {
	Model            string    `json:"model"`
	Timestamp        time.Time `json:"timestamp"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	ContentLength    int       `json:"content_length"`
	AnalysisMode     string    `json:"analysis_mode"`
}

// EnhancedAnalysisResult 管道的聚合输出。
// policy_categories 在返回前保证恰好包含固定分类表的全部键。
type EnhancedAnalysisResult struct {
	ContextAnalysis  *ContextAnalysis                  `json:"context_analysis,omitempty"`
	PolicyCategories map[string]PolicyCategoryAnalysis `json:"policy_categories"`
	RiskAssessment   *RiskAssessment                   `json:"risk_assessment"`
	Confidence       *ConfidenceAnalysis               `json:"confidence_analysis,omitempty"`
	Suggestions      []Suggestion                      `json:"suggestions"`
	AIDetection      *AIDetectionResult                `json:"ai_detection,omitempty"`
	Metadata         AnalysisMetadata                  `json:"analysis_metadata"`
}
