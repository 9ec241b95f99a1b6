// internal/services/stages.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Corphon/ContentGuardMCP/internal/models"
	"github.com/Corphon/ContentGuardMCP/internal/parser"
)

// 各阶段提示词共用的系统提示
const analystSystemPrompt = "You are a content policy analyst for a video platform. " +
	"You evaluate transcripts and descriptions against advertiser-friendly content guidelines. " +
	"Be precise and conservative: only flag content with concrete evidence in the text."

// 解析策略链的公共选项：已知的字符串字段做引号修复，
// 逐类别抽取兜底用固定分类表的键。
var stageParseOptions = parser.Options{
	QuoteRepairFields: []string{
		"explanation", "flagged_section", "content_type", "target_audience",
		"language_detected", "severity_level", "title", "text",
	},
	CategoryKeys: models.PolicyCategoryKeys,
}

// classifyContext 阶段1：上下文分类。
// 词数和语言在本地计算，模型的语言判断只作交叉校验。
func (s *PipelineService) classifyContext(ctx context.Context, text string) (*models.ContextAnalysis, error) {
	prompt := fmt.Sprintf(`Classify the following video content.

Content:
"""
%s
"""

Return a JSON object:
{
  "content_type": "one of: %s",
  "target_audience": "short description of the likely audience",
  "monetization_impact": 0-100 (how much this content limits ad suitability),
  "language_detected": "ISO language name, e.g. English"
}`, truncateText(text, 6000), strings.Join(models.ContentTypeVocabulary, ", "))

	var result models.ContextAnalysis
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, analystSystemPrompt, &result, stageParseOptions); err != nil {
		return nil, err
	}

	result.ContentType = models.NormalizeContentType(result.ContentType)
	result.ContentLength = countWords(text)
	result.MonetizationImpact = NormalizeScore(float64(result.MonetizationImpact))

	// 本地检测优先，模型的答案只在本地无法判断时采用
	if isEnglishText(text) {
		result.LanguageDetected = "English"
	} else if result.LanguageDetected == "" {
		result.LanguageDetected = "Unknown"
	}

	return &result, nil
}

// analyzePolicyCategories 阶段2：单次批量提示覆盖全部19个策略类别。
// 返回的map保证恰好覆盖固定分类表：缺键补默认记录，多余键丢弃。
func (s *PipelineService) analyzePolicyCategories(ctx context.Context, text string) (map[string]models.PolicyCategoryAnalysis, error) {
	prompt := fmt.Sprintf(`Analyze the following content against every policy category listed below.

Content:
"""
%s
"""

Policy categories (use these exact keys):
%s

Return a JSON object mapping each category key to:
{
  "risk_score": 0-100,
  "confidence": 0-100,
  "violations": ["specific quotes or behaviors found, empty if none"],
  "severity": "LOW" | "MEDIUM" | "HIGH",
  "explanation": "one sentence"
}
Include every category, with risk_score 0 for categories with no issues.`,
		truncateText(text, 8000), strings.Join(models.PolicyCategoryKeys, "\n"))

	parsed := make(map[string]models.PolicyCategoryAnalysis)
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, analystSystemPrompt, &parsed, stageParseOptions); err != nil {
		return nil, err
	}

	normalizeCategoryScores(parsed)
	return CompletePolicyCategories(parsed), nil
}

// normalizeCategoryScores 把整批类别分数作为一组做刻度归一，
// 避免模型对不同类别用了不同刻度时单独缩放导致失真。
func normalizeCategoryScores(parsed map[string]models.PolicyCategoryAnalysis) {
	if len(parsed) == 0 {
		return
	}

	keys := make([]string, 0, len(parsed))
	riskScores := make([]float64, 0, len(parsed))
	confidences := make([]float64, 0, len(parsed))
	for key, analysis := range parsed {
		keys = append(keys, key)
		riskScores = append(riskScores, float64(analysis.RiskScore))
		confidences = append(confidences, float64(analysis.Confidence))
	}

	normRisk := NormalizeScores(riskScores)
	normConf := NormalizeScores(confidences)

	for i, key := range keys {
		analysis := parsed[key]
		analysis.RiskScore = normRisk[i]
		analysis.Confidence = normConf[i]
		parsed[key] = analysis
	}
}

// assessRisk 阶段3：整体风险评估。
// 超过分块阈值的文本逐块评估后合并：片段偏移换算为全文偏移再归并，
// 短语表做小写并集，总分取各块最大值。
func (s *PipelineService) assessRisk(ctx context.Context, text string) (*models.RiskAssessment, error) {
	chunks := SplitIntoChunks(text)

	if len(chunks) == 1 {
		assessment, err := s.assessRiskChunk(ctx, chunks[0].Text)
		if err != nil {
			return nil, err
		}
		s.finalizeAssessment(text, assessment)
		return assessment, nil
	}

	merged := &models.RiskAssessment{
		RiskFactors:            []string{},
		RiskyPhrasesByCategory: map[string][]string{},
	}

	for _, chunk := range chunks {
		assessment, err := s.assessRiskChunk(ctx, chunk.Text)
		if err != nil {
			return nil, err
		}

		if assessment.OverallRiskScore > merged.OverallRiskScore {
			merged.OverallRiskScore = assessment.OverallRiskScore
			merged.FlaggedSection = assessment.FlaggedSection
		}

		merged.RiskFactors = UnionPhrases(merged.RiskFactors, assessment.RiskFactors)
		merged.RiskyPhrasesByCategory = UnionPhrasesByCategory(
			merged.RiskyPhrasesByCategory, assessment.RiskyPhrasesByCategory)

		// 块内偏移换算为全文偏移
		for _, span := range assessment.RiskySpans {
			span.StartOffset += chunk.Offset
			span.EndOffset += chunk.Offset
			merged.RiskySpans = append(merged.RiskySpans, span)
		}
	}

	merged.RiskySpans = MergeRiskSpans(text, merged.RiskySpans)
	s.finalizeAssessment(text, merged)
	return merged, nil
}

// assessRiskChunk 对单个窗口做一次风险评估调用
func (s *PipelineService) assessRiskChunk(ctx context.Context, chunkText string) (*models.RiskAssessment, error) {
	prompt := fmt.Sprintf(`Assess the overall policy risk of the following content.

Content:
"""
%s
"""

Return a JSON object:
{
  "overall_risk_score": 0-100,
  "flagged_section": "one sentence summarizing the riskiest part, empty if none",
  "risk_factors": ["short risk factor descriptions"],
  "severity_level": "LOW" | "MEDIUM" | "HIGH",
  "risky_phrases_by_category": {"category_key": ["exact phrases from the content"]},
  "risky_spans": [
    {"text": "exact excerpt", "start_offset": 0, "end_offset": 0,
     "risk_level": "LOW|MEDIUM|HIGH", "policy_category": "category_key",
     "explanation": "why"}
  ]
}
Offsets are character positions within the content above.`, chunkText)

	var result models.RiskAssessment
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, analystSystemPrompt, &result, stageParseOptions); err != nil {
		return nil, err
	}
	return &result, nil
}

// finalizeAssessment 评估结果的统一收尾：刻度归一、误报过滤、等级对齐
func (s *PipelineService) finalizeAssessment(document string, assessment *models.RiskAssessment) {
	assessment.OverallRiskScore = NormalizeScore(float64(assessment.OverallRiskScore))
	assessment.SeverityLevel = models.OverallRiskLevel(assessment.OverallRiskScore)

	if assessment.RiskFactors == nil {
		assessment.RiskFactors = []string{}
	}
	if assessment.RiskyPhrasesByCategory == nil {
		assessment.RiskyPhrasesByCategory = map[string][]string{}
	}

	if s.filter != nil {
		assessment.RiskyPhrasesByCategory = s.filter.FilterByCategory(
			UnionPhrasesByCategory(assessment.RiskyPhrasesByCategory))
	}

	assessment.RiskySpans = MergeRiskSpans(document, assessment.RiskySpans)
}

// analyzeConfidence 阶段4：置信度分析
func (s *PipelineService) analyzeConfidence(ctx context.Context, text string, contextAnalysis *models.ContextAnalysis) (*models.ConfidenceAnalysis, error) {
	contentType := "unknown"
	if contextAnalysis != nil {
		contentType = contextAnalysis.ContentType
	}

	prompt := fmt.Sprintf(`Estimate how reliable an automated policy analysis of this content would be.

Content type: %s
Content:
"""
%s
"""

Return a JSON object:
{
  "overall_confidence": 0-100,
  "text_clarity": 0-100 (how clear and unambiguous the text is),
  "policy_coverage": 0-100 (how well policy categories cover this content),
  "context_completeness": 0-100 (how much needed context the text provides),
  "factors": ["short notes explaining the confidence level"]
}`, contentType, truncateText(text, 6000))

	var result models.ConfidenceAnalysis
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, analystSystemPrompt, &result, stageParseOptions); err != nil {
		return nil, err
	}

	scores := NormalizeScores([]float64{
		float64(result.OverallConfidence),
		float64(result.TextClarity),
		float64(result.PolicyCoverage),
		float64(result.ContextCompleteness),
	})
	result.OverallConfidence = scores[0]
	result.TextClarity = scores[1]
	result.PolicyCoverage = scores[2]
	result.ContextCompleteness = scores[3]
	if result.Factors == nil {
		result.Factors = []string{}
	}

	return &result, nil
}

// genericSuggestions 建议数量不足5条时的补齐来源
var genericSuggestions = []models.Suggestion{
	{
		Title:       "Review flagged sections before publishing",
		Text:        "Re-read the sections highlighted by the analysis and consider rewording or removing borderline passages.",
		Priority:    models.SeverityMedium,
		ImpactScore: 50,
	},
	{
		Title:       "Add context for sensitive topics",
		Text:        "If the content discusses sensitive topics for educational or news purposes, state that framing explicitly early in the video.",
		Priority:    models.SeverityMedium,
		ImpactScore: 45,
	},
	{
		Title:       "Check thumbnail and title consistency",
		Text:        "Ensure the title and thumbnail do not exaggerate or sensationalize content beyond what the video delivers.",
		Priority:    models.SeverityLow,
		ImpactScore: 35,
	},
	{
		Title:       "Moderate strong language",
		Text:        "Reducing profanity, especially in the first 30 seconds, improves ad suitability.",
		Priority:    models.SeverityLow,
		ImpactScore: 30,
	},
	{
		Title:       "Keep descriptions accurate",
		Text:        "Accurate video descriptions and tags reduce the chance of automated misclassification.",
		Priority:    models.SeverityLow,
		ImpactScore: 25,
	},
}

// generateSuggestions 阶段5：改进建议，保证至少5条
func (s *PipelineService) generateSuggestions(ctx context.Context, text string, assessment *models.RiskAssessment) ([]models.Suggestion, error) {
	riskSummary := "No significant risks were found."
	if assessment != nil && len(assessment.RiskFactors) > 0 {
		riskSummary = strings.Join(assessment.RiskFactors, "; ")
	}

	prompt := fmt.Sprintf(`Based on this risk analysis, suggest concrete improvements the creator can make.

Identified risks: %s
Content excerpt:
"""
%s
"""

Return a JSON array of 5 suggestions:
[
  {"title": "short title", "text": "actionable advice",
   "priority": "HIGH|MEDIUM|LOW", "impact_score": 0-100}
]`, riskSummary, truncateText(text, 4000))

	var suggestions []models.Suggestion
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, analystSystemPrompt, &suggestions, stageParseOptions); err != nil {
		return nil, err
	}

	return padSuggestions(suggestions), nil
}

// padSuggestions 用通用最佳实践条目把建议列表补齐到至少5条
func padSuggestions(suggestions []models.Suggestion) []models.Suggestion {
	for _, generic := range genericSuggestions {
		if len(suggestions) >= 5 {
			break
		}
		if !containsSuggestion(suggestions, generic.Title) {
			suggestions = append(suggestions, generic)
		}
	}
	return suggestions
}

func containsSuggestion(suggestions []models.Suggestion, title string) bool {
	for _, s := range suggestions {
		if s.Title == title {
			return true
		}
	}
	return false
}

// detectAIContent 阶段6（可选）：AI生成内容检测。
// 仅在请求携带频道上下文时运行；历史AI概率只作为提示词上下文传入，
// 不与模型给出的概率做任何混合。
func (s *PipelineService) detectAIContent(ctx context.Context, text string, channel *models.ChannelContext) (*models.AIDetectionResult, error) {
	prompt := fmt.Sprintf(`Estimate the probability that the following transcript was generated by an AI language model.

Channel context (background only, do not blend into your probability):
- channel age in days: %d
- subscriber count: %d
- historical AI probability for this channel: %.2f

Transcript:
"""
%s
"""

Return a JSON object:
{
  "probability": 0-100,
  "confidence": 0-100,
  "patterns": ["observed patterns, e.g. repetitive phrasing"],
  "perplexity": 0-100 (higher = more predictable word choice),
  "burstiness": 0-100 (higher = more uniform sentence rhythm),
  "vocabulary_diversity": 0-100 (higher = less diverse vocabulary),
  "structural_uniformity": 0-100 (higher = more uniform structure),
  "explanation": "one or two sentences"
}`, channel.ChannelAgeDays, channel.SubscriberCount, channel.HistoricalAIProbability,
		truncateText(text, 6000))

	var result models.AIDetectionResult
	if err := s.llm.CreateStructuredCompletion(ctx, prompt, analystSystemPrompt, &result, stageParseOptions); err != nil {
		return nil, err
	}

	scores := NormalizeScores([]float64{
		float64(result.Probability), float64(result.Confidence),
		float64(result.Perplexity), float64(result.Burstiness),
		float64(result.VocabularyDiversity), float64(result.StructuralUniformity),
	})
	result.Probability = scores[0]
	result.Confidence = scores[1]
	result.Perplexity = scores[2]
	result.Burstiness = scores[3]
	result.VocabularyDiversity = scores[4]
	result.StructuralUniformity = scores[5]
	if result.Patterns == nil {
		result.Patterns = []string{}
	}

	return &result, nil
}

// isEnglishText 粗粒度语言检测：ASCII字母占比超过一半视为英文
func isEnglishText(text string) bool {
	if text == "" {
		return false
	}

	var letters, ascii int
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			continue
		}
		letters++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			ascii++
		}
	}

	return letters > 0 && float64(ascii)/float64(letters) > 0.5
}

// countWords 统计词数，分类阶段的content_length在本地计算而不信任模型
func countWords(text string) int {
	return len(strings.Fields(text))
}

// truncateText 按字符截断提示词内容，避免超长输入撑爆上下文窗口
func truncateText(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "\n[content truncated]"
}
