// internal/services/scoring_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/ContentGuardMCP/internal/models"
)

func TestNormalizeScores_FivePointScale(t *testing.T) {
	result := NormalizeScores([]float64{1, 3, 5})
	assert.Equal(t, []int{20, 60, 100}, result)
}

func TestNormalizeScores_TenPointScale(t *testing.T) {
	result := NormalizeScores([]float64{6, 8, 10})
	assert.Equal(t, []int{60, 80, 100}, result)
}

func TestNormalizeScores_ClampOver100(t *testing.T) {
	result := NormalizeScores([]float64{250, 80})
	assert.Equal(t, []int{100, 80}, result)
}

func TestNormalizeScores_PassThrough(t *testing.T) {
	result := NormalizeScores([]float64{0, 34, 69, 100})
	assert.Equal(t, []int{0, 34, 69, 100}, result)
}

func TestNormalizeScores_PreservesOrderAndRange(t *testing.T) {
	input := []float64{2, 1, 4, 3}
	result := NormalizeScores(input)

	require.Len(t, result, len(input))
	for i := 1; i < len(input); i++ {
		// 相对顺序不变
		assert.Equal(t, input[i] > input[i-1], result[i] > result[i-1])
	}
	for _, v := range result {
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 100)
	}
}

func TestNormalizeScores_Empty(t *testing.T) {
	assert.Empty(t, NormalizeScores(nil))
}

// 一个高风险类别(权重2.0)加两个中风险类别：
// 加权均值 (85·2+50+50)/4 = 67.5，任一类别≥80触发+20 → 88 → HIGH
func TestCalculateOverallRiskScore_WeightedWithHighBoost(t *testing.T) {
	categories := map[string]models.PolicyCategoryAnalysis{
		models.CategoryHateSpeech: {RiskScore: 85},
		models.CategoryProfanity:  {RiskScore: 50},
		models.CategoryGambling:   {RiskScore: 50},
	}

	score := CalculateOverallRiskScore(categories)

	assert.Equal(t, 88, score)
	assert.Equal(t, models.SeverityHigh, models.OverallRiskLevel(score))
}

func TestCalculateOverallRiskScore_MidRangeBoosts(t *testing.T) {
	// 3个类别落在[40,80) → +15
	categories := map[string]models.PolicyCategoryAnalysis{
		models.CategoryProfanity:       {RiskScore: 50},
		models.CategoryGambling:        {RiskScore: 45},
		models.CategoryTobaccoAlcohol:  {RiskScore: 60},
		models.CategoryFirearmsWeapons: {RiskScore: 0},
	}

	// 加权均值 155/4 = 38.75，+15 = 53.75 → 54
	assert.Equal(t, 54, CalculateOverallRiskScore(categories))
}

func TestCalculateOverallRiskScore_SingleMidBoost(t *testing.T) {
	// 1个类别落在[40,80) → +5
	categories := map[string]models.PolicyCategoryAnalysis{
		models.CategoryProfanity: {RiskScore: 40},
		models.CategoryGambling:  {RiskScore: 0},
	}

	// 均值 20，+5 = 25
	assert.Equal(t, 25, CalculateOverallRiskScore(categories))
}

func TestCalculateOverallRiskScore_FloorTwoCategories(t *testing.T) {
	// 2个类别≥30但均值很低：下限保护托底到25
	categories := map[string]models.PolicyCategoryAnalysis{
		models.CategoryProfanity:       {RiskScore: 30},
		models.CategoryGambling:        {RiskScore: 30},
		models.CategoryTobaccoAlcohol:  {RiskScore: 0},
		models.CategoryFirearmsWeapons: {RiskScore: 0},
		models.CategoryShockingContent: {RiskScore: 0},
		models.CategorySensitiveEvents: {RiskScore: 0},
		models.CategoryCopyright:       {RiskScore: 0},
		models.CategoryAdultThemes:     {RiskScore: 0},
	}

	// 均值 60/8 = 7.5，无加成，下限25生效
	assert.Equal(t, 25, CalculateOverallRiskScore(categories))
}

func TestCalculateOverallRiskScore_FloorFourCategories(t *testing.T) {
	categories := map[string]models.PolicyCategoryAnalysis{
		models.CategoryProfanity:       {RiskScore: 30},
		models.CategoryGambling:        {RiskScore: 30},
		models.CategoryTobaccoAlcohol:  {RiskScore: 30},
		models.CategoryFirearmsWeapons: {RiskScore: 30},
		models.CategoryShockingContent: {RiskScore: 0},
		models.CategorySensitiveEvents: {RiskScore: 0},
		models.CategoryCopyright:       {RiskScore: 0},
		models.CategoryAdultThemes:     {RiskScore: 0},
		models.CategoryMisinformation:  {RiskScore: 0},
		models.CategoryChildSafety:     {RiskScore: 0},
	}

	// 均值 120/11.5 ≈ 10.4，4个类别落在[20,40) → +5 → 15.4，下限35生效
	assert.Equal(t, 35, CalculateOverallRiskScore(categories))
}

func TestCalculateOverallRiskScore_Empty(t *testing.T) {
	assert.Zero(t, CalculateOverallRiskScore(nil))
}

func TestCalculateOverallRiskScore_CapAt100(t *testing.T) {
	categories := map[string]models.PolicyCategoryAnalysis{
		models.CategoryHateSpeech:  {RiskScore: 100},
		models.CategoryChildSafety: {RiskScore: 95},
	}

	score := CalculateOverallRiskScore(categories)
	assert.Equal(t, 100, score)
}

func TestCompletePolicyCategories_FillsMissingKeys(t *testing.T) {
	parsed := map[string]models.PolicyCategoryAnalysis{
		models.CategoryHateSpeech: {RiskScore: 80, Confidence: 70, Severity: models.SeverityHigh},
	}

	complete := CompletePolicyCategories(parsed)

	require.Len(t, complete, len(models.PolicyCategoryKeys))
	for _, key := range models.PolicyCategoryKeys {
		require.Contains(t, complete, key)
	}

	assert.Equal(t, 80, complete[models.CategoryHateSpeech].RiskScore)

	missing := complete[models.CategoryGambling]
	assert.Zero(t, missing.RiskScore)
	assert.Zero(t, missing.Confidence)
	assert.Equal(t, models.SeverityLow, missing.Severity)
	assert.Equal(t, "No issues detected", missing.Explanation)
}

func TestCompletePolicyCategories_DropsUnknownKeys(t *testing.T) {
	parsed := map[string]models.PolicyCategoryAnalysis{
		"made_up_category":        {RiskScore: 99},
		models.CategoryHateSpeech: {RiskScore: 10},
	}

	complete := CompletePolicyCategories(parsed)

	assert.NotContains(t, complete, "made_up_category")
	assert.Len(t, complete, len(models.PolicyCategoryKeys))
}

func TestCompletePolicyCategories_BackfillsSeverity(t *testing.T) {
	parsed := map[string]models.PolicyCategoryAnalysis{
		models.CategoryProfanity: {RiskScore: 50},
		models.CategoryGambling:  {RiskScore: 75},
	}

	complete := CompletePolicyCategories(parsed)

	// 类别级刻度：≤34 LOW, ≤69 MEDIUM, ≥70 HIGH
	assert.Equal(t, models.SeverityMedium, complete[models.CategoryProfanity].Severity)
	assert.Equal(t, models.SeverityHigh, complete[models.CategoryGambling].Severity)
}
