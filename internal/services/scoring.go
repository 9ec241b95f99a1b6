// internal/services/scoring.go
package services

import (
	"math"

	"github.com/Corphon/ContentGuardMCP/internal/models"
)

// NormalizeScores 把一批原始分数统一到0-100刻度。
// 模型并不总是遵守提示词里要求的刻度，有时返回0-5或0-10，
// 下游的加权聚合依赖刻度一致，所以在这里检测并重缩放：
//   - max ≤ 5  → 全体 ×20
//   - max ≤ 10 → 全体 ×10
//   - max > 100 → 逐个钳制到100
//   - 其余原样通过
//
// 输出保持输入的相对顺序，全部为 [0,100] 内的整数。
func NormalizeScores(scores []float64) []int {
	if len(scores) == 0 {
		return []int{}
	}

	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	factor := 1.0
	switch {
	case maxScore <= 5:
		factor = 20
	case maxScore <= 10:
		factor = 10
	}

	normalized := make([]int, len(scores))
	for i, s := range scores {
		v := int(math.Round(s * factor))
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		normalized[i] = v
	}

	return normalized
}

// NormalizeScore 单值版本
func NormalizeScore(score float64) int {
	return NormalizeScores([]float64{score})[0]
}

// CalculateOverallRiskScore 风险打分引擎：按类别权重求加权均值，
// 再依次应用严重度分布加成和下限保护。
//
// 加成规则按顺序匹配，命中第一条即停，结果封顶100：
//   - 任一类别 ≥80           → +20
//   - ≥3个类别落在 [40,80)    → +15
//   - ≥2个类别落在 [40,80)    → +10
//   - ≥3个类别落在 [20,40) 或 ≥1个落在 [40,80) → +5
//
// 下限（取分数与下限中的较大者，不是相加）：
//   - ≥4个类别 ≥30 → 最终分 ≥35
//   - ≥2个类别 ≥30 → 最终分 ≥25
func CalculateOverallRiskScore(categories map[string]models.PolicyCategoryAnalysis) int {
	if len(categories) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	var countHigh, countMid, countLowMid, countAbove30 int

	for key, analysis := range categories {
		weight := models.WeightForCategory(key)
		weightedSum += float64(analysis.RiskScore) * weight
		totalWeight += weight

		score := analysis.RiskScore
		if score >= 80 {
			countHigh++
		}
		if score >= 40 && score < 80 {
			countMid++
		}
		if score >= 20 && score < 40 {
			countLowMid++
		}
		if score >= 30 {
			countAbove30++
		}
	}

	score := weightedSum / totalWeight

	switch {
	case countHigh >= 1:
		score += 20
	case countMid >= 3:
		score += 15
	case countMid >= 2:
		score += 10
	case countLowMid >= 3 || countMid >= 1:
		score += 5
	}

	if score > 100 {
		score = 100
	}

	final := int(math.Round(score))

	// 下限保护：多个类别同时有中等信号时不允许总分被均值稀释
	if countAbove30 >= 4 && final < 35 {
		final = 35
	} else if countAbove30 >= 2 && final < 25 {
		final = 25
	}

	return final
}

// CompletePolicyCategories 保证结果恰好覆盖固定分类表：
// 缺失的键补"无问题"默认记录，多余的键丢弃，
// 每条记录的严重度按类别级刻度与分数对齐。
func CompletePolicyCategories(parsed map[string]models.PolicyCategoryAnalysis) map[string]models.PolicyCategoryAnalysis {
	complete := make(map[string]models.PolicyCategoryAnalysis, len(models.PolicyCategoryKeys))

	for _, key := range models.PolicyCategoryKeys {
		analysis, exists := parsed[key]
		if !exists {
			complete[key] = models.DefaultPolicyCategoryAnalysis()
			continue
		}

		if analysis.Violations == nil {
			analysis.Violations = []string{}
		}
		if analysis.Severity == "" {
			analysis.Severity = models.CategorySeverity(analysis.RiskScore)
		}
		complete[key] = analysis
	}

	return complete
}
