// internal/models/policy.go
package models

// 固定的19个策略类别键。policy_categories 在结果返回前必须恰好覆盖这组键。
const (
	CategoryHateSpeech          = "hate_speech"
	CategoryGraphicViolence     = "graphic_violence"
	CategoryHarmfulDangerous    = "harmful_dangerous_acts"
	CategoryChildSafety         = "child_safety"
	CategoryTerrorismExtremism  = "terrorism_extremism"
	CategoryHarassmentBullying  = "harassment_bullying"
	CategorySexuallySuggestive  = "sexually_suggestive"
	CategoryMisinformation      = "misinformation"
	CategoryDrugsSubstances     = "drugs_substances"
	CategoryProfanity           = "profanity"
	CategoryShockingContent     = "shocking_content"
	CategoryTobaccoAlcohol      = "tobacco_alcohol"
	CategoryFirearmsWeapons     = "firearms_weapons"
	CategoryGambling            = "gambling"
	CategoryControversialIssues = "controversial_issues"
	CategorySensitiveEvents     = "sensitive_events"
	CategorySpamDeceptive       = "spam_deceptive_practices"
	CategoryCopyright           = "copyright_reuse"
	CategoryAdultThemes         = "adult_themes"
)

// PolicyCategoryKeys 按固定顺序排列的全部类别键
var PolicyCategoryKeys = []string{
	CategoryHateSpeech,
	CategoryGraphicViolence,
	CategoryHarmfulDangerous,
	CategoryChildSafety,
	CategoryTerrorismExtremism,
	CategoryHarassmentBullying,
	CategorySexuallySuggestive,
	CategoryMisinformation,
	CategoryDrugsSubstances,
	CategoryProfanity,
	CategoryShockingContent,
	CategoryTobaccoAlcohol,
	CategoryFirearmsWeapons,
	CategoryGambling,
	CategoryControversialIssues,
	CategorySensitiveEvents,
	CategorySpamDeceptive,
	CategoryCopyright,
	CategoryAdultThemes,
}

// CategoryWeights 按类别身份确定的聚合权重：
// 五个高优先类别2.0，四个中优先类别1.5，其余1.0，未知类别按1.0处理。
var CategoryWeights = map[string]float64{
	CategoryHateSpeech:         2.0,
	CategoryGraphicViolence:    2.0,
	CategoryHarmfulDangerous:   2.0,
	CategoryChildSafety:        2.0,
	CategoryTerrorismExtremism: 2.0,

	CategoryHarassmentBullying: 1.5,
	CategorySexuallySuggestive: 1.5,
	CategoryMisinformation:     1.5,
	CategoryDrugsSubstances:    1.5,
}

// WeightForCategory 返回类别权重，未知类别默认1.0
func WeightForCategory(key string) float64 {
	if w, ok := CategoryWeights[key]; ok {
		return w
	}
	return 1.0
}

// 两套阈值刻度并存：类别级用 34/69/70，总分级用 25/65。
// 这是两条代码路径之间的历史漂移，按产品要求原样保留，不做统一。
const (
	CategoryLowMax    = 34 // 类别分 ≤34 → LOW
	CategoryMediumMax = 69 // 类别分 ≤69 → MEDIUM，≥70 → HIGH

	OverallLowMax    = 25 // 总分 ≤25 → LOW
	OverallMediumMax = 65 // 总分 ≤65 → MEDIUM，>65 → HIGH
)

// CategorySeverity 按类别级刻度给出风险等级
func CategorySeverity(score int) string {
	switch {
	case score <= CategoryLowMax:
		return SeverityLow
	case score <= CategoryMediumMax:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// OverallRiskLevel 按总分级刻度给出风险等级
func OverallRiskLevel(score int) string {
	switch {
	case score <= OverallLowMax:
		return SeverityLow
	case score <= OverallMediumMax:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// ContentTypeVocabulary 上下文分类阶段的固定词汇表
var ContentTypeVocabulary = []string{
	"gaming",
	"education",
	"entertainment",
	"news_commentary",
	"vlog",
	"tutorial",
	"music",
	"comedy",
	"review",
	"documentary",
	"other",
}

// NormalizeContentType 把模型返回的内容类型收敛到固定词汇表
func NormalizeContentType(value string) string {
	for _, v := range ContentTypeVocabulary {
		if v == value {
			return value
		}
	}
	return "other"
}

// DefaultPolicyCategoryAnalysis 模型遗漏某个类别键时使用的"无问题"记录
func DefaultPolicyCategoryAnalysis() PolicyCategoryAnalysis {
	return PolicyCategoryAnalysis{
		RiskScore:   0,
		Confidence:  0,
		Violations:  []string{},
		Severity:    SeverityLow,
		Explanation: "No issues detected",
	}
}

// PolicyLexicon 策略词表：类别键 → 术语列表。
// 仅用于类别枚举和前端高亮，不参与打分逻辑。
type PolicyLexicon struct {
	Categories  map[string][]string `json:"categories"`
	BenignTerms []string            `json:"benign_terms"`
}

// DefaultBenignTerms 误报过滤的内置白名单：
// 代词、家庭称谓、设备词、体育术语和泛用形容词等常见良性词。
var DefaultBenignTerms = []string{
	"he", "she", "they", "them", "you", "we",
	"mother", "father", "brother", "sister", "family", "kids",
	"phone", "camera", "laptop", "computer", "console", "controller",
	"shoot", "shot", "kill it", "beat", "fight for", "attack the ball",
	"team", "match", "game", "score", "win", "race",
	"awesome", "amazing", "crazy", "insane", "epic", "great",
	"love", "like", "good", "nice", "cool",
}
