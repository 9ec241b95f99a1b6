// internal/parser/parser_test.go
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/ContentGuardMCP/internal/errors"
)

type scoreResult struct {
	RiskScore   int    `json:"risk_score" validate:"min=0,max=100"`
	Explanation string `json:"explanation"`
}

func TestParse_Direct(t *testing.T) {
	var out scoreResult
	err := Parse(`{"risk_score": 42, "explanation": "mild profanity"}`, &out, Options{})

	require.NoError(t, err)
	assert.Equal(t, 42, out.RiskScore)
	assert.Equal(t, "mild profanity", out.Explanation)
}

func TestParse_MarkdownFences(t *testing.T) {
	raw := "```json\n{\"risk_score\": 10, \"explanation\": \"ok\"}\n```"

	var out scoreResult
	err := Parse(raw, &out, Options{})

	require.NoError(t, err)
	assert.Equal(t, 10, out.RiskScore)
}

func TestParse_TrailingComma(t *testing.T) {
	raw := `{"risk_score": 30, "explanation": "x",}`

	var out scoreResult
	err := Parse(raw, &out, Options{})

	require.NoError(t, err)
	assert.Equal(t, 30, out.RiskScore)
}

func TestParse_InvalidEscape(t *testing.T) {
	raw := `{"risk_score": 5, "explanation": "50\% of the time"}`

	var out scoreResult
	err := Parse(raw, &out, Options{})

	require.NoError(t, err)
	assert.Equal(t, "50% of the time", out.Explanation)
}

// 模型把未转义的引号直接塞进字符串值是最常见的破损形态
func TestParse_QuoteRepairKnownField(t *testing.T) {
	raw := `{"risk_score": 10, "explanation": "He said "hi""}`

	var out scoreResult
	err := Parse(raw, &out, Options{QuoteRepairFields: []string{"explanation"}})

	require.NoError(t, err)
	assert.Equal(t, 10, out.RiskScore)
	assert.Equal(t, `He said "hi"`, out.Explanation)
}

func TestParse_QuoteRepairGeneric(t *testing.T) {
	// 不提供已知字段列表，策略4应该自己从文本里找出字符串字段
	raw := `{"risk_score": 10, "explanation": "He said "hi""}`

	var out scoreResult
	err := Parse(raw, &out, Options{})

	require.NoError(t, err)
	assert.Equal(t, `He said "hi"`, out.Explanation)
}

func TestParse_BalancedBlockInProse(t *testing.T) {
	raw := `Sure! Here is the analysis you asked for:

{"risk_score": 65, "explanation": "contains violence"}

Let me know if you need anything else.`

	var out scoreResult
	err := Parse(raw, &out, Options{})

	require.NoError(t, err)
	assert.Equal(t, 65, out.RiskScore)
}

func TestParse_CategoryFieldsFallback(t *testing.T) {
	// 整体结构已经烂到无法修复，只能逐类别抽字段
	raw := `analysis results!!
  "hate_speech": {"risk_score": 80, "confidence": 70, "severity": "HIGH", "explanation": "slurs present"
  "profanity" -> {"risk_score": 20, "confidence": 50, "severity": "LOW", "explanation": "mild"`

	type category struct {
		RiskScore  int    `json:"risk_score" validate:"min=0,max=100"`
		Confidence int    `json:"confidence" validate:"min=0,max=100"`
		Severity   string `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	}

	out := make(map[string]category)
	err := Parse(raw, &out, Options{CategoryKeys: []string{"hate_speech", "profanity", "gambling"}})

	require.NoError(t, err)
	require.Contains(t, out, "hate_speech")
	assert.Equal(t, 80, out["hate_speech"].RiskScore)
	assert.Equal(t, "HIGH", out["hate_speech"].Severity)
	// 原文中找不到的类别被跳过，由调用方补默认
	assert.NotContains(t, out, "gambling")
}

func TestParse_ValidationFailureIsParseFailure(t *testing.T) {
	// 语法合法但超出范围的分数不允许进入结果
	var out scoreResult
	err := Parse(`{"risk_score": 150, "explanation": "x"}`, &out, Options{})

	require.Error(t, err)
	assert.True(t, apperrors.IsParseError(err))
	assert.Zero(t, out.RiskScore)
}

func TestParse_AllStrategiesFail(t *testing.T) {
	var out scoreResult
	err := Parse("the model refused to answer", &out, Options{})

	require.Error(t, err)
	assert.True(t, apperrors.IsParseError(err))
}

func TestParse_NoPartialWrites(t *testing.T) {
	out := scoreResult{RiskScore: 7, Explanation: "previous"}
	err := Parse("garbage", &out, Options{})

	require.Error(t, err)
	// 失败时原值保持不变，不留半填充结果
	assert.Equal(t, 7, out.RiskScore)
	assert.Equal(t, "previous", out.Explanation)
}
