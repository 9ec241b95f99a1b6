// internal/services/false_positive.go
package services

import (
	"strings"
	"unicode"

	"github.com/Corphon/ContentGuardMCP/internal/models"
)

// FalsePositiveFilter 从"敏感短语"列表里清除已知良性词。
// 过滤器刻意保守：宁可删掉可疑的误报，也不给短语打置信度，
// 用召回换取高亮展示的精确度。
//
// 判定逻辑装在可替换的谓词里，之后可以换成更聪明的分类器
// 而不用动管道接线。
type FalsePositiveFilter struct {
	// IsBenign 返回true时短语被滤除
	IsBenign func(phrase string) bool
}

// NewFalsePositiveFilter 用内置白名单创建过滤器
func NewFalsePositiveFilter() *FalsePositiveFilter {
	return NewFalsePositiveFilterWithTerms(models.DefaultBenignTerms)
}

// NewFalsePositiveFilterWithTerms 用指定白名单创建过滤器。
// 判定规则：单词条目按整词匹配（"he"不能命中"the"），
// 多词条目按小写包含匹配。短语命中任一条目即视为良性。
func NewFalsePositiveFilterWithTerms(benignTerms []string) *FalsePositiveFilter {
	wordTerms := make(map[string]bool)
	var phraseTerms []string

	for _, t := range benignTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.ContainsRune(t, ' ') {
			phraseTerms = append(phraseTerms, t)
		} else {
			wordTerms[t] = true
		}
	}

	return &FalsePositiveFilter{
		IsBenign: func(phrase string) bool {
			lower := strings.ToLower(phrase)
			for _, term := range phraseTerms {
				if strings.Contains(lower, term) {
					return true
				}
			}
			for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsNumber(r)
			}) {
				if wordTerms[word] {
					return true
				}
			}
			return false
		},
	}
}

// Filter 返回滤除良性词后的短语表。幂等：过滤已过滤的列表结果不变。
func (f *FalsePositiveFilter) Filter(phrases []string) []string {
	if len(phrases) == 0 {
		return phrases
	}

	filtered := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		if f.IsBenign != nil && f.IsBenign(phrase) {
			continue
		}
		filtered = append(filtered, phrase)
	}

	return filtered
}

// FilterByCategory 对每个类别的短语表独立过滤
func (f *FalsePositiveFilter) FilterByCategory(byCategory map[string][]string) map[string][]string {
	if byCategory == nil {
		return nil
	}

	filtered := make(map[string][]string, len(byCategory))
	for category, phrases := range byCategory {
		filtered[category] = f.Filter(phrases)
	}

	return filtered
}
