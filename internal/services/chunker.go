// internal/services/chunker.go
package services

import (
	"sort"
	"strings"

	"github.com/Corphon/ContentGuardMCP/internal/models"
)

const (
	// 超过这个长度的文本走分块路径
	ChunkThreshold = 3500
	// 相邻窗口的重叠长度，保证跨边界的片段不会被切断
	ChunkOverlap = 250
)

// TextChunk 一个带全文偏移的窗口
type TextChunk struct {
	Text   string
	Offset int // 窗口起点在原文中的字节偏移
}

// SplitIntoChunks 把长文本切成重叠窗口，无缝覆盖全文。
// 不超过阈值的文本返回单个窗口。
func SplitIntoChunks(text string) []TextChunk {
	if len(text) <= ChunkThreshold {
		return []TextChunk{{Text: text, Offset: 0}}
	}

	var chunks []TextChunk
	step := ChunkThreshold - ChunkOverlap

	for start := 0; start < len(text); start += step {
		end := start + ChunkThreshold
		if end >= len(text) {
			chunks = append(chunks, TextChunk{Text: text[start:], Offset: start})
			break
		}
		chunks = append(chunks, TextChunk{Text: text[start:end], Offset: start})
	}

	return chunks
}

// MergeRiskSpans 合并跨块边界的标记片段。
// 先按起点排序；两个片段在重叠或相邻（start ≤ prev.end+1）且
// 风险等级与策略类别都相同时合并为一个。
// 合并后的文本取原文在合并边界上的切片，而不是两段文本拼接，
// 避免窗口重叠部分的文字出现两次。
func MergeRiskSpans(document string, spans []models.RiskSpan) []models.RiskSpan {
	if len(spans) <= 1 {
		return spans
	}

	sorted := make([]models.RiskSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartOffset < sorted[j].StartOffset
	})

	merged := []models.RiskSpan{sorted[0]}

	for _, span := range sorted[1:] {
		last := &merged[len(merged)-1]

		canMerge := span.StartOffset <= last.EndOffset+1 &&
			span.RiskLevel == last.RiskLevel &&
			span.PolicyCategory == last.PolicyCategory

		if !canMerge {
			merged = append(merged, span)
			continue
		}

		if span.EndOffset > last.EndOffset {
			last.EndOffset = span.EndOffset
		}
		last.Text = sliceDocument(document, last.StartOffset, last.EndOffset)
		if last.Explanation == "" {
			last.Explanation = span.Explanation
		}
	}

	return merged
}

func sliceDocument(document string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(document) {
		end = len(document)
	}
	if start >= end {
		return ""
	}
	return document[start:end]
}

// UnionPhrases 合并各块的敏感短语表：小写归一、去重。
// 块内短语抽取不带位置信息，所以这里做并集而不是偏移合并。
func UnionPhrases(phraseLists ...[]string) []string {
	seen := make(map[string]bool)
	var union []string

	for _, list := range phraseLists {
		for _, phrase := range list {
			normalized := strings.ToLower(strings.TrimSpace(phrase))
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			union = append(union, normalized)
		}
	}

	return union
}

// UnionPhrasesByCategory 对每个类别的短语表独立做并集
func UnionPhrasesByCategory(maps ...map[string][]string) map[string][]string {
	union := make(map[string][]string)

	for _, m := range maps {
		for category, phrases := range m {
			union[category] = UnionPhrases(union[category], phrases)
		}
	}

	return union
}
