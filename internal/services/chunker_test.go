// internal/services/chunker_test.go
package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/ContentGuardMCP/internal/models"
)

func TestSplitIntoChunks_ShortTextSingleChunk(t *testing.T) {
	chunks := SplitIntoChunks("short text")

	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Zero(t, chunks[0].Offset)
}

func TestSplitIntoChunks_ThresholdBoundary(t *testing.T) {
	text := strings.Repeat("a", ChunkThreshold)
	assert.Len(t, SplitIntoChunks(text), 1)

	text = strings.Repeat("a", ChunkThreshold+1)
	assert.Greater(t, len(SplitIntoChunks(text)), 1)
}

func TestSplitIntoChunks_CoversFullTextWithOverlap(t *testing.T) {
	text := strings.Repeat("0123456789", 1000) // 10000 chars
	chunks := SplitIntoChunks(text)

	require.Greater(t, len(chunks), 1)

	// 每个窗口都是原文在其偏移处的切片
	for _, chunk := range chunks {
		assert.Equal(t, text[chunk.Offset:chunk.Offset+len(chunk.Text)], chunk.Text)
		assert.LessOrEqual(t, len(chunk.Text), ChunkThreshold)
	}

	// 相邻窗口重叠，无缝覆盖全文
	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].Offset + len(chunks[i-1].Text)
		assert.Equal(t, ChunkOverlap, prevEnd-chunks[i].Offset)
	}
	last := chunks[len(chunks)-1]
	assert.Equal(t, len(text), last.Offset+len(last.Text))
	assert.Zero(t, chunks[0].Offset)
}

func TestMergeRiskSpans_AdjacentSameCategoryAndLevel(t *testing.T) {
	document := "abcdefghijklmnopqrstuvwxyz"

	spans := []models.RiskSpan{
		{Text: document[0:10], StartOffset: 0, EndOffset: 10, RiskLevel: "HIGH", PolicyCategory: "profanity"},
		{Text: document[11:20], StartOffset: 11, EndOffset: 20, RiskLevel: "HIGH", PolicyCategory: "profanity"},
	}

	merged := MergeRiskSpans(document, spans)

	require.Len(t, merged, 1)
	assert.Equal(t, 0, merged[0].StartOffset)
	assert.Equal(t, 20, merged[0].EndOffset)
	// 合并文本取原文切片，不是两段拼接
	assert.Equal(t, document[0:20], merged[0].Text)
}

func TestMergeRiskSpans_DifferentLevelNotMerged(t *testing.T) {
	document := strings.Repeat("x", 30)

	spans := []models.RiskSpan{
		{StartOffset: 0, EndOffset: 10, RiskLevel: "HIGH", PolicyCategory: "profanity"},
		{StartOffset: 5, EndOffset: 20, RiskLevel: "LOW", PolicyCategory: "profanity"},
	}

	assert.Len(t, MergeRiskSpans(document, spans), 2)
}

func TestMergeRiskSpans_DifferentCategoryNotMerged(t *testing.T) {
	document := strings.Repeat("x", 30)

	spans := []models.RiskSpan{
		{StartOffset: 0, EndOffset: 10, RiskLevel: "HIGH", PolicyCategory: "profanity"},
		{StartOffset: 8, EndOffset: 20, RiskLevel: "HIGH", PolicyCategory: "gambling"},
	}

	assert.Len(t, MergeRiskSpans(document, spans), 2)
}

func TestMergeRiskSpans_GapNotMerged(t *testing.T) {
	document := strings.Repeat("x", 40)

	spans := []models.RiskSpan{
		{StartOffset: 0, EndOffset: 10, RiskLevel: "HIGH", PolicyCategory: "profanity"},
		{StartOffset: 12, EndOffset: 20, RiskLevel: "HIGH", PolicyCategory: "profanity"},
	}

	// start > prev.end+1 存在间隙，不合并
	assert.Len(t, MergeRiskSpans(document, spans), 2)
}

func TestMergeRiskSpans_UnsortedInput(t *testing.T) {
	document := strings.Repeat("y", 30)

	spans := []models.RiskSpan{
		{StartOffset: 11, EndOffset: 20, RiskLevel: "MEDIUM", PolicyCategory: "gambling"},
		{StartOffset: 0, EndOffset: 10, RiskLevel: "MEDIUM", PolicyCategory: "gambling"},
	}

	merged := MergeRiskSpans(document, spans)

	require.Len(t, merged, 1)
	assert.Equal(t, 0, merged[0].StartOffset)
	assert.Equal(t, 20, merged[0].EndOffset)
}

func TestUnionPhrases_DedupAndNormalize(t *testing.T) {
	result := UnionPhrases(
		[]string{"Bad Word", "violence"},
		[]string{"bad word", " VIOLENCE ", "gambling"},
	)

	assert.Equal(t, []string{"bad word", "violence", "gambling"}, result)
}

func TestUnionPhrasesByCategory(t *testing.T) {
	result := UnionPhrasesByCategory(
		map[string][]string{"profanity": {"damn"}},
		map[string][]string{"profanity": {"Damn", "hell"}, "gambling": {"bet"}},
	)

	assert.Equal(t, []string{"damn", "hell"}, result["profanity"])
	assert.Equal(t, []string{"bet"}, result["gambling"])
}
