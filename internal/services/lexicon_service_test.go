// internal/services/lexicon_service_test.go
package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/ContentGuardMCP/internal/models"
)

func TestLexicon_DefaultsWhenFileMissing(t *testing.T) {
	service := NewLexiconService(t.TempDir(), nil)

	lexicon := service.GetLexicon()

	require.Len(t, lexicon.Categories, len(models.PolicyCategoryKeys))
	assert.Equal(t, models.DefaultBenignTerms, lexicon.BenignTerms)
}

func TestLexicon_OverrideFileMerged(t *testing.T) {
	dir := t.TempDir()
	content := `{
		"categories": {"profanity": ["damn", "hell"]},
		"benign_terms": ["only", "these"]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, LexiconFileName), []byte(content), 0644))

	service := NewLexiconService(dir, nil)
	lexicon := service.GetLexicon()

	assert.Equal(t, []string{"damn", "hell"}, lexicon.Categories["profanity"])
	// 未覆盖的类别保留默认空表
	assert.Empty(t, lexicon.Categories[models.CategoryGambling])
	assert.Equal(t, []string{"only", "these"}, lexicon.BenignTerms)
}

func TestLexicon_CorruptOverrideFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LexiconFileName), []byte("{broken"), 0644))

	service := NewLexiconService(dir, nil)
	lexicon := service.GetLexicon()

	assert.Equal(t, models.DefaultBenignTerms, lexicon.BenignTerms)
}

func TestLexicon_CategoryKeysFixed(t *testing.T) {
	service := NewLexiconService(t.TempDir(), nil)
	assert.Equal(t, models.PolicyCategoryKeys, service.CategoryKeys())
}
