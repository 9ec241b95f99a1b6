// internal/services/lexicon_service.go
package services

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Corphon/ContentGuardMCP/internal/models"
	"github.com/Corphon/ContentGuardMCP/internal/storage"
	"github.com/Corphon/ContentGuardMCP/internal/utils"
)

// LexiconFileName 数据目录下的词表覆盖文件名
const LexiconFileName = "policy_lexicon.json"

// LexiconService 提供策略词表和误报白名单。
// 词表只用于类别枚举和高亮展示，不参与打分。
// 数据目录下存在覆盖文件时通过文件缓存热加载，否则用内置默认值。
type LexiconService struct {
	dataDir   string
	fileCache *storage.FileCacheService
	logger    *utils.Logger
}

// NewLexiconService 创建词表服务
func NewLexiconService(dataDir string, fileCache *storage.FileCacheService) *LexiconService {
	if fileCache == nil {
		fileCache = storage.NewFileCacheService(5 * time.Minute)
	}

	return &LexiconService{
		dataDir:   dataDir,
		fileCache: fileCache,
		logger:    utils.GetLogger(),
	}
}

// GetLexicon 返回当前词表。覆盖文件缺失或损坏时回退到内置默认值。
func (s *LexiconService) GetLexicon() *models.PolicyLexicon {
	lexicon := s.defaultLexicon()

	path := filepath.Join(s.dataDir, LexiconFileName)
	if _, err := os.Stat(path); err != nil {
		return lexicon
	}

	var override models.PolicyLexicon
	if err := s.fileCache.ReadFile(path, &override); err != nil {
		s.logger.Warn("failed to load lexicon override, using defaults", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return lexicon
	}

	// 覆盖文件按字段合并：缺失的字段保留内置默认
	if len(override.Categories) > 0 {
		for key, terms := range override.Categories {
			lexicon.Categories[key] = terms
		}
	}
	if len(override.BenignTerms) > 0 {
		lexicon.BenignTerms = override.BenignTerms
	}

	return lexicon
}

// BenignTerms 返回误报过滤使用的白名单
func (s *LexiconService) BenignTerms() []string {
	return s.GetLexicon().BenignTerms
}

// CategoryKeys 返回固定分类表的键（含覆盖文件新增的展示词条不改变键集合）
func (s *LexiconService) CategoryKeys() []string {
	return models.PolicyCategoryKeys
}

// defaultLexicon 内置默认词表：每个类别键一个空术语表加内置白名单
func (s *LexiconService) defaultLexicon() *models.PolicyLexicon {
	categories := make(map[string][]string, len(models.PolicyCategoryKeys))
	for _, key := range models.PolicyCategoryKeys {
		categories[key] = []string{}
	}

	return &models.PolicyLexicon{
		Categories:  categories,
		BenignTerms: models.DefaultBenignTerms,
	}
}
