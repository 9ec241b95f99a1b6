// internal/storage/file_cache.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileCacheService 提供带修改检测的JSON文件内存缓存。
// 词表服务用它加载策略词表和白名单覆盖文件：
// 文件没变且未过期时直接用缓存，变了自动重读。
type FileCacheService struct {
	cache      map[string]*FileCacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

// FileCacheEntry 缓存条目
type FileCacheEntry struct {
	Data      json.RawMessage
	CreatedAt time.Time
	FileInfo  os.FileInfo // 用于检测文件是否被修改
}

// NewFileCacheService 创建文件缓存服务
func NewFileCacheService(expiration time.Duration) *FileCacheService {
	if expiration <= 0 {
		expiration = 5 * time.Minute // 默认5分钟过期
	}

	return &FileCacheService{
		cache:      make(map[string]*FileCacheEntry),
		expiration: expiration,
	}
}

// ReadFile 读取JSON文件并反序列化到target，结果缓存
func (s *FileCacheService) ReadFile(path string, target interface{}) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("获取文件绝对路径失败: %w", err)
	}

	// 检查缓存
	s.mutex.RLock()
	entry, exists := s.cache[absPath]
	s.mutex.RUnlock()

	if exists {
		fileInfo, err := os.Stat(absPath)
		if err == nil {
			isModified := fileInfo.ModTime().After(entry.FileInfo.ModTime()) ||
				fileInfo.Size() != entry.FileInfo.Size()
			isExpired := time.Since(entry.CreatedAt) > s.expiration

			if !isModified && !isExpired {
				return json.Unmarshal(entry.Data, target)
			}
		}
	}

	// 缓存未命中或已失效，从磁盘读取
	data, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("解析JSON文件失败 %s: %w", path, err)
	}

	fileInfo, err := os.Stat(absPath)
	if err != nil {
		return nil // 读取已经成功，缓存失败不影响结果
	}

	s.mutex.Lock()
	s.cache[absPath] = &FileCacheEntry{
		Data:      json.RawMessage(data),
		CreatedAt: time.Now(),
		FileInfo:  fileInfo,
	}
	s.mutex.Unlock()

	return nil
}

// Invalidate 手动移除一个缓存条目
func (s *FileCacheService) Invalidate(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}

	s.mutex.Lock()
	delete(s.cache, absPath)
	s.mutex.Unlock()
}
