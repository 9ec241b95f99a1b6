// internal/storage/file_cache_test.go
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value string `json:"value"`
}

func TestFileCache_ReadAndCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"value": "first"}`), 0644))

	cache := NewFileCacheService(time.Minute)

	var out payload
	require.NoError(t, cache.ReadFile(path, &out))
	assert.Equal(t, "first", out.Value)
}

func TestFileCache_DetectsModification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"value": "first"}`), 0644))

	cache := NewFileCacheService(time.Minute)

	var out payload
	require.NoError(t, cache.ReadFile(path, &out))

	// 同一秒内的改写可能不更新修改时间，改变文件大小触发检测
	require.NoError(t, os.WriteFile(path, []byte(`{"value": "second, longer"}`), 0644))

	require.NoError(t, cache.ReadFile(path, &out))
	assert.Equal(t, "second, longer", out.Value)
}

func TestFileCache_MissingFile(t *testing.T) {
	cache := NewFileCacheService(time.Minute)

	var out payload
	err := cache.ReadFile(filepath.Join(t.TempDir(), "absent.json"), &out)
	assert.Error(t, err)
}

func TestFileCache_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	cache := NewFileCacheService(time.Minute)

	var out payload
	assert.Error(t, cache.ReadFile(path, &out))
}

func TestFileCache_Invalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"value": "v"}`), 0644))

	cache := NewFileCacheService(time.Minute)

	var out payload
	require.NoError(t, cache.ReadFile(path, &out))

	cache.Invalidate(path)

	// 失效后重新读取仍然成功
	require.NoError(t, cache.ReadFile(path, &out))
	assert.Equal(t, "v", out.Value)
}
