// Package memory 提供进程内键值存储实现
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"svtr-chat-api/internal/domain/repository"
)

// KVStore 基于 go-cache 的进程内带 TTL 键值存储。
// 用于单机部署与测试；过期清理由 go-cache 的后台 janitor 负责。
type KVStore struct {
	cache *gocache.Cache
}

// NewKVStore 创建进程内键值存储
func NewKVStore(defaultTTL, cleanupInterval time.Duration) *KVStore {
	return &KVStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get 获取键值，未命中返回 repository.ErrKeyNotFound
func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.cache.Get(key)
	if !ok {
		return nil, repository.ErrKeyNotFound
	}
	bytes, ok := val.([]byte)
	if !ok {
		return nil, repository.ErrKeyNotFound
	}
	return bytes, nil
}

// Put 写入键值并设置过期时间
func (s *KVStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.Set(key, value, ttl)
	return nil
}

// Delete 删除键
func (s *KVStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

// ItemCount 当前存储的键数量
func (s *KVStore) ItemCount() int {
	return s.cache.ItemCount()
}
