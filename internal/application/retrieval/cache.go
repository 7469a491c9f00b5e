package retrieval

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"svtr-chat-api/internal/domain/entity"
	"svtr-chat-api/internal/domain/repository"
	"svtr-chat-api/pkg/logger"
)

const cacheKeyPrefix = "rag:"

// ResultCache 检索结果缓存，键由查询文本与检索选项共同派生。
// 缓存后端失败只降级为未命中，不影响检索主流程。
type ResultCache struct {
	store repository.KVStore
	ttl   time.Duration
}

// NewResultCache 创建结果缓存
func NewResultCache(store repository.KVStore, ttl time.Duration) *ResultCache {
	return &ResultCache{store: store, ttl: ttl}
}

// Key 根据查询与选项生成缓存键
func (c *ResultCache) Key(query string, opts Options) string {
	payload, _ := json.Marshal(struct {
		MaxResults          int     `json:"maxResults"`
		Threshold           float64 `json:"threshold"`
		IncludeHiddenSheets bool    `json:"includeHiddenSheets"`
	}{opts.MaxResults, opts.Threshold, opts.IncludeHiddenSheets})
	return cacheKeyPrefix + hashString(query+string(payload))
}

// Get 读取缓存结果，未命中或后端异常返回 nil
func (c *ResultCache) Get(ctx context.Context, key string) *entity.RetrievalResult {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if err != repository.ErrKeyNotFound {
			logger.Warn(ctx, "读取检索缓存失败", "key", key, "error", err)
		}
		return nil
	}

	var result entity.RetrievalResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warn(ctx, "检索缓存数据损坏，忽略", "key", key, "error", err)
		return nil
	}
	return &result
}

// Put 写入缓存。零命中的结果不缓存，避免固化临时性的空结果。
func (c *ResultCache) Put(ctx context.Context, key string, result *entity.RetrievalResult) {
	if result == nil || len(result.Matches) == 0 {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warn(ctx, "序列化检索结果失败", "key", key, "error", err)
		return
	}
	if err := c.store.Put(ctx, key, data, c.ttl); err != nil {
		logger.Warn(ctx, "写入检索缓存失败", "key", key, "error", err)
	}
}

// hashString 对输入做 31 进制滚动散列并编码为 36 进制字符串
func hashString(s string) string {
	var hash int32
	for _, r := range s {
		hash = hash*31 + r
	}
	return strconv.FormatUint(uint64(uint32(hash)), 36)
}
