// Package repository 定义领域仓储接口
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound 键不存在
var ErrKeyNotFound = errors.New("key not found")

// KVStore 带 TTL 的字符串键值存储。
// 结果缓存与会话持久化共用此契约；实现可以是 Redis 或进程内缓存。
// 存储不可用属于性能退化而非正确性问题，调用方在边界上自行降级。
type KVStore interface {
	// Get 返回键对应的原始字节；未命中返回 ErrKeyNotFound。
	Get(ctx context.Context, key string) ([]byte, error)

	// Put 写入键值并设置过期时间。
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除键，键不存在不报错。
	Delete(ctx context.Context, keys ...string) error
}
