// Package redis 提供 Redis 键值存储实现
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"svtr-chat-api/internal/domain/repository"
)

var kvTracer = tracer

// KVStore 基于 Redis 的带 TTL 键值存储
type KVStore struct {
	client *Client
}

// NewKVStore 创建键值存储
func NewKVStore(client *Client) *KVStore {
	return &KVStore{client: client}
}

// Get 获取键值，未命中返回 repository.ErrKeyNotFound
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := kvTracer.Start(ctx, "kv.Get",
		trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	val, err := s.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			span.SetAttributes(attribute.Bool("kv.hit", false))
			return nil, repository.ErrKeyNotFound
		}
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("kv.hit", true))
	return val, nil
}

// Put 写入键值并设置过期时间
func (s *KVStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := kvTracer.Start(ctx, "kv.Put",
		trace.WithAttributes(
			attribute.String("kv.key", key),
			attribute.Int64("kv.ttl_ms", ttl.Milliseconds()),
		))
	defer span.End()

	err := s.client.rdb.Set(ctx, key, value, ttl).Err()
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Delete 删除键
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	ctx, span := kvTracer.Start(ctx, "kv.Delete",
		trace.WithAttributes(attribute.Int("kv.key_count", len(keys))))
	defer span.End()

	err := s.client.rdb.Del(ctx, keys...).Err()
	if err != nil {
		span.RecordError(err)
	}
	return err
}
