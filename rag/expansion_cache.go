package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ExpansionCache 查询扩展结果缓存。
// 同一问题在短时间内重复出现时复用已生成的变体，省去一次 LLM 往返。
type ExpansionCache interface {
	Get(ctx context.Context, query string) ([]string, bool)
	Set(ctx context.Context, query string, variants []string)
}

// ====== 进程内缓存 ======

type memoryCacheEntry struct {
	variants  []string
	expiresAt time.Time
}

// MemoryExpansionCache 进程内 TTL 缓存，适合单实例部署。
type MemoryExpansionCache struct {
	entries map[string]memoryCacheEntry
	mu      sync.RWMutex
	ttl     time.Duration
}

// NewMemoryExpansionCache 创建进程内扩展缓存。
func NewMemoryExpansionCache(ttl time.Duration) *MemoryExpansionCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryExpansionCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
	}
}

func (c *MemoryExpansionCache) Get(_ context.Context, query string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[query]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.variants, true
}

func (c *MemoryExpansionCache) Set(_ context.Context, query string, variants []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 顺带清理过期条目，避免长时间运行后缓存无限增长
	now := time.Now()
	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}

	c.entries[query] = memoryCacheEntry{
		variants:  variants,
		expiresAt: now.Add(c.ttl),
	}
}

// ====== Redis 缓存 ======

// RedisExpansionCache 基于 Redis 的共享扩展缓存，适合多实例部署。
// 缓存故障只记录日志并按未命中处理，不影响检索主路径。
type RedisExpansionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisExpansionCache 创建 Redis 扩展缓存。
func NewRedisExpansionCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisExpansionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisExpansionCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "expansion_cache")),
	}
}

// 查询原文可能任意长，键使用其 SHA-256 摘要。
func expansionKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "knowbase:expansion:" + hex.EncodeToString(sum[:])
}

func (c *RedisExpansionCache) Get(ctx context.Context, query string) ([]string, bool) {
	data, err := c.client.Get(ctx, expansionKey(query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("expansion cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var variants []string
	if err := json.Unmarshal(data, &variants); err != nil {
		c.logger.Warn("expansion cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return variants, true
}

func (c *RedisExpansionCache) Set(ctx context.Context, query string, variants []string) {
	data, err := json.Marshal(variants)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, expansionKey(query), data, c.ttl).Err(); err != nil {
		c.logger.Warn("expansion cache write failed", zap.Error(err))
	}
}
