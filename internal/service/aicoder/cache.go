package aicoder

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// RemovalCause 缓存移除原因
type RemovalCause string

const (
	CauseSize     RemovalCause = "size"
	CauseExpired  RemovalCause = "expired"
	CauseExplicit RemovalCause = "explicit"
)

// CacheConfig 缓存容量与过期策略
type CacheConfig struct {
	MaximumSize       int
	ExpireAfterWrite  time.Duration // 写入后过期，0 表示不限
	ExpireAfterAccess time.Duration // 最后访问后过期，0 表示不限
}

// DefaultCacheConfig 默认配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaximumSize:       10000,
		ExpireAfterWrite:  30 * time.Minute,
		ExpireAfterAccess: 10 * time.Minute,
	}
}

type cacheEntry[V any] struct {
	value      V
	writtenAt  time.Time
	accessedAt time.Time
}

type removal[K comparable, V any] struct {
	key   K
	value V
	cause RemovalCause
}

// Cache 容量受限、双 TTL 过期的缓存，同一 key 同时最多构造一次
// 过期在访问时惰性检查，CleanUp 主动清理
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	lru       *lru.Cache
	cfg       CacheConfig
	now       func() time.Time
	group     singleflight.Group
	onRemoval func(key K, value V, cause RemovalCause)

	// 在 mu 内收集，解锁后回调
	cause   RemovalCause
	pending []removal[K, V]

	// 正在构造的 key，构造期间被 Invalidate 时置为 true，结果不再写入
	loading map[K]bool
}

// NewCache 创建缓存，onRemoval 可为空
func NewCache[K comparable, V any](cfg CacheConfig, onRemoval func(key K, value V, cause RemovalCause)) (*Cache[K, V], error) {
	if cfg.MaximumSize <= 0 {
		cfg.MaximumSize = DefaultCacheConfig().MaximumSize
	}
	c := &Cache[K, V]{
		cfg:       cfg,
		now:       time.Now,
		onRemoval: onRemoval,
		cause:     CauseSize,
		loading:   make(map[K]bool),
	}
	l, err := lru.NewWithEvict(cfg.MaximumSize, c.evicted)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	c.lru = l
	return c, nil
}

// evicted lru 移除回调，调用时持有 mu
func (c *Cache[K, V]) evicted(key, value interface{}) {
	e := value.(*cacheEntry[V])
	c.pending = append(c.pending, removal[K, V]{key: key.(K), value: e.value, cause: c.cause})
}

// Get 返回已有实例，不存在或已过期时调用 load 构造
// 并发调用同一 key 只会执行一次 load，load 失败不缓存
// 构造期间 key 被 Invalidate 时，本次结果照常返回但不缓存
func (c *Cache[K, V]) Get(ctx context.Context, key K, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.GetIfPresent(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(fmt.Sprint(key), func() (interface{}, error) {
		if v, ok := c.GetIfPresent(key); ok {
			return v, nil
		}
		c.mu.Lock()
		c.loading[key] = false
		c.mu.Unlock()

		v, err := load(ctx)

		c.mu.Lock()
		stale := c.loading[key]
		delete(c.loading, key)
		c.mu.Unlock()

		if err != nil {
			return nil, err
		}
		if !stale {
			c.Put(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// GetIfPresent 只读取，不构造
func (c *Cache[K, V]) GetIfPresent(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	raw, ok := c.lru.Get(key)
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	e := raw.(*cacheEntry[V])
	now := c.now()
	if c.expired(e, now) {
		c.removeLocked(key, CauseExpired)
		pending := c.drainLocked()
		c.mu.Unlock()
		c.notify(pending)
		return zero, false
	}
	e.accessedAt = now
	c.mu.Unlock()
	return e.value, true
}

// Put 写入
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	now := c.now()
	c.cause = CauseSize
	c.lru.Add(key, &cacheEntry[V]{value: value, writtenAt: now, accessedAt: now})
	pending := c.drainLocked()
	c.mu.Unlock()
	c.notify(pending)
}

// Invalidate 主动移除，同时作废该 key 正在进行的构造
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	if _, ok := c.loading[key]; ok {
		c.loading[key] = true
	}
	c.removeLocked(key, CauseExplicit)
	pending := c.drainLocked()
	c.mu.Unlock()
	c.notify(pending)
}

// CleanUp 清理所有已过期条目
func (c *Cache[K, V]) CleanUp() {
	c.mu.Lock()
	now := c.now()
	for _, k := range c.lru.Keys() {
		raw, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		if c.expired(raw.(*cacheEntry[V]), now) {
			c.removeLocked(k.(K), CauseExpired)
		}
	}
	pending := c.drainLocked()
	c.mu.Unlock()
	c.notify(pending)
}

// Len 当前条目数（含未清理的过期条目）
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache[K, V]) expired(e *cacheEntry[V], now time.Time) bool {
	if c.cfg.ExpireAfterWrite > 0 && now.Sub(e.writtenAt) >= c.cfg.ExpireAfterWrite {
		return true
	}
	if c.cfg.ExpireAfterAccess > 0 && now.Sub(e.accessedAt) >= c.cfg.ExpireAfterAccess {
		return true
	}
	return false
}

func (c *Cache[K, V]) removeLocked(key K, cause RemovalCause) {
	c.cause = cause
	c.lru.Remove(key)
	c.cause = CauseSize
}

func (c *Cache[K, V]) drainLocked() []removal[K, V] {
	pending := c.pending
	c.pending = nil
	return pending
}

func (c *Cache[K, V]) notify(pending []removal[K, V]) {
	if c.onRemoval == nil {
		return
	}
	for _, r := range pending {
		c.onRemoval(r.key, r.value, r.cause)
	}
}
