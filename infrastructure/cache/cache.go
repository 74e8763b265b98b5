// Package cache provides the one generic, versioned TTL map shared across
// XyPriss's components that need an in-memory expiring store: the XEMS
// single-worker session backend (internal/security/xems) and the plugin
// engine's cacheable-result cache (internal/plugin). The connection pool
// (internal/pipeline/connection) keeps its own map of the same shape.
package cache

import (
	"sync"
	"time"
)

type CacheEntry struct {
	Value      interface{}
	Expiration time.Time
	Version    int64
}

type CacheConfig struct {
	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

func DefaultConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL:      5 * time.Minute,
		MaxSize:         1000,
		CleanupInterval: 10 * time.Minute,
	}
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	config  CacheConfig
	version int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewCache(cfg CacheConfig) *Cache {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 1000
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	c := &Cache{
		entries: make(map[string]*CacheEntry),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}

	go c.startCleanup()
	return c
}

// Stop halts the background cleanup goroutine. Safe to call more than once
// and safe to omit for a Cache whose owner lives for the process lifetime,
// but any Cache owned by a component with its own Close/Shutdown (the
// plugin engine, XEMS's memory store) should call it there so repeated
// construction in tests or a hot-reloaded plugin set doesn't leak tickers.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Cache) startCleanup() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0
	size := len(c.entries)

	for key, entry := range c.entries {
		if now.After(entry.Expiration) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 || size > c.config.MaxSize {
		size = len(c.entries)
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.Expiration) {
		return nil, false
	}

	return entry.Value, true
}

func (c *Cache) GetVersion(key string) (interface{}, int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}

	if time.Now().After(entry.Expiration) {
		return nil, 0, false
	}

	return entry.Value, entry.Version, true
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &CacheEntry{
		Value:      value,
		Expiration: time.Now().Add(ttl),
		Version:    c.version,
	}
}

func (c *Cache) SetVersioned(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &CacheEntry{
		Value:      value,
		Expiration: time.Now().Add(ttl),
		Version:    c.version,
	}
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

func (c *Cache) InvalidatePattern(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if len(key) >= len(pattern) && key[:len(pattern)] == pattern {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
}

func (c *Cache) InvalidateVersion() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	c.entries = make(map[string]*CacheEntry)
}

func (c *Cache) InvalidateByVersion(targetVersion int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if targetVersion >= c.version {
		return
	}

	c.version = targetVersion
	c.entries = make(map[string]*CacheEntry)
}

func (c *Cache) GetCurrentVersion() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.version
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Namespace wraps a Cache with a fixed key prefix so unrelated callers
// sharing one Cache instance can't collide on keys or InvalidatePattern
// each other's entries. The plugin engine and connection pool each use
// their own *Cache rather than a shared Namespace, since neither needs to
// coexist with another keyspace in the same map; Namespace exists for the
// case where two concerns reasonably do (e.g. XEMS keying both session
// tokens and short-lived rotation locks off the same store).
type Namespace struct {
	cache  *Cache
	prefix string
}

// NewNamespace scopes prefix onto cache. cache is shared, not owned: the
// caller is responsible for its lifetime (including stopping its cleanup
// goroutine, which currently runs for the process lifetime of the Cache).
func NewNamespace(cache *Cache, prefix string) *Namespace {
	return &Namespace{cache: cache, prefix: prefix}
}

func (n *Namespace) Get(key string) (interface{}, bool) {
	return n.cache.Get(n.prefix + key)
}

func (n *Namespace) Set(key string, value interface{}, ttl time.Duration) {
	n.cache.Set(n.prefix+key, value, ttl)
}

func (n *Namespace) Invalidate(key string) {
	n.cache.Invalidate(n.prefix + key)
}

func (n *Namespace) InvalidateAll() {
	n.cache.InvalidatePattern(n.prefix)
}
