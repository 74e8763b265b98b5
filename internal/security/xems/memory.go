package xems

import (
	"context"
	"time"

	"github.com/xypriss/xypriss/infrastructure/cache"
)

// MemoryStore is the single-worker Store backend, a thin wrapper over
// infrastructure/cache.Cache's TTL map and background cleanup ticker.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore builds a MemoryStore with the given default TTL and
// cleanup interval.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.NewCache(cache.CacheConfig{
			DefaultTTL:      defaultTTL,
			CleanupInterval: cleanupInterval,
		}),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Invalidate(key)
	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close stops the backing cache's cleanup goroutine.
func (m *MemoryStore) Close() {
	m.cache.Stop()
}
