package xems

import (
	"context"
	"time"
)

// Store is the key/value contract a Manager runs sessions over. Keys are
// tokens; values are the ciphertext produced by the session envelope. Two
// backends are provided: an in-process one for a single worker and a Redis
// one for sharing sessions across a cluster (spec.md §4.9, §3 "optional
// distributed session backend").
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
