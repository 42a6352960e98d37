// Package cache provides the byte-level cache used to keep hot catalog
// lookups off the database, with in-memory and Redis backends.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys. A zero ttl means the
// entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
