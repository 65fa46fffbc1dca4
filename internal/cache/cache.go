package cache

import (
	"context"
	"time"
)

// Cache is the JSON key/value store backing the feature cache. Feature
// extraction over long recordings is the expensive step, so cached entries
// carry full AudioFeatures payloads, not just signatures.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
