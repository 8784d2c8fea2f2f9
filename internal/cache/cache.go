package cache

import (
	"context"
	"time"
)

// BytesCache is the read-through cache capability injected into services.
// Implementations are best-effort: a miss or an error must be survivable.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
