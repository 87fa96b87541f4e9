package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

const (
	// Cached order-line details: detalles:{codigo} -> JSON array.
	keyLines = "detalles:%s"

	ttlLines = 10 * time.Minute
)

// Cache is a read-through cache for immutable order-line details.
// Every operation is best-effort; redis being down only costs the cache hit.
type Cache struct {
	R *redis.Client
}

func (c *Cache) GetLines(ctx context.Context, code string) ([]byte, bool) {
	b, err := c.R.Get(ctx, fmt.Sprintf(keyLines, code)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *Cache) SetLines(ctx context.Context, code string, body []byte) {
	_ = c.R.Set(ctx, fmt.Sprintf(keyLines, code), body, ttlLines).Err()
}
