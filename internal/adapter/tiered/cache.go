// Package tiered layers the in-process cache over the shared NATS KV cache.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/Boardroom/internal/port/cache"
)

// Cache reads through local to shared and writes to both. The shared tier
// is best effort for reads and writes: a NATS outage leaves every replica
// serving from its own memory. Deletes on the shared tier are strict, since
// a surviving shared entry would be copied back into local memory later.
type Cache struct {
	local     cache.Cache
	shared    cache.Cache // nil for a single-replica deployment
	refillTTL time.Duration
}

// New wires local over shared. Entries copied up from shared live refillTTL
// in local memory.
func New(local, shared cache.Cache, refillTTL time.Duration) *Cache {
	return &Cache{local: local, shared: shared, refillTTL: refillTTL}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, ok, err := c.local.Get(ctx, key); err != nil || ok || c.shared == nil {
		return val, ok, err
	}

	val, ok, err := c.shared.Get(ctx, key)
	switch {
	case err != nil:
		slog.WarnContext(ctx, "shared cache read failed", "key", key, "error", err)
		return nil, false, nil
	case !ok:
		return nil, false, nil
	}
	if err := c.local.Set(ctx, key, val, c.refillTTL); err != nil {
		slog.DebugContext(ctx, "local refill skipped", "key", key, "error", err)
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if c.shared != nil {
		if err := c.shared.Set(ctx, key, value, ttl); err != nil {
			slog.WarnContext(ctx, "shared cache write failed", "key", key, "error", err)
		}
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	if c.shared == nil {
		return nil
	}
	return c.shared.Delete(ctx, key)
}
