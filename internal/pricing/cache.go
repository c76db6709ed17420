package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "pricing:version"

// Cache stores resolved quotes in Redis. Keys embed a shared version
// counter; Invalidate bumps it, which orphans every cached quote at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds Cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached quote for the key, if any.
func (c *Cache) Get(ctx context.Context, variantID, warehouseID int64, channel Channel) (Quote, bool) {
	payload, err := c.client.Get(ctx, c.key(ctx, variantID, warehouseID, channel)).Bytes()
	if err != nil {
		return Quote{}, false
	}
	var quote Quote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return Quote{}, false
	}
	return quote, true
}

// Set stores the quote with the cache TTL. Failures are ignored; the
// cache is advisory.
func (c *Cache) Set(ctx context.Context, quote Quote) {
	payload, err := json.Marshal(quote)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(ctx, quote.VariantID, quote.WarehouseID, quote.Channel), payload, c.ttl)
}

// Invalidate drops all cached quotes by bumping the version counter.
// Called after a receipt or adjustment changes landed costs.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *Cache) key(ctx context.Context, variantID, warehouseID int64, channel Channel) string {
	version, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil {
		version = 0
	}
	return fmt.Sprintf("pricing:v%d:%d:%d:%s", version, variantID, warehouseID, channel)
}
