package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cartKeyPrefix = "skycommerce:cart:"

// Cache memoizes cart views in Redis. Every mutating operation overwrites
// the entry with the freshly computed view (write-through) rather than
// invalidating it, so a subsequent Get observes the mutation without racing
// a refetch. Entries otherwise expire by TTL; capacity bounding and recency
// eviction are delegated to the Redis maxmemory policy. Cache failures
// degrade to store reads and are logged, never surfaced.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCache constructs a cart view cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, log: log}
}

// Enabled reports whether a backing Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached view for the cart id, if present.
func (c *Cache) Get(ctx context.Context, cartID string) (View, bool) {
	if !c.Enabled() {
		return View{}, false
	}
	data, err := c.client.Get(ctx, cartKeyPrefix+cartID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("cart_id", cartID).Msg("cart cache read failed")
		}
		return View{}, false
	}
	var view View
	if err := json.Unmarshal(data, &view); err != nil {
		c.log.Warn().Err(err).Str("cart_id", cartID).Msg("discarding corrupt cart cache entry")
		return View{}, false
	}
	return view, true
}

// Put overwrites the cache entry for the view's cart id.
func (c *Cache) Put(ctx context.Context, view View) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		c.log.Error().Err(err).Str("cart_id", view.ID).Msg("marshal cart view")
		return
	}
	if err := c.client.Set(ctx, cartKeyPrefix+view.ID, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("cart_id", view.ID).Msg("cart cache write failed")
	}
}
