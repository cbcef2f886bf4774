package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rvk/skycommerce/internal/obs"
)

const ruleCacheKey = "skycommerce:pricerules:all"

// CachedRules memoizes the rule list in Redis. The cache is populated lazily
// on the first read and expires only via TTL or Redis eviction; there is no
// write-through path, so a rule changed out of band stays invisible until
// the entry expires. Accepted limitation. Cache failures degrade to direct
// store reads and are never surfaced to callers.
type CachedRules struct {
	source RuleSource
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedRules wraps source with a Redis-backed rule list cache. A nil
// client disables caching.
func NewCachedRules(source RuleSource, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedRules {
	return &CachedRules{source: source, client: client, ttl: ttl, log: log}
}

// PriceRules implements RuleSource.
func (c *CachedRules) PriceRules(ctx context.Context) ([]PriceRule, error) {
	if c.client == nil {
		return c.source.PriceRules(ctx)
	}
	data, err := c.client.Get(ctx, ruleCacheKey).Bytes()
	if err == nil {
		var rules []PriceRule
		if err := json.Unmarshal(data, &rules); err == nil {
			obs.ObserveCacheLookup("price_rules", true)
			return rules, nil
		}
		c.log.Warn().Err(err).Msg("discarding corrupt price rule cache entry")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Msg("price rule cache read failed")
	}
	obs.ObserveCacheLookup("price_rules", false)

	rules, err := c.source.PriceRules(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(rules); err == nil {
		if err := c.client.Set(ctx, ruleCacheKey, payload, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Msg("price rule cache write failed")
		}
	}
	return rules, nil
}
