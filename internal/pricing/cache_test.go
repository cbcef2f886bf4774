package pricing

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newCacheFixture(t *testing.T, source RuleSource, ttl time.Duration) (*CachedRules, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedRules(source, rdb, ttl, zerolog.Nop()), mr
}

func TestCachedRulesPopulatesLazily(t *testing.T) {
	source := &staticSource{rules: testRules(t)}
	cached, _ := newCacheFixture(t, source, time.Minute)

	first, err := cached.PriceRules(context.Background())
	require.NoError(t, err)
	require.Len(t, first, len(source.rules))
	require.Equal(t, 1, source.calls)

	second, err := cached.PriceRules(context.Background())
	require.NoError(t, err)
	require.Len(t, second, len(source.rules))
	require.Equal(t, 1, source.calls, "second read must be served from cache")
}

func TestCachedRulesServesStaleUntilExpiry(t *testing.T) {
	source := &staticSource{rules: testRules(t)}
	cached, mr := newCacheFixture(t, source, time.Minute)

	_, err := cached.PriceRules(context.Background())
	require.NoError(t, err)

	// Out-of-band rule change stays invisible until the TTL lapses.
	source.rules = source.rules[:3]
	rules, err := cached.PriceRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 9)

	mr.FastForward(2 * time.Minute)
	rules, err = cached.PriceRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 3)
	require.Equal(t, 2, source.calls)
}

func TestCachedRulesDiscardsCorruptEntry(t *testing.T) {
	source := &staticSource{rules: testRules(t)}
	cached, mr := newCacheFixture(t, source, time.Minute)

	require.NoError(t, mr.Set(ruleCacheKey, "{not json"))
	rules, err := cached.PriceRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, len(source.rules))
	require.Equal(t, 1, source.calls)
}

func TestCachedRulesNilClientPassesThrough(t *testing.T) {
	source := &staticSource{rules: testRules(t)}
	cached := NewCachedRules(source, nil, time.Minute, zerolog.Nop())

	for i := 0; i < 2; i++ {
		rules, err := cached.PriceRules(context.Background())
		require.NoError(t, err)
		require.Len(t, rules, len(source.rules))
	}
	require.Equal(t, 2, source.calls)
}
