package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/rvk/skycommerce/internal/common"
)

// New builds a per-client-IP limiter allowing rpm requests per minute,
// backed by Redis when a client is provided and process memory otherwise.
func New(rdb *redis.Client, rpm int) (*limiter.Limiter, error) {
	rate := limiter.Rate{Period: time.Minute, Limit: int64(rpm)}
	if rdb == nil {
		return limiter.New(limitermem.NewStore(), rate), nil
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "skycommerce:ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	return limiter.New(store, rate), nil
}

// Middleware enforces the limit keyed by remote IP. Limiter backend errors
// fail open so a Redis outage never takes request traffic down with it.
func Middleware(l *limiter.Limiter, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			lctx, err := l.Get(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			headers := w.Header()
			headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				retryAfter := lctx.Reset - time.Now().Unix()
				if retryAfter < 0 {
					retryAfter = 0
				}
				headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
