package redirect

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/metrics"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "taglink:redirect:"

// Target is a resolved redirect.
type Target struct {
	LinkID int64  `json:"link_id"`
	URL    string `json:"url"`
}

// Cache is a read-through cache of resolved (host, code) pairs. Only hits are cached.
type Cache interface {
	Get(ctx context.Context, host, code string) (*Target, bool)
	Set(ctx context.Context, host, code string, t *Target)
	Invalidate(ctx context.Context, host, code string)
}

// NopCache disables caching.
type NopCache struct{}

func (NopCache) Get(context.Context, string, string) (*Target, bool) { return nil, false }
func (NopCache) Set(context.Context, string, string, *Target)       {}
func (NopCache) Invalidate(context.Context, string, string)         {}

// RedisCache stores resolutions in Redis with a short TTL. Redis failures degrade to a miss
// and are never surfaced to the redirect path.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func cacheKey(host, code string) string {
	return keyPrefix + domain.NormalizeHostname(host) + "|" + code
}

func (c *RedisCache) Get(ctx context.Context, host, code string) (*Target, bool) {
	raw, err := c.client.Get(ctx, cacheKey(host, code)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RedirectCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.RedirectCache.WithLabelValues("error").Inc()
		c.log.Warn("redirect cache read failed", zap.Error(err))
		return nil, false
	}

	var t Target
	if err := json.Unmarshal(raw, &t); err != nil {
		metrics.RedirectCache.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.RedirectCache.WithLabelValues("hit").Inc()
	return &t, true
}

func (c *RedisCache) Set(ctx context.Context, host, code string, t *Target) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(host, code), raw, c.ttl).Err(); err != nil {
		c.log.Warn("redirect cache write failed", zap.Error(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, host, code string) {
	if err := c.client.Del(ctx, cacheKey(host, code)).Err(); err != nil {
		c.log.Warn("redirect cache invalidation failed",
			zap.String("host", host),
			zap.String("code", code),
			zap.Error(err))
	}
}

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}
