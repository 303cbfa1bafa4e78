package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

const defaultPrefix = "rl:"

// RateLimitStore counts requests in Redis so every replica shares one
// budget per client. A window opens with a client's first request and
// lasts one period; the counter key expires with it.
type RateLimitStore struct {
	client *redis.Client
	prefix string
}

var _ ports.RateLimitStore = (*RateLimitStore)(nil)

func NewRateLimitStore(client *redis.Client, prefix string) *RateLimitStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RateLimitStore{client: client, prefix: prefix}
}

// Take increments the counter for key. SET NX PX starts the window only
// when the key is absent, so the expiry is never pushed back by later hits.
func (s *RateLimitStore) Take(ctx context.Context, key string, limit int, period time.Duration) (domain.RateLimitDecision, error) {
	redisKey := s.key(key)

	pipe := s.client.TxPipeline()
	pipe.SetNX(ctx, redisKey, 0, period)
	incr := pipe.Incr(ctx, redisKey)
	pttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("rate limit take: %w", err)
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		// The counter lost its expiry; restart the window.
		if err := s.client.PExpire(ctx, redisKey, period).Err(); err != nil {
			return domain.RateLimitDecision{}, fmt.Errorf("rate limit expire: %w", err)
		}
		ttl = period
	}
	return decide(incr.Val(), limit, ttl, time.Now()), nil
}

func (s *RateLimitStore) key(key string) string {
	return s.prefix + strings.ReplaceAll(key, " ", "_")
}

func decide(hits int64, limit int, ttl time.Duration, now time.Time) domain.RateLimitDecision {
	d := domain.RateLimitDecision{
		Allowed: hits <= int64(limit),
		Limit:   limit,
		ResetAt: now.Add(ttl),
	}
	if remaining := int64(limit) - hits; remaining > 0 {
		d.Remaining = int(remaining)
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}

// Pinger adapts a client to the readiness probe.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
