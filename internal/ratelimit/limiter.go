package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peoplehub/people-api/pkg/config"
)

// Tier names a rate-limit bucket class. Endpoints are assigned to a
// tier at route configuration time, never per request.
type Tier string

const (
	TierShort  Tier = "short"
	TierMedium Tier = "medium"
	TierLong   Tier = "long"
	TierAuth   Tier = "auth"
)

const keyPrefix = "ratelimit:"

// Result reports the outcome of a limiter check.
type Result struct {
	Allowed    bool
	Count      int64
	Limit      int
	RetryAfter time.Duration
}

// Limiter enforces tiered fixed-window limits keyed by
// (tier, client identity) using Redis counters. The INCR is atomic in
// the store, so two concurrent requests can never both observe
// "under limit" and jointly exceed it.
type Limiter struct {
	redis *redis.Client
	tiers map[Tier]config.ThrottleTier
}

// New creates a Limiter backed by the given Redis client.
func New(client *redis.Client, cfg config.ThrottleConfig) *Limiter {
	return &Limiter{
		redis: client,
		tiers: map[Tier]config.ThrottleTier{
			TierShort:  cfg.Short,
			TierMedium: cfg.Medium,
			TierLong:   cfg.Long,
			TierAuth:   cfg.Auth,
		},
	}
}

// Window returns the configured window for a tier.
func (l *Limiter) Window(tier Tier) time.Duration {
	return l.tiers[tier].Window
}

// Limit returns the configured request budget for a tier.
func (l *Limiter) Limit(tier Tier) int {
	return l.tiers[tier].Limit
}

// Allow counts a request against (tier, identity) and reports whether
// it fits inside the current window. A limit of zero or below falls
// back to the tier's configured budget; callers pass a scaled-down
// limit for routes holding only a fraction of the tier.
func (l *Limiter) Allow(ctx context.Context, tier Tier, identity string, limit int) (Result, error) {
	tierCfg, ok := l.tiers[tier]
	if !ok {
		return Result{Allowed: true}, fmt.Errorf("unknown rate limit tier %q", tier)
	}
	if limit <= 0 {
		limit = tierCfg.Limit
	}

	key := fmt.Sprintf("%s%s:%s", keyPrefix, tier, identity)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	// Fixed-window semantics: the TTL is set only on the first hit,
	// so the counter resets when the window elapses.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, tierCfg.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	res := Result{Count: count, Limit: limit, Allowed: count <= int64(limit)}
	if !res.Allowed {
		retryAfter, err := l.redis.TTL(ctx, key).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = tierCfg.Window
		}
		res.RetryAfter = retryAfter
	}

	return res, nil
}
