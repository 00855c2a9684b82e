package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// blacklistPrefix namespaces revoked tokens inside the shared store.
const blacklistPrefix = "blacklist:"

// BlacklistRepository records revoked tokens in Redis until their
// natural expiry. Entries carry a TTL derived from the token's own
// expiry so a revocation never outlives the token it revokes.
type BlacklistRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewBlacklistRepository constructs a blacklist repository.
func NewBlacklistRepository(client *redis.Client, logger *zap.Logger) *BlacklistRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlacklistRepository{client: client, logger: logger}
}

// Add stores the raw token under the namespaced key with the given
// TTL. A non-positive TTL means the token is already past its own
// expiry and can never verify again, so the write is skipped rather
// than stored without expiry.
func (r *BlacklistRepository) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		r.logger.Debug("skipping blacklist write for expired token")
		return nil
	}

	key := blacklistPrefix + token
	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", blacklistPrefix, err)
	}
	return nil
}

// IsBlacklisted reports whether the exact token string has been
// revoked. A store error propagates to the caller, which must treat
// it as "cannot confirm not-revoked" and fail closed.
func (r *BlacklistRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	key := blacklistPrefix + token
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", blacklistPrefix, err)
	}
	return n > 0, nil
}

// Remove deletes a blacklist entry, un-revoking the token. Not used
// by the normal auth flows; kept for administrative overrides.
func (r *BlacklistRepository) Remove(ctx context.Context, token string) error {
	key := blacklistPrefix + token
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", blacklistPrefix, err)
	}
	return nil
}
