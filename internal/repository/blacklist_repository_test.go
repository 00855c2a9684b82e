package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBlacklistTest(t *testing.T) (*BlacklistRepository, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewBlacklistRepository(client, zap.NewNop())
	return repo, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestBlacklistAddAndCheck(t *testing.T) {
	repo, mr, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "token-1", time.Hour))

	revoked, err := repo.IsBlacklisted(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.IsBlacklisted(ctx, "token-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Entries live under the blacklist namespace with the token TTL.
	assert.True(t, mr.Exists("blacklist:token-1"))
	ttl := mr.TTL("blacklist:token-1")
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 2)
}

func TestBlacklistSkipsExpiredToken(t *testing.T) {
	repo, mr, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	// A token already past its expiry can never verify again, so no
	// entry is written.
	require.NoError(t, repo.Add(ctx, "stale-token", -time.Minute))
	assert.False(t, mr.Exists("blacklist:stale-token"))

	require.NoError(t, repo.Add(ctx, "zero-token", 0))
	assert.False(t, mr.Exists("blacklist:zero-token"))
}

func TestBlacklistEntryExpires(t *testing.T) {
	repo, mr, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "token-1", time.Minute))

	mr.FastForward(2 * time.Minute)

	revoked, err := repo.IsBlacklisted(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklistRemove(t *testing.T) {
	repo, _, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "token-1", time.Hour))
	require.NoError(t, repo.Remove(ctx, "token-1"))

	revoked, err := repo.IsBlacklisted(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklistStoreErrorPropagates(t *testing.T) {
	repo, mr, done := newBlacklistTest(t)
	defer done()
	ctx := context.Background()

	mr.Close()

	_, err := repo.IsBlacklisted(ctx, "token-1")
	require.Error(t, err)

	err = repo.Add(ctx, "token-1", time.Hour)
	require.Error(t, err)
}
