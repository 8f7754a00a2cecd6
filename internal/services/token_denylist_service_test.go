package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenDenylist(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	denylist := NewTokenDenylist(rdb)
	ctx := context.Background()

	revoked, err := denylist.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, denylist.Revoke(ctx, "tok", time.Minute))
	revoked, err = denylist.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = denylist.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	// already expired tokens are not stored
	require.NoError(t, denylist.Revoke(ctx, "old", -time.Second))
	assert.False(t, mr.Exists(denylistPrefix+"old"))
}
