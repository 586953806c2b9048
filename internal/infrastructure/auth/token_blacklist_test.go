package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_Revoke(t *testing.T) {
	b := NewInMemoryTokenBlacklist()
	now := time.Now()
	b.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	revoked, err := b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, b.Revoke(ctx, "jti-1", time.Minute))
	revoked, _ = b.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)
	revoked, _ = b.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = b.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked, "entry lapses with the token")
	assert.Empty(t, b.tokens)
}

func TestInMemoryTokenBlacklist_RevokeUser(t *testing.T) {
	b := NewInMemoryTokenBlacklist()
	now := time.Now()
	b.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	issuedBefore := now.Add(-time.Minute)
	revoked, err := b.IsUserRevoked(ctx, "user-1", issuedBefore)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, b.RevokeUser(ctx, "user-1", time.Hour))

	revoked, _ = b.IsUserRevoked(ctx, "user-1", issuedBefore)
	assert.True(t, revoked)
	revoked, _ = b.IsUserRevoked(ctx, "user-1", now)
	assert.True(t, revoked, "token issued at the revocation instant is rejected")
	revoked, _ = b.IsUserRevoked(ctx, "user-1", now.Add(time.Second))
	assert.False(t, revoked)
	revoked, _ = b.IsUserRevoked(ctx, "user-2", issuedBefore)
	assert.False(t, revoked)
}
