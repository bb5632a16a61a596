package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	d := NewMemoryDenylist(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry must expire together with the token")
}

func TestMemoryDenylistIgnoresExpiredTokens(t *testing.T) {
	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	d := NewMemoryDenylist(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "old", now.Add(-time.Minute)))
	require.NoError(t, d.Revoke(ctx, "", now.Add(time.Hour)))

	revoked, err := d.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Empty(t, d.revoked)
}
