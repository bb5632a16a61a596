package database

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sadhana/backend/config"
	"sadhana/backend/models"
	"sadhana/backend/repository/memory"
	"sadhana/backend/utils"
)

func TestSeedAdminIsIdempotent(t *testing.T) {
	store := memory.New()
	cfg := &config.Config{AdminName: "Admin", AdminEmail: "Admin@Temple.org", AdminPassword: "hare-krishna"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	require.NoError(t, SeedAdmin(ctx, store.Users, cfg, logger))
	require.NoError(t, SeedAdmin(ctx, store.Users, cfg, logger))

	users, err := store.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.Equal(t, "admin@temple.org", users[0].Email)
	assert.True(t, utils.CheckPassword(users[0].PasswordHash, "hare-krishna"))
}

func TestSeedAdminSkippedWithoutCredentials(t *testing.T) {
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, SeedAdmin(context.Background(), store.Users, &config.Config{}, logger))
	users, err := store.Users.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}
