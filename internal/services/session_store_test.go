package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/utils"
)

func TestSessionLifecycle(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	store := NewSessionStore(db)
	store.now = func() time.Time { return testNow }

	token, expiresAt, err := store.Create(ctx, 7)
	require.NoError(t, err)
	require.Len(t, token, 64)
	require.Equal(t, testNow.Add(SessionLifetime), expiresAt)

	// Only the digest is persisted.
	var row models.Session
	require.NoError(t, db.First(&row).Error)
	require.Equal(t, utils.HashToken(token), row.TokenHash)
	require.NotEqual(t, token, row.TokenHash)

	session, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, uint(7), session.UserID)

	_, err = store.Resolve(ctx, "unknown")
	require.True(t, errors.Is(err, ErrSessionInvalid))
	_, err = store.Resolve(ctx, "")
	require.True(t, errors.Is(err, ErrSessionInvalid))

	require.NoError(t, store.Invalidate(ctx, token))
	_, err = store.Resolve(ctx, token)
	require.True(t, errors.Is(err, ErrSessionInvalid))

	// Invalidating twice is harmless.
	require.NoError(t, store.Invalidate(ctx, token))
}

func TestSessionExpiry(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	store := NewSessionStore(db)
	now := testNow
	store.now = func() time.Time { return now }

	token, _, err := store.Create(ctx, 1)
	require.NoError(t, err)

	now = testNow.Add(SessionLifetime - time.Second)
	_, err = store.Resolve(ctx, token)
	require.NoError(t, err)

	now = testNow.Add(SessionLifetime)
	_, err = store.Resolve(ctx, token)
	require.True(t, errors.Is(err, ErrSessionInvalid))
	require.True(t, errors.Is(err, ErrUnauthenticated))

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}

func TestInvalidateUser(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	store := NewSessionStore(db)

	a, _, err := store.Create(ctx, 1)
	require.NoError(t, err)
	b, _, err := store.Create(ctx, 1)
	require.NoError(t, err)
	other, _, err := store.Create(ctx, 2)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	require.NoError(t, store.InvalidateUser(ctx, 1))
	_, err = store.Resolve(ctx, a)
	require.Error(t, err)
	_, err = store.Resolve(ctx, b)
	require.Error(t, err)
	_, err = store.Resolve(ctx, other)
	require.NoError(t, err)
}
