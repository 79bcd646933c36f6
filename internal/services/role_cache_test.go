package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCache(t *testing.T) {
	userID := uuid.New()
	calls := 0
	role := "teacher"
	cache := NewRoleCache(func(ctx context.Context, id uuid.UUID) (string, error) {
		calls++
		return role, nil
	}, time.Minute)

	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	got, err := cache.Role(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "teacher", got)

	role = "admin"
	got, _ = cache.Role(context.Background(), userID)
	assert.Equal(t, "teacher", got, "cached role is served until it expires")
	assert.Equal(t, 1, calls)

	cache.Invalidate(userID)
	got, _ = cache.Role(context.Background(), userID)
	assert.Equal(t, "admin", got)
	assert.Equal(t, 2, calls)

	role = "teacher"
	now = now.Add(2 * time.Minute)
	got, _ = cache.Role(context.Background(), userID)
	assert.Equal(t, "teacher", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, cache.Len())
}

func TestRoleCache_ErrorsNotCached(t *testing.T) {
	fail := true
	cache := NewRoleCache(func(ctx context.Context, id uuid.UUID) (string, error) {
		if fail {
			return "", ErrUserNotActive
		}
		return "admin", nil
	}, time.Minute)

	id := uuid.New()
	_, err := cache.Role(context.Background(), id)
	assert.True(t, errors.Is(err, ErrUserNotActive))
	assert.Equal(t, 0, cache.Len())

	fail = false
	got, err := cache.Role(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "admin", got)
}

func TestRoleCache_InvalidateDuringLoad(t *testing.T) {
	id := uuid.New()
	calls := 0
	var cache *RoleCache
	cache = NewRoleCache(func(ctx context.Context, uid uuid.UUID) (string, error) {
		calls++
		if calls == 1 {
			// role changes while the first load is in flight
			cache.Invalidate(uid)
			return "admin", nil
		}
		return "teacher", nil
	}, time.Minute)

	got, err := cache.Role(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "admin", got)
	assert.Equal(t, 0, cache.Len(), "stale load is not stored")

	got, _ = cache.Role(context.Background(), id)
	assert.Equal(t, "teacher", got)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, cache.Len())
}
