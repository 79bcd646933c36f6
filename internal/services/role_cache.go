package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rosec/backend/internal/models"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// RoleLoader fetches the current role of a user from the source of truth.
type RoleLoader func(ctx context.Context, userID uuid.UUID) (string, error)

type roleEntry struct {
	role    string
	expires time.Time
}

// RoleCache memoizes user roles for a bounded time. It is owned by the
// server and handed to whoever gates requests on role.
type RoleCache struct {
	mu      sync.Mutex
	load    RoleLoader
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]roleEntry
	gen     uint64 // bumped by Invalidate; loads that overlap a bump are not stored
}

func NewRoleCache(load RoleLoader, ttl time.Duration) *RoleCache {
	return &RoleCache{
		load:    load,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]roleEntry),
	}
}

// Role returns the cached role of userID, loading it when absent or stale.
// Load errors are not cached.
func (c *RoleCache) Role(ctx context.Context, userID uuid.UUID) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[userID]
	gen := c.gen
	c.mu.Unlock()
	if ok && c.now().Before(e.expires) {
		return e.role, nil
	}

	role, err := c.load(ctx, userID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.entries[userID] = roleEntry{role: role, expires: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()
	return role, nil
}

// Invalidate forgets the cached role of userID.
func (c *RoleCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.gen++
	c.mu.Unlock()
}

// Len reports how many roles are currently cached, stale ones included.
func (c *RoleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// UserRoleLoader reads roles from the users table. Inactive users have no
// role.
func UserRoleLoader(db *gorm.DB) RoleLoader {
	return func(ctx context.Context, userID uuid.UUID) (string, error) {
		var user models.User
		if err := db.WithContext(ctx).Select("id", "role", "is_active").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrUserNotFound
			}
			return "", fmt.Errorf("failed to load role: %w", err)
		}
		if !user.IsActive {
			return "", ErrUserNotActive
		}
		return user.Role, nil
	}
}
