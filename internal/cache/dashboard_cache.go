package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rosec/backend/internal/analytics"
)

// DashboardCache stores computed dashboards so repeated page loads skip
// the full result fetch.
type DashboardCache interface {
	GetDashboard(ctx context.Context, key string) (*analytics.Dashboard, error)
	SetDashboard(ctx context.Context, key string, d *analytics.Dashboard) error
	Invalidate(ctx context.Context) error
}

type dashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDashboardCache creates a redis backed dashboard cache.
func NewDashboardCache(client *redis.Client, ttl time.Duration) DashboardCache {
	return &dashboardCache{client: client, ttl: ttl}
}

// DashboardKey builds the cache key of a dashboard scope.
func DashboardKey(period analytics.Period, classID, subjectID string) string {
	return fmt.Sprintf("dashboard:%s:c:%s:s:%s", period, classID, subjectID)
}

func (c *dashboardCache) GetDashboard(ctx context.Context, key string) (*analytics.Dashboard, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d analytics.Dashboard
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *dashboardCache) SetDashboard(ctx context.Context, key string, d *analytics.Dashboard) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops every cached dashboard, e.g. after a new scan arrives.
func (c *dashboardCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "dashboard:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
