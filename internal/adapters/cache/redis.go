// Package cache provides a short-TTL Redis cache for read-only
// registration projections. Cached answers are for display and reporting
// only; the write path never consults them.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"campusevents/internal/domain"
)

// StatsCache caches RegistrationStats per event with a short TTL.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache returns a StatsCache over the given client. A nil client
// yields a cache that always misses, which keeps the facade usable without
// Redis.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// NewClient builds a Redis client for addr, or nil when addr is empty.
func NewClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

func statsKey(eventID string) string {
	return fmt.Sprintf("event:%s:stats", eventID)
}

// Get returns the cached stats for eventID, or (nil, false) on a miss.
// Redis errors degrade to a miss; the caller falls through to the store.
func (c *StatsCache) Get(ctx context.Context, eventID string) (*domain.RegistrationStats, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, statsKey(eventID)).Bytes()
	if err != nil {
		return nil, false
	}
	var stats domain.RegistrationStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

// Set stores stats under the event's key for the configured TTL.
func (c *StatsCache) Set(ctx context.Context, eventID string, stats *domain.RegistrationStats) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, statsKey(eventID), raw, c.ttl).Err()
}
