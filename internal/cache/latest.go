package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okravets/border-queue-server/internal/store"
)

const keyPrefix = "latest_status:"

// LatestCache keeps the most recent queue status per checkpoint in Redis.
// Entries expire on their own so a stalled ingestion pipeline cannot serve
// stale data forever; readers fall back to the database on a miss.
type LatestCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewLatestCache creates a new latest-status cache
func NewLatestCache(redisClient *redis.Client, ttl time.Duration) *LatestCache {
	return &LatestCache{redis: redisClient, ttl: ttl}
}

// Set stores one checkpoint's latest status
func (c *LatestCache) Set(ctx context.Context, status store.LatestQueueStatus) error {
	key := fmt.Sprintf("%s%d", keyPrefix, status.CheckpointID)

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set status in Redis: %w", err)
	}

	return nil
}

// SetAll stores a full latest-status listing
func (c *LatestCache) SetAll(ctx context.Context, statuses []store.LatestQueueStatus) error {
	for _, status := range statuses {
		if err := c.Set(ctx, status); err != nil {
			return err
		}
	}
	return nil
}

// GetAll returns all cached statuses ordered by checkpoint id. An empty
// result is not an error; the caller decides whether to fall back.
func (c *LatestCache) GetAll(ctx context.Context) ([]store.LatestQueueStatus, error) {
	keys, err := c.redis.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list status keys: %w", err)
	}

	var statuses []store.LatestQueueStatus
	for _, key := range keys {
		data, err := c.redis.Get(ctx, key).Result()
		if err == redis.Nil {
			// Expired between Keys and Get
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get status from Redis: %w", err)
		}

		var status store.LatestQueueStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].CheckpointID < statuses[j].CheckpointID
	})

	return statuses, nil
}
