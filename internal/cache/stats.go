// Package cache keeps derived pause statistics in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gurkanbulca/tasktimer/internal/report"
)

const statsKeyPrefix = "taskstats:"

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// StatsCache stores report.Stats as JSON under taskstats:<task id>.
type StatsCache struct {
	rdb kv
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func statsKey(taskID uuid.UUID) string {
	return statsKeyPrefix + taskID.String()
}

// Get returns the cached stats; ok is false on a miss.
func (c *StatsCache) Get(ctx context.Context, taskID uuid.UUID) (stats *report.Stats, ok bool, err error) {
	raw, err := c.rdb.Get(ctx, statsKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached stats: %w", err)
	}

	stats = &report.Stats{}
	if err := json.Unmarshal(raw, stats); err != nil {
		return nil, false, fmt.Errorf("decode cached stats: %w", err)
	}
	return stats, true, nil
}

func (c *StatsCache) Set(ctx context.Context, taskID uuid.UUID, stats *report.Stats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := c.rdb.Set(ctx, statsKey(taskID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context, taskID uuid.UUID) error {
	if err := c.rdb.Del(ctx, statsKey(taskID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached stats: %w", err)
	}
	return nil
}
