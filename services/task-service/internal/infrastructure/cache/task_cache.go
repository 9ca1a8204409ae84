// Package cache provides the redis-backed read-through cache for
// single-task lookups. Misses and redis failures both fall through to
// the repository; the cache never makes a read fail.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskhive/task-platform/services/task-service/internal/domain"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/redis"
)

const (
	cacheName  = "task"
	defaultTTL = 5 * time.Minute
)

type taskCache struct {
	redis   *redis.Redis
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics
}

func NewTaskCache(r *redis.Redis, ttl time.Duration, logger *logging.Logger, m *metrics.Metrics) domain.TaskCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &taskCache{redis: r, ttl: ttl, logger: logger, metrics: m}
}

func key(id int64) string {
	return fmt.Sprintf("task:%d", id)
}

func (c *taskCache) Get(ctx context.Context, id int64) (*domain.Task, bool) {
	raw, err := c.redis.Get(ctx, key(id))
	if err != nil {
		if !redis.IsNil(err) && c.logger != nil {
			c.logger.WithError(err).Debug("task cache read failed")
		}
		c.metrics.CacheMisses.WithLabelValues(cacheName).Inc()
		return nil, false
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		c.Invalidate(ctx, id)
		c.metrics.CacheMisses.WithLabelValues(cacheName).Inc()
		return nil, false
	}

	c.metrics.CacheHits.WithLabelValues(cacheName).Inc()
	return &task, true
}

func (c *taskCache) Set(ctx context.Context, task *domain.Task) {
	raw, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key(task.ID), string(raw), c.ttl); err != nil && c.logger != nil {
		c.logger.WithError(err).Debug("task cache write failed")
	}
}

func (c *taskCache) Invalidate(ctx context.Context, id int64) {
	if err := c.redis.Delete(ctx, key(id)); err != nil && c.logger != nil {
		c.logger.WithError(err).Debug("task cache invalidation failed")
	}
}
