// Package cache is the Redis read-through layer over aggregated signals.
// Cache faults never fail a request; misses and errors fall through to the
// store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"biohive/internal/aggregation/models"
	platformredis "biohive/internal/platform/redis"
	"biohive/pkg/domain"
)

const keyPrefix = "biohive:signal:"

// Cache caches aggregated signals by date. A nil client disables caching and
// every lookup is a miss.
type Cache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached signal for date, or false on miss.
func (c *Cache) Get(ctx context.Context, date domain.Date) (*models.AggregatedSignal, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, keyPrefix+date.String()).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "signal cache read failed",
				"date", date.String(), "error", err.Error())
		}
		return nil, false
	}
	var signal models.AggregatedSignal
	if err := json.Unmarshal(raw, &signal); err != nil {
		c.logger.WarnContext(ctx, "signal cache entry corrupt",
			"date", date.String(), "error", err.Error())
		return nil, false
	}
	return &signal, true
}

// Set stores the signal under its date key.
func (c *Cache) Set(ctx context.Context, signal *models.AggregatedSignal) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(signal)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+signal.Date.String(), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "signal cache write failed",
			"date", signal.Date.String(), "error", err.Error())
	}
}

// Invalidate drops the cached signal for date.
func (c *Cache) Invalidate(ctx context.Context, date domain.Date) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+date.String()).Err(); err != nil {
		c.logger.WarnContext(ctx, "signal cache invalidation failed",
			"date", date.String(), "error", err.Error())
	}
}
