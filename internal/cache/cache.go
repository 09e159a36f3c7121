// Package cache provides an optional Redis-backed cache for slot listings.
// A nil *SlotCache is valid and behaves as a permanent miss, so callers
// don't branch on whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stadion/internal/models"
)

const keyPrefix = "stadion:slots:"

type SlotCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// New creates a slot cache. Returns nil when rdb is nil or ttl is zero.
func New(rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *SlotCache {
	if rdb == nil || ttl <= 0 {
		return nil
	}
	return &SlotCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns the cached listing for date, or (nil, false) on a miss.
// Redis errors degrade to a miss.
func (c *SlotCache) Get(ctx context.Context, date string) ([]models.Slot, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, keyPrefix+date).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("date", date).Msg("slot cache read failed")
		return nil, false
	}
	var slots []models.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		c.logger.Warn().Err(err).Str("date", date).Msg("slot cache decode failed")
		return nil, false
	}
	return slots, true
}

// Set stores the listing for date with the configured TTL.
func (c *SlotCache) Set(ctx context.Context, date string, slots []models.Slot) {
	if c == nil {
		return
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+date, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("date", date).Msg("slot cache write failed")
	}
}

// Invalidate drops the cached listing for date. Called after every
// mutation so readers never act on stale availability past the TTL.
func (c *SlotCache) Invalidate(ctx context.Context, date string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, keyPrefix+date).Err(); err != nil {
		c.logger.Warn().Err(err).Str("date", date).Msg("slot cache invalidate failed")
	}
}
