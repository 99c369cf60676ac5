package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gentlecut/internal/events"
	"gentlecut/internal/model"
)

// Cache is a read-through Redis cache over a Resolver. Cache failures
// degrade to direct resolution; availability answers are never wrong,
// at worst uncached.
type Cache struct {
	resolver *Resolver
	redis    *redis.Client
	ttl      time.Duration
	logger   *zerolog.Logger
}

// NewCache wraps resolver with a Redis cache.
func NewCache(resolver *Resolver, rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{resolver: resolver, redis: rdb, ttl: ttl, logger: logger}
}

func cacheKey(barberID int64, date model.DateKey) string {
	return fmt.Sprintf("availability:%d:%s", barberID, date)
}

// AvailableSlots returns the cached slot list or resolves and caches it.
// Resolver errors are returned uncached.
func (c *Cache) AvailableSlots(ctx context.Context, barberID int64, date model.DateKey) ([]string, error) {
	key := cacheKey(barberID, date)

	if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var slots []string
		if err := json.Unmarshal(data, &slots); err == nil {
			return slots, nil
		}
	}

	slots, err := c.resolver.AvailableSlots(barberID, date)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(slots); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("availability cache write failed")
		}
	}
	return slots, nil
}

// Invalidate drops the cached entry for one barber/date.
func (c *Cache) Invalidate(ctx context.Context, barberID int64, date model.DateKey) {
	if err := c.redis.Del(ctx, cacheKey(barberID, date)).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("barber_id", barberID).Msg("availability cache invalidate failed")
	}
}

// InvalidateBarber drops every cached date for one barber. Used when the
// weekly pattern changes and all dates may be affected.
func (c *Cache) InvalidateBarber(ctx context.Context, barberID int64) {
	pattern := fmt.Sprintf("availability:%d:*", barberID)
	keys, err := c.redis.Keys(ctx, pattern).Result()
	if err != nil {
		c.logger.Warn().Err(err).Int64("barber_id", barberID).Msg("availability cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("barber_id", barberID).Msg("availability cache invalidate failed")
	}
}

type invalidationEvent struct {
	BarberID int64  `json:"barber_id"`
	Date     string `json:"date,omitempty"`
}

// BindBus subscribes the cache to booking and schedule events so stale
// entries are dropped as soon as the underlying state changes.
func (c *Cache) BindBus(bus *events.Bus) {
	handler := func(e events.Event) error {
		var ev invalidationEvent
		if err := json.Unmarshal(e.Payload, &ev); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if ev.Date == "" {
			c.InvalidateBarber(ctx, ev.BarberID)
			return nil
		}
		c.Invalidate(ctx, ev.BarberID, model.DateKey(ev.Date))
		return nil
	}

	bus.Subscribe(events.BookingCreated, handler)
	bus.Subscribe(events.BookingDeleted, handler)
	bus.Subscribe(events.ScheduleUpdated, handler)
}
