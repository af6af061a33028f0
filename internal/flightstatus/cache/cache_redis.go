package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"claimcheck/internal/flightstatus"
)

const flightKeyPrefix = "fs:flight:"

// upsertScript applies last-observation-wins atomically on the Redis side so
// multiple service instances feeding the same cache cannot interleave an older
// observation over a newer one.
var upsertScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'observed_at_ns'))
if cur and cur >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'observed_at_ns', ARGV[1], 'payload', ARGV[2])
return 1
`)

// RedisCache is the distributed live cache for multi-instance deployments.
// Same contract as InMemoryCache.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Upsert installs the event unless a newer observation is already cached.
func (c *RedisCache) Upsert(ctx context.Context, ev flightstatus.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal flight status: %w", err)
	}

	key := flightKeyPrefix + ev.FlightID
	if err := upsertScript.Run(ctx, c.client, []string{key}, ev.ObservedAt.UnixNano(), payload).Err(); err != nil {
		return fmt.Errorf("upsert flight status: %w", err)
	}
	return nil
}

// Get returns the latest observation for a flight, or nil when none is cached.
func (c *RedisCache) Get(ctx context.Context, flightID string) (*flightstatus.Event, error) {
	raw, err := c.client.HGet(ctx, flightKeyPrefix+flightID, "payload").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flight status: %w", err)
	}

	var ev flightstatus.Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return nil, fmt.Errorf("unmarshal flight status: %w", err)
	}
	return &ev, nil
}
