package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"

	redis "github.com/redis/go-redis/v9"
)

// RedisDistanceCache stores travel costs in one hash per origin:
// key "dist:{origin}", field destination, value a JSON document.
type RedisDistanceCache struct {
	rdb *redis.Client
}

type redisCost struct {
	Meters  float64 `json:"m"`
	Seconds float64 `json:"s"`
	Source  string  `json:"src"`
}

func NewRedisDistanceCache(rdb *redis.Client) *RedisDistanceCache {
	return &RedisDistanceCache{rdb: rdb}
}

// NewRedisDistanceCacheFromURL parses a redis:// URL and verifies the connection.
func NewRedisDistanceCacheFromURL(ctx context.Context, url string) (*RedisDistanceCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis distance cache: parse url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis distance cache: ping: %w", err)
	}
	return &RedisDistanceCache{rdb: rdb}, nil
}

func (c *RedisDistanceCache) Close() error { return c.rdb.Close() }

func (c *RedisDistanceCache) key(origin string) string { return "dist:" + origin }

func (c *RedisDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	vals, err := c.rdb.HMGet(ctx, c.key(origin), uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get distance cache: hmget: %w", err)
	}

	out := make(map[string]ports.DistanceResult, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rc redisCost
		if err := json.Unmarshal([]byte(s), &rc); err != nil {
			return nil, fmt.Errorf("get distance cache: decode %q -> %q: %w", origin, uniq[i], err)
		}
		out[uniq[i]] = ports.DistanceResult{DistanceMeters: rc.Meters, DurationSeconds: rc.Seconds}
	}

	return out, nil
}

// PutMany writes every entry inside one MULTI/EXEC block.
func (c *RedisDistanceCache) PutMany(ctx context.Context, entries []ports.CostEntry) (err error) {
	defer obs.Time(ctx, "distance.cache.PutMany")(&err)

	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	byOrigin := make(map[string][]any)
	for _, e := range entries {
		b, err := json.Marshal(redisCost{Meters: e.Result.DistanceMeters, Seconds: e.Result.DurationSeconds, Source: e.Source})
		if err != nil {
			return fmt.Errorf("insert distance cache: encode: %w", err)
		}
		byOrigin[e.Origin] = append(byOrigin[e.Origin], e.Destination, string(b))
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for origin, fields := range byOrigin {
			pipe.HSet(ctx, c.key(origin), fields...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert distance cache: exec: %w", err)
	}

	return nil
}
