// internal/catalog/cache.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultCachePrefix namespaces cached tracks in Redis.
const DefaultCachePrefix = "songquiz:track:"

// Cached serves tracks from Redis and falls back to next on a miss.
// Redis failures are logged and never fail a lookup.
type Cached struct {
	next   Fetcher
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    logrus.FieldLogger
}

// NewCached wraps next with a Redis cache.
func NewCached(next Fetcher, rdb *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *Cached {
	return &Cached{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		prefix: DefaultCachePrefix,
		log:    logger,
	}
}

func (c *Cached) FetchTrack(ctx context.Context, id string) (*Track, error) {
	key := c.prefix + id

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t Track
		if jsonErr := json.Unmarshal(data, &t); jsonErr == nil {
			return &t, nil
		}
		c.log.Warnf("catalog cache: dropping corrupt entry %s", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warnf("catalog cache: get %s: %v", key, err)
	}

	t, err := c.next.FetchTrack(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(t); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warnf("catalog cache: set %s: %v", key, err)
		}
	}
	return t, nil
}
