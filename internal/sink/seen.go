package sink

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const seenKeyPrefix = "gigleads:seen:"

// SeenCache remembers listing IDs already handed to a sink, so repeat runs
// over the same location skip the enrichment cost for known listings. Cache
// misses (including Redis being unreachable) fail open: the listing is
// processed again and the sink's own dedup catches it.
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewSeenCache connects to Redis and verifies the connection.
func NewSeenCache(ctx context.Context, redisURL string, ttl time.Duration, logger *logrus.Logger) (*SeenCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &SeenCache{client: client, ttl: ttl, logger: logger}, nil
}

// Seen reports whether the listing ID was marked on a previous run.
func (c *SeenCache) Seen(ctx context.Context, listingID string) bool {
	n, err := c.client.Exists(ctx, seenKeyPrefix+listingID).Result()
	if err != nil {
		c.logger.WithField("error", err.Error()).Debug("Seen-cache lookup failed; treating as unseen")
		return false
	}
	return n > 0
}

// Mark records the listing ID with the configured TTL.
func (c *SeenCache) Mark(ctx context.Context, listingID string) {
	if err := c.client.Set(ctx, seenKeyPrefix+listingID, 1, c.ttl).Err(); err != nil {
		c.logger.WithField("error", err.Error()).Debug("Seen-cache mark failed")
	}
}

// Close closes the Redis connection.
func (c *SeenCache) Close() error {
	return c.client.Close()
}
