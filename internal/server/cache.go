package server

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tasktracker/internal/task"
)

const (
	insightsCacheKey      = "tasktracker:insights"
	insightsGenerationKey = "tasktracker:insights:gen"
)

var errCacheDisabled = errors.New("insights cache disabled")

// InsightsCache keeps computed insights in Redis under the current write
// generation. Every mutation bumps the generation, so an aggregate computed
// before a write lands under a key no reader asks for. A nil cache or nil
// client disables caching.
type InsightsCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   log.FieldLogger
}

func NewInsightsCache(client *redis.Client, ttl time.Duration, logger log.FieldLogger) *InsightsCache {
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &InsightsCache{redis: client, ttl: ttl, log: logger}
}

func (c *InsightsCache) enabled() bool {
	return c != nil && c.redis != nil
}

func entryKey(gen int64) string {
	return insightsCacheKey + ":" + strconv.FormatInt(gen, 10)
}

// Generation returns the current write generation. It must be read before the
// task list the insights are computed from.
func (c *InsightsCache) Generation(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, errCacheDisabled
	}
	gen, err := c.redis.Get(ctx, insightsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.log.WithError(err).Warn("insights cache: read generation")
		return 0, err
	}
	return gen, nil
}

func (c *InsightsCache) Load(ctx context.Context, gen int64) (task.Insights, bool) {
	if !c.enabled() {
		return task.Insights{}, false
	}
	key := entryKey(gen)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).Warn("insights cache: load")
		}
		return task.Insights{}, false
	}
	var ins task.Insights
	if err := sonic.ConfigStd.Unmarshal(data, &ins); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("insights cache: dropping corrupt entry")
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			c.log.WithError(err).Warn("insights cache: delete")
		}
		return task.Insights{}, false
	}
	return ins, true
}

// Store caches ins under gen. A stale gen is harmless: readers never look it up.
func (c *InsightsCache) Store(ctx context.Context, gen int64, ins task.Insights) {
	if !c.enabled() || c.ttl == 0 {
		return
	}
	data, err := sonic.ConfigStd.Marshal(ins)
	if err != nil {
		c.log.WithError(err).Warn("insights cache: encode")
		return
	}
	if err := c.redis.Set(ctx, entryKey(gen), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("insights cache: store")
	}
}

// Evict starts a new generation, retiring every entry computed before it.
func (c *InsightsCache) Evict(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.redis.Incr(ctx, insightsGenerationKey).Err(); err != nil {
		c.log.WithError(err).Warn("insights cache: bump generation")
	}
}
