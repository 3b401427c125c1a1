package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docchain/internal/metrics"
	"docchain/internal/model"
)

// Cache is the best-effort store of latest-version snapshots.
// Neither method reports failures: the version store stays the source of truth.
type Cache interface {
	// Get returns the cached snapshot. Any failure is reported as a miss.
	Get(ctx context.Context, documentID string) (*model.Snapshot, bool)
	// Set stores snap unless a snapshot with the same or a higher version is
	// already cached, so the cached version never moves backwards.
	// Failures are logged and dropped.
	Set(ctx context.Context, documentID string, snap *model.Snapshot)
}

const keyPrefix = "doc:latest:"

// setIfNewer writes ARGV[1] to KEYS[1] only when the cached version is missing,
// undecodable or lower than ARGV[2]. ARGV[3] is the TTL in milliseconds, 0 for none.
// Returns 1 when written, 0 when a newer or equal version is already cached.
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, snap = pcall(cjson.decode, cur)
	if ok and type(snap) == 'table' then
		local cached = tonumber(snap['version'])
		if cached and cached >= tonumber(ARGV[2]) then
			return 0
		end
	end
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// Key returns the Redis key holding the latest snapshot of documentID.
func Key(documentID string) string {
	return keyPrefix + documentID
}

// RedisCache stores snapshots as JSON strings.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a snapshot cache. A ttl of 0 keeps entries until overwritten.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log.Named("cache")}
}

func (c *RedisCache) Get(ctx context.Context, documentID string) (*model.Snapshot, bool) {
	b, err := c.client.Get(ctx, Key(documentID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.CacheErrors.WithLabelValues("get").Inc()
			c.log.Warn("cache get failed", zap.String("document_id", documentID), zap.Error(err))
		}
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}

	var snap model.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		metrics.CacheErrors.WithLabelValues("decode").Inc()
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		c.log.Warn("cache entry undecodable", zap.String("document_id", documentID), zap.Error(err))
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return &snap, true
}

func (c *RedisCache) Set(ctx context.Context, documentID string, snap *model.Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		c.log.Warn("cache encode failed", zap.String("document_id", documentID), zap.Error(err))
		return
	}
	written, err := setIfNewer.Run(ctx, c.client, []string{Key(documentID)}, b, snap.Version, c.ttl.Milliseconds()).Int()
	if err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		c.log.Warn("cache set failed",
			zap.String("document_id", documentID),
			zap.Int("version", snap.Version),
			zap.Error(err),
		)
		return
	}
	if written == 0 {
		c.log.Debug("cache set skipped, newer version cached",
			zap.String("document_id", documentID),
			zap.Int("version", snap.Version),
		)
	}
}
