package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"docchain/internal/metrics"
	"docchain/internal/model"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *mr.Miniredis, *observer.ObservedLogs) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })

	core, logs := observer.New(zap.WarnLevel)
	return NewRedisCache(client, ttl, zap.New(core)), m, logs
}

func TestKey(t *testing.T) {
	assert.Equal(t, "doc:latest:abc", Key("abc"))
}

func TestRedisCache_SetGet(t *testing.T) {
	c, m, _ := newTestCache(t, 0)
	ctx := context.Background()

	snap := &model.Snapshot{
		DocumentID: "doc-1",
		Title:      "Title",
		Version:    3,
		Content:    "hello",
		UpdatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	c.Set(ctx, "doc-1", snap)

	assert.True(t, m.Exists("doc:latest:doc-1"))
	assert.Equal(t, time.Duration(0), m.TTL("doc:latest:doc-1"))

	hitsBefore := testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("hit"))
	got, ok := c.Get(ctx, "doc-1")
	require.True(t, ok)
	assert.Equal(t, snap.Version, got.Version)
	assert.Equal(t, snap.Content, got.Content)
	assert.True(t, snap.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("hit")))
}

func TestRedisCache_NewerVersionOverwrites(t *testing.T) {
	c, _, _ := newTestCache(t, 0)
	ctx := context.Background()

	c.Set(ctx, "doc-1", &model.Snapshot{DocumentID: "doc-1", Version: 1, Content: "one"})
	c.Set(ctx, "doc-1", &model.Snapshot{DocumentID: "doc-1", Version: 2, Content: "two"})

	got, ok := c.Get(ctx, "doc-1")
	require.True(t, ok)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "two", got.Content)
}

func TestRedisCache_OlderVersionNeverOverwrites(t *testing.T) {
	tests := []struct {
		name  string
		stale model.Snapshot
	}{
		{"lower version", model.Snapshot{DocumentID: "doc-1", Version: 1, Content: "one"}},
		{"same version", model.Snapshot{DocumentID: "doc-1", Version: 2, Content: "other"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestCache(t, 0)
			ctx := context.Background()

			c.Set(ctx, "doc-1", &model.Snapshot{DocumentID: "doc-1", Version: 2, Content: "two"})
			c.Set(ctx, "doc-1", &tt.stale)

			got, ok := c.Get(ctx, "doc-1")
			require.True(t, ok)
			assert.Equal(t, 2, got.Version)
			assert.Equal(t, "two", got.Content)
		})
	}
}

func TestRedisCache_ConcurrentWritesKeepHighestVersion(t *testing.T) {
	c, _, _ := newTestCache(t, 0)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for v := writers; v >= 1; v-- {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			c.Set(ctx, "doc-1", &model.Snapshot{DocumentID: "doc-1", Version: v, Content: fmt.Sprintf("v%d", v)})
		}(v)
	}
	wg.Wait()

	got, ok := c.Get(ctx, "doc-1")
	require.True(t, ok)
	assert.Equal(t, writers, got.Version)
	assert.Equal(t, fmt.Sprintf("v%d", writers), got.Content)
}

func TestRedisCache_UndecodableEntryIsReplaced(t *testing.T) {
	c, m, _ := newTestCache(t, 0)
	require.NoError(t, m.Set("doc:latest:doc-1", "{not json"))

	c.Set(context.Background(), "doc-1", &model.Snapshot{DocumentID: "doc-1", Version: 1, Content: "one"})

	got, ok := c.Get(context.Background(), "doc-1")
	require.True(t, ok)
	assert.Equal(t, 1, got.Version)
}

func TestRedisCache_TTL(t *testing.T) {
	c, m, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "doc-1", &model.Snapshot{DocumentID: "doc-1", Version: 1})
	assert.Equal(t, time.Minute, m.TTL("doc:latest:doc-1"))

	m.FastForward(2 * time.Minute)
	_, ok := c.Get(ctx, "doc-1")
	assert.False(t, ok)
}

func TestRedisCache_Miss(t *testing.T) {
	c, _, logs := newTestCache(t, 0)

	got, ok := c.Get(context.Background(), "unknown")

	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 0, logs.Len(), "a plain miss is not an error")
}

func TestRedisCache_UndecodableEntryIsMiss(t *testing.T) {
	c, m, logs := newTestCache(t, 0)
	require.NoError(t, m.Set("doc:latest:doc-1", "{not json"))

	got, ok := c.Get(context.Background(), "doc-1")

	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 1, logs.FilterMessage("cache entry undecodable").Len())
}

func TestRedisCache_FailuresAreSwallowed(t *testing.T) {
	c, m, logs := newTestCache(t, 0)
	ctx := context.Background()
	m.Close()

	setErrs := testutil.ToFloat64(metrics.CacheErrors.WithLabelValues("set"))
	assert.NotPanics(t, func() {
		c.Set(ctx, "doc-1", &model.Snapshot{DocumentID: "doc-1", Version: 1})
	})
	got, ok := c.Get(ctx, "doc-1")

	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 1, logs.FilterMessage("cache set failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("cache get failed").Len())
	assert.Equal(t, setErrs+1, testutil.ToFloat64(metrics.CacheErrors.WithLabelValues("set")))
}
