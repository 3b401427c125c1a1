package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("CACHE_TTL_SEC", "60")
	t.Setenv("DIFF_SINK", "Mongo")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, DiffSinkMongo, cfg.DiffSink)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QUEUE_NAME", "")
	t.Setenv("WORKER_ENABLED", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "document-diff-queue", cfg.Queue.Name)
	assert.Equal(t, 5, cfg.Queue.MaxRetry)
	assert.Equal(t, 10, cfg.Queue.Concurrency)
	assert.True(t, cfg.Queue.WorkerEnabled)
	assert.Equal(t, time.Duration(0), cfg.Cache.TTL)
	assert.Equal(t, 10*time.Second, cfg.Mongo.Timeout)
}

func newTestViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	return v
}

func TestGetEnvBool(t *testing.T) {
	key := "MINIO_USE_SSL"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(newTestViper(), key))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(newTestViper(), key))

	t.Setenv(key, "invalid")
	assert.False(t, getEnvBool(newTestViper(), key))

	t.Setenv("WORKER_ENABLED", "invalid")
	assert.True(t, getEnvBool(newTestViper(), "WORKER_ENABLED"))
}

func TestGetEnvInt(t *testing.T) {
	key := "QUEUE_MAX_RETRY"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(newTestViper(), key))

	t.Setenv(key, "invalid")
	assert.Equal(t, 5, getEnvInt(newTestViper(), key))

	t.Setenv(key, "")
	assert.Equal(t, 5, getEnvInt(newTestViper(), key))
}
