package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docchain/internal/config"
	"docchain/internal/diffjob"
)

func TestNewPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("log sink", func(t *testing.T) {
		p, closeFn, err := newPublisher(ctx, &config.AppConfig{DiffSink: config.DiffSinkLog}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &diffjob.LogPublisher{}, p)
		assert.NoError(t, closeFn(ctx))
	})

	t.Run("minio sink needs endpoint", func(t *testing.T) {
		_, _, err := newPublisher(ctx, &config.AppConfig{DiffSink: config.DiffSinkMinIO}, zap.NewNop())
		assert.ErrorContains(t, err, "endpoint")
	})

	t.Run("mongo sink needs uri", func(t *testing.T) {
		cfg := &config.AppConfig{DiffSink: config.DiffSinkMongo, Mongo: config.MongoConfig{Timeout: time.Second}}
		_, _, err := newPublisher(ctx, cfg, zap.NewNop())
		assert.ErrorContains(t, err, "uri is required")
	})

	t.Run("unknown sink", func(t *testing.T) {
		_, _, err := newPublisher(ctx, &config.AppConfig{DiffSink: "ftp"}, zap.NewNop())
		assert.ErrorContains(t, err, "unknown diff sink")
	})
}

func TestClose_ReverseOrderAndJoinedErrors(t *testing.T) {
	var order []string
	a := &App{}
	a.onClose(func(context.Context) error { order = append(order, "db"); return nil })
	a.onClose(func(context.Context) error { order = append(order, "redis"); return errors.New("redis close") })
	a.onClose(func(context.Context) error { order = append(order, "queue"); return errors.New("queue close") })

	err := a.Close(context.Background())

	assert.Equal(t, []string{"queue", "redis", "db"}, order)
	assert.ErrorContains(t, err, "redis close")
	assert.ErrorContains(t, err, "queue close")
	assert.NoError(t, a.Close(context.Background()), "second close is a no-op")
}

func TestRedisConnOpt(t *testing.T) {
	a := &App{Config: &config.AppConfig{Redis: config.RedisConfig{Host: "cache", Port: "6380", Password: "pw", DB: 2}}}

	opt := a.RedisConnOpt()

	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
}
