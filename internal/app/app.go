// Package app builds the process-wide resources shared by the api and worker binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docchain/internal/cache"
	"docchain/internal/config"
	"docchain/internal/database"
	"docchain/internal/database/migration"
	"docchain/internal/diffjob"
	"docchain/internal/repository"
	"docchain/internal/repository/postgres"
	"docchain/internal/service"
	"docchain/internal/storage"
)

// App owns every long-lived client. Close releases them in reverse order of creation.
type App struct {
	Config  *config.AppConfig
	Log     *zap.Logger
	DB      *sql.DB
	Redis   *redis.Client
	Store   repository.VersionStore
	Service service.DocumentService
	Worker  *diffjob.Worker

	closers []func(context.Context) error
}

// New connects Postgres, bootstraps the schema, connects Redis and the queue
// client, builds the diff sink and wires the service.
// Postgres and the diff sink are required. Redis is not: the cache and the
// dispatcher degrade and log.
func New(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.DB = db
	a.onClose(func(context.Context) error { return db.Close() })

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if rdb == nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err != nil {
		log.Warn("redis unavailable at startup, cache and diff dispatch degraded", zap.Error(err))
	}
	a.Redis = rdb
	a.onClose(func(context.Context) error { return rdb.Close() })

	queue := asynq.NewClient(a.RedisConnOpt())
	a.onClose(func(context.Context) error { return queue.Close() })

	publisher, closePublisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("diff sink %q: %w", cfg.DiffSink, err)
	}
	a.onClose(closePublisher)

	a.Store = postgres.NewDocumentPostgres(db)
	a.Worker = diffjob.NewWorker(a.Store, publisher, log)
	a.Service = service.NewDocumentService(
		a.Store,
		cache.NewRedisCache(rdb, cfg.Cache.TTL, log),
		diffjob.NewDispatcher(queue, cfg.Queue.Name, cfg.Queue.MaxRetry, log),
		publisher,
	)
	return a, nil
}

// RedisConnOpt is the asynq view of the Redis settings.
func (a *App) RedisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Config.Redis.Addr(),
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}
}

// WorkerServer returns an asynq server running the diff worker.
func (a *App) WorkerServer() *diffjob.Server {
	return diffjob.NewServer(a.RedisConnOpt(), a.Config.Queue, a.Worker, a.Log)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order and reports every failure.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newPublisher(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (diffjob.Publisher, func(context.Context) error, error) {
	nop := func(context.Context) error { return nil }

	switch cfg.DiffSink {
	case config.DiffSinkMinIO:
		store, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, nil, err
		}
		return diffjob.NewObjectPublisher(store), nop, nil

	case config.DiffSinkMongo:
		client, err := database.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
		if err != nil {
			return nil, nil, err
		}
		p := diffjob.NewMongoPublisher(client.Database(cfg.Mongo.Database).Collection(diffjob.DiffCollection))
		if err := p.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return p, client.Disconnect, nil

	case config.DiffSinkLog:
		return diffjob.NewLogPublisher(log), nop, nil

	default:
		return nil, nil, fmt.Errorf("unknown diff sink, want %s, %s or %s", config.DiffSinkMinIO, config.DiffSinkMongo, config.DiffSinkLog)
	}
}
