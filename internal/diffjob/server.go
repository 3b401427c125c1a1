package diffjob

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"docchain/internal/config"
)

// Server runs Worker on an asynq server bound to the diff queue.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewServer wires w into an asynq server. asynq logs through log's sugared form.
func NewServer(redisOpt asynq.RedisConnOpt, cfg config.QueueConfig, w *Worker, log *zap.Logger) *Server {
	log = log.Named("asynq")

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Name: 1},
		Logger:      log.Sugar(),
		LogLevel:    asynq.WarnLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			id, _ := asynq.GetTaskID(ctx)
			log.Warn("task failed",
				zap.String("task_type", task.Type()),
				zap.String("task_id", id),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Bool("terminal", errors.Is(err, asynq.SkipRetry) || retried >= maxRetry),
				zap.Error(err),
			)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeGenerateDiff, w)

	return &Server{srv: srv, mux: mux}
}

// Run processes tasks until ctx is done, then waits for in-flight tasks.
func (s *Server) Run(ctx context.Context) error {
	if err := s.srv.Start(s.mux); err != nil {
		return fmt.Errorf("start diff worker: %w", err)
	}
	<-ctx.Done()
	s.srv.Shutdown()
	return nil
}
