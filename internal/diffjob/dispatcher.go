package diffjob

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"docchain/internal/metrics"
	"docchain/internal/model"
)

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher enqueues diff jobs. It never reports failures to the caller:
// by the time it runs the version is already committed.
type Dispatcher struct {
	client   Enqueuer
	queue    string
	maxRetry int
	log      *zap.Logger
}

func NewDispatcher(client Enqueuer, queue string, maxRetry int, log *zap.Logger) *Dispatcher {
	return &Dispatcher{client: client, queue: queue, maxRetry: maxRetry, log: log.Named("dispatcher")}
}

// Dispatch enqueues job on the diff queue.
func (d *Dispatcher) Dispatch(ctx context.Context, job model.DiffJob) {
	log := d.log.With(
		zap.String("document_id", job.DocumentID),
		zap.String("old_version_id", job.OldVersionID),
		zap.String("new_version_id", job.NewVersionID),
	)

	task, err := NewTask(job,
		asynq.Queue(d.queue),
		asynq.MaxRetry(d.maxRetry),
		asynq.TaskID(TaskID(job)),
	)
	if err != nil {
		metrics.DiffJobsDispatched.WithLabelValues("failed").Inc()
		log.Error("diff job encode failed", zap.Error(err))
		return
	}

	info, err := d.client.EnqueueContext(ctx, task)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		metrics.DiffJobsDispatched.WithLabelValues("duplicate").Inc()
		log.Debug("diff job already enqueued")
	case err != nil:
		metrics.DiffJobsDispatched.WithLabelValues("failed").Inc()
		log.Error("diff job enqueue failed", zap.Error(err))
	default:
		metrics.DiffJobsDispatched.WithLabelValues("enqueued").Inc()
		log.Info("diff job enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	}
}
