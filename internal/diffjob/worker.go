package diffjob

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"docchain/internal/metrics"
	"docchain/internal/model"
	"docchain/internal/repository"
)

// ErrVersionsNotFound means one of the job's versions does not exist. Retrying cannot help.
var ErrVersionsNotFound = errors.New("diff job versions not found")

// VersionFinder is the read the worker needs from the version store.
type VersionFinder interface {
	FindVersions(ctx context.Context, ids ...string) ([]model.Version, error)
}

var _ VersionFinder = (repository.VersionStore)(nil)

// Worker handles generate-diff tasks.
type Worker struct {
	versions  VersionFinder
	publisher Publisher
	log       *zap.Logger
}

func NewWorker(versions VersionFinder, publisher Publisher, log *zap.Logger) *Worker {
	return &Worker{versions: versions, publisher: publisher, log: log.Named("worker")}
}

// ProcessTask implements asynq.Handler. Errors wrapping asynq.SkipRetry are terminal,
// anything else is retried by the server.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	job, err := ParsePayload(t.Payload())
	if err != nil {
		metrics.DiffJobsProcessed.WithLabelValues("skipped").Inc()
		w.log.Error("diff job rejected", zap.Error(err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log := w.log.With(
		zap.String("document_id", job.DocumentID),
		zap.String("old_version_id", job.OldVersionID),
		zap.String("new_version_id", job.NewVersionID),
	)
	if id, ok := asynq.GetTaskID(ctx); ok {
		log = log.With(zap.String("task_id", id))
	}

	diff, err := w.compute(ctx, job)
	if err != nil {
		if errors.Is(err, ErrVersionsNotFound) {
			metrics.DiffJobsProcessed.WithLabelValues("skipped").Inc()
			log.Error("diff job dropped", zap.Error(err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		metrics.DiffJobsProcessed.WithLabelValues("failed").Inc()
		return err
	}

	if err := w.publisher.Publish(ctx, diff); err != nil {
		metrics.DiffJobsProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("publish diff: %w", err)
	}

	metrics.DiffJobsProcessed.WithLabelValues("published").Inc()
	log.Info("diff published",
		zap.Int("old_version", diff.OldVersion),
		zap.Int("new_version", diff.NewVersion),
		zap.Int("patch_bytes", len(diff.Patch)),
	)
	return nil
}

func (w *Worker) compute(ctx context.Context, job model.DiffJob) (*model.Diff, error) {
	versions, err := w.versions.FindVersions(ctx, job.OldVersionID, job.NewVersionID)
	if err != nil {
		return nil, fmt.Errorf("load versions: %w", err)
	}

	var from, to *model.Version
	for i := range versions {
		v := &versions[i]
		if v.DocumentID != job.DocumentID {
			continue
		}
		switch v.ID {
		case job.OldVersionID:
			from = v
		case job.NewVersionID:
			to = v
		}
	}
	if from == nil || to == nil {
		return nil, ErrVersionsNotFound
	}

	patch, err := Unified(*from, *to)
	if err != nil {
		return nil, err
	}
	return &model.Diff{
		DocumentID:   job.DocumentID,
		OldVersionID: from.ID,
		NewVersionID: to.ID,
		OldVersion:   from.VersionNumber,
		NewVersion:   to.VersionNumber,
		Patch:        patch,
	}, nil
}
