// Package diffjob computes unified diffs between consecutive versions of a
// document outside the write path. Dispatcher enqueues asynq tasks after a
// version append commits. Worker consumes them and hands the result to a
// Publisher.
package diffjob

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"docchain/internal/model"
)

// TypeGenerateDiff is the asynq task type of diff jobs.
const TypeGenerateDiff = "generate-diff"

// TaskID is deterministic so that enqueueing the same pair twice is rejected by asynq.
func TaskID(job model.DiffJob) string {
	return fmt.Sprintf("diff:%s:%s", job.OldVersionID, job.NewVersionID)
}

// NewTask encodes job as a generate-diff task.
func NewTask(job model.DiffJob, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode diff job: %w", err)
	}
	return asynq.NewTask(TypeGenerateDiff, payload, opts...), nil
}

// ParsePayload decodes and validates a generate-diff payload.
func ParsePayload(b []byte) (model.DiffJob, error) {
	var job model.DiffJob
	if err := json.Unmarshal(b, &job); err != nil {
		return model.DiffJob{}, fmt.Errorf("decode diff job: %w", err)
	}
	if job.DocumentID == "" || job.OldVersionID == "" || job.NewVersionID == "" {
		return model.DiffJob{}, fmt.Errorf("decode diff job: documentId, oldVersionId and newVersionId are required")
	}
	return job, nil
}
