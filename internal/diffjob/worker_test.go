package diffjob

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docchain/internal/model"
	"docchain/internal/repository/memory"
	"docchain/internal/repository/mocks"
)

// memPublisher keys diffs the same way ObjectPublisher does.
type memPublisher struct {
	mu    sync.Mutex
	diffs map[string]model.Diff
	puts  int
	err   error
}

func newMemPublisher() *memPublisher {
	return &memPublisher{diffs: map[string]model.Diff{}}
}

func (p *memPublisher) Publish(_ context.Context, d *model.Diff) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.puts++
	p.diffs[ObjectKey(d.DocumentID, d.NewVersionID)] = *d
	return nil
}

func (p *memPublisher) Fetch(_ context.Context, documentID, newVersionID string) (*model.Diff, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.diffs[ObjectKey(documentID, newVersionID)]
	if !ok {
		return nil, ErrDiffNotFound
	}
	return &d, nil
}

func seedChain(t *testing.T) (*memory.Store, model.DiffJob) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	doc, v1, err := store.CreateDocument(ctx, "Runbook", "alice", "line one\nline two\n")
	require.NoError(t, err)
	res, err := store.CreateVersion(ctx, doc.ID, "line one\nline 2\n")
	require.NoError(t, err)
	return store, model.DiffJob{DocumentID: doc.ID, OldVersionID: v1.ID, NewVersionID: res.Version.ID}
}

func taskFor(t *testing.T, job model.DiffJob) *asynq.Task {
	t.Helper()
	task, err := NewTask(job)
	require.NoError(t, err)
	return task
}

func TestWorker_PublishesDiff(t *testing.T) {
	store, job := seedChain(t)
	pub := newMemPublisher()
	w := NewWorker(store, pub, zap.NewNop())

	err := w.ProcessTask(context.Background(), taskFor(t, job))
	require.NoError(t, err)

	diff, err := pub.Fetch(context.Background(), job.DocumentID, job.NewVersionID)
	require.NoError(t, err)
	assert.Equal(t, 1, diff.OldVersion)
	assert.Equal(t, 2, diff.NewVersion)
	assert.Contains(t, diff.Patch, "--- Version 1")
	assert.Contains(t, diff.Patch, "+++ Version 2")
	assert.Contains(t, diff.Patch, "-line two")
	assert.Contains(t, diff.Patch, "+line 2")
}

func TestWorker_Idempotent(t *testing.T) {
	store, job := seedChain(t)
	pub := newMemPublisher()
	w := NewWorker(store, pub, zap.NewNop())
	task := taskFor(t, job)

	require.NoError(t, w.ProcessTask(context.Background(), task))
	first, _ := pub.Fetch(context.Background(), job.DocumentID, job.NewVersionID)
	require.NoError(t, w.ProcessTask(context.Background(), task))
	second, _ := pub.Fetch(context.Background(), job.DocumentID, job.NewVersionID)

	assert.Equal(t, first, second)
	assert.Len(t, pub.diffs, 1)
	assert.Equal(t, 2, pub.puts)
}

func TestWorker_MissingVersionIsTerminal(t *testing.T) {
	store, job := seedChain(t)
	job.OldVersionID = "does-not-exist"
	pub := newMemPublisher()
	w := NewWorker(store, pub, zap.NewNop())

	err := w.ProcessTask(context.Background(), taskFor(t, job))

	assert.ErrorIs(t, err, ErrVersionsNotFound)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, pub.diffs)
}

func TestWorker_VersionOfOtherDocumentIsTerminal(t *testing.T) {
	store, job := seedChain(t)
	job.DocumentID = "another-document"
	w := NewWorker(store, newMemPublisher(), zap.NewNop())

	err := w.ProcessTask(context.Background(), taskFor(t, job))

	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWorker_MalformedPayloadIsTerminal(t *testing.T) {
	w := NewWorker(memory.NewStore(), newMemPublisher(), zap.NewNop())

	err := w.ProcessTask(context.Background(), asynq.NewTask(TypeGenerateDiff, []byte("{")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWorker_TransientErrorsAreRetried(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		versions := new(mocks.MockVersionStore)
		versions.On("FindVersions", mock.Anything, []string{"v1", "v2"}).Return(nil, errors.New("connection reset"))
		w := NewWorker(versions, newMemPublisher(), zap.NewNop())

		err := w.ProcessTask(context.Background(), taskFor(t, testJob))

		assert.ErrorContains(t, err, "connection reset")
		assert.NotErrorIs(t, err, asynq.SkipRetry)
		versions.AssertExpectations(t)
	})

	t.Run("publisher", func(t *testing.T) {
		store, job := seedChain(t)
		pub := newMemPublisher()
		pub.err = errors.New("bucket unavailable")
		w := NewWorker(store, pub, zap.NewNop())

		err := w.ProcessTask(context.Background(), taskFor(t, job))

		assert.ErrorContains(t, err, "bucket unavailable")
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}
