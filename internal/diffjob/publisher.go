package diffjob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docchain/internal/model"
	"docchain/internal/storage"
)

// ErrDiffNotFound is returned by Fetch when no diff was published for the version.
var ErrDiffNotFound = errors.New("diff not found")

// Publisher stores computed diffs. Publish must be idempotent:
// a redelivered job writes the same diff to the same place.
type Publisher interface {
	Publish(ctx context.Context, diff *model.Diff) error
	// Fetch returns the diff that introduced newVersionID.
	Fetch(ctx context.Context, documentID, newVersionID string) (*model.Diff, error)
}

// ObjectKey is where ObjectPublisher keeps the diff that introduced newVersionID.
func ObjectKey(documentID, newVersionID string) string {
	return fmt.Sprintf("diffs/%s/%s.json", documentID, newVersionID)
}

// ObjectPublisher writes diffs as JSON objects to an object store.
type ObjectPublisher struct {
	store storage.Storage
}

func NewObjectPublisher(store storage.Storage) *ObjectPublisher {
	return &ObjectPublisher{store: store}
}

func (p *ObjectPublisher) Publish(ctx context.Context, diff *model.Diff) error {
	b, err := json.Marshal(diff)
	if err != nil {
		return fmt.Errorf("encode diff: %w", err)
	}
	key := ObjectKey(diff.DocumentID, diff.NewVersionID)
	_, err = p.store.Put(ctx, key, bytes.NewReader(b), storage.PutObjectOptions{
		Size:        int64(len(b)),
		ContentType: "application/json",
		Metadata: map[string]string{
			"document-id":    diff.DocumentID,
			"old-version-id": diff.OldVersionID,
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (p *ObjectPublisher) Fetch(ctx context.Context, documentID, newVersionID string) (*model.Diff, error) {
	key := ObjectKey(documentID, newVersionID)
	rc, _, err := p.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrDiffNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer rc.Close()

	var diff model.Diff
	if err := json.NewDecoder(rc).Decode(&diff); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &diff, nil
}

// LogPublisher only logs the patch. Nothing can be fetched back.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("diff")}
}

func (p *LogPublisher) Publish(_ context.Context, diff *model.Diff) error {
	p.log.Info("diff generated",
		zap.String("document_id", diff.DocumentID),
		zap.Int("old_version", diff.OldVersion),
		zap.Int("new_version", diff.NewVersion),
		zap.String("patch", diff.Patch),
	)
	return nil
}

func (p *LogPublisher) Fetch(context.Context, string, string) (*model.Diff, error) {
	return nil, ErrDiffNotFound
}
