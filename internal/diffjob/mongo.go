package diffjob

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docchain/internal/model"
)

// DiffCollection is the collection MongoPublisher writes to.
const DiffCollection = "version_diffs"

// MongoPublisher upserts one document per (documentId, newVersionId).
type MongoPublisher struct {
	coll *mongo.Collection
}

func NewMongoPublisher(coll *mongo.Collection) *MongoPublisher {
	return &MongoPublisher{coll: coll}
}

// EnsureIndexes creates the unique key index. Safe to call on every start.
func (p *MongoPublisher) EnsureIndexes(ctx context.Context) error {
	_, err := p.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "documentId", Value: 1}, {Key: "newVersionId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_document_new_version"),
	})
	if err != nil {
		return fmt.Errorf("create diff index: %w", err)
	}
	return nil
}

func diffFilter(documentID, newVersionID string) bson.D {
	return bson.D{{Key: "documentId", Value: documentID}, {Key: "newVersionId", Value: newVersionID}}
}

func (p *MongoPublisher) Publish(ctx context.Context, diff *model.Diff) error {
	_, err := p.coll.ReplaceOne(ctx,
		diffFilter(diff.DocumentID, diff.NewVersionID),
		diff,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert diff: %w", err)
	}
	return nil
}

func (p *MongoPublisher) Fetch(ctx context.Context, documentID, newVersionID string) (*model.Diff, error) {
	var diff model.Diff
	err := p.coll.FindOne(ctx, diffFilter(documentID, newVersionID)).Decode(&diff)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDiffNotFound
		}
		return nil, fmt.Errorf("find diff: %w", err)
	}
	return &diff, nil
}
