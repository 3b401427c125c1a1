package diffjob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoPublisher(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("publish upserts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "x"}}}},
		))

		err := NewMongoPublisher(mt.Coll).Publish(context.Background(), testDiff)
		assert.NoError(t, err)
	})

	mt.Run("publish error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11600,
			Message: "interrupted at shutdown",
			Name:    "InterruptedAtShutdown",
		}))

		err := NewMongoPublisher(mt.Coll).Publish(context.Background(), testDiff)
		assert.ErrorContains(t, err, "upsert diff")
	})

	mt.Run("fetch found", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "documentId", Value: "doc-1"},
			{Key: "oldVersionId", Value: "v1"},
			{Key: "newVersionId", Value: "v2"},
			{Key: "oldVersion", Value: 1},
			{Key: "newVersion", Value: 2},
			{Key: "patch", Value: testDiff.Patch},
		}))

		got, err := NewMongoPublisher(mt.Coll).Fetch(context.Background(), "doc-1", "v2")
		require.NoError(t, err)
		assert.Equal(t, testDiff, got)
	})

	mt.Run("fetch missing", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := NewMongoPublisher(mt.Coll).Fetch(context.Background(), "doc-1", "v2")
		assert.ErrorIs(t, err, ErrDiffNotFound)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(t, NewMongoPublisher(mt.Coll).EnsureIndexes(context.Background()))
	})
}
