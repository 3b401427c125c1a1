package mocks

import (
	"context"

	"docchain/internal/model"
	"docchain/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockVersionStore struct {
	mock.Mock
}

var _ repository.VersionStore = (*MockVersionStore)(nil)

func (m *MockVersionStore) CreateDocument(ctx context.Context, title, createdBy, content string) (*model.Document, *model.Version, error) {
	args := m.Called(ctx, title, createdBy, content)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Document), args.Get(1).(*model.Version), args.Error(2)
}

func (m *MockVersionStore) CreateVersion(ctx context.Context, documentID, content string) (*repository.AppendResult, error) {
	args := m.Called(ctx, documentID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AppendResult), args.Error(1)
}

func (m *MockVersionStore) GetLatest(ctx context.Context, documentID string) (*model.Snapshot, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Snapshot), args.Error(1)
}

func (m *MockVersionStore) FindVersions(ctx context.Context, ids ...string) ([]model.Version, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Version), args.Error(1)
}

func (m *MockVersionStore) ListVersions(ctx context.Context, documentID string) ([]model.Version, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Version), args.Error(1)
}

func (m *MockVersionStore) SearchByTitle(ctx context.Context, query string, limit int) ([]model.DocumentSummary, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentSummary), args.Error(1)
}
