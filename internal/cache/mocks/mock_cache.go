package mocks

import (
	"context"

	"docchain/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, documentID string) (*model.Snapshot, bool) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*model.Snapshot), args.Bool(1)
}

func (m *MockCache) Set(ctx context.Context, documentID string, snap *model.Snapshot) {
	m.Called(ctx, documentID, snap)
}
