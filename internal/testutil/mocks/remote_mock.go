package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// MockRemote is a mock implementation of syncer.Remote
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) PushProgress(ctx context.Context, upload models.SyncUpload) error {
	args := m.Called(ctx, upload)
	return args.Error(0)
}

func (m *MockRemote) FetchProgress(ctx context.Context) (*models.SyncSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncSnapshot), args.Error(1)
}
