package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// MockPusher is a mock implementation of worker.Pusher
type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) PatchWord(ctx context.Context, patch models.WordPatch) (*models.WordPatchResult, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WordPatchResult), args.Error(1)
}

func (m *MockPusher) PatchXP(ctx context.Context, points int) (*models.XPResult, error) {
	args := m.Called(ctx, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.XPResult), args.Error(1)
}

func (m *MockPusher) PostSession(ctx context.Context, session models.SessionUpload) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
