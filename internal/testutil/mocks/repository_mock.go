package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// MockProgressStateRepository is a mock implementation of repository.ProgressStateRepository
type MockProgressStateRepository struct {
	mock.Mock
}

func (m *MockProgressStateRepository) Load(ctx context.Context, userID string) (*models.UserProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProgress), args.Error(1)
}

func (m *MockProgressStateRepository) Save(ctx context.Context, progress models.UserProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockProgressStateRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockProgressStateRepository) Info(ctx context.Context) (*models.StorageInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorageInfo), args.Error(1)
}

// MockProgressRepository is a mock implementation of repository.ProgressRepository
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) Get(ctx context.Context, userID string) (*models.RemoteProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RemoteProgress), args.Error(1)
}

func (m *MockProgressRepository) Upsert(ctx context.Context, userID string, progress models.ProgressUpload, at time.Time) error {
	args := m.Called(ctx, userID, progress, at)
	return args.Error(0)
}

func (m *MockProgressRepository) CreateDefault(ctx context.Context, userID string, at time.Time) (*models.RemoteProgress, error) {
	args := m.Called(ctx, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RemoteProgress), args.Error(1)
}

func (m *MockProgressRepository) UpdateWords(ctx context.Context, userID string, words []string, at time.Time) error {
	args := m.Called(ctx, userID, words, at)
	return args.Error(0)
}

func (m *MockProgressRepository) UpdateXP(ctx context.Context, userID string, xp, currentLevel int, at time.Time) error {
	args := m.Called(ctx, userID, xp, currentLevel, at)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Insert(ctx context.Context, userID string, session models.StudySession, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, session, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) InsertBatch(ctx context.Context, userID string, sessions []models.StudySession, at time.Time) (int, error) {
	args := m.Called(ctx, userID, sessions, at)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionRepository) Recent(ctx context.Context, userID string, limit int) ([]models.StudySession, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StudySession), args.Error(1)
}

func (m *MockSessionRepository) List(ctx context.Context, userID string, limit, offset int) ([]models.StudySession, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StudySession), args.Error(1)
}
