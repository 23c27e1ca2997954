package repository

import (
	"context"
	"time"

	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// ProgressStateRepository is the durable local store for the engine. It holds
// one serialized UserProgress per user and survives process restarts.
type ProgressStateRepository interface {
	// Load returns nil, nil when nothing was persisted for userID.
	Load(ctx context.Context, userID string) (*models.UserProgress, error)
	Save(ctx context.Context, progress models.UserProgress) error
	Delete(ctx context.Context, userID string) error
	Info(ctx context.Context) (*models.StorageInfo, error)
}

// ProgressRepository stores the collaborator's aggregate progress per user.
type ProgressRepository interface {
	// Get returns nil, nil when the user has no progress row.
	Get(ctx context.Context, userID string) (*models.RemoteProgress, error)
	Upsert(ctx context.Context, userID string, progress models.ProgressUpload, at time.Time) error
	// CreateDefault inserts a zero row unless one exists and returns the stored row.
	CreateDefault(ctx context.Context, userID string, at time.Time) (*models.RemoteProgress, error)
	UpdateWords(ctx context.Context, userID string, words []string, at time.Time) error
	UpdateXP(ctx context.Context, userID string, xp, currentLevel int, at time.Time) error
}

// SessionRepository stores the collaborator's append-only session log.
type SessionRepository interface {
	// Insert stores the session unless an identical one exists. It reports
	// whether a new row was written.
	Insert(ctx context.Context, userID string, session models.StudySession, at time.Time) (bool, error)
	// InsertBatch inserts sessions in one transaction and returns how many
	// were new.
	InsertBatch(ctx context.Context, userID string, sessions []models.StudySession, at time.Time) (int, error)
	// Recent returns the newest limit sessions in chronological order.
	Recent(ctx context.Context, userID string, limit int) ([]models.StudySession, error)
	// List returns sessions newest first.
	List(ctx context.Context, userID string, limit, offset int) ([]models.StudySession, error)
}
